// Package config provides centralized configuration management for the
// simulation vector tools. It handles loading configuration from multiple
// sources, validation, and provides a type-safe API for accessing
// configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of
// precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SIM_* for namespacing:
//
//	SIM_STORE_ROOT_DIR=/data/ensembles
//	SIM_QUERY_CACHE_TTL=15m
//	SIM_LOGGING_LEVEL=debug
//	SIM_DIAGNOSTICS_ADDR=:9090
//
// # Calculator Expressions
//
// User-defined calculated vectors live in the configuration file only;
// they are structured records with no environment form:
//
//	expressions:
//	  - name: TOTAL_LIQUID
//	    expression: x+y
//	    variableVectorMap:
//	      x: FOPT
//	      y: FWPT
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    slog.Error("load config", "error", err)
//	    os.Exit(1)
//	}
package config
