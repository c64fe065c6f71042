package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Store       StoreConfig       `yaml:"store" envconfig:"STORE"`
	Query       QueryConfig       `yaml:"query" envconfig:"QUERY"`
	Export      ExportConfig      `yaml:"export" envconfig:"EXPORT"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" envconfig:"DIAGNOSTICS"`

	// Expressions defines the calculator vectors available to queries.
	// File-only; there is no environment form for structured records.
	Expressions []ExpressionConfig `yaml:"expressions" ignored:"true"`
}

// StoreConfig contains ensemble store configuration
type StoreConfig struct {
	RootDir            string `yaml:"root_dir" envconfig:"ROOT_DIR"`
	MaxConcurrentLoads int    `yaml:"max_concurrent_loads" envconfig:"MAX_CONCURRENT_LOADS"`
}

// QueryConfig contains derived-vector query configuration
type QueryConfig struct {
	ResamplingFrequency string        `yaml:"resampling_frequency" envconfig:"RESAMPLING_FREQUENCY"`
	CacheTTL            time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	CacheMaxEntries     int           `yaml:"cache_max_entries" envconfig:"CACHE_MAX_ENTRIES"`
}

// ExportConfig contains report export configuration
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	Format    string `yaml:"format" envconfig:"FORMAT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// DiagnosticsConfig contains the optional diagnostics listener
// configuration. An empty address disables the listener.
type DiagnosticsConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// ExpressionConfig is one user-defined calculator vector as written in the
// configuration file.
type ExpressionConfig struct {
	Name              string            `yaml:"name"`
	Expression        string            `yaml:"expression"`
	VariableVectorMap map[string]string `yaml:"variableVectorMap"`
}

// Load loads configuration from the given YAML file and the environment.
// An empty path searches the standard locations; a missing file is not an
// error. Environment variables override file values, and defaults fill the
// rest.
func Load(path string) (*Config, error) {
	cfg := *Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Process after the file so set env vars win; unset ones leave the
	// seeded values alone
	if err := envconfig.Process("SIM", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// findConfigFile returns the first config file found in the standard
// locations, or an empty string when none exists.
func findConfigFile() string {
	locations := []string{
		"simcli.yaml",
		"configs/simcli.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// resolvePaths makes the directory settings absolute so the tools behave
// the same regardless of working directory.
func (c *Config) resolvePaths() error {
	root, err := filepath.Abs(c.Store.RootDir)
	if err != nil {
		return fmt.Errorf("resolve store root: %w", err)
	}
	c.Store.RootDir = root

	out, err := filepath.Abs(c.Export.OutputDir)
	if err != nil {
		return fmt.Errorf("resolve export dir: %w", err)
	}
	c.Export.OutputDir = out

	return nil
}

// validate checks ranges and normalizes the free-form settings
func (c *Config) validate() error {
	if c.Store.MaxConcurrentLoads <= 0 {
		return fmt.Errorf("store max_concurrent_loads must be positive, got %d", c.Store.MaxConcurrentLoads)
	}

	if c.Query.CacheTTL < 0 {
		return fmt.Errorf("query cache_ttl must not be negative")
	}
	if c.Query.CacheMaxEntries < 0 {
		return fmt.Errorf("query cache_max_entries must not be negative")
	}

	switch c.Export.Format {
	case "csv", "xlsx", "json":
	default:
		return fmt.Errorf("unsupported export format %q (csv, xlsx or json)", c.Export.Format)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "console" && c.Logging.Output != "file" && c.Logging.Output != "both" {
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/simcli.log"
	}

	for i, e := range c.Expressions {
		if e.Name == "" {
			return fmt.Errorf("expression %d has no name", i)
		}
		if e.Expression == "" {
			return fmt.Errorf("expression %s has no expression string", e.Name)
		}
		if len(e.VariableVectorMap) == 0 {
			return fmt.Errorf("expression %s maps no variables", e.Name)
		}
	}

	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			RootDir:            DefaultStoreRoot,
			MaxConcurrentLoads: DefaultConcurrentLoad,
		},
		Query: QueryConfig{
			CacheTTL:        DefaultCacheTTL,
			CacheMaxEntries: DefaultCacheMaxEntries,
		},
		Export: ExportConfig{
			OutputDir: DefaultExportDir,
			Format:    DefaultExportFormat,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/simcli.log",
		},
		Diagnostics: DiagnosticsConfig{
			ShutdownTimeout: DefaultShutdownTimeout,
		},
	}
}
