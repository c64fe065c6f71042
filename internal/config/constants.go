package config

import "time"

// Application constants shared across the simulation vector tools
const (
	// Application Info
	AppName    = "simcli"
	AppVersion = "1.2.0"

	// Ensemble Store
	DefaultStoreRoot      = "ensembles"
	DefaultConcurrentLoad = 8
	RealizationFilePrefix = "real-"
	RealizationFileSuffix = ".arrow"

	// Query Settings
	DefaultCacheTTL        = 15 * time.Minute
	DefaultCacheMaxEntries = 128

	// Export Settings
	DefaultExportDir    = "exports"
	DefaultExportFormat = "csv"

	// Diagnostics
	DefaultShutdownTimeout = 10 * time.Second
)
