package config

import "time"

// Application constants
const (
	AppName    = "StatTwin"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. STATTWIN_SERVER_PORT.
	EnvPrefix = "STATTWIN"
	// ConfigFileEnv names an explicit configuration file.
	ConfigFileEnv = "STATTWIN_CONFIG"

	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 30 * time.Second

	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	DefaultDataDir    = "data"
	DefaultReportsDir = "data/reports"
	DefaultCacheDir   = "data/cache"
	DefaultLogsDir    = "logs"

	DataCacheDuration = 15 * time.Minute

	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes = 1 << 20
)
