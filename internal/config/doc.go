// Package config provides centralized configuration management for StatTwin.
// It handles loading configuration from multiple sources, validation, and
// provides a type-safe API for accessing configuration values throughout the
// application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// The file is read from STATTWIN_CONFIG when set, otherwise from config.yaml
// or configs/config.yaml.
//
// # Environment Variables
//
// All environment variables follow the pattern STATTWIN_<SECTION>_<FIELD>:
//
//	STATTWIN_SERVER_PORT=8080
//	STATTWIN_LOGGING_LEVEL=debug
//	STATTWIN_DATA_SOURCE=players_2023.csv
//	STATTWIN_PIPELINE_SCALE=robust
//	STATTWIN_RANKING_TOP_K=20
//
// # Sections
//
// Pipeline maps onto preprocess.Config through PipelineConfig.Preprocess and
// Ranking supplies the defaults of similarity queries through
// RankingConfig.Query.
//
// # Path Management
//
// PathsConfig.Resolve turns the configured directories into absolute Paths:
//
//	paths, err := cfg.Paths.Resolve()
//	source := paths.GetDataPath(cfg.Data.Source)
//	report := paths.GetReportPath("similar.csv")
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For testing, use config.Default() to create a configuration that does not
// require environment variables or files.
package config
