package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/VaishakhVipin/stattwin/internal/preprocess"
	"github.com/VaishakhVipin/stattwin/internal/similarity"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Ranking   RankingConfig   `yaml:"ranking" envconfig:"RANKING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing  bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics  bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	CacheDir   string `yaml:"cache_dir" envconfig:"CACHE_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// DataConfig names the player table the server ranks over.
type DataConfig struct {
	// Source is a CSV, JSON or XLSX file, relative to the data directory.
	Source      string        `yaml:"source" envconfig:"SOURCE"`
	Sheet       string        `yaml:"sheet" envconfig:"SHEET"`
	LeaguesFile string        `yaml:"leagues_file" envconfig:"LEAGUES_FILE"`
	CacheMaxAge time.Duration `yaml:"cache_max_age" envconfig:"CACHE_MAX_AGE"`
}

// PipelineConfig maps onto preprocess.Config. Ratio and composite feature
// definitions are only read from the configuration file.
type PipelineConfig struct {
	IDColumns        []string `yaml:"id_columns" envconfig:"ID_COLUMNS"`
	NumericColumns   []string `yaml:"numeric_columns" envconfig:"NUMERIC_COLUMNS"`
	ExposureColumn   string   `yaml:"exposure_column" envconfig:"EXPOSURE_COLUMN" validate:"required"`
	Per90Columns     []string `yaml:"per90_columns" envconfig:"PER90_COLUMNS"`
	Outlier          string   `yaml:"outlier" envconfig:"OUTLIER" validate:"oneof=iqr winsorize none"`
	WinsorLower      float64  `yaml:"winsor_lower" envconfig:"WINSOR_LOWER" validate:"gte=0,lte=1"`
	WinsorUpper      float64  `yaml:"winsor_upper" envconfig:"WINSOR_UPPER" validate:"gte=0,lte=1"`
	NumericStrategy  string   `yaml:"numeric_strategy" envconfig:"NUMERIC_STRATEGY" validate:"oneof=median mean zero"`
	TextStrategy     string   `yaml:"text_strategy" envconfig:"TEXT_STRATEGY" validate:"oneof=mode drop keep"`
	DropRowThreshold float64  `yaml:"drop_row_threshold" envconfig:"DROP_ROW_THRESHOLD" validate:"gte=0,lte=1"`
	DisableRowDrop   bool     `yaml:"disable_row_drop" envconfig:"DISABLE_ROW_DROP"`
	Scale            string   `yaml:"scale" envconfig:"SCALE" validate:"oneof=standard robust"`
	ScaleColumns     []string `yaml:"scale_columns" envconfig:"SCALE_COLUMNS"`
	PercentColumns   []string `yaml:"percent_columns" envconfig:"PERCENT_COLUMNS"`

	Ratios     []preprocess.RatioSpec     `yaml:"ratios" ignored:"true"`
	Composites []preprocess.CompositeSpec `yaml:"composites" ignored:"true"`
}

// Preprocess converts the section into a preprocessing configuration.
func (p PipelineConfig) Preprocess() preprocess.Config {
	cfg := preprocess.Config{
		IDColumns:       append([]string(nil), p.IDColumns...),
		NumericColumns:  append([]string(nil), p.NumericColumns...),
		ExposureColumn:  p.ExposureColumn,
		Per90Columns:    append([]string(nil), p.Per90Columns...),
		Ratios:          append([]preprocess.RatioSpec(nil), p.Ratios...),
		Composites:      append([]preprocess.CompositeSpec(nil), p.Composites...),
		Outlier:         preprocess.OutlierMethod(p.Outlier),
		WinsorLower:     p.WinsorLower,
		WinsorUpper:     p.WinsorUpper,
		NumericStrategy: preprocess.NumericStrategy(p.NumericStrategy),
		TextStrategy:    preprocess.TextStrategy(p.TextStrategy),
		Scale:           preprocess.ScaleMethod(p.Scale),
		ScaleColumns:    append([]string(nil), p.ScaleColumns...),
		PercentColumns:  append([]string(nil), p.PercentColumns...),
	}
	if !p.DisableRowDrop {
		threshold := p.DropRowThreshold
		cfg.DropRowThreshold = &threshold
	}
	return cfg
}

// RankingConfig holds the defaults applied to similarity queries.
type RankingConfig struct {
	Metric         string   `yaml:"metric" envconfig:"METRIC" validate:"oneof=cosine euclidean"`
	TopK           int      `yaml:"top_k" envconfig:"TOP_K" validate:"gt=0"`
	MaxTopK        int      `yaml:"max_top_k" envconfig:"MAX_TOP_K" validate:"gtefield=TopK"`
	IDColumn       string   `yaml:"id_column" envconfig:"ID_COLUMN" validate:"required"`
	PositionColumn string   `yaml:"position_column" envconfig:"POSITION_COLUMN" validate:"required"`
	Workers        int      `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
	ReturnColumns  []string `yaml:"return_columns" envconfig:"RETURN_COLUMNS"`
}

// Query returns a query carrying the ranking defaults.
func (r RankingConfig) Query() similarity.Query {
	return similarity.Query{
		IDColumn:       r.IDColumn,
		PositionColumn: r.PositionColumn,
		Metric:         similarity.Metric(r.Metric),
		TopK:           r.TopK,
		ReturnColumns:  append([]string(nil), r.ReturnColumns...),
	}
}

// Load loads configuration from defaults, then the config file if one is
// found, then environment variables, and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Environment variables override the file
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with a single YAML file, without reading
// the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.Pipeline.Preprocess().Validate(); err != nil {
		return err
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file path required for output %q", c.Logging.Output)
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	pre := preprocess.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: DefaultShutdownTimeout,
			RequestTimeout:  DefaultRequestTimeout,
			AllowedOrigins:  []string{"http://localhost:8080"},
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     DefaultRateLimit,
			Burst:   DefaultBurstSize,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Output:      "console",
			FilePath:    "logs/stattwin.log",
			Development: false,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			EnableTracing:  false,
			EnableMetrics:  true,
			TraceExporter:  "stdout",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ReportsDir: DefaultReportsDir,
			CacheDir:   DefaultCacheDir,
			LogsDir:    DefaultLogsDir,
		},
		Data: DataConfig{
			Source:      "players.csv",
			CacheMaxAge: DataCacheDuration,
		},
		Pipeline: PipelineConfig{
			IDColumns:        pre.IDColumns,
			ExposureColumn:   pre.ExposureColumn,
			Outlier:          string(pre.Outlier),
			WinsorLower:      pre.WinsorLower,
			WinsorUpper:      pre.WinsorUpper,
			NumericStrategy:  string(pre.NumericStrategy),
			TextStrategy:     string(pre.TextStrategy),
			DropRowThreshold: *pre.DropRowThreshold,
			Scale:            string(pre.Scale),
			PercentColumns:   pre.PercentColumns,
			Ratios:           pre.Ratios,
			Composites:       pre.Composites,
		},
		Ranking: RankingConfig{
			Metric:         string(similarity.Cosine),
			TopK:           similarity.DefaultTopK,
			MaxTopK:        100,
			IDColumn:       similarity.DefaultIDColumn,
			PositionColumn: similarity.DefaultPositionColumn,
			Workers:        4,
			ReturnColumns:  append([]string(nil), similarity.DefaultReturnColumns...),
		},
	}
}
