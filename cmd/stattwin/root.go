package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/VaishakhVipin/stattwin/internal/config"
	"github.com/VaishakhVipin/stattwin/internal/dataset"
	"github.com/VaishakhVipin/stattwin/internal/infrastructure"
	"github.com/VaishakhVipin/stattwin/internal/league"
	customMiddleware "github.com/VaishakhVipin/stattwin/internal/middleware"
	"github.com/VaishakhVipin/stattwin/internal/preprocess"
	"github.com/VaishakhVipin/stattwin/internal/services"
	"github.com/VaishakhVipin/stattwin/pkg/contracts"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	input      string
	sheet      string
	logLevel   string
}

// cli carries the dependencies built once per invocation.
type cli struct {
	opts      rootOptions
	cfg       *config.Config
	paths     *config.Paths
	logger    *slog.Logger
	validator *customMiddleware.Validator
	registry  *league.Registry
	service   *services.SimilarityService
	writer    *dataset.Writer
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:     "stattwin",
		Short:   "Find statistically similar football players",
		Long:    "stattwin cleans a player statistics table, derives per-90 and ratio\nfeatures, scales them and ranks players by cosine or euclidean similarity.",
		Version: contracts.GetFullVersionString(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&c.opts.configPath, "config", "c", "", "config file path (default: STATTWIN_CONFIG or ./config.yaml)")
	pf.StringVarP(&c.opts.input, "input", "i", "", "player table (CSV, JSON or XLSX); defaults to data.source")
	pf.StringVar(&c.opts.sheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	pf.StringVar(&c.opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSimilarCommand(c),
		newRankAllCommand(c),
		newFilterCommand(c),
		newReportCommand(c),
		newLeaguesCommand(c),
	)
	return cmd
}

// init loads configuration and builds the logger, registry and service.
func (c *cli) init(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if c.opts.configPath != "" {
		cfg, err = config.LoadFile(c.opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	if c.opts.logLevel != "" {
		cfg.Logging.Level = c.opts.logLevel
	}
	// Logs never share stdout with results
	cfg.Logging.Output = "console"

	logger, err := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	paths, err := cfg.Paths.Resolve()
	if err != nil {
		return err
	}

	registry := league.Default()
	if cfg.Data.LeaguesFile != "" {
		if _, err := registry.LoadFile(paths.GetDataPath(cfg.Data.LeaguesFile)); err != nil {
			return fmt.Errorf("league catalogue: %w", err)
		}
	}

	pipeline, err := preprocess.NewPipeline(cfg.Pipeline.Preprocess(), logger)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.paths = paths
	c.logger = logger
	c.validator = customMiddleware.NewValidator(logger, 0)
	c.registry = registry
	c.service = services.NewSimilarityService(pipeline, registry, cfg.Ranking, logger)
	c.writer = dataset.NewWriter(logger)
	return nil
}

// load reads and preprocesses the input table.
func (c *cli) load(ctx context.Context) (*services.Dataset, error) {
	path := c.opts.input
	sheet := c.opts.sheet
	if path == "" {
		path = c.paths.GetDataPath(c.cfg.Data.Source)
	}
	if sheet == "" {
		sheet = c.cfg.Data.Sheet
	}
	return c.service.LoadFile(ctx, path, sheet)
}
