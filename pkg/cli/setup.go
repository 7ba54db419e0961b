package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/getmockd/collmock/pkg/config"
	"github.com/getmockd/collmock/pkg/dataset"
	"github.com/getmockd/collmock/pkg/generator"
	"github.com/getmockd/collmock/pkg/logging"
	"github.com/getmockd/collmock/pkg/metrics"
)

// loadConfig reads the config file, if any, and applies flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := config.FindPath(configPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, &exitError{code: 2, err: err}
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	override("collections", &cfg.CollectionsDir, collectionsDir)
	override("data-dir", &cfg.DataDir, dataDir)
	override("endpoints-dir", &cfg.EndpointsDir, endpointsDir)
	override("mount", &cfg.MountPrefix, mountPrefix)
	override("log-level", &cfg.Log.Level, logLevel)
	override("log-format", &cfg.Log.Format, logFormat)

	if err := cfg.Validate(); err != nil {
		return nil, &exitError{code: 2, err: fmt.Errorf("invalid configuration: %w", err)}
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
}

func newGenerator(cfg *config.Config, store *dataset.Store, m *metrics.Metrics, log *slog.Logger) *generator.Generator {
	return &generator.Generator{
		CollectionsDir: cfg.CollectionsDir,
		Pattern:        cfg.Pattern,
		Materializer: &dataset.Materializer{
			DataDir:      cfg.DataDir,
			EndpointsDir: cfg.EndpointsDir,
			MountPrefix:  cfg.MountPrefix,
			Logger:       log,
		},
		Store:   store,
		Metrics: m,
		Logger:  log,
	}
}
