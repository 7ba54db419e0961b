package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/collmock/pkg/config"
	"github.com/getmockd/collmock/pkg/dataset"
	"github.com/getmockd/collmock/pkg/metrics"
	"github.com/getmockd/collmock/pkg/resolver"
	"github.com/getmockd/collmock/pkg/server"
	"github.com/getmockd/collmock/pkg/watch"
)

var (
	serveOptions   = server.DefaultOptions()
	serveWatch     bool
	serveFromDisk  bool
	servePoll      time.Duration
	serveCacheSize int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Generate endpoints and serve the mock API",
	Long: `Runs a rebuild pass, then serves recorded responses under the mount prefix.

With --watch, every change in the collections directory triggers a full
rebuild. Kernel notifications are used unless --poll-interval is set. SIGHUP
triggers a rebuild at any time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if !flags.Changed("listen") {
			serveOptions.ListenAddress = cfg.Listen
		}
		if flags.Changed("watch") {
			cfg.Watch = serveWatch
		}
		if flags.Changed("from-disk") {
			cfg.FromDisk = serveFromDisk
		}
		if flags.Changed("poll-interval") {
			cfg.PollInterval = servePoll
		}
		if cfg.PollInterval < 0 {
			return &exitError{code: 2, err: fmt.Errorf("poll interval must not be negative")}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cmd, cfg)
	},
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	log := newLogger(cmd, cfg)
	m := metrics.New()
	store := dataset.NewStore()
	gen := newGenerator(cfg, store, m, log)

	var source resolver.Source = store
	var disk *dataset.DiskSource
	if cfg.FromDisk {
		var err error
		disk, err = dataset.NewDiskSource(cfg.DataDir, serveCacheSize)
		if err != nil {
			return err
		}
		disk.Logger = log
		source = disk
	}
	res := resolver.New(source, cfg.MountPrefix, resolver.WithMetrics(m), resolver.WithLogger(log))

	var coord *watch.Coordinator
	srv := server.New(serveOptions, res,
		server.WithMetrics(m),
		server.WithLogger(log),
		server.WithState(func() string { return coord.State().String() }))

	opts := []watch.Option{watch.WithMetrics(m), watch.WithLogger(log)}
	if cfg.Watch {
		if err := os.MkdirAll(cfg.CollectionsDir, 0o755); err != nil {
			return fmt.Errorf("collections directory: %w", err)
		}
		opts = append(opts, watch.WithEvents(eventSource(cfg, log)))
	}
	coord = watch.NewCoordinator(func(ctx context.Context) error {
		result, err := gen.Rebuild(ctx)
		if err != nil {
			return err
		}
		if disk != nil {
			disk.Purge()
		}
		srv.Update(result.Snapshot)
		return nil
	}, opts...)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return coord.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				log.Info("rebuild requested by signal")
				coord.Trigger()
			}
		}
	})
	return g.Wait()
}

func eventSource(cfg *config.Config, log *slog.Logger) watch.EventSource {
	if cfg.PollInterval > 0 {
		return watch.NewPoller(cfg.CollectionsDir, cfg.PollInterval, log)
	}
	return watch.NewFSNotify(cfg.CollectionsDir, log)
}

func init() {
	f := serveCmd.Flags()
	serveOptions.AddFlags(f)
	f.BoolVar(&serveWatch, "watch", false, "Rebuild whenever the collections directory changes")
	f.BoolVar(&serveFromDisk, "from-disk", false, "Serve records from the data directory instead of memory")
	f.DurationVar(&servePoll, "poll-interval", 0, "Watch by polling at this interval instead of kernel notifications")
	f.IntVar(&serveCacheSize, "cache-size", dataset.DefaultCacheSize, "Records kept in memory with --from-disk")
	rootCmd.AddCommand(serveCmd)
}
