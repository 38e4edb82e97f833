// pulsewatchd runs the retention sweep daemon over a pulsewatch
// probe-result database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/archive"
	"github.com/pulsewatch/pulsewatch/internal/config"
	"github.com/pulsewatch/pulsewatch/internal/logging"
	"github.com/pulsewatch/pulsewatch/internal/retention"
	"github.com/pulsewatch/pulsewatch/internal/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	dbPath := flag.String("db", "", "database path (overrides config)")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.DefaultConfig()
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logging.InitWithFile(parseLevel(cfg.Logging.Level), cfg.Logging.JSON, logging.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		MaxBackups: cfg.Logging.FileMaxBackups,
		MaxAgeDays: cfg.Logging.FileMaxAgeDays,
	})
	log := logging.Component("main")
	log.Info("pulsewatchd starting", "version", Version, "db", cfg.Database.Path)

	st, err := store.New(store.Config{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		QueryTimeout: cfg.Database.QueryTimeout.Duration(),
	})
	if err != nil {
		log.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.InitSchema(ctx); err != nil {
		log.Error("init schema", "error", err)
		os.Exit(1)
	}

	var archiver retention.Archiver
	if cfg.Features.Archive.Enabled {
		w, err := archive.NewWriter(archive.Options{
			Dir:         cfg.Features.Archive.Dir,
			Compression: archive.ParseCompressionType(cfg.Features.Archive.Compression),
		})
		if err != nil {
			log.Error("create archive writer", "error", err)
			os.Exit(1)
		}
		archiver = w
	}

	tiering := retention.NewTieringEngine(st, retention.TieringOptions{
		DeleteBatchSize:  cfg.Sweep.DeleteBatchSize,
		DeleteRatePerSec: cfg.Sweep.DeleteRatePerSec,
	})
	enforcer := retention.NewEnforcer(st, st, archiver)
	sweeper := retention.NewSweeper(st, tiering, enforcer, retention.SweeperOptions{
		Workers:          cfg.Sweep.Workers,
		MaxRowsPerTarget: cfg.Sweep.MaxRowsPerTarget,
	})

	if *once {
		if err := runSweep(ctx, sweeper, log); err != nil {
			os.Exit(1)
		}
		return
	}

	log.Info("sweep scheduled", "interval", cfg.Sweep.Interval.Duration())
	ticker := time.NewTicker(cfg.Sweep.Interval.Duration())
	defer ticker.Stop()

	// First sweep runs immediately, then on the interval.
	runSweep(ctx, sweeper, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			runSweep(ctx, sweeper, log)
		}
	}
}

func runSweep(ctx context.Context, sweeper *retention.Sweeper, log *slog.Logger) error {
	start := time.Now()
	summary, err := sweeper.RunSweep(ctx)
	if err != nil {
		log.Error("sweep failed", "error", err)
		return err
	}

	log.Info("sweep complete",
		"scanned", summary.TotalScanned,
		"deleted", summary.TotalDeleted,
		"failed_targets", len(summary.PerTargetErrors),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
