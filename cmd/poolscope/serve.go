package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/api"
	"poolScope/internal/config"
	"poolScope/internal/storage"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks storage.Multi
	if cfg.ArchiveJSONL != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.ArchiveJSONL))
	}

	a, err := buildApp(ctx, cfg, sinks, logger)
	if err != nil {
		return err
	}
	defer a.close()

	logger.Info("poolscope serve start",
		zap.Int("providers", len(a.clients)),
		zap.String("factory", cfg.Factory),
		zap.Uint64("scan_depth", cfg.ScanDepth),
		zap.Uint64("chunk_size", cfg.ChunkSize),
		zap.Uint64s("split_tiers", cfg.SplitTiers),
		zap.Int("pool_limit", cfg.PoolLimit),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Bool("archive_pg", cfg.PGDSN != ""),
		zap.String("archive_jsonl", cfg.ArchiveJSONL),
	)

	return api.NewServer(a.service, logger, cfg.Listen).Run(ctx)
}
