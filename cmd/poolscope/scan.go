package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/config"
	"poolScope/internal/storage"
)

func runScan(cmd *cobra.Command, _ []string) error {
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

	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, storage.Multi{storage.NewJsonlStorage(cfg.Out)}, logger)
	if err != nil {
		return err
	}
	defer a.close()

	resp := a.service.LatestPools(ctx)
	a.service.Close()
	logger.Info("scan complete",
		zap.Int("pools", len(resp.Pools)),
		zap.String("out", cfg.Out),
		zap.String("error", resp.Error),
	)
	if resp.Error != "" {
		return fmt.Errorf("scan: %s", resp.Error)
	}
	return nil
}

func runCreator(cmd *cobra.Command, args []string) error {
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

	if !common.IsHexAddress(args[0]) || !strings.HasPrefix(strings.ToLower(args[0]), "0x") {
		return fmt.Errorf("invalid creator address %q", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.close()

	summary := a.service.CreatorPools(ctx, common.HexToAddress(args[0]))
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
