package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "poolscope",
		Short:        "New liquidity pool monitor with creator reputation",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pool query API",
		RunE:  runServe,
	}
	addScanFlags(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().Duration("cache-ttl", 60*time.Second, "latest pools cache TTL")
	serveCmd.Flags().String("archive-jsonl", "", "append fresh scans to this JSONL file")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN for the pool archive")
	serveCmd.Flags().Duration("archive-timeout", 15*time.Second, "deadline for one background archive write")
	root.AddCommand(serveCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one latest pools scan and append it to a JSONL file",
		RunE:  runScan,
	}
	addScanFlags(scanCmd)
	scanCmd.Flags().String("out", "./data/pools.jsonl", "output JSONL path")
	scanCmd.Flags().String("pg-dsn", "", "Postgres DSN for the pool archive")
	scanCmd.Flags().Duration("archive-timeout", 15*time.Second, "deadline for one archive write")
	root.AddCommand(scanCmd)

	creatorCmd := &cobra.Command{
		Use:   "creator <address>",
		Short: "Print every pool a creator deployed in the creator scan window",
		Args:  cobra.ExactArgs(1),
		RunE:  runCreator,
	}
	addScanFlags(creatorCmd)
	root.AddCommand(creatorCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("rpc", nil, "RPC URLs in fallback order (comma-separated)")
	cmd.Flags().String("factory", "0x420DD381b31aEf6683db6B902084cB0FFECe40Da", "pool factory address")
	cmd.Flags().Uint64("chunk-size", 10_000, "blocks per log query")
	cmd.Flags().StringSlice("split-tiers", []string{"2000", "500"}, "sub-chunk sizes tried after a failed query")
	cmd.Flags().Int("chunk-retries", 1, "retries per query before splitting")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Uint64("scan-depth", 100_000, "blocks scanned for latest pools")
	cmd.Flags().Uint64("creator-scan-depth", 200_000, "blocks scanned for creator history")
	cmd.Flags().Int("pool-limit", 15, "most recent pools to enrich")
	cmd.Flags().Int("enrich-concurrency", 8, "concurrent enrichment lookups")
	cmd.Flags().String("reputation-url", "https://api.ethos.network/api/v2", "reputation service base URL")
	cmd.Flags().String("reputation-client-header", "X-Ethos-Client", "client identification header")
	cmd.Flags().String("reputation-client-id", "poolscope", "client identification value")
	cmd.Flags().Duration("reputation-timeout", 5*time.Second, "reputation lookup timeout")
	cmd.Flags().Int("reputation-retries", 1, "retries for transient reputation failures")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
