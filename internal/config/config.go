package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURLs           []string
	Factory           string
	ChunkSize         uint64
	SplitTiers        []uint64
	ChunkRetries      int
	RetryBackoff      time.Duration
	ScanDepth         uint64
	CreatorScanDepth  uint64
	PoolLimit         int
	CacheTTL          time.Duration
	EnrichConcurrency int

	ReputationURL          string
	ReputationClientHeader string
	ReputationClientID     string
	ReputationTimeout      time.Duration
	ReputationRetries      int

	Listen       string
	ArchiveJSONL   string
	PGDSN          string
	ArchiveTimeout time.Duration
	Out            string
	LogLevel       string
}

const (
	DefaultFactory = "0x420DD381b31aEf6683db6B902084cB0FFECe40Da"
	DefaultListen  = ":8080"
)

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("factory", DefaultFactory)
	v.SetDefault("chunk-size", uint64(10_000))
	v.SetDefault("split-tiers", "2000,500")
	v.SetDefault("chunk-retries", 1)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("scan-depth", uint64(100_000))
	v.SetDefault("creator-scan-depth", uint64(200_000))
	v.SetDefault("pool-limit", 15)
	v.SetDefault("cache-ttl", 60*time.Second)
	v.SetDefault("enrich-concurrency", 8)
	v.SetDefault("reputation-url", "https://api.ethos.network/api/v2")
	v.SetDefault("reputation-client-header", "X-Ethos-Client")
	v.SetDefault("reputation-client-id", "poolscope")
	v.SetDefault("reputation-timeout", 5*time.Second)
	v.SetDefault("reputation-retries", 1)
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("archive-timeout", 15*time.Second)
	v.SetDefault("out", "./data/pools.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	tiers, err := parseTiers(getStringSlice(v, "split-tiers"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURLs:           getStringSlice(v, "rpc"),
		Factory:           v.GetString("factory"),
		ChunkSize:         v.GetUint64("chunk-size"),
		SplitTiers:        tiers,
		ChunkRetries:      v.GetInt("chunk-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		ScanDepth:         v.GetUint64("scan-depth"),
		CreatorScanDepth:  v.GetUint64("creator-scan-depth"),
		PoolLimit:         v.GetInt("pool-limit"),
		CacheTTL:          v.GetDuration("cache-ttl"),
		EnrichConcurrency: v.GetInt("enrich-concurrency"),

		ReputationURL:          v.GetString("reputation-url"),
		ReputationClientHeader: v.GetString("reputation-client-header"),
		ReputationClientID:     v.GetString("reputation-client-id"),
		ReputationTimeout:      v.GetDuration("reputation-timeout"),
		ReputationRetries:      v.GetInt("reputation-retries"),

		Listen:         v.GetString("listen"),
		ArchiveJSONL:   v.GetString("archive-jsonl"),
		PGDSN:          v.GetString("pg-dsn"),
		ArchiveTimeout: v.GetDuration("archive-timeout"),
		Out:            v.GetString("out"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate reports the first setting that cannot drive a scan.
func (c Config) Validate() error {
	if len(c.RPCURLs) == 0 {
		return fmt.Errorf("at least one rpc url is required")
	}
	if !common.IsHexAddress(c.Factory) {
		return fmt.Errorf("invalid factory address %q", c.Factory)
	}
	if c.ChunkSize == 0 {
		return fmt.Errorf("chunk-size must be positive")
	}
	if c.ScanDepth == 0 || c.CreatorScanDepth == 0 {
		return fmt.Errorf("scan depths must be positive")
	}
	prev := c.ChunkSize
	for _, tier := range c.SplitTiers {
		if tier == 0 || tier >= prev {
			return fmt.Errorf("split-tiers must strictly decrease below chunk-size, got %v", c.SplitTiers)
		}
		prev = tier
	}
	if c.ChunkRetries < 0 || c.ReputationRetries < 0 {
		return fmt.Errorf("retry counts must not be negative")
	}
	if c.PoolLimit <= 0 {
		return fmt.Errorf("pool-limit must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache-ttl must be positive")
	}
	if c.ReputationTimeout <= 0 {
		return fmt.Errorf("reputation-timeout must be positive")
	}
	return nil
}

func parseTiers(items []string) ([]uint64, error) {
	tiers := make([]uint64, 0, len(items))
	for _, item := range items {
		n, err := strconv.ParseUint(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid split tier %q: %w", item, err)
		}
		tiers = append(tiers, n)
	}
	return tiers, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
