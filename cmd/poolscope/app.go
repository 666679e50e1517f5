package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolScope/internal/cache"
	"poolScope/internal/chain"
	"poolScope/internal/config"
	"poolScope/internal/dex"
	"poolScope/internal/enrich"
	"poolScope/internal/indexer"
	"poolScope/internal/reputation"
	"poolScope/internal/service"
	"poolScope/internal/storage"
	"poolScope/internal/storage/postgres"
)

// app owns every long-lived component built from the configuration.
type app struct {
	service *service.Service
	clients []*chain.Client
	symbols *dex.SymbolCache
	store   *postgres.Store
}

func buildApp(ctx context.Context, cfg config.Config, sinks storage.Multi, logger *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clients, err := chain.Dial(ctx, cfg.RPCURLs, logger)
	if err != nil {
		return nil, err
	}
	providers := make([]chain.Provider, 0, len(clients))
	for _, c := range clients {
		providers = append(providers, c)
	}

	a := &app{clients: clients}

	symbols, err := dex.NewSymbolCache(0)
	if err != nil {
		a.close()
		return nil, err
	}
	a.symbols = symbols

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.store = store
		if err := store.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, err
		}
		sinks = append(sinks, store)
	}

	fetcher := indexer.NewRangeFetcher(indexer.FetchConfig{
		ChunkSize:    cfg.ChunkSize,
		SplitTiers:   cfg.SplitTiers,
		MaxRetries:   cfg.ChunkRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	selector := indexer.NewSelector(providers, fetcher, logger)

	rep := reputation.NewClient(reputation.Config{
		BaseURL:      cfg.ReputationURL,
		ClientHeader: cfg.ReputationClientHeader,
		ClientID:     cfg.ReputationClientID,
		Timeout:      cfg.ReputationTimeout,
		Retries:      cfg.ReputationRetries,
	}, logger)
	pipeline := enrich.New(enrich.Config{
		Limit:       cfg.PoolLimit,
		Concurrency: cfg.EnrichConcurrency,
	}, rep, symbols, logger)

	var sink storage.Sink
	if len(sinks) > 0 {
		sink = sinks
	}

	svc, err := service.New(service.Config{
		Factory:          common.HexToAddress(cfg.Factory),
		ScanDepth:        cfg.ScanDepth,
		CreatorScanDepth: cfg.CreatorScanDepth,
		ArchiveTimeout:   cfg.ArchiveTimeout,
	}, selector, pipeline, cache.NewResultCache(cfg.CacheTTL), sink, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.service = svc
	return a, nil
}

func (a *app) close() {
	if a.service != nil {
		a.service.Close()
	}
	for _, c := range a.clients {
		c.Close()
	}
	a.symbols.Close()
	if a.store != nil {
		a.store.Close()
	}
}
