package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"poolScope/internal/chain"
	"poolScope/internal/metrics"
)

// ErrNoData reports that no provider produced a usable result set.
var ErrNoData = errors.New("no provider returned matching events")

// ScanSpec describes one scan over the most recent Depth blocks.
type ScanSpec struct {
	Query Query
	Depth uint64
	// MinEvents is the smallest result set accepted from a provider.
	// Values below one are treated as one.
	MinEvents int
}

// ScanResult carries the logs and the provider that produced them. Every
// follow-up read for these logs must go through Provider.
type ScanResult struct {
	Provider chain.Provider
	Logs     []types.Log
	Window   BlockRange
	Stats    FetchStats
}

// Selector tries providers strictly in order and keeps the first one that
// returns data.
type Selector struct {
	providers []chain.Provider
	fetcher   *RangeFetcher
	logger    *zap.Logger
}

func NewSelector(providers []chain.Provider, fetcher *RangeFetcher, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{providers: providers, fetcher: fetcher, logger: logger}
}

// Scan returns ErrNoData when every provider errors on the head query or
// yields fewer than MinEvents logs. Only context errors are returned otherwise.
func (s *Selector) Scan(ctx context.Context, spec ScanSpec) (ScanResult, error) {
	if s.fetcher == nil {
		return ScanResult{}, fmt.Errorf("range fetcher is nil")
	}
	minEvents := spec.MinEvents
	if minEvents < 1 {
		minEvents = 1
	}

	for _, p := range s.providers {
		if err := ctx.Err(); err != nil {
			return ScanResult{}, err
		}

		head, err := p.LatestBlockNumber(ctx)
		if err != nil {
			metrics.ObserveProviderScan(p.Name(), "error")
			s.logger.Warn("provider head query failed, trying next", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}

		window, ok := Window(head, spec.Depth)
		if !ok {
			metrics.ObserveProviderScan(p.Name(), "empty")
			s.logger.Warn("provider has no blocks to scan", zap.String("provider", p.Name()), zap.Uint64("head", head))
			continue
		}

		logs, stats, err := s.fetcher.Fetch(ctx, p, spec.Query, window.From, window.To)
		if err != nil {
			if ctx.Err() != nil {
				return ScanResult{}, err
			}
			metrics.ObserveProviderScan(p.Name(), "error")
			s.logger.Warn("provider scan failed, trying next", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}

		if len(logs) < minEvents {
			metrics.ObserveProviderScan(p.Name(), "empty")
			s.logger.Info("provider returned no events, trying next",
				zap.String("provider", p.Name()),
				zap.Uint64("from", window.From),
				zap.Uint64("to", window.To),
				zap.Int("skipped_ranges", len(stats.Skipped)),
			)
			continue
		}

		metrics.ObserveProviderScan(p.Name(), "selected")
		s.logger.Info("provider selected",
			zap.String("provider", p.Name()),
			zap.Int("events", len(logs)),
			zap.Uint64("from", window.From),
			zap.Uint64("to", window.To),
			zap.Int("queries", stats.Queries),
			zap.Int("splits", stats.Splits),
			zap.Int("skipped_ranges", len(stats.Skipped)),
		)
		return ScanResult{Provider: p, Logs: logs, Window: window, Stats: stats}, nil
	}

	return ScanResult{}, ErrNoData
}
