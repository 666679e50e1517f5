package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"poolScope/internal/chain"
	"poolScope/internal/metrics"
)

// FetchConfig controls chunking of log range queries.
type FetchConfig struct {
	ChunkSize uint64
	// SplitTiers are the strictly decreasing chunk sizes a failed range is
	// subdivided into, one tier per level of subdivision.
	SplitTiers   []uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Query selects the logs of one event emitted by one contract.
type Query struct {
	Address common.Address
	Topic0  common.Hash
}

// FetchStats summarizes how a range was covered.
type FetchStats struct {
	Queries int
	Splits  int
	Skipped []BlockRange
}

// RangeFetcher collects logs over a block range in chunks, subdividing
// chunks the provider rejects.
type RangeFetcher struct {
	cfg    FetchConfig
	logger *zap.Logger
}

func NewRangeFetcher(cfg FetchConfig, logger *zap.Logger) *RangeFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RangeFetcher{cfg: cfg, logger: logger}
}

// Fetch returns every matching log in [from, to]. A sub-range that still
// fails after the last split tier is skipped and reported in FetchStats;
// only context cancellation and invalid input are returned as errors.
func (f *RangeFetcher) Fetch(ctx context.Context, p chain.Provider, q Query, from, to uint64) ([]types.Log, FetchStats, error) {
	var stats FetchStats
	if p == nil {
		return nil, stats, fmt.Errorf("provider is nil")
	}
	if from < chain.MinBlock {
		from = chain.MinBlock
	}

	chunks, err := SplitRangeBackward(from, to, f.cfg.ChunkSize)
	if err != nil {
		return nil, stats, err
	}

	logs := make([]types.Log, 0)
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		if err := f.fetchRange(ctx, p, q, chunk, 0, &logs, &stats); err != nil {
			return nil, stats, err
		}
	}

	return dedupeLogs(logs), stats, nil
}

func (f *RangeFetcher) fetchRange(
	ctx context.Context,
	p chain.Provider,
	q Query,
	r BlockRange,
	tier int,
	out *[]types.Log,
	stats *FetchStats,
) error {
	stats.Queries++
	logs, err := f.filterLogsWithRetry(ctx, p, q, r)
	if err == nil {
		metrics.ObserveChunk(p.Name(), "ok")
		*out = append(*out, inRange(logs, r)...)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	tiers := f.cfg.SplitTiers
	for tier < len(tiers) && tiers[tier] >= r.Len() {
		tier++
	}
	if tier >= len(tiers) {
		metrics.ObserveChunk(p.Name(), "skipped")
		stats.Skipped = append(stats.Skipped, r)
		f.logger.Warn("range skipped after last split tier",
			zap.String("provider", p.Name()),
			zap.Uint64("from", r.From),
			zap.Uint64("to", r.To),
			zap.Error(err),
		)
		return nil
	}

	subs, splitErr := SplitRangeBackward(r.From, r.To, tiers[tier])
	if splitErr != nil {
		return splitErr
	}
	metrics.ObserveChunk(p.Name(), "split")
	stats.Splits++
	f.logger.Debug("split range",
		zap.String("provider", p.Name()),
		zap.Uint64("from", r.From),
		zap.Uint64("to", r.To),
		zap.Uint64("chunk_size", tiers[tier]),
		zap.Error(err),
	)

	for _, sub := range subs {
		if err := f.fetchRange(ctx, p, q, sub, tier+1, out, stats); err != nil {
			return err
		}
	}
	return nil
}

func (f *RangeFetcher) filterLogsWithRetry(ctx context.Context, p chain.Provider, q Query, r BlockRange) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, f.cfg.MaxRetries, f.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = p.FilterLogs(ctx, r.From, r.To, []common.Address{q.Address}, []common.Hash{q.Topic0})
		if err != nil {
			f.logger.Debug("filter logs failed", zap.String("provider", p.Name()), zap.Error(err), zap.Uint64("from", r.From), zap.Uint64("to", r.To))
		}
		return err
	})
	return logs, err
}

// inRange drops removed logs and logs a misbehaving provider returned
// outside the queried range.
func inRange(logs []types.Log, r BlockRange) []types.Log {
	out := logs[:0]
	for _, l := range logs {
		if l.Removed || l.BlockNumber < r.From || l.BlockNumber > r.To {
			continue
		}
		out = append(out, l)
	}
	return out
}

func dedupeLogs(logs []types.Log) []types.Log {
	seen := make(map[string]struct{}, len(logs))
	out := make([]types.Log, 0, len(logs))
	for _, l := range logs {
		id := fmt.Sprintf("%d:%s:%d", l.BlockNumber, l.TxHash.Hex(), l.Index)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, l)
	}
	return out
}
