package indexer

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"poolScope/internal/chain/chaintest"
)

func deploymentsAt(blocks ...uint64) []types.Log {
	logs := make([]types.Log, 0, len(blocks))
	for i, b := range blocks {
		logs = append(logs, chaintest.PoolCreatedLog(chaintest.Deployment{
			Token0: chaintest.Address(1000 + int64(i)),
			Token1: chaintest.Address(2000 + int64(i)),
			Pool:   chaintest.Address(3000 + int64(i)),
			Block:  b,
			TxHash: chaintest.Hash(int64(b)),
		}))
	}
	return logs
}

func blocksOf(logs []types.Log) []uint64 {
	out := make([]uint64, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.BlockNumber)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func factoryQuery() Query {
	return Query{Address: chaintest.Factory, Topic0: chaintest.PoolCreatedTopic}
}

func TestFetchCoversRangeInChunks(t *testing.T) {
	p := &chaintest.Provider{Logs: deploymentsAt(1, 30, 31, 70, 100, 101)}
	f := NewRangeFetcher(FetchConfig{ChunkSize: 30, SplitTiers: []uint64{10}}, nil)

	logs, stats, err := f.Fetch(context.Background(), p, factoryQuery(), 1, 100)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 30, 31, 70, 100}, blocksOf(logs))
	require.Empty(t, stats.Skipped)
	require.Zero(t, stats.Splits)
	require.Equal(t, []chaintest.Range{
		{From: 71, To: 100},
		{From: 41, To: 70},
		{From: 11, To: 40},
		{From: 1, To: 10},
	}, p.Queries())
}

func TestFetchSplitsFailedChunk(t *testing.T) {
	p := &chaintest.Provider{
		Logs:      deploymentsAt(40, 45, 55, 90),
		FailRange: chaintest.FailBetween(40, 60, 10),
	}
	f := NewRangeFetcher(FetchConfig{ChunkSize: 30, SplitTiers: []uint64{10, 5}}, nil)

	logs, stats, err := f.Fetch(context.Background(), p, factoryQuery(), 1, 100)
	require.NoError(t, err)
	require.Equal(t, []uint64{40, 45, 55, 90}, blocksOf(logs))
	require.Equal(t, 2, stats.Splits)
	require.Empty(t, stats.Skipped)
}

func TestFetchSkipsRangeAfterLastTier(t *testing.T) {
	p := &chaintest.Provider{
		Logs:      deploymentsAt(44, 48, 90),
		FailRange: chaintest.FailBetween(50, 50, 0),
	}
	f := NewRangeFetcher(FetchConfig{ChunkSize: 30, SplitTiers: []uint64{10, 5}}, nil)

	logs, stats, err := f.Fetch(context.Background(), p, factoryQuery(), 1, 100)
	require.NoError(t, err)
	require.Equal(t, []uint64{44, 90}, blocksOf(logs))
	require.Equal(t, []BlockRange{{From: 46, To: 50}}, stats.Skipped)
}

func TestFetchRetriesBeforeSplitting(t *testing.T) {
	calls := 0
	p := &chaintest.Provider{
		Logs: deploymentsAt(5),
		FailRange: func(uint64, uint64) error {
			calls++
			if calls == 1 {
				return errors.New("temporary")
			}
			return nil
		},
	}
	f := NewRangeFetcher(FetchConfig{ChunkSize: 100, SplitTiers: []uint64{10}, MaxRetries: 1, RetryBackoff: time.Millisecond}, nil)

	logs, stats, err := f.Fetch(context.Background(), p, factoryQuery(), 1, 100)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Zero(t, stats.Splits)
	require.Len(t, p.Queries(), 2)
}

func TestFetchClampsFromBlock(t *testing.T) {
	p := &chaintest.Provider{Logs: deploymentsAt(1, 2)}
	f := NewRangeFetcher(FetchConfig{ChunkSize: 10}, nil)

	logs, _, err := f.Fetch(context.Background(), p, factoryQuery(), 0, 5)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, []chaintest.Range{{From: 1, To: 5}}, p.Queries())
}

func TestFetchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &chaintest.Provider{Logs: deploymentsAt(1)}
	f := NewRangeFetcher(FetchConfig{ChunkSize: 10}, nil)

	_, _, err := f.Fetch(ctx, p, factoryQuery(), 1, 100)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFetchDropsDuplicates(t *testing.T) {
	logs := deploymentsAt(7)
	p := &chaintest.Provider{Logs: append(logs, logs[0])}
	f := NewRangeFetcher(FetchConfig{ChunkSize: 10}, nil)

	got, _, err := f.Fetch(context.Background(), p, factoryQuery(), 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
