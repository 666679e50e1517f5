package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"poolScope/internal/chain"
	"poolScope/internal/chain/chaintest"
)

func newTestSelector(providers ...chain.Provider) *Selector {
	f := NewRangeFetcher(FetchConfig{ChunkSize: 1000, SplitTiers: []uint64{100}}, nil)
	return NewSelector(providers, f, nil)
}

func TestSelectorFallsBackOnEmptyProvider(t *testing.T) {
	a := &chaintest.Provider{ProviderName: "a", Head: 5000}
	b := &chaintest.Provider{ProviderName: "b", Head: 5000, Logs: deploymentsAt(4100, 4500, 4999)}

	res, err := newTestSelector(a, b).Scan(context.Background(), ScanSpec{Query: factoryQuery(), Depth: 1000})
	require.NoError(t, err)
	require.Equal(t, "b", res.Provider.Name())
	require.Equal(t, []uint64{4100, 4500, 4999}, blocksOf(res.Logs))
	require.Equal(t, BlockRange{From: 4001, To: 5000}, res.Window)
	require.NotEmpty(t, a.Queries())
}

func TestSelectorSkipsProviderWithHeadError(t *testing.T) {
	a := &chaintest.Provider{ProviderName: "a", HeadErr: errors.New("connection refused"), Logs: deploymentsAt(10)}
	b := &chaintest.Provider{ProviderName: "b", Head: 100, Logs: deploymentsAt(10)}

	res, err := newTestSelector(a, b).Scan(context.Background(), ScanSpec{Query: factoryQuery(), Depth: 1000})
	require.NoError(t, err)
	require.Equal(t, "b", res.Provider.Name())
	require.Empty(t, a.Queries())
}

func TestSelectorUsesFirstProviderWithData(t *testing.T) {
	a := &chaintest.Provider{ProviderName: "a", Head: 100, Logs: deploymentsAt(10)}
	b := &chaintest.Provider{ProviderName: "b", Head: 100, Logs: deploymentsAt(10, 20)}

	res, err := newTestSelector(a, b).Scan(context.Background(), ScanSpec{Query: factoryQuery(), Depth: 1000})
	require.NoError(t, err)
	require.Equal(t, "a", res.Provider.Name())
	require.Empty(t, b.Queries())
}

func TestSelectorNoData(t *testing.T) {
	a := &chaintest.Provider{ProviderName: "a", Head: 100}
	b := &chaintest.Provider{ProviderName: "b", HeadErr: errors.New("timeout")}

	_, err := newTestSelector(a, b).Scan(context.Background(), ScanSpec{Query: factoryQuery(), Depth: 1000})
	require.ErrorIs(t, err, ErrNoData)

	_, err = newTestSelector().Scan(context.Background(), ScanSpec{Query: factoryQuery(), Depth: 1000})
	require.ErrorIs(t, err, ErrNoData)
}

func TestSelectorMinEvents(t *testing.T) {
	a := &chaintest.Provider{ProviderName: "a", Head: 100, Logs: deploymentsAt(10)}
	b := &chaintest.Provider{ProviderName: "b", Head: 100, Logs: deploymentsAt(10, 20)}

	res, err := newTestSelector(a, b).Scan(context.Background(), ScanSpec{Query: factoryQuery(), Depth: 1000, MinEvents: 2})
	require.NoError(t, err)
	require.Equal(t, "b", res.Provider.Name())
}
