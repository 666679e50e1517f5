package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"poolScope/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "pools.jsonl")
	s := NewJsonlStorage(path)

	score := int64(5)
	require.NoError(t, s.PutPools(context.Background(), []model.EnrichedPool{
		{Address: "0x01", BlockNumber: 10, CreatorScore: &score},
		{Address: "0x02", BlockNumber: 9, CreatorScoreError: "timeout"},
	}))
	require.NoError(t, s.PutPools(context.Background(), []model.EnrichedPool{{Address: "0x03"}}))
	require.NoError(t, s.PutPools(context.Background(), nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var got []model.EnrichedPool
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var pool model.EnrichedPool
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &pool))
		got = append(got, pool)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, got, 3)
	require.Equal(t, "0x01", got[0].Address)
	require.Equal(t, int64(5), *got[0].CreatorScore)
	require.Equal(t, "timeout", got[1].CreatorScoreError)
	require.Equal(t, "0x03", got[2].Address)
}

type failingSink struct {
	err   error
	calls int
}

func (f *failingSink) PutPools(context.Context, []model.EnrichedPool) error {
	f.calls++
	return f.err
}

func TestMultiWritesEverySink(t *testing.T) {
	boom := errors.New("boom")
	a := &failingSink{err: boom}
	b := &failingSink{}

	err := Multi{a, nil, b}.PutPools(context.Background(), []model.EnrichedPool{{Address: "0x01"}})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, a.calls)
	require.Equal(t, 1, b.calls)
}
