package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"poolScope/internal/cache"
	"poolScope/internal/chain"
	"poolScope/internal/chain/chaintest"
	"poolScope/internal/enrich"
	"poolScope/internal/indexer"
	"poolScope/internal/model"
	"poolScope/internal/service"
)

type fakeQuerier struct {
	latest  model.PoolsResponse
	summary model.CreatorSummary
	creator common.Address
	panics  bool
}

func (f *fakeQuerier) LatestPools(context.Context) model.PoolsResponse {
	if f.panics {
		panic("boom")
	}
	return f.latest
}

func (f *fakeQuerier) CreatorPools(_ context.Context, creator common.Address) model.CreatorSummary {
	f.creator = creator
	return f.summary
}

func serve(t *testing.T, q Querier, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	NewHandler(q, nil).NewRouter().ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandleLatestPools(t *testing.T) {
	score := int64(12)
	q := &fakeQuerier{latest: model.PoolsResponse{
		Pools:       []model.EnrichedPool{{Address: "0x01", CreatorScore: &score, IsFirstPool: true}},
		LastUpdated: 1_700_000_000_000,
		Cached:      true,
	}}

	rec, body := serve(t, q, "/pools")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["cached"])
	require.Equal(t, float64(1_700_000_000_000), body["lastUpdated"])
	pools := body["pools"].([]interface{})
	require.Len(t, pools, 1)
	require.Equal(t, float64(12), pools[0].(map[string]interface{})["creatorScore"])
}

func TestHandleLatestPoolsNilList(t *testing.T) {
	rec, body := serve(t, &fakeQuerier{}, "/pools")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []interface{}{}, body["pools"])
}

func TestHandleCreatorPools(t *testing.T) {
	q := &fakeQuerier{summary: model.CreatorSummary{
		Creator:    "0xABCDEF0000000000000000000000000000000001",
		TotalPools: 0,
	}}

	rec, body := serve(t, q, "/creator/0xABCDEF0000000000000000000000000000000001/pools")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, common.HexToAddress("0xabcdef0000000000000000000000000000000001"), q.creator)
	require.Equal(t, "0xabcdef0000000000000000000000000000000001", body["creator"])
	require.Equal(t, []interface{}{}, body["pools"])
	v, ok := body["creatorScore"]
	require.True(t, ok)
	require.Nil(t, v)
}

func TestHandleCreatorPoolsRejectsMalformedAddress(t *testing.T) {
	for _, path := range []string{
		"/creator/0x1234/pools",
		"/creator/not-an-address/pools",
		"/creator/abcdef0000000000000000000000000000000001/pools",
	} {
		rec, body := serve(t, &fakeQuerier{}, path)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		require.Equal(t, "invalid address", body["error"])
	}
}

func TestRecoverReturnsGeneric500(t *testing.T) {
	rec, body := serve(t, &fakeQuerier{panics: true}, "/pools")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal server error", body["error"])
}

func TestHealthAndMetrics(t *testing.T) {
	rec, body := serve(t, &fakeQuerier{}, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])

	rec = httptest.NewRecorder()
	NewHandler(&fakeQuerier{}, nil).NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLatestPoolsWithNoDataIsSuccess(t *testing.T) {
	providers := []chain.Provider{
		&chaintest.Provider{ProviderName: "a", Head: 5000},
		&chaintest.Provider{ProviderName: "b", Head: 5000},
	}
	fetcher := indexer.NewRangeFetcher(indexer.FetchConfig{ChunkSize: 1000}, nil)
	svc, err := service.New(
		service.Config{Factory: chaintest.Factory},
		indexer.NewSelector(providers, fetcher, nil),
		enrich.New(enrich.Config{}, nil, nil, nil),
		cache.NewResultCache(time.Minute),
		nil,
		nil,
	)
	require.NoError(t, err)

	rec, body := serve(t, svc, "/pools")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []interface{}{}, body["pools"])
	require.Equal(t, false, body["cached"])
	require.NotZero(t, body["lastUpdated"])
}
