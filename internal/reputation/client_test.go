package reputation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/require"
)

const testBase = "http://reputation.localhost/api/v2"

var creator = common.HexToAddress("0xAbCdEf0000000000000000000000000000001234")

func newMockedClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	if cfg.BaseURL == "" {
		cfg.BaseURL = testBase
	}
	c := NewClient(cfg, nil)
	gock.InterceptClient(c.http.HTTPClient)
	t.Cleanup(func() {
		gock.RestoreClient(c.http.HTTPClient)
		gock.Off()
	})
	return c
}

func TestLookupScore(t *testing.T) {
	c := newMockedClient(t, Config{})

	gock.New("http://reputation.localhost").
		Get("/api/v2/score/address").
		MatchParam("address", "0xabcdef0000000000000000000000000000001234").
		MatchHeader(DefaultClientHeader, DefaultClientID).
		Reply(200).
		JSON(map[string]interface{}{"score": 1380})

	score, err := c.Lookup(context.Background(), creator)
	require.NoError(t, err)
	require.NotNil(t, score)
	require.Equal(t, int64(1380), *score)
	require.True(t, gock.IsDone())
}

func TestLookupRoundsFractionalScore(t *testing.T) {
	c := newMockedClient(t, Config{})

	gock.New("http://reputation.localhost").
		Get("/api/v2/score/address").
		Reply(200).
		JSON(map[string]interface{}{"score": 99.6})

	score, err := c.Lookup(context.Background(), creator)
	require.NoError(t, err)
	require.Equal(t, int64(100), *score)
}

func TestLookupNoHistory(t *testing.T) {
	c := newMockedClient(t, Config{})

	gock.New("http://reputation.localhost").
		Get("/api/v2/score/address").
		Reply(200).
		SetHeader("Content-Type", "application/json").
		BodyString(`{"score":null}`)

	score, err := c.Lookup(context.Background(), creator)
	require.NoError(t, err)
	require.Nil(t, score)
}

func TestLookupNon2xxIsFailure(t *testing.T) {
	for _, status := range []int{404, 429, 500} {
		c := newMockedClient(t, Config{Retries: 0})

		gock.New("http://reputation.localhost").
			Get("/api/v2/score/address").
			Reply(status).
			JSON(map[string]interface{}{"score": nil})

		score, err := c.Lookup(context.Background(), creator)
		require.Error(t, err, "status %d", status)
		require.Nil(t, score)
		gock.Off()
	}
}

func TestLookupRetriesTransientFailure(t *testing.T) {
	c := newMockedClient(t, Config{Retries: 1, RetryWait: time.Millisecond})

	gock.New("http://reputation.localhost").
		Get("/api/v2/score/address").
		Reply(503)
	gock.New("http://reputation.localhost").
		Get("/api/v2/score/address").
		Reply(200).
		JSON(map[string]interface{}{"score": 42})

	score, err := c.Lookup(context.Background(), creator)
	require.NoError(t, err)
	require.Equal(t, int64(42), *score)
	require.True(t, gock.IsDone())
}

func TestLookupMalformedBody(t *testing.T) {
	c := newMockedClient(t, Config{})

	gock.New("http://reputation.localhost").
		Get("/api/v2/score/address").
		Reply(200).
		BodyString("<html>")

	_, err := c.Lookup(context.Background(), creator)
	require.Error(t, err)
}

func TestLookupTimeoutIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"score":null}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	score, err := c.Lookup(context.Background(), creator)
	require.Error(t, err)
	require.Nil(t, score)
	require.Less(t, time.Since(start), time.Second)
}
