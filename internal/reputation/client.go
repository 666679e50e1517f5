// Package reputation queries the external account reputation service.
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"poolScope/internal/metrics"
)

const (
	DefaultBaseURL      = "https://api.ethos.network/api/v2"
	DefaultClientHeader = "X-Ethos-Client"
	DefaultClientID     = "poolscope"
	DefaultTimeout      = 5 * time.Second
)

// Config controls the reputation client.
type Config struct {
	BaseURL      string
	ClientHeader string
	ClientID     string
	// Timeout bounds one Lookup including retries.
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
}

// Client looks up reputation scores over HTTP.
type Client struct {
	cfg    Config
	http   *retryablehttp.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ClientHeader == "" {
		cfg.ClientHeader = DefaultClientHeader
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 250 * time.Millisecond
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = cfg.RetryWait
	client.RetryWaitMax = cfg.RetryWait * 4
	client.Logger = nil
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		yes, err2 := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if yes {
			if resp == nil {
				logger.Debug("retrying reputation request", zap.Error(err))
			} else {
				logger.Debug("retrying reputation request", zap.String("status", resp.Status))
			}
		}
		return yes, err2
	}
	client.Backoff = retryablehttp.LinearJitterBackoff
	client.HTTPClient.Timeout = cfg.Timeout

	return &Client{cfg: cfg, http: client, logger: logger}
}

type scoreResponse struct {
	Score *float64 `json:"score"`
}

// Lookup returns the creator's score. A nil score with a nil error means the
// account has no reputation history; any error means the lookup failed.
func (c *Client) Lookup(ctx context.Context, addr common.Address) (*int64, error) {
	t0 := time.Now()
	score, err := c.lookup(ctx, addr)
	switch {
	case err != nil:
		metrics.ObserveReputation("error", t0)
	case score == nil:
		metrics.ObserveReputation("none", t0)
	default:
		metrics.ObserveReputation("score", t0)
	}
	return score, err
}

func (c *Client) lookup(ctx context.Context, addr common.Address) (*int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := c.cfg.BaseURL + "/score/address?address=" + url.QueryEscape(strings.ToLower(addr.Hex()))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(c.cfg.ClientHeader, c.cfg.ClientID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("reputation request timed out after %s", c.cfg.Timeout)
		}
		return nil, fmt.Errorf("reputation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("reputation service returned status %d", resp.StatusCode)
	}

	var body scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode reputation response: %w", err)
	}
	if body.Score == nil {
		return nil, nil
	}
	score := int64(math.Round(*body.Score))
	return &score, nil
}
