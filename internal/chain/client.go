package chain

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"poolScope/internal/metrics"
)

var _ Provider = (*Client)(nil)

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	name      string
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		name:      endpointName(rpcURL),
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Dial connects to every URL in order. URLs that cannot be dialed are
// logged and left out; the order of the remaining providers is preserved.
func Dial(ctx context.Context, urls []string, logger *zap.Logger) ([]*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	names := providerNames(urls)
	clients := make([]*Client, 0, len(urls))
	for i, u := range urls {
		c, err := NewClient(ctx, u)
		if err != nil {
			logger.Warn("dial provider failed", zap.String("provider", names[i]), zap.Error(err))
			continue
		}
		c.name = names[i]
		clients = append(clients, c)
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no provider could be dialed (%d configured)", len(urls))
	}
	return clients, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) Name() string {
	return c.name
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	t0 := time.Now()
	n, err := c.ethClient.BlockNumber(ctx)
	metrics.ObserveRPC(c.name, "eth_blockNumber", err, t0)
	return n, err
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	t0 := time.Now()
	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	metrics.ObserveRPC(c.name, "eth_getBlockByNumber", err, t0)
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	t0 := time.Now()
	logs, err := c.ethClient.FilterLogs(ctx, query)
	metrics.ObserveRPC(c.name, "eth_getLogs", err, t0)
	return logs, err
}

type fromField struct {
	From *common.Address `json:"from"`
}

// TransactionSender reads the "from" field of the transaction, falling back
// to the receipt when the node does not return the transaction body.
func (c *Client) TransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error) {
	from, txErr := c.senderFrom(ctx, "eth_getTransactionByHash", txHash)
	if txErr == nil {
		return from, nil
	}
	from, err := c.senderFrom(ctx, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolve sender %s: tx: %v, receipt: %w", txHash.Hex(), txErr, err)
	}
	return from, nil
}

func (c *Client) senderFrom(ctx context.Context, method string, txHash common.Hash) (common.Address, error) {
	var result *fromField
	t0 := time.Now()
	err := c.rpcClient.CallContext(ctx, &result, method, txHash)
	metrics.ObserveRPC(c.name, method, err, t0)
	if err != nil {
		return common.Address{}, err
	}
	if result == nil || result.From == nil {
		return common.Address{}, ethereum.NotFound
	}
	return *result.From, nil
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	t0 := time.Now()
	out, err := c.ethClient.CallContract(ctx, msg, blockNumber)
	metrics.ObserveRPC(c.name, "eth_call", err, t0)
	return out, err
}

// endpointName keeps only the host so API keys embedded in paths or query
// strings never reach logs or metric labels.
func endpointName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "provider"
	}
	return u.Host
}

// providerNames names each URL by its endpoint. Endpoints sharing a host get
// their position in urls appended, e.g. "rpc.example#1".
func providerNames(urls []string) []string {
	names := make([]string, len(urls))
	seen := make(map[string]int, len(urls))
	for i, u := range urls {
		names[i] = endpointName(u)
		seen[names[i]]++
	}
	for i, name := range names {
		if seen[name] > 1 {
			names[i] = fmt.Sprintf("%s#%d", name, i)
		}
	}
	return names
}
