package dex

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolScope/internal/chain"
)

// SymbolCache keeps successfully resolved token symbols for the process
// lifetime, bounded by maxEntries.
type SymbolCache struct {
	cache *ristretto.Cache[string, string]
}

func NewSymbolCache(maxEntries int64) (*SymbolCache, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create symbol cache: %w", err)
	}
	return &SymbolCache{cache: cache}, nil
}

func (c *SymbolCache) Get(token common.Address) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.cache.Get(token.Hex())
}

func (c *SymbolCache) Set(token common.Address, symbol string) {
	if c == nil {
		return
	}
	c.cache.Set(token.Hex(), symbol, 1)
	c.cache.Wait()
}

func (c *SymbolCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}

// TokenSymbol returns the token symbol, or a shortened address when the
// token does not expose a readable symbol. It never fails.
func TokenSymbol(ctx context.Context, p chain.Provider, token common.Address, cache *SymbolCache, logger *zap.Logger) string {
	if symbol, ok := cache.Get(token); ok {
		return symbol
	}

	symbol, err := FetchTokenSymbol(ctx, p, token)
	if err != nil {
		if logger != nil {
			logger.Debug("symbol lookup failed", zap.String("token", token.Hex()), zap.Error(err))
		}
		return ShortAddress(token)
	}

	cache.Set(token, symbol)
	return symbol
}

// FetchTokenSymbol reads symbol() as a string, then as bytes32.
func FetchTokenSymbol(ctx context.Context, p chain.Provider, token common.Address) (string, error) {
	if p == nil {
		return "", fmt.Errorf("provider is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return "", fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return "", fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := p.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("unpack %s: empty result", method)
		}
		return values, nil
	}

	var symbol string
	if values, err := call("symbol", stringABI); err == nil {
		symbol, _ = values[0].(string)
	} else if values, err2 := call("symbol", bytes32ABI); err2 == nil {
		symbol, _ = bytes32ToString(values[0])
	} else {
		return "", err
	}

	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", fmt.Errorf("empty symbol")
	}
	return symbol, nil
}

// ShortAddress renders an address as 0x1234...abcd.
func ShortAddress(a common.Address) string {
	h := strings.ToLower(a.Hex())
	return h[:6] + "..." + h[len(h)-4:]
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
