// Package chaintest provides an in-memory chain.Provider for tests.
package chaintest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"poolScope/internal/chain"
)

// ErrReverted is returned by CallContract for unknown tokens.
var ErrReverted = errors.New("execution reverted")

var symbolSelector = crypto.Keccak256([]byte("symbol()"))[:4]

// Range is one recorded FilterLogs call.
type Range struct {
	From uint64
	To   uint64
}

// Provider is a configurable fake chain.Provider.
type Provider struct {
	ProviderName string
	Head         uint64
	HeadErr      error
	Logs         []types.Log

	// FailRange makes FilterLogs fail for the given range when it returns an error.
	FailRange func(from, to uint64) error

	// Senders maps tx hash to originating account. Unknown hashes fail.
	Senders map[common.Hash]common.Address
	// Symbols maps token address to symbol. Unknown tokens revert.
	Symbols map[common.Address]string

	TimestampErr error

	mu          sync.Mutex
	queries     []Range
	senderCalls int
}

var _ chain.Provider = (*Provider)(nil)

func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "fake"
	}
	return p.ProviderName
}

func (p *Provider) LatestBlockNumber(context.Context) (uint64, error) {
	if p.HeadErr != nil {
		return 0, p.HeadErr
	}
	return p.Head, nil
}

func (p *Provider) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.queries = append(p.queries, Range{From: fromBlock, To: toBlock})
	p.mu.Unlock()

	if p.FailRange != nil {
		if err := p.FailRange(fromBlock, toBlock); err != nil {
			return nil, err
		}
	}

	out := make([]types.Log, 0)
	for _, l := range p.Logs {
		if l.BlockNumber < fromBlock || l.BlockNumber > toBlock {
			continue
		}
		if len(addresses) > 0 && !containsAddress(addresses, l.Address) {
			continue
		}
		if len(topic0) > 0 && (len(l.Topics) == 0 || !containsHash(topic0, l.Topics[0])) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (p *Provider) TransactionSender(_ context.Context, txHash common.Hash) (common.Address, error) {
	p.mu.Lock()
	p.senderCalls++
	p.mu.Unlock()
	from, ok := p.Senders[txHash]
	if !ok {
		return common.Address{}, ethereum.NotFound
	}
	return from, nil
}

// BlockTimestamp derives a deterministic timestamp from the block number.
func (p *Provider) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	if p.TimestampErr != nil {
		return 0, p.TimestampErr
	}
	return Timestamp(number), nil
}

func (p *Provider) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || !bytes.HasPrefix(msg.Data, symbolSelector) {
		return nil, ErrReverted
	}
	symbol, ok := p.Symbols[*msg.To]
	if !ok {
		return nil, ErrReverted
	}
	stringTy, err := abi.NewType("string", "", nil)
	if err != nil {
		return nil, err
	}
	return abi.Arguments{{Type: stringTy}}.Pack(symbol)
}

// Queries returns the FilterLogs ranges in call order.
func (p *Provider) Queries() []Range {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Range, len(p.queries))
	copy(out, p.queries)
	return out
}

// SenderCalls returns how many times TransactionSender was invoked.
func (p *Provider) SenderCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.senderCalls
}

// Timestamp is the timestamp the fake reports for a block.
func Timestamp(number uint64) uint64 {
	return 1_700_000_000 + number*2
}

// FailBetween returns a FailRange func rejecting any query that overlaps
// [from, to] and spans more than maxSpan blocks.
func FailBetween(from, to, maxSpan uint64) func(uint64, uint64) error {
	return func(qFrom, qTo uint64) error {
		if qTo < from || qFrom > to {
			return nil
		}
		if qTo-qFrom+1 > maxSpan {
			return fmt.Errorf("query returned more than 10000 results")
		}
		return nil
	}
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, item := range list {
		if item == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, item := range list {
		if item == h {
			return true
		}
	}
	return false
}
