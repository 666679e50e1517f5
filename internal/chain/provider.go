package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MinBlock is the lowest block number a scan may start from.
const MinBlock uint64 = 1

// Provider is the read-only view of one blockchain data endpoint.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	// TransactionSender returns the account that originated the transaction.
	TransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}
