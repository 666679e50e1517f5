package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// PoolCreatedEvent is the factory event announcing a new pool.
const PoolCreatedEvent = "PoolCreated"

const poolFactoryABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "token0", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "token1", "type": "address"},
      {"indexed": true, "internalType": "bool", "name": "stable", "type": "bool"},
      {"indexed": false, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "poolCount", "type": "uint256"}
    ],
    "name": "PoolCreated",
    "type": "event"
  }
]`

var (
	poolFactoryABI     abi.ABI
	poolFactoryABIOnce sync.Once
	poolFactoryABIErr  error
)

// PoolFactoryABI returns the parsed pool factory ABI.
func PoolFactoryABI() (abi.ABI, error) {
	poolFactoryABIOnce.Do(func() {
		poolFactoryABI, poolFactoryABIErr = abi.JSON(strings.NewReader(poolFactoryABIJSON))
	})
	return poolFactoryABI, poolFactoryABIErr
}
