package chaintest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// PoolCreatedTopic is topic0 of PoolCreated(address,address,bool,address,uint256).
var PoolCreatedTopic = crypto.Keccak256Hash([]byte("PoolCreated(address,address,bool,address,uint256)"))

// Factory is the emitter used by the builders below.
var Factory = common.HexToAddress("0x420DD381b31aEf6683db6B902084cB0FFECe40Da")

// Deployment describes one pool deployment to encode as a log.
type Deployment struct {
	Token0 common.Address
	Token1 common.Address
	Stable bool
	Pool   common.Address
	Block  uint64
	TxHash common.Hash
	Index  uint
}

// PoolCreatedLog encodes a deployment the way the factory emits it.
func PoolCreatedLog(d Deployment) types.Log {
	addressTy, _ := abi.NewType("address", "", nil)
	uintTy, _ := abi.NewType("uint256", "", nil)
	data, err := abi.Arguments{{Type: addressTy}, {Type: uintTy}}.Pack(d.Pool, big.NewInt(int64(d.Index)+1))
	if err != nil {
		panic(err)
	}

	stable := common.Hash{}
	if d.Stable {
		stable = common.BigToHash(big.NewInt(1))
	}

	return types.Log{
		Address: Factory,
		Topics: []common.Hash{
			PoolCreatedTopic,
			common.BytesToHash(d.Token0.Bytes()),
			common.BytesToHash(d.Token1.Bytes()),
			stable,
		},
		Data:        data,
		BlockNumber: d.Block,
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(d.Block)),
		TxHash:      d.TxHash,
		Index:       d.Index,
	}
}

// Hash builds a deterministic tx hash from a small integer.
func Hash(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

// Address builds a deterministic address from a small integer.
func Address(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}
