package model

import "github.com/ethereum/go-ethereum/common"

// PoolCreated is a decoded factory deployment event.
type PoolCreated struct {
	Pool        common.Address
	Token0      common.Address
	Token1      common.Address
	Stable      bool
	BlockNumber uint64
	// TxHash is the zero hash when the provider omitted it.
	TxHash   common.Hash
	LogIndex uint
}

// HasTxHash reports whether the originating transaction is known.
func (p PoolCreated) HasTxHash() bool {
	return p.TxHash != (common.Hash{})
}
