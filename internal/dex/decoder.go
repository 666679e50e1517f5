package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"poolScope/internal/model"
)

// PoolCreatedTopic returns topic0 of the PoolCreated event.
func PoolCreatedTopic() (common.Hash, error) {
	factoryABI, err := PoolFactoryABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse factory abi: %w", err)
	}
	return factoryABI.Events[PoolCreatedEvent].ID, nil
}

// DecodePoolCreated decodes a factory PoolCreated log.
func DecodePoolCreated(log types.Log) (model.PoolCreated, error) {
	factoryABI, err := PoolFactoryABI()
	if err != nil {
		return model.PoolCreated{}, fmt.Errorf("parse factory abi: %w", err)
	}
	event := factoryABI.Events[PoolCreatedEvent]

	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return model.PoolCreated{}, fmt.Errorf("not a %s log", PoolCreatedEvent)
	}
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return model.PoolCreated{}, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}

	var topics struct {
		Token0 common.Address
		Token1 common.Address
		Stable bool
	}
	if err := abi.ParseTopics(&topics, indexed, log.Topics[1:]); err != nil {
		return model.PoolCreated{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.PoolCreated{}, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != 2 {
		return model.PoolCreated{}, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	pool, err := asAddress(values[0])
	if err != nil {
		return model.PoolCreated{}, fmt.Errorf("pool: %w", err)
	}

	return model.PoolCreated{
		Pool:        pool,
		Token0:      topics.Token0,
		Token1:      topics.Token1,
		Stable:      topics.Stable,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}
