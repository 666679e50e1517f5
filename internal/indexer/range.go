package indexer

import (
	"fmt"

	"poolScope/internal/chain"
)

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// Len returns the number of blocks in the range.
func (r BlockRange) Len() uint64 {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// SplitRangeBackward splits a block range into batches of size batchSize,
// starting at the head. The last batch (closest to from) may be shorter.
func SplitRangeBackward(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0)
	end := to
	for {
		remaining := end - from + 1
		var start uint64
		if remaining <= batchSize {
			start = from
		} else {
			start = end - batchSize + 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if start == from {
			break
		}
		end = start - 1
	}

	return ranges, nil
}

// Window returns the most recent depth blocks ending at head, clamped so the
// start never drops below chain.MinBlock. ok is false when there is nothing
// to scan.
func Window(head, depth uint64) (BlockRange, bool) {
	if depth == 0 || head < chain.MinBlock {
		return BlockRange{}, false
	}
	from := chain.MinBlock
	if head >= depth && head-depth+1 > from {
		from = head - depth + 1
	}
	return BlockRange{From: from, To: head}, true
}
