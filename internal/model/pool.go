package model

// EnrichedPool is a pool deployment annotated with its creator's reputation.
type EnrichedPool struct {
	Address      string `json:"address"`
	Token0       string `json:"token0"`
	Token1       string `json:"token1"`
	Token0Symbol string `json:"token0Symbol"`
	Token1Symbol string `json:"token1Symbol"`
	Stable       bool   `json:"stable"`
	Creator      string `json:"creator"`
	// CreatorScore is null both when the creator has no reputation history
	// and when the lookup failed; CreatorScoreError tells the two apart.
	CreatorScore      *int64 `json:"creatorScore"`
	CreatorScoreError string `json:"creatorScoreError,omitempty"`
	BlockNumber       uint64 `json:"blockNumber"`
	Timestamp         uint64 `json:"timestamp"`
	IsFirstPool       bool   `json:"isFirstPool"`
	TxHash            string `json:"txHash,omitempty"`
}

// CreatorPool is one pool in a creator's history.
type CreatorPool struct {
	Address      string `json:"address"`
	Token0       string `json:"token0"`
	Token1       string `json:"token1"`
	Token0Symbol string `json:"token0Symbol"`
	Token1Symbol string `json:"token1Symbol"`
	Stable       bool   `json:"stable"`
	BlockNumber  uint64 `json:"blockNumber"`
	Timestamp    uint64 `json:"timestamp"`
	TxHash       string `json:"txHash,omitempty"`
}

// Reputation is the outcome of one reputation lookup. Score and Error are
// never both set.
type Reputation struct {
	Score *int64
	Error string
}

// Failed reports whether the lookup itself failed.
func (r Reputation) Failed() bool {
	return r.Error != ""
}
