package model

// PoolsResponse is the payload of the latest pools query.
type PoolsResponse struct {
	Pools       []EnrichedPool `json:"pools"`
	LastUpdated int64          `json:"lastUpdated"`
	Cached      bool           `json:"cached"`
	Error       string         `json:"error,omitempty"`
}

// CreatorSummary is the payload of the creator history query.
type CreatorSummary struct {
	Creator           string        `json:"creator"`
	CreatorScore      *int64        `json:"creatorScore"`
	CreatorScoreError string        `json:"creatorScoreError,omitempty"`
	TotalPools        int           `json:"totalPools"`
	Pools             []CreatorPool `json:"pools"`
	Error             string        `json:"error,omitempty"`
}
