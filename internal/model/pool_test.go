package model

import (
	"encoding/json"
	"testing"
)

func TestEnrichedPoolScoreEncoding(t *testing.T) {
	score := int64(1380)
	withScore, err := json.Marshal(EnrichedPool{CreatorScore: &score})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	noHistory, err := json.Marshal(EnrichedPool{})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	failed, err := json.Marshal(EnrichedPool{CreatorScoreError: "status 503"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(withScore, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["creatorScore"] != float64(1380) {
		t.Fatalf("creatorScore mismatch: %v", decoded["creatorScore"])
	}
	if _, ok := decoded["creatorScoreError"]; ok {
		t.Fatalf("creatorScoreError should be omitted")
	}

	decoded = nil
	if err := json.Unmarshal(noHistory, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if v, ok := decoded["creatorScore"]; !ok || v != nil {
		t.Fatalf("creatorScore should be present and null: %v", v)
	}

	decoded = nil
	if err := json.Unmarshal(failed, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["creatorScoreError"] != "status 503" {
		t.Fatalf("creatorScoreError mismatch: %v", decoded["creatorScoreError"])
	}
}

func TestPoolsResponseEmptyList(t *testing.T) {
	data, err := json.Marshal(PoolsResponse{Pools: []EnrichedPool{}, LastUpdated: 1})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"pools":[],"lastUpdated":1,"cached":false}` {
		t.Fatalf("unexpected payload: %s", data)
	}
}
