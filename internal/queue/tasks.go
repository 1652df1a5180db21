// Package queue contains the asynq task definitions and the scheduled-run worker.
package queue

import (
	"encoding/json"
	"fmt"
)

// Task types
const (
	TypeDiscoveryChart   = "discovery:chart"
	TypeDiscoverySearch  = "discovery:search"
	TypeMetricsRecompute = "metrics:recompute"
)

// DiscoverySearchPayload is the payload for scheduled search discovery tasks.
type DiscoverySearchPayload struct {
	Novelty  bool                   `json:"novelty"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NewDiscoverySearchTask creates a search discovery task payload.
func NewDiscoverySearchTask(novelty bool, metadata map[string]interface{}) *DiscoverySearchPayload {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &DiscoverySearchPayload{
		Novelty:  novelty,
		Metadata: metadata,
	}
}

// Marshal serializes the payload to JSON.
func (p *DiscoverySearchPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalDiscoverySearchPayload deserializes JSON to payload.
func UnmarshalDiscoverySearchPayload(data []byte) (*DiscoverySearchPayload, error) {
	var payload DiscoverySearchPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
