package engine

import "time"

// StrategyInfo represents strategy information returned by the engine.
type StrategyInfo struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Symbol     string         `json:"symbol"`
	Interval   string         `json:"interval"`
	Parameters map[string]any `json:"parameters"`
	Metadata   map[string]any `json:"metadata"`
	IsActive   bool           `json:"is_active"`
	Registered bool           `json:"registered"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// SystemStatus represents the system runtime status.
type SystemStatus struct {
	Symbols             []string  `json:"symbols"`
	PrimaryInterval     string    `json:"primary_interval"`
	SecondaryInterval   string    `json:"secondary_interval"`
	UseMockFeed         bool      `json:"use_mock_feed"`
	OrchestratorEnabled bool      `json:"orchestrator_enabled"`
	Version             string    `json:"version"`
	ServerTime          time.Time `json:"server_time"`
}
