package models

import "time"

// Agent types recognized by the registry.
const (
	AgentTypeResearcher  = "researcher"
	AgentTypeDeveloper   = "developer"
	AgentTypeAnalyzer    = "analyzer"
	AgentTypeCoordinator = "coordinator"
	AgentTypeReviewer    = "reviewer"
)

// Agent statuses.
const (
	AgentStatusIdle      = "idle"
	AgentStatusBusy      = "busy"
	AgentStatusFailed    = "failed"
	AgentStatusCompleted = "completed"
	AgentStatusActive    = "active"
)

// Agent is a registered worker in the swarm.
type Agent struct {
	ID            string `gorm:"primaryKey;size:64"`
	Type          string `gorm:"size:16;not null;index"`
	Name          string `gorm:"size:128;not null"`
	Status        string `gorm:"size:16;default:idle;index"`
	Capabilities  string `gorm:"type:json"` // JSON array of capability tags
	Directive     string `gorm:"type:text"` // optional behavior directive
	MaxConcurrent int    `gorm:"default:1"`
	Priority      int    `gorm:"default:0"` // higher = preferred for assignment
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Metrics *AgentMetrics `gorm:"foreignKey:AgentID"`
}

// AgentMetrics holds cumulative performance counters for one agent.
// Created together with the agent; exists for its whole lifetime.
type AgentMetrics struct {
	AgentID         string `gorm:"primaryKey;size:64"`
	TasksCompleted  int64  `gorm:"default:0"`
	TasksFailed     int64  `gorm:"default:0"`
	TotalDurationMs int64  `gorm:"default:0"`
	LastActivity    time.Time
}
