package models

import "time"

// Message priorities, lowest to highest urgency.
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Reliability classes. Stored as metadata: the store never re-drives
// delivery itself; callers poll unacknowledged messages and re-publish.
const (
	ReliabilityBestEffort  = "best_effort"
	ReliabilityAtLeastOnce = "at_least_once"
	ReliabilityExactlyOnce = "exactly_once"
)

// Acknowledgment statuses.
const (
	AckAccepted = "acknowledged"
	AckRejected = "rejected"
)

// Message is a persisted inter-agent message with a fixed receiver set.
type Message struct {
	ID            string `gorm:"primaryKey;size:64"`
	Type          string `gorm:"size:64;not null;index"`
	Sender        string `gorm:"size:64;not null;index"`
	Content       string `gorm:"type:text"` // opaque payload
	ContentType   string `gorm:"size:64;default:text/plain"`
	SizeBytes     int64  `gorm:"default:0"`
	Priority      string `gorm:"size:8;default:normal"`
	Reliability   string `gorm:"size:16;default:best_effort"`
	CorrelationID string `gorm:"size:64;index"`
	ReplyTo       string `gorm:"size:64"`
	Route         string `gorm:"type:json"` // JSON array, ordered hop trace
	TTLMs         int64  `gorm:"default:0"`
	CreatedAt     time.Time
	ExpiresAt     *time.Time `gorm:"index"`

	Receivers []MessageReceiver `gorm:"foreignKey:MessageID"`
	Acks      []MessageAck      `gorm:"foreignKey:MessageID"`
}

// MessageReceiver is one addressee of a message.
type MessageReceiver struct {
	MessageID string `gorm:"primaryKey;size:64"`
	AgentID   string `gorm:"primaryKey;size:64;index"`
}

// MessageAck is the single acknowledgment for a (message, agent) pair.
// A later ack from the same agent replaces the earlier one.
type MessageAck struct {
	MessageID string `gorm:"primaryKey;size:64"`
	AgentID   string `gorm:"primaryKey;size:64;index"`
	Status    string `gorm:"size:16;not null"`
	AckedAt   time.Time
}
