package models

import "time"

// Consensus algorithms. The store records the tag; tallying is caller-side.
const (
	ConsensusMajority  = "majority"
	ConsensusWeighted  = "weighted"
	ConsensusByzantine = "byzantine"
)

// ConsensusDecision is an append-only record of a collective choice.
// Rows are never updated after creation.
type ConsensusDecision struct {
	ID         string  `gorm:"primaryKey;size:64"`
	SwarmID    string  `gorm:"size:64;index"` // owning objective/swarm scope
	Topic      string  `gorm:"size:256;not null"`
	Decision   string  `gorm:"type:text;not null"`
	Votes      string  `gorm:"type:json"` // tally plus optional per-voter detail
	Algorithm  string  `gorm:"size:16;default:majority"`
	Confidence float64 `gorm:"default:0"` // [0,1]
	CreatedAt  time.Time
}
