package models

import "time"

// Memory entry kinds.
const (
	MemoryKindKnowledge     = "knowledge"
	MemoryKindResult        = "result"
	MemoryKindState         = "state"
	MemoryKindCommunication = "communication"
	MemoryKindError         = "error"
)

// Visibility levels. Advisory: the store does not authenticate callers.
const (
	VisibilityPrivate = "private"
	VisibilityTeam    = "team"
	VisibilityPublic  = "public"
)

// MemoryEntry is a tagged piece of knowledge produced by an agent.
// AgentID and Kind are immutable after creation.
type MemoryEntry struct {
	ID          string `gorm:"primaryKey;size:64"`
	AgentID     string `gorm:"size:64;not null;index"`
	Kind        string `gorm:"size:16;not null;index"`
	Content     string `gorm:"type:text;not null"`
	TaskID      string `gorm:"size:64;index"`
	ObjectiveID string `gorm:"size:64;index"`
	Tags        string `gorm:"type:json"` // JSON array of tags
	Priority    int    `gorm:"default:0"`
	Visibility  string `gorm:"size:8;default:private;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
