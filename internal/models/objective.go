package models

import "time"

// Objective statuses.
const (
	ObjectiveStatusPlanning  = "planning"
	ObjectiveStatusExecuting = "executing"
	ObjectiveStatusCompleted = "completed"
	ObjectiveStatusFailed    = "failed"
)

// Objective groups an ordered sequence of tasks under a goal.
type Objective struct {
	ID          string `gorm:"primaryKey;size:64"`
	Description string `gorm:"type:text;not null"`
	Strategy    string `gorm:"size:64"`
	Status      string `gorm:"size:16;default:planning;index"`
	CreatedAt   time.Time
	CompletedAt *time.Time

	Tasks []ObjectiveTask `gorm:"foreignKey:ObjectiveID"`
}

// ObjectiveTask links a task into an objective at a sequence position.
// Positions within one objective stay contiguous starting at 1.
type ObjectiveTask struct {
	ObjectiveID string `gorm:"primaryKey;size:64"`
	TaskID      string `gorm:"primaryKey;size:64"`
	Sequence    int    `gorm:"not null"`
}
