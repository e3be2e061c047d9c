package models

import "time"

// Task statuses. Pending is re-entrant: a retried task goes back to pending.
const (
	TaskStatusPending    = "pending"
	TaskStatusAssigned   = "assigned"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Task is the schedulable unit of work.
type Task struct {
	ID            string  `gorm:"primaryKey;size:64"`
	Type          string  `gorm:"size:64;not null;index"`
	Description   string  `gorm:"type:text"`
	Status        string  `gorm:"size:16;default:pending;index"`
	Priority      int     `gorm:"default:0;index"` // higher = scheduled first
	Metadata      string  `gorm:"type:json"`       // arbitrary caller payload
	AssignedAgent *string `gorm:"size:64;index"`   // relation only, no ownership
	Progress      int     `gorm:"default:0"`       // 0..100
	Error         string  `gorm:"type:text"`
	RetryCount    int     `gorm:"default:0"`
	MaxRetries    int     `gorm:"default:3"`
	TimeoutMs     int64   `gorm:"default:0"` // advisory, swept by callers
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time

	Deps []TaskDep `gorm:"foreignKey:TaskID"`
}

// TaskDep records that TaskID cannot run until DependsOn is completed.
// Satisfaction is computed on read from the referenced task's status;
// no satisfied flag is persisted.
type TaskDep struct {
	TaskID    string `gorm:"primaryKey;size:64"`
	DependsOn string `gorm:"primaryKey;size:64"`
}
