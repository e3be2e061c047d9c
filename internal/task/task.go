// Package task provides task lifecycle operations and dependency scheduling.
package task

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// ErrMaxRetriesExceeded is recorded on a task that is retried past its ceiling.
const ErrMaxRetriesExceeded = "max retries exceeded"

// CreateOpts holds parameters for creating a new task.
type CreateOpts struct {
	ID          string // optional; generated when empty
	Type        string
	Description string
	Priority    int // higher = scheduled first
	Metadata    map[string]interface{}
	DependsOn   []string
	MaxRetries  int   // defaults to 3
	TimeoutMs   int64 // advisory, interpreted by caller sweeps
}

// ListFilters holds optional filters for listing tasks.
type ListFilters struct {
	Status        string
	Type          string
	AssignedAgent string
}

// GenerateID creates a unique task ID in task-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("task: generate ID: %w", err)
	}
	return "task-" + hex.EncodeToString(b)[:5], nil
}

// Create creates a task plus its dependency edges in one transaction.
// A caller-supplied ID that already exists is rejected.
func Create(db *gorm.DB, opts CreateOpts) (*models.Task, error) {
	if opts.Type == "" {
		return nil, fmt.Errorf("task: type is required")
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}

	id := opts.ID
	if id == "" {
		var err error
		id, err = generateUniqueID(db)
		if err != nil {
			return nil, err
		}
	} else {
		var count int64
		if err := db.Model(&models.Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("task: check ID %s: %w", id, err)
		}
		if count > 0 {
			return nil, fmt.Errorf("task: ID already exists: %s", id)
		}
	}

	metadata, err := models.EncodeMap(opts.Metadata)
	if err != nil {
		return nil, fmt.Errorf("task: %w", err)
	}

	t := models.Task{
		ID:          id,
		Type:        opts.Type,
		Description: opts.Description,
		Status:      models.TaskStatusPending,
		Priority:    opts.Priority,
		Metadata:    metadata,
		MaxRetries:  opts.MaxRetries,
		TimeoutMs:   opts.TimeoutMs,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			return fmt.Errorf("task: create: %w", err)
		}
		for _, dep := range opts.DependsOn {
			if dep == id {
				return fmt.Errorf("task: cannot depend on itself: %s", id)
			}
			if err := tx.Create(&models.TaskDep{TaskID: id, DependsOn: dep}).Error; err != nil {
				return fmt.Errorf("task: create dep %s -> %s: %w", id, dep, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Get retrieves a task by ID, preloading its dependency edges.
func Get(db *gorm.DB, id string) (*models.Task, error) {
	var t models.Task
	if err := db.Preload("Deps").Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task: not found: %s", id)
		}
		return nil, fmt.Errorf("task: get %s: %w", id, err)
	}
	return &t, nil
}

// List returns tasks matching the filters, highest priority first, oldest
// first within a priority.
func List(db *gorm.DB, filters ListFilters) ([]models.Task, error) {
	q := db.Model(&models.Task{})
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Type != "" {
		q = q.Where("type = ?", filters.Type)
	}
	if filters.AssignedAgent != "" {
		q = q.Where("assigned_agent = ?", filters.AssignedAgent)
	}

	var tasks []models.Task
	if err := q.Order("priority DESC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task: list: %w", err)
	}
	return tasks, nil
}

// Assign atomically assigns a pending task to an agent. Returns false when
// the task is missing or no longer pending (a lost race, not an error).
func Assign(db *gorm.DB, taskID, agentID string) (bool, error) {
	if agentID == "" {
		return false, fmt.Errorf("task: agentID is required")
	}

	now := time.Now()
	result := db.Model(&models.Task{}).
		Where("id = ? AND status = ?", taskID, models.TaskStatusPending).
		Updates(map[string]interface{}{
			"status":         models.TaskStatusAssigned,
			"assigned_agent": agentID,
			"started_at":     now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("task: assign %s to %s: %w", taskID, agentID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkInProgress moves an assigned task to in_progress. Returns false when
// the task is not currently assigned.
func MarkInProgress(db *gorm.DB, taskID string) (bool, error) {
	result := db.Model(&models.Task{}).
		Where("id = ? AND status = ? AND assigned_agent IS NOT NULL", taskID, models.TaskStatusAssigned).
		Update("status", models.TaskStatusInProgress)
	if result.Error != nil {
		return false, fmt.Errorf("task: mark in progress %s: %w", taskID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkCompleted completes an assigned or in-progress task, forcing progress
// to 100 and stamping the completion time.
func MarkCompleted(db *gorm.DB, taskID string) (bool, error) {
	now := time.Now()
	result := db.Model(&models.Task{}).
		Where("id = ? AND status IN ? AND assigned_agent IS NOT NULL",
			taskID, []string{models.TaskStatusAssigned, models.TaskStatusInProgress}).
		Updates(map[string]interface{}{
			"status":       models.TaskStatusCompleted,
			"progress":     100,
			"completed_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("task: mark completed %s: %w", taskID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed fails a non-terminal task, recording the error detail.
func MarkFailed(db *gorm.DB, taskID, errMsg string) (bool, error) {
	now := time.Now()
	result := db.Model(&models.Task{}).
		Where("id = ? AND status NOT IN ?",
			taskID, []string{models.TaskStatusCompleted, models.TaskStatusFailed}).
		Updates(map[string]interface{}{
			"status":       models.TaskStatusFailed,
			"error":        errMsg,
			"completed_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("task: mark failed %s: %w", taskID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SetProgress updates the progress percentage of an active task.
func SetProgress(db *gorm.DB, taskID string, percent int) (bool, error) {
	if percent < 0 || percent > 100 {
		return false, fmt.Errorf("task: progress %d out of range", percent)
	}
	result := db.Model(&models.Task{}).
		Where("id = ? AND status IN ?",
			taskID, []string{models.TaskStatusAssigned, models.TaskStatusInProgress}).
		Update("progress", percent)
	if result.Error != nil {
		return false, fmt.Errorf("task: set progress %s: %w", taskID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RetryResult reports what a Retry call actually did.
type RetryResult int

const (
	// RetryNotFound means the task does not exist.
	RetryNotFound RetryResult = iota
	// Retried means the task went back to pending with an incremented counter.
	Retried
	// RetryExhausted means the ceiling was hit and the task is now
	// terminally failed.
	RetryExhausted
)

// Retry re-queues a failed or stuck task. Below the retry ceiling the task
// returns to pending with the counter incremented and error/assignment
// cleared; at the ceiling it is forced to terminal failed. Both branches are
// single conditional updates, so concurrent retries never over-increment.
func Retry(db *gorm.DB, taskID string) (RetryResult, error) {
	result := db.Model(&models.Task{}).
		Where("id = ? AND retry_count < max_retries AND status <> ?", taskID, models.TaskStatusCompleted).
		Updates(map[string]interface{}{
			"retry_count":    gorm.Expr("retry_count + 1"),
			"status":         models.TaskStatusPending,
			"error":          "",
			"assigned_agent": nil,
			"started_at":     nil,
			"completed_at":   nil,
			"progress":       0,
		})
	if result.Error != nil {
		return RetryNotFound, fmt.Errorf("task: retry %s: %w", taskID, result.Error)
	}
	if result.RowsAffected > 0 {
		return Retried, nil
	}

	var count int64
	if err := db.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
		return RetryNotFound, fmt.Errorf("task: check %s: %w", taskID, err)
	}
	if count == 0 {
		return RetryNotFound, nil
	}

	// Ceiling reached: force terminal failure.
	now := time.Now()
	fail := db.Model(&models.Task{}).
		Where("id = ? AND status <> ?", taskID, models.TaskStatusCompleted).
		Updates(map[string]interface{}{
			"status":       models.TaskStatusFailed,
			"error":        ErrMaxRetriesExceeded,
			"completed_at": now,
		})
	if fail.Error != nil {
		return RetryNotFound, fmt.Errorf("task: exhaust %s: %w", taskID, fail.Error)
	}
	return RetryExhausted, nil
}

// Delete removes a task and its dependency edges in both directions.
func Delete(db *gorm.DB, taskID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", taskID).Delete(&models.Task{})
		if result.Error != nil {
			return fmt.Errorf("task: delete %s: %w", taskID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("task: not found: %s", taskID)
		}
		if err := tx.Where("task_id = ? OR depends_on = ?", taskID, taskID).
			Delete(&models.TaskDep{}).Error; err != nil {
			return fmt.Errorf("task: delete deps of %s: %w", taskID, err)
		}
		return nil
	})
}

// CleanupOld deletes terminal tasks completed more than the given number of
// days ago. Returns the number of tasks removed.
func CleanupOld(db *gorm.DB, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("task: days must be positive")
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	var removed int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.Task{}).
			Where("status IN ? AND completed_at < ?",
				[]string{models.TaskStatusCompleted, models.TaskStatusFailed}, cutoff).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("task: find old tasks: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("task_id IN ? OR depends_on IN ?", ids, ids).
			Delete(&models.TaskDep{}).Error; err != nil {
			return fmt.Errorf("task: cleanup deps: %w", err)
		}
		result := tx.Where("id IN ?", ids).Delete(&models.Task{})
		if result.Error != nil {
			return fmt.Errorf("task: cleanup: %w", result.Error)
		}
		removed = result.RowsAffected
		return nil
	})
	return removed, err
}

// Metadata decodes the task's structured metadata payload.
func Metadata(t *models.Task) (map[string]interface{}, error) {
	return models.DecodeMap(t.Metadata)
}

// generateUniqueID generates an ID and retries once on collision.
func generateUniqueID(db *gorm.DB) (string, error) {
	for i := 0; i < 2; i++ {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		var count int64
		if err := db.Model(&models.Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("task: check ID uniqueness: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("task: failed to generate unique ID after retries")
}
