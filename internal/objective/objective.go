// Package objective provides objective lifecycle and task grouping.
package objective

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for creating an objective.
type CreateOpts struct {
	ID          string // optional; generated when empty
	Description string
	Strategy    string
}

// GenerateID creates a unique objective ID in obj-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("objective: generate ID: %w", err)
	}
	return "obj-" + hex.EncodeToString(b)[:5], nil
}

// Create creates an objective in planning status.
func Create(db *gorm.DB, opts CreateOpts) (*models.Objective, error) {
	if opts.Description == "" {
		return nil, fmt.Errorf("objective: description is required")
	}

	id := opts.ID
	if id == "" {
		var err error
		id, err = GenerateID()
		if err != nil {
			return nil, err
		}
	} else {
		var count int64
		if err := db.Model(&models.Objective{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("objective: check ID %s: %w", id, err)
		}
		if count > 0 {
			return nil, fmt.Errorf("objective: ID already exists: %s", id)
		}
	}

	o := models.Objective{
		ID:          id,
		Description: opts.Description,
		Strategy:    opts.Strategy,
		Status:      models.ObjectiveStatusPlanning,
	}
	if err := db.Create(&o).Error; err != nil {
		return nil, fmt.Errorf("objective: create: %w", err)
	}
	return &o, nil
}

// Get retrieves an objective with its ordered task links preloaded.
func Get(db *gorm.DB, id string) (*models.Objective, error) {
	var o models.Objective
	if err := db.Preload("Tasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	}).Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("objective: not found: %s", id)
		}
		return nil, fmt.Errorf("objective: get %s: %w", id, err)
	}
	return &o, nil
}

// ListByStatus returns objectives in one status, oldest first.
func ListByStatus(db *gorm.DB, status string) ([]models.Objective, error) {
	var objectives []models.Objective
	if err := db.Where("status = ?", status).
		Order("created_at ASC").Find(&objectives).Error; err != nil {
		return nil, fmt.Errorf("objective: list by status %s: %w", status, err)
	}
	return objectives, nil
}

// ListActive returns objectives still being planned or executed.
func ListActive(db *gorm.DB) ([]models.Objective, error) {
	var objectives []models.Objective
	if err := db.Where("status IN ?",
		[]string{models.ObjectiveStatusPlanning, models.ObjectiveStatusExecuting}).
		Order("created_at ASC").Find(&objectives).Error; err != nil {
		return nil, fmt.Errorf("objective: list active: %w", err)
	}
	return objectives, nil
}

// MarkCompleted finishes an objective, stamping the completion time.
// Returns false when the objective is missing or already terminal.
func MarkCompleted(db *gorm.DB, id string) (bool, error) {
	return markTerminal(db, id, models.ObjectiveStatusCompleted)
}

// MarkFailed fails an objective, stamping the completion time.
func MarkFailed(db *gorm.DB, id string) (bool, error) {
	return markTerminal(db, id, models.ObjectiveStatusFailed)
}

func markTerminal(db *gorm.DB, id, status string) (bool, error) {
	now := time.Now()
	result := db.Model(&models.Objective{}).
		Where("id = ? AND status IN ?", id,
			[]string{models.ObjectiveStatusPlanning, models.ObjectiveStatusExecuting}).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("objective: mark %s %s: %w", status, id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete removes an objective and its task links. Member tasks are
// independently owned and are not cascade-deleted.
func Delete(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.Objective{})
		if result.Error != nil {
			return fmt.Errorf("objective: delete %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("objective: not found: %s", id)
		}
		if err := tx.Where("objective_id = ?", id).Delete(&models.ObjectiveTask{}).Error; err != nil {
			return fmt.Errorf("objective: delete links of %s: %w", id, err)
		}
		return nil
	})
}
