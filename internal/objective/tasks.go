package objective

import (
	"errors"
	"fmt"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// AttachTask links a task into an objective. order <= 0 appends at the end;
// an explicit order shifts later entries down to stay contiguous. The first
// attachment moves a planning objective to executing.
func AttachTask(db *gorm.DB, objectiveID, taskID string, order int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return attachTask(tx, objectiveID, taskID, order)
	})
}

// AttachTasks links several tasks in the given order, appended after any
// existing entries, in one transaction.
func AttachTasks(db *gorm.DB, objectiveID string, taskIDs []string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, taskID := range taskIDs {
			if err := attachTask(tx, objectiveID, taskID, 0); err != nil {
				return err
			}
		}
		return nil
	})
}

func attachTask(tx *gorm.DB, objectiveID, taskID string, order int) error {
	var o models.Objective
	if err := tx.Where("id = ?", objectiveID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("objective: not found: %s", objectiveID)
		}
		return fmt.Errorf("objective: get %s: %w", objectiveID, err)
	}

	var count int64
	if err := tx.Model(&models.ObjectiveTask{}).
		Where("objective_id = ? AND task_id = ?", objectiveID, taskID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("objective: check link %s/%s: %w", objectiveID, taskID, err)
	}
	if count > 0 {
		return fmt.Errorf("objective: task %s already attached to %s", taskID, objectiveID)
	}

	var maxSeq int
	if err := tx.Model(&models.ObjectiveTask{}).
		Where("objective_id = ?", objectiveID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&maxSeq).Error; err != nil {
		return fmt.Errorf("objective: max sequence of %s: %w", objectiveID, err)
	}

	if order <= 0 || order > maxSeq {
		order = maxSeq + 1
	} else {
		// Shift later entries down to make room.
		if err := tx.Model(&models.ObjectiveTask{}).
			Where("objective_id = ? AND sequence >= ?", objectiveID, order).
			Update("sequence", gorm.Expr("sequence + 1")).Error; err != nil {
			return fmt.Errorf("objective: shift sequences of %s: %w", objectiveID, err)
		}
	}

	link := models.ObjectiveTask{
		ObjectiveID: objectiveID,
		TaskID:      taskID,
		Sequence:    order,
	}
	if err := tx.Create(&link).Error; err != nil {
		return fmt.Errorf("objective: attach %s to %s: %w", taskID, objectiveID, err)
	}

	// First attachment starts execution.
	if o.Status == models.ObjectiveStatusPlanning {
		if err := tx.Model(&models.Objective{}).
			Where("id = ?", objectiveID).
			Update("status", models.ObjectiveStatusExecuting).Error; err != nil {
			return fmt.Errorf("objective: start executing %s: %w", objectiveID, err)
		}
	}
	return nil
}

// DetachTask removes a task link and renumbers the remaining entries so
// sequences stay contiguous from 1.
func DetachTask(db *gorm.DB, objectiveID, taskID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("objective_id = ? AND task_id = ?", objectiveID, taskID).
			Delete(&models.ObjectiveTask{})
		if result.Error != nil {
			return fmt.Errorf("objective: detach %s from %s: %w", taskID, objectiveID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("objective: task %s not attached to %s", taskID, objectiveID)
		}
		return renumber(tx, objectiveID)
	})
}

// Reorder replaces the sequence of an objective's tasks with the given
// order. Every currently attached task must appear exactly once.
func Reorder(db *gorm.DB, objectiveID string, taskIDs []string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var links []models.ObjectiveTask
		if err := tx.Where("objective_id = ?", objectiveID).Find(&links).Error; err != nil {
			return fmt.Errorf("objective: load links of %s: %w", objectiveID, err)
		}
		if len(links) != len(taskIDs) {
			return fmt.Errorf("objective: reorder %s: got %d tasks, have %d attached",
				objectiveID, len(taskIDs), len(links))
		}
		attached := make(map[string]bool, len(links))
		for _, l := range links {
			attached[l.TaskID] = true
		}
		for _, id := range taskIDs {
			if !attached[id] {
				return fmt.Errorf("objective: reorder %s: task %s not attached", objectiveID, id)
			}
			delete(attached, id)
		}

		for i, taskID := range taskIDs {
			if err := tx.Model(&models.ObjectiveTask{}).
				Where("objective_id = ? AND task_id = ?", objectiveID, taskID).
				Update("sequence", i+1).Error; err != nil {
				return fmt.Errorf("objective: reorder %s: %w", objectiveID, err)
			}
		}
		return nil
	})
}

// Progress returns the percentage of attached tasks currently completed,
// 0 for an objective with no attached tasks.
func Progress(db *gorm.DB, objectiveID string) (float64, error) {
	var o models.Objective
	if err := db.Where("id = ?", objectiveID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("objective: not found: %s", objectiveID)
		}
		return 0, fmt.Errorf("objective: get %s: %w", objectiveID, err)
	}

	var total int64
	if err := db.Model(&models.ObjectiveTask{}).
		Where("objective_id = ?", objectiveID).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("objective: count tasks of %s: %w", objectiveID, err)
	}
	if total == 0 {
		return 0, nil
	}

	var completed int64
	if err := db.Model(&models.ObjectiveTask{}).
		Joins("JOIN tasks ON tasks.id = objective_tasks.task_id").
		Where("objective_tasks.objective_id = ? AND tasks.status = ?",
			objectiveID, models.TaskStatusCompleted).
		Count(&completed).Error; err != nil {
		return 0, fmt.Errorf("objective: count completed of %s: %w", objectiveID, err)
	}
	return float64(completed) / float64(total) * 100, nil
}

// renumber rewrites sequences contiguously from 1, preserving order.
func renumber(tx *gorm.DB, objectiveID string) error {
	var links []models.ObjectiveTask
	if err := tx.Where("objective_id = ?", objectiveID).
		Order("sequence ASC").Find(&links).Error; err != nil {
		return fmt.Errorf("objective: load links of %s: %w", objectiveID, err)
	}
	for i, link := range links {
		if link.Sequence == i+1 {
			continue
		}
		if err := tx.Model(&models.ObjectiveTask{}).
			Where("objective_id = ? AND task_id = ?", objectiveID, link.TaskID).
			Update("sequence", i+1).Error; err != nil {
			return fmt.Errorf("objective: renumber %s: %w", objectiveID, err)
		}
	}
	return nil
}
