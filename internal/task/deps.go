package task

import (
	"fmt"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// AddDep records that taskID cannot run until dependsOn is completed.
// The blocking task need not exist yet: an absent dependency blocks
// scheduling rather than erroring. Self-dependencies and cycles among
// existing edges are rejected.
func AddDep(db *gorm.DB, taskID, dependsOn string) error {
	if taskID == dependsOn {
		return fmt.Errorf("dep: cannot add self-dependency on %s", taskID)
	}

	var count int64
	if err := db.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
		return fmt.Errorf("dep: check task %s: %w", taskID, err)
	}
	if count == 0 {
		return fmt.Errorf("dep: task not found: %s", taskID)
	}

	if hasCycle(db, taskID, dependsOn) {
		return fmt.Errorf("dep: adding %s -> %s would create a cycle", taskID, dependsOn)
	}

	dep := models.TaskDep{TaskID: taskID, DependsOn: dependsOn}
	if err := db.Create(&dep).Error; err != nil {
		return fmt.Errorf("dep: create %s -> %s: %w", taskID, dependsOn, err)
	}
	return nil
}

// RemoveDep deletes a dependency edge.
func RemoveDep(db *gorm.DB, taskID, dependsOn string) error {
	result := db.Where("task_id = ? AND depends_on = ?", taskID, dependsOn).
		Delete(&models.TaskDep{})
	if result.Error != nil {
		return fmt.Errorf("dep: remove %s -> %s: %w", taskID, dependsOn, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("dep: dependency %s -> %s not found", taskID, dependsOn)
	}
	return nil
}

// ListDeps returns the blockers of a task (what it waits on) and its
// dependents (what waits on it).
func ListDeps(db *gorm.DB, taskID string) (blockers []models.TaskDep, dependents []models.TaskDep, err error) {
	if err := db.Where("task_id = ?", taskID).Find(&blockers).Error; err != nil {
		return nil, nil, fmt.Errorf("dep: list blockers for %s: %w", taskID, err)
	}
	if err := db.Where("depends_on = ?", taskID).Find(&dependents).Error; err != nil {
		return nil, nil, fmt.Errorf("dep: list dependents for %s: %w", taskID, err)
	}
	return blockers, dependents, nil
}

// Ready returns pending tasks whose dependency set contains no task that is
// absent or not completed, highest priority first, oldest first within a
// priority. The LEFT JOIN makes an absent dependency block exactly like an
// incomplete one.
func Ready(db *gorm.DB) ([]models.Task, error) {
	blockedSub := db.Table("task_deps").
		Select("task_deps.task_id").
		Joins("LEFT JOIN tasks dep ON task_deps.depends_on = dep.id").
		Where("dep.id IS NULL OR dep.status <> ?", models.TaskStatusCompleted)

	var tasks []models.Task
	if err := db.Where("status = ?", models.TaskStatusPending).
		Where("id NOT IN (?)", blockedSub).
		Order("priority DESC, created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task: ready: %w", err)
	}
	return tasks, nil
}

// hasCycle checks if adding taskID -> dependsOn would create a cycle by
// walking existing edges from dependsOn looking for taskID.
func hasCycle(db *gorm.DB, taskID, dependsOn string) bool {
	visited := make(map[string]bool)
	return reachable(db, dependsOn, taskID, visited)
}

func reachable(db *gorm.DB, current, target string, visited map[string]bool) bool {
	if current == target {
		return true
	}
	if visited[current] {
		return false
	}
	visited[current] = true

	var deps []models.TaskDep
	if err := db.Where("task_id = ?", current).Find(&deps).Error; err != nil {
		return false
	}
	for _, d := range deps {
		if reachable(db, d.DependsOn, target, visited) {
			return true
		}
	}
	return false
}
