package task

import (
	"fmt"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// StatusCount holds a status and its task count.
type StatusCount struct {
	Status string
	Count  int64
}

// StatsByStatus returns task counts grouped by status.
func StatsByStatus(db *gorm.DB) ([]StatusCount, error) {
	var results []StatusCount
	if err := db.Model(&models.Task{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Order("status ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("task: stats by status: %w", err)
	}
	return results, nil
}

// PerformanceMetrics aggregates execution timing over finished tasks.
type PerformanceMetrics struct {
	Completed     int64
	Failed        int64
	Retried       int64 // tasks with at least one recorded retry
	AvgDurationMs int64 // mean started->completed over completed tasks
}

// Performance computes aggregate task performance on demand.
func Performance(db *gorm.DB) (*PerformanceMetrics, error) {
	var m PerformanceMetrics
	if err := db.Model(&models.Task{}).
		Where("status = ?", models.TaskStatusCompleted).
		Count(&m.Completed).Error; err != nil {
		return nil, fmt.Errorf("task: count completed: %w", err)
	}
	if err := db.Model(&models.Task{}).
		Where("status = ?", models.TaskStatusFailed).
		Count(&m.Failed).Error; err != nil {
		return nil, fmt.Errorf("task: count failed: %w", err)
	}
	if err := db.Model(&models.Task{}).
		Where("retry_count > 0").
		Count(&m.Retried).Error; err != nil {
		return nil, fmt.Errorf("task: count retried: %w", err)
	}

	// Durations are computed in Go: date arithmetic differs between the
	// SQLite and MySQL drivers.
	var done []models.Task
	if err := db.Select("started_at, completed_at").
		Where("status = ? AND started_at IS NOT NULL AND completed_at IS NOT NULL",
			models.TaskStatusCompleted).
		Find(&done).Error; err != nil {
		return nil, fmt.Errorf("task: load completed durations: %w", err)
	}
	if len(done) > 0 {
		var totalMs int64
		for _, t := range done {
			totalMs += t.CompletedAt.Sub(*t.StartedAt).Milliseconds()
		}
		m.AvgDurationMs = totalMs / int64(len(done))
	}
	return &m, nil
}
