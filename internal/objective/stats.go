package objective

import (
	"fmt"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// Stats aggregates objective-level statistics.
type Stats struct {
	Total             int64
	ByStatus          map[string]int64
	AvgCompletionRate float64 // mean Progress over all objectives, percent
}

// ComputeStats calculates objective statistics on demand.
func ComputeStats(db *gorm.DB) (*Stats, error) {
	stats := &Stats{ByStatus: make(map[string]int64)}

	if err := db.Model(&models.Objective{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("objective: count: %w", err)
	}

	type statusRow struct {
		Status string
		Count  int64
	}
	var rows []statusRow
	if err := db.Model(&models.Objective{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("objective: count by status: %w", err)
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
	}

	if stats.Total > 0 {
		type rateRow struct {
			ObjectiveID string
			Total       int64
			Completed   int64
		}
		var rates []rateRow
		if err := db.Table("objective_tasks").
			Select("objective_tasks.objective_id, COUNT(*) as total, "+
				"SUM(CASE WHEN tasks.status = ? THEN 1 ELSE 0 END) as completed",
				models.TaskStatusCompleted).
			Joins("LEFT JOIN tasks ON tasks.id = objective_tasks.task_id").
			Group("objective_tasks.objective_id").
			Find(&rates).Error; err != nil {
			return nil, fmt.Errorf("objective: completion rates: %w", err)
		}
		var sum float64
		for _, r := range rates {
			if r.Total > 0 {
				sum += float64(r.Completed) / float64(r.Total) * 100
			}
		}
		// Objectives with no tasks count as 0 percent.
		stats.AvgCompletionRate = sum / float64(stats.Total)
	}
	return stats, nil
}
