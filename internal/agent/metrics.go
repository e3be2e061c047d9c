package agent

import (
	"fmt"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// IncrementMetrics adds one finished task to an agent's counters and
// refreshes last activity. The increments are commutative SQL expressions,
// so concurrent callers are both honored.
func IncrementMetrics(db *gorm.DB, agentID string, completed bool, durationMs int64) error {
	counter := "tasks_failed"
	if completed {
		counter = "tasks_completed"
	}

	result := db.Model(&models.AgentMetrics{}).
		Where("agent_id = ?", agentID).
		Updates(map[string]interface{}{
			counter:             gorm.Expr(counter+" + ?", 1),
			"total_duration_ms": gorm.Expr("total_duration_ms + ?", durationMs),
			"last_activity":     time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("agent: increment metrics for %s: %w", agentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("agent: metrics not found: %s", agentID)
	}
	return nil
}

// TouchActivity refreshes an agent's last-activity timestamp without
// changing counters. Used as a heartbeat by long-running workers.
func TouchActivity(db *gorm.DB, agentID string) error {
	result := db.Model(&models.AgentMetrics{}).
		Where("agent_id = ?", agentID).
		Update("last_activity", time.Now())
	if result.Error != nil {
		return fmt.Errorf("agent: touch activity for %s: %w", agentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("agent: metrics not found: %s", agentID)
	}
	return nil
}

// PerformanceStats aggregates registry-wide agent performance.
type PerformanceStats struct {
	TotalAgents    int64
	ByStatus       map[string]int64
	TasksCompleted int64
	TasksFailed    int64
	AvgDurationMs  int64 // mean execution time per completed task
}

// Performance computes registry performance statistics on demand.
func Performance(db *gorm.DB) (*PerformanceStats, error) {
	stats := &PerformanceStats{ByStatus: make(map[string]int64)}

	if err := db.Model(&models.Agent{}).Count(&stats.TotalAgents).Error; err != nil {
		return nil, fmt.Errorf("agent: count agents: %w", err)
	}

	type statusRow struct {
		Status string
		Count  int64
	}
	var rows []statusRow
	if err := db.Model(&models.Agent{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("agent: count by status: %w", err)
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
	}

	type totals struct {
		Completed int64
		Failed    int64
		Duration  int64
	}
	var t totals
	if err := db.Model(&models.AgentMetrics{}).
		Select("COALESCE(SUM(tasks_completed),0) as completed, COALESCE(SUM(tasks_failed),0) as failed, COALESCE(SUM(total_duration_ms),0) as duration").
		Scan(&t).Error; err != nil {
		return nil, fmt.Errorf("agent: sum metrics: %w", err)
	}
	stats.TasksCompleted = t.Completed
	stats.TasksFailed = t.Failed
	if t.Completed > 0 {
		stats.AvgDurationMs = t.Duration / t.Completed
	}
	return stats, nil
}
