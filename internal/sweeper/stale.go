package sweeper

import (
	"fmt"
	"time"

	"github.com/corvid-labs/waggle/internal/agent"
	"github.com/corvid-labs/waggle/internal/models"
	"github.com/corvid-labs/waggle/internal/notify"
	"github.com/corvid-labs/waggle/internal/task"
	"gorm.io/gorm"
)

// StaleAgents returns busy or active agents whose last activity is older
// than the threshold.
func StaleAgents(db *gorm.DB, threshold time.Duration) ([]models.Agent, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("sweeper: threshold must be positive")
	}
	cutoff := time.Now().Add(-threshold)

	var agents []models.Agent
	if err := db.Joins("JOIN agent_metrics ON agent_metrics.agent_id = agents.id").
		Where("agents.status IN ? AND agent_metrics.last_activity < ?",
			[]string{models.AgentStatusBusy, models.AgentStatusActive}, cutoff).
		Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("sweeper: find stale agents: %w", err)
	}
	return agents, nil
}

// RecoverStaleAgents releases work held by stale agents and marks them
// failed. Assigned or in-progress tasks go back to pending through the
// retry path, so a task bounced too many times still lands in terminal
// failure. Returns the number of agents recovered.
func RecoverStaleAgents(db *gorm.DB, threshold time.Duration, notifier *notify.Fanout) (int, error) {
	stale, err := StaleAgents(db, threshold)
	if err != nil {
		return 0, err
	}

	for _, a := range stale {
		held, err := task.List(db, task.ListFilters{AssignedAgent: a.ID})
		if err != nil {
			return 0, err
		}

		released, exhausted := 0, 0
		for _, t := range held {
			if t.Status != models.TaskStatusAssigned && t.Status != models.TaskStatusInProgress {
				continue
			}
			result, err := task.Retry(db, t.ID)
			if err != nil {
				return 0, fmt.Errorf("sweeper: release task %s: %w", t.ID, err)
			}
			switch result {
			case task.Retried:
				released++
			case task.RetryExhausted:
				exhausted++
			}
		}

		status := models.AgentStatusFailed
		if err := agent.Update(db, a.ID, agent.UpdateOpts{Status: &status}); err != nil {
			return 0, fmt.Errorf("sweeper: mark agent %s failed: %w", a.ID, err)
		}

		if notifier != nil && notifier.Len() > 0 {
			notifier.Notify(notify.Event{
				Title: fmt.Sprintf("Agent %s stale", a.ID),
				Body: fmt.Sprintf("No activity for over %s; %d tasks re-queued, %d exhausted retries.",
					threshold, released, exhausted),
				Severity: notify.SeverityWarning,
				Time:     time.Now(),
			})
		}
	}
	return len(stale), nil
}
