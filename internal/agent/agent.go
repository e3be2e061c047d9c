// Package agent provides the agent registry and performance metrics.
package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// RegisterOpts holds parameters for registering a new agent.
type RegisterOpts struct {
	ID            string
	Type          string // researcher, developer, analyzer, coordinator, reviewer
	Name          string
	Capabilities  []string
	Directive     string
	MaxConcurrent int // defaults to 1
	Priority      int // higher = preferred by ListAvailable
}

// validTypes is the fixed role enumeration.
var validTypes = map[string]bool{
	models.AgentTypeResearcher:  true,
	models.AgentTypeDeveloper:   true,
	models.AgentTypeAnalyzer:    true,
	models.AgentTypeCoordinator: true,
	models.AgentTypeReviewer:    true,
}

// Register creates an agent together with its zeroed metrics row in one
// transaction, so metrics exist for the agent's whole lifetime.
func Register(db *gorm.DB, opts RegisterOpts) (*models.Agent, error) {
	if opts.ID == "" {
		return nil, fmt.Errorf("agent: ID is required")
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("agent: name is required")
	}
	if !validTypes[opts.Type] {
		return nil, fmt.Errorf("agent: invalid type %q", opts.Type)
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}

	capabilities, err := models.EncodeStrings(opts.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}

	a := models.Agent{
		ID:            opts.ID,
		Type:          opts.Type,
		Name:          opts.Name,
		Status:        models.AgentStatusIdle,
		Capabilities:  capabilities,
		Directive:     opts.Directive,
		MaxConcurrent: opts.MaxConcurrent,
		Priority:      opts.Priority,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&a).Error; err != nil {
			return fmt.Errorf("agent: register %s: %w", opts.ID, err)
		}
		metrics := models.AgentMetrics{
			AgentID:      opts.ID,
			LastActivity: time.Now(),
		}
		if err := tx.Create(&metrics).Error; err != nil {
			return fmt.Errorf("agent: create metrics for %s: %w", opts.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Get retrieves an agent by ID with its metrics preloaded.
func Get(db *gorm.DB, id string) (*models.Agent, error) {
	var a models.Agent
	if err := db.Preload("Metrics").Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("agent: not found: %s", id)
		}
		return nil, fmt.Errorf("agent: get %s: %w", id, err)
	}
	return &a, nil
}

// ListByType returns agents of one role category.
func ListByType(db *gorm.DB, agentType string) ([]models.Agent, error) {
	var agents []models.Agent
	if err := db.Where("type = ?", agentType).
		Order("priority DESC, created_at ASC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("agent: list by type %s: %w", agentType, err)
	}
	return agents, nil
}

// ListByStatus returns agents in one status.
func ListByStatus(db *gorm.DB, status string) ([]models.Agent, error) {
	var agents []models.Agent
	if err := db.Where("status = ?", status).
		Order("priority DESC, created_at ASC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("agent: list by status %s: %w", status, err)
	}
	return agents, nil
}

// ListAvailable returns up to limit idle agents, ordered by priority then
// historical completed-task count. A work-quality heuristic, not true load
// balancing: capability matching stays with the caller.
func ListAvailable(db *gorm.DB, limit int) ([]models.Agent, error) {
	if limit <= 0 {
		limit = 10
	}
	var agents []models.Agent
	if err := db.Joins("JOIN agent_metrics ON agent_metrics.agent_id = agents.id").
		Where("agents.status = ?", models.AgentStatusIdle).
		Order("agents.priority DESC, agent_metrics.tasks_completed DESC").
		Limit(limit).
		Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("agent: list available: %w", err)
	}
	return agents, nil
}

// UpdateOpts holds the mutable agent fields. Nil pointers are left unchanged.
type UpdateOpts struct {
	Name          *string
	Status        *string
	Capabilities  []string
	Directive     *string
	MaxConcurrent *int
	Priority      *int
}

// Update modifies mutable agent fields. Type and ID are immutable.
func Update(db *gorm.DB, id string, opts UpdateOpts) error {
	updates := map[string]interface{}{}
	if opts.Name != nil {
		updates["name"] = *opts.Name
	}
	if opts.Status != nil {
		updates["status"] = *opts.Status
	}
	if opts.Capabilities != nil {
		capabilities, err := models.EncodeStrings(opts.Capabilities)
		if err != nil {
			return fmt.Errorf("agent: %w", err)
		}
		updates["capabilities"] = capabilities
	}
	if opts.Directive != nil {
		updates["directive"] = *opts.Directive
	}
	if opts.MaxConcurrent != nil {
		updates["max_concurrent"] = *opts.MaxConcurrent
	}
	if opts.Priority != nil {
		updates["priority"] = *opts.Priority
	}
	if len(updates) == 0 {
		return nil
	}

	result := db.Model(&models.Agent{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("agent: update %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("agent: not found: %s", id)
	}
	return nil
}

// Delete removes an agent and its metrics row.
func Delete(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.Agent{})
		if result.Error != nil {
			return fmt.Errorf("agent: delete %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("agent: not found: %s", id)
		}
		if err := tx.Where("agent_id = ?", id).Delete(&models.AgentMetrics{}).Error; err != nil {
			return fmt.Errorf("agent: delete metrics for %s: %w", id, err)
		}
		return nil
	})
}

// Capabilities decodes an agent's capability tags.
func Capabilities(a *models.Agent) ([]string, error) {
	return models.DecodeStrings(a.Capabilities)
}
