package db

import (
	"fmt"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Agent{},
		&models.AgentMetrics{},
		&models.Task{},
		&models.TaskDep{},
		&models.Objective{},
		&models.ObjectiveTask{},
		&models.Message{},
		&models.MessageReceiver{},
		&models.MessageAck{},
		&models.ConsensusDecision{},
		&models.MemoryEntry{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
