// Package memory provides the collective memory store: tagged,
// visibility-scoped knowledge entries produced by agents.
package memory

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for creating a memory entry.
type CreateOpts struct {
	ID          string // optional; generated when empty
	AgentID     string
	Kind        string // knowledge, result, state, communication, error
	Content     string
	TaskID      string
	ObjectiveID string
	Tags        []string
	Priority    int
	Visibility  string // defaults to private
}

var validKinds = map[string]bool{
	models.MemoryKindKnowledge:     true,
	models.MemoryKindResult:        true,
	models.MemoryKindState:         true,
	models.MemoryKindCommunication: true,
	models.MemoryKindError:         true,
}

var validVisibilities = map[string]bool{
	models.VisibilityPrivate: true,
	models.VisibilityTeam:    true,
	models.VisibilityPublic:  true,
}

// GenerateID creates a unique entry ID in mem-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("memory: generate ID: %w", err)
	}
	return "mem-" + hex.EncodeToString(b)[:5], nil
}

// Create stores a new memory entry. Kind and owner are immutable afterward.
func Create(db *gorm.DB, opts CreateOpts) (*models.MemoryEntry, error) {
	if opts.AgentID == "" {
		return nil, fmt.Errorf("memory: agentID is required")
	}
	if !validKinds[opts.Kind] {
		return nil, fmt.Errorf("memory: invalid kind %q", opts.Kind)
	}
	if opts.Content == "" {
		return nil, fmt.Errorf("memory: content is required")
	}
	if opts.Visibility == "" {
		opts.Visibility = models.VisibilityPrivate
	}
	if !validVisibilities[opts.Visibility] {
		return nil, fmt.Errorf("memory: invalid visibility %q", opts.Visibility)
	}

	id := opts.ID
	if id == "" {
		var err error
		id, err = GenerateID()
		if err != nil {
			return nil, err
		}
	}

	tags, err := models.EncodeStrings(opts.Tags)
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}

	e := models.MemoryEntry{
		ID:          id,
		AgentID:     opts.AgentID,
		Kind:        opts.Kind,
		Content:     opts.Content,
		TaskID:      opts.TaskID,
		ObjectiveID: opts.ObjectiveID,
		Tags:        tags,
		Priority:    opts.Priority,
		Visibility:  opts.Visibility,
	}
	if err := db.Create(&e).Error; err != nil {
		return nil, fmt.Errorf("memory: create: %w", err)
	}
	return &e, nil
}

// Get retrieves an entry by ID.
func Get(db *gorm.DB, id string) (*models.MemoryEntry, error) {
	var e models.MemoryEntry
	if err := db.Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("memory: not found: %s", id)
		}
		return nil, fmt.Errorf("memory: get %s: %w", id, err)
	}
	return &e, nil
}

// ListByAgent returns an agent's entries, newest first.
func ListByAgent(db *gorm.DB, agentID string) ([]models.MemoryEntry, error) {
	var entries []models.MemoryEntry
	if err := db.Where("agent_id = ?", agentID).
		Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("memory: list by agent %s: %w", agentID, err)
	}
	return entries, nil
}

// UpdateOpts holds the mutable entry fields. Nil pointers are left
// unchanged. Kind and owner cannot be updated.
type UpdateOpts struct {
	Content    *string
	Tags       []string
	Priority   *int
	Visibility *string
}

// Update modifies the mutable fields of an entry.
func Update(db *gorm.DB, id string, opts UpdateOpts) error {
	updates := map[string]interface{}{}
	if opts.Content != nil {
		updates["content"] = *opts.Content
	}
	if opts.Tags != nil {
		tags, err := models.EncodeStrings(opts.Tags)
		if err != nil {
			return fmt.Errorf("memory: %w", err)
		}
		updates["tags"] = tags
	}
	if opts.Priority != nil {
		updates["priority"] = *opts.Priority
	}
	if opts.Visibility != nil {
		if !validVisibilities[*opts.Visibility] {
			return fmt.Errorf("memory: invalid visibility %q", *opts.Visibility)
		}
		updates["visibility"] = *opts.Visibility
	}
	if len(updates) == 0 {
		return nil
	}

	result := db.Model(&models.MemoryEntry{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("memory: update %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("memory: not found: %s", id)
	}
	return nil
}

// Delete removes one entry.
func Delete(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.MemoryEntry{})
	if result.Error != nil {
		return fmt.Errorf("memory: delete %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("memory: not found: %s", id)
	}
	return nil
}

// DeleteByAgent removes all entries owned by one agent, returning the count.
func DeleteByAgent(db *gorm.DB, agentID string) (int64, error) {
	result := db.Where("agent_id = ?", agentID).Delete(&models.MemoryEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("memory: delete by agent %s: %w", agentID, result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupOld removes entries created more than the given number of days ago.
func CleanupOld(db *gorm.DB, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("memory: days must be positive")
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	result := db.Where("created_at < ?", cutoff).Delete(&models.MemoryEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("memory: cleanup: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Tags decodes an entry's tag set.
func Tags(e *models.MemoryEntry) ([]string, error) {
	return models.DecodeStrings(e.Tags)
}
