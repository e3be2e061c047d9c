// Package messaging provides the persisted inter-agent message bus.
package messaging

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// priorityRank orders messages most-urgent first in SQL. Priorities are
// stored as strings, so ordering needs an explicit rank expression.
const priorityRank = "CASE messages.priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END"

// PublishOpts holds parameters for publishing a message.
type PublishOpts struct {
	ID            string // optional; generated when empty
	Type          string
	Sender        string
	Receivers     []string
	Content       string
	ContentType   string // defaults to text/plain
	Priority      string // defaults to normal
	Reliability   string // defaults to best_effort; stored metadata only
	CorrelationID string
	ReplyTo       string
	Route         []string // ordered hop trace
	TTLMs         int64    // 0 = never expires
}

// GenerateID creates a unique message ID in msg-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("messaging: generate ID: %w", err)
	}
	return "msg-" + hex.EncodeToString(b)[:5], nil
}

// Publish stores a message together with its fixed receiver set.
func Publish(db *gorm.DB, opts PublishOpts) (*models.Message, error) {
	if opts.Type == "" {
		return nil, fmt.Errorf("messaging: type is required")
	}
	if opts.Sender == "" {
		return nil, fmt.Errorf("messaging: sender is required")
	}
	if len(opts.Receivers) == 0 {
		return nil, fmt.Errorf("messaging: at least one receiver is required")
	}
	if opts.ContentType == "" {
		opts.ContentType = "text/plain"
	}
	if opts.Priority == "" {
		opts.Priority = models.PriorityNormal
	}
	if opts.Reliability == "" {
		opts.Reliability = models.ReliabilityBestEffort
	}

	id := opts.ID
	if id == "" {
		var err error
		id, err = GenerateID()
		if err != nil {
			return nil, err
		}
	}

	route, err := models.EncodeStrings(opts.Route)
	if err != nil {
		return nil, fmt.Errorf("messaging: %w", err)
	}

	now := time.Now()
	msg := models.Message{
		ID:            id,
		Type:          opts.Type,
		Sender:        opts.Sender,
		Content:       opts.Content,
		ContentType:   opts.ContentType,
		SizeBytes:     int64(len(opts.Content)),
		Priority:      opts.Priority,
		Reliability:   opts.Reliability,
		CorrelationID: opts.CorrelationID,
		ReplyTo:       opts.ReplyTo,
		Route:         route,
		TTLMs:         opts.TTLMs,
		CreatedAt:     now,
	}
	if opts.TTLMs > 0 {
		expires := now.Add(time.Duration(opts.TTLMs) * time.Millisecond)
		msg.ExpiresAt = &expires
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("messaging: publish: %w", err)
		}
		for _, receiver := range opts.Receivers {
			rec := models.MessageReceiver{MessageID: id, AgentID: receiver}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("messaging: add receiver %s: %w", receiver, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Get retrieves a message by ID with receivers and acknowledgments preloaded.
func Get(db *gorm.DB, id string) (*models.Message, error) {
	var msg models.Message
	if err := db.Preload("Receivers").Preload("Acks").
		Where("id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("messaging: not found: %s", id)
		}
		return nil, fmt.Errorf("messaging: get %s: %w", id, err)
	}
	return &msg, nil
}

// ListBySender returns messages sent by one agent, newest first.
func ListBySender(db *gorm.DB, sender string) ([]models.Message, error) {
	var msgs []models.Message
	if err := db.Where("sender = ?", sender).
		Order("created_at DESC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("messaging: list by sender %s: %w", sender, err)
	}
	return msgs, nil
}

// ListByReceiver returns messages addressed to one agent, newest first.
func ListByReceiver(db *gorm.DB, agentID string) ([]models.Message, error) {
	var msgs []models.Message
	if err := db.Joins("JOIN message_receivers r ON r.message_id = messages.id").
		Where("r.agent_id = ?", agentID).
		Order("messages.created_at DESC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("messaging: list by receiver %s: %w", agentID, err)
	}
	return msgs, nil
}

// ListByType returns messages of one type tag, newest first.
func ListByType(db *gorm.DB, msgType string) ([]models.Message, error) {
	var msgs []models.Message
	if err := db.Where("type = ?", msgType).
		Order("created_at DESC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("messaging: list by type %s: %w", msgType, err)
	}
	return msgs, nil
}

// ListByCorrelation returns a request/response thread, oldest first.
func ListByCorrelation(db *gorm.DB, correlationID string) ([]models.Message, error) {
	var msgs []models.Message
	if err := db.Where("correlation_id = ?", correlationID).
		Order("created_at ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("messaging: list by correlation %s: %w", correlationID, err)
	}
	return msgs, nil
}

// FindExpired returns messages whose expiry timestamp is in the past.
func FindExpired(db *gorm.DB) ([]models.Message, error) {
	var msgs []models.Message
	if err := db.Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Order("expires_at ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("messaging: find expired: %w", err)
	}
	return msgs, nil
}

// FindUnacknowledged returns messages addressed to the agent that it has not
// acknowledged yet, most urgent first then oldest first. Callers poll this
// to honor at-least-once and exactly-once reliability classes.
func FindUnacknowledged(db *gorm.DB, agentID string) ([]models.Message, error) {
	if agentID == "" {
		return nil, fmt.Errorf("messaging: agentID is required")
	}

	ackSub := db.Table("message_acks").
		Select("message_id").
		Where("agent_id = ?", agentID)

	var msgs []models.Message
	if err := db.Joins("JOIN message_receivers r ON r.message_id = messages.id").
		Where("r.agent_id = ?", agentID).
		Where("messages.id NOT IN (?)", ackSub).
		Order(priorityRank + " ASC, messages.created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("messaging: unacknowledged for %s: %w", agentID, err)
	}
	return msgs, nil
}

// Route decodes the ordered hop trace of a message.
func Route(m *models.Message) ([]string, error) {
	return models.DecodeStrings(m.Route)
}
