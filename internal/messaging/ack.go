package messaging

import (
	"fmt"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Acknowledge records an agent's acknowledgment of a message as an
// idempotent upsert: a repeat ack from the same agent replaces the earlier
// one. Returns false without error when the message does not exist or the
// agent is not one of its receivers.
func Acknowledge(db *gorm.DB, messageID, agentID, status string) (bool, error) {
	if status != models.AckAccepted && status != models.AckRejected {
		return false, fmt.Errorf("messaging: invalid ack status %q", status)
	}

	var count int64
	if err := db.Model(&models.MessageReceiver{}).
		Where("message_id = ? AND agent_id = ?", messageID, agentID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("messaging: check receiver %s/%s: %w", messageID, agentID, err)
	}
	if count == 0 {
		return false, nil
	}

	ack := models.MessageAck{
		MessageID: messageID,
		AgentID:   agentID,
		Status:    status,
		AckedAt:   time.Now(),
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "agent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "acked_at"}),
	}).Create(&ack)
	if result.Error != nil {
		return false, fmt.Errorf("messaging: acknowledge %s by %s: %w", messageID, agentID, result.Error)
	}
	return true, nil
}

// AcknowledgeBulk acknowledges several messages for one agent, returning the
// number actually applied. Unknown messages are skipped, not errors.
func AcknowledgeBulk(db *gorm.DB, messageIDs []string, agentID, status string) (int, error) {
	applied := 0
	for _, id := range messageIDs {
		ok, err := Acknowledge(db, id, agentID, status)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}

// DeliveryStatus summarizes acknowledgment progress for one message.
type DeliveryStatus struct {
	MessageID    string
	Receivers    int64
	Acknowledged int64
	Rejected     int64
	Pending      int64
	DeliveryRate float64 // acknowledged / receivers * 100
}

// Delivery computes the delivery status of a message on demand.
func Delivery(db *gorm.DB, messageID string) (*DeliveryStatus, error) {
	var receivers int64
	if err := db.Model(&models.MessageReceiver{}).
		Where("message_id = ?", messageID).Count(&receivers).Error; err != nil {
		return nil, fmt.Errorf("messaging: count receivers of %s: %w", messageID, err)
	}
	if receivers == 0 {
		return nil, fmt.Errorf("messaging: not found: %s", messageID)
	}

	status := &DeliveryStatus{MessageID: messageID, Receivers: receivers}
	if err := db.Model(&models.MessageAck{}).
		Where("message_id = ? AND status = ?", messageID, models.AckAccepted).
		Count(&status.Acknowledged).Error; err != nil {
		return nil, fmt.Errorf("messaging: count acks of %s: %w", messageID, err)
	}
	if err := db.Model(&models.MessageAck{}).
		Where("message_id = ? AND status = ?", messageID, models.AckRejected).
		Count(&status.Rejected).Error; err != nil {
		return nil, fmt.Errorf("messaging: count rejects of %s: %w", messageID, err)
	}

	status.Pending = receivers - status.Acknowledged - status.Rejected
	status.DeliveryRate = float64(status.Acknowledged) / float64(receivers) * 100
	return status, nil
}
