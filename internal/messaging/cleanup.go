package messaging

import (
	"fmt"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// CleanupExpired deletes messages past their expiry timestamp, along with
// their receiver and acknowledgment rows. Returns the messages removed.
func CleanupExpired(db *gorm.DB) (int64, error) {
	return deleteMessagesWhere(db, "expires_at IS NOT NULL AND expires_at < ?", time.Now())
}

// CleanupOld deletes messages created more than the given number of days
// ago, regardless of acknowledgment state. Intended for a low-frequency
// retention sweep, not inline request handling.
func CleanupOld(db *gorm.DB, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("messaging: days must be positive")
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	return deleteMessagesWhere(db, "created_at < ?", cutoff)
}

func deleteMessagesWhere(db *gorm.DB, cond string, args ...interface{}) (int64, error) {
	var removed int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.Message{}).Where(cond, args...).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("messaging: find messages: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("message_id IN ?", ids).Delete(&models.MessageAck{}).Error; err != nil {
			return fmt.Errorf("messaging: cleanup acks: %w", err)
		}
		if err := tx.Where("message_id IN ?", ids).Delete(&models.MessageReceiver{}).Error; err != nil {
			return fmt.Errorf("messaging: cleanup receivers: %w", err)
		}
		result := tx.Where("id IN ?", ids).Delete(&models.Message{})
		if result.Error != nil {
			return fmt.Errorf("messaging: cleanup: %w", result.Error)
		}
		removed = result.RowsAffected
		return nil
	})
	return removed, err
}
