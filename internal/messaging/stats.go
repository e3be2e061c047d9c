package messaging

import (
	"fmt"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// Stats aggregates bus-wide message statistics for observability.
type Stats struct {
	Total           int64
	ByType          map[string]int64
	ByPriority      map[string]int64
	AvgDeliveryRate float64 // mean per-message acked/receivers, percent
	AvgSizeBytes    int64
	Last24h         int64
}

// ComputeStats calculates message statistics on demand.
func ComputeStats(db *gorm.DB) (*Stats, error) {
	stats := &Stats{
		ByType:     make(map[string]int64),
		ByPriority: make(map[string]int64),
	}

	if err := db.Model(&models.Message{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("messaging: count: %w", err)
	}

	type bucket struct {
		Key   string
		Count int64
	}
	var byType []bucket
	if err := db.Model(&models.Message{}).
		Select("type as `key`, COUNT(*) as count").
		Group("type").Find(&byType).Error; err != nil {
		return nil, fmt.Errorf("messaging: count by type: %w", err)
	}
	for _, b := range byType {
		stats.ByType[b.Key] = b.Count
	}

	var byPriority []bucket
	if err := db.Model(&models.Message{}).
		Select("priority as `key`, COUNT(*) as count").
		Group("priority").Find(&byPriority).Error; err != nil {
		return nil, fmt.Errorf("messaging: count by priority: %w", err)
	}
	for _, b := range byPriority {
		stats.ByPriority[b.Key] = b.Count
	}

	type avgRow struct {
		AvgSize float64
	}
	var avg avgRow
	if err := db.Model(&models.Message{}).
		Select("COALESCE(AVG(size_bytes),0) as avg_size").
		Scan(&avg).Error; err != nil {
		return nil, fmt.Errorf("messaging: average size: %w", err)
	}
	stats.AvgSizeBytes = int64(avg.AvgSize)

	if err := db.Model(&models.Message{}).
		Where("created_at > ?", time.Now().Add(-24*time.Hour)).
		Count(&stats.Last24h).Error; err != nil {
		return nil, fmt.Errorf("messaging: recent count: %w", err)
	}

	// Per-message delivery rate averaged across messages with receivers.
	type rateRow struct {
		MessageID string
		Receivers int64
		Acked     int64
	}
	var rates []rateRow
	if err := db.Table("message_receivers").
		Select("message_receivers.message_id, COUNT(*) as receivers, " +
			"SUM(CASE WHEN message_acks.status = 'acknowledged' THEN 1 ELSE 0 END) as acked").
		Joins("LEFT JOIN message_acks ON message_acks.message_id = message_receivers.message_id AND message_acks.agent_id = message_receivers.agent_id").
		Group("message_receivers.message_id").
		Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("messaging: delivery rates: %w", err)
	}
	if len(rates) > 0 {
		var sum float64
		for _, r := range rates {
			sum += float64(r.Acked) / float64(r.Receivers) * 100
		}
		stats.AvgDeliveryRate = sum / float64(len(rates))
	}
	return stats, nil
}
