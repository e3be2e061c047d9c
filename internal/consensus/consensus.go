// Package consensus provides the append-only ledger of collective decisions.
//
// The ledger records externally-computed outcomes; vote tallying
// (majority/weighted/byzantine) is caller-side policy. Rows are never
// mutated after creation.
package consensus

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

// VoteSummary is the tally a caller computed before recording a decision.
type VoteSummary struct {
	For     int            `json:"for"`
	Against int            `json:"against"`
	Abstain int            `json:"abstain"`
	Detail  map[string]any `json:"detail,omitempty"` // optional per-voter detail
}

// RecordOpts holds parameters for appending a decision.
type RecordOpts struct {
	ID         string // optional; generated when empty
	SwarmID    string // owning objective/swarm scope
	Topic      string
	Decision   string
	Votes      VoteSummary
	Algorithm  string  // defaults to majority
	Confidence float64 // must be in [0,1]
}

// GenerateID creates a unique decision ID in dec-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("consensus: generate ID: %w", err)
	}
	return "dec-" + hex.EncodeToString(b)[:5], nil
}

// Record appends a decision to the ledger.
func Record(db *gorm.DB, opts RecordOpts) (*models.ConsensusDecision, error) {
	if opts.Topic == "" {
		return nil, fmt.Errorf("consensus: topic is required")
	}
	if opts.Decision == "" {
		return nil, fmt.Errorf("consensus: decision is required")
	}
	if opts.Confidence < 0 || opts.Confidence > 1 {
		return nil, fmt.Errorf("consensus: confidence %v out of [0,1]", opts.Confidence)
	}
	if opts.Algorithm == "" {
		opts.Algorithm = models.ConsensusMajority
	}

	id := opts.ID
	if id == "" {
		var err error
		id, err = GenerateID()
		if err != nil {
			return nil, err
		}
	}

	votes, err := encodeVotes(opts.Votes)
	if err != nil {
		return nil, err
	}

	d := models.ConsensusDecision{
		ID:         id,
		SwarmID:    opts.SwarmID,
		Topic:      opts.Topic,
		Decision:   opts.Decision,
		Votes:      votes,
		Algorithm:  opts.Algorithm,
		Confidence: opts.Confidence,
	}
	if err := db.Create(&d).Error; err != nil {
		return nil, fmt.Errorf("consensus: record: %w", err)
	}
	return &d, nil
}

// Get retrieves one decision by ID.
func Get(db *gorm.DB, id string) (*models.ConsensusDecision, error) {
	var d models.ConsensusDecision
	if err := db.Where("id = ?", id).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("consensus: not found: %s", id)
		}
		return nil, fmt.Errorf("consensus: get %s: %w", id, err)
	}
	return &d, nil
}

// List returns recent decisions, newest first, optionally scoped to one
// swarm/objective.
func List(db *gorm.DB, swarmID string, limit int) ([]models.ConsensusDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	q := db.Model(&models.ConsensusDecision{})
	if swarmID != "" {
		q = q.Where("swarm_id = ?", swarmID)
	}

	var decisions []models.ConsensusDecision
	if err := q.Order("created_at DESC").Limit(limit).Find(&decisions).Error; err != nil {
		return nil, fmt.Errorf("consensus: list: %w", err)
	}
	return decisions, nil
}

// Votes decodes the stored vote summary of a decision.
func Votes(d *models.ConsensusDecision) (VoteSummary, error) {
	return decodeVotes(d.Votes)
}
