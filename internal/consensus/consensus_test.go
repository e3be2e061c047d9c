package consensus

import (
	"strings"
	"testing"
	"time"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.ConsensusDecision{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func TestRecord_Defaults(t *testing.T) {
	db := openTestDB(t)
	d, err := Record(db, RecordOpts{
		Topic:      "next research target",
		Decision:   "crawl the standards archive",
		Confidence: 0.8,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !strings.HasPrefix(d.ID, "dec-") {
		t.Errorf("ID = %q, want dec- prefix", d.ID)
	}
	if d.Algorithm != models.ConsensusMajority {
		t.Errorf("Algorithm = %q, want majority", d.Algorithm)
	}
}

func TestRecord_Validation(t *testing.T) {
	db := openTestDB(t)
	if _, err := Record(db, RecordOpts{Decision: "x"}); err == nil {
		t.Error("expected error for missing topic")
	}
	if _, err := Record(db, RecordOpts{Topic: "x"}); err == nil {
		t.Error("expected error for missing decision")
	}
	if _, err := Record(db, RecordOpts{Topic: "x", Decision: "y", Confidence: 1.5}); err == nil {
		t.Error("expected error for confidence > 1")
	}
	if _, err := Record(db, RecordOpts{Topic: "x", Decision: "y", Confidence: -0.1}); err == nil {
		t.Error("expected error for negative confidence")
	}
}

func TestRecord_VotesRoundTrip(t *testing.T) {
	db := openTestDB(t)
	d, err := Record(db, RecordOpts{
		Topic:    "deploy now",
		Decision: "yes",
		Votes: VoteSummary{
			For: 4, Against: 1, Abstain: 1,
			Detail: map[string]any{"agent-1": "for"},
		},
		Algorithm:  models.ConsensusWeighted,
		Confidence: 0.66,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := Get(db, d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	votes, err := Votes(got)
	if err != nil {
		t.Fatalf("Votes: %v", err)
	}
	if votes.For != 4 || votes.Against != 1 || votes.Abstain != 1 {
		t.Errorf("votes = %+v", votes)
	}
	if votes.Detail["agent-1"] != "for" {
		t.Errorf("detail = %v", votes.Detail)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := Get(db, "dec-nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q", err)
	}
}

func TestList_ScopeAndOrder(t *testing.T) {
	db := openTestDB(t)
	first, err := Record(db, RecordOpts{SwarmID: "obj-1", Topic: "a", Decision: "x"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	db.Model(&models.ConsensusDecision{}).Where("id = ?", first.ID).
		Update("created_at", time.Now().Add(-time.Hour))
	second, err := Record(db, RecordOpts{SwarmID: "obj-1", Topic: "b", Decision: "y"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := Record(db, RecordOpts{SwarmID: "obj-2", Topic: "c", Decision: "z"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	decisions, err := List(db, "obj-1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(decisions))
	}
	if decisions[0].ID != second.ID || decisions[1].ID != first.ID {
		t.Errorf("order = %s, %s; want newest first", decisions[0].ID, decisions[1].ID)
	}
}

func TestList_Limit(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 5; i++ {
		if _, err := Record(db, RecordOpts{Topic: "t", Decision: "d"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	decisions, err := List(db, "", 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(decisions) != 3 {
		t.Errorf("got %d decisions, want 3", len(decisions))
	}
}
