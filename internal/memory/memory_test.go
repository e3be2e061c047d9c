package memory

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
	if err := db.AutoMigrate(&models.MemoryEntry{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createTestEntry(t *testing.T, db *gorm.DB, opts CreateOpts) string {
	t.Helper()
	if opts.AgentID == "" {
		opts.AgentID = "agent-1"
	}
	if opts.Kind == "" {
		opts.Kind = models.MemoryKindKnowledge
	}
	if opts.Content == "" {
		opts.Content = "some finding"
	}
	e, err := Create(db, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return e.ID
}

func TestCreate_Defaults(t *testing.T) {
	db := openTestDB(t)
	e, err := Create(db, CreateOpts{
		AgentID: "agent-1",
		Kind:    models.MemoryKindResult,
		Content: "deploy succeeded",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(e.ID, "mem-") {
		t.Errorf("ID = %q, want mem- prefix", e.ID)
	}
	if e.Visibility != models.VisibilityPrivate {
		t.Errorf("Visibility = %q, want private", e.Visibility)
	}
}

func TestCreate_Validation(t *testing.T) {
	db := openTestDB(t)
	if _, err := Create(db, CreateOpts{Kind: models.MemoryKindState, Content: "x"}); err == nil {
		t.Error("expected error for missing agent")
	}
	if _, err := Create(db, CreateOpts{AgentID: "a", Kind: "opinion", Content: "x"}); err == nil {
		t.Error("expected error for invalid kind")
	}
	if _, err := Create(db, CreateOpts{AgentID: "a", Kind: models.MemoryKindState}); err == nil {
		t.Error("expected error for empty content")
	}
	if _, err := Create(db, CreateOpts{
		AgentID: "a", Kind: models.MemoryKindState, Content: "x", Visibility: "secret",
	}); err == nil {
		t.Error("expected error for invalid visibility")
	}
}

func TestUpdate_MutableFieldsOnly(t *testing.T) {
	db := openTestDB(t)
	id := createTestEntry(t, db, CreateOpts{})

	content := "revised finding"
	vis := models.VisibilityTeam
	pri := 7
	err := Update(db, id, UpdateOpts{
		Content:    &content,
		Tags:       []string{"updated"},
		Priority:   &pri,
		Visibility: &vis,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	e, _ := Get(db, id)
	if e.Content != "revised finding" || e.Priority != 7 || e.Visibility != models.VisibilityTeam {
		t.Errorf("entry = %+v", e)
	}
	tags, _ := Tags(e)
	if len(tags) != 1 || tags[0] != "updated" {
		t.Errorf("tags = %v", tags)
	}
	// Kind and owner are immutable.
	if e.Kind != models.MemoryKindKnowledge || e.AgentID != "agent-1" {
		t.Errorf("immutable fields changed: %+v", e)
	}
}

func TestUpdate_InvalidVisibility(t *testing.T) {
	db := openTestDB(t)
	id := createTestEntry(t, db, CreateOpts{})
	vis := "secret"
	if err := Update(db, id, UpdateOpts{Visibility: &vis}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteByAgent(t *testing.T) {
	db := openTestDB(t)
	createTestEntry(t, db, CreateOpts{AgentID: "agent-1"})
	createTestEntry(t, db, CreateOpts{AgentID: "agent-1"})
	keep := createTestEntry(t, db, CreateOpts{AgentID: "agent-2"})

	removed, err := DeleteByAgent(db, "agent-1")
	if err != nil {
		t.Fatalf("DeleteByAgent: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, err := Get(db, keep); err != nil {
		t.Errorf("other agent's entry removed: %v", err)
	}
}

func TestCleanupOld(t *testing.T) {
	db := openTestDB(t)
	old := createTestEntry(t, db, CreateOpts{})
	db.Model(&models.MemoryEntry{}).Where("id = ?", old).
		Update("created_at", time.Now().AddDate(0, 0, -100))
	recent := createTestEntry(t, db, CreateOpts{})

	removed, err := CleanupOld(db, 90)
	if err != nil {
		t.Fatalf("CleanupOld: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := Get(db, recent); err != nil {
		t.Errorf("recent entry removed: %v", err)
	}
}

func TestListByAgent_NewestFirst(t *testing.T) {
	db := openTestDB(t)
	first := createTestEntry(t, db, CreateOpts{})
	db.Model(&models.MemoryEntry{}).Where("id = ?", first).
		Update("created_at", time.Now().Add(-time.Hour))
	second := createTestEntry(t, db, CreateOpts{})

	entries, err := ListByAgent(db, "agent-1")
	if err != nil {
		t.Fatalf("ListByAgent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != second || entries[1].ID != first {
		t.Errorf("order = %s, %s; want newest first", entries[0].ID, entries[1].ID)
	}
}
