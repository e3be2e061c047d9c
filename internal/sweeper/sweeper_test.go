package sweeper

import (
	"testing"
	"time"

	"github.com/corvid-labs/waggle/internal/agent"
	"github.com/corvid-labs/waggle/internal/config"
	storedb "github.com/corvid-labs/waggle/internal/db"
	"github.com/corvid-labs/waggle/internal/models"
	"github.com/corvid-labs/waggle/internal/notify"
	"github.com/corvid-labs/waggle/internal/task"
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
	if err := storedb.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// capturingNotifier records every event it receives.
type capturingNotifier struct {
	events []notify.Event
}

func (n *capturingNotifier) Notify(event notify.Event) error {
	n.events = append(n.events, event)
	return nil
}

func (n *capturingNotifier) Name() string { return "capture" }

func registerBusyAgent(t *testing.T, db *gorm.DB, id string, lastActivity time.Time) {
	t.Helper()
	_, err := agent.Register(db, agent.RegisterOpts{
		ID: id, Type: models.AgentTypeDeveloper, Name: id,
	})
	if err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	busy := models.AgentStatusBusy
	if err := agent.Update(db, id, agent.UpdateOpts{Status: &busy}); err != nil {
		t.Fatalf("mark busy %s: %v", id, err)
	}
	if err := db.Model(&models.AgentMetrics{}).Where("agent_id = ?", id).
		Update("last_activity", lastActivity).Error; err != nil {
		t.Fatalf("backdate activity %s: %v", id, err)
	}
}

func TestStaleAgents_ThresholdMustBePositive(t *testing.T) {
	db := openTestDB(t)
	if _, err := StaleAgents(db, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestStaleAgents_FindsOnlyStaleBusy(t *testing.T) {
	db := openTestDB(t)
	registerBusyAgent(t, db, "agent-stale", time.Now().Add(-time.Hour))
	registerBusyAgent(t, db, "agent-fresh", time.Now())

	// Idle agents never count as stale, however old their activity.
	agent.Register(db, agent.RegisterOpts{
		ID: "agent-idle", Type: models.AgentTypeDeveloper, Name: "idle",
	})
	db.Model(&models.AgentMetrics{}).Where("agent_id = ?", "agent-idle").
		Update("last_activity", time.Now().Add(-time.Hour))

	stale, err := StaleAgents(db, 5*time.Minute)
	if err != nil {
		t.Fatalf("StaleAgents: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "agent-stale" {
		t.Errorf("stale = %+v", stale)
	}
}

func TestRecoverStaleAgents(t *testing.T) {
	db := openTestDB(t)
	registerBusyAgent(t, db, "agent-stale", time.Now().Add(-time.Hour))

	created, err := task.Create(db, task.CreateOpts{ID: "task-held", Type: "crawl"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if applied, _ := task.Assign(db, created.ID, "agent-stale"); !applied {
		t.Fatal("assign failed")
	}

	capture := &capturingNotifier{}
	recovered, err := RecoverStaleAgents(db, 5*time.Minute, notify.NewFanout(capture))
	if err != nil {
		t.Fatalf("RecoverStaleAgents: %v", err)
	}
	if recovered != 1 {
		t.Errorf("recovered = %d, want 1", recovered)
	}

	held, _ := task.Get(db, "task-held")
	if held.Status != models.TaskStatusPending {
		t.Errorf("task status = %q, want pending", held.Status)
	}
	if held.AssignedAgent != nil {
		t.Errorf("task still assigned to %v", *held.AssignedAgent)
	}

	a, _ := agent.Get(db, "agent-stale")
	if a.Status != models.AgentStatusFailed {
		t.Errorf("agent status = %q, want failed", a.Status)
	}

	if len(capture.events) != 1 {
		t.Fatalf("got %d events, want 1", len(capture.events))
	}
	if capture.events[0].Severity != notify.SeverityWarning {
		t.Errorf("severity = %q", capture.events[0].Severity)
	}
}

func TestRecoverStaleAgents_ExhaustsRetries(t *testing.T) {
	db := openTestDB(t)
	registerBusyAgent(t, db, "agent-stale", time.Now().Add(-time.Hour))

	created, err := task.Create(db, task.CreateOpts{
		ID: "task-held", Type: "crawl", MaxRetries: 1,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	task.Assign(db, created.ID, "agent-stale")
	if result, _ := task.Retry(db, created.ID); result != task.Retried {
		t.Fatalf("prime retry: %v", result)
	}
	task.Assign(db, created.ID, "agent-stale")

	if _, err := RecoverStaleAgents(db, 5*time.Minute, nil); err != nil {
		t.Fatalf("RecoverStaleAgents: %v", err)
	}

	held, _ := task.Get(db, "task-held")
	if held.Status != models.TaskStatusFailed {
		t.Errorf("task status = %q, want failed after retry exhaustion", held.Status)
	}
}

func TestSweep_OnePass(t *testing.T) {
	db := openTestDB(t)

	created, err := task.Create(db, task.CreateOpts{ID: "task-old", Type: "crawl"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	task.Assign(db, created.ID, "agent-1")
	task.MarkCompleted(db, created.ID)
	db.Model(&models.Task{}).Where("id = ?", created.ID).
		Update("completed_at", time.Now().AddDate(0, 0, -60))

	cfg := config.SweepConfig{
		StaleAfterS:       300,
		TaskRetentionD:    30,
		MessageRetentionD: 7,
		MemoryRetentionD:  90,
	}
	if err := Sweep(db, cfg, nil, nil); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if _, err := task.Get(db, "task-old"); err == nil {
		t.Error("old completed task survived sweep")
	}
}
