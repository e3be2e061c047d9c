package task

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
	if err := db.AutoMigrate(&models.Task{}, &models.TaskDep{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createTestTask(t *testing.T, db *gorm.DB, opts CreateOpts) string {
	t.Helper()
	if opts.Type == "" {
		opts.Type = "research"
	}
	created, err := Create(db, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return created.ID
}

func TestCreate_Defaults(t *testing.T) {
	db := openTestDB(t)

	created, err := Create(db, CreateOpts{Type: "research", Description: "scan sources"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(created.ID, "task-") {
		t.Errorf("ID = %q, want task- prefix", created.ID)
	}
	if created.Status != models.TaskStatusPending {
		t.Errorf("Status = %q, want pending", created.Status)
	}
	if created.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", created.MaxRetries)
	}
}

func TestCreate_RequiresType(t *testing.T) {
	db := openTestDB(t)
	_, err := Create(db, CreateOpts{Description: "no type"})
	if err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	db := openTestDB(t)
	createTestTask(t, db, CreateOpts{ID: "task-fixed"})

	_, err := Create(db, CreateOpts{ID: "task-fixed", Type: "research"})
	if err == nil {
		t.Fatal("expected error for duplicate ID")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %q", err)
	}
}

func TestCreate_SelfDependency(t *testing.T) {
	db := openTestDB(t)
	_, err := Create(db, CreateOpts{ID: "task-self", Type: "research", DependsOn: []string{"task-self"}})
	if err == nil {
		t.Fatal("expected error for self-dependency")
	}

	// The transaction must have rolled back the task row too.
	var count int64
	db.Model(&models.Task{}).Where("id = ?", "task-self").Count(&count)
	if count != 0 {
		t.Errorf("task row survived rollback")
	}
}

func TestCreate_WithDeps(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{})
	b := createTestTask(t, db, CreateOpts{DependsOn: []string{a}})

	got, err := Get(db, b)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Deps) != 1 || got.Deps[0].DependsOn != a {
		t.Errorf("Deps = %+v, want one edge on %s", got.Deps, a)
	}
}

func TestCreate_Metadata(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{
		Metadata: map[string]interface{}{"repo": "corvid-labs/waggle", "depth": float64(3)},
	})

	got, err := Get(db, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	meta, err := Metadata(got)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta["repo"] != "corvid-labs/waggle" {
		t.Errorf("meta[repo] = %v", meta["repo"])
	}
	if meta["depth"] != float64(3) {
		t.Errorf("meta[depth] = %v", meta["depth"])
	}
}

func TestGet_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := Get(db, "task-nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q", err)
	}
}

func TestList_FiltersAndOrder(t *testing.T) {
	db := openTestDB(t)
	createTestTask(t, db, CreateOpts{ID: "task-lo", Priority: 1})
	createTestTask(t, db, CreateOpts{ID: "task-hi", Priority: 9})
	createTestTask(t, db, CreateOpts{ID: "task-other", Type: "analysis", Priority: 5})

	tasks, err := List(db, ListFilters{Type: "research"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].ID != "task-hi" || tasks[1].ID != "task-lo" {
		t.Errorf("order = %s, %s; want task-hi, task-lo", tasks[0].ID, tasks[1].ID)
	}
}

func TestAssign(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{})

	applied, err := Assign(db, id, "agent-1")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !applied {
		t.Fatal("expected assignment to apply")
	}

	got, _ := Get(db, id)
	if got.Status != models.TaskStatusAssigned {
		t.Errorf("Status = %q, want assigned", got.Status)
	}
	if got.AssignedAgent == nil || *got.AssignedAgent != "agent-1" {
		t.Errorf("AssignedAgent = %v, want agent-1", got.AssignedAgent)
	}
	if got.StartedAt == nil {
		t.Error("StartedAt not stamped")
	}
}

func TestAssign_LostRace(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{})

	if applied, _ := Assign(db, id, "agent-1"); !applied {
		t.Fatal("first assign should apply")
	}
	applied, err := Assign(db, id, "agent-2")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if applied {
		t.Error("second assign applied; expected lost race")
	}

	got, _ := Get(db, id)
	if *got.AssignedAgent != "agent-1" {
		t.Errorf("AssignedAgent = %q, want agent-1", *got.AssignedAgent)
	}
}

func TestAssign_RequiresAgent(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{})
	if _, err := Assign(db, id, ""); err == nil {
		t.Fatal("expected error for empty agentID")
	}
}

func TestLifecycle_AssignStartComplete(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{})

	if applied, _ := Assign(db, id, "agent-1"); !applied {
		t.Fatal("assign failed")
	}
	if applied, err := MarkInProgress(db, id); err != nil || !applied {
		t.Fatalf("MarkInProgress: applied=%v err=%v", applied, err)
	}
	if applied, err := SetProgress(db, id, 60); err != nil || !applied {
		t.Fatalf("SetProgress: applied=%v err=%v", applied, err)
	}
	if applied, err := MarkCompleted(db, id); err != nil || !applied {
		t.Fatalf("MarkCompleted: applied=%v err=%v", applied, err)
	}

	got, _ := Get(db, id)
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("Progress = %d, want 100", got.Progress)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}
}

func TestMarkInProgress_RequiresAssigned(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{})

	applied, err := MarkInProgress(db, id)
	if err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}
	if applied {
		t.Error("pending task moved to in_progress")
	}
}

func TestMarkCompleted_RequiresActive(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{})

	applied, err := MarkCompleted(db, id)
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if applied {
		t.Error("pending task completed without assignment")
	}
}

func TestMarkFailed(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{})
	Assign(db, id, "agent-1")

	applied, err := MarkFailed(db, id, "tool crashed")
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if !applied {
		t.Fatal("expected failure to apply")
	}

	got, _ := Get(db, id)
	if got.Status != models.TaskStatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.Error != "tool crashed" {
		t.Errorf("Error = %q", got.Error)
	}

	// Terminal tasks stay terminal.
	applied, _ = MarkFailed(db, id, "again")
	if applied {
		t.Error("failed task re-failed")
	}
}

func TestSetProgress_OutOfRange(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{})
	Assign(db, id, "agent-1")

	if _, err := SetProgress(db, id, 101); err == nil {
		t.Fatal("expected error for 101")
	}
	if _, err := SetProgress(db, id, -1); err == nil {
		t.Fatal("expected error for -1")
	}
}

func TestRetry_ReturnsToPending(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{})
	Assign(db, id, "agent-1")
	MarkFailed(db, id, "transient")

	result, err := Retry(db, id)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if result != Retried {
		t.Fatalf("result = %v, want Retried", result)
	}

	got, _ := Get(db, id)
	if got.Status != models.TaskStatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", got.RetryCount)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want cleared", got.Error)
	}
	if got.AssignedAgent != nil {
		t.Errorf("AssignedAgent = %v, want nil", got.AssignedAgent)
	}
}

func TestRetry_Exhaustion(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{MaxRetries: 2})

	for i := 0; i < 2; i++ {
		Assign(db, id, "agent-1")
		MarkFailed(db, id, "boom")
		result, err := Retry(db, id)
		if err != nil {
			t.Fatalf("Retry %d: %v", i, err)
		}
		if result != Retried {
			t.Fatalf("Retry %d result = %v, want Retried", i, result)
		}
	}

	Assign(db, id, "agent-1")
	MarkFailed(db, id, "boom")
	result, err := Retry(db, id)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if result != RetryExhausted {
		t.Fatalf("result = %v, want RetryExhausted", result)
	}

	got, _ := Get(db, id)
	if got.Status != models.TaskStatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.Error != ErrMaxRetriesExceeded {
		t.Errorf("Error = %q, want %q", got.Error, ErrMaxRetriesExceeded)
	}
}

func TestRetry_NotFound(t *testing.T) {
	db := openTestDB(t)
	result, err := Retry(db, "task-nope")
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if result != RetryNotFound {
		t.Errorf("result = %v, want RetryNotFound", result)
	}
}

func TestRetry_CompletedUntouched(t *testing.T) {
	db := openTestDB(t)
	id := createTestTask(t, db, CreateOpts{})
	Assign(db, id, "agent-1")
	MarkCompleted(db, id)

	result, err := Retry(db, id)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if result != RetryExhausted {
		t.Fatalf("result = %v, want RetryExhausted", result)
	}

	// Completed status must survive; only the result reports exhaustion.
	got, _ := Get(db, id)
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
}

func TestDelete_RemovesEdgesBothWays(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{})
	b := createTestTask(t, db, CreateOpts{DependsOn: []string{a}})
	c := createTestTask(t, db, CreateOpts{})
	if err := AddDep(db, a, c); err != nil {
		t.Fatalf("AddDep: %v", err)
	}

	if err := Delete(db, a); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var count int64
	db.Model(&models.TaskDep{}).Where("task_id = ? OR depends_on = ?", a, a).Count(&count)
	if count != 0 {
		t.Errorf("%d dangling edges remain", count)
	}
	if _, err := Get(db, b); err != nil {
		t.Errorf("dependent task gone: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	db := openTestDB(t)
	if err := Delete(db, "task-nope"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCleanupOld(t *testing.T) {
	db := openTestDB(t)
	old := createTestTask(t, db, CreateOpts{})
	Assign(db, old, "agent-1")
	MarkCompleted(db, old)
	db.Model(&models.Task{}).Where("id = ?", old).
		Update("completed_at", time.Now().AddDate(0, 0, -40))

	recent := createTestTask(t, db, CreateOpts{})
	Assign(db, recent, "agent-1")
	MarkCompleted(db, recent)

	active := createTestTask(t, db, CreateOpts{})

	removed, err := CleanupOld(db, 30)
	if err != nil {
		t.Fatalf("CleanupOld: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := Get(db, old); err == nil {
		t.Error("old task survived cleanup")
	}
	if _, err := Get(db, recent); err != nil {
		t.Errorf("recent task removed: %v", err)
	}
	if _, err := Get(db, active); err != nil {
		t.Errorf("active task removed: %v", err)
	}
}

func TestCleanupOld_RejectsNonPositive(t *testing.T) {
	db := openTestDB(t)
	if _, err := CleanupOld(db, 0); err == nil {
		t.Fatal("expected error for days=0")
	}
}

func TestStatsByStatus(t *testing.T) {
	db := openTestDB(t)
	createTestTask(t, db, CreateOpts{})
	createTestTask(t, db, CreateOpts{})
	done := createTestTask(t, db, CreateOpts{})
	Assign(db, done, "agent-1")
	MarkCompleted(db, done)

	counts, err := StatsByStatus(db)
	if err != nil {
		t.Fatalf("StatsByStatus: %v", err)
	}
	got := map[string]int64{}
	for _, sc := range counts {
		got[sc.Status] = sc.Count
	}
	if got[models.TaskStatusPending] != 2 {
		t.Errorf("pending = %d, want 2", got[models.TaskStatusPending])
	}
	if got[models.TaskStatusCompleted] != 1 {
		t.Errorf("completed = %d, want 1", got[models.TaskStatusCompleted])
	}
}

func TestPerformance(t *testing.T) {
	db := openTestDB(t)
	done := createTestTask(t, db, CreateOpts{})
	Assign(db, done, "agent-1")
	MarkCompleted(db, done)

	failed := createTestTask(t, db, CreateOpts{})
	Assign(db, failed, "agent-1")
	MarkFailed(db, failed, "boom")
	Retry(db, failed)

	perf, err := Performance(db)
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	if perf.Completed != 1 {
		t.Errorf("Completed = %d, want 1", perf.Completed)
	}
	if perf.Failed != 0 {
		t.Errorf("Failed = %d, want 0 (task back in pending)", perf.Failed)
	}
	if perf.Retried != 1 {
		t.Errorf("Retried = %d, want 1", perf.Retried)
	}
}
