package task

import (
	"strings"
	"testing"

	"github.com/corvid-labs/waggle/internal/models"
	"gorm.io/gorm"
)

func TestAddDep_SelfDep(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{})

	err := AddDep(db, a, a)
	if err == nil {
		t.Fatal("expected error for self-dependency")
	}
	if !strings.Contains(err.Error(), "self-dependency") {
		t.Errorf("error = %q", err)
	}
}

func TestAddDep_TaskMustExist(t *testing.T) {
	db := openTestDB(t)
	err := AddDep(db, "task-nope", "task-also-nope")
	if err == nil {
		t.Fatal("expected error for missing task")
	}
}

func TestAddDep_AbsentBlockerAllowed(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{})

	// The blocking task does not exist yet; the edge is still recorded.
	if err := AddDep(db, a, "task-future"); err != nil {
		t.Fatalf("AddDep: %v", err)
	}

	blockers, _, err := ListDeps(db, a)
	if err != nil {
		t.Fatalf("ListDeps: %v", err)
	}
	if len(blockers) != 1 || blockers[0].DependsOn != "task-future" {
		t.Errorf("blockers = %+v", blockers)
	}
}

func TestAddDep_RejectsCycle(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{})
	b := createTestTask(t, db, CreateOpts{})
	c := createTestTask(t, db, CreateOpts{})

	if err := AddDep(db, b, a); err != nil {
		t.Fatalf("AddDep b->a: %v", err)
	}
	if err := AddDep(db, c, b); err != nil {
		t.Fatalf("AddDep c->b: %v", err)
	}

	err := AddDep(db, a, c)
	if err == nil {
		t.Fatal("expected cycle rejection")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("error = %q", err)
	}
}

func TestRemoveDep(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{})
	b := createTestTask(t, db, CreateOpts{})
	if err := AddDep(db, a, b); err != nil {
		t.Fatalf("AddDep: %v", err)
	}

	if err := RemoveDep(db, a, b); err != nil {
		t.Fatalf("RemoveDep: %v", err)
	}
	if err := RemoveDep(db, a, b); err == nil {
		t.Fatal("expected error removing missing edge")
	}
}

func TestReady_NoDeps(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{})

	ready, err := Ready(db)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != a {
		t.Errorf("ready = %+v, want just %s", ready, a)
	}
}

func TestReady_BlockedUntilDepCompletes(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{})
	b := createTestTask(t, db, CreateOpts{DependsOn: []string{a}})

	ready, err := Ready(db)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != a {
		t.Fatalf("ready = %v, want just %s", ids(ready), a)
	}

	Assign(db, a, "agent-1")
	MarkCompleted(db, a)

	ready, err = Ready(db)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != b {
		t.Errorf("ready = %v, want just %s", ids(ready), b)
	}
}

func TestReady_AbsentDepBlocks(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{DependsOn: []string{"task-ghost"}})

	ready, err := Ready(db)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	for _, r := range ready {
		if r.ID == a {
			t.Error("task with absent dependency reported ready")
		}
	}
}

func TestReady_FailedDepBlocks(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{})
	createTestTask(t, db, CreateOpts{ID: "task-waiter", DependsOn: []string{a}})

	Assign(db, a, "agent-1")
	MarkFailed(db, a, "boom")

	ready, err := Ready(db)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if len(ready) != 0 {
		t.Errorf("ready = %v, want none", ids(ready))
	}
}

func TestReady_PriorityOrder(t *testing.T) {
	db := openTestDB(t)
	createTestTask(t, db, CreateOpts{ID: "task-low", Priority: 1})
	createTestTask(t, db, CreateOpts{ID: "task-high", Priority: 9})
	createTestTask(t, db, CreateOpts{ID: "task-mid", Priority: 5})

	ready, err := Ready(db)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	want := []string{"task-high", "task-mid", "task-low"}
	got := ids(ready)
	if len(got) != len(want) {
		t.Fatalf("got %d ready, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ready[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// Diamond: d depends on b and c, both depend on a. Completing a frees b and
// c; d stays blocked until both finish.
func TestReady_Diamond(t *testing.T) {
	db := openTestDB(t)
	a := createTestTask(t, db, CreateOpts{ID: "task-a"})
	b := createTestTask(t, db, CreateOpts{ID: "task-b", DependsOn: []string{a}})
	c := createTestTask(t, db, CreateOpts{ID: "task-c", DependsOn: []string{a}})
	d := createTestTask(t, db, CreateOpts{ID: "task-d", DependsOn: []string{b, c}})

	complete := func(id string) {
		if applied, _ := Assign(db, id, "agent-1"); !applied {
			t.Fatalf("assign %s failed", id)
		}
		if applied, _ := MarkCompleted(db, id); !applied {
			t.Fatalf("complete %s failed", id)
		}
	}

	if got := ids(mustReady(t, db)); len(got) != 1 || got[0] != a {
		t.Fatalf("ready = %v, want [%s]", got, a)
	}

	complete(a)
	if got := ids(mustReady(t, db)); len(got) != 2 {
		t.Fatalf("ready = %v, want b and c", got)
	}

	complete(b)
	if got := ids(mustReady(t, db)); len(got) != 1 || got[0] != c {
		t.Fatalf("ready = %v, want [%s]", got, c)
	}

	complete(c)
	if got := ids(mustReady(t, db)); len(got) != 1 || got[0] != d {
		t.Fatalf("ready = %v, want [%s]", got, d)
	}
}

func mustReady(t *testing.T, db *gorm.DB) []models.Task {
	t.Helper()
	ready, err := Ready(db)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	return ready
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}
