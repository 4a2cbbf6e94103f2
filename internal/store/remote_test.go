package store

import (
	"testing"

	"github.com/hanpenneko/mossgrid/internal/models"
)

func remoteTodo(id string, at int64, by string) models.Todo {
	t := models.Todo{ID: id, Title: "remote", SortOrder: 1}
	t.UpdatedAt = at
	t.UpdatedBy = by
	return t
}

func TestApplyRemoteTodo_InsertWhenAbsent(t *testing.T) {
	s := newTestStore(t)

	applied, err := s.ApplyRemoteTodo(remoteTodo("t1", 500, "other-device"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied {
		t.Fatal("absent record must be inserted")
	}
	got := s.ActiveTodos()[0]
	if got.Dirty {
		t.Error("remote-sourced records are stored clean")
	}
}

func TestApplyRemoteTodo_RemoteWins(t *testing.T) {
	s := newTestStore(t)
	local, _ := s.AddTodo("local", "") // updated_at = 1000

	remote := remoteTodo(local.ID, 2000, "other-device")
	applied, err := s.ApplyRemoteTodo(remote)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied {
		t.Fatal("later remote must win")
	}

	got := s.ActiveTodos()[0]
	if got.Title != "remote" {
		t.Error("winning remote must overwrite the record wholesale")
	}
	if got.Dirty {
		t.Error("winning remote clears the dirty flag")
	}
}

func TestApplyRemoteTodo_LocalWins(t *testing.T) {
	s := newTestStore(t)
	local, _ := s.AddTodo("local", "") // updated_at = 1000, dirty

	applied, err := s.ApplyRemoteTodo(remoteTodo(local.ID, 500, "other-device"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied {
		t.Fatal("older remote must lose")
	}

	got := s.ActiveTodos()[0]
	if got.Title != "local" {
		t.Error("losing remote must not touch local state")
	}
	if !got.Dirty {
		t.Error("losing remote must leave the pending local edit dirty")
	}
}

func TestApplyRemote_Idempotent(t *testing.T) {
	s := newTestStore(t)

	remote := remoteTodo("t1", 500, "other-device")
	if _, err := s.ApplyRemoteTodo(remote); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	applied, err := s.ApplyRemoteTodo(remote)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if applied {
		t.Error("identical envelope must not re-apply")
	}
	if len(s.todos) != 1 {
		t.Errorf("todo count = %d after duplicate apply, want 1", len(s.todos))
	}
}

func TestApplyRemoteCompletion_CompositeKey(t *testing.T) {
	s := newTestStore(t)

	c1 := models.HabitCompletion{HabitID: "h1", HabitDay: "2024-06-01", Done: true}
	c1.UpdatedAt = 500
	c1.UpdatedBy = "other"
	c2 := models.HabitCompletion{HabitID: "h1", HabitDay: "2024-06-02", Done: true}
	c2.UpdatedAt = 500
	c2.UpdatedBy = "other"

	s.ApplyRemoteCompletion(c1)
	s.ApplyRemoteCompletion(c2)
	if len(s.completions) != 2 {
		t.Fatalf("distinct days must be distinct rows, got %d", len(s.completions))
	}

	// same key, newer envelope: replaces, no new row
	c1b := c1
	c1b.Done = false
	c1b.UpdatedAt = 600
	applied, _ := s.ApplyRemoteCompletion(c1b)
	if !applied || len(s.completions) != 2 {
		t.Errorf("same-key apply must replace: applied=%v rows=%d", applied, len(s.completions))
	}
	if s.IsCompleted("h1", "2024-06-01") {
		t.Error("replaced completion should be not done")
	}
}

func TestApplyRemoteRule_TiebreakByDevice(t *testing.T) {
	s := newTestStore(t)

	r := models.HabitRule{ID: "r1", HabitID: "h1", Type: models.RuleDaily, EffectiveFrom: "2024-01-01"}
	r.UpdatedAt = 500
	r.UpdatedBy = "device-b"
	s.ApplyRemoteRule(r)

	// same timestamp, lesser device id: loses
	lower := r
	lower.UpdatedBy = "device-a"
	lower.EffectiveFrom = "2024-02-01"
	if applied, _ := s.ApplyRemoteRule(lower); applied {
		t.Error("tie with lesser device id must lose")
	}

	// same timestamp, greater device id: wins
	higher := r
	higher.UpdatedBy = "device-c"
	higher.EffectiveFrom = "2024-03-01"
	if applied, _ := s.ApplyRemoteRule(higher); !applied {
		t.Error("tie with greater device id must win")
	}
}

func TestDirtySnapshotAndClear(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.AddTodo("a", "")
	s.AddHabit("h", models.RuleDaily, 0, nil)

	snap := s.DirtySnapshot()
	if len(snap.Todos) != 1 || len(snap.Habits) != 1 || len(snap.Rules) != 1 {
		t.Fatalf("snapshot = %d todos, %d habits, %d rules", len(snap.Todos), len(snap.Habits), len(snap.Rules))
	}

	// a mutation lands between snapshot and acknowledgement
	title := "edited mid-push"
	s.now = func() int64 { return 2000 }
	if err := s.UpdateTodo(a.ID, TodoUpdate{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := s.ClearDirty(snap); err != nil {
		t.Fatalf("clear: %v", err)
	}

	left := s.DirtySnapshot()
	if len(left.Habits) != 0 || len(left.Rules) != 0 {
		t.Error("snapshotted records must be cleared")
	}
	if len(left.Todos) != 1 {
		t.Fatal("a record re-stamped after the snapshot must stay dirty")
	}
	if left.Todos[0].Title != "edited mid-push" {
		t.Errorf("pending edit = %+v", left.Todos[0])
	}
}

func TestSetSyncKey_ResetsCheckpointOnly(t *testing.T) {
	s := newTestStore(t)
	s.AddTodo("keep me", "")
	s.SetLastServerSeq(42)

	if err := s.SetSyncKey("new-key"); err != nil {
		t.Fatalf("set sync key: %v", err)
	}

	state := s.SyncState()
	if state.SyncKey != "new-key" {
		t.Errorf("sync key = %q", state.SyncKey)
	}
	if state.LastServerSeq != 0 {
		t.Error("changing the key must reset the checkpoint")
	}
	if len(s.ActiveTodos()) != 1 {
		t.Error("changing the key must not clear local data")
	}
}

func TestSyncStatePersists(t *testing.T) {
	dir := t.TempDir()
	s, err := Initialize(dir)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	s.SetSyncKey("k")
	s.SetLastServerSeq(7)
	s.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	state := s2.SyncState()
	if state.SyncKey != "k" || state.LastServerSeq != 7 {
		t.Errorf("state = %+v", state)
	}
}
