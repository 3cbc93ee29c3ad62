package workspace_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"bridge/internal/model"
	"bridge/internal/store"
	"bridge/internal/workspace"
)

// flakyStore wraps a real store and fails writes while failWrites is set.
type flakyStore struct {
	store.Store
	mu         sync.Mutex
	failWrites bool
	writes     int
}

func (s *flakyStore) SaveUserState(userID string, state model.UserState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failWrites {
		return store.ErrQuotaExceeded
	}
	return s.Store.SaveUserState(userID, state)
}

func (s *flakyStore) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = v
}

type recordingAlerter struct {
	mu     sync.Mutex
	titles []string
}

func (a *recordingAlerter) Notify(ctx context.Context, userID string, title string, body string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.titles = append(a.titles, title)
	return nil
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.titles)
}

func newFlaky(t *testing.T) *flakyStore {
	t.Helper()
	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "state.json"), 0)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	return &flakyStore{Store: st}
}

func addGoal(id string) func(*model.UserState) error {
	return func(state *model.UserState) error {
		state.Goals = append(state.Goals, model.Goal{ID: id, Title: id})
		return nil
	}
}

func TestUpdatePersistsAndIsolatesSnapshots(t *testing.T) {
	st := newFlaky(t)
	ws := workspace.New(st, nil)

	if _, err := ws.Update("u1", addGoal("g1")); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	snap, err := ws.Snapshot("u1")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	snap.Goals[0].Title = "mutated outside"

	again, _ := ws.Snapshot("u1")
	if again.Goals[0].Title != "g1" {
		t.Fatalf("expected snapshot mutation not to leak, got %q", again.Goals[0].Title)
	}
	persisted, err := st.Store.LoadUserState("u1")
	if err != nil || len(persisted.Goals) != 1 {
		t.Fatalf("expected persisted goal, got %+v err=%v", persisted, err)
	}
}

func TestUpdateDiscardsOnCallbackError(t *testing.T) {
	st := newFlaky(t)
	ws := workspace.New(st, nil)
	boom := errors.New("boom")

	_, err := ws.Update("u1", func(state *model.UserState) error {
		state.Goals = append(state.Goals, model.Goal{ID: "g1"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	snap, _ := ws.Snapshot("u1")
	if len(snap.Goals) != 0 {
		t.Fatalf("expected no goals after failed update, got %d", len(snap.Goals))
	}
	if st.writes != 0 {
		t.Fatalf("expected no store writes, got %d", st.writes)
	}
}

func TestStoreFailureKeepsMemoryAndWarnsOncePerStreak(t *testing.T) {
	st := newFlaky(t)
	alerter := &recordingAlerter{}
	ws := workspace.New(st, alerter)

	st.setFailing(true)
	for _, id := range []string{"g1", "g2"} {
		if _, err := ws.Update("u1", addGoal(id)); err != nil {
			t.Fatalf("Update(%s) error = %v", id, err)
		}
	}
	snap, _ := ws.Snapshot("u1")
	if len(snap.Goals) != 2 {
		t.Fatalf("expected in-memory state to stay authoritative, got %d goals", len(snap.Goals))
	}
	if ws.Warning("u1") == "" {
		t.Fatalf("expected storage warning while failing")
	}
	if alerter.count() != 1 {
		t.Fatalf("expected exactly one warning, got %d", alerter.count())
	}

	st.setFailing(false)
	if _, err := ws.Update("u1", addGoal("g3")); err != nil {
		t.Fatalf("Update(g3) error = %v", err)
	}
	if ws.Warning("u1") != "" {
		t.Fatalf("expected warning cleared after successful write")
	}
	persisted, _ := st.Store.LoadUserState("u1")
	if len(persisted.Goals) != 3 {
		t.Fatalf("expected whole state persisted on recovery, got %d goals", len(persisted.Goals))
	}

	st.setFailing(true)
	_, _ = ws.Update("u1", addGoal("g4"))
	if alerter.count() != 2 {
		t.Fatalf("expected a new warning for a new failure streak, got %d", alerter.count())
	}
}

func TestActiveSelectionTracking(t *testing.T) {
	ws := workspace.New(newFlaky(t), nil)
	_, _ = ws.Update("u2", addGoal("b"))
	_, _ = ws.Update("u1", addGoal("a"))

	if err := ws.SetActive("u1", "missing"); err == nil {
		t.Fatalf("expected error activating unknown goal")
	}
	if err := ws.SetActive("u2", "b"); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if err := ws.SetActive("u1", "a"); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	sel := ws.ActiveSelections()
	if len(sel) != 2 || sel[0] != (workspace.Selection{UserID: "u1", GoalID: "a"}) {
		t.Fatalf("unexpected selections %+v", sel)
	}

	// Removing the active goal clears the selection.
	_, _ = ws.Update("u1", func(state *model.UserState) error {
		state.Goals = nil
		return nil
	})
	if ws.Active("u1") != "" {
		t.Fatalf("expected active goal cleared after delete")
	}
	if _, err := ws.Snapshot(""); !errors.Is(err, workspace.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
}
