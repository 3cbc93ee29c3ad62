// Package workspace holds the authoritative in-memory copy of every loaded
// user's state. All mutations go through Update; the store only mirrors it.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"bridge/internal/model"
	"bridge/internal/store"
)

const (
	StorageWarningTitle = "The Bridge: Storage Warning"
	storageWarningBody  = "Your latest changes could not be saved. They are kept in memory until storage frees up."
)

var ErrNoUser = errors.New("user id is required")

// Alerter receives the one-time storage warning. notify.Notifier satisfies it.
type Alerter interface {
	Notify(ctx context.Context, userID string, title string, body string) error
}

// Selection is one user's currently active goal.
type Selection struct {
	UserID string
	GoalID string
}

type entry struct {
	state    model.UserState
	activeID string
	failing  bool
}

type Workspace struct {
	store   store.Store
	alerter Alerter

	mu    sync.Mutex
	users map[string]*entry
}

func New(st store.Store, alerter Alerter) *Workspace {
	return &Workspace{
		store:   st,
		alerter: alerter,
		users:   make(map[string]*entry),
	}
}

// Snapshot returns a deep copy of the user's state, loading it on first use.
func (w *Workspace) Snapshot(userID string) (model.UserState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.entryLocked(userID)
	if err != nil {
		return model.UserState{}, err
	}
	return e.state.Clone(), nil
}

// Update applies fn to a copy of the user's state. If fn returns an error the
// copy is discarded. Otherwise the copy becomes the in-memory state and is
// written to the store; a failed write is logged and does not roll back.
func (w *Workspace) Update(userID string, fn func(state *model.UserState) error) (model.UserState, error) {
	w.mu.Lock()
	e, err := w.entryLocked(userID)
	if err != nil {
		w.mu.Unlock()
		return model.UserState{}, err
	}
	next := e.state.Clone()
	if err := fn(&next); err != nil {
		w.mu.Unlock()
		return model.UserState{}, err
	}
	e.state = next
	if e.activeID != "" {
		if _, ok := next.FindGoal(e.activeID); !ok {
			e.activeID = ""
		}
	}

	saveErr := w.store.SaveUserState(userID, next)
	firstFailure := w.recordSaveLocked(userID, e, saveErr)
	result := next.Clone()
	w.mu.Unlock()

	if firstFailure && w.alerter != nil {
		if err := w.alerter.Notify(context.Background(), userID, StorageWarningTitle, storageWarningBody); err != nil {
			log.Printf("workspace storage warning notify failed: user=%s err=%v", userID, err)
		}
	}
	return result, nil
}

// Warning is non-empty while the user's latest state has not been persisted.
func (w *Workspace) Warning(userID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.users[userID]
	if !ok || !e.failing {
		return ""
	}
	return storageWarningBody
}

func (w *Workspace) SetActive(userID string, goalID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.entryLocked(userID)
	if err != nil {
		return err
	}
	if goalID != "" {
		if _, ok := e.state.FindGoal(goalID); !ok {
			return fmt.Errorf("activate goal %s: not found", goalID)
		}
	}
	e.activeID = goalID
	return nil
}

func (w *Workspace) Active(userID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.users[userID]; ok {
		return e.activeID
	}
	return ""
}

// ActiveSelections lists every loaded user with an active goal, ordered by
// user id.
func (w *Workspace) ActiveSelections() []Selection {
	w.mu.Lock()
	defer w.mu.Unlock()
	result := make([]Selection, 0, len(w.users))
	for userID, e := range w.users {
		if e.activeID != "" {
			result = append(result, Selection{UserID: userID, GoalID: e.activeID})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result
}

func (w *Workspace) entryLocked(userID string) (*entry, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if e, ok := w.users[userID]; ok {
		return e, nil
	}
	state, err := w.store.LoadUserState(userID)
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", userID, err)
	}
	if state.Goals == nil {
		state.Goals = []model.Goal{}
	}
	e := &entry{state: state}
	w.users[userID] = e
	return e, nil
}

// recordSaveLocked reports whether err starts a new failure streak.
func (w *Workspace) recordSaveLocked(userID string, e *entry, err error) bool {
	if err == nil {
		if e.failing {
			log.Printf("workspace persist recovered: user=%s", userID)
		}
		e.failing = false
		return false
	}
	quota := errors.Is(err, store.ErrQuotaExceeded)
	log.Printf("workspace persist failed: user=%s quota=%t err=%v", userID, quota, err)
	if e.failing {
		return false
	}
	e.failing = true
	return true
}
