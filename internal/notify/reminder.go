package notify

import (
	"context"
	"fmt"
	"log"

	"bridge/internal/accounting"
	"bridge/internal/workspace"
)

const ReminderTitle = "The Bridge: Status Update"

// Reminder nudges users whose active goal still has open tasks. Users who
// have not granted notification permission are skipped.
type Reminder struct {
	ws       *workspace.Workspace
	notifier Notifier
}

func NewReminder(ws *workspace.Workspace, notifier Notifier) *Reminder {
	return &Reminder{ws: ws, notifier: notifier}
}

// Run sends at most one reminder per active goal and returns how many were
// sent.
func (r *Reminder) Run(ctx context.Context) int {
	sent := 0
	for _, sel := range r.ws.ActiveSelections() {
		state, err := r.ws.Snapshot(sel.UserID)
		if err != nil {
			log.Printf("reminder skipped: user=%s err=%v", sel.UserID, err)
			continue
		}
		if !state.NotificationsGranted {
			continue
		}
		goal, ok := state.FindGoal(sel.GoalID)
		if !ok {
			continue
		}
		remaining := accounting.IncompleteCount(goal.Tasks)
		if remaining == 0 {
			continue
		}
		body := fmt.Sprintf("You have %d directives remaining for %s. Stay focused.", remaining, goal.Title)
		if err := r.notifier.Notify(ctx, sel.UserID, ReminderTitle, body); err != nil {
			log.Printf("reminder notify failed: user=%s goal=%s err=%v", sel.UserID, sel.GoalID, err)
			continue
		}
		sent++
	}
	return sent
}
