// Package engine advances active goals once per elapsed day: it scores the
// finished day into streak and drift, asks for a new plan and commits the
// result in one workspace update.
package engine

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"bridge/internal/accounting"
	"bridge/internal/clock"
	"bridge/internal/model"
	"bridge/internal/workspace"
)

const (
	RefreshInterval = 24 * time.Hour

	streakThreshold = 80.0
	slipThreshold   = 60.0
	driftRecovery   = 10.0
	driftPenalty    = 15.0
	maxDrift        = 100.0
)

type State string

const (
	StateCurrent    State = "CURRENT"
	StateRefreshing State = "REFRESHING"
)

var errGoalGone = errors.New("goal removed during refresh")

// PlanGenerator never fails; gateway.Gateway satisfies it.
type PlanGenerator interface {
	GenerateTaskPlan(ctx context.Context, routine string, goal string, dayIndex int, daysRemaining int) model.Plan
}

type Report struct {
	Skipped   bool
	Refreshed []workspace.Selection
}

type Engine struct {
	ws    *workspace.Workspace
	plans PlanGenerator
	clock clock.Clock

	mu    sync.Mutex
	state State
}

func New(ws *workspace.Workspace, plans PlanGenerator, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	return &Engine{ws: ws, plans: plans, clock: clk, state: StateCurrent}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Tick refreshes every active goal that is due. A tick that arrives while
// another is still refreshing does nothing.
func (e *Engine) Tick(ctx context.Context) Report {
	if !e.begin() {
		return Report{Skipped: true}
	}
	defer e.finish()

	var report Report
	for _, sel := range e.ws.ActiveSelections() {
		if ctx.Err() != nil {
			break
		}
		if e.refresh(ctx, sel) {
			report.Refreshed = append(report.Refreshed, sel)
		}
	}
	return report
}

func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRefreshing {
		return false
	}
	e.state = StateRefreshing
	return true
}

func (e *Engine) finish() {
	e.mu.Lock()
	e.state = StateCurrent
	e.mu.Unlock()
}

func (e *Engine) refresh(ctx context.Context, sel workspace.Selection) bool {
	snapshot, err := e.ws.Snapshot(sel.UserID)
	if err != nil {
		log.Printf("engine refresh skipped: user=%s err=%v", sel.UserID, err)
		return false
	}
	goal, ok := snapshot.FindGoal(sel.GoalID)
	if !ok {
		return false
	}
	now := e.clock.Now()
	if !Due(goal.LastGeneratedAt, now) {
		return false
	}

	streak, drift := EvaluateDay(goal.Progress, goal.Streak, goal.Drift)
	remaining := DaysRemaining(goal.TargetDate, now)
	plan := e.plans.GenerateTaskPlan(ctx, goal.Routine, goal.Title, streak+1, remaining)
	// A plan cut short by the tick deadline is not this day's plan; the goal
	// stays due and the next tick retries it.
	if err := ctx.Err(); err != nil {
		log.Printf("engine refresh deferred: user=%s goal=%s err=%v", sel.UserID, sel.GoalID, err)
		return false
	}

	_, err = e.ws.Update(sel.UserID, func(state *model.UserState) error {
		target := state.GoalRef(sel.GoalID)
		if target == nil {
			return errGoalGone
		}
		accounting.ApplyTasks(target, TasksFromPlan(plan))
		target.Streak = streak
		target.Drift = drift
		target.LastGeneratedAt = now
		target.MotivationalQuote = plan.Quote
		return nil
	})
	if err != nil {
		log.Printf("engine refresh dropped: user=%s goal=%s err=%v", sel.UserID, sel.GoalID, err)
		return false
	}
	log.Printf("engine refreshed goal: user=%s goal=%s streak=%d drift=%.0f days_remaining=%d tasks=%d", sel.UserID, sel.GoalID, streak, drift, remaining, len(plan.Tasks))
	return true
}

// Due reports whether a full refresh interval has passed since last.
func Due(last time.Time, now time.Time) bool {
	return now.Sub(last) >= RefreshInterval
}

// EvaluateDay scores the finished day. At or above 80% the streak grows and
// drift recovers; below 60% the streak resets and drift grows; in between
// nothing changes.
func EvaluateDay(progress float64, streak int, drift float64) (int, float64) {
	switch {
	case progress >= streakThreshold:
		return streak + 1, math.Max(0, drift-driftRecovery)
	case progress < slipThreshold:
		return 0, math.Min(maxDrift, drift+driftPenalty)
	default:
		return streak, drift
	}
}

// DaysRemaining counts whole days until target, rounding up. It is never
// negative.
func DaysRemaining(target time.Time, now time.Time) int {
	days := math.Ceil(target.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}

// TasksFromPlan turns plan items into fresh incomplete tasks.
func TasksFromPlan(plan model.Plan) []model.DailyTask {
	tasks := make([]model.DailyTask, 0, len(plan.Tasks))
	for _, item := range plan.Tasks {
		tasks = append(tasks, model.DailyTask{
			ID:          uuid.NewString(),
			Title:       item.Title,
			Description: item.Description,
			ImpactScore: accounting.ClampImpact(item.ImpactScore),
		})
	}
	return tasks
}
