package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"bridge/internal/accounting"
	"bridge/internal/clock"
	"bridge/internal/engine"
	"bridge/internal/gateway"
	"bridge/internal/model"
	"bridge/internal/workspace"
)

var (
	ErrTitleRequired      = errors.New("goal title is required")
	ErrRoutineRequired    = errors.New("current routine is required")
	ErrTargetDateRequired = errors.New("target date is required")
	ErrImageRequired      = errors.New("an identity image is required")
	ErrGoalNotFound       = errors.New("goal not found")
	ErrTaskTitleRequired  = errors.New("task title is required")
	ErrMessageRequired    = errors.New("message is required")
	ErrInvalidChatRole    = errors.New("chat role must be user or assistant")
)

const stagnationHorizonYears = 5

type CreateGoalRequest struct {
	Title      string    `json:"title"`
	Routine    string    `json:"routine"`
	TargetDate time.Time `json:"target_date"`
	Image      string    `json:"image,omitempty"`
}

type TaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ChatRequest struct {
	Message string           `json:"message"`
	Mode    gateway.ChatMode `json:"mode,omitempty"`
}

type ChatResponse struct {
	Reply string    `json:"reply"`
	View  StateView `json:"state"`
}

// StateView is what a client renders: the stored state plus session-scoped
// selection and any pending storage warning.
type StateView struct {
	State        model.UserState `json:"state"`
	ActiveGoalID string          `json:"active_goal_id,omitempty"`
	Warning      string          `json:"warning,omitempty"`
}

// Refresher runs a refresh evaluation; engine.Engine satisfies it.
type Refresher interface {
	Tick(ctx context.Context) engine.Report
}

type Service struct {
	ws      *workspace.Workspace
	gateway *gateway.Gateway
	clock   clock.Clock
	refresh Refresher
}

func New(ws *workspace.Workspace, gw *gateway.Gateway, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{ws: ws, gateway: gw, clock: clk}
}

func (s *Service) SetRefresher(r Refresher) {
	s.refresh = r
}

func (s *Service) State(userID string) (StateView, error) {
	state, err := s.ws.Snapshot(userID)
	if err != nil {
		return StateView{}, err
	}
	return s.view(userID, state), nil
}

// CreateGoal validates the request, generates the plan and both images in
// sequence, stores the goal and makes it active.
func (s *Service) CreateGoal(ctx context.Context, userID string, req CreateGoalRequest) (StateView, error) {
	title := strings.TrimSpace(req.Title)
	routine := strings.TrimSpace(req.Routine)
	if title == "" {
		return StateView{}, ErrTitleRequired
	}
	if routine == "" {
		return StateView{}, ErrRoutineRequired
	}
	if req.TargetDate.IsZero() {
		return StateView{}, ErrTargetDateRequired
	}
	current, err := s.ws.Snapshot(userID)
	if err != nil {
		return StateView{}, err
	}
	image := strings.TrimSpace(req.Image)
	if image == "" {
		image = current.SharedIdentityImage
	}
	if image == "" {
		return StateView{}, ErrImageRequired
	}

	now := s.clock.Now()
	daysRemaining := int(math.Max(1, math.Ceil(req.TargetDate.Sub(now).Hours()/24)))

	plan := s.gateway.GenerateTaskPlan(ctx, routine, title, 1, daysRemaining)
	futureSelf := s.gateway.GenerateImage(ctx, gateway.ImageFutureSelf, image, title)
	stagnation := s.gateway.GenerateImage(ctx, gateway.ImageStagnation, image, routine)

	goal := model.Goal{
		ID:                  uuid.NewString(),
		Title:               title,
		Routine:             routine,
		TargetDate:          req.TargetDate.UTC(),
		LastGeneratedAt:     now,
		CreatedAt:           now,
		FutureSelfImage:     futureSelf,
		CurrentRoutineImage: stagnation,
		Journal:             []model.JournalEntry{},
		ChatHistory:         []model.ChatMessage{},
		MotivationalQuote:   plan.Quote,
	}
	accounting.ApplyTasks(&goal, engine.TasksFromPlan(plan))

	state, err := s.ws.Update(userID, func(state *model.UserState) error {
		state.SharedIdentityImage = image
		state.Goals = append(state.Goals, goal)
		return nil
	})
	if err != nil {
		return StateView{}, err
	}
	if err := s.ws.SetActive(userID, goal.ID); err != nil {
		return StateView{}, err
	}
	log.Printf("service goal created: user=%s goal=%s days_remaining=%d tasks=%d", userID, goal.ID, daysRemaining, len(goal.Tasks))
	return s.view(userID, state), nil
}

func (s *Service) DeleteGoal(userID string, goalID string) (StateView, error) {
	state, err := s.ws.Update(userID, func(state *model.UserState) error {
		kept := make([]model.Goal, 0, len(state.Goals))
		for _, goal := range state.Goals {
			if goal.ID != goalID {
				kept = append(kept, goal)
			}
		}
		if len(kept) == len(state.Goals) {
			return ErrGoalNotFound
		}
		state.Goals = kept
		return nil
	})
	if err != nil {
		return StateView{}, err
	}
	return s.view(userID, state), nil
}

// ActivateGoal selects goalID and kicks off a refresh evaluation in the
// background.
func (s *Service) ActivateGoal(userID string, goalID string) (StateView, error) {
	state, err := s.ws.Snapshot(userID)
	if err != nil {
		return StateView{}, err
	}
	if _, ok := state.FindGoal(goalID); !ok {
		return StateView{}, ErrGoalNotFound
	}
	if err := s.ws.SetActive(userID, goalID); err != nil {
		return StateView{}, fmt.Errorf("%w: %v", ErrGoalNotFound, err)
	}
	if s.refresh != nil {
		go s.refresh.Tick(context.Background())
	}
	return s.view(userID, state), nil
}

// ResetIdentity forgets the shared identity image. Existing goals keep their
// generated images.
func (s *Service) ResetIdentity(userID string) (StateView, error) {
	state, err := s.ws.Update(userID, func(state *model.UserState) error {
		state.SharedIdentityImage = ""
		return nil
	})
	if err != nil {
		return StateView{}, err
	}
	return s.view(userID, state), nil
}

func (s *Service) SetNotificationPermission(userID string, granted bool) (StateView, error) {
	state, err := s.ws.Update(userID, func(state *model.UserState) error {
		state.NotificationsGranted = granted
		return nil
	})
	if err != nil {
		return StateView{}, err
	}
	return s.view(userID, state), nil
}

func (s *Service) ToggleTask(userID string, taskID string) (StateView, error) {
	return s.updateActive(userID, func(goal *model.Goal) error {
		tasks := append([]model.DailyTask(nil), goal.Tasks...)
		for i := range tasks {
			if tasks[i].ID == taskID {
				tasks[i].Completed = !tasks[i].Completed
			}
		}
		accounting.ApplyTasks(goal, tasks)
		return nil
	})
}

func (s *Service) AddTask(userID string, req TaskRequest) (StateView, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return StateView{}, ErrTaskTitleRequired
	}
	return s.updateActive(userID, func(goal *model.Goal) error {
		tasks := append(goal.Tasks, model.DailyTask{
			ID:          uuid.NewString(),
			Title:       title,
			Description: strings.TrimSpace(req.Description),
			ImpactScore: accounting.DefaultImpact,
		})
		accounting.ApplyTasks(goal, tasks)
		return nil
	})
}

// EditTask changes only the title and description.
func (s *Service) EditTask(userID string, taskID string, req TaskRequest) (StateView, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return StateView{}, ErrTaskTitleRequired
	}
	return s.updateActive(userID, func(goal *model.Goal) error {
		for i := range goal.Tasks {
			if goal.Tasks[i].ID == taskID {
				goal.Tasks[i].Title = title
				goal.Tasks[i].Description = strings.TrimSpace(req.Description)
			}
		}
		return nil
	})
}

func (s *Service) DeleteTask(userID string, taskID string) (StateView, error) {
	return s.updateActive(userID, func(goal *model.Goal) error {
		tasks := make([]model.DailyTask, 0, len(goal.Tasks))
		for _, task := range goal.Tasks {
			if task.ID != taskID {
				tasks = append(tasks, task)
			}
		}
		accounting.ApplyTasks(goal, tasks)
		return nil
	})
}

// AddJournalEntry appends; earlier entries are never touched.
func (s *Service) AddJournalEntry(userID string, content string) (StateView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return s.State(userID)
	}
	now := s.clock.Now()
	return s.updateActive(userID, func(goal *model.Goal) error {
		goal.Journal = append(goal.Journal, model.JournalEntry{
			ID:      uuid.NewString(),
			Date:    now,
			Content: content,
		})
		return nil
	})
}

// ReplaceChatHistory swaps in messages as the active goal's history. Missing
// ids and timestamps are filled in; an unknown role rejects the whole batch.
func (s *Service) ReplaceChatHistory(userID string, messages []model.ChatMessage) (StateView, error) {
	now := s.clock.Now()
	history := make([]model.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != model.ChatRoleUser && msg.Role != model.ChatRoleAssistant {
			return StateView{}, fmt.Errorf("%w: %q", ErrInvalidChatRole, msg.Role)
		}
		if strings.TrimSpace(msg.ID) == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		history = append(history, msg)
	}
	return s.updateActive(userID, func(goal *model.Goal) error {
		goal.ChatHistory = history
		return nil
	})
}

// SendChatMessage asks the gateway for a reply and appends both turns to the
// active goal's history. With no active goal nothing is sent.
func (s *Service) SendChatMessage(ctx context.Context, userID string, req ChatRequest) (ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ChatResponse{}, ErrMessageRequired
	}
	state, err := s.ws.Snapshot(userID)
	if err != nil {
		return ChatResponse{}, err
	}
	goal, ok := state.FindGoal(s.ws.Active(userID))
	if !ok {
		return ChatResponse{View: s.view(userID, state)}, nil
	}

	reply := s.gateway.Converse(ctx, goal.ChatHistory, message, req.Mode)
	now := s.clock.Now()

	state, err = s.ws.Update(userID, func(state *model.UserState) error {
		target := state.GoalRef(goal.ID)
		if target == nil {
			return nil
		}
		target.ChatHistory = append(target.ChatHistory,
			model.ChatMessage{ID: uuid.NewString(), Role: model.ChatRoleUser, Text: message, Timestamp: now},
			model.ChatMessage{ID: uuid.NewString(), Role: model.ChatRoleAssistant, Text: reply, Timestamp: now},
		)
		return nil
	})
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{Reply: reply, View: s.view(userID, state)}, nil
}

func (s *Service) updateActive(userID string, fn func(goal *model.Goal) error) (StateView, error) {
	activeID := s.ws.Active(userID)
	if activeID == "" {
		return s.State(userID)
	}
	state, err := s.ws.Update(userID, func(state *model.UserState) error {
		goal := state.GoalRef(activeID)
		if goal == nil {
			return nil
		}
		return fn(goal)
	})
	if err != nil {
		return StateView{}, err
	}
	return s.view(userID, state), nil
}

func (s *Service) view(userID string, state model.UserState) StateView {
	return StateView{
		State:        state,
		ActiveGoalID: s.ws.Active(userID),
		Warning:      s.ws.Warning(userID),
	}
}
