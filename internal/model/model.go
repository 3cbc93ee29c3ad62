package model

import "time"

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type DailyTask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	ImpactScore int    `json:"impact_score"`
}

type JournalEntry struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Content string    `json:"content"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Goal is one tracked objective. Progress is derived from Tasks and must only
// be written through accounting.ApplyTasks.
type Goal struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Routine             string         `json:"routine"`
	Tasks               []DailyTask    `json:"tasks"`
	Progress            float64        `json:"progress"`
	Streak              int            `json:"streak"`
	Drift               float64        `json:"drift"`
	TargetDate          time.Time      `json:"target_date"`
	LastGeneratedAt     time.Time      `json:"last_generated_at"`
	CreatedAt           time.Time      `json:"created_at"`
	FutureSelfImage     string         `json:"future_self_image,omitempty"`
	CurrentRoutineImage string         `json:"current_routine_image,omitempty"`
	Journal             []JournalEntry `json:"journal"`
	ChatHistory         []ChatMessage  `json:"chat_history"`
	MotivationalQuote   string         `json:"motivational_quote"`
}

type UserState struct {
	SharedIdentityImage  string `json:"shared_identity_image,omitempty"`
	Goals                []Goal `json:"goals"`
	NotificationsGranted bool   `json:"notifications_granted"`
}

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type PlanTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImpactScore int    `json:"impactScore"`
}

type Plan struct {
	Tasks []PlanTask `json:"tasks"`
	Quote string     `json:"quote"`
}

func (s UserState) FindGoal(id string) (Goal, bool) {
	for _, goal := range s.Goals {
		if goal.ID == id {
			return goal, true
		}
	}
	return Goal{}, false
}

func (s *UserState) GoalRef(id string) *Goal {
	for i := range s.Goals {
		if s.Goals[i].ID == id {
			return &s.Goals[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it without touching s.
func (s UserState) Clone() UserState {
	out := s
	out.Goals = make([]Goal, 0, len(s.Goals))
	for _, goal := range s.Goals {
		out.Goals = append(out.Goals, goal.Clone())
	}
	return out
}

func (g Goal) Clone() Goal {
	out := g
	if g.Tasks != nil {
		out.Tasks = append(make([]DailyTask, 0, len(g.Tasks)), g.Tasks...)
	}
	if g.Journal != nil {
		out.Journal = append(make([]JournalEntry, 0, len(g.Journal)), g.Journal...)
	}
	if g.ChatHistory != nil {
		out.ChatHistory = append(make([]ChatMessage, 0, len(g.ChatHistory)), g.ChatHistory...)
	}
	return out
}
