package notify

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridge/internal/model"
	"bridge/internal/store"
	"bridge/internal/workspace"
)

type capturePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *capturePublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	bodies map[string]string
}

func (n *recordingNotifier) Notify(ctx context.Context, userID string, title string, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.bodies == nil {
		n.bodies = make(map[string]string)
	}
	n.bodies[userID] = title + "|" + body
	return nil
}

func TestNATSNotifierPublishesJSON(t *testing.T) {
	pub := &capturePublisher{}
	n := newNATSNotifier(pub, "")

	require.NoError(t, n.Notify(context.Background(), "u1", "Title", "Body"))
	assert.Equal(t, DefaultSubject, pub.subject)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.data, &msg))
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, "Title", msg.Title)
	assert.Equal(t, "Body", msg.Body)
	assert.False(t, msg.SentAt.IsZero())

	pub.err = errors.New("disconnected")
	assert.Error(t, n.Notify(context.Background(), "u1", "t", "b"))
}

func TestReminderOnlyNotifiesPermittedUsersWithOpenTasks(t *testing.T) {
	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "state.json"), 0)
	require.NoError(t, err)
	ws := workspace.New(st, nil)

	seed := func(userID string, granted bool, tasks []model.DailyTask) {
		_, err := ws.Update(userID, func(state *model.UserState) error {
			state.NotificationsGranted = granted
			state.Goals = append(state.Goals, model.Goal{ID: "g", Title: "Ship the app", Tasks: tasks})
			return nil
		})
		require.NoError(t, err)
		require.NoError(t, ws.SetActive(userID, "g"))
	}
	open := []model.DailyTask{
		{ID: "1", Title: "a", ImpactScore: 5},
		{ID: "2", Title: "b", ImpactScore: 5},
		{ID: "3", Title: "c", Completed: true, ImpactScore: 5},
	}
	seed("granted", true, open)
	seed("denied", false, open)
	seed("done", true, []model.DailyTask{{ID: "1", Title: "a", Completed: true, ImpactScore: 5}})

	rec := &recordingNotifier{}
	sent := NewReminder(ws, rec).Run(context.Background())

	assert.Equal(t, 1, sent)
	assert.Equal(t, ReminderTitle+"|You have 2 directives remaining for Ship the app. Stay focused.", rec.bodies["granted"])
	assert.NotContains(t, rec.bodies, "denied")
	assert.NotContains(t, rec.bodies, "done")
}

func TestLogNotifierNeverFails(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), "u", "t", "b"))
}
