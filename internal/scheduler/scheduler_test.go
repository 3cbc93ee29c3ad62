package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridge/internal/engine"
)

type countingRefresher struct {
	ticks atomic.Int32
}

func (r *countingRefresher) Tick(ctx context.Context) engine.Report {
	r.ticks.Add(1)
	return engine.Report{}
}

type countingReminder struct {
	runs atomic.Int32
}

func (r *countingReminder) Run(ctx context.Context) int {
	r.runs.Add(1)
	return 0
}

func TestSchedulerRunsBothJobs(t *testing.T) {
	refresher := &countingRefresher{}
	reminder := &countingReminder{}
	s, err := New(refresher, reminder, Config{RefreshSpec: "@every 1s", ReminderSpec: "@every 1s"})
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool {
		return refresher.ticks.Load() > 0 && reminder.runs.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	_, err := New(&countingRefresher{}, nil, Config{RefreshSpec: "every minute"})
	assert.Error(t, err)

	_, err = New(&countingRefresher{}, &countingReminder{}, Config{ReminderSpec: "@hourly-ish"})
	assert.Error(t, err)
}
