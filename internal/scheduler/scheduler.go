// Package scheduler drives the periodic refresh and reminder ticks.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"bridge/internal/engine"
)

const (
	DefaultRefreshSpec  = "@every 60s"
	DefaultReminderSpec = "@every 1h"

	jobTimeout = 2 * time.Minute
)

type Refresher interface {
	Tick(ctx context.Context) engine.Report
}

type Reminder interface {
	Run(ctx context.Context) int
}

type Config struct {
	RefreshSpec  string
	ReminderSpec string
}

type Scheduler struct {
	cron *cron.Cron
}

func New(refresher Refresher, reminder Reminder, cfg Config) (*Scheduler, error) {
	if cfg.RefreshSpec == "" {
		cfg.RefreshSpec = DefaultRefreshSpec
	}
	if cfg.ReminderSpec == "" {
		cfg.ReminderSpec = DefaultReminderSpec
	}
	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))))

	if _, err := c.AddFunc(cfg.RefreshSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		report := refresher.Tick(ctx)
		if report.Skipped {
			log.Printf("scheduler refresh skipped: previous refresh still running")
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule refresh %q: %w", cfg.RefreshSpec, err)
	}

	if reminder != nil {
		if _, err := c.AddFunc(cfg.ReminderSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			reminder.Run(ctx)
		}); err != nil {
			return nil, fmt.Errorf("schedule reminder %q: %w", cfg.ReminderSpec, err)
		}
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
