// Package scheduler runs the background reconciliation sweeps on fixed
// cadences configured at startup.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	log   *slog.Logger
	tasks []Task
}

func New(log *slog.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{log: log, tasks: tasks}
}

// Run blocks until ctx is cancelled. Tasks tick independently; a failing
// task is logged and tried again on its next tick, it never stops the
// others.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, t := range s.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			s.runTask(ctx, t)
		}(t)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) runTask(ctx context.Context, t Task) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.Run(ctx); err != nil {
				s.log.Error("scheduled task failed", "task", t.Name, "err", err)
			}
		}
	}
}
