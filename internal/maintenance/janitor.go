// Package maintenance runs periodic housekeeping against the template store.
package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loomworks/loom/internal/store"
)

// DefaultSchedule vacuums once a day at 03:00.
const DefaultSchedule = "0 3 * * *"

// Janitor runs VACUUM on a cron schedule.
type Janitor struct {
	store    store.TemplateStore
	schedule cron.Schedule
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewJanitor creates a Janitor. spec is a standard five-field cron
// expression; empty selects DefaultSchedule.
func NewJanitor(s store.TemplateStore, spec string, logger *slog.Logger) (*Janitor, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, err
	}
	return &Janitor{store: s, schedule: schedule, logger: logger}, nil
}

// Start launches the background loop. Calling Start on a running Janitor is
// a no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done != nil {
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	go j.run(ctx, j.done)
}

// Stop cancels the loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (j *Janitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		next := j.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		start := time.Now()
		if err := j.store.Vacuum(ctx); err != nil {
			j.logger.Warn("store vacuum failed", slog.Any("error", err))
			continue
		}
		j.logger.Info("store vacuum completed",
			slog.Duration("took", time.Since(start)))
	}
}
