package bot

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// DefaultJanitorSchedule prunes every ten minutes.
const DefaultJanitorSchedule = "0 */10 * * * *"

// Pruner drops expired entries and reports how many were removed.
type Pruner interface {
	Prune() int
}

// Janitor periodically prunes in-memory caches.
type Janitor struct {
	cron    *cron.Cron
	targets map[string]Pruner
	logger  *logger.Logger
}

// NewJanitor creates a janitor for the named targets. Nil targets are
// skipped.
func NewJanitor(targets map[string]Pruner, log *logger.Logger) *Janitor {
	live := make(map[string]Pruner, len(targets))
	for name, t := range targets {
		if t != nil {
			live[name] = t
		}
	}
	return &Janitor{
		cron:    cron.New(cron.WithSeconds()),
		targets: live,
		logger:  log.Named("janitor"),
	}
}

// Start schedules the prune job with a six-field cron spec.
func (j *Janitor) Start(spec string) error {
	if spec == "" {
		spec = DefaultJanitorSchedule
	}
	if _, err := j.cron.AddFunc(spec, j.RunOnce); err != nil {
		return fmt.Errorf("failed to schedule janitor: %w", err)
	}
	j.cron.Start()
	return nil
}

// RunOnce prunes every target.
func (j *Janitor) RunOnce() {
	for name, t := range j.targets {
		if n := t.Prune(); n > 0 {
			j.logger.Debug("pruned expired entries", zap.String("target", name), zap.Int("removed", n))
		}
	}
}

// Stop stops scheduling and waits for a running prune until ctx is done.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
