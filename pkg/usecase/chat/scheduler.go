package chat

import (
	"context"
	"time"

	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/utils/logging"
)

const defaultInactivity = 24 * time.Hour

// Scheduler periodically scans conversations for users who went quiet and
// feeds tick events to the orchestrator. The scan itself takes no user
// locks; each tick is applied through the normal locked path afterwards,
// so a user message arriving mid-scan simply wins.
type Scheduler struct {
	uc         *UseCase
	inactivity time.Duration
}

// SchedulerOption is a functional option for Scheduler
type SchedulerOption func(*Scheduler)

// WithInactivity overrides the silence span that triggers a check-in
func WithInactivity(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.inactivity = d
	}
}

// NewScheduler creates a scheduler over the orchestrator
func NewScheduler(uc *UseCase, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		uc:         uc,
		inactivity: defaultInactivity,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scan runs one pass and returns the bundles of every tick that produced a
// proactive decision
func (s *Scheduler) Scan(ctx context.Context, now time.Time) ([]*model.ContextBundle, error) {
	logger := logging.From(ctx)

	convs, err := s.uc.repo.ListConversations(ctx)
	if err != nil {
		return nil, err
	}

	var bundles []*model.ContextBundle
	for _, conv := range convs {
		if conv.State != model.StateFollowUp {
			continue
		}
		if conv.LastInbound.IsZero() || now.Sub(conv.LastInbound) < s.inactivity {
			continue
		}

		bundle, err := s.uc.HandleTick(ctx, conv.UserID, now)
		if err != nil {
			logger.Warn("tick handling failed", "error", err, "user_id", conv.UserID)
			continue
		}
		if bundle.Decision != nil && bundle.Decision.ShouldAct {
			bundles = append(bundles, bundle)
		}
	}

	logger.Debug("scheduler scan finished", "scanned", len(convs), "proactive", len(bundles))
	return bundles, nil
}

// Run scans on the given interval until the context is cancelled
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := s.Scan(ctx, now); err != nil {
				logging.From(ctx).Error("scheduler scan failed", "error", err)
			}
		}
	}
}
