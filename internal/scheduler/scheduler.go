// Package scheduler runs the monthly payout batch in the background.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/referra/internal/clock"
	obsmetrics "github.com/smallbiznis/referra/internal/observability/metrics"
	payoutdomain "github.com/smallbiznis/referra/internal/payout/domain"
	"github.com/smallbiznis/referra/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

const lockTTL = 24 * time.Hour

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	PayoutSvc payoutdomain.Service
	Locker    *ratelimit.Locker `optional:"true"`
	Config    Config            `optional:"true"`
}

type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	payoutSvc payoutdomain.Service
	locker    *ratelimit.Locker

	lastRun string
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.PayoutSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		payoutSvc: p.PayoutSvc,
		locker:    p.Locker,
	}, nil
}

// RunForever ticks until the context is cancelled, generating payouts
// for the previous month on the first day of each month.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce decides whether the monthly batch is due and runs it.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.clock.Now().UTC()
	if now.Day() != 1 {
		return
	}

	prev := now.AddDate(0, -1, 0)
	period := fmt.Sprintf("%04d-%02d", prev.Year(), int(prev.Month()))
	if s.lastRun == period {
		return
	}

	jobMetrics := obsmetrics.PayoutJob()
	start := s.clock.Now()

	// The lock is left to expire so a month is claimed by one instance
	// only.
	_, acquired, err := s.locker.TryLock(ctx, "payout:monthly:"+period, lockTTL)
	if err != nil {
		s.log.Warn("payout lock failed", zap.String("period", period), zap.Error(err))
		jobMetrics.RecordRun(obsmetrics.PayoutRunOutcomeError, s.clock.Now().Sub(start))
		return
	}
	if !acquired {
		s.lastRun = period
		jobMetrics.RecordRun(obsmetrics.PayoutRunOutcomeSkipped, s.clock.Now().Sub(start))
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	payouts, err := s.payoutSvc.GenerateMonthly(jobCtx, payoutdomain.GenerateMonthlyRequest{
		Year:  prev.Year(),
		Month: int(prev.Month()),
	})
	duration := s.clock.Now().Sub(start)
	if err != nil {
		s.log.Error("monthly payout run failed",
			zap.String("period", period),
			zap.Error(err),
		)
		jobMetrics.RecordRun(obsmetrics.PayoutRunOutcomeError, duration)
		return
	}

	s.lastRun = period
	jobMetrics.RecordRun(obsmetrics.PayoutRunOutcomeSuccess, duration)
	jobMetrics.RecordPayoutsCreated(len(payouts))
	s.log.Info("monthly payout run finished",
		zap.String("period", period),
		zap.Int("payouts", len(payouts)),
		zap.Duration("duration", duration),
	)
}
