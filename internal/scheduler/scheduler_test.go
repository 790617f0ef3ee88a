package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/referra/internal/clock"
	payoutdomain "github.com/smallbiznis/referra/internal/payout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPayoutService struct {
	payoutdomain.Service

	calls []payoutdomain.GenerateMonthlyRequest
	err   error
}

func (s *stubPayoutService) GenerateMonthly(ctx context.Context, req payoutdomain.GenerateMonthlyRequest) ([]payoutdomain.Payout, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	return []payoutdomain.Payout{{}}, nil
}

func newScheduler(t *testing.T, fake *clock.FakeClock, svc payoutdomain.Service) *Scheduler {
	t.Helper()
	s, err := New(Params{
		Log:       zap.NewNop(),
		Clock:     fake,
		PayoutSvc: svc,
	})
	require.NoError(t, err)
	return s
}

func TestRunOnce_SkipsMidMonth(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, time.April, 15, 3, 0, 0, 0, time.UTC))
	svc := &stubPayoutService{}
	s := newScheduler(t, fake, svc)

	s.RunOnce(context.Background())
	assert.Empty(t, svc.calls)
}

func TestRunOnce_GeneratesForPreviousMonth(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, time.April, 1, 3, 0, 0, 0, time.UTC))
	svc := &stubPayoutService{}
	s := newScheduler(t, fake, svc)

	s.RunOnce(context.Background())
	require.Len(t, svc.calls, 1)
	assert.Equal(t, 2024, svc.calls[0].Year)
	assert.Equal(t, 3, svc.calls[0].Month)
}

func TestRunOnce_JanuaryRollsBackToDecember(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, time.January, 1, 3, 0, 0, 0, time.UTC))
	svc := &stubPayoutService{}
	s := newScheduler(t, fake, svc)

	s.RunOnce(context.Background())
	require.Len(t, svc.calls, 1)
	assert.Equal(t, 2024, svc.calls[0].Year)
	assert.Equal(t, 12, svc.calls[0].Month)
}

func TestRunOnce_RunsAMonthOnlyOnce(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, time.April, 1, 3, 0, 0, 0, time.UTC))
	svc := &stubPayoutService{}
	s := newScheduler(t, fake, svc)

	ctx := context.Background()
	s.RunOnce(ctx)
	fake.Advance(2 * time.Hour)
	s.RunOnce(ctx)
	assert.Len(t, svc.calls, 1)

	fake.Set(time.Date(2024, time.May, 1, 3, 0, 0, 0, time.UTC))
	s.RunOnce(ctx)
	assert.Len(t, svc.calls, 2)
}

func TestRunOnce_RetriesAfterFailure(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, time.April, 1, 3, 0, 0, 0, time.UTC))
	svc := &stubPayoutService{err: context.DeadlineExceeded}
	s := newScheduler(t, fake, svc)

	ctx := context.Background()
	s.RunOnce(ctx)
	require.Len(t, svc.calls, 1)

	// A failed month is not marked done, the next tick tries again.
	svc.err = nil
	s.RunOnce(ctx)
	assert.Len(t, svc.calls, 2)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
