package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/referra/internal/clock"
	commissiondomain "github.com/smallbiznis/referra/internal/commission/domain"
	"github.com/smallbiznis/referra/internal/observability/metrics"
	payoutdomain "github.com/smallbiznis/referra/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	metrics     *metrics.Metrics
	repo        payoutdomain.Repository
	commissions commissiondomain.Repository
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Metrics     *metrics.Metrics `optional:"true"`
	Repo        payoutdomain.Repository
	Commissions commissiondomain.Repository
}

func NewService(p ServiceParam) payoutdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payout.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		metrics:     p.Metrics,
		repo:        p.Repo,
		commissions: p.Commissions,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, payoutdomain.ErrInvalidID
	}
	return snowflake.ID(id), nil
}

func (s *Service) Generate(ctx context.Context, req payoutdomain.GenerateRequest) (payoutdomain.Payout, error) {
	affiliateID, err := parseID(req.AffiliateID)
	if err != nil {
		return payoutdomain.Payout{}, err
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() || req.PeriodEnd.Before(req.PeriodStart) {
		return payoutdomain.Payout{}, payoutdomain.ErrInvalidPeriod
	}

	now := s.clock.Now().UTC()
	var payout payoutdomain.Payout
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eligible, err := s.commissions.FindEligibleForUpdate(ctx, tx, affiliateID, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return payoutdomain.ErrNoEligibleCommissions
		}

		total := decimal.Zero
		ids := make([]snowflake.ID, 0, len(eligible))
		for _, commission := range eligible {
			total = total.Add(commission.Amount)
			ids = append(ids, commission.ID)
		}

		periodStart := req.PeriodStart
		periodEnd := req.PeriodEnd
		payout = payoutdomain.Payout{
			ID:              s.genID.Generate(),
			AffiliateID:     affiliateID,
			TotalAmount:     total,
			Currency:        eligible[0].Currency,
			CommissionCount: len(eligible),
			Status:          payoutdomain.PayoutStatusPending,
			PeriodStart:     &periodStart,
			PeriodEnd:       &periodEnd,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.Insert(ctx, tx, &payout); err != nil {
			return err
		}
		return s.commissions.AssignPayout(ctx, tx, ids, payout.ID, now)
	})
	if err != nil {
		return payoutdomain.Payout{}, err
	}

	s.metrics.RecordPayout(ctx)
	s.log.Info("payout generated",
		zap.String("payout_id", payout.ID.String()),
		zap.String("affiliate_id", payout.AffiliateID.String()),
		zap.String("total", payout.TotalAmount.String()),
		zap.Int("commissions", payout.CommissionCount),
	)
	return payout, nil
}

func (s *Service) GenerateMonthly(ctx context.Context, req payoutdomain.GenerateMonthlyRequest) ([]payoutdomain.Payout, error) {
	if req.Month < 1 || req.Month > 12 {
		return nil, payoutdomain.ErrInvalidPeriod
	}
	start, end := payoutdomain.MonthlyPeriod(req.Year, time.Month(req.Month))

	affiliateIDs, err := s.commissions.AffiliatesWithEligible(ctx, s.db, start, end)
	if err != nil {
		return nil, err
	}

	payouts := make([]payoutdomain.Payout, 0, len(affiliateIDs))
	for _, affiliateID := range affiliateIDs {
		payout, err := s.Generate(ctx, payoutdomain.GenerateRequest{
			AffiliateID: affiliateID.String(),
			PeriodStart: start,
			PeriodEnd:   end,
		})
		if err != nil {
			// Another instance may have claimed the commissions between
			// the listing and the generate.
			if errors.Is(err, payoutdomain.ErrNoEligibleCommissions) {
				continue
			}
			return nil, err
		}
		payouts = append(payouts, payout)
	}
	return payouts, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (payoutdomain.Payout, error) {
	id, err := parseID(rawID)
	if err != nil {
		return payoutdomain.Payout{}, err
	}
	payout, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return payoutdomain.Payout{}, err
	}
	if payout == nil {
		return payoutdomain.Payout{}, payoutdomain.ErrPayoutNotFound
	}
	return *payout, nil
}

func (s *Service) List(ctx context.Context, req payoutdomain.ListRequest) ([]payoutdomain.Payout, error) {
	filter := payoutdomain.ListFilter{
		Status: payoutdomain.PayoutStatus(req.Status),
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if req.AffiliateID != "" {
		id, err := parseID(req.AffiliateID)
		if err != nil {
			return nil, err
		}
		filter.AffiliateID = id
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) Process(ctx context.Context, rawID string, req payoutdomain.ProcessRequest) (payoutdomain.Payout, error) {
	return s.mutate(ctx, rawID, func(payout *payoutdomain.Payout, now time.Time) error {
		if payout.Status != payoutdomain.PayoutStatusPending && payout.Status != payoutdomain.PayoutStatusProcessing {
			return &payoutdomain.InvalidTransitionError{From: payout.Status, To: payoutdomain.PayoutStatusProcessing}
		}
		payout.Status = payoutdomain.PayoutStatusProcessing
		payout.PaymentMethod = req.PaymentMethod
		payout.PaymentReference = req.PaymentReference
		if req.ProcessedBy != 0 {
			processedBy := req.ProcessedBy
			payout.ProcessedBy = &processedBy
		}
		payout.ProcessedAt = &now
		return nil
	}, nil)
}

func (s *Service) Complete(ctx context.Context, rawID string) (payoutdomain.Payout, error) {
	return s.mutate(ctx, rawID, func(payout *payoutdomain.Payout, now time.Time) error {
		if payout.Status != payoutdomain.PayoutStatusProcessing {
			return &payoutdomain.InvalidTransitionError{From: payout.Status, To: payoutdomain.PayoutStatusCompleted}
		}
		payout.Status = payoutdomain.PayoutStatusCompleted
		payout.CompletedAt = &now
		return nil
	}, func(ctx context.Context, tx *gorm.DB, payout *payoutdomain.Payout, now time.Time) error {
		return s.commissions.UpdateStatusByPayout(ctx, tx, payout.ID, commissiondomain.CommissionStatusPaid, now)
	})
}

func (s *Service) Cancel(ctx context.Context, rawID string) (payoutdomain.Payout, error) {
	return s.mutate(ctx, rawID, func(payout *payoutdomain.Payout, now time.Time) error {
		if payout.Status == payoutdomain.PayoutStatusCompleted {
			return &payoutdomain.InvalidTransitionError{From: payout.Status, To: payoutdomain.PayoutStatusCancelled}
		}
		payout.Status = payoutdomain.PayoutStatusCancelled
		return nil
	}, func(ctx context.Context, tx *gorm.DB, payout *payoutdomain.Payout, now time.Time) error {
		return s.commissions.ReleaseFromPayout(ctx, tx, payout.ID, now)
	})
}

func (s *Service) Fail(ctx context.Context, rawID string) (payoutdomain.Payout, error) {
	return s.mutate(ctx, rawID, func(payout *payoutdomain.Payout, now time.Time) error {
		if payout.Status != payoutdomain.PayoutStatusPending && payout.Status != payoutdomain.PayoutStatusProcessing {
			return &payoutdomain.InvalidTransitionError{From: payout.Status, To: payoutdomain.PayoutStatusFailed}
		}
		payout.Status = payoutdomain.PayoutStatusFailed
		return nil
	}, func(ctx context.Context, tx *gorm.DB, payout *payoutdomain.Payout, now time.Time) error {
		return s.commissions.ReleaseFromPayout(ctx, tx, payout.ID, now)
	})
}

// mutate loads the payout under a row lock, applies the transition and
// any commission side effect in one transaction.
func (s *Service) mutate(
	ctx context.Context,
	rawID string,
	apply func(payout *payoutdomain.Payout, now time.Time) error,
	sideEffect func(ctx context.Context, tx *gorm.DB, payout *payoutdomain.Payout, now time.Time) error,
) (payoutdomain.Payout, error) {
	id, err := parseID(rawID)
	if err != nil {
		return payoutdomain.Payout{}, err
	}

	var updated payoutdomain.Payout
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payout, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if payout == nil {
			return payoutdomain.ErrPayoutNotFound
		}

		now := s.clock.Now().UTC()
		if err := apply(payout, now); err != nil {
			return err
		}
		payout.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, payout); err != nil {
			return err
		}
		if sideEffect != nil {
			if err := sideEffect(ctx, tx, payout, now); err != nil {
				return err
			}
		}
		updated = *payout
		return nil
	})
	if err != nil {
		return payoutdomain.Payout{}, err
	}

	s.log.Info("payout transitioned",
		zap.String("payout_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

func (s *Service) Stats(ctx context.Context) (payoutdomain.Stats, error) {
	totals, err := s.repo.SumByStatus(ctx, s.db)
	if err != nil {
		return payoutdomain.Stats{}, err
	}
	return payoutdomain.Stats{ByStatus: totals}, nil
}
