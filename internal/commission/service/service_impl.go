package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	affiliatedomain "github.com/smallbiznis/referra/internal/affiliate/domain"
	"github.com/smallbiznis/referra/internal/clock"
	commissiondomain "github.com/smallbiznis/referra/internal/commission/domain"
	"github.com/smallbiznis/referra/internal/observability/metrics"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	metrics     *metrics.Metrics
	repo        commissiondomain.Repository
	programs    programdomain.Repository
	enrollments programdomain.EnrollmentRepository
	affiliates  affiliatedomain.Repository
	tiers       affiliatedomain.TierRepository
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Metrics     *metrics.Metrics `optional:"true"`
	Repo        commissiondomain.Repository
	Programs    programdomain.Repository
	Enrollments programdomain.EnrollmentRepository
	Affiliates  affiliatedomain.Repository
	Tiers       affiliatedomain.TierRepository
}

func NewService(p ServiceParam) commissiondomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("commission.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		metrics:     p.Metrics,
		repo:        p.Repo,
		programs:    p.Programs,
		enrollments: p.Enrollments,
		affiliates:  p.Affiliates,
		tiers:       p.Tiers,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, commissiondomain.ErrInvalidID
	}
	return snowflake.ID(id), nil
}

func (s *Service) BuildForConversion(ctx context.Context, tx *gorm.DB, conv commissiondomain.ConversionInfo) (*commissiondomain.Commission, error) {
	existing, err := s.repo.FindByConversionID(ctx, tx, conv.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	raw, err := s.ruleConfigFor(ctx, tx, conv.ProgramID, conv.AffiliateID)
	if err != nil {
		return nil, err
	}

	cfg := commissiondomain.DecodeRuleConfig(raw)
	base := cfg.EvaluateBase(conv.OrderAmount).Round(2)

	multiplier, tierID, err := s.multiplierFor(ctx, tx, conv.AffiliateID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	commission := commissiondomain.Commission{
		ID:           s.genID.Generate(),
		ConversionID: conv.ID,
		AffiliateID:  conv.AffiliateID,
		ProgramID:    conv.ProgramID,
		BaseAmount:   base,
		Multiplier:   multiplier,
		Amount:       base.Mul(multiplier).Round(2),
		Currency:     conv.Currency,
		Status:       commissiondomain.CommissionStatusPending,
		TierID:       tierID,
		RuleSnapshot: datatypes.JSON(raw),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, tx, &commission); err != nil {
		return nil, err
	}

	s.metrics.RecordCommission(ctx, string(cfg.Type))
	s.log.Info("commission created",
		zap.String("commission_id", commission.ID.String()),
		zap.String("conversion_id", conv.ID.String()),
		zap.String("amount", commission.Amount.String()),
	)
	return &commission, nil
}

// ruleConfigFor prefers a non-empty enrollment override over the
// program's config.
func (s *Service) ruleConfigFor(ctx context.Context, tx *gorm.DB, programID, affiliateID snowflake.ID) ([]byte, error) {
	enrollment, err := s.enrollments.Find(ctx, tx, programID, affiliateID)
	if err != nil {
		return nil, err
	}
	if enrollment != nil && len(enrollment.CustomCommissionConfig) > 0 {
		return enrollment.CustomCommissionConfig, nil
	}

	program, err := s.programs.FindByID(ctx, tx, programID)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, programdomain.ErrProgramNotFound
	}
	return program.CommissionConfig, nil
}

// multiplierFor resolves which tier applies and its multiplier, exactly
// 1.0 and no tier when the affiliate has none.
func (s *Service) multiplierFor(ctx context.Context, tx *gorm.DB, affiliateID snowflake.ID) (decimal.Decimal, *snowflake.ID, error) {
	one := decimal.NewFromInt(1)

	affiliate, err := s.affiliates.FindByID(ctx, tx, affiliateID)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}
	if affiliate == nil || affiliate.TierID == nil {
		return one, nil, nil
	}

	tier, err := s.tiers.FindByID(ctx, tx, *affiliate.TierID)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}
	if tier == nil {
		return one, nil, nil
	}
	tierID := tier.ID
	return tier.CommissionMultiplier, &tierID, nil
}

func (s *Service) ForceReject(ctx context.Context, tx *gorm.DB, conversionID snowflake.ID) error {
	commission, err := s.repo.FindByConversionID(ctx, tx, conversionID)
	if err != nil {
		return err
	}
	if commission == nil {
		return nil
	}

	commission.Status = commissiondomain.CommissionStatusRejected
	commission.UpdatedAt = s.clock.Now().UTC()
	return s.repo.Update(ctx, tx, commission)
}

func (s *Service) GetByID(ctx context.Context, rawID string) (commissiondomain.Commission, error) {
	id, err := parseID(rawID)
	if err != nil {
		return commissiondomain.Commission{}, err
	}
	commission, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return commissiondomain.Commission{}, err
	}
	if commission == nil {
		return commissiondomain.Commission{}, commissiondomain.ErrCommissionNotFound
	}
	return *commission, nil
}

func (s *Service) List(ctx context.Context, req commissiondomain.ListRequest) ([]commissiondomain.Commission, error) {
	filter := commissiondomain.ListFilter{
		Status: commissiondomain.CommissionStatus(req.Status),
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
	if req.ProgramID != "" {
		id, err := parseID(req.ProgramID)
		if err != nil {
			return nil, err
		}
		filter.ProgramID = id
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) Approve(ctx context.Context, rawID string, approverID snowflake.ID) (commissiondomain.Commission, error) {
	return s.transition(ctx, rawID, approverID, commissiondomain.CommissionStatusApproved)
}

func (s *Service) Reject(ctx context.Context, rawID string, approverID snowflake.ID) (commissiondomain.Commission, error) {
	return s.transition(ctx, rawID, approverID, commissiondomain.CommissionStatusRejected)
}

func (s *Service) transition(ctx context.Context, rawID string, approverID snowflake.ID, target commissiondomain.CommissionStatus) (commissiondomain.Commission, error) {
	id, err := parseID(rawID)
	if err != nil {
		return commissiondomain.Commission{}, err
	}

	var updated commissiondomain.Commission
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commission, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if commission == nil {
			return commissiondomain.ErrCommissionNotFound
		}
		if commission.Status != commissiondomain.CommissionStatusPending {
			return commissiondomain.ErrNotPending
		}

		now := s.clock.Now().UTC()
		commission.Status = target
		commission.ApprovedBy = &approverID
		commission.ApprovedAt = &now
		commission.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, commission); err != nil {
			return err
		}
		updated = *commission
		return nil
	})
	if err != nil {
		return commissiondomain.Commission{}, err
	}
	return updated, nil
}

func (s *Service) Earnings(ctx context.Context, rawAffiliateID string) (commissiondomain.EarningsSummary, error) {
	affiliateID, err := parseID(rawAffiliateID)
	if err != nil {
		return commissiondomain.EarningsSummary{}, err
	}

	totals, err := s.repo.SumByStatus(ctx, s.db, affiliateID)
	if err != nil {
		return commissiondomain.EarningsSummary{}, err
	}

	earned := decimal.Zero
	for status, total := range totals {
		if status == commissiondomain.CommissionStatusApproved || status == commissiondomain.CommissionStatusPaid {
			earned = earned.Add(total.Amount)
		}
	}

	return commissiondomain.EarningsSummary{
		AffiliateID: affiliateID.String(),
		ByStatus:    totals,
		TotalEarned: earned,
	}, nil
}
