package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	affiliatedomain "github.com/smallbiznis/referra/internal/affiliate/domain"
	"github.com/smallbiznis/referra/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  affiliatedomain.Repository
	tiers affiliatedomain.TierRepository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  affiliatedomain.Repository
	Tiers affiliatedomain.TierRepository
}

func NewService(p ServiceParam) affiliatedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("affiliate.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		tiers: p.Tiers,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, affiliatedomain.ErrInvalidID
	}
	return snowflake.ID(id), nil
}

func (s *Service) Apply(ctx context.Context, req affiliatedomain.ApplyRequest) (affiliatedomain.Affiliate, error) {
	now := s.clock.Now().UTC()

	var created affiliatedomain.Affiliate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByUserID(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return affiliatedomain.ErrAlreadyAffiliate
		}

		code, err := s.uniqueCode(ctx, tx)
		if err != nil {
			return err
		}

		created = affiliatedomain.Affiliate{
			ID:           s.genID.Generate(),
			UserID:       req.UserID,
			Code:         code,
			Status:       affiliatedomain.AffiliateStatusPending,
			CompanyName:  req.CompanyName,
			Website:      req.Website,
			PaymentEmail: req.PaymentEmail,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return s.repo.Insert(ctx, tx, &created)
	})
	if err != nil {
		return affiliatedomain.Affiliate{}, err
	}

	s.log.Info("affiliate applied",
		zap.String("affiliate_id", created.ID.String()),
		zap.String("code", created.Code),
	)
	return created, nil
}

// uniqueCode draws short codes first and falls back to a longer code when
// the short space keeps colliding.
func (s *Service) uniqueCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		length := codeLength
		if attempt == codeMaxAttempts-1 {
			length = codeRetryLength
		}
		suffix, err := randomCode(length)
		if err != nil {
			return "", err
		}
		code := codePrefix + suffix

		existing, err := s.repo.FindByCode(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", errors.New("affiliate code space exhausted")
}

func (s *Service) GetByID(ctx context.Context, rawID string) (affiliatedomain.Affiliate, error) {
	id, err := parseID(rawID)
	if err != nil {
		return affiliatedomain.Affiliate{}, err
	}
	affiliate, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return affiliatedomain.Affiliate{}, err
	}
	if affiliate == nil {
		return affiliatedomain.Affiliate{}, affiliatedomain.ErrAffiliateNotFound
	}
	return *affiliate, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID snowflake.ID) (affiliatedomain.Affiliate, error) {
	affiliate, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return affiliatedomain.Affiliate{}, err
	}
	if affiliate == nil {
		return affiliatedomain.Affiliate{}, affiliatedomain.ErrAffiliateNotFound
	}
	return *affiliate, nil
}

func (s *Service) List(ctx context.Context, req affiliatedomain.ListRequest) ([]affiliatedomain.Affiliate, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, s.db, affiliatedomain.ListFilter{
		Status: affiliatedomain.AffiliateStatus(req.Status),
		Limit:  limit,
		Offset: req.Offset,
	})
}

func (s *Service) UpdateByUserID(ctx context.Context, userID snowflake.ID, req affiliatedomain.UpdateRequest) (affiliatedomain.Affiliate, error) {
	var updated affiliatedomain.Affiliate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affiliate, err := s.repo.FindByUserID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return affiliatedomain.ErrAffiliateNotFound
		}

		if req.CompanyName != nil {
			affiliate.CompanyName = *req.CompanyName
		}
		if req.Website != nil {
			affiliate.Website = *req.Website
		}
		if req.PaymentEmail != nil {
			affiliate.PaymentEmail = *req.PaymentEmail
		}
		affiliate.UpdatedAt = s.clock.Now().UTC()

		if err := s.repo.Update(ctx, tx, affiliate); err != nil {
			return err
		}
		updated = *affiliate
		return nil
	})
	if err != nil {
		return affiliatedomain.Affiliate{}, err
	}
	return updated, nil
}

func (s *Service) Approve(ctx context.Context, rawID string, req affiliatedomain.ApproveRequest) (affiliatedomain.Affiliate, error) {
	id, err := parseID(rawID)
	if err != nil {
		return affiliatedomain.Affiliate{}, err
	}

	var approved affiliatedomain.Affiliate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affiliate, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return affiliatedomain.ErrAffiliateNotFound
		}
		if affiliate.Status != affiliatedomain.AffiliateStatusPending {
			return affiliatedomain.ErrNotPending
		}

		var tier *affiliatedomain.AffiliateTier
		if req.TierID != "" {
			tierID, err := parseID(req.TierID)
			if err != nil {
				return err
			}
			tier, err = s.tiers.FindByID(ctx, tx, tierID)
			if err != nil {
				return err
			}
			if tier == nil {
				return affiliatedomain.ErrTierNotFound
			}
		} else {
			tier, err = s.tiers.FindLowestLevel(ctx, tx)
			if err != nil {
				return err
			}
		}

		affiliate.Status = affiliatedomain.AffiliateStatusApproved
		affiliate.RejectionReason = ""
		if tier != nil {
			tierID := tier.ID
			affiliate.TierID = &tierID
		}
		affiliate.UpdatedAt = s.clock.Now().UTC()

		if err := s.repo.Update(ctx, tx, affiliate); err != nil {
			return err
		}
		approved = *affiliate
		return nil
	})
	if err != nil {
		return affiliatedomain.Affiliate{}, err
	}

	s.log.Info("affiliate approved", zap.String("affiliate_id", approved.ID.String()))
	return approved, nil
}

func (s *Service) Reject(ctx context.Context, rawID string, req affiliatedomain.RejectRequest) (affiliatedomain.Affiliate, error) {
	id, err := parseID(rawID)
	if err != nil {
		return affiliatedomain.Affiliate{}, err
	}

	var rejected affiliatedomain.Affiliate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affiliate, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return affiliatedomain.ErrAffiliateNotFound
		}
		if affiliate.Status != affiliatedomain.AffiliateStatusPending {
			return affiliatedomain.ErrNotPending
		}

		affiliate.Status = affiliatedomain.AffiliateStatusRejected
		affiliate.RejectionReason = req.Reason
		affiliate.UpdatedAt = s.clock.Now().UTC()

		if err := s.repo.Update(ctx, tx, affiliate); err != nil {
			return err
		}
		rejected = *affiliate
		return nil
	})
	if err != nil {
		return affiliatedomain.Affiliate{}, err
	}
	return rejected, nil
}

func (s *Service) ListTiers(ctx context.Context) ([]affiliatedomain.AffiliateTier, error) {
	return s.tiers.List(ctx, s.db)
}

func (s *Service) GetTier(ctx context.Context, rawID string) (affiliatedomain.AffiliateTier, error) {
	id, err := parseID(rawID)
	if err != nil {
		return affiliatedomain.AffiliateTier{}, err
	}
	tier, err := s.tiers.FindByID(ctx, s.db, id)
	if err != nil {
		return affiliatedomain.AffiliateTier{}, err
	}
	if tier == nil {
		return affiliatedomain.AffiliateTier{}, affiliatedomain.ErrTierNotFound
	}
	return *tier, nil
}

func (s *Service) Multiplier(ctx context.Context, affiliateID snowflake.ID) (decimal.Decimal, error) {
	affiliate, err := s.repo.FindByID(ctx, s.db, affiliateID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if affiliate == nil {
		return decimal.Decimal{}, affiliatedomain.ErrAffiliateNotFound
	}
	if affiliate.TierID == nil {
		return decimal.NewFromInt(1), nil
	}

	tier, err := s.tiers.FindByID(ctx, s.db, *affiliate.TierID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if tier == nil {
		return decimal.NewFromInt(1), nil
	}
	return tier.CommissionMultiplier, nil
}
