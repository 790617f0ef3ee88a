package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/referra/internal/clock"
	commissiondomain "github.com/smallbiznis/referra/internal/commission/domain"
	conversiondomain "github.com/smallbiznis/referra/internal/conversion/domain"
	"github.com/smallbiznis/referra/internal/observability/metrics"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
	referraldomain "github.com/smallbiznis/referra/internal/referral/domain"
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
	repo        conversiondomain.Repository
	links       referraldomain.Repository
	programs    programdomain.Repository
	commissions commissiondomain.Service
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Metrics     *metrics.Metrics `optional:"true"`
	Repo        conversiondomain.Repository
	Links       referraldomain.Repository
	Programs    programdomain.Repository
	Commissions commissiondomain.Service
}

func NewService(p ServiceParam) conversiondomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("conversion.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		metrics:     p.Metrics,
		repo:        p.Repo,
		links:       p.Links,
		programs:    p.Programs,
		commissions: p.Commissions,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, conversiondomain.ErrInvalidID
	}
	return snowflake.ID(id), nil
}

func (s *Service) Create(ctx context.Context, req conversiondomain.CreateConversionRequest) (conversiondomain.Conversion, error) {
	if req.OrderAmount.IsNegative() {
		return conversiondomain.Conversion{}, conversiondomain.ErrNegativeAmount
	}

	conversionType := conversiondomain.ConversionType(req.Type)
	switch conversionType {
	case conversiondomain.ConversionTypeSale, conversiondomain.ConversionTypeLead,
		conversiondomain.ConversionTypeSignup, conversiondomain.ConversionTypeCustom:
	case "":
		conversionType = conversiondomain.ConversionTypeSale
	default:
		return conversiondomain.Conversion{}, conversiondomain.ErrInvalidType
	}

	now := s.clock.Now().UTC()
	var conversion conversiondomain.Conversion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := s.resolveLink(ctx, tx, req)
		if err != nil {
			return err
		}

		currency := req.Currency
		if currency == "" {
			program, err := s.programs.FindByID(ctx, tx, link.ProgramID)
			if err != nil {
				return err
			}
			if program == nil {
				return programdomain.ErrProgramNotFound
			}
			currency = program.Currency
		}

		linkID := link.ID
		conversion = conversiondomain.Conversion{
			ID:          s.genID.Generate(),
			ProgramID:   link.ProgramID,
			AffiliateID: link.AffiliateID,
			LinkID:      &linkID,
			ExternalID:  req.ExternalID,
			VisitorID:   req.VisitorID,
			Type:        conversionType,
			OrderAmount: req.OrderAmount,
			Currency:    currency,
			Status:      conversiondomain.ConversionStatusPending,
			Metadata:    datatypes.JSON(req.Metadata),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.Insert(ctx, tx, &conversion); err != nil {
			return err
		}
		if err := s.links.IncrementConversions(ctx, tx, link.ID, now); err != nil {
			return err
		}

		if req.AutoValidate {
			conversion.Status = conversiondomain.ConversionStatusValidated
			conversion.ValidatedAt = &now
			conversion.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, &conversion); err != nil {
				return err
			}
			if _, err := s.commissions.BuildForConversion(ctx, tx, conversionInfo(conversion)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return conversiondomain.Conversion{}, err
	}

	s.metrics.RecordConversion(ctx, string(conversion.Type))
	s.log.Info("conversion created",
		zap.String("conversion_id", conversion.ID.String()),
		zap.String("status", string(conversion.Status)),
	)
	return conversion, nil
}

func (s *Service) resolveLink(ctx context.Context, tx *gorm.DB, req conversiondomain.CreateConversionRequest) (*referraldomain.ReferralLink, error) {
	if req.LinkCode != "" {
		link, err := s.links.FindByCode(ctx, tx, req.LinkCode)
		if err != nil {
			return nil, err
		}
		if link == nil {
			return nil, referraldomain.ErrLinkNotFound
		}
		return link, nil
	}
	if req.LinkID != "" {
		id, err := parseID(req.LinkID)
		if err != nil {
			return nil, referraldomain.ErrInvalidLinkID
		}
		link, err := s.links.FindByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if link == nil {
			return nil, referraldomain.ErrLinkNotFound
		}
		return link, nil
	}
	return nil, conversiondomain.ErrMissingLink
}

func conversionInfo(c conversiondomain.Conversion) commissiondomain.ConversionInfo {
	return commissiondomain.ConversionInfo{
		ID:          c.ID,
		ProgramID:   c.ProgramID,
		AffiliateID: c.AffiliateID,
		OrderAmount: c.OrderAmount,
		Currency:    c.Currency,
	}
}

func (s *Service) GetByID(ctx context.Context, rawID string) (conversiondomain.Conversion, error) {
	id, err := parseID(rawID)
	if err != nil {
		return conversiondomain.Conversion{}, err
	}
	conversion, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return conversiondomain.Conversion{}, err
	}
	if conversion == nil {
		return conversiondomain.Conversion{}, conversiondomain.ErrConversionNotFound
	}
	return *conversion, nil
}

func (s *Service) List(ctx context.Context, req conversiondomain.ListConversionRequest) ([]conversiondomain.Conversion, error) {
	filter := conversiondomain.ListFilter{
		Status: conversiondomain.ConversionStatus(req.Status),
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

func (s *Service) Validate(ctx context.Context, rawID string) (conversiondomain.Conversion, error) {
	return s.transition(ctx, rawID, conversiondomain.ConversionStatusValidated)
}

func (s *Service) Reject(ctx context.Context, rawID string) (conversiondomain.Conversion, error) {
	return s.transition(ctx, rawID, conversiondomain.ConversionStatusRejected)
}

func (s *Service) Reverse(ctx context.Context, rawID string) (conversiondomain.Conversion, error) {
	return s.transition(ctx, rawID, conversiondomain.ConversionStatusReversed)
}

// transition applies the state machine and its side effects in one
// transaction: validation builds the commission, reversal forces the
// commission to rejected whatever its status.
func (s *Service) transition(ctx context.Context, rawID string, target conversiondomain.ConversionStatus) (conversiondomain.Conversion, error) {
	id, err := parseID(rawID)
	if err != nil {
		return conversiondomain.Conversion{}, err
	}

	var updated conversiondomain.Conversion
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conversion, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if conversion == nil {
			return conversiondomain.ErrConversionNotFound
		}
		if !conversiondomain.CanTransition(conversion.Status, target) {
			return &conversiondomain.InvalidTransitionError{From: conversion.Status, To: target}
		}

		now := s.clock.Now().UTC()
		conversion.Status = target
		if target == conversiondomain.ConversionStatusValidated {
			conversion.ValidatedAt = &now
		}
		conversion.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, conversion); err != nil {
			return err
		}

		switch target {
		case conversiondomain.ConversionStatusValidated:
			if _, err := s.commissions.BuildForConversion(ctx, tx, conversionInfo(*conversion)); err != nil {
				return err
			}
		case conversiondomain.ConversionStatusReversed:
			if err := s.commissions.ForceReject(ctx, tx, conversion.ID); err != nil {
				return err
			}
		}

		updated = *conversion
		return nil
	})
	if err != nil {
		return conversiondomain.Conversion{}, err
	}

	s.log.Info("conversion transitioned",
		zap.String("conversion_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}
