package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/referra/internal/clock"
	commissiondomain "github.com/smallbiznis/referra/internal/commission/domain"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
	"github.com/smallbiznis/referra/pkg/db"
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
	repo        programdomain.Repository
	enrollments programdomain.EnrollmentRepository
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        programdomain.Repository
	Enrollments programdomain.EnrollmentRepository
}

func NewService(p ServiceParam) programdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("program.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		enrollments: p.Enrollments,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, programdomain.ErrInvalidProgramID
	}
	return snowflake.ID(id), nil
}

func (s *Service) Create(ctx context.Context, req programdomain.CreateProgramRequest) (programdomain.Program, error) {
	if _, err := commissiondomain.ParseRuleConfig(req.CommissionConfig); err != nil {
		return programdomain.Program{}, programdomain.ErrInvalidConfig
	}

	programType := programdomain.ProgramType(req.ProgramType)
	switch programType {
	case programdomain.ProgramTypeSaaS, programdomain.ProgramTypeLeadGen, programdomain.ProgramTypeContentMedia:
	case "":
		programType = programdomain.ProgramTypeSaaS
	default:
		return programdomain.Program{}, programdomain.ErrInvalidStatus
	}

	cookieWindow := req.CookieWindowDays
	if cookieWindow <= 0 {
		cookieWindow = 30
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	now := s.clock.Now().UTC()
	program := programdomain.Program{
		ID:               s.genID.Generate(),
		Name:             req.Name,
		Slug:             slug.Make(req.Name),
		Description:      req.Description,
		ProgramType:      programType,
		Status:           programdomain.ProgramStatusActive,
		CommissionConfig: datatypes.JSON(req.CommissionConfig),
		CookieWindowDays: cookieWindow,
		Currency:         currency,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindBySlug(ctx, tx, program.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			return programdomain.ErrSlugTaken
		}
		return s.repo.Insert(ctx, tx, &program)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return programdomain.Program{}, programdomain.ErrSlugTaken
		}
		return programdomain.Program{}, err
	}

	s.log.Info("program created",
		zap.String("program_id", program.ID.String()),
		zap.String("slug", program.Slug),
	)
	return program, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (programdomain.Program, error) {
	id, err := parseID(rawID)
	if err != nil {
		return programdomain.Program{}, err
	}
	program, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return programdomain.Program{}, err
	}
	if program == nil {
		return programdomain.Program{}, programdomain.ErrProgramNotFound
	}
	return *program, nil
}

func (s *Service) List(ctx context.Context, req programdomain.ListProgramRequest) ([]programdomain.Program, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, s.db, programdomain.ListFilter{
		Status: programdomain.ProgramStatus(req.Status),
		Type:   programdomain.ProgramType(req.Type),
		Limit:  limit,
		Offset: req.Offset,
	})
}

func (s *Service) Update(ctx context.Context, rawID string, req programdomain.UpdateProgramRequest) (programdomain.Program, error) {
	id, err := parseID(rawID)
	if err != nil {
		return programdomain.Program{}, err
	}

	if len(req.CommissionConfig) > 0 {
		if _, err := commissiondomain.ParseRuleConfig(req.CommissionConfig); err != nil {
			return programdomain.Program{}, programdomain.ErrInvalidConfig
		}
	}

	var updated programdomain.Program
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		program, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if program == nil {
			return programdomain.ErrProgramNotFound
		}

		if req.Name != nil {
			program.Name = *req.Name
		}
		if req.Description != nil {
			program.Description = *req.Description
		}
		if req.Status != nil {
			status := programdomain.ProgramStatus(*req.Status)
			switch status {
			case programdomain.ProgramStatusActive, programdomain.ProgramStatusPaused, programdomain.ProgramStatusArchived:
				program.Status = status
			default:
				return programdomain.ErrInvalidStatus
			}
		}
		if len(req.CommissionConfig) > 0 {
			program.CommissionConfig = datatypes.JSON(req.CommissionConfig)
		}
		if req.CookieWindowDays != nil && *req.CookieWindowDays > 0 {
			program.CookieWindowDays = *req.CookieWindowDays
		}
		program.UpdatedAt = s.clock.Now().UTC()

		if err := s.repo.Update(ctx, tx, program); err != nil {
			return err
		}
		updated = *program
		return nil
	})
	if err != nil {
		return programdomain.Program{}, err
	}
	return updated, nil
}

func (s *Service) Enroll(ctx context.Context, rawProgramID string, req programdomain.EnrollRequest) (programdomain.Enrollment, error) {
	programID, err := parseID(rawProgramID)
	if err != nil {
		return programdomain.Enrollment{}, err
	}
	if len(req.CustomCommissionConfig) > 0 {
		if _, err := commissiondomain.ParseRuleConfig(req.CustomCommissionConfig); err != nil {
			return programdomain.Enrollment{}, programdomain.ErrInvalidConfig
		}
	}

	now := s.clock.Now().UTC()
	var enrollment programdomain.Enrollment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		program, err := s.repo.FindByID(ctx, tx, programID)
		if err != nil {
			return err
		}
		if program == nil {
			return programdomain.ErrProgramNotFound
		}
		if program.Status != programdomain.ProgramStatusActive {
			return programdomain.ErrProgramNotActive
		}

		existing, err := s.enrollments.Find(ctx, tx, programID, req.AffiliateID)
		if err != nil {
			return err
		}
		if existing != nil {
			return programdomain.ErrAlreadyEnrolled
		}

		enrollment = programdomain.Enrollment{
			ID:                     s.genID.Generate(),
			ProgramID:              programID,
			AffiliateID:            req.AffiliateID,
			Status:                 programdomain.EnrollmentStatusActive,
			CustomCommissionConfig: datatypes.JSON(req.CustomCommissionConfig),
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		return s.enrollments.Insert(ctx, tx, &enrollment)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return programdomain.Enrollment{}, programdomain.ErrAlreadyEnrolled
		}
		return programdomain.Enrollment{}, err
	}
	return enrollment, nil
}

func (s *Service) UpdateEnrollment(ctx context.Context, rawID string, req programdomain.UpdateEnrollmentRequest) (programdomain.Enrollment, error) {
	id, err := parseID(rawID)
	if err != nil {
		return programdomain.Enrollment{}, err
	}
	if len(req.CustomCommissionConfig) > 0 {
		if _, err := commissiondomain.ParseRuleConfig(req.CustomCommissionConfig); err != nil {
			return programdomain.Enrollment{}, programdomain.ErrInvalidConfig
		}
	}

	var updated programdomain.Enrollment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment, err := s.enrollments.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return programdomain.ErrEnrollmentNotFound
		}

		if req.Status != nil {
			status := programdomain.EnrollmentStatus(*req.Status)
			switch status {
			case programdomain.EnrollmentStatusPending, programdomain.EnrollmentStatusActive,
				programdomain.EnrollmentStatusPaused, programdomain.EnrollmentStatusRemoved:
				enrollment.Status = status
			default:
				return programdomain.ErrInvalidStatus
			}
		}
		if len(req.CustomCommissionConfig) > 0 {
			enrollment.CustomCommissionConfig = datatypes.JSON(req.CustomCommissionConfig)
		}
		enrollment.UpdatedAt = s.clock.Now().UTC()

		if err := s.enrollments.Update(ctx, tx, enrollment); err != nil {
			return err
		}
		updated = *enrollment
		return nil
	})
	if err != nil {
		return programdomain.Enrollment{}, err
	}
	return updated, nil
}

func (s *Service) ListEnrollments(ctx context.Context, rawProgramID string) ([]programdomain.Enrollment, error) {
	programID, err := parseID(rawProgramID)
	if err != nil {
		return nil, err
	}
	return s.enrollments.ListByProgram(ctx, s.db, programID)
}

func (s *Service) ListAffiliateEnrollments(ctx context.Context, affiliateID snowflake.ID) ([]programdomain.Enrollment, error) {
	return s.enrollments.ListByAffiliate(ctx, s.db, affiliateID)
}

func (s *Service) ActiveEnrollment(ctx context.Context, programID, affiliateID snowflake.ID) (programdomain.Enrollment, error) {
	enrollment, err := s.enrollments.Find(ctx, s.db, programID, affiliateID)
	if err != nil {
		return programdomain.Enrollment{}, err
	}
	if enrollment == nil || enrollment.Status != programdomain.EnrollmentStatusActive {
		return programdomain.Enrollment{}, programdomain.ErrEnrollmentNotFound
	}
	return *enrollment, nil
}
