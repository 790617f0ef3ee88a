package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/referra/internal/auth/password"
	"github.com/smallbiznis/referra/internal/clock"
	userdomain "github.com/smallbiznis/referra/internal/user/domain"
	"github.com/smallbiznis/referra/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  userdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  userdomain.Repository
}

func NewService(p ServiceParam) userdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req userdomain.CreateUserRequest) (userdomain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := userdomain.Role(req.Role)
	switch role {
	case userdomain.RoleAdmin, userdomain.RoleAffiliate, userdomain.RoleCustomer:
	case "":
		role = userdomain.RoleAffiliate
	default:
		return userdomain.User{}, userdomain.ErrInvalidRole
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return userdomain.User{}, err
	}

	now := s.clock.Now().UTC()
	user := userdomain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return userdomain.ErrEmailTaken
		}
		return s.repo.Insert(ctx, tx, &user)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return userdomain.User{}, userdomain.ErrEmailTaken
		}
		return userdomain.User{}, err
	}
	return user, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, userdomain.ErrInvalidUserID
	}
	return snowflake.ID(id), nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (userdomain.User, error) {
	id, err := parseID(rawID)
	if err != nil {
		return userdomain.User{}, err
	}

	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return userdomain.User{}, err
	}
	if user == nil {
		return userdomain.User{}, userdomain.ErrUserNotFound
	}
	return *user, nil
}

func (s *Service) List(ctx context.Context, req userdomain.ListUserRequest) ([]userdomain.User, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, s.db, userdomain.ListFilter{
		Role:     userdomain.Role(req.Role),
		IsActive: req.IsActive,
		Limit:    limit,
		Offset:   req.Offset,
	})
}

func (s *Service) Update(ctx context.Context, rawID string, req userdomain.UpdateUserRequest) (userdomain.User, error) {
	id, err := parseID(rawID)
	if err != nil {
		return userdomain.User{}, err
	}

	var updated userdomain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return userdomain.ErrUserNotFound
		}

		if req.FullName != nil {
			user.FullName = *req.FullName
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
		user.UpdatedAt = s.clock.Now().UTC()

		if err := s.repo.Update(ctx, tx, user); err != nil {
			return err
		}
		updated = *user
		return nil
	})
	if err != nil {
		return userdomain.User{}, err
	}
	return updated, nil
}

func (s *Service) Deactivate(ctx context.Context, rawID string) error {
	active := false
	_, err := s.Update(ctx, rawID, userdomain.UpdateUserRequest{IsActive: &active})
	return err
}
