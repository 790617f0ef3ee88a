package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/referra/internal/auth/domain"
	"github.com/smallbiznis/referra/internal/auth/password"
	"github.com/smallbiznis/referra/internal/auth/token"
	"github.com/smallbiznis/referra/internal/clock"
	userdomain "github.com/smallbiznis/referra/internal/user/domain"
	"github.com/smallbiznis/referra/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID  *snowflake.Node
	clock  clock.Clock
	tokens *token.Manager
	users  userdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Tokens *token.Manager
	Users  userdomain.Repository
}

func NewService(p ServiceParam) authdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("auth.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		tokens: p.Tokens,
		users:  p.Users,
	}
}

func (s *Service) Register(ctx context.Context, req authdomain.RegisterRequest) (authdomain.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return authdomain.TokenResponse{}, authdomain.ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return authdomain.TokenResponse{}, authdomain.ErrWeakPassword
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return authdomain.TokenResponse{}, err
	}

	now := s.clock.Now().UTC()
	user := userdomain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         userdomain.RoleAffiliate,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.users.FindByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return authdomain.ErrEmailTaken
		}
		return s.users.Insert(ctx, tx, &user)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return authdomain.TokenResponse{}, authdomain.ErrEmailTaken
		}
		return authdomain.TokenResponse{}, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.issueTokens(user)
}

func (s *Service) Login(ctx context.Context, req authdomain.LoginRequest) (authdomain.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.FindByEmail(ctx, s.db, email)
	if err != nil {
		return authdomain.TokenResponse{}, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return authdomain.TokenResponse{}, authdomain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return authdomain.TokenResponse{}, authdomain.ErrUserDisabled
	}

	now := s.clock.Now().UTC()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, s.db, user); err != nil {
		return authdomain.TokenResponse{}, err
	}

	return s.issueTokens(*user)
}

func (s *Service) Refresh(ctx context.Context, req authdomain.RefreshRequest) (authdomain.TokenResponse, error) {
	claims, err := s.tokens.Validate(req.RefreshToken, token.TypeRefresh)
	if err != nil {
		return authdomain.TokenResponse{}, authdomain.ErrInvalidCredentials
	}

	userID, err := claims.UserID()
	if err != nil {
		return authdomain.TokenResponse{}, authdomain.ErrInvalidCredentials
	}

	user, err := s.users.FindByID(ctx, s.db, snowflake.ID(userID))
	if err != nil {
		return authdomain.TokenResponse{}, err
	}
	if user == nil {
		return authdomain.TokenResponse{}, authdomain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return authdomain.TokenResponse{}, authdomain.ErrUserDisabled
	}

	return s.issueTokens(*user)
}

func (s *Service) issueTokens(user userdomain.User) (authdomain.TokenResponse, error) {
	access, err := s.tokens.IssueAccess(int64(user.ID), string(user.Role))
	if err != nil {
		return authdomain.TokenResponse{}, err
	}
	refresh, err := s.tokens.IssueRefresh(int64(user.ID), string(user.Role))
	if err != nil {
		return authdomain.TokenResponse{}, err
	}

	return authdomain.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		User:         user,
	}, nil
}
