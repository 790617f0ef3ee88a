package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/smallbiznis/referra/internal/auth/domain"
	"github.com/smallbiznis/referra/internal/auth/token"
	"github.com/smallbiznis/referra/internal/clock"
	"github.com/smallbiznis/referra/internal/config"
	userdomain "github.com/smallbiznis/referra/internal/user/domain"
	userrepo "github.com/smallbiznis/referra/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	clock *clock.FakeClock
	svc   authdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&userdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC))
	cfg := config.Config{
		AuthTokenSecret: "test-secret",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}

	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fake,
		Tokens: token.NewManager(cfg, fake),
		Users:  userrepo.Provide(),
	})

	return &fixture{db: db, clock: fake, svc: svc}
}

func (f *fixture) register(t *testing.T, email string) authdomain.TokenResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), authdomain.RegisterRequest{
		Email:    email,
		Password: "hunter2hunter2",
		FullName: "Jamie Doe",
	})
	require.NoError(t, err)
	return resp
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	resp := f.register(t, "Jamie@Example.com")
	assert.Equal(t, "bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64((30 * time.Minute).Seconds()), resp.ExpiresIn)
	assert.Equal(t, "jamie@example.com", resp.User.Email, "email is normalized")
	assert.Equal(t, userdomain.RoleAffiliate, resp.User.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)

	f.register(t, "jamie@example.com")
	_, err := f.svc.Register(context.Background(), authdomain.RegisterRequest{
		Email:    "JAMIE@example.com",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, authdomain.ErrEmailTaken)
}

func TestRegister_WeakPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), authdomain.RegisterRequest{
		Email:    "jamie@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, authdomain.ErrWeakPassword)
}

func TestRegister_InvalidEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), authdomain.RegisterRequest{
		Email:    "not-an-email",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidEmail)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered := f.register(t, "jamie@example.com")

	resp, err := f.svc.Login(ctx, authdomain.LoginRequest{
		Email:    "jamie@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)

	var user userdomain.User
	require.NoError(t, f.db.First(&user, registered.User.ID).Error)
	require.NotNil(t, user.LastLoginAt)
	assert.True(t, user.LastLoginAt.Equal(f.clock.Now().UTC()))
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)

	f.register(t, "jamie@example.com")
	_, err := f.svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "jamie@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLogin_DisabledUser(t *testing.T) {
	f := newFixture(t)

	registered := f.register(t, "jamie@example.com")
	require.NoError(t, f.db.Model(&userdomain.User{}).
		Where("id = ?", registered.User.ID).
		Update("is_active", false).Error)

	_, err := f.svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "jamie@example.com",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, authdomain.ErrUserDisabled)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered := f.register(t, "jamie@example.com")

	resp, err := f.svc.Refresh(ctx, authdomain.RefreshRequest{RefreshToken: registered.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	f := newFixture(t)

	registered := f.register(t, "jamie@example.com")
	_, err := f.svc.Refresh(context.Background(), authdomain.RefreshRequest{RefreshToken: registered.AccessToken})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	f := newFixture(t)

	registered := f.register(t, "jamie@example.com")
	f.clock.Advance(8 * 24 * time.Hour)

	_, err := f.svc.Refresh(context.Background(), authdomain.RefreshRequest{RefreshToken: registered.RefreshToken})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}
