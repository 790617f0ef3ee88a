package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/referra/internal/clock"
	"github.com/smallbiznis/referra/internal/config"
)

const issuer = "referra"

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("token: invalid token")
	ErrWrongType    = errors.New("token: wrong token type")
)

// Claims carries the authenticated user identity inside a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
}

// Manager issues and validates HMAC-signed bearer tokens.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

func NewManager(cfg config.Config, clk clock.Clock) *Manager {
	return &Manager{
		secret:     []byte(cfg.AuthTokenSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		clock:      clk,
	}
}

func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

// IssueAccess returns a short-lived access token for the user.
func (m *Manager) IssueAccess(userID int64, role string) (string, error) {
	return m.issue(userID, role, TypeAccess, m.accessTTL)
}

// IssueRefresh returns a long-lived refresh token for the user.
func (m *Manager) IssueRefresh(userID int64, role string) (string, error) {
	return m.issue(userID, role, TypeRefresh, m.refreshTTL)
}

func (m *Manager) issue(userID int64, role, tokenType string, ttl time.Duration) (string, error) {
	now := m.clock.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:      role,
		TokenType: tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Validate parses the token and checks signature, expiry and type.
func (m *Manager) Validate(tokenString, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(func() time.Time { return m.clock.Now() }))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongType
	}
	return claims, nil
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}
