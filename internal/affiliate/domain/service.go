package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type ApplyRequest struct {
	UserID       snowflake.ID `json:"-"`
	CompanyName  string       `json:"company_name"`
	Website      string       `json:"website"`
	PaymentEmail string       `json:"payment_email"`
}

type UpdateRequest struct {
	CompanyName  *string `json:"company_name,omitempty"`
	Website      *string `json:"website,omitempty"`
	PaymentEmail *string `json:"payment_email,omitempty"`
}

type ApproveRequest struct {
	TierID string `json:"tier_id,omitempty"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type ListRequest struct {
	Status string
	Limit  int
	Offset int
}

type Service interface {
	Apply(ctx context.Context, req ApplyRequest) (Affiliate, error)
	GetByID(ctx context.Context, id string) (Affiliate, error)
	GetByUserID(ctx context.Context, userID snowflake.ID) (Affiliate, error)
	List(ctx context.Context, req ListRequest) ([]Affiliate, error)
	UpdateByUserID(ctx context.Context, userID snowflake.ID, req UpdateRequest) (Affiliate, error)
	Approve(ctx context.Context, id string, req ApproveRequest) (Affiliate, error)
	Reject(ctx context.Context, id string, req RejectRequest) (Affiliate, error)

	ListTiers(ctx context.Context) ([]AffiliateTier, error)
	GetTier(ctx context.Context, id string) (AffiliateTier, error)

	// Multiplier resolves the commission multiplier for an affiliate,
	// exactly 1.0 when the affiliate has no tier.
	Multiplier(ctx context.Context, affiliateID snowflake.ID) (decimal.Decimal, error)
}

var (
	ErrAffiliateNotFound = errors.New("affiliate_not_found")
	ErrTierNotFound      = errors.New("tier_not_found")
	ErrAlreadyAffiliate  = errors.New("already_affiliate")
	ErrInvalidID         = errors.New("invalid_affiliate_id")
	ErrNotPending        = errors.New("affiliate_not_pending")
)
