package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConversionInfo is the slice of a conversion the builder needs.
type ConversionInfo struct {
	ID          snowflake.ID
	ProgramID   snowflake.ID
	AffiliateID snowflake.ID
	OrderAmount decimal.Decimal
	Currency    string
}

type ListRequest struct {
	AffiliateID string
	ProgramID   string
	Status      string
	Limit       int
	Offset      int
}

// EarningsSummary is the per-affiliate commission dashboard aggregate.
type EarningsSummary struct {
	AffiliateID string                           `json:"affiliate_id"`
	ByStatus    map[CommissionStatus]StatusTotal `json:"by_status"`
	TotalEarned decimal.Decimal                  `json:"total_earned"`
}

type Service interface {
	// BuildForConversion creates the commission for a validated
	// conversion inside the caller's transaction. It is idempotent per
	// conversion: an existing commission is returned unchanged.
	BuildForConversion(ctx context.Context, tx *gorm.DB, conv ConversionInfo) (*Commission, error)

	// ForceReject moves a conversion's commission to rejected whatever
	// its current status, inside the caller's transaction.
	ForceReject(ctx context.Context, tx *gorm.DB, conversionID snowflake.ID) error

	GetByID(ctx context.Context, id string) (Commission, error)
	List(ctx context.Context, req ListRequest) ([]Commission, error)
	Approve(ctx context.Context, id string, approverID snowflake.ID) (Commission, error)
	Reject(ctx context.Context, id string, approverID snowflake.ID) (Commission, error)
	Earnings(ctx context.Context, affiliateID string) (EarningsSummary, error)
}

var (
	ErrCommissionNotFound = errors.New("commission_not_found")
	ErrInvalidID          = errors.New("invalid_commission_id")
	ErrNotPending         = errors.New("commission_not_pending")
)
