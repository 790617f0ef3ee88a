package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, commission *Commission) error
	Update(ctx context.Context, db *gorm.DB, commission *Commission) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Commission, error)
	FindByConversionID(ctx context.Context, db *gorm.DB, conversionID snowflake.ID) (*Commission, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Commission, error)

	// FindEligibleForUpdate claims approved, unlinked commissions created
	// in [start, end] with a row-level lock for payout generation.
	FindEligibleForUpdate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID, start, end time.Time) ([]Commission, error)

	// AffiliatesWithEligible lists affiliates owning at least one
	// approved, unlinked commission in [start, end].
	AffiliatesWithEligible(ctx context.Context, db *gorm.DB, start, end time.Time) ([]snowflake.ID, error)

	AssignPayout(ctx context.Context, db *gorm.DB, ids []snowflake.ID, payoutID snowflake.ID, now time.Time) error
	UpdateStatusByPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, status CommissionStatus, now time.Time) error
	ReleaseFromPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, now time.Time) error

	SumByStatus(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) (map[CommissionStatus]StatusTotal, error)
}

type ListFilter struct {
	AffiliateID snowflake.ID
	ProgramID   snowflake.ID
	Status      CommissionStatus
	Limit       int
	Offset      int
}

// StatusTotal aggregates count and amount per commission status.
type StatusTotal struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}
