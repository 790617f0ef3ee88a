package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payout *Payout) error
	Update(ctx context.Context, db *gorm.DB, payout *Payout) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payout, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payout, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Payout, error)
	SumByStatus(ctx context.Context, db *gorm.DB) (map[PayoutStatus]StatusTotal, error)
}

type ListFilter struct {
	AffiliateID snowflake.ID
	Status      PayoutStatus
	Limit       int
	Offset      int
}

// StatusTotal aggregates count and amount per payout status.
type StatusTotal struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}
