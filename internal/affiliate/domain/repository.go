package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, affiliate *Affiliate) error
	Update(ctx context.Context, db *gorm.DB, affiliate *Affiliate) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Affiliate, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Affiliate, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Affiliate, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Affiliate, error)
}

type TierRepository interface {
	Insert(ctx context.Context, db *gorm.DB, tier *AffiliateTier) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AffiliateTier, error)
	FindLowestLevel(ctx context.Context, db *gorm.DB) (*AffiliateTier, error)
	List(ctx context.Context, db *gorm.DB) ([]AffiliateTier, error)
}

type ListFilter struct {
	Status AffiliateStatus
	Limit  int
	Offset int
}
