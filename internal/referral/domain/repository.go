package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/referra/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, link *ReferralLink) error
	Update(ctx context.Context, db *gorm.DB, link *ReferralLink) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ReferralLink, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*ReferralLink, error)
	ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) ([]ReferralLink, error)
	IncrementClicks(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	IncrementConversions(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
}

type ClickRepository interface {
	Insert(ctx context.Context, db *gorm.DB, click *ReferralClick) error
	CountByLink(ctx context.Context, db *gorm.DB, linkID snowflake.ID) (int64, error)
	ListByLink(ctx context.Context, db *gorm.DB, linkID snowflake.ID, before *pagination.Cursor, limit int) ([]*ReferralClick, error)
}
