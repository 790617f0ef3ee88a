package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	referraldomain "github.com/smallbiznis/referra/internal/referral/domain"
	"github.com/smallbiznis/referra/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() referraldomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, link *referraldomain.ReferralLink) error {
	return db.WithContext(ctx).Create(link).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, link *referraldomain.ReferralLink) error {
	return db.WithContext(ctx).Save(link).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&referraldomain.ReferralLink{}, "id = ?", id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*referraldomain.ReferralLink, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*referraldomain.ReferralLink, error) {
	return r.findOne(ctx, db, "code = ?", code)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*referraldomain.ReferralLink, error) {
	var link referraldomain.ReferralLink
	err := db.WithContext(ctx).First(&link, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *repo) ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) ([]referraldomain.ReferralLink, error) {
	var links []referraldomain.ReferralLink
	err := db.WithContext(ctx).
		Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repo) IncrementClicks(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).
		Model(&referraldomain.ReferralLink{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"clicks_count": gorm.Expr("clicks_count + 1"),
			"updated_at":   now,
		}).Error
}

func (r *repo) IncrementConversions(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).
		Model(&referraldomain.ReferralLink{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"conversions_count": gorm.Expr("conversions_count + 1"),
			"updated_at":        now,
		}).Error
}

type clickRepo struct{}

func ProvideClick() referraldomain.ClickRepository {
	return &clickRepo{}
}

func (r *clickRepo) Insert(ctx context.Context, db *gorm.DB, click *referraldomain.ReferralClick) error {
	return db.WithContext(ctx).Create(click).Error
}

func (r *clickRepo) CountByLink(ctx context.Context, db *gorm.DB, linkID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&referraldomain.ReferralClick{}).
		Where("link_id = ?", linkID).
		Count(&count).Error
	return count, err
}

// ListByLink walks the click log newest first. A cursor resumes the
// walk strictly before the row it encodes.
func (r *clickRepo) ListByLink(ctx context.Context, db *gorm.DB, linkID snowflake.ID, before *pagination.Cursor, limit int) ([]*referraldomain.ReferralClick, error) {
	query := db.WithContext(ctx).
		Model(&referraldomain.ReferralClick{}).
		Where("link_id = ?", linkID)

	if before != nil {
		createdAt, err := time.Parse(time.RFC3339Nano, before.CreatedAt)
		if err != nil {
			return nil, referraldomain.ErrInvalidPageToken
		}
		id, err := strconv.ParseInt(before.ID, 10, 64)
		if err != nil {
			return nil, referraldomain.ErrInvalidPageToken
		}
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}

	var clicks []*referraldomain.ReferralClick
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&clicks).Error
	if err != nil {
		return nil, err
	}
	return clicks, nil
}
