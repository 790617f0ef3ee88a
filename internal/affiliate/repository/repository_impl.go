package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	affiliatedomain "github.com/smallbiznis/referra/internal/affiliate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() affiliatedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, affiliate *affiliatedomain.Affiliate) error {
	return db.WithContext(ctx).Create(affiliate).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, affiliate *affiliatedomain.Affiliate) error {
	return db.WithContext(ctx).Save(affiliate).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*affiliatedomain.Affiliate, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*affiliatedomain.Affiliate, error) {
	return r.findOne(ctx, db, "user_id = ?", userID)
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*affiliatedomain.Affiliate, error) {
	return r.findOne(ctx, db, "code = ?", code)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*affiliatedomain.Affiliate, error) {
	var affiliate affiliatedomain.Affiliate
	err := db.WithContext(ctx).First(&affiliate, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter affiliatedomain.ListFilter) ([]affiliatedomain.Affiliate, error) {
	query := db.WithContext(ctx).Model(&affiliatedomain.Affiliate{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var affiliates []affiliatedomain.Affiliate
	if err := query.Order("created_at DESC").Find(&affiliates).Error; err != nil {
		return nil, err
	}
	return affiliates, nil
}

type tierRepo struct{}

func ProvideTier() affiliatedomain.TierRepository {
	return &tierRepo{}
}

func (r *tierRepo) Insert(ctx context.Context, db *gorm.DB, tier *affiliatedomain.AffiliateTier) error {
	return db.WithContext(ctx).Create(tier).Error
}

func (r *tierRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*affiliatedomain.AffiliateTier, error) {
	var tier affiliatedomain.AffiliateTier
	err := db.WithContext(ctx).First(&tier, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *tierRepo) FindLowestLevel(ctx context.Context, db *gorm.DB) (*affiliatedomain.AffiliateTier, error) {
	var tier affiliatedomain.AffiliateTier
	err := db.WithContext(ctx).Order("level ASC").First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *tierRepo) List(ctx context.Context, db *gorm.DB) ([]affiliatedomain.AffiliateTier, error) {
	var tiers []affiliatedomain.AffiliateTier
	if err := db.WithContext(ctx).Order("level ASC").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}
