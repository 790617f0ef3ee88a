package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	conversiondomain "github.com/smallbiznis/referra/internal/conversion/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() conversiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, conversion *conversiondomain.Conversion) error {
	return db.WithContext(ctx).Create(conversion).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, conversion *conversiondomain.Conversion) error {
	return db.WithContext(ctx).Save(conversion).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*conversiondomain.Conversion, error) {
	var conversion conversiondomain.Conversion
	err := db.WithContext(ctx).First(&conversion, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter conversiondomain.ListFilter) ([]conversiondomain.Conversion, error) {
	query := db.WithContext(ctx).Model(&conversiondomain.Conversion{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.ProgramID != 0 {
		query = query.Where("program_id = ?", filter.ProgramID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var conversions []conversiondomain.Conversion
	if err := query.Order("created_at DESC").Find(&conversions).Error; err != nil {
		return nil, err
	}
	return conversions, nil
}
