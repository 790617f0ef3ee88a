package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	commissiondomain "github.com/smallbiznis/referra/internal/commission/domain"
	pkgdb "github.com/smallbiznis/referra/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() commissiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, commission *commissiondomain.Commission) error {
	return db.WithContext(ctx).Create(commission).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, commission *commissiondomain.Commission) error {
	return db.WithContext(ctx).Save(commission).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*commissiondomain.Commission, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByConversionID(ctx context.Context, db *gorm.DB, conversionID snowflake.ID) (*commissiondomain.Commission, error) {
	return r.findOne(ctx, db, "conversion_id = ?", conversionID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*commissiondomain.Commission, error) {
	var commission commissiondomain.Commission
	err := db.WithContext(ctx).First(&commission, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter commissiondomain.ListFilter) ([]commissiondomain.Commission, error) {
	query := db.WithContext(ctx).Model(&commissiondomain.Commission{})
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

	var commissions []commissiondomain.Commission
	if err := query.Order("created_at DESC").Find(&commissions).Error; err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repo) FindEligibleForUpdate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID, start, end time.Time) ([]commissiondomain.Commission, error) {
	var commissions []commissiondomain.Commission
	err := pkgdb.WithRowLock(db.WithContext(ctx)).
		Where("affiliate_id = ?", affiliateID).
		Where("status = ?", commissiondomain.CommissionStatusApproved).
		Where("payout_id IS NULL").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Order("created_at ASC").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repo) AffiliatesWithEligible(ctx context.Context, db *gorm.DB, start, end time.Time) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&commissiondomain.Commission{}).
		Distinct("affiliate_id").
		Where("status = ?", commissiondomain.CommissionStatusApproved).
		Where("payout_id IS NULL").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Pluck("affiliate_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) AssignPayout(ctx context.Context, db *gorm.DB, ids []snowflake.ID, payoutID snowflake.ID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&commissiondomain.Commission{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"payout_id":  payoutID,
			"updated_at": now,
		}).Error
}

func (r *repo) UpdateStatusByPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, status commissiondomain.CommissionStatus, now time.Time) error {
	return db.WithContext(ctx).
		Model(&commissiondomain.Commission{}).
		Where("payout_id = ?", payoutID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		}).Error
}

func (r *repo) ReleaseFromPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).
		Model(&commissiondomain.Commission{}).
		Where("payout_id = ?", payoutID).
		Updates(map[string]any{
			"status":     commissiondomain.CommissionStatusApproved,
			"payout_id":  nil,
			"updated_at": now,
		}).Error
}

func (r *repo) SumByStatus(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) (map[commissiondomain.CommissionStatus]commissiondomain.StatusTotal, error) {
	type row struct {
		Status commissiondomain.CommissionStatus
		Count  int64
		Amount decimal.Decimal
	}

	var rows []row
	err := db.WithContext(ctx).
		Model(&commissiondomain.Commission{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("affiliate_id = ?", affiliateID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[commissiondomain.CommissionStatus]commissiondomain.StatusTotal, len(rows))
	for _, r := range rows {
		totals[r.Status] = commissiondomain.StatusTotal{Count: r.Count, Amount: r.Amount}
	}
	return totals, nil
}
