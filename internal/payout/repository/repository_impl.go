package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	payoutdomain "github.com/smallbiznis/referra/internal/payout/domain"
	pkgdb "github.com/smallbiznis/referra/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() payoutdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payout *payoutdomain.Payout) error {
	return db.WithContext(ctx).Create(payout).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payout *payoutdomain.Payout) error {
	return db.WithContext(ctx).Save(payout).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*payoutdomain.Payout, error) {
	return r.findOne(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*payoutdomain.Payout, error) {
	return r.findOne(ctx, db, id, true)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*payoutdomain.Payout, error) {
	query := db.WithContext(ctx)
	if forUpdate {
		query = pkgdb.WithRowLock(query)
	}

	var payout payoutdomain.Payout
	err := query.First(&payout, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter payoutdomain.ListFilter) ([]payoutdomain.Payout, error) {
	query := db.WithContext(ctx).Model(&payoutdomain.Payout{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
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

	var payouts []payoutdomain.Payout
	if err := query.Order("created_at DESC").Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repo) SumByStatus(ctx context.Context, db *gorm.DB) (map[payoutdomain.PayoutStatus]payoutdomain.StatusTotal, error) {
	type row struct {
		Status payoutdomain.PayoutStatus
		Count  int64
		Amount decimal.Decimal
	}

	var rows []row
	err := db.WithContext(ctx).
		Model(&payoutdomain.Payout{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[payoutdomain.PayoutStatus]payoutdomain.StatusTotal, len(rows))
	for _, r := range rows {
		totals[r.Status] = payoutdomain.StatusTotal{Count: r.Count, Amount: r.Amount}
	}
	return totals, nil
}
