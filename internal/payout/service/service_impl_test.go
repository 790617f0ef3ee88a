package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/referra/internal/clock"
	commissiondomain "github.com/smallbiznis/referra/internal/commission/domain"
	commissionrepo "github.com/smallbiznis/referra/internal/commission/repository"
	payoutdomain "github.com/smallbiznis/referra/internal/payout/domain"
	payoutrepo "github.com/smallbiznis/referra/internal/payout/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   payoutdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&commissiondomain.Commission{},
		&payoutdomain.Payout{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fake,
		Repo:        payoutrepo.Provide(),
		Commissions: commissionrepo.Provide(),
	})

	return &fixture{db: db, node: node, clock: fake, svc: svc}
}

func (f *fixture) seedCommission(t *testing.T, affiliateID snowflake.ID, status commissiondomain.CommissionStatus, amount int64, createdAt time.Time) commissiondomain.Commission {
	t.Helper()
	commission := commissiondomain.Commission{
		ID:           f.node.Generate(),
		ConversionID: f.node.Generate(),
		AffiliateID:  affiliateID,
		ProgramID:    f.node.Generate(),
		BaseAmount:   decimal.NewFromInt(amount),
		Multiplier:   decimal.NewFromInt(1),
		Amount:       decimal.NewFromInt(amount),
		Currency:     "USD",
		Status:       status,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	require.NoError(t, f.db.Create(&commission).Error)
	return commission
}

func TestGenerate_BatchesApprovedCommissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliateID := f.node.Generate()
	start, end := payoutdomain.MonthlyPeriod(2024, time.March)
	inPeriod := start.Add(48 * time.Hour)

	first := f.seedCommission(t, affiliateID, commissiondomain.CommissionStatusApproved, 30, inPeriod)
	second := f.seedCommission(t, affiliateID, commissiondomain.CommissionStatusApproved, 20, inPeriod.Add(time.Hour))
	// Neither pending commissions nor other months belong in the batch.
	f.seedCommission(t, affiliateID, commissiondomain.CommissionStatusPending, 99, inPeriod)
	f.seedCommission(t, affiliateID, commissiondomain.CommissionStatusApproved, 99, end.Add(time.Hour))

	payout, err := f.svc.Generate(ctx, payoutdomain.GenerateRequest{
		AffiliateID: affiliateID.String(),
		PeriodStart: start,
		PeriodEnd:   end,
	})
	require.NoError(t, err)

	assert.True(t, payout.TotalAmount.Equal(decimal.NewFromInt(50)), "total %s", payout.TotalAmount)
	assert.Equal(t, 2, payout.CommissionCount)
	assert.Equal(t, "USD", payout.Currency)
	assert.Equal(t, payoutdomain.PayoutStatusPending, payout.Status)

	var got commissiondomain.Commission
	require.NoError(t, f.db.First(&got, first.ID).Error)
	require.NotNil(t, got.PayoutID)
	assert.Equal(t, payout.ID, *got.PayoutID)
	got = commissiondomain.Commission{}
	require.NoError(t, f.db.First(&got, second.ID).Error)
	require.NotNil(t, got.PayoutID)
}

func TestGenerate_NoEligibleCommissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliateID := f.node.Generate()
	start, end := payoutdomain.MonthlyPeriod(2024, time.March)

	_, err := f.svc.Generate(ctx, payoutdomain.GenerateRequest{
		AffiliateID: affiliateID.String(),
		PeriodStart: start,
		PeriodEnd:   end,
	})
	assert.ErrorIs(t, err, payoutdomain.ErrNoEligibleCommissions)

	var count int64
	require.NoError(t, f.db.Model(&payoutdomain.Payout{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestGenerate_InvalidPeriod(t *testing.T) {
	f := newFixture(t)

	start, end := payoutdomain.MonthlyPeriod(2024, time.March)
	_, err := f.svc.Generate(context.Background(), payoutdomain.GenerateRequest{
		AffiliateID: f.node.Generate().String(),
		PeriodStart: end,
		PeriodEnd:   start,
	})
	assert.ErrorIs(t, err, payoutdomain.ErrInvalidPeriod)
}

func TestGenerate_ClaimedCommissionsStayClaimed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliateID := f.node.Generate()
	start, end := payoutdomain.MonthlyPeriod(2024, time.March)
	f.seedCommission(t, affiliateID, commissiondomain.CommissionStatusApproved, 30, start.Add(time.Hour))

	req := payoutdomain.GenerateRequest{
		AffiliateID: affiliateID.String(),
		PeriodStart: start,
		PeriodEnd:   end,
	}
	_, err := f.svc.Generate(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Generate(ctx, req)
	assert.ErrorIs(t, err, payoutdomain.ErrNoEligibleCommissions)
}

func TestGenerateMonthly_OnePayoutPerAffiliate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start, _ := payoutdomain.MonthlyPeriod(2024, time.March)
	alice := f.node.Generate()
	bob := f.node.Generate()
	f.seedCommission(t, alice, commissiondomain.CommissionStatusApproved, 10, start.Add(time.Hour))
	f.seedCommission(t, alice, commissiondomain.CommissionStatusApproved, 15, start.Add(2*time.Hour))
	f.seedCommission(t, bob, commissiondomain.CommissionStatusApproved, 40, start.Add(time.Hour))

	payouts, err := f.svc.GenerateMonthly(ctx, payoutdomain.GenerateMonthlyRequest{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Len(t, payouts, 2)

	total := decimal.Zero
	for _, payout := range payouts {
		total = total.Add(payout.TotalAmount)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(65)), "total %s", total)
}

func TestGenerateMonthly_InvalidMonth(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GenerateMonthly(context.Background(), payoutdomain.GenerateMonthlyRequest{Year: 2024, Month: 13})
	assert.ErrorIs(t, err, payoutdomain.ErrInvalidPeriod)
}

func (f *fixture) generateOne(t *testing.T) payoutdomain.Payout {
	t.Helper()
	affiliateID := f.node.Generate()
	start, end := payoutdomain.MonthlyPeriod(2024, time.March)
	f.seedCommission(t, affiliateID, commissiondomain.CommissionStatusApproved, 30, start.Add(time.Hour))

	payout, err := f.svc.Generate(context.Background(), payoutdomain.GenerateRequest{
		AffiliateID: affiliateID.String(),
		PeriodStart: start,
		PeriodEnd:   end,
	})
	require.NoError(t, err)
	return payout
}

func TestProcessAndComplete_MarksCommissionsPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payout := f.generateOne(t)

	admin := f.node.Generate()
	processing, err := f.svc.Process(ctx, payout.ID.String(), payoutdomain.ProcessRequest{
		ProcessedBy:      admin,
		PaymentMethod:    "bank_transfer",
		PaymentReference: "TRX-42",
	})
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.PayoutStatusProcessing, processing.Status)
	assert.Equal(t, "bank_transfer", processing.PaymentMethod)
	require.NotNil(t, processing.ProcessedBy)
	assert.Equal(t, admin, *processing.ProcessedBy)
	assert.NotNil(t, processing.ProcessedAt)

	completed, err := f.svc.Complete(ctx, payout.ID.String())
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.PayoutStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	var commissions []commissiondomain.Commission
	require.NoError(t, f.db.Where("payout_id = ?", payout.ID).Find(&commissions).Error)
	require.NotEmpty(t, commissions)
	for _, commission := range commissions {
		assert.Equal(t, commissiondomain.CommissionStatusPaid, commission.Status)
	}
}

func TestComplete_RequiresProcessing(t *testing.T) {
	f := newFixture(t)
	payout := f.generateOne(t)

	_, err := f.svc.Complete(context.Background(), payout.ID.String())
	var transitionErr *payoutdomain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, payoutdomain.PayoutStatusPending, transitionErr.From)
}

func TestCancel_ReleasesCommissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payout := f.generateOne(t)

	cancelled, err := f.svc.Cancel(ctx, payout.ID.String())
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.PayoutStatusCancelled, cancelled.Status)
	// Totals stay on the record as history.
	assert.True(t, cancelled.TotalAmount.Equal(payout.TotalAmount))

	var commissions []commissiondomain.Commission
	require.NoError(t, f.db.Where("affiliate_id = ?", payout.AffiliateID).Find(&commissions).Error)
	require.NotEmpty(t, commissions)
	for _, commission := range commissions {
		assert.Nil(t, commission.PayoutID)
		assert.Equal(t, commissiondomain.CommissionStatusApproved, commission.Status)
	}
}

func TestCancel_CompletedIsIllegal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payout := f.generateOne(t)

	_, err := f.svc.Process(ctx, payout.ID.String(), payoutdomain.ProcessRequest{PaymentMethod: "paypal"})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, payout.ID.String())
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, payout.ID.String())
	var transitionErr *payoutdomain.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestFail_ReleasesCommissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payout := f.generateOne(t)

	_, err := f.svc.Process(ctx, payout.ID.String(), payoutdomain.ProcessRequest{PaymentMethod: "paypal"})
	require.NoError(t, err)

	failed, err := f.svc.Fail(ctx, payout.ID.String())
	require.NoError(t, err)
	assert.Equal(t, payoutdomain.PayoutStatusFailed, failed.Status)

	var commissions []commissiondomain.Commission
	require.NoError(t, f.db.Where("affiliate_id = ?", payout.AffiliateID).Find(&commissions).Error)
	for _, commission := range commissions {
		assert.Nil(t, commission.PayoutID)
		assert.Equal(t, commissiondomain.CommissionStatusApproved, commission.Status)
	}
}

func TestStats_GroupsByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.generateOne(t)
	f.generateOne(t)
	_, err := f.svc.Cancel(ctx, first.ID.String())
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ByStatus[payoutdomain.PayoutStatusPending].Count)
	assert.Equal(t, int64(1), stats.ByStatus[payoutdomain.PayoutStatusCancelled].Count)
}
