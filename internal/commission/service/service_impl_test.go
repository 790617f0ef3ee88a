package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	affiliatedomain "github.com/smallbiznis/referra/internal/affiliate/domain"
	affiliaterepo "github.com/smallbiznis/referra/internal/affiliate/repository"
	"github.com/smallbiznis/referra/internal/clock"
	commissiondomain "github.com/smallbiznis/referra/internal/commission/domain"
	commissionrepo "github.com/smallbiznis/referra/internal/commission/repository"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
	programrepo "github.com/smallbiznis/referra/internal/program/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   commissiondomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&affiliatedomain.AffiliateTier{},
		&affiliatedomain.Affiliate{},
		&programdomain.Program{},
		&programdomain.Enrollment{},
		&commissiondomain.Commission{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fake,
		Repo:        commissionrepo.Provide(),
		Programs:    programrepo.Provide(),
		Enrollments: programrepo.ProvideEnrollment(),
		Affiliates:  affiliaterepo.Provide(),
		Tiers:       affiliaterepo.ProvideTier(),
	})

	return &fixture{db: db, node: node, clock: fake, svc: svc}
}

func (f *fixture) seedProgram(t *testing.T, config string) programdomain.Program {
	t.Helper()
	program := programdomain.Program{
		ID:               f.node.Generate(),
		Name:             "SaaS Referrals",
		Slug:             fmt.Sprintf("saas-referrals-%d", f.node.Generate()),
		Status:           programdomain.ProgramStatusActive,
		CommissionConfig: datatypes.JSON(config),
		Currency:         "USD",
		CreatedAt:        f.clock.Now(),
		UpdatedAt:        f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&program).Error)
	return program
}

func (f *fixture) seedAffiliate(t *testing.T, tierID *snowflake.ID) affiliatedomain.Affiliate {
	t.Helper()
	affiliate := affiliatedomain.Affiliate{
		ID:        f.node.Generate(),
		UserID:    f.node.Generate(),
		Code:      fmt.Sprintf("AFF-%d", f.node.Generate()),
		Status:    affiliatedomain.AffiliateStatusApproved,
		TierID:    tierID,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&affiliate).Error)
	return affiliate
}

func (f *fixture) seedTier(t *testing.T, multiplier string) affiliatedomain.AffiliateTier {
	t.Helper()
	tier := affiliatedomain.AffiliateTier{
		ID:                   f.node.Generate(),
		Name:                 fmt.Sprintf("Tier %d", f.node.Generate()),
		Level:                2,
		CommissionMultiplier: decimal.RequireFromString(multiplier),
		CreatedAt:            f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&tier).Error)
	return tier
}

func TestBuildForConversion_TierMultiplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tier := f.seedTier(t, "1.5")
	affiliate := f.seedAffiliate(t, &tier.ID)
	program := f.seedProgram(t, `{"type":"percentage","value":10}`)

	commission, err := f.svc.BuildForConversion(ctx, f.db, commissiondomain.ConversionInfo{
		ID:          f.node.Generate(),
		ProgramID:   program.ID,
		AffiliateID: affiliate.ID,
		OrderAmount: decimal.NewFromInt(200),
		Currency:    "USD",
	})
	require.NoError(t, err)

	assert.True(t, commission.BaseAmount.Equal(decimal.NewFromInt(20)), "base %s", commission.BaseAmount)
	assert.True(t, commission.Multiplier.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, commission.Amount.Equal(decimal.NewFromInt(30)), "amount %s", commission.Amount)
	assert.Equal(t, commissiondomain.CommissionStatusPending, commission.Status)
	require.NotNil(t, commission.TierID)
	assert.Equal(t, tier.ID, *commission.TierID)
	assert.JSONEq(t, `{"type":"percentage","value":10}`, string(commission.RuleSnapshot))
}

func TestBuildForConversion_NoTierMeansMultiplierOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliate := f.seedAffiliate(t, nil)
	program := f.seedProgram(t, `{"type":"percentage","value":20}`)

	commission, err := f.svc.BuildForConversion(ctx, f.db, commissiondomain.ConversionInfo{
		ID:          f.node.Generate(),
		ProgramID:   program.ID,
		AffiliateID: affiliate.ID,
		OrderAmount: decimal.NewFromInt(100),
		Currency:    "USD",
	})
	require.NoError(t, err)

	assert.True(t, commission.Multiplier.Equal(decimal.NewFromInt(1)))
	assert.Nil(t, commission.TierID)
	assert.True(t, commission.Amount.Equal(commission.BaseAmount))
	assert.True(t, commission.Amount.Equal(decimal.NewFromInt(20)))
}

func TestBuildForConversion_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliate := f.seedAffiliate(t, nil)
	program := f.seedProgram(t, `{"type":"fixed","amount":15}`)

	conv := commissiondomain.ConversionInfo{
		ID:          f.node.Generate(),
		ProgramID:   program.ID,
		AffiliateID: affiliate.ID,
		OrderAmount: decimal.NewFromInt(500),
		Currency:    "USD",
	}

	first, err := f.svc.BuildForConversion(ctx, f.db, conv)
	require.NoError(t, err)
	second, err := f.svc.BuildForConversion(ctx, f.db, conv)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Model(&commissiondomain.Commission{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBuildForConversion_EnrollmentOverrideWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliate := f.seedAffiliate(t, nil)
	program := f.seedProgram(t, `{"type":"percentage","value":10}`)

	enrollment := programdomain.Enrollment{
		ID:                     f.node.Generate(),
		ProgramID:              program.ID,
		AffiliateID:            affiliate.ID,
		Status:                 programdomain.EnrollmentStatusActive,
		CustomCommissionConfig: datatypes.JSON(`{"type":"fixed","amount":50}`),
		CreatedAt:              f.clock.Now(),
		UpdatedAt:              f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&enrollment).Error)

	commission, err := f.svc.BuildForConversion(ctx, f.db, commissiondomain.ConversionInfo{
		ID:          f.node.Generate(),
		ProgramID:   program.ID,
		AffiliateID: affiliate.ID,
		OrderAmount: decimal.NewFromInt(1000),
		Currency:    "USD",
	})
	require.NoError(t, err)

	assert.True(t, commission.Amount.Equal(decimal.NewFromInt(50)), "amount %s", commission.Amount)
	assert.JSONEq(t, `{"type":"fixed","amount":50}`, string(commission.RuleSnapshot))
}

func TestApprove_SetsApprover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliate := f.seedAffiliate(t, nil)
	program := f.seedProgram(t, `{"type":"percentage","value":10}`)

	commission, err := f.svc.BuildForConversion(ctx, f.db, commissiondomain.ConversionInfo{
		ID:          f.node.Generate(),
		ProgramID:   program.ID,
		AffiliateID: affiliate.ID,
		OrderAmount: decimal.NewFromInt(100),
		Currency:    "USD",
	})
	require.NoError(t, err)

	approver := f.node.Generate()
	approved, err := f.svc.Approve(ctx, commission.ID.String(), approver)
	require.NoError(t, err)

	assert.Equal(t, commissiondomain.CommissionStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, approver, *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)

	// Approved commissions cannot be decided twice.
	_, err = f.svc.Approve(ctx, commission.ID.String(), approver)
	assert.ErrorIs(t, err, commissiondomain.ErrNotPending)
}

func TestForceReject_OverridesApprovedStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliate := f.seedAffiliate(t, nil)
	program := f.seedProgram(t, `{"type":"percentage","value":10}`)

	convID := f.node.Generate()
	commission, err := f.svc.BuildForConversion(ctx, f.db, commissiondomain.ConversionInfo{
		ID:          convID,
		ProgramID:   program.ID,
		AffiliateID: affiliate.ID,
		OrderAmount: decimal.NewFromInt(100),
		Currency:    "USD",
	})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, commission.ID.String(), f.node.Generate())
	require.NoError(t, err)

	require.NoError(t, f.svc.ForceReject(ctx, f.db, convID))

	got, err := f.svc.GetByID(ctx, commission.ID.String())
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.CommissionStatusRejected, got.Status)
}

func TestForceReject_NoCommissionIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.svc.ForceReject(context.Background(), f.db, f.node.Generate()))
}

func TestEarnings_SumsApprovedAndPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliate := f.seedAffiliate(t, nil)
	now := f.clock.Now()

	seed := func(status commissiondomain.CommissionStatus, amount int64) {
		commission := commissiondomain.Commission{
			ID:           f.node.Generate(),
			ConversionID: f.node.Generate(),
			AffiliateID:  affiliate.ID,
			ProgramID:    f.node.Generate(),
			BaseAmount:   decimal.NewFromInt(amount),
			Multiplier:   decimal.NewFromInt(1),
			Amount:       decimal.NewFromInt(amount),
			Currency:     "USD",
			Status:       status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, f.db.Create(&commission).Error)
	}

	seed(commissiondomain.CommissionStatusPending, 10)
	seed(commissiondomain.CommissionStatusApproved, 20)
	seed(commissiondomain.CommissionStatusPaid, 30)
	seed(commissiondomain.CommissionStatusRejected, 40)

	summary, err := f.svc.Earnings(ctx, affiliate.ID.String())
	require.NoError(t, err)

	assert.True(t, summary.TotalEarned.Equal(decimal.NewFromInt(50)), "earned %s", summary.TotalEarned)
	assert.Equal(t, int64(1), summary.ByStatus[commissiondomain.CommissionStatusPending].Count)
	assert.True(t, summary.ByStatus[commissiondomain.CommissionStatusApproved].Amount.Equal(decimal.NewFromInt(20)))
}
