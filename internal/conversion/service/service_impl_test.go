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
	commissionservice "github.com/smallbiznis/referra/internal/commission/service"
	conversiondomain "github.com/smallbiznis/referra/internal/conversion/domain"
	conversionrepo "github.com/smallbiznis/referra/internal/conversion/repository"
	payoutdomain "github.com/smallbiznis/referra/internal/payout/domain"
	payoutrepo "github.com/smallbiznis/referra/internal/payout/repository"
	payoutservice "github.com/smallbiznis/referra/internal/payout/service"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
	programrepo "github.com/smallbiznis/referra/internal/program/repository"
	referraldomain "github.com/smallbiznis/referra/internal/referral/domain"
	referralrepo "github.com/smallbiznis/referra/internal/referral/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	node        *snowflake.Node
	clock       *clock.FakeClock
	svc         conversiondomain.Service
	commissions commissiondomain.Service
	payouts     payoutdomain.Service

	program   programdomain.Program
	affiliate affiliatedomain.Affiliate
	link      referraldomain.ReferralLink
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
		&referraldomain.ReferralLink{},
		&conversiondomain.Conversion{},
		&commissiondomain.Commission{},
		&payoutdomain.Payout{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	commissions := commissionservice.NewService(commissionservice.ServiceParam{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Repo:        commissionrepo.Provide(),
		Programs:    programrepo.Provide(),
		Enrollments: programrepo.ProvideEnrollment(),
		Affiliates:  affiliaterepo.Provide(),
		Tiers:       affiliaterepo.ProvideTier(),
	})

	payouts := payoutservice.NewService(payoutservice.ServiceParam{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Repo:        payoutrepo.Provide(),
		Commissions: commissionrepo.Provide(),
	})

	svc := NewService(ServiceParam{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Repo:        conversionrepo.Provide(),
		Links:       referralrepo.Provide(),
		Programs:    programrepo.Provide(),
		Commissions: commissions,
	})

	f := &fixture{db: db, node: node, clock: fake, svc: svc, commissions: commissions, payouts: payouts}

	now := fake.Now()
	f.program = programdomain.Program{
		ID:               node.Generate(),
		Name:             "SaaS Referrals",
		Slug:             "saas-referrals",
		Status:           programdomain.ProgramStatusActive,
		CommissionConfig: datatypes.JSON(`{"type":"percentage","value":10}`),
		Currency:         "EUR",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, db.Create(&f.program).Error)

	f.affiliate = affiliatedomain.Affiliate{
		ID:        node.Generate(),
		UserID:    node.Generate(),
		Code:      "AFF-TEST123456",
		Status:    affiliatedomain.AffiliateStatusApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&f.affiliate).Error)

	f.link = referraldomain.ReferralLink{
		ID:          node.Generate(),
		AffiliateID: f.affiliate.ID,
		ProgramID:   f.program.ID,
		Code:        "abcd1234",
		TargetURL:   "https://example.com/pricing",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, db.Create(&f.link).Error)

	return f
}

func TestCreate_ByLinkCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conversion, err := f.svc.Create(ctx, conversiondomain.CreateConversionRequest{
		LinkCode:    f.link.Code,
		ExternalID:  "order-1001",
		OrderAmount: decimal.NewFromInt(250),
	})
	require.NoError(t, err)

	assert.Equal(t, conversiondomain.ConversionStatusPending, conversion.Status)
	assert.Equal(t, conversiondomain.ConversionTypeSale, conversion.Type)
	assert.Equal(t, f.affiliate.ID, conversion.AffiliateID)
	assert.Equal(t, f.program.ID, conversion.ProgramID)
	// Currency falls back to the program's.
	assert.Equal(t, "EUR", conversion.Currency)

	var link referraldomain.ReferralLink
	require.NoError(t, f.db.First(&link, f.link.ID).Error)
	assert.Equal(t, int64(1), link.ConversionsCount)
}

func TestCreate_NegativeAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), conversiondomain.CreateConversionRequest{
		LinkCode:    f.link.Code,
		OrderAmount: decimal.NewFromInt(-10),
	})
	assert.ErrorIs(t, err, conversiondomain.ErrNegativeAmount)
}

func TestCreate_MissingLinkReference(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), conversiondomain.CreateConversionRequest{
		OrderAmount: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, conversiondomain.ErrMissingLink)
}

func TestCreate_UnknownType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), conversiondomain.CreateConversionRequest{
		LinkCode:    f.link.Code,
		Type:        "subscription",
		OrderAmount: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, conversiondomain.ErrInvalidType)
}

func TestCreate_AutoValidateBuildsCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conversion, err := f.svc.Create(ctx, conversiondomain.CreateConversionRequest{
		LinkCode:     f.link.Code,
		OrderAmount:  decimal.NewFromInt(100),
		AutoValidate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, conversiondomain.ConversionStatusValidated, conversion.Status)
	require.NotNil(t, conversion.ValidatedAt)
	assert.Equal(t, f.clock.Now().UTC(), conversion.ValidatedAt.UTC())

	var commission commissiondomain.Commission
	require.NoError(t, f.db.Where("conversion_id = ?", conversion.ID).First(&commission).Error)
	assert.True(t, commission.Amount.Equal(decimal.NewFromInt(10)), "amount %s", commission.Amount)
}

func TestValidate_BuildsCommissionOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conversion, err := f.svc.Create(ctx, conversiondomain.CreateConversionRequest{
		LinkCode:    f.link.Code,
		OrderAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	validated, err := f.svc.Validate(ctx, conversion.ID.String())
	require.NoError(t, err)
	assert.Equal(t, conversiondomain.ConversionStatusValidated, validated.Status)
	require.NotNil(t, validated.ValidatedAt)
	assert.Equal(t, f.clock.Now().UTC(), validated.ValidatedAt.UTC())

	var count int64
	require.NoError(t, f.db.Model(&commissiondomain.Commission{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Validating twice is an illegal move.
	_, err = f.svc.Validate(ctx, conversion.ID.String())
	var transitionErr *conversiondomain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, conversiondomain.ConversionStatusValidated, transitionErr.From)
}

func TestReject_Pending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conversion, err := f.svc.Create(ctx, conversiondomain.CreateConversionRequest{
		LinkCode:    f.link.Code,
		OrderAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, conversion.ID.String())
	require.NoError(t, err)
	assert.Equal(t, conversiondomain.ConversionStatusRejected, rejected.Status)
	assert.Nil(t, rejected.ValidatedAt)

	// Rejected conversions never grow commissions.
	var count int64
	require.NoError(t, f.db.Model(&commissiondomain.Commission{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestReverse_ForceRejectsApprovedCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conversion, err := f.svc.Create(ctx, conversiondomain.CreateConversionRequest{
		LinkCode:    f.link.Code,
		OrderAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = f.svc.Validate(ctx, conversion.ID.String())
	require.NoError(t, err)

	var commission commissiondomain.Commission
	require.NoError(t, f.db.Where("conversion_id = ?", conversion.ID).First(&commission).Error)
	_, err = f.commissions.Approve(ctx, commission.ID.String(), f.node.Generate())
	require.NoError(t, err)

	reversed, err := f.svc.Reverse(ctx, conversion.ID.String())
	require.NoError(t, err)
	assert.Equal(t, conversiondomain.ConversionStatusReversed, reversed.Status)

	require.NoError(t, f.db.First(&commission, commission.ID).Error)
	assert.Equal(t, commissiondomain.CommissionStatusRejected, commission.Status)
}

func TestReverse_ForceRejectsPaidCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conversion, err := f.svc.Create(ctx, conversiondomain.CreateConversionRequest{
		LinkCode:    f.link.Code,
		OrderAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = f.svc.Validate(ctx, conversion.ID.String())
	require.NoError(t, err)

	var commission commissiondomain.Commission
	require.NoError(t, f.db.Where("conversion_id = ?", conversion.ID).First(&commission).Error)
	_, err = f.commissions.Approve(ctx, commission.ID.String(), f.node.Generate())
	require.NoError(t, err)

	// Settle the commission through a full payout cycle.
	payout, err := f.payouts.Generate(ctx, payoutdomain.GenerateRequest{
		AffiliateID: f.affiliate.ID.String(),
		PeriodStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = f.payouts.Process(ctx, payout.ID.String(), payoutdomain.ProcessRequest{
		PaymentMethod:    "bank_transfer",
		PaymentReference: "tx-9001",
	})
	require.NoError(t, err)
	_, err = f.payouts.Complete(ctx, payout.ID.String())
	require.NoError(t, err)

	require.NoError(t, f.db.First(&commission, commission.ID).Error)
	require.Equal(t, commissiondomain.CommissionStatusPaid, commission.Status)

	// A refund after settlement still pulls the commission back.
	reversed, err := f.svc.Reverse(ctx, conversion.ID.String())
	require.NoError(t, err)
	assert.Equal(t, conversiondomain.ConversionStatusReversed, reversed.Status)

	require.NoError(t, f.db.First(&commission, commission.ID).Error)
	assert.Equal(t, commissiondomain.CommissionStatusRejected, commission.Status)
}

func TestReverse_PendingIsIllegal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conversion, err := f.svc.Create(ctx, conversiondomain.CreateConversionRequest{
		LinkCode:    f.link.Code,
		OrderAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = f.svc.Reverse(ctx, conversion.ID.String())
	var transitionErr *conversiondomain.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}
