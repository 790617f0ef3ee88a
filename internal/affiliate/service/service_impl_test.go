package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	affiliatedomain "github.com/smallbiznis/referra/internal/affiliate/domain"
	affiliaterepo "github.com/smallbiznis/referra/internal/affiliate/repository"
	"github.com/smallbiznis/referra/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  affiliatedomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&affiliatedomain.AffiliateTier{},
		&affiliatedomain.Affiliate{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  affiliaterepo.Provide(),
		Tiers: affiliaterepo.ProvideTier(),
	})

	return &fixture{db: db, node: node, svc: svc}
}

func (f *fixture) seedTier(t *testing.T, name string, level int, multiplier string) affiliatedomain.AffiliateTier {
	t.Helper()
	m, err := decimal.NewFromString(multiplier)
	require.NoError(t, err)
	tier := affiliatedomain.AffiliateTier{
		ID:                   f.node.Generate(),
		Name:                 name,
		Level:                level,
		CommissionMultiplier: m,
		CreatedAt:            time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(&tier).Error)
	return tier
}

func TestApply_CreatesPendingProfile(t *testing.T) {
	f := newFixture(t)

	affiliate, err := f.svc.Apply(context.Background(), affiliatedomain.ApplyRequest{
		UserID:       f.node.Generate(),
		CompanyName:  "Acme Media",
		PaymentEmail: "pay@acme.test",
	})
	require.NoError(t, err)

	assert.Equal(t, affiliatedomain.AffiliateStatusPending, affiliate.Status)
	assert.True(t, strings.HasPrefix(affiliate.Code, "AFF-"))
	assert.Len(t, affiliate.Code, len("AFF-")+10)
	assert.Nil(t, affiliate.TierID)
}

func TestApply_SecondProfileRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.node.Generate()
	_, err := f.svc.Apply(ctx, affiliatedomain.ApplyRequest{UserID: userID})
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, affiliatedomain.ApplyRequest{UserID: userID})
	assert.ErrorIs(t, err, affiliatedomain.ErrAlreadyAffiliate)
}

func TestApprove_AssignsRequestedTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedTier(t, "bronze", 1, "1.0")
	gold := f.seedTier(t, "gold", 3, "1.5")

	affiliate, err := f.svc.Apply(ctx, affiliatedomain.ApplyRequest{UserID: f.node.Generate()})
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, affiliate.ID.String(), affiliatedomain.ApproveRequest{TierID: gold.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, affiliatedomain.AffiliateStatusApproved, approved.Status)
	require.NotNil(t, approved.TierID)
	assert.Equal(t, gold.ID, *approved.TierID)
}

func TestApprove_DefaultsToLowestTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bronze := f.seedTier(t, "bronze", 1, "1.0")
	f.seedTier(t, "gold", 3, "1.5")

	affiliate, err := f.svc.Apply(ctx, affiliatedomain.ApplyRequest{UserID: f.node.Generate()})
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, affiliate.ID.String(), affiliatedomain.ApproveRequest{})
	require.NoError(t, err)

	require.NotNil(t, approved.TierID)
	assert.Equal(t, bronze.ID, *approved.TierID)
}

func TestApprove_RequiresPendingStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliate, err := f.svc.Apply(ctx, affiliatedomain.ApplyRequest{UserID: f.node.Generate()})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, affiliate.ID.String(), affiliatedomain.ApproveRequest{})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, affiliate.ID.String(), affiliatedomain.ApproveRequest{})
	assert.ErrorIs(t, err, affiliatedomain.ErrNotPending)
}

func TestApprove_UnknownTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliate, err := f.svc.Apply(ctx, affiliatedomain.ApplyRequest{UserID: f.node.Generate()})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, affiliate.ID.String(), affiliatedomain.ApproveRequest{TierID: f.node.Generate().String()})
	assert.ErrorIs(t, err, affiliatedomain.ErrTierNotFound)
}

func TestReject_StoresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliate, err := f.svc.Apply(ctx, affiliatedomain.ApplyRequest{UserID: f.node.Generate()})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, affiliate.ID.String(), affiliatedomain.RejectRequest{Reason: "incomplete application"})
	require.NoError(t, err)

	assert.Equal(t, affiliatedomain.AffiliateStatusRejected, rejected.Status)
	assert.Equal(t, "incomplete application", rejected.RejectionReason)
}

func TestApprove_ClearsRejectionReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	affiliate, err := f.svc.Apply(ctx, affiliatedomain.ApplyRequest{UserID: f.node.Generate()})
	require.NoError(t, err)

	// Re-open the profile by hand, the way support does after an appeal.
	require.NoError(t, f.db.Model(&affiliatedomain.Affiliate{}).
		Where("id = ?", affiliate.ID).
		Updates(map[string]any{"status": affiliatedomain.AffiliateStatusPending, "rejection_reason": "spam"}).Error)

	approved, err := f.svc.Approve(ctx, affiliate.ID.String(), affiliatedomain.ApproveRequest{})
	require.NoError(t, err)
	assert.Empty(t, approved.RejectionReason)
}

func TestMultiplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gold := f.seedTier(t, "gold", 3, "1.5")

	affiliate, err := f.svc.Apply(ctx, affiliatedomain.ApplyRequest{UserID: f.node.Generate()})
	require.NoError(t, err)

	multiplier, err := f.svc.Multiplier(ctx, affiliate.ID)
	require.NoError(t, err)
	assert.True(t, multiplier.Equal(decimal.NewFromInt(1)), "untiered affiliate gets 1, got %s", multiplier)

	_, err = f.svc.Approve(ctx, affiliate.ID.String(), affiliatedomain.ApproveRequest{TierID: gold.ID.String()})
	require.NoError(t, err)

	multiplier, err = f.svc.Multiplier(ctx, affiliate.ID)
	require.NoError(t, err)
	assert.True(t, multiplier.Equal(decimal.RequireFromString("1.5")), "got %s", multiplier)
}

func TestMultiplier_UnknownAffiliate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Multiplier(context.Background(), f.node.Generate())
	assert.ErrorIs(t, err, affiliatedomain.ErrAffiliateNotFound)
}
