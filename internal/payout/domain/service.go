package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type GenerateRequest struct {
	AffiliateID string    `json:"affiliate_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

type GenerateMonthlyRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type ProcessRequest struct {
	ProcessedBy      snowflake.ID `json:"-"`
	PaymentMethod    string       `json:"payment_method"`
	PaymentReference string       `json:"payment_reference"`
}

type ListRequest struct {
	AffiliateID string
	Status      string
	Limit       int
	Offset      int
}

// Stats is the admin dashboard aggregate over all payouts.
type Stats struct {
	ByStatus map[PayoutStatus]StatusTotal `json:"by_status"`
}

type Service interface {
	// Generate claims the affiliate's approved, unlinked commissions in
	// the period and batches them into one pending payout.
	Generate(ctx context.Context, req GenerateRequest) (Payout, error)

	// GenerateMonthly runs Generate for every affiliate holding eligible
	// commissions in the calendar month, skipping the rest silently.
	GenerateMonthly(ctx context.Context, req GenerateMonthlyRequest) ([]Payout, error)

	GetByID(ctx context.Context, id string) (Payout, error)
	List(ctx context.Context, req ListRequest) ([]Payout, error)

	Process(ctx context.Context, id string, req ProcessRequest) (Payout, error)
	Complete(ctx context.Context, id string) (Payout, error)
	Cancel(ctx context.Context, id string) (Payout, error)
	Fail(ctx context.Context, id string) (Payout, error)

	Stats(ctx context.Context) (Stats, error)
}

var (
	ErrPayoutNotFound        = errors.New("payout_not_found")
	ErrInvalidID             = errors.New("invalid_payout_id")
	ErrNoEligibleCommissions = errors.New("no_eligible_commissions")
	ErrInvalidPeriod         = errors.New("invalid_payout_period")
)
