// Package domain contains the payout model and batching rules.
package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PayoutStatus represents lifecycle states for a payout batch.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

// Payout is a batch of approved commissions owed to one affiliate.
// Totals are retained as history even when the batch is cancelled.
type Payout struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	AffiliateID      snowflake.ID    `gorm:"not null;index" json:"affiliate_id"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Currency         string          `gorm:"not null" json:"currency"`
	CommissionCount  int             `gorm:"not null;default:0" json:"commission_count"`
	Status           PayoutStatus    `gorm:"type:text;not null;default:pending" json:"status"`
	PeriodStart      *time.Time      `json:"period_start,omitempty"`
	PeriodEnd        *time.Time      `json:"period_end,omitempty"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	ProcessedBy      *snowflake.ID   `json:"processed_by,omitempty"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Payout) TableName() string { return "payouts" }

// MonthlyPeriod returns the calendar bounds of a month, the end being
// the month's last instant at one second granularity.
func MonthlyPeriod(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// InvalidTransitionError names both states so API callers see exactly
// which move was refused.
type InvalidTransitionError struct {
	From PayoutStatus
	To   PayoutStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid payout transition from %s to %s", e.From, e.To)
}
