// Package domain contains the commission model and rule evaluation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CommissionStatus represents lifecycle states for a commission.
type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "pending"
	CommissionStatusApproved CommissionStatus = "approved"
	CommissionStatusRejected CommissionStatus = "rejected"
	CommissionStatusPaid     CommissionStatus = "paid"
)

// Commission is the money owed to an affiliate for one conversion.
// RuleSnapshot preserves the config the amount was computed from, so
// later program edits never change what is owed.
type Commission struct {
	ID           snowflake.ID     `gorm:"primaryKey" json:"id"`
	ConversionID snowflake.ID     `gorm:"not null;uniqueIndex" json:"conversion_id"`
	AffiliateID  snowflake.ID     `gorm:"not null;index" json:"affiliate_id"`
	ProgramID    snowflake.ID     `gorm:"not null;index" json:"program_id"`
	BaseAmount   decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"base_amount"`
	Multiplier   decimal.Decimal  `gorm:"type:decimal(10,4);not null" json:"multiplier"`
	Amount       decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency     string           `gorm:"not null" json:"currency"`
	Status       CommissionStatus `gorm:"type:text;not null;default:pending" json:"status"`
	TierID       *snowflake.ID    `json:"tier_id,omitempty"`
	RuleSnapshot datatypes.JSON   `json:"rule_snapshot,omitempty"`
	ApprovedBy   *snowflake.ID    `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time       `json:"approved_at,omitempty"`
	PayoutID     *snowflake.ID    `gorm:"index" json:"payout_id,omitempty"`
	CreatedAt    time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Commission) TableName() string { return "commissions" }
