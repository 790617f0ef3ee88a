// Package domain contains persistence models for affiliate profiles and tiers.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AffiliateStatus represents lifecycle states for an affiliate profile.
type AffiliateStatus string

const (
	AffiliateStatusPending   AffiliateStatus = "pending"
	AffiliateStatusApproved  AffiliateStatus = "approved"
	AffiliateStatusRejected  AffiliateStatus = "rejected"
	AffiliateStatusSuspended AffiliateStatus = "suspended"
)

// AffiliateTier groups affiliates by performance and scales their commissions.
type AffiliateTier struct {
	ID                   snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name                 string          `gorm:"not null;uniqueIndex" json:"name"`
	Level                int             `gorm:"not null;default:1" json:"level"`
	Description          string          `json:"description"`
	CommissionMultiplier decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"commission_multiplier"`
	Requirements         datatypes.JSON  `json:"requirements,omitempty"`
	Benefits             datatypes.JSON  `json:"benefits,omitempty"`
	CreatedAt            time.Time       `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (AffiliateTier) TableName() string { return "affiliate_tiers" }

// Affiliate is the marketing profile attached to a user account.
type Affiliate struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID          snowflake.ID    `gorm:"not null;uniqueIndex" json:"user_id"`
	Code            string          `gorm:"not null;uniqueIndex" json:"code"`
	Status          AffiliateStatus `gorm:"type:text;not null;default:pending" json:"status"`
	TierID          *snowflake.ID   `json:"tier_id,omitempty"`
	CompanyName     string          `json:"company_name,omitempty"`
	Website         string          `json:"website,omitempty"`
	PaymentEmail    string          `json:"payment_email,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Affiliate) TableName() string { return "affiliates" }
