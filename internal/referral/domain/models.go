// Package domain contains persistence models for referral links and clicks.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ReferralLink is a trackable link an affiliate shares for a program.
type ReferralLink struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	AffiliateID      snowflake.ID `gorm:"not null;index" json:"affiliate_id"`
	ProgramID        snowflake.ID `gorm:"not null;index" json:"program_id"`
	Code             string       `gorm:"not null;uniqueIndex" json:"code"`
	TargetURL        string       `gorm:"not null" json:"target_url"`
	UTMSource        string       `gorm:"column:utm_source" json:"utm_source,omitempty"`
	UTMMedium        string       `gorm:"column:utm_medium" json:"utm_medium,omitempty"`
	UTMCampaign      string       `gorm:"column:utm_campaign" json:"utm_campaign,omitempty"`
	IsActive         bool         `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt        *time.Time   `json:"expires_at,omitempty"`
	ClicksCount      int64        `gorm:"not null;default:0" json:"clicks_count"`
	ConversionsCount int64        `gorm:"not null;default:0" json:"conversions_count"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (ReferralLink) TableName() string { return "referral_links" }

// ReferralClick is one recorded visit through a referral link.
type ReferralClick struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	LinkID    snowflake.ID `gorm:"not null;index" json:"link_id"`
	VisitorID string       `json:"visitor_id,omitempty"`
	IPAddress string       `json:"ip_address,omitempty"`
	UserAgent string       `json:"user_agent,omitempty"`
	Referer   string       `json:"referer,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (ReferralClick) TableName() string { return "referral_clicks" }
