// Package domain contains persistence models for programs and enrollments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ProgramType classifies what kind of product a program promotes.
type ProgramType string

const (
	ProgramTypeSaaS         ProgramType = "saas"
	ProgramTypeLeadGen      ProgramType = "lead_gen"
	ProgramTypeContentMedia ProgramType = "content_media"
)

// ProgramStatus represents lifecycle states for a program.
type ProgramStatus string

const (
	ProgramStatusActive   ProgramStatus = "active"
	ProgramStatusPaused   ProgramStatus = "paused"
	ProgramStatusArchived ProgramStatus = "archived"
)

// EnrollmentStatus represents lifecycle states for an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusPending EnrollmentStatus = "pending"
	EnrollmentStatusActive  EnrollmentStatus = "active"
	EnrollmentStatusPaused  EnrollmentStatus = "paused"
	EnrollmentStatusRemoved EnrollmentStatus = "removed"
)

// Program is a commission campaign affiliates can enroll into.
type Program struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"not null" json:"name"`
	Slug             string         `gorm:"not null;uniqueIndex" json:"slug"`
	Description      string         `json:"description,omitempty"`
	ProgramType      ProgramType    `gorm:"type:text;not null;default:saas" json:"program_type"`
	Status           ProgramStatus  `gorm:"type:text;not null;default:active" json:"status"`
	CommissionConfig datatypes.JSON `gorm:"not null" json:"commission_config"`
	CookieWindowDays int            `gorm:"not null;default:30" json:"cookie_window_days"`
	Currency         string         `gorm:"not null;default:USD" json:"currency"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Program) TableName() string { return "programs" }

// Enrollment ties an affiliate to a program, optionally overriding the
// program's commission config.
type Enrollment struct {
	ID                     snowflake.ID     `gorm:"primaryKey" json:"id"`
	ProgramID              snowflake.ID     `gorm:"not null;index" json:"program_id"`
	AffiliateID            snowflake.ID     `gorm:"not null;index" json:"affiliate_id"`
	Status                 EnrollmentStatus `gorm:"type:text;not null;default:pending" json:"status"`
	CustomCommissionConfig datatypes.JSON   `json:"custom_commission_config,omitempty"`
	CreatedAt              time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time        `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Enrollment) TableName() string { return "program_enrollments" }
