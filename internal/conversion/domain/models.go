// Package domain contains the conversion model and its state machine.
package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ConversionStatus represents lifecycle states for a conversion.
type ConversionStatus string

const (
	ConversionStatusPending   ConversionStatus = "pending"
	ConversionStatusValidated ConversionStatus = "validated"
	ConversionStatusRejected  ConversionStatus = "rejected"
	ConversionStatusReversed  ConversionStatus = "reversed"
)

// ConversionType classifies what the visitor did.
type ConversionType string

const (
	ConversionTypeSale   ConversionType = "sale"
	ConversionTypeLead   ConversionType = "lead"
	ConversionTypeSignup ConversionType = "signup"
	ConversionTypeCustom ConversionType = "custom"
)

// Conversion is a tracked outcome attributed to an affiliate.
type Conversion struct {
	ID          snowflake.ID     `gorm:"primaryKey" json:"id"`
	ProgramID   snowflake.ID     `gorm:"not null;index" json:"program_id"`
	AffiliateID snowflake.ID     `gorm:"not null;index" json:"affiliate_id"`
	LinkID      *snowflake.ID    `json:"link_id,omitempty"`
	ExternalID  string           `json:"external_id,omitempty"`
	VisitorID   string           `json:"visitor_id,omitempty"`
	Type        ConversionType   `gorm:"column:conversion_type;type:text;not null;default:sale" json:"conversion_type"`
	OrderAmount decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"order_amount"`
	Currency    string           `gorm:"not null" json:"currency"`
	Status      ConversionStatus `gorm:"type:text;not null;default:pending" json:"status"`
	Metadata    datatypes.JSON   `json:"metadata,omitempty"`
	ValidatedAt *time.Time       `json:"validated_at,omitempty"`
	CreatedAt   time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Conversion) TableName() string { return "conversions" }

// validTransitions is the whole state machine: pending can be decided,
// only validated conversions can be reversed.
var validTransitions = map[ConversionStatus][]ConversionStatus{
	ConversionStatusPending:   {ConversionStatusValidated, ConversionStatusRejected},
	ConversionStatusValidated: {ConversionStatusReversed},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to ConversionStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError names both states so API callers see exactly
// which move was refused.
type InvalidTransitionError struct {
	From ConversionStatus
	To   ConversionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid conversion transition from %s to %s", e.From, e.To)
}
