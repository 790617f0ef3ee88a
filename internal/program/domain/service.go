package domain

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateProgramRequest struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	ProgramType      string          `json:"program_type"`
	CommissionConfig json.RawMessage `json:"commission_config"`
	CookieWindowDays int             `json:"cookie_window_days"`
	Currency         string          `json:"currency"`
}

type UpdateProgramRequest struct {
	Name             *string         `json:"name,omitempty"`
	Description      *string         `json:"description,omitempty"`
	Status           *string         `json:"status,omitempty"`
	CommissionConfig json.RawMessage `json:"commission_config,omitempty"`
	CookieWindowDays *int            `json:"cookie_window_days,omitempty"`
}

type ListProgramRequest struct {
	Status string
	Type   string
	Limit  int
	Offset int
}

type EnrollRequest struct {
	AffiliateID            snowflake.ID    `json:"affiliate_id,string"`
	CustomCommissionConfig json.RawMessage `json:"custom_commission_config,omitempty"`
}

type UpdateEnrollmentRequest struct {
	Status                 *string         `json:"status,omitempty"`
	CustomCommissionConfig json.RawMessage `json:"custom_commission_config,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateProgramRequest) (Program, error)
	GetByID(ctx context.Context, id string) (Program, error)
	List(ctx context.Context, req ListProgramRequest) ([]Program, error)
	Update(ctx context.Context, id string, req UpdateProgramRequest) (Program, error)

	Enroll(ctx context.Context, programID string, req EnrollRequest) (Enrollment, error)
	UpdateEnrollment(ctx context.Context, enrollmentID string, req UpdateEnrollmentRequest) (Enrollment, error)
	ListEnrollments(ctx context.Context, programID string) ([]Enrollment, error)
	ListAffiliateEnrollments(ctx context.Context, affiliateID snowflake.ID) ([]Enrollment, error)

	// ActiveEnrollment returns the active enrollment joining an affiliate
	// to a program, where referral links hang off.
	ActiveEnrollment(ctx context.Context, programID, affiliateID snowflake.ID) (Enrollment, error)
}

var (
	ErrProgramNotFound    = errors.New("program_not_found")
	ErrEnrollmentNotFound = errors.New("enrollment_not_found")
	ErrSlugTaken          = errors.New("program_slug_taken")
	ErrAlreadyEnrolled    = errors.New("already_enrolled")
	ErrProgramNotActive   = errors.New("program_not_active")
	ErrInvalidProgramID   = errors.New("invalid_program_id")
	ErrInvalidConfig      = errors.New("invalid_commission_config")
	ErrInvalidStatus      = errors.New("invalid_status")
)
