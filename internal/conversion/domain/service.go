package domain

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

type CreateConversionRequest struct {
	LinkCode     string          `json:"link_code,omitempty"`
	LinkID       string          `json:"link_id,omitempty"`
	ExternalID   string          `json:"external_id,omitempty"`
	VisitorID    string          `json:"visitor_id,omitempty"`
	Type         string          `json:"conversion_type,omitempty"`
	OrderAmount  decimal.Decimal `json:"order_amount"`
	Currency     string          `json:"currency,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	AutoValidate bool            `json:"auto_validate,omitempty"`
}

type ListConversionRequest struct {
	AffiliateID string
	ProgramID   string
	Status      string
	Limit       int
	Offset      int
}

type Service interface {
	Create(ctx context.Context, req CreateConversionRequest) (Conversion, error)
	GetByID(ctx context.Context, id string) (Conversion, error)
	List(ctx context.Context, req ListConversionRequest) ([]Conversion, error)
	Validate(ctx context.Context, id string) (Conversion, error)
	Reject(ctx context.Context, id string) (Conversion, error)
	Reverse(ctx context.Context, id string) (Conversion, error)
}

var (
	ErrConversionNotFound = errors.New("conversion_not_found")
	ErrInvalidID          = errors.New("invalid_conversion_id")
	ErrNegativeAmount     = errors.New("negative_order_amount")
	ErrMissingLink        = errors.New("missing_link_reference")
	ErrInvalidType        = errors.New("invalid_conversion_type")
)
