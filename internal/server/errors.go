package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	affiliatedomain "github.com/smallbiznis/referra/internal/affiliate/domain"
	authdomain "github.com/smallbiznis/referra/internal/auth/domain"
	"github.com/smallbiznis/referra/internal/auth/token"
	commissiondomain "github.com/smallbiznis/referra/internal/commission/domain"
	conversiondomain "github.com/smallbiznis/referra/internal/conversion/domain"
	payoutdomain "github.com/smallbiznis/referra/internal/payout/domain"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
	referraldomain "github.com/smallbiznis/referra/internal/referral/domain"
	userdomain "github.com/smallbiznis/referra/internal/user/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(err, code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrUserDisabled),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrWrongType):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, referraldomain.ErrLinkExpired):
		return http.StatusGone, errorPayload{
			Type:    "gone",
			Message: "link expired",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	var convTransition *conversiondomain.InvalidTransitionError
	var payoutTransition *payoutdomain.InvalidTransitionError
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrWeakPassword),
		errors.Is(err, userdomain.ErrInvalidUserID),
		errors.Is(err, userdomain.ErrInvalidRole),
		errors.Is(err, affiliatedomain.ErrInvalidID),
		errors.Is(err, affiliatedomain.ErrNotPending),
		errors.Is(err, programdomain.ErrInvalidProgramID),
		errors.Is(err, programdomain.ErrInvalidConfig),
		errors.Is(err, programdomain.ErrInvalidStatus),
		errors.Is(err, programdomain.ErrProgramNotActive),
		errors.Is(err, referraldomain.ErrInvalidLinkID),
		errors.Is(err, referraldomain.ErrInvalidTarget),
		errors.Is(err, referraldomain.ErrLinkInactive),
		errors.Is(err, referraldomain.ErrInvalidPageToken),
		errors.Is(err, conversiondomain.ErrInvalidID),
		errors.Is(err, conversiondomain.ErrNegativeAmount),
		errors.Is(err, conversiondomain.ErrMissingLink),
		errors.Is(err, conversiondomain.ErrInvalidType),
		errors.Is(err, commissiondomain.ErrInvalidID),
		errors.Is(err, commissiondomain.ErrNotPending),
		errors.Is(err, payoutdomain.ErrInvalidID),
		errors.Is(err, payoutdomain.ErrInvalidPeriod),
		errors.Is(err, payoutdomain.ErrNoEligibleCommissions):
		return true
	case errors.As(err, &convTransition),
		errors.As(err, &payoutTransition):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrEmailTaken),
		errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, affiliatedomain.ErrAlreadyAffiliate),
		errors.Is(err, programdomain.ErrSlugTaken),
		errors.Is(err, programdomain.ErrAlreadyEnrolled):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrUserNotFound),
		errors.Is(err, affiliatedomain.ErrAffiliateNotFound),
		errors.Is(err, affiliatedomain.ErrTierNotFound),
		errors.Is(err, programdomain.ErrProgramNotFound),
		errors.Is(err, programdomain.ErrEnrollmentNotFound),
		errors.Is(err, referraldomain.ErrLinkNotFound),
		errors.Is(err, conversiondomain.ErrConversionNotFound),
		errors.Is(err, commissiondomain.ErrCommissionNotFound),
		errors.Is(err, payoutdomain.ErrPayoutNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	var convTransition *conversiondomain.InvalidTransitionError
	var payoutTransition *payoutdomain.InvalidTransitionError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.As(err, &convTransition),
		errors.As(err, &payoutTransition):
		return "invalid_transition"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

// validationErrorMessage keeps transition refusals verbatim so callers
// see the current and requested states.
func validationErrorMessage(err error, code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_transition":
		return err.Error()
	default:
		return "invalid value"
	}
}
