package server

import (
	"net/http"
	"testing"

	conversiondomain "github.com/smallbiznis/referra/internal/conversion/domain"
	payoutdomain "github.com/smallbiznis/referra/internal/payout/domain"
	referraldomain "github.com/smallbiznis/referra/internal/referral/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError_TransitionMessageNamesBothStates(t *testing.T) {
	err := &conversiondomain.InvalidTransitionError{
		From: conversiondomain.ConversionStatusRejected,
		To:   conversiondomain.ConversionStatusValidated,
	}

	status, payload := mapError(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_transition", payload.Errors[0].Code)
	assert.Equal(t, "invalid conversion transition from rejected to validated", payload.Errors[0].Message)
}

func TestMapError_PayoutTransitionMessage(t *testing.T) {
	err := &payoutdomain.InvalidTransitionError{
		From: payoutdomain.PayoutStatusCompleted,
		To:   payoutdomain.PayoutStatusCancelled,
	}

	status, payload := mapError(err)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, err.Error(), payload.Errors[0].Message)
}

func TestMapError_BadPageToken(t *testing.T) {
	status, payload := mapError(referraldomain.ErrInvalidPageToken)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_page_token", payload.Errors[0].Code)
}
