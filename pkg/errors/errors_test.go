package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"not found", stderrors.New("batch not found"), CodeNotFound, http.StatusNotFound},
		{"out of order", stderrors.New("step timestamp is out of order"), CodeOutOfOrder, http.StatusUnprocessableEntity},
		{"regression", stderrors.New("update would regress batch status"), CodeStatusRegression, http.StatusUnprocessableEntity},
		{"version conflict", stderrors.New("batch version conflict"), CodeConflict, http.StatusConflict},
		{"in flight", stderrors.New("update already in flight for batch ETH-COFFEE-A1B2C3D4"), CodeConflict, http.StatusConflict},
		{"already exists", stderrors.New("batch already exists"), CodeConflict, http.StatusConflict},
		{"invalid", stderrors.New("invalid crop type"), CodeValidationError, http.StatusBadRequest},
		{"must be", stderrors.New("initial weight must be positive"), CodeValidationError, http.StatusBadRequest},
		{"exceeds", stderrors.New("new weight exceeds allowed range"), CodeValidationError, http.StatusBadRequest},
		{"immutable", stderrors.New("wallet address cannot be changed"), CodeValidationError, http.StatusBadRequest},
		{"unknown", stderrors.New("something broke"), CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapDomainError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestMapDomainError_WrappedSentinel(t *testing.T) {
	sentinel := stderrors.New("batch version conflict")
	wrapped := fmt.Errorf("replacing batch ETH-COFFEE-A1B2C3D4: %w", sentinel)

	appErr := MapDomainError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeConflict, appErr.Code)
	assert.ErrorIs(t, appErr, sentinel)
}

func TestMapDomainError_PassThroughAppError(t *testing.T) {
	original := ErrConflict("update already in flight")

	appErr := MapDomainError(fmt.Errorf("handling request: %w", original))
	assert.Same(t, original, appErr)
}

func TestMapDomainError_Nil(t *testing.T) {
	assert.Nil(t, MapDomainError(nil))
}

func TestAppError_Details(t *testing.T) {
	appErr := ErrNotFoundWithID("batch", "ETH-COFFEE-A1B2C3D4")
	assert.Equal(t, "ETH-COFFEE-A1B2C3D4", appErr.Details["id"])
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}
