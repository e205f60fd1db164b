package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/secrets"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"bad request", badRequest("invalid id %q", "x"), http.StatusBadRequest, `bad request: invalid id "x"`},
		{"validation", fmt.Errorf("%w: name is required", secrets.ErrValidation), http.StatusBadRequest, "invalid secret: name is required"},
		{"unauthenticated", errUnauthenticated, http.StatusUnauthorized, "Authentication required"},
		{"forbidden", errForbidden, http.StatusForbidden, "Forbidden"},
		{"not found", fmt.Errorf("secret 3: %w", store.ErrNotFound), http.StatusNotFound, "Not found"},
		{"conflict", store.ErrConflict, http.StatusConflict, "Already exists"},
		{"other", errors.New("connection reset by peer"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := statusFor(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestWriteError_HidesCause(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)

	writeError(rr, req, logging.Nop(), errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":{"message":"Internal server error"}}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}
