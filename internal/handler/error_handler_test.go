package handler

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formini/internal/errors"
	"formini/internal/logging"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"domain error", errors.ErrPendingApproval, http.StatusForbidden, "PENDING_APPROVAL", "instructor application pending approval"},
		{"wrapped domain error", fmt.Errorf("login: %w", errors.ErrInvalidCredentials), http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"},
		{"validation", invalidRequest(stderrors.New("bad json")), http.StatusBadRequest, "INVALID_REQUEST", "invalid request body"},
		{"provider id conflict", errors.ErrProviderLinked, http.StatusConflict, "PROVIDER_ID_TAKEN", "this external identity is linked to another account"},
		{"dependency", errors.ErrFileStore, http.StatusBadGateway, "FILE_STORE_UNAVAILABLE", "file storage unavailable"},
		{"echo error", echo.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Not Found"},
		{"body too large", echo.ErrStatusRequestEntityTooLarge, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "Request Entity Too Large"},
		{"unclassified", stderrors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
	}

	h := NewHTTPErrorHandler(logging.Discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			h(tt.err, c)

			assert.Equal(t, tt.status, rec.Code)
			var body errors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.msg, body.Error)
		})
	}
}

func TestHTTPErrorHandler_Head(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodHead, "/", nil), rec)

	NewHTTPErrorHandler(logging.Discard())(errors.ErrForbidden, c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Body.String())
}
