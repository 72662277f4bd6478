package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/provision/internal/errors"
)

func TestHandleErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantCode      string
		wantRetryable bool
	}{
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "not_found", false},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, "conflict", false},
		{"session busy is retryable", apperrors.ErrSessionBusy, http.StatusConflict, "session_busy", true},
		{"quota exceeded", apperrors.ErrQuotaExceeded, http.StatusUnprocessableEntity, "quota_exceeded", false},
		{"invalid input", apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", false},
		{"expired", apperrors.ErrExpired, http.StatusGone, "expired", false},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", false},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "forbidden", false},
		{"unknown maps to internal", assert.AnError, http.StatusInternalServerError, "internal_error", false},
		{
			"wrapped error keeps mapping",
			apperrors.Wrap(apperrors.ErrQuotaExceeded, "reserving quota"),
			http.StatusUnprocessableEntity,
			"quota_exceeded",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)

			HandleErrorGin(c, tt.err, nil)

			assert.Equal(t, tt.wantStatus, recorder.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.Equal(t, tt.wantRetryable, resp.Retryable)
		})
	}
}

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		query      string
		wantOffset int
		wantLimit  int
		wantErr    bool
	}{
		{"defaults", "", 0, 50, false},
		{"custom values", "offset=10&limit=25", 10, 25, false},
		{"negative offset", "offset=-1", 0, 0, true},
		{"limit too large", "limit=500", 0, 0, true},
		{"non numeric", "offset=abc", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)
			c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)

			offset, limit, err := ParsePagination(c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}
