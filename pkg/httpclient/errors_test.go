package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
)

func fakeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{
			name:     "404 maps to not found",
			status:   http.StatusNotFound,
			body:     `{"error":{"type":"NOT_FOUND","message":"record missing"}}`,
			sentinel: apperrors.ErrNotFound,
		},
		{
			name:     "422 maps to invalid input",
			status:   http.StatusUnprocessableEntity,
			body:     `{"error":{"type":"INVALID_REQUEST_UNKNOWN","message":"bad field"}}`,
			sentinel: apperrors.ErrInvalidInput,
		},
		{
			name:     "401 maps to unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"type":"AUTHENTICATION_REQUIRED","message":"bad key"}}`,
			sentinel: apperrors.ErrUnauthorized,
		},
		{
			name:     "429 maps to service unavailable",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"type":"RATE_LIMIT_REACHED","message":"slow down"}}`,
			sentinel: apperrors.ErrServiceUnavail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(fakeResponse(tt.status, tt.body), "Order")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel))
		})
	}

	t.Run("500 stays a plain error", func(t *testing.T) {
		err := ParseResponseError(fakeResponse(http.StatusInternalServerError,
			`{"error":{"type":"SERVER_ERROR","message":"boom"}}`), "Order")
		require.Error(t, err)

		var appErr *apperrors.AppError
		assert.False(t, errors.As(err, &appErr))
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("unstructured body falls back to raw text", func(t *testing.T) {
		err := ParseResponseError(fakeResponse(http.StatusBadGateway, "<html>gateway</html>"), "Order")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
		assert.Contains(t, err.Error(), "gateway")
	})
}
