package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
)

// BackendErrorResponse mirrors the error body returned by the hosted table
// backend on non-2xx responses, e.g.
//
//	{"error": {"type": "INVALID_REQUEST_UNKNOWN", "message": "..."}}
type BackendErrorResponse struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. If the body matches the backend's error
// format, its type and message are preserved. Otherwise a generic error is
// returned with the status code and raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error.
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, resource string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", resource, resp.StatusCode, err)
	}

	var backend BackendErrorResponse
	if json.Unmarshal(bodyBytes, &backend) == nil && backend.Error != nil {
		return mapBackendError(resp.StatusCode, backend.Error.Type, backend.Error.Message, resource)
	}

	// Fallback: unstructured error body.
	return fmt.Errorf("%s returned status %d: %s", resource, resp.StatusCode, string(bodyBytes))
}

// mapBackendError translates the backend's HTTP status and error type into an
// AppError that preserves the error semantics.
func mapBackendError(status int, code, message, resource string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", resource, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(resource, message)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
			Err:     apperrors.ErrServiceUnavail,
		}
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", resource, status, code, message)
	default:
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}
