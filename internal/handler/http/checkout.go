package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Hian201/AniceHolidaySample/internal/checkout"
	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
	"github.com/Hian201/AniceHolidaySample/pkg/httputil"
	"github.com/Hian201/AniceHolidaySample/pkg/validator"
)

// CheckoutHandler exposes the checkout workflow.
type CheckoutHandler struct {
	orchestrator *checkout.Orchestrator
	logger       *slog.Logger
}

// NewCheckoutHandler creates a checkout HTTP handler.
func NewCheckoutHandler(o *checkout.Orchestrator, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{orchestrator: o, logger: logger}
}

// Submit handles POST /api/v1/checkout. A fully or partially successful
// checkout returns 200 with the result; the Partial flag and BatchErrors
// tell the client what fell short. A failure before the order existed, or a
// link failure afterwards, returns the error alongside the step trail.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req checkout.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.orchestrator.Submit(r.Context(), req)
	if err != nil {
		if result != nil {
			// Surface the step trail so the client can tell a dead checkout
			// from an order left unlinked server-side.
			status := apperrors.HTTPStatus(err)
			httputil.WriteJSON(w, status, httputil.Response{
				Data: result,
				Error: &httputil.ErrorResponse{
					Code:    "CHECKOUT_FAILED",
					Message: err.Error(),
				},
			})
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}
