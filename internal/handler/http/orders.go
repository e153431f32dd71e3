package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Hian201/AniceHolidaySample/internal/checkout"
	"github.com/Hian201/AniceHolidaySample/internal/domain"
	"github.com/Hian201/AniceHolidaySample/internal/history"
	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
	"github.com/Hian201/AniceHolidaySample/pkg/httputil"
	"github.com/Hian201/AniceHolidaySample/pkg/validator"
)

// OrdersHandler serves the order history mirror and its mutation workflows.
type OrdersHandler struct {
	mirror       *history.Mirror
	orchestrator *checkout.Orchestrator
	logger       *slog.Logger
	now          func() time.Time
}

// NewOrdersHandler creates an orders HTTP handler.
func NewOrdersHandler(mirror *history.Mirror, o *checkout.Orchestrator, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		mirror:       mirror,
		orchestrator: o,
		logger:       logger,
		now:          time.Now,
	}
}

// orderView renders a history entry with its relative date label.
type orderView struct {
	ID           string               `json:"id"`
	DisplayIndex int                  `json:"display_index"`
	DisplayDate  string               `json:"display_date"`
	Order        domain.CustomerOrder `json:"order"`
}

// itemPayload is the wire shape of a single order item in edit requests.
type itemPayload struct {
	Item        string `json:"item" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gte=1,lte=99"`
	Sweetness   string `json:"sweetness" validate:"required"`
	Temperature string `json:"temperature" validate:"required"`
	Topping     string `json:"topping"`
	Price       int    `json:"price" validate:"gte=0"`
}

func (p itemPayload) toDomain() domain.OrderItem {
	topping := p.Topping
	if topping == "" {
		topping = domain.ToppingNone
	}
	return domain.OrderItem{
		Item:        p.Item,
		Quantity:    p.Quantity,
		Sweetness:   p.Sweetness,
		Temperature: p.Temperature,
		Topping:     topping,
		Price:       p.Price,
	}
}

// EditItemRequest carries the before and after snapshots of an order item.
// The previous snapshot drives the field diff so only changed fields travel.
type EditItemRequest struct {
	Previous itemPayload `json:"previous" validate:"required"`
	Updated  itemPayload `json:"updated" validate:"required"`
}

// ListOrders handles GET /api/v1/orders. With ?refresh=true the mirror is
// re-fetched from the backend before responding.
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if err := h.mirror.Refresh(r.Context()); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	now := h.now()
	entries := h.mirror.Entries()
	views := make([]orderView, len(entries))
	for i, e := range entries {
		views[i] = orderView{
			ID:           e.ID,
			DisplayIndex: e.DisplayIndex,
			DisplayDate:  e.DisplayLabel(now),
			Order:        e.Order,
		}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: views})
}

// GetOrderItems handles GET /api/v1/orders/{id}/items. The item records are
// fetched live so their server IDs are available for edits.
func (h *OrdersHandler) GetOrderItems(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("order id is required"), h.logger)
		return
	}

	items, err := h.mirror.LoadItems(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: items})
}

// EditItem handles PATCH /api/v1/orders/{id}/items/{itemId}
func (h *OrdersHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	itemID := chi.URLParam(r, "itemId")
	if orderID == "" || itemID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("order id and item id are required"), h.logger)
		return
	}

	var req EditItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.orchestrator.EditItem(r.Context(), orderID, itemID, req.Previous.toDomain(), req.Updated.toDomain())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// DeleteOrder handles DELETE /api/v1/orders/{id}
func (h *OrdersHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("order id is required"), h.logger)
		return
	}

	result, err := h.orchestrator.DeleteOrder(r.Context(), orderID)
	if err != nil {
		if result != nil {
			// One leg may have succeeded; report which.
			httputil.WriteJSON(w, apperrors.HTTPStatus(err), httputil.Response{
				Data: result,
				Error: &httputil.ErrorResponse{
					Code:    "DELETE_INCOMPLETE",
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
