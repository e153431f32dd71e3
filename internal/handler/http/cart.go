package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Hian201/AniceHolidaySample/internal/cart"
	"github.com/Hian201/AniceHolidaySample/internal/domain"
	"github.com/Hian201/AniceHolidaySample/internal/menu"
	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
	"github.com/Hian201/AniceHolidaySample/pkg/httputil"
	"github.com/Hian201/AniceHolidaySample/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	store  *cart.Store
	menu   *menu.Mirror
	logger *slog.Logger
}

// NewCartHandler creates a cart HTTP handler.
func NewCartHandler(store *cart.Store, mirror *menu.Mirror, logger *slog.Logger) *CartHandler {
	return &CartHandler{store: store, menu: mirror, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a drink to the cart.
type AddItemRequest struct {
	Item        string `json:"item" validate:"required"`
	Sweetness   string `json:"sweetness" validate:"required"`
	Temperature string `json:"temperature" validate:"required"`
	Topping     string `json:"topping"`
	Quantity    int    `json:"quantity" validate:"required,gte=1,lte=99"`
}

// UpdateItemRequest is the JSON request body for rewriting a cart line.
type UpdateItemRequest struct {
	Sweetness   string `json:"sweetness" validate:"required"`
	Temperature string `json:"temperature" validate:"required"`
	Topping     string `json:"topping"`
	Quantity    int    `json:"quantity" validate:"required,gte=1,lte=99"`
}

// RemoveItemsRequest is the JSON request body for removing cart lines by
// display position.
type RemoveItemsRequest struct {
	Indices []int `json:"indices" validate:"required,min=1"`
}

// ReorderRequest is the JSON request body for moving a cart line.
type ReorderRequest struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to" validate:"gte=0"`
}

// cartView renders the current cart state.
type cartView struct {
	Items         []domain.OrderItem `json:"items"`
	TotalAmount   int                `json:"total_amount"`
	TotalQuantity int                `json:"total_quantity"`
}

func (h *CartHandler) view() cartView {
	return cartView{
		Items:         h.store.Items(),
		TotalAmount:   h.store.TotalAmount(),
		TotalQuantity: h.store.TotalQuantity(),
	}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view()})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if req.Topping == "" {
		req.Topping = domain.ToppingNone
	}
	if err := validateOptions(req.Sweetness, req.Temperature, req.Topping); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	drink, ok := h.menu.Drink(req.Item)
	if !ok {
		httputil.WriteError(w, r, apperrors.NotFound("menu item", req.Item), h.logger)
		return
	}

	lineTotal := domain.LineTotal(drink, req.Topping, req.Quantity)
	h.store.Add(drink, req.Sweetness, req.Temperature, req.Topping, req.Quantity, lineTotal)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view()})
}

// UpdateItem handles PUT /api/v1/cart/items/{item}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemName := chi.URLParam(r, "item")
	if itemName == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("item is required"), h.logger)
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if req.Topping == "" {
		req.Topping = domain.ToppingNone
	}
	if err := validateOptions(req.Sweetness, req.Temperature, req.Topping); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	drink, ok := h.menu.Drink(itemName)
	if !ok {
		httputil.WriteError(w, r, apperrors.NotFound("menu item", itemName), h.logger)
		return
	}

	item := domain.OrderItem{
		Item:        itemName,
		Sweetness:   req.Sweetness,
		Temperature: req.Temperature,
		Topping:     req.Topping,
		Quantity:    req.Quantity,
		Price:       domain.LineTotal(drink, req.Topping, req.Quantity),
	}
	if err := h.store.Update(item); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view()})
}

// RemoveItems handles DELETE /api/v1/cart/items
func (h *CartHandler) RemoveItems(w http.ResponseWriter, r *http.Request) {
	var req RemoveItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	h.store.RemoveAt(req.Indices)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view()})
}

// Reorder handles POST /api/v1/cart/reorder
func (h *CartHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := h.store.Reorder(req.From, req.To); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view()})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "cleared"}})
}

// validateOptions rejects customization values outside the fixed vocabulary.
func validateOptions(sweetness, temperature, topping string) error {
	if !domain.ValidSweetness(sweetness) {
		return apperrors.InvalidInput("unknown sweetness level: " + sweetness)
	}
	if !domain.ValidTemperature(temperature) {
		return apperrors.InvalidInput("unknown temperature: " + temperature)
	}
	if !domain.ValidTopping(topping) {
		return apperrors.InvalidInput("unknown topping: " + topping)
	}
	return nil
}
