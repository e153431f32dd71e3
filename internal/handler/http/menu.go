package http

import (
	"log/slog"
	"net/http"

	"github.com/Hian201/AniceHolidaySample/internal/menu"
	"github.com/Hian201/AniceHolidaySample/pkg/httputil"
)

// MenuHandler serves the cached drink menu.
type MenuHandler struct {
	mirror *menu.Mirror
	logger *slog.Logger
}

// NewMenuHandler creates a menu HTTP handler.
func NewMenuHandler(mirror *menu.Mirror, logger *slog.Logger) *MenuHandler {
	return &MenuHandler{mirror: mirror, logger: logger}
}

// GetMenu handles GET /api/v1/menu. With ?refresh=true the mirror is
// re-fetched from the backend before responding.
func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if err := h.mirror.Refresh(r.Context()); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	groups := h.mirror.Grouped()
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: groups})
}
