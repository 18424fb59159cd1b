package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glowdesk/glowdesk/internal/platform/httpx"
)

// Handler exposes the inventory read endpoints. Movements are written through
// document posting, which keeps the ledger and stock in step.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/valuation", h.valuation)
	r.Get("/movement-history", h.movementHistory)
}

func (h *Handler) valuation(w http.ResponseWriter, r *http.Request) {
	valuations, err := h.service.Valuation(r.Context())
	if err != nil {
		h.logger.Error("inventory valuation failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": valuations})
}

func (h *Handler) movementHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter MovementFilter
	if raw := q.Get("productId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "productId must be an integer")
			return
		}
		filter.ProductID = id
	}
	if raw := q.Get("locationId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "locationId must be an integer")
			return
		}
		filter.LocationID = id
	}
	if raw := q.Get("start"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start must be an ISO date (YYYY-MM-DD)")
			return
		}
		filter.From = t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end must be an ISO date (YYYY-MM-DD)")
			return
		}
		filter.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	movements, err := h.service.MovementHistory(r.Context(), filter)
	if err != nil {
		h.logger.Error("movement history failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}
