package journals

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
	"github.com/glowdesk/glowdesk/internal/platform/httpx"
	internalshared "github.com/glowdesk/glowdesk/internal/shared"
)

var validate = validator.New()

// Handler exposes manual journal entry endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

type lineRequest struct {
	AccountID   int64   `json:"accountId" validate:"required"`
	Description string  `json:"description"`
	Debit       float64 `json:"debit" validate:"gte=0"`
	Credit      float64 `json:"credit" validate:"gte=0"`
	ProductID   *int64  `json:"productId"`
	LocationID  *int64  `json:"locationId"`
}

type createRequest struct {
	Date           string        `json:"date" validate:"required"`
	Memo           string        `json:"memo"`
	IdempotencyKey string        `json:"idempotencyKey"`
	Lines          []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be an ISO date (YYYY-MM-DD)")
		return
	}
	actor := internalshared.IdentityFromContext(r.Context())
	input := PostingInput{
		Date:          date,
		Memo:          req.Memo,
		ReferenceType: ReferenceManual,
		ReferenceID:   manualRef(req.IdempotencyKey),
		CreatedBy:     actor.UserID,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, PostingLineInput{
			AccountID:   line.AccountID,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
			ProductID:   line.ProductID,
			LocationID:  line.LocationID,
		})
	}
	entry, err := h.service.Post(r.Context(), input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter ListFilter
	if from := q.Get("start"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start must be an ISO date")
			return
		}
		filter.From = t
	}
	if to := q.Get("end"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end must be an ISO date")
			return
		}
		filter.To = t
	}
	if limit := q.Get("limit"); limit != "" {
		filter.Limit, _ = strconv.Atoi(limit)
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrJournalNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrEmptyEntry),
		errors.Is(err, shared.ErrTooFewLines),
		errors.Is(err, shared.ErrAccountNotFound):
		httpx.Problem(w, http.StatusBadRequest, "Business Rule Violation", err.Error())
	default:
		h.logger.Error("journal request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

// manualRef derives a stable reference for a caller-supplied idempotency key
// so a retried manual entry resolves to the first one.
func manualRef(key string) uuid.UUID {
	if key == "" {
		return uuid.New()
	}
	return uuid.NewSHA1(uuid.Nil, []byte("MANUAL:"+key))
}
