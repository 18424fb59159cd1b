package banking

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/glowdesk/glowdesk/internal/ledger/shared"
	"github.com/glowdesk/glowdesk/internal/platform/httpx"
	internalshared "github.com/glowdesk/glowdesk/internal/shared"
)

var validate = validator.New()

// Handler exposes the bank reconciliation endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers banking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/reconcile", h.reconcile)
	r.Get("/unreconciled", h.unreconciled)
}

type reconcileRequest struct {
	BankAccountID int64   `json:"bankAccountId" validate:"required"`
	StatementDate string  `json:"statementDate" validate:"required"`
	EndingBalance float64 `json:"endingBalance"`
	PaymentIDs    []int64 `json:"paymentIds" validate:"required,min=1"`
	Notes         string  `json:"notes"`
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	statementDate, err := time.Parse("2006-01-02", req.StatementDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "statementDate must be an ISO date (YYYY-MM-DD)")
		return
	}
	actor := internalshared.IdentityFromContext(r.Context())
	rec, err := h.service.Reconcile(r.Context(), actor, ReconcileInput{
		BankAccountID: req.BankAccountID,
		StatementDate: statementDate,
		EndingBalance: req.EndingBalance,
		PaymentIDs:    req.PaymentIDs,
		Notes:         req.Notes,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) unreconciled(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("bankAccountId")
	bankAccountID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || bankAccountID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bankAccountId is required")
		return
	}
	payments, err := h.service.Unreconciled(r.Context(), bankAccountID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, ErrPaymentNotReconcilable):
		httpx.Problem(w, http.StatusBadRequest, "Business Rule Violation", err.Error())
	default:
		h.logger.Error("reconciliation failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
