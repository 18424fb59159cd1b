package posting

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/glowdesk/glowdesk/internal/inventory"
	ledgershared "github.com/glowdesk/glowdesk/internal/ledger/shared"
	"github.com/glowdesk/glowdesk/internal/platform/httpx"
	internalshared "github.com/glowdesk/glowdesk/internal/shared"
)

var validate = validator.New()

// Handler exposes the document posting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountTransactionRoutes registers the document posting routes.
func (h *Handler) MountTransactionRoutes(r chi.Router) {
	r.Post("/sales-invoices", h.postSalesInvoice)
	r.Post("/purchase-bills", h.postPurchaseBill)
	r.Post("/payments", h.postPayment)
}

// MountMovementRoute registers the stock adjustment route.
func (h *Handler) MountMovementRoute(r chi.Router) {
	r.Post("/movements", h.postAdjustment)
}

type salesItemRequest struct {
	ProductID   int64   `json:"productId" validate:"required"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
}

type salesInvoiceRequest struct {
	Number           string             `json:"number"`
	CustomerName     string             `json:"customerName"`
	LocationID       *int64             `json:"locationId"`
	Date             string             `json:"date" validate:"required"`
	RevenueAccountID *int64             `json:"revenueAccountId"`
	Post             *bool              `json:"post"`
	IdempotencyKey   string             `json:"idempotencyKey"`
	Items            []salesItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) postSalesInvoice(w http.ResponseWriter, r *http.Request) {
	var req salesInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, ok := parseDate(w, req.Date)
	if !ok {
		return
	}
	input := SalesInvoiceInput{
		Number:           req.Number,
		CustomerName:     req.CustomerName,
		LocationID:       req.LocationID,
		Date:             date,
		RevenueAccountID: req.RevenueAccountID,
		Post:             postFlag(req.Post),
		IdempotencyKey:   req.IdempotencyKey,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, SalesItemInput{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	actor := internalshared.IdentityFromContext(r.Context())
	invoice, err := h.service.PostSalesInvoice(r.Context(), actor, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

type purchaseItemRequest struct {
	ProductID   int64   `json:"productId" validate:"required"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitCost    float64 `json:"unitCost" validate:"gte=0"`
}

type purchaseBillRequest struct {
	Number         string                `json:"number"`
	SupplierName   string                `json:"supplierName"`
	Date           string                `json:"date" validate:"required"`
	Post           *bool                 `json:"post"`
	IdempotencyKey string                `json:"idempotencyKey"`
	Items          []purchaseItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) postPurchaseBill(w http.ResponseWriter, r *http.Request) {
	var req purchaseBillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, ok := parseDate(w, req.Date)
	if !ok {
		return
	}
	input := PurchaseBillInput{
		Number:         req.Number,
		SupplierName:   req.SupplierName,
		Date:           date,
		Post:           postFlag(req.Post),
		IdempotencyKey: req.IdempotencyKey,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, PurchaseItemInput{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitCost:    item.UnitCost,
		})
	}
	actor := internalshared.IdentityFromContext(r.Context())
	bill, err := h.service.PostPurchaseBill(r.Context(), actor, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

type paymentRequest struct {
	Direction      string  `json:"direction" validate:"required,oneof=IN OUT"`
	BankAccountID  int64   `json:"bankAccountId" validate:"required"`
	Counterparty   string  `json:"counterparty"`
	Amount         float64 `json:"amount" validate:"gt=0"`
	Date           string  `json:"date" validate:"required"`
	Memo           string  `json:"memo"`
	Post           *bool   `json:"post"`
	IdempotencyKey string  `json:"idempotencyKey"`
}

func (h *Handler) postPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, ok := parseDate(w, req.Date)
	if !ok {
		return
	}
	input := PaymentInput{
		Direction:      PaymentDirection(req.Direction),
		BankAccountID:  req.BankAccountID,
		Counterparty:   req.Counterparty,
		Amount:         req.Amount,
		Date:           date,
		Memo:           req.Memo,
		Post:           postFlag(req.Post),
		IdempotencyKey: req.IdempotencyKey,
	}
	actor := internalshared.IdentityFromContext(r.Context())
	payment, err := h.service.PostPayment(r.Context(), actor, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

type adjustmentRequest struct {
	ProductID      int64    `json:"productId" validate:"required"`
	LocationID     *int64   `json:"locationId"`
	Quantity       float64  `json:"quantity" validate:"required"`
	CostPerUnit    *float64 `json:"costPerUnit"`
	Date           string   `json:"date" validate:"required"`
	Memo           string   `json:"memo"`
	IdempotencyKey string   `json:"idempotencyKey"`
}

func (h *Handler) postAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, ok := parseDate(w, req.Date)
	if !ok {
		return
	}
	input := AdjustmentInput{
		ProductID:      req.ProductID,
		LocationID:     req.LocationID,
		Quantity:       req.Quantity,
		CostPerUnit:    req.CostPerUnit,
		Date:           date,
		Memo:           req.Memo,
		IdempotencyKey: req.IdempotencyKey,
	}
	actor := internalshared.IdentityFromContext(r.Context())
	movement, err := h.service.PostAdjustment(r.Context(), actor, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrKeyClaimed):
		httpx.Problem(w, http.StatusConflict, "Conflict", "request with this idempotency key is already in flight")
	case errors.Is(err, ledgershared.ErrInvalidInput),
		errors.Is(err, ledgershared.ErrUnbalanced),
		errors.Is(err, ledgershared.ErrEmptyEntry),
		errors.Is(err, ledgershared.ErrTooFewLines),
		errors.Is(err, ledgershared.ErrAccountNotFound),
		errors.Is(err, ledgershared.ErrMappingNotFound),
		errors.Is(err, inventory.ErrProductNotFound):
		httpx.Problem(w, http.StatusBadRequest, "Business Rule Violation", err.Error())
	default:
		h.logger.Error("document posting failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be an ISO date (YYYY-MM-DD)")
		return time.Time{}, false
	}
	return date, true
}

func postFlag(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
