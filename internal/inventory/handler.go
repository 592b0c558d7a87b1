package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the stock ledger over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/availability", h.handleAvailability)
	r.Get("/balance", h.handleBalance)
	r.Get("/ledger", h.handleLedger)
	r.Post("/movements", h.handleMovement)
}

type movementRequest struct {
	ItemCode      string  `json:"item_code" validate:"required,max=140"`
	FromWarehouse string  `json:"from_warehouse,omitempty"`
	ToWarehouse   string  `json:"to_warehouse,omitempty"`
	Qty           float64 `json:"qty" validate:"required,gt=0"`
	ValuationRate float64 `json:"valuation_rate" validate:"gte=0"`
	VoucherRef    string  `json:"voucher_ref,omitempty"`
	Note          string  `json:"note,omitempty"`
	AllowNegative bool    `json:"allow_negative,omitempty"`
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemCode := q.Get("item_code")
	warehouse := q.Get("warehouse")
	qty, err := strconv.ParseFloat(q.Get("qty"), 64)
	if itemCode == "" || warehouse == "" || err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item_code, warehouse and qty are required")
		return
	}
	available, err := h.service.CheckAvailability(r.Context(), itemCode, warehouse, qty)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"item_code": itemCode,
		"warehouse": warehouse,
		"qty":       qty,
		"available": available,
	})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemCode := q.Get("item_code")
	warehouse := q.Get("warehouse")
	if itemCode == "" || warehouse == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item_code and warehouse are required")
		return
	}
	balance, err := h.service.Balance(r.Context(), itemCode, warehouse)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"item_code": itemCode,
		"warehouse": warehouse,
		"balance":   balance,
	})
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := LedgerFilter{
		ItemCode:  q.Get("item_code"),
		Warehouse: q.Get("warehouse"),
	}
	if filter.ItemCode == "" || filter.Warehouse == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item_code and warehouse are required")
		return
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	entries, err := h.service.Ledger(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entries, err := h.service.PostMovement(r.Context(), Movement{
		ItemCode:      req.ItemCode,
		FromWarehouse: req.FromWarehouse,
		ToWarehouse:   req.ToWarehouse,
		Qty:           req.Qty,
		ValuationRate: req.ValuationRate,
		VoucherRef:    req.VoucherRef,
		Note:          req.Note,
		ActorID:       actorID(r),
		AllowNegative: req.AllowNegative,
	})
	if err != nil {
		h.logger.Warn("post movement failed", slog.String("item_code", req.ItemCode), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"entries": entries})
}

// actorID reads the acting user from the X-Actor-ID header. Zero when
// absent; authentication sits in front of this service.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.ProblemKind(w, http.StatusUnprocessableEntity, httpx.KindInsufficientStock, "Insufficient Stock", insufficient.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidValuation), errors.Is(err, ErrInvalidMovement):
		httpx.ProblemKind(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error("inventory request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
