package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/credit"
	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes the sales order workflow over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the orders handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/submit", h.handleSubmit)
	r.Post("/{id}/cancel", h.handleCancel)
	r.Post("/{id}/transition", h.handleTransition)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSalesOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ProblemKind(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", "invalid JSON body")
		return
	}
	order, err := h.service.Create(r.Context(), req, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, err := strconv.ParseInt(q.Get("company_id"), 10, 64)
	if err != nil {
		httpx.ProblemKind(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", "company_id is required")
		return
	}
	req := ListSalesOrdersRequest{CompanyID: companyID}
	if v := q.Get("customer_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.CustomerID = &id
		}
	}
	if v := q.Get("status"); v != "" {
		status := Status(v)
		req.Status = &status
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		req.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		req.Offset = v
	}
	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Submit(r.Context(), id, actorID(r))
	if err != nil {
		h.logger.Warn("order submit failed", slog.Int64("order_id", id), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Cancel(r.Context(), id, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ProblemKind(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", "invalid JSON body")
		return
	}
	order, err := h.service.Transition(r.Context(), id, req.Action, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.ProblemKind(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", "invalid order id")
		return 0, false
	}
	return id, true
}

// actorID reads the acting user from the X-Actor-ID header. Zero when
// absent; authentication sits in front of this service.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	var creditErr *credit.LimitExceededError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.ProblemKind(w, http.StatusNotFound, httpx.KindNotFound, "Not Found", "sales order not found")
	case errors.Is(err, ErrValidation):
		httpx.ProblemKind(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.ProblemKind(w, http.StatusConflict, httpx.KindInvalidTransition, "Invalid Transition", err.Error())
	case errors.As(err, &insufficient):
		httpx.ProblemKind(w, http.StatusUnprocessableEntity, httpx.KindInsufficientStock, "Insufficient Stock", insufficient.Error())
	case errors.As(err, &creditErr):
		httpx.ProblemKind(w, http.StatusUnprocessableEntity, httpx.KindCreditLimitExceeded, "Credit Limit Exceeded", creditErr.Error())
	case errors.Is(err, numbering.ErrAllocationConflict):
		httpx.ProblemKind(w, http.StatusConflict, httpx.KindAllocationConflict, "Allocation Conflict", "document number allocation conflicted, retry the request")
	default:
		h.logger.Error("orders request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
