package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/credit"
	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// NumberAllocator issues document numbers for new orders.
type NumberAllocator interface {
	Allocate(ctx context.Context, prefix string, year int) (string, error)
}

// StockChecker answers availability questions. Read-only.
type StockChecker interface {
	CheckAvailability(ctx context.Context, itemCode, warehouse string, qty float64) (bool, error)
}

// CreditGate decides whether a prospective order total may proceed.
type CreditGate interface {
	Validate(ctx context.Context, customerID, companyID int64, prospective float64) error
}

// AuditPort records workflow activity.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the order workflow engine. All checks in Submit run before any
// write; a failed submit leaves the order untouched.
type Service struct {
	repo     Repository
	numbers  NumberAllocator
	stock    StockChecker
	credit   CreditGate
	audit    AuditPort
	metrics  *observability.Metrics
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds the engine.
func NewService(repo Repository, numbers NumberAllocator, stock StockChecker, credit CreditGate, audit AuditPort, metrics *observability.Metrics) *Service {
	return &Service{
		repo:     repo,
		numbers:  numbers,
		stock:    stock,
		credit:   credit,
		audit:    audit,
		metrics:  metrics,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Create allocates a document number, computes totals and persists the
// order as a draft.
func (s *Service) Create(ctx context.Context, req CreateSalesOrderRequest, createdBy int64) (*SalesOrder, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	docNumber, err := s.numbers.Allocate(ctx, "SO", s.now().Year())
	if err != nil {
		if errors.Is(err, numbering.ErrAllocationConflict) && s.metrics != nil {
			s.metrics.AllocationConflict()
		}
		return nil, fmt.Errorf("allocate doc number: %w", err)
	}

	var netTotal, taxTotal float64
	for _, item := range req.Items {
		amount, tax := CalculateLineAmounts(item.Qty, item.Rate, item.TaxPercent)
		netTotal += amount
		taxTotal += tax
	}

	order := SalesOrder{
		DocNumber:  docNumber,
		CompanyID:  req.CompanyID,
		CustomerID: req.CustomerID,
		Currency:   req.Currency,
		Status:     StatusDraft,
		DocStatus:  DocStatusDraft,
		NetTotal:   netTotal,
		TaxTotal:   taxTotal,
		GrandTotal: netTotal + taxTotal,
		Notes:      req.Notes,
		CreatedBy:  createdBy,
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		id, err := tx.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderID = id
		for i, itemReq := range req.Items {
			amount, _ := CalculateLineAmounts(itemReq.Qty, itemReq.Rate, itemReq.TaxPercent)
			item := SalesOrderItem{
				SalesOrderID: orderID,
				ItemCode:     itemReq.ItemCode,
				Description:  itemReq.Description,
				Warehouse:    itemReq.Warehouse,
				Qty:          itemReq.Qty,
				Rate:         itemReq.Rate,
				Amount:       amount,
				TaxPercent:   itemReq.TaxPercent,
				Idx:          i + 1,
			}
			if _, err := tx.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, createdBy, "orders:create", docNumber, map[string]any{
		"company_id":  req.CompanyID,
		"customer_id": req.CustomerID,
		"grand_total": order.GrandTotal,
	})
	return s.repo.Get(ctx, orderID)
}

// Submit runs the availability and credit checks and flips the order to
// submitted, all inside one transaction. The order row is locked first so a
// racing submit either blocks or observes docstatus=1 and fails.
func (s *Service) Submit(ctx context.Context, id int64, actorID int64) (*SalesOrder, error) {
	var docNumber string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusDraft || order.DocStatus != DocStatusDraft {
			return fmt.Errorf("%w: submit requires %s, order %s is %s", ErrInvalidTransition, StatusDraft, order.DocNumber, order.Status)
		}

		// Every item is checked before any write. Stock is checked, not
		// reserved; the ledger is posted at delivery time.
		for _, item := range order.Items {
			ok, err := s.stock.CheckAvailability(ctx, item.ItemCode, item.Warehouse, item.Qty)
			if err != nil {
				return fmt.Errorf("check availability for %s: %w", item.ItemCode, err)
			}
			if !ok {
				return &InsufficientStockError{ItemCode: item.ItemCode, Warehouse: item.Warehouse, Qty: item.Qty}
			}
		}

		if err := s.credit.Validate(ctx, order.CustomerID, order.CompanyID, order.GrandTotal); err != nil {
			return err
		}

		docNumber = order.DocNumber
		return tx.UpdateStatus(ctx, id, StatusToDeliverAndBill, DocStatusSubmitted, nil)
	})
	if err != nil {
		if errors.Is(err, credit.ErrCreditLimitExceeded) && s.metrics != nil {
			s.metrics.CreditDenied()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrderSubmitted()
	}
	s.recordAudit(ctx, actorID, "orders:submit", docNumber, nil)
	return s.repo.Get(ctx, id)
}

// Cancel is allowed from any non-cancelled state. Already-posted ledger
// entries are not reversed; reversal is the caller's decision via an
// explicit offsetting posting.
func (s *Service) Cancel(ctx context.Context, id int64, actorID int64) (*SalesOrder, error) {
	var docNumber string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, ok := NextStatus(order.Status, ActionCancel)
		if !ok {
			return fmt.Errorf("%w: order %s is already cancelled", ErrInvalidTransition, order.DocNumber)
		}
		docNumber = order.DocNumber
		return tx.UpdateStatus(ctx, id, next, DocStatusCancelled, nil)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "orders:cancel", docNumber, nil)
	return s.repo.Get(ctx, id)
}

// Transition applies a workflow action. The table check happens before any
// side effect. Submit and Cancel delegate to their dedicated paths so their
// extra semantics hold for either entry point.
func (s *Service) Transition(ctx context.Context, id int64, action Action, actorID int64) (*SalesOrder, error) {
	if !ValidAction(action) {
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
	switch action {
	case ActionSubmit:
		return s.Submit(ctx, id, actorID)
	case ActionCancel:
		return s.Cancel(ctx, id, actorID)
	}

	var docNumber string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, ok := NextStatus(order.Status, action)
		if !ok {
			return fmt.Errorf("%w: %s not permitted from %s", ErrInvalidTransition, action, order.Status)
		}

		var statusBeforeClose *Status
		switch action {
		case ActionClose:
			prev := order.Status
			statusBeforeClose = &prev
		case ActionReopen:
			// Reopening restores the status recorded when the order was
			// closed.
			next = StatusCompleted
			if order.StatusBeforeClose != nil {
				next = *order.StatusBeforeClose
			}
		}

		docNumber = order.DocNumber
		return tx.UpdateStatus(ctx, id, next, DocStatusFor(next), statusBeforeClose)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, fmt.Sprintf("orders:%s", action), docNumber, nil)
	return s.repo.Get(ctx, id)
}

// Get loads one order with its items.
func (s *Service) Get(ctx context.Context, id int64) (*SalesOrder, error) {
	return s.repo.Get(ctx, id)
}

// List pages through orders for a company.
func (s *Service) List(ctx context.Context, req ListSalesOrdersRequest) ([]SalesOrder, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.List(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, docNumber string, meta map[string]any) {
	if s.audit == nil || docNumber == "" {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sales_order",
		EntityID: docNumber,
		Meta:     meta,
	})
}
