package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Tolerance applied when comparing float balances.
const balanceEpsilon = 1e-6

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBalance(ctx context.Context, itemCode, warehouse string) (float64, error)
	ListEntries(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error)
}

// AuditPort records posting activity.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
	Logger             *slog.Logger
}

// Service posts stock movements and answers balance queries. Running
// balances are always derived from the prior ledger state inside one
// transaction, never computed independently.
type Service struct {
	repo        RepositoryPort
	cache       *BalanceCache
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	metrics     *observability.Metrics
	logger      *slog.Logger
	allowNeg    bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, cache *BalanceCache, audit AuditPort, idem *shared.IdempotencyStore, metrics *observability.Metrics, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		cache:       cache,
		audit:       audit,
		idempotency: idem,
		metrics:     metrics,
		logger:      logger,
		allowNeg:    cfg.AllowNegativeStock,
	}
}

// Balance returns the current running balance for (item, warehouse).
func (s *Service) Balance(ctx context.Context, itemCode, warehouse string) (float64, error) {
	if itemCode == "" || warehouse == "" {
		return 0, errors.New("inventory: item code and warehouse required")
	}
	if s.cache != nil {
		return s.cache.Get(ctx, itemCode, warehouse, func(ctx context.Context) (float64, error) {
			return s.repo.GetBalance(ctx, itemCode, warehouse)
		})
	}
	return s.repo.GetBalance(ctx, itemCode, warehouse)
}

// CheckAvailability reports whether the balance covers qty. Read-only.
func (s *Service) CheckAvailability(ctx context.Context, itemCode, warehouse string, qty float64) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}
	balance, err := s.Balance(ctx, itemCode, warehouse)
	if err != nil {
		return false, err
	}
	return balance+balanceEpsilon >= qty, nil
}

// Ledger lists posted entries for one (item, warehouse) pair.
func (s *Service) Ledger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	if filter.ItemCode == "" || filter.Warehouse == "" {
		return nil, errors.New("inventory: item code and warehouse required")
	}
	return s.repo.ListEntries(ctx, filter)
}

// PostMovement appends balanced ledger entries for the movement: two for a
// warehouse-to-warehouse transfer (negative at source, positive at
// destination), one for a pure issue or receipt. Nothing is written when any
// leg fails its balance check.
func (s *Service) PostMovement(ctx context.Context, m Movement) ([]LedgerEntry, error) {
	if m.ItemCode == "" {
		return nil, errors.New("inventory: item code required")
	}
	if m.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if m.ValuationRate < 0 {
		return nil, ErrInvalidValuation
	}
	if m.FromWarehouse == "" && m.ToWarehouse == "" {
		return nil, ErrInvalidMovement
	}
	if m.FromWarehouse != "" && m.FromWarehouse == m.ToWarehouse {
		return nil, errors.New("inventory: source and destination warehouse must differ")
	}

	voucherRef := m.VoucherRef
	if voucherRef == "" {
		voucherRef = fmt.Sprintf("MV-%s", uuid.NewString())
	}

	type leg struct {
		warehouse string
		delta     float64
	}
	var legs []leg
	// Outgoing leg is checked first so a rejected transfer writes nothing.
	if m.FromWarehouse != "" {
		legs = append(legs, leg{warehouse: m.FromWarehouse, delta: -m.Qty})
	}
	if m.ToWarehouse != "" {
		legs = append(legs, leg{warehouse: m.ToWarehouse, delta: m.Qty})
	}

	insertedKey := ""
	if s.idempotency != nil && m.VoucherRef != "" {
		key := fmt.Sprintf("%s:%s:%s:%s", voucherRef, m.ItemCode, m.FromWarehouse, m.ToWarehouse)
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return nil, err
		}
		insertedKey = key
	}

	now := time.Now().UTC()
	var posted []LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, l := range legs {
			balance, err := tx.GetBalanceForUpdate(ctx, m.ItemCode, l.warehouse)
			if err != nil {
				return err
			}
			newBalance := balance + l.delta
			if l.delta < 0 && newBalance < -balanceEpsilon && !s.allowNeg && !m.AllowNegative {
				return &InsufficientStockError{
					ItemCode:  m.ItemCode,
					Warehouse: l.warehouse,
					Requested: -l.delta,
					Available: balance,
				}
			}
			entry := LedgerEntry{
				ItemCode:      m.ItemCode,
				Warehouse:     l.warehouse,
				PostedAt:      now,
				VoucherRef:    voucherRef,
				Qty:           l.delta,
				ValuationRate: m.ValuationRate,
				BalanceQty:    newBalance,
			}
			id, err := tx.InsertEntry(ctx, entry)
			if err != nil {
				return err
			}
			entry.ID = id
			if err := tx.UpsertBalance(ctx, m.ItemCode, l.warehouse, newBalance); err != nil {
				return err
			}
			posted = append(posted, entry)
		}
		return nil
	})
	if err != nil {
		if insertedKey != "" {
			_ = s.idempotency.Delete(ctx, insertedKey)
		}
		return nil, err
	}

	if s.cache != nil {
		for _, l := range legs {
			// A failed invalidation leaves a stale balance until the TTL
			// expires; make the drift visible.
			if err := s.cache.Invalidate(ctx, m.ItemCode, l.warehouse); err != nil {
				s.logger.Warn("invalidate balance cache",
					slog.String("item_code", m.ItemCode),
					slog.String("warehouse", l.warehouse),
					slog.Any("error", err))
			}
		}
	}
	if s.metrics != nil {
		s.metrics.StockMovementPosted(len(posted))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  m.ActorID,
			Action:   "inventory:post_movement",
			Entity:   "stock_ledger_entry",
			EntityID: voucherRef,
			Meta: map[string]any{
				"item_code":      m.ItemCode,
				"from_warehouse": m.FromWarehouse,
				"to_warehouse":   m.ToWarehouse,
				"qty":            m.Qty,
				"note":           m.Note,
			},
		})
	}
	return posted, nil
}
