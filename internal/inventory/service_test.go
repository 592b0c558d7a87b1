package inventory

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// memoryLedger implements RepositoryPort and TxRepository against maps so
// the posting semantics can be exercised without PostgreSQL.
type memoryLedger struct {
	mu       sync.Mutex
	nextID   int64
	entries  []LedgerEntry
	balances map[string]float64
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{balances: make(map[string]float64)}
}

func pairKey(itemCode, warehouse string) string {
	return itemCode + "/" + warehouse
}

func (m *memoryLedger) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := memoryLedger{
		nextID:   m.nextID,
		entries:  append([]LedgerEntry(nil), m.entries...),
		balances: make(map[string]float64, len(m.balances)),
	}
	for k, v := range m.balances {
		snapshot.balances[k] = v
	}
	if err := fn(ctx, &snapshot); err != nil {
		return err
	}
	m.nextID = snapshot.nextID
	m.entries = snapshot.entries
	m.balances = snapshot.balances
	return nil
}

func (m *memoryLedger) GetBalance(ctx context.Context, itemCode, warehouse string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[pairKey(itemCode, warehouse)], nil
}

func (m *memoryLedger) ListEntries(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LedgerEntry
	for _, e := range m.entries {
		if e.ItemCode == filter.ItemCode && e.Warehouse == filter.Warehouse {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryLedger) GetBalanceForUpdate(ctx context.Context, itemCode, warehouse string) (float64, error) {
	return m.balances[pairKey(itemCode, warehouse)], nil
}

func (m *memoryLedger) InsertEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	m.nextID++
	entry.ID = m.nextID
	m.entries = append(m.entries, entry)
	return entry.ID, nil
}

func (m *memoryLedger) UpsertBalance(ctx context.Context, itemCode, warehouse string, qty float64) error {
	m.balances[pairKey(itemCode, warehouse)] = qty
	return nil
}

// ledgerSum recomputes the balance from the full entry history.
func (m *memoryLedger) ledgerSum(itemCode, warehouse string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	for _, e := range m.entries {
		if e.ItemCode == itemCode && e.Warehouse == warehouse {
			sum += e.Qty
		}
	}
	return sum
}

func newLedgerService(repo RepositoryPort, cfg ServiceConfig) *Service {
	return NewService(repo, nil, nil, nil, nil, cfg)
}

func TestPostReceiptThenIssue(t *testing.T) {
	repo := newMemoryLedger()
	svc := newLedgerService(repo, ServiceConfig{})
	ctx := context.Background()

	entries, err := svc.PostMovement(ctx, Movement{
		ItemCode: "BOLT-M8", ToWarehouse: "MAIN", Qty: 100, ValuationRate: 0.12, VoucherRef: "PR-001",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.InDelta(t, 100.0, entries[0].BalanceQty, 1e-9)

	entries, err = svc.PostMovement(ctx, Movement{
		ItemCode: "BOLT-M8", FromWarehouse: "MAIN", Qty: 30, VoucherRef: "DN-001",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.InDelta(t, -30.0, entries[0].Qty, 1e-9)
	require.InDelta(t, 70.0, entries[0].BalanceQty, 1e-9)

	balance, err := svc.Balance(ctx, "BOLT-M8", "MAIN")
	require.NoError(t, err)
	require.InDelta(t, 70.0, balance, 1e-9)
	require.InDelta(t, balance, repo.ledgerSum("BOLT-M8", "MAIN"), 1e-9)
}

func TestPostTransferWritesBothLegs(t *testing.T) {
	repo := newMemoryLedger()
	svc := newLedgerService(repo, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, Movement{ItemCode: "BOLT-M8", ToWarehouse: "MAIN", Qty: 50, VoucherRef: "PR-001"})
	require.NoError(t, err)

	entries, err := svc.PostMovement(ctx, Movement{
		ItemCode: "BOLT-M8", FromWarehouse: "MAIN", ToWarehouse: "STORE-2", Qty: 20, VoucherRef: "TR-001",
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.InDelta(t, -20.0, entries[0].Qty, 1e-9)
	require.Equal(t, "MAIN", entries[0].Warehouse)
	require.InDelta(t, 20.0, entries[1].Qty, 1e-9)
	require.Equal(t, "STORE-2", entries[1].Warehouse)
	// Transfer legs sum to zero; total stock is conserved.
	require.InDelta(t, 0.0, entries[0].Qty+entries[1].Qty, 1e-9)
	require.Equal(t, entries[0].VoucherRef, entries[1].VoucherRef)

	main, _ := svc.Balance(ctx, "BOLT-M8", "MAIN")
	store, _ := svc.Balance(ctx, "BOLT-M8", "STORE-2")
	require.InDelta(t, 30.0, main, 1e-9)
	require.InDelta(t, 20.0, store, 1e-9)
}

func TestPostRejectedMovementWritesNothing(t *testing.T) {
	repo := newMemoryLedger()
	svc := newLedgerService(repo, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, Movement{ItemCode: "BOLT-M8", ToWarehouse: "MAIN", Qty: 10, VoucherRef: "PR-001"})
	require.NoError(t, err)

	// Transfer of more than the source holds fails on the outgoing leg
	// before the incoming leg is considered.
	_, err = svc.PostMovement(ctx, Movement{
		ItemCode: "BOLT-M8", FromWarehouse: "MAIN", ToWarehouse: "STORE-2", Qty: 25, VoucherRef: "TR-001",
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "MAIN", stockErr.Warehouse)
	require.InDelta(t, 25.0, stockErr.Requested, 1e-9)
	require.InDelta(t, 10.0, stockErr.Available, 1e-9)

	main, _ := svc.Balance(ctx, "BOLT-M8", "MAIN")
	store, _ := svc.Balance(ctx, "BOLT-M8", "STORE-2")
	require.InDelta(t, 10.0, main, 1e-9)
	require.Zero(t, store)

	entries, err := svc.Ledger(ctx, LedgerFilter{ItemCode: "BOLT-M8", Warehouse: "STORE-2"})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPostAllowNegativeConfig(t *testing.T) {
	repo := newMemoryLedger()
	svc := newLedgerService(repo, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()

	entries, err := svc.PostMovement(ctx, Movement{ItemCode: "BOLT-M8", FromWarehouse: "MAIN", Qty: 5, VoucherRef: "DN-001"})
	require.NoError(t, err)
	require.InDelta(t, -5.0, entries[0].BalanceQty, 1e-9)
}

func TestPostAllowNegativePerMovement(t *testing.T) {
	repo := newMemoryLedger()
	svc := newLedgerService(repo, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, Movement{ItemCode: "BOLT-M8", FromWarehouse: "MAIN", Qty: 5, VoucherRef: "DN-001"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, err = svc.PostMovement(ctx, Movement{ItemCode: "BOLT-M8", FromWarehouse: "MAIN", Qty: 5, VoucherRef: "DN-002", AllowNegative: true})
	require.NoError(t, err)
}

func TestPostMovementValidation(t *testing.T) {
	svc := newLedgerService(newMemoryLedger(), ServiceConfig{})
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, Movement{ItemCode: "X", ToWarehouse: "MAIN", Qty: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PostMovement(ctx, Movement{ItemCode: "X", ToWarehouse: "MAIN", Qty: -2})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PostMovement(ctx, Movement{ItemCode: "X", ToWarehouse: "MAIN", Qty: 1, ValuationRate: -1})
	require.ErrorIs(t, err, ErrInvalidValuation)

	_, err = svc.PostMovement(ctx, Movement{ItemCode: "X", Qty: 1})
	require.ErrorIs(t, err, ErrInvalidMovement)

	_, err = svc.PostMovement(ctx, Movement{ItemCode: "X", FromWarehouse: "MAIN", ToWarehouse: "MAIN", Qty: 1})
	require.Error(t, err)
}

func TestPostMovementGeneratesVoucherWhenAbsent(t *testing.T) {
	svc := newLedgerService(newMemoryLedger(), ServiceConfig{})

	entries, err := svc.PostMovement(context.Background(), Movement{ItemCode: "BOLT-M8", ToWarehouse: "MAIN", Qty: 1})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(entries[0].VoucherRef, "MV-"))
}

func TestCheckAvailability(t *testing.T) {
	repo := newMemoryLedger()
	svc := newLedgerService(repo, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, Movement{ItemCode: "BOLT-M8", ToWarehouse: "MAIN", Qty: 10, VoucherRef: "PR-001"})
	require.NoError(t, err)

	ok, err := svc.CheckAvailability(ctx, "BOLT-M8", "MAIN", 10)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.CheckAvailability(ctx, "BOLT-M8", "MAIN", 10.5)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.CheckAvailability(ctx, "NEVER-SEEN", "MAIN", 1)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.CheckAvailability(ctx, "BOLT-M8", "MAIN", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRunningBalanceMatchesHistory(t *testing.T) {
	repo := newMemoryLedger()
	svc := newLedgerService(repo, ServiceConfig{})
	ctx := context.Background()

	moves := []Movement{
		{ItemCode: "BOLT-M8", ToWarehouse: "MAIN", Qty: 40, VoucherRef: "PR-001"},
		{ItemCode: "BOLT-M8", FromWarehouse: "MAIN", Qty: 15, VoucherRef: "DN-001"},
		{ItemCode: "BOLT-M8", ToWarehouse: "MAIN", Qty: 5, VoucherRef: "PR-002"},
		{ItemCode: "BOLT-M8", FromWarehouse: "MAIN", ToWarehouse: "STORE-2", Qty: 10, VoucherRef: "TR-001"},
	}
	for _, m := range moves {
		_, err := svc.PostMovement(ctx, m)
		require.NoError(t, err)
	}

	entries, err := svc.Ledger(ctx, LedgerFilter{ItemCode: "BOLT-M8", Warehouse: "MAIN"})
	require.NoError(t, err)
	var running float64
	for _, e := range entries {
		running += e.Qty
		require.InDelta(t, running, e.BalanceQty, 1e-9)
	}

	balance, err := svc.Balance(ctx, "BOLT-M8", "MAIN")
	require.NoError(t, err)
	require.InDelta(t, running, balance, 1e-9)
	require.InDelta(t, 20.0, balance, 1e-9)
}
