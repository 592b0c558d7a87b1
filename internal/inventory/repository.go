package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the stock ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used while posting.
type TxRepository interface {
	// GetBalanceForUpdate reads the current balance under a row lock,
	// returning 0 for an unseen (item, warehouse) pair.
	GetBalanceForUpdate(ctx context.Context, itemCode, warehouse string) (float64, error)
	InsertEntry(ctx context.Context, entry LedgerEntry) (int64, error)
	UpsertBalance(ctx context.Context, itemCode, warehouse string, qty float64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetBalance reads the current balance outside any lock scope.
func (r *Repository) GetBalance(ctx context.Context, itemCode, warehouse string) (float64, error) {
	if r == nil {
		return 0, errors.New("inventory repository not initialised")
	}
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT qty FROM stock_balances WHERE item_code=$1 AND warehouse=$2`,
		itemCode, warehouse).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

// ListEntries returns ledger entries in posting order.
func (r *Repository) ListEntries(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	if r == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, item_code, warehouse, posted_at, voucher_ref, qty, valuation_rate, balance_qty
FROM stock_ledger_entries
WHERE item_code=$1 AND warehouse=$2 AND posted_at BETWEEN COALESCE($3, '-infinity') AND COALESCE($4, 'infinity')
ORDER BY posted_at ASC, id ASC
LIMIT $5`, filter.ItemCode, filter.Warehouse, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []LedgerEntry{}
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.ItemCode, &e.Warehouse, &e.PostedAt, &e.VoucherRef, &e.Qty, &e.ValuationRate, &e.BalanceQty); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *txRepository) GetBalanceForUpdate(ctx context.Context, itemCode, warehouse string) (float64, error) {
	var qty float64
	err := r.tx.QueryRow(ctx, `SELECT qty FROM stock_balances WHERE item_code=$1 AND warehouse=$2 FOR UPDATE`,
		itemCode, warehouse).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_ledger_entries (item_code, warehouse, posted_at, voucher_ref, qty, valuation_rate, balance_qty)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		entry.ItemCode, entry.Warehouse, entry.PostedAt, entry.VoucherRef, entry.Qty, entry.ValuationRate, entry.BalanceQty).Scan(&id)
	return id, err
}

func (r *txRepository) UpsertBalance(ctx context.Context, itemCode, warehouse string, qty float64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_balances (item_code, warehouse, qty, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (item_code, warehouse) DO UPDATE SET qty=EXCLUDED.qty, updated_at=NOW()`,
		itemCode, warehouse, qty)
	return err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
