package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists sales orders and their items.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*SalesOrder, error)
	GetByDocNumber(ctx context.Context, docNumber string) (*SalesOrder, error)
	// GetForUpdate locks the order row; meaningful only inside WithTx.
	GetForUpdate(ctx context.Context, id int64) (*SalesOrder, error)
	List(ctx context.Context, req ListSalesOrdersRequest) ([]SalesOrder, int, error)
	Create(ctx context.Context, order SalesOrder) (int64, error)
	InsertItem(ctx context.Context, item SalesOrderItem) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status, docstatus int16, statusBeforeClose *Status) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const orderColumns = `id, doc_number, company_id, customer_id, currency, status, docstatus,
	status_before_close, net_total, tax_total, grand_total, notes, created_by,
	submitted_at, cancelled_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*SalesOrder, error) {
	return r.getWhere(ctx, "id = $1", id, false)
}

func (r *repository) GetByDocNumber(ctx context.Context, docNumber string) (*SalesOrder, error) {
	return r.getWhere(ctx, "doc_number = $1", docNumber, false)
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*SalesOrder, error) {
	return r.getWhere(ctx, "id = $1", id, true)
}

func (r *repository) getWhere(ctx context.Context, where string, arg any, lock bool) (*SalesOrder, error) {
	query := fmt.Sprintf("SELECT %s FROM sales_orders WHERE %s", orderColumns, where)
	if lock {
		query += " FOR UPDATE"
	}
	var o SalesOrder
	var statusBeforeClose *string
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&o.ID, &o.DocNumber, &o.CompanyID, &o.CustomerID, &o.Currency, &o.Status, &o.DocStatus,
		&statusBeforeClose, &o.NetTotal, &o.TaxTotal, &o.GrandTotal, &o.Notes, &o.CreatedBy,
		&o.SubmittedAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if statusBeforeClose != nil {
		s := Status(*statusBeforeClose)
		o.StatusBeforeClose = &s
	}
	items, err := r.listItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *repository) listItems(ctx context.Context, orderID int64) ([]SalesOrderItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, sales_order_id, item_code, description, warehouse, qty, rate, amount, tax_percent, idx
FROM sales_order_items WHERE sales_order_id = $1 ORDER BY idx ASC, id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SalesOrderItem
	for rows.Next() {
		var it SalesOrderItem
		if err := rows.Scan(&it.ID, &it.SalesOrderID, &it.ItemCode, &it.Description, &it.Warehouse,
			&it.Qty, &it.Rate, &it.Amount, &it.TaxPercent, &it.Idx); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListSalesOrdersRequest) ([]SalesOrder, int, error) {
	conditions := []string{"company_id = $1"}
	args := []interface{}{req.CompanyID}
	argPos := 2

	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sales_orders %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM sales_orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []SalesOrder
	for rows.Next() {
		var o SalesOrder
		var statusBeforeClose *string
		if err := rows.Scan(
			&o.ID, &o.DocNumber, &o.CompanyID, &o.CustomerID, &o.Currency, &o.Status, &o.DocStatus,
			&statusBeforeClose, &o.NetTotal, &o.TaxTotal, &o.GrandTotal, &o.Notes, &o.CreatedBy,
			&o.SubmittedAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		if statusBeforeClose != nil {
			s := Status(*statusBeforeClose)
			o.StatusBeforeClose = &s
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, o SalesOrder) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO sales_orders
(doc_number, company_id, customer_id, currency, status, docstatus, net_total, tax_total, grand_total, notes, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())
RETURNING id`,
		o.DocNumber, o.CompanyID, o.CustomerID, o.Currency, o.Status, o.DocStatus,
		o.NetTotal, o.TaxTotal, o.GrandTotal, o.Notes, o.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) InsertItem(ctx context.Context, it SalesOrderItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO sales_order_items
(sales_order_id, item_code, description, warehouse, qty, rate, amount, tax_percent, idx)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id`,
		it.SalesOrderID, it.ItemCode, it.Description, it.Warehouse, it.Qty, it.Rate, it.Amount, it.TaxPercent, it.Idx).Scan(&id)
	return id, err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status, docstatus int16, statusBeforeClose *Status) error {
	var submittedAt, cancelledAt *time.Time
	now := time.Now()
	if docstatus == DocStatusSubmitted && status == StatusToDeliverAndBill {
		submittedAt = &now
	}
	if status == StatusCancelled {
		cancelledAt = &now
	}
	tag, err := r.db.Exec(ctx, `UPDATE sales_orders SET
	status = $2,
	docstatus = $3,
	status_before_close = $4,
	submitted_at = COALESCE($5, submitted_at),
	cancelled_at = COALESCE($6, cancelled_at),
	updated_at = NOW()
WHERE id = $1`, id, status, docstatus, statusBeforeClose, submittedAt, cancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
