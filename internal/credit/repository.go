package credit

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads credit limits and invoice balances from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetLimit returns the configured limit or nil when absent.
func (r *Repository) GetLimit(ctx context.Context, customerID, companyID int64) (*Limit, error) {
	if r == nil {
		return nil, errors.New("credit repository not initialised")
	}
	var l Limit
	err := r.pool.QueryRow(ctx, `SELECT customer_id, company_id, credit_limit, bypass
FROM customer_credit_limits WHERE customer_id=$1 AND company_id=$2`,
		customerID, companyID).Scan(&l.CustomerID, &l.CompanyID, &l.CreditLimit, &l.Bypass)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// OutstandingAmount sums outstanding_amount across submitted (docstatus=1)
// invoices for the customer and company.
func (r *Repository) OutstandingAmount(ctx context.Context, customerID, companyID int64) (float64, error) {
	if r == nil {
		return 0, errors.New("credit repository not initialised")
	}
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(outstanding_amount), 0)
FROM sales_invoices WHERE customer_id=$1 AND company_id=$2 AND docstatus=1`,
		customerID, companyID).Scan(&total)
	return total, err
}
