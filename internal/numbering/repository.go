package numbering

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists naming counters in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextSequence performs the read-increment-write as a single atomic
// statement so concurrent callers never observe the same pre-increment
// value. The row lock taken by the upsert serialises contenders.
func (r *Repository) NextSequence(ctx context.Context, prefix string, year int) (int64, error) {
	if r == nil {
		return 0, errors.New("numbering repository not initialised")
	}
	var current int64
	err := r.pool.QueryRow(ctx, `INSERT INTO naming_series (prefix, year, current)
VALUES ($1, $2, 1)
ON CONFLICT (prefix, year) DO UPDATE SET current = naming_series.current + 1
RETURNING current`, prefix, year).Scan(&current)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// serialization_failure / deadlock_detected are transient.
			if pgErr.Code == "40001" || pgErr.Code == "40P01" {
				return 0, ErrAllocationConflict
			}
		}
		return 0, err
	}
	return current, nil
}
