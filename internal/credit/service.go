package credit

import (
	"context"
	"fmt"
)

// RepositoryPort abstracts the limit and invoice lookups.
type RepositoryPort interface {
	// GetLimit returns nil when no limit row exists for the pair.
	GetLimit(ctx context.Context, customerID, companyID int64) (*Limit, error)
	// OutstandingAmount sums outstanding_amount across submitted invoices.
	OutstandingAmount(ctx context.Context, customerID, companyID int64) (float64, error)
}

// Validator decides whether a prospective order total may proceed.
type Validator struct {
	repo RepositoryPort
}

// NewValidator builds a Validator.
func NewValidator(repo RepositoryPort) *Validator {
	return &Validator{repo: repo}
}

// Validate allows when no limit is configured or bypass is set; otherwise
// the outstanding invoice total plus the prospective amount must stay
// within the limit. Read-only, no side effects.
func (v *Validator) Validate(ctx context.Context, customerID, companyID int64, prospective float64) error {
	limit, err := v.repo.GetLimit(ctx, customerID, companyID)
	if err != nil {
		return fmt.Errorf("credit: get limit: %w", err)
	}
	if limit == nil || limit.Bypass {
		return nil
	}
	outstanding, err := v.repo.OutstandingAmount(ctx, customerID, companyID)
	if err != nil {
		return fmt.Errorf("credit: outstanding amount: %w", err)
	}
	if outstanding+prospective > limit.CreditLimit {
		return &LimitExceededError{
			CustomerID:  customerID,
			CompanyID:   companyID,
			CreditLimit: limit.CreditLimit,
			Outstanding: outstanding,
			Requested:   prospective,
		}
	}
	return nil
}
