// Package credit gates order submission on customer credit limits.
package credit

import (
	"errors"
	"fmt"
)

// Limit is the per-(customer, company) credit ceiling. Read-only input to
// the validator; never owned by an order.
type Limit struct {
	CustomerID  int64   `json:"customer_id"`
	CompanyID   int64   `json:"company_id"`
	CreditLimit float64 `json:"credit_limit"`
	Bypass      bool    `json:"bypass"`
}

// ErrCreditLimitExceeded signals a denied submission. Use errors.As with
// *LimitExceededError for the amounts involved.
var ErrCreditLimitExceeded = errors.New("credit: limit exceeded")

// LimitExceededError carries the figures behind a denial.
type LimitExceededError struct {
	CustomerID  int64
	CompanyID   int64
	CreditLimit float64
	Outstanding float64
	Requested   float64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("credit: customer %d exceeds limit %.2f: outstanding %.2f + requested %.2f",
		e.CustomerID, e.CreditLimit, e.Outstanding, e.Requested)
}

// Is lets errors.Is(err, ErrCreditLimitExceeded) match the typed error.
func (e *LimitExceededError) Is(target error) bool {
	return target == ErrCreditLimitExceeded
}
