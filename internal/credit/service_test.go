package credit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryLimits struct {
	limits      map[int64]*Limit
	outstanding map[int64]float64
	limitErr    error
}

func (m *memoryLimits) GetLimit(ctx context.Context, customerID, companyID int64) (*Limit, error) {
	if m.limitErr != nil {
		return nil, m.limitErr
	}
	return m.limits[customerID], nil
}

func (m *memoryLimits) OutstandingAmount(ctx context.Context, customerID, companyID int64) (float64, error) {
	return m.outstanding[customerID], nil
}

func TestValidateNoLimitConfiguredAllows(t *testing.T) {
	v := NewValidator(&memoryLimits{limits: map[int64]*Limit{}})
	require.NoError(t, v.Validate(context.Background(), 7, 1, 1_000_000))
}

func TestValidateBypassAllows(t *testing.T) {
	v := NewValidator(&memoryLimits{
		limits:      map[int64]*Limit{7: {CustomerID: 7, CompanyID: 1, CreditLimit: 100, Bypass: true}},
		outstanding: map[int64]float64{7: 5000},
	})
	require.NoError(t, v.Validate(context.Background(), 7, 1, 999))
}

func TestValidateDeniesOverLimit(t *testing.T) {
	v := NewValidator(&memoryLimits{
		limits:      map[int64]*Limit{7: {CustomerID: 7, CompanyID: 1, CreditLimit: 1000}},
		outstanding: map[int64]float64{7: 900},
	})

	err := v.Validate(context.Background(), 7, 1, 200)
	require.ErrorIs(t, err, ErrCreditLimitExceeded)

	var denied *LimitExceededError
	require.ErrorAs(t, err, &denied)
	require.InDelta(t, 1000.0, denied.CreditLimit, 1e-9)
	require.InDelta(t, 900.0, denied.Outstanding, 1e-9)
	require.InDelta(t, 200.0, denied.Requested, 1e-9)
}

func TestValidateAllowsAtExactLimit(t *testing.T) {
	v := NewValidator(&memoryLimits{
		limits:      map[int64]*Limit{7: {CustomerID: 7, CompanyID: 1, CreditLimit: 1000}},
		outstanding: map[int64]float64{7: 900},
	})
	// outstanding + prospective == limit is allowed; only strictly over
	// the limit is denied.
	require.NoError(t, v.Validate(context.Background(), 7, 1, 100))
}

func TestValidateZeroLimitDeniesAnyAmount(t *testing.T) {
	v := NewValidator(&memoryLimits{
		limits: map[int64]*Limit{7: {CustomerID: 7, CompanyID: 1, CreditLimit: 0}},
	})
	err := v.Validate(context.Background(), 7, 1, 0.01)
	require.ErrorIs(t, err, ErrCreditLimitExceeded)
}

func TestValidateRepositoryErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	v := NewValidator(&memoryLimits{limitErr: boom})
	err := v.Validate(context.Background(), 7, 1, 10)
	require.ErrorIs(t, err, boom)
}
