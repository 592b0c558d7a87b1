// Package inventory maintains the append-only stock ledger and its
// per-(item, warehouse) running balances.
package inventory

import (
	"errors"
	"fmt"
	"time"
)

// LedgerEntry is an immutable stock movement record. Entries are only ever
// appended; corrections are made by posting offsetting entries.
type LedgerEntry struct {
	ID            int64     `json:"id"`
	ItemCode      string    `json:"item_code"`
	Warehouse     string    `json:"warehouse"`
	PostedAt      time.Time `json:"posted_at"`
	VoucherRef    string    `json:"voucher_ref"`
	Qty           float64   `json:"qty"`
	ValuationRate float64   `json:"valuation_rate"`
	BalanceQty    float64   `json:"balance_qty"`
}

// Movement describes a requested stock posting. A transfer sets both
// warehouses and produces two entries; an issue or receipt sets one.
type Movement struct {
	ItemCode      string
	FromWarehouse string
	ToWarehouse   string
	Qty           float64
	ValuationRate float64
	VoucherRef    string
	Note          string
	ActorID       int64
	AllowNegative bool
}

// LedgerFilter selects ledger entries for one (item, warehouse) pair.
type LedgerFilter struct {
	ItemCode  string
	Warehouse string
	From      time.Time
	To        time.Time
	Limit     int
}

// ErrInsufficientStock signals an outgoing leg that would drive the balance
// negative. Use errors.As with *InsufficientStockError for the item context.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")

// ErrInvalidQuantity indicates a non-positive movement quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrInvalidValuation indicates a negative valuation rate.
var ErrInvalidValuation = errors.New("inventory: valuation rate must be >= 0")

// ErrInvalidMovement indicates a movement with no warehouse leg.
var ErrInvalidMovement = errors.New("inventory: movement requires a source or destination warehouse")

// InsufficientStockError carries which item and warehouse lacked stock.
type InsufficientStockError struct {
	ItemCode  string
	Warehouse string
	Requested float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for %s at %s: requested %.4f, available %.4f",
		e.ItemCode, e.Warehouse, e.Requested, e.Available)
}

// Is lets errors.Is(err, ErrInsufficientStock) match the typed error.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
