// Package orders drives sales orders through their lifecycle. It is the
// sole authority for status transitions.
package orders

import "time"

// Status is the fine-grained lifecycle state of a sales order.
type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusToDeliverAndBill Status = "TO_DELIVER_AND_BILL"
	StatusToBill           Status = "TO_BILL"
	StatusToDeliver        Status = "TO_DELIVER"
	StatusCompleted        Status = "COMPLETED"
	StatusCancelled        Status = "CANCELLED"
	StatusClosed           Status = "CLOSED"
)

// DocStatus is the coarse three-valued document flag. It is constrained by
// Status: draft 0, any submitted status 1, cancelled 2.
const (
	DocStatusDraft     int16 = 0
	DocStatusSubmitted int16 = 1
	DocStatusCancelled int16 = 2
)

// Action names a workflow operation applied to an order.
type Action string

const (
	ActionSubmit             Action = "SUBMIT"
	ActionCreateDeliveryNote Action = "CREATE_DELIVERY_NOTE"
	ActionCreateSalesInvoice Action = "CREATE_SALES_INVOICE"
	ActionCancel             Action = "CANCEL"
	ActionClose              Action = "CLOSE"
	ActionReopen             Action = "REOPEN"
)

// SalesOrder is the order header. Totals are always the sum of item
// amounts. Submitted orders are never physically deleted; cancellation is a
// state, not a deletion.
type SalesOrder struct {
	ID                int64            `json:"id"`
	DocNumber         string           `json:"doc_number"`
	CompanyID         int64            `json:"company_id"`
	CustomerID        int64            `json:"customer_id"`
	Currency          string           `json:"currency"`
	Status            Status           `json:"status"`
	DocStatus         int16            `json:"docstatus"`
	StatusBeforeClose *Status          `json:"status_before_close,omitempty"`
	NetTotal          float64          `json:"net_total"`
	TaxTotal          float64          `json:"tax_total"`
	GrandTotal        float64          `json:"grand_total"`
	Notes             *string          `json:"notes,omitempty"`
	CreatedBy         int64            `json:"created_by"`
	SubmittedAt       *time.Time       `json:"submitted_at,omitempty"`
	CancelledAt       *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Items             []SalesOrderItem `json:"items,omitempty"`
}

// SalesOrderItem belongs to exactly one order. Amount is always
// qty * rate.
type SalesOrderItem struct {
	ID           int64   `json:"id"`
	SalesOrderID int64   `json:"sales_order_id"`
	ItemCode     string  `json:"item_code"`
	Description  *string `json:"description,omitempty"`
	Warehouse    string  `json:"warehouse"`
	Qty          float64 `json:"qty"`
	Rate         float64 `json:"rate"`
	Amount       float64 `json:"amount"`
	TaxPercent   float64 `json:"tax_percent"`
	Idx          int     `json:"idx"`
}

// CalculateLineAmounts returns the net amount and tax for one line.
func CalculateLineAmounts(qty, rate, taxPercent float64) (amount, tax float64) {
	amount = qty * rate
	tax = amount * (taxPercent / 100)
	return
}
