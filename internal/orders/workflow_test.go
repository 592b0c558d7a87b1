package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNextStatusTable walks every (status, action) pair: the pairs in the
// allowed set must map to their target, and every other pair must be
// rejected. Notably Submit is only ever permitted from DRAFT; a closed or
// cancelled order cannot be resubmitted.
func TestNextStatusTable(t *testing.T) {
	statuses := []Status{
		StatusDraft, StatusToDeliverAndBill, StatusToBill, StatusToDeliver,
		StatusCompleted, StatusCancelled, StatusClosed,
	}
	actions := []Action{
		ActionSubmit, ActionCreateDeliveryNote, ActionCreateSalesInvoice,
		ActionCancel, ActionClose, ActionReopen,
	}

	type pair struct {
		from   Status
		action Action
	}
	// Reopen reports permitted with an empty target; the engine resolves
	// the target from the status recorded at close time.
	allowed := map[pair]Status{
		{StatusDraft, ActionSubmit}:                        StatusToDeliverAndBill,
		{StatusToDeliverAndBill, ActionCreateDeliveryNote}: StatusToBill,
		{StatusToDeliver, ActionCreateDeliveryNote}:        StatusCompleted,
		{StatusToDeliverAndBill, ActionCreateSalesInvoice}: StatusToDeliver,
		{StatusToBill, ActionCreateSalesInvoice}:           StatusCompleted,
		{StatusCompleted, ActionClose}:                     StatusClosed,
		{StatusClosed, ActionReopen}:                       "",
	}
	for _, s := range statuses {
		if s != StatusCancelled {
			allowed[pair{s, ActionCancel}] = StatusCancelled
		}
	}

	for _, from := range statuses {
		for _, action := range actions {
			got, ok := NextStatus(from, action)
			want, permitted := allowed[pair{from, action}]
			require.Equal(t, permitted, ok, "from %s action %s", from, action)
			require.Equal(t, want, got, "from %s action %s", from, action)
		}
	}
}

func TestNextStatusUnknownInputs(t *testing.T) {
	_, allowed := NextStatus(Status("BOGUS"), ActionSubmit)
	require.False(t, allowed)

	_, allowed = NextStatus(StatusDraft, Action("NOT_AN_ACTION"))
	require.False(t, allowed)
}

func TestDocStatusFor(t *testing.T) {
	require.Equal(t, DocStatusDraft, DocStatusFor(StatusDraft))
	require.Equal(t, DocStatusCancelled, DocStatusFor(StatusCancelled))
	for _, s := range []Status{StatusToDeliverAndBill, StatusToBill, StatusToDeliver, StatusCompleted, StatusClosed} {
		require.Equal(t, DocStatusSubmitted, DocStatusFor(s))
	}
}

func TestValidAction(t *testing.T) {
	for _, a := range []Action{ActionSubmit, ActionCreateDeliveryNote, ActionCreateSalesInvoice, ActionCancel, ActionClose, ActionReopen} {
		require.True(t, ValidAction(a))
	}
	require.False(t, ValidAction(Action("DELETE")))
	require.False(t, ValidAction(Action("")))
}

func TestCalculateLineAmounts(t *testing.T) {
	amount, tax := CalculateLineAmounts(4, 25, 10)
	require.InDelta(t, 100.0, amount, 1e-9)
	require.InDelta(t, 10.0, tax, 1e-9)

	amount, tax = CalculateLineAmounts(2, 0, 18)
	require.Zero(t, amount)
	require.Zero(t, tax)
}
