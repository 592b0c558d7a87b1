package orders

// NextStatus is the transition table as a total function. It returns the
// resulting status and whether the action is permitted from the given
// status. ActionReopen reports permitted with an empty target; the engine
// resolves the target from the status recorded at close time.
func NextStatus(from Status, action Action) (Status, bool) {
	switch action {
	case ActionSubmit:
		if from == StatusDraft {
			return StatusToDeliverAndBill, true
		}
	case ActionCreateDeliveryNote:
		switch from {
		case StatusToDeliverAndBill:
			return StatusToBill, true
		case StatusToDeliver:
			return StatusCompleted, true
		}
	case ActionCreateSalesInvoice:
		switch from {
		case StatusToDeliverAndBill:
			return StatusToDeliver, true
		case StatusToBill:
			return StatusCompleted, true
		}
	case ActionCancel:
		if from != StatusCancelled {
			return StatusCancelled, true
		}
	case ActionClose:
		if from == StatusCompleted {
			return StatusClosed, true
		}
	case ActionReopen:
		if from == StatusClosed {
			return "", true
		}
	}
	return "", false
}

// DocStatusFor returns the docstatus consistent with a status.
func DocStatusFor(status Status) int16 {
	switch status {
	case StatusDraft:
		return DocStatusDraft
	case StatusCancelled:
		return DocStatusCancelled
	default:
		return DocStatusSubmitted
	}
}

// ValidAction reports whether the action name is known.
func ValidAction(action Action) bool {
	switch action {
	case ActionSubmit, ActionCreateDeliveryNote, ActionCreateSalesInvoice,
		ActionCancel, ActionClose, ActionReopen:
		return true
	}
	return false
}
