package orderflow

import "errors"

var (
	// ErrBusy is returned when a step is already running a submit sequence.
	ErrBusy = errors.New("orderflow: step is busy")
	// ErrOrderRequired is returned by steps that need an order id before they can run.
	ErrOrderRequired = errors.New("orderflow: order id required")
	// ErrOrderNotFound means the order service has no record for the flow's order.
	ErrOrderNotFound = errors.New("orderflow: order not found")
	// ErrHistoryNotFound means the history id is not among the patient's orders.
	ErrHistoryNotFound = errors.New("orderflow: history entry not found")
)
