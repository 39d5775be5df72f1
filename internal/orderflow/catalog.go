package orderflow

// StepMeta describes a step for display.
type StepMeta struct {
	ID          StepID `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// StatusMeta describes a backend status for display.
type StatusMeta struct {
	Key         Status `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var stepCatalog = []StepMeta{
	{ID: StepShipping, Label: "Shipping details", Description: "Choose how to receive your medicine and fill in the details"},
	{ID: StepStatus, Label: "Order status", Description: "Follow the progress of your order"},
	{ID: StepReview, Label: "Review medicines", Description: "Check the items before paying"},
	{ID: StepPayment, Label: "Payment", Description: "Choose a method and confirm payment"},
	{ID: StepResult, Label: "Summary", Description: "See the latest status after payment"},
}

var statusCatalog = []StatusMeta{
	{Key: StatusPending, Label: "Pending", Description: "Your order is waiting for the doctor's approval"},
	{Key: StatusApproved, Label: "Approved", Description: "The prescription has been approved by the doctor"},
	{Key: StatusPaid, Label: "Paid", Description: "Payment received, the pharmacy will start preparing"},
	{Key: StatusProcessing, Label: "Preparing", Description: "The pharmacist is preparing and packing your medicine"},
	{Key: StatusShipped, Label: "Shipped", Description: "The parcel has left the pharmacy and is on its way"},
	{Key: StatusDelivered, Label: "Delivered", Description: "Your medicine has arrived. Thank you for using our service"},
}

// StepCatalog returns a copy of the step catalog in flow order.
func StepCatalog() []StepMeta {
	return append([]StepMeta(nil), stepCatalog...)
}

// StatusCatalog returns a copy of the status catalog in lifecycle order.
func StatusCatalog() []StatusMeta {
	return append([]StatusMeta(nil), statusCatalog...)
}

// IndexOfStep returns the position of step in steps, or -1.
func IndexOfStep(steps []StepID, step StepID) int {
	for i, s := range steps {
		if s == step {
			return i
		}
	}
	return -1
}

// IndexOfStatus returns the position of status in catalog, or -1.
func IndexOfStatus(catalog []StatusMeta, status Status) int {
	for i, meta := range catalog {
		if meta.Key == status {
			return i
		}
	}
	return -1
}

// ParseStep returns the step named s, if it is one.
func ParseStep(s string) (StepID, bool) {
	step := StepID(s)
	if IndexOfStep(defaultSteps(), step) < 0 {
		return "", false
	}
	return step, true
}
