package orderflow

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// ResultStep is the terminal summary after payment.
type ResultStep struct {
	store     *Store
	refresher statusRefresher
}

func NewResultStep(store *Store, orders OrderService, doctors DoctorService, logger *logging.Logger, m *metrics.OrderFlowMetrics) *ResultStep {
	if logger == nil {
		logger = logging.Default()
	}
	return &ResultStep{
		store: store,
		refresher: statusRefresher{
			store: store, orders: orders, doctors: doctors,
			logger: logger, metrics: m, source: "result",
		},
	}
}

// Refresh re-reads status and doctor for display.
func (r *ResultStep) Refresh(ctx context.Context) (StatusView, error) {
	orderID := r.store.State().OrderID
	if orderID == "" {
		return StatusView{}, ErrOrderRequired
	}
	r.refresher.refresh(ctx, orderID)
	return statusView(r.store.State()), nil
}

// StartOver resets the flow and returns the URL of a fresh order.
func (r *ResultStep) StartOver(ctx context.Context) (State, string) {
	return r.store.ResetFlow(ctx), OrderPath("")
}

// RefreshURL is the result page of the flow's order.
func (r *ResultStep) RefreshURL() string {
	return OrderPath(r.store.State().OrderID) + "?step=" + string(StepResult)
}

// OrderPath is "/order" for a new flow and "/order/{id}" otherwise.
func OrderPath(orderID string) string {
	if orderID == "" {
		return "/order"
	}
	return fmt.Sprintf("/order/%s", url.PathEscape(orderID))
}
