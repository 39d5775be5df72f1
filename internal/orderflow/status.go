package orderflow

import (
	"context"

	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// StatusView is what the status and result pages render.
type StatusView struct {
	OrderID  string          `json:"orderId"`
	Status   Status          `json:"status"`
	Current  *StatusMeta     `json:"current,omitempty"`
	Timeline []TimelineEntry `json:"timeline"`
	Doctor   DoctorInfo      `json:"doctor"`
}

func statusView(state State) StatusView {
	catalog := StatusCatalog()
	view := StatusView{
		OrderID:  state.OrderID,
		Status:   state.Status,
		Timeline: BuildTimeline(state.Status, catalog),
		Doctor:   state.Doctor,
	}
	if idx := IndexOfStatus(catalog, state.Status); idx >= 0 {
		view.Current = &catalog[idx]
	}
	return view
}

// StatusStep shows the order's lifecycle position.
type StatusStep struct {
	store     *Store
	refresher statusRefresher
}

func NewStatusStep(store *Store, orders OrderService, doctors DoctorService, logger *logging.Logger, m *metrics.OrderFlowMetrics) *StatusStep {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatusStep{
		store: store,
		refresher: statusRefresher{
			store: store, orders: orders, doctors: doctors,
			logger: logger, metrics: m, source: "status",
		},
	}
}

// Refresh polls the backend for status and doctor. Fetch failures keep the last known
// status; only a missing order id is an error.
func (s *StatusStep) Refresh(ctx context.Context) (StatusView, error) {
	orderID := s.store.State().OrderID
	if orderID == "" {
		return StatusView{}, ErrOrderRequired
	}
	s.refresher.refresh(ctx, orderID)
	return statusView(s.store.State()), nil
}

// View renders the current state without calling the backend.
func (s *StatusStep) View() StatusView {
	return statusView(s.store.State())
}

// Continue moves to review.
func (s *StatusStep) Continue(ctx context.Context) (State, error) {
	if s.store.State().OrderID == "" {
		return s.store.State(), ErrOrderRequired
	}
	return s.store.GoToStep(ctx, StepReview), nil
}
