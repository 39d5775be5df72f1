package orderflow

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// Route is the order page location: an optional order id and the query string.
type Route struct {
	OrderID string
	Query   url.Values
}

// Navigator keeps the current step and the page URL in agreement and bootstraps the
// store from the route's order.
type Navigator struct {
	store   *Store
	orders  OrderService
	logger  *logging.Logger
	metrics *metrics.OrderFlowMetrics

	mu     sync.Mutex
	route  Route
	synced bool

	token atomic.Uint64
}

func NewNavigator(store *Store, orders OrderService, logger *logging.Logger, m *metrics.OrderFlowMetrics) *Navigator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Navigator{store: store, orders: orders, logger: logger, metrics: m}
}

// Mount handles a page load. Without an order id the flow is reset. A route order that
// conflicts with the stored one resets the flow before the id is set. The URL step is
// then applied once and the order bootstrapped.
func (n *Navigator) Mount(ctx context.Context, route Route) State {
	query := url.Values{}
	for k, v := range route.Query {
		query[k] = append([]string(nil), v...)
	}

	n.mu.Lock()
	n.route = Route{OrderID: route.OrderID, Query: query}
	n.synced = false
	n.mu.Unlock()

	stored := n.store.State().OrderID
	switch {
	case route.OrderID == "":
		n.store.ResetFlow(ctx)
	case stored == "":
		n.store.SetOrderID(ctx, route.OrderID)
	case stored != route.OrderID:
		n.logger.Info("route order differs from stored flow, resetting", "stored_order_id", stored, "order_id", route.OrderID)
		n.store.Dispatch(ctx, ResetFlow{}, SetOrderID{OrderID: route.OrderID})
	}

	n.ApplyURLStep(ctx)

	if route.OrderID != "" {
		n.Bootstrap(ctx, route.OrderID)
	}
	return n.store.State()
}

// ApplyURLStep moves the store to the route's step the first time it is called after a
// mount. Later calls do nothing so user navigation is never overridden.
func (n *Navigator) ApplyURLStep(ctx context.Context) {
	n.mu.Lock()
	if n.synced {
		n.mu.Unlock()
		return
	}
	n.synced = true
	param := n.route.Query.Get("step")
	n.mu.Unlock()

	if param == "" {
		return
	}
	step, ok := ParseStep(param)
	if !ok || step == n.store.State().CurrentStep {
		return
	}
	n.store.GoToStep(ctx, step)
}

// Bootstrap fetches orderID and merges its items, status and note. The result is applied
// only if no newer bootstrap started meanwhile and the store still holds orderID. Fetch
// failures are logged.
func (n *Navigator) Bootstrap(ctx context.Context, orderID string) {
	token := n.token.Add(1)

	env, err := n.orders.GetOrder(ctx, orderID)
	if err != nil {
		n.logger.Warn("order bootstrap failed", "order_id", orderID, "error", err)
		return
	}
	order, ok := env.First()
	if !ok {
		return
	}

	_, applied := n.store.DispatchIf(ctx, func(s State) bool {
		return n.token.Load() == token && s.OrderID == orderID
	}, bootstrapCommands(order, n.store.State().Items)...)
	if !applied {
		n.metrics.ObserveStale("bootstrap")
		n.logger.Debug("discarding superseded order fetch", "order_id", orderID)
	}
}

// ReplaceURL returns the page URL for the current step and whether it differs from the
// last known one. The shipping step omits the step parameter; other parameters are kept.
func (n *Navigator) ReplaceURL() (string, bool) {
	state := n.store.State()

	n.mu.Lock()
	defer n.mu.Unlock()

	query := url.Values{}
	for k, v := range n.route.Query {
		query[k] = append([]string(nil), v...)
	}
	previousStep := query.Get("step")
	if state.CurrentStep == StepShipping {
		query.Del("step")
	} else {
		query.Set("step", string(state.CurrentStep))
	}

	changed := previousStep != query.Get("step") || n.route.OrderID != state.OrderID
	n.route = Route{OrderID: state.OrderID, Query: query}

	u := OrderPath(state.OrderID)
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u, changed
}
