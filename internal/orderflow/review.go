package orderflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/clinic-order-portal/internal/gateway"
	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// ReviewView lists the merged items and totals.
type ReviewView struct {
	OrderID     string          `json:"orderId"`
	Items       []OrderItem     `json:"items"`
	Note        string          `json:"note"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
	// BackendTotal is set when Total is the order service's total_amount.
	BackendTotal bool `json:"backendTotal"`
}

type unitPrice struct {
	price decimal.Decimal
	unit  string
}

// ReviewStep merges the order's items with per-medicine prices. Prices are cached by
// medicine id for the life of the step.
type ReviewStep struct {
	store     *Store
	orders    OrderService
	medicines MedicineService
	logger    *logging.Logger
	metrics   *metrics.OrderFlowMetrics

	mu     sync.Mutex
	prices map[string]unitPrice
}

func NewReviewStep(store *Store, orders OrderService, medicines MedicineService, logger *logging.Logger, m *metrics.OrderFlowMetrics) *ReviewStep {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReviewStep{
		store:     store,
		orders:    orders,
		medicines: medicines,
		logger:    logger,
		metrics:   m,
		prices:    make(map[string]unitPrice),
	}
}

// Load fetches the order, fans out the price lookups, and stores the merged items.
func (r *ReviewStep) Load(ctx context.Context) (ReviewView, error) {
	state := r.store.State()
	orderID := state.OrderID
	if orderID == "" {
		return ReviewView{}, ErrOrderRequired
	}

	env, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		return ReviewView{}, fmt.Errorf("get order: %w", err)
	}
	order, ok := env.First()
	if !ok {
		return ReviewView{}, ErrOrderNotFound
	}

	items := mergeBackendItems(order.OrderItems, state.Items)
	prices, err := r.lookupPrices(ctx, items)
	if err != nil {
		return ReviewView{}, err
	}
	for i := range items {
		p := prices[items[i].ID]
		items[i].Price = p.price
		if p.unit != "" {
			items[i].Unit = p.unit
		}
	}

	cmds := []Command{SetItems{Items: items}}
	if state.Note == "" && order.Note != "" {
		cmds = append(cmds, SetNote{Note: order.Note})
	}
	next, applied := r.store.DispatchIf(ctx, func(s State) bool { return s.OrderID == orderID }, cmds...)
	if !applied {
		r.metrics.ObserveStale("review")
	}

	view := ReviewView{
		OrderID:     orderID,
		Items:       items,
		Note:        next.Note,
		Subtotal:    Subtotal(items),
		DeliveryFee: decimal.Zero,
	}
	view.Total = view.Subtotal.Add(view.DeliveryFee)
	if order.TotalAmount.Valid {
		view.Total = order.TotalAmount.Decimal
		view.BackendTotal = true
	}
	return view, nil
}

// lookupPrices fetches uncached prices concurrently. Any failed lookup fails the batch;
// successful ones stay cached.
func (r *ReviewStep) lookupPrices(ctx context.Context, items []OrderItem) (map[string]unitPrice, error) {
	out := make(map[string]unitPrice, len(items))
	var missing []string

	r.mu.Lock()
	for _, item := range items {
		if p, ok := r.prices[item.ID]; ok {
			out[item.ID] = p
		} else if !contains(missing, item.ID) {
			missing = append(missing, item.ID)
		}
	}
	r.mu.Unlock()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range missing {
		g.Go(func() error {
			med, err := r.medicines.GetMedicine(gctx, id)
			if err != nil {
				return fmt.Errorf("get medicine %s: %w", id, err)
			}
			p := priceOf(med)
			mu.Lock()
			out[id] = p
			mu.Unlock()
			r.mu.Lock()
			r.prices[id] = p
			r.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn("medicine price lookup failed", "error", err)
		return nil, err
	}
	return out, nil
}

func priceOf(med *gateway.Medicine) unitPrice {
	if med == nil {
		return unitPrice{price: decimal.Zero}
	}
	return unitPrice{price: med.Price, unit: med.Unit}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// UpdateNote edits the message to the pharmacist.
func (r *ReviewStep) UpdateNote(ctx context.Context, note string) State {
	return r.store.SetNote(ctx, note)
}

// Continue moves to payment.
func (r *ReviewStep) Continue(ctx context.Context) (State, error) {
	if r.store.State().OrderID == "" {
		return r.store.State(), ErrOrderRequired
	}
	return r.store.GoToStep(ctx, StepPayment), nil
}

// CachedPrices reports how many medicine prices are cached.
func (r *ReviewStep) CachedPrices() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prices)
}
