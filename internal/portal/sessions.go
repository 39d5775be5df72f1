package portal

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/internal/orderflow"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// StorageFactory returns the snapshot storage for a session.
type StorageFactory func(sessionID string) orderflow.Storage

// MemoryStorageFactory keeps snapshots in process. Snapshots are lost when the flow is
// evicted.
func MemoryStorageFactory() StorageFactory {
	return func(string) orderflow.Storage { return orderflow.NewMemoryStorage() }
}

// Flow is one session's store together with its step controllers.
type Flow struct {
	Store     *orderflow.Store
	Navigator *orderflow.Navigator
	Shipping  *orderflow.ShippingStep
	Status    *orderflow.StatusStep
	Review    *orderflow.ReviewStep
	Payment   *orderflow.PaymentStep
	Result    *orderflow.ResultStep
	History   *orderflow.History

	lastSeen time.Time
}

// Registry owns the live flows, one per session. Idle flows are evicted; their snapshot
// stays in storage and is rehydrated on the next request.
type Registry struct {
	gateway    orderflow.Gateway
	orphans    orderflow.OrphanRecorder
	newStorage StorageFactory
	logger     *logging.Logger
	metrics    *metrics.OrderFlowMetrics
	idle       time.Duration
	now        func() time.Time

	mu    sync.Mutex
	flows map[string]*Flow
}

func NewRegistry(gw orderflow.Gateway, orphans orderflow.OrphanRecorder, storage StorageFactory, idle time.Duration, logger *logging.Logger, m *metrics.OrderFlowMetrics) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	if storage == nil {
		storage = MemoryStorageFactory()
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Registry{
		gateway:    gw,
		orphans:    orphans,
		newStorage: storage,
		logger:     logger,
		metrics:    m,
		idle:       idle,
		now:        time.Now,
		flows:      make(map[string]*Flow),
	}
}

// Flow returns the session's flow, creating and rehydrating it on first use. Rehydration
// runs outside the registry lock; if two requests race, the first flow inserted wins.
func (r *Registry) Flow(ctx context.Context, sessionID string) *Flow {
	if f, ok := r.lookup(sessionID); ok {
		return f
	}

	f := r.newFlow(ctx, sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.flows[sessionID]; ok {
		existing.lastSeen = r.now()
		return existing
	}
	f.lastSeen = r.now()
	r.flows[sessionID] = f
	r.metrics.SetActiveSessions(len(r.flows))
	return f
}

func (r *Registry) lookup(sessionID string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[sessionID]
	if ok {
		f.lastSeen = r.now()
	}
	return f, ok
}

func (r *Registry) newFlow(ctx context.Context, sessionID string) *Flow {
	logger := r.logger.With("session_id", sessionID)
	store := orderflow.NewStore(ctx, r.newStorage(sessionID), logger, r.metrics)
	return &Flow{
		Store:     store,
		Navigator: orderflow.NewNavigator(store, r.gateway, logger, r.metrics),
		Shipping:  orderflow.NewShippingStep(store, r.gateway, r.gateway, logger, r.metrics),
		Status:    orderflow.NewStatusStep(store, r.gateway, r.gateway, logger, r.metrics),
		Review:    orderflow.NewReviewStep(store, r.gateway, r.gateway, logger, r.metrics),
		Payment:   orderflow.NewPaymentStep(store, r.gateway, r.orphans, logger, r.metrics),
		Result:    orderflow.NewResultStep(store, r.gateway, r.gateway, logger, r.metrics),
		History:   orderflow.NewHistory(store, r.gateway, r.gateway, logger),
	}
}

// Sweep evicts flows idle for longer than the idle timeout and returns how many.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	n := 0
	for id, f := range r.flows {
		if f.lastSeen.Before(cutoff) && !f.Shipping.Busy() && !f.Payment.Busy() {
			delete(r.flows, id)
			n++
		}
	}
	r.metrics.SetActiveSessions(len(r.flows))
	return n
}

// Len reports the number of live flows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("evicted idle order flows", "count", n)
			}
		}
	}
}
