package orderflow

import (
	"context"
	"sync"

	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// Store owns one session's flow state. Commands are applied one at a time in dispatch
// order and every change is persisted to Storage. Nothing it does returns an error;
// persistence failures are logged.
type Store struct {
	mu      sync.Mutex
	state   State
	storage Storage
	logger  *logging.Logger
	metrics *metrics.OrderFlowMetrics
}

// NewStore rehydrates from storage, falling back to defaults.
func NewStore(ctx context.Context, storage Storage, logger *logging.Logger, m *metrics.OrderFlowMetrics) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{
		state:   DefaultState(),
		storage: storage,
		logger:  logger,
		metrics: m,
	}
	s.rehydrate(ctx)
	return s
}

func (s *Store) rehydrate(ctx context.Context) {
	raw, ok, err := s.storage.Get(ctx, SnapshotKey)
	if err != nil {
		s.logger.Warn("order flow snapshot unavailable", "error", err)
		return
	}
	if !ok {
		return
	}
	state, err := Rehydrate(raw)
	if err != nil {
		s.logger.Warn("discarding unreadable order flow snapshot", "error", err)
		if rmErr := s.storage.Remove(ctx, SnapshotKey); rmErr != nil {
			s.logger.Warn("failed to remove order flow snapshot", "error", rmErr)
		}
		return
	}
	s.state = state
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies commands in order and returns the resulting state.
func (s *Store) Dispatch(ctx context.Context, cmds ...Command) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ctx, cmds)
}

// DispatchIf applies commands only when guard accepts the current state. The guard and
// the commands run under the same lock, so no other command can interleave.
func (s *Store) DispatchIf(ctx context.Context, guard func(State) bool, cmds ...Command) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !guard(s.state.Clone()) {
		return s.state.Clone(), false
	}
	return s.applyLocked(ctx, cmds), true
}

func (s *Store) applyLocked(ctx context.Context, cmds []Command) State {
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		s.state = Reduce(s.state, cmd)
		s.metrics.ObserveCommand(cmd.commandName())
	}
	s.persistLocked(ctx)
	return s.state.Clone()
}

func (s *Store) persistLocked(ctx context.Context) {
	raw, err := encodeSnapshot(s.state)
	if err == nil {
		err = s.storage.Set(ctx, SnapshotKey, raw)
	}
	if err != nil {
		s.metrics.ObservePersistFailure()
		s.logger.Warn("failed to persist order flow snapshot", "order_id", s.state.OrderID, "error", err)
	}
}

func (s *Store) NextStep(ctx context.Context) State {
	return s.Dispatch(ctx, NextStep{})
}

func (s *Store) PreviousStep(ctx context.Context) State {
	return s.Dispatch(ctx, PreviousStep{})
}

func (s *Store) GoToStep(ctx context.Context, step StepID) State {
	return s.Dispatch(ctx, GoToStep{Step: step})
}

func (s *Store) ResetFlow(ctx context.Context) State {
	return s.Dispatch(ctx, ResetFlow{})
}

func (s *Store) SetShipping(ctx context.Context, patch ShippingPatch) State {
	return s.Dispatch(ctx, SetShipping{Patch: patch})
}

func (s *Store) SetNote(ctx context.Context, note string) State {
	return s.Dispatch(ctx, SetNote{Note: note})
}

func (s *Store) SetItems(ctx context.Context, items []OrderItem) State {
	return s.Dispatch(ctx, SetItems{Items: items})
}

func (s *Store) SetPaymentMethod(ctx context.Context, method PaymentMethod) State {
	return s.Dispatch(ctx, SetPaymentMethod{Method: method})
}

func (s *Store) SetCardDraft(ctx context.Context, patch CardPatch) State {
	return s.Dispatch(ctx, SetCardDraft{Patch: patch})
}

func (s *Store) SetPromptPayDraft(ctx context.Context, patch PromptPayPatch) State {
	return s.Dispatch(ctx, SetPromptPayDraft{Patch: patch})
}

func (s *Store) SetOrderID(ctx context.Context, orderID string) State {
	return s.Dispatch(ctx, SetOrderID{OrderID: orderID})
}

func (s *Store) SetStatus(ctx context.Context, status Status) State {
	return s.Dispatch(ctx, SetStatus{Status: status})
}

func (s *Store) BeginFromHistory(ctx context.Context, historyID string) State {
	return s.Dispatch(ctx, BeginFromHistory{HistoryID: historyID})
}
