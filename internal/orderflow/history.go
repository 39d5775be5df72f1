package orderflow

import (
	"context"
	"fmt"

	"github.com/wolfman30/clinic-order-portal/internal/gateway"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// History loads the patient's previous orders so a new flow can be seeded from one.
type History struct {
	store   *Store
	orders  HistoryService
	doctors DoctorService
	logger  *logging.Logger
}

func NewHistory(store *Store, orders HistoryService, doctors DoctorService, logger *logging.Logger) *History {
	if logger == nil {
		logger = logging.Default()
	}
	return &History{store: store, orders: orders, doctors: doctors, logger: logger}
}

// Load lists the patient's orders and stores them as history entries. Doctor names are
// looked up in one batch; a failed lookup leaves them blank.
func (h *History) Load(ctx context.Context) ([]HistoryEntry, error) {
	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	var ids []string
	for _, o := range orders {
		if o.DoctorID != "" && !contains(ids, string(o.DoctorID)) {
			ids = append(ids, string(o.DoctorID))
		}
	}
	doctors := map[string]DoctorInfo{}
	if len(ids) > 0 {
		found, err := h.doctors.DoctorsByIDs(ctx, ids)
		if err != nil {
			h.logger.Warn("history doctor lookup failed", "doctor_ids", ids, "error", err)
		}
		for _, d := range found {
			doctors[string(d.ID)] = doctorInfo(d)
		}
	}

	entries := make([]HistoryEntry, 0, len(orders))
	for _, o := range orders {
		id := o.Identifier()
		if id == "" {
			continue
		}
		entries = append(entries, historyEntry(o, doctors[string(o.DoctorID)]))
	}
	h.store.Dispatch(ctx, LoadHistory{Entries: entries})
	return entries, nil
}

func historyEntry(o gateway.Order, doctor DoctorInfo) HistoryEntry {
	return HistoryEntry{
		ID:          o.Identifier(),
		OrderNumber: o.Identifier(),
		CreatedAt:   o.CreatedAt,
		Doctor:      doctor,
		Items:       mergeBackendItems(o.OrderItems, nil),
		Note:        o.Note,
	}
}

// Begin starts a new flow from a history entry, loading history first when the entry
// is not known yet.
func (h *History) Begin(ctx context.Context, historyID string) (State, error) {
	if !hasHistory(h.store.State(), historyID) {
		if _, err := h.Load(ctx); err != nil {
			return h.store.State(), err
		}
		if !hasHistory(h.store.State(), historyID) {
			return h.store.State(), ErrHistoryNotFound
		}
	}
	return h.store.BeginFromHistory(ctx, historyID), nil
}

func hasHistory(state State, id string) bool {
	for _, entry := range state.History {
		if entry.ID == id {
			return true
		}
	}
	return false
}
