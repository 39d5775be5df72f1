package orderflow

import (
	"context"

	"github.com/wolfman30/clinic-order-portal/internal/gateway"
	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// statusRefresher re-reads the order status and the prescribing doctor. Failures are
// logged and the last known values kept.
type statusRefresher struct {
	store   *Store
	orders  OrderService
	doctors DoctorService
	logger  *logging.Logger
	metrics *metrics.OrderFlowMetrics
	source  string
}

func (r *statusRefresher) refresh(ctx context.Context, orderID string) {
	env, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		r.logger.Warn("order status refresh failed", "step", r.source, "order_id", orderID, "error", err)
		return
	}
	order, ok := env.First()
	if !ok {
		r.logger.Warn("order status refresh returned no order", "step", r.source, "order_id", orderID)
		return
	}

	sameOrder := func(s State) bool { return s.OrderID == orderID }
	if order.Status != "" {
		if _, applied := r.store.DispatchIf(ctx, sameOrder, SetStatus{Status: NormalizeStatus(order.Status)}); !applied {
			r.metrics.ObserveStale(r.source)
			return
		}
	}

	if order.DoctorID == "" {
		return
	}
	doctors, err := r.doctors.DoctorsByIDs(ctx, []string{string(order.DoctorID)})
	if err != nil {
		r.logger.Warn("doctor lookup failed", "step", r.source, "order_id", orderID, "doctor_id", order.DoctorID, "error", err)
		return
	}
	if len(doctors) == 0 || doctors[0].FullName() == "" {
		return
	}
	if _, applied := r.store.DispatchIf(ctx, sameOrder, SetDoctor{Doctor: doctorInfo(doctors[0])}); !applied {
		r.metrics.ObserveStale(r.source)
	}
}

func doctorInfo(d gateway.Doctor) DoctorInfo {
	return DoctorInfo{
		ID:        string(d.ID),
		Name:      d.FullName(),
		Specialty: d.Specialty,
		Hospital:  d.Hospital,
		AvatarURL: d.AvatarURL,
	}
}

// mergeBackendItems maps the order's items onto local ones. Prices carry over by id;
// dosage and unit by id or case-insensitive name when the backend omits them.
func mergeBackendItems(backend []gateway.OrderItem, local []OrderItem) []OrderItem {
	byID := make(map[string]OrderItem, len(local))
	byName := make(map[string]OrderItem, len(local))
	for _, item := range local {
		byID[item.ID] = item
		byName[normalizeName(item.Name)] = item
	}

	merged := make([]OrderItem, 0, len(backend))
	for _, b := range backend {
		item := OrderItem{
			ID:       string(b.MedicineID),
			Name:     b.MedicineName,
			Quantity: b.Quantity,
			Dosage:   b.Dosage,
			Unit:     b.Unit,
		}
		known, ok := byID[item.ID]
		if ok {
			item.Price = known.Price
		} else {
			known, ok = byName[normalizeName(item.Name)]
		}
		if ok {
			if item.Dosage == "" {
				item.Dosage = known.Dosage
			}
			if item.Unit == "" {
				item.Unit = known.Unit
			}
		}
		merged = append(merged, item)
	}
	return merged
}

func bootstrapCommands(order gateway.Order, local []OrderItem) []Command {
	var cmds []Command
	if len(order.OrderItems) > 0 {
		cmds = append(cmds, SetItems{Items: mergeBackendItems(order.OrderItems, local)})
	}
	if order.Status != "" {
		cmds = append(cmds, SetStatus{Status: NormalizeStatus(order.Status)})
	}
	if order.Note != "" {
		cmds = append(cmds, SetNote{Note: order.Note})
	}
	return cmds
}
