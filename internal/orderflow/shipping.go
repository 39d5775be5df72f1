package orderflow

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/wolfman30/clinic-order-portal/internal/gateway"
	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// ShippingStep collects delivery details, saves them and creates the order.
type ShippingStep struct {
	store    *Store
	orders   OrderService
	delivery DeliveryService
	logger   *logging.Logger
	metrics  *metrics.OrderFlowMetrics

	busy         busyGuard
	prefillToken atomic.Uint64
}

func NewShippingStep(store *Store, orders OrderService, delivery DeliveryService, logger *logging.Logger, m *metrics.OrderFlowMetrics) *ShippingStep {
	if logger == nil {
		logger = logging.Default()
	}
	return &ShippingStep{store: store, orders: orders, delivery: delivery, logger: logger, metrics: m}
}

// ShippingOutcome reports where a successful continue left the flow.
type ShippingOutcome struct {
	State State
	// OrderCreated is set when continue created the order; the caller should navigate
	// to the new order's status page.
	OrderCreated bool
}

// Busy reports whether a continue is in flight.
func (s *ShippingStep) Busy() bool {
	return s.busy.Busy()
}

// Prefill loads the stored delivery-info record for the selected method. Results for a
// method the patient has since switched away from are dropped.
func (s *ShippingStep) Prefill(ctx context.Context) State {
	token := s.prefillToken.Add(1)
	method := s.store.State().Shipping.Method

	info, err := s.delivery.DeliveryInfoByMethod(ctx, method.Wire())
	if err != nil {
		s.logger.Warn("fetch delivery info failed", "method", method, "error", err)
		return s.store.State()
	}

	patch := ShippingPatch{DeliveryInfoID: ptr("")}
	if info != nil {
		patch.DeliveryInfoID = ptr(string(info.ID))
		patch.Phone = ptr(info.PhoneNumber)
		if method == ShippingPickup {
			patch.PickupLocation = ptr(info.Address)
		} else {
			patch.Address = ptr(info.Address)
		}
	}

	state, applied := s.store.DispatchIf(ctx, func(st State) bool {
		return s.prefillToken.Load() == token && st.Shipping.Method == method
	}, SetShipping{Patch: patch})
	if !applied {
		s.metrics.ObserveStale("prefill")
	}
	return state
}

// SelectMethod switches the delivery method, clears the id and phone that belonged to
// the previous method, and prefills for the new one.
func (s *ShippingStep) SelectMethod(ctx context.Context, method ShippingMethod) State {
	if !method.Valid() || s.store.State().Shipping.Method == method {
		return s.store.State()
	}
	s.store.SetShipping(ctx, ShippingPatch{
		Method:         &method,
		DeliveryInfoID: ptr(""),
		Phone:          ptr(""),
	})
	return s.Prefill(ctx)
}

// Update merges form input. Phone input keeps digits only.
func (s *ShippingStep) Update(ctx context.Context, patch ShippingPatch) State {
	if patch.Phone != nil {
		patch.Phone = ptr(SanitizePhone(*patch.Phone))
	}
	// Method changes go through SelectMethod.
	patch.Method = nil
	return s.store.SetShipping(ctx, patch)
}

// Continue validates, saves the delivery info, and creates the order when the flow has
// none yet. A resumed flow moves to resumeTo, or the next step when resumeTo is empty.
func (s *ShippingStep) Continue(ctx context.Context, resumeTo StepID) (ShippingOutcome, error) {
	if !s.busy.acquire() {
		return ShippingOutcome{}, ErrBusy
	}
	defer s.busy.release()

	state := s.store.State()
	if err := ValidateShipping(state.Shipping); err != nil {
		return ShippingOutcome{State: state}, err
	}

	shipping := state.Shipping
	address := strings.TrimSpace(shipping.Address)
	if shipping.Method == ShippingPickup {
		address = strings.TrimSpace(shipping.PickupLocation)
	}
	payload := gateway.DeliveryInfo{
		ID:             gateway.ID(shipping.DeliveryInfoID),
		Address:        address,
		PhoneNumber:    strings.TrimSpace(shipping.Phone),
		DeliveryMethod: shipping.Method.Wire(),
	}

	deliveryInfoID := shipping.DeliveryInfoID
	if deliveryInfoID != "" {
		updated, err := s.delivery.UpdateDeliveryInfo(ctx, deliveryInfoID, payload)
		if err != nil {
			s.logger.Error("update delivery info failed", "delivery_info_id", deliveryInfoID, "error", err)
			return ShippingOutcome{State: state}, fmt.Errorf("update delivery info: %w", err)
		}
		if updated != nil && updated.ID != "" {
			deliveryInfoID = string(updated.ID)
		}
	} else {
		created, err := s.delivery.CreateDeliveryInfo(ctx, payload)
		if err != nil {
			s.logger.Error("create delivery info failed", "error", err)
			return ShippingOutcome{State: state}, fmt.Errorf("create delivery info: %w", err)
		}
		if created != nil && created.ID != "" {
			deliveryInfoID = string(created.ID)
		}
	}
	if deliveryInfoID != shipping.DeliveryInfoID {
		state = s.store.SetShipping(ctx, ShippingPatch{DeliveryInfoID: &deliveryInfoID})
	}

	if state.OrderID == "" {
		note := state.Note
		if strings.TrimSpace(note) == "" {
			note = shipping.Note
		}
		orderID, err := s.orders.CreateOrder(ctx, gateway.CreateOrderRequest{Note: note})
		if err != nil {
			s.logger.Error("create order failed", "error", err)
			return ShippingOutcome{State: state}, fmt.Errorf("create order: %w", err)
		}
		s.logger.Info("order created", "order_id", orderID)
		state = s.store.Dispatch(ctx, SetOrderID{OrderID: orderID}, GoToStep{Step: StepStatus})
		return ShippingOutcome{State: state, OrderCreated: true}, nil
	}

	if resumeTo != "" && IndexOfStep(state.Steps, resumeTo) >= 0 {
		state = s.store.GoToStep(ctx, resumeTo)
	} else {
		state = s.store.NextStep(ctx)
	}
	return ShippingOutcome{State: state}, nil
}
