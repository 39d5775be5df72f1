package orderflow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/clinic-order-portal/internal/gateway"
	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// PaymentSummary is the amount shown on the payment page.
type PaymentSummary struct {
	Method      PaymentMethod   `json:"method"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
}

// PaymentStep captures the payment method and submits it for the flow's order.
type PaymentStep struct {
	store    *Store
	payments PaymentService
	orphans  OrphanRecorder
	logger   *logging.Logger
	metrics  *metrics.OrderFlowMetrics

	busy busyGuard
}

func NewPaymentStep(store *Store, payments PaymentService, orphans OrphanRecorder, logger *logging.Logger, m *metrics.OrderFlowMetrics) *PaymentStep {
	if logger == nil {
		logger = logging.Default()
	}
	return &PaymentStep{store: store, payments: payments, orphans: orphans, logger: logger, metrics: m}
}

func (p *PaymentStep) Busy() bool {
	return p.busy.Busy()
}

// Summary totals the stored items. There is no delivery fee.
func (p *PaymentStep) Summary() PaymentSummary {
	state := p.store.State()
	subtotal := Subtotal(state.Items)
	return PaymentSummary{
		Method:      state.Payment.Method,
		Subtotal:    subtotal,
		DeliveryFee: decimal.Zero,
		Total:       subtotal,
	}
}

func (p *PaymentStep) SelectMethod(ctx context.Context, method PaymentMethod) State {
	return p.store.SetPaymentMethod(ctx, method)
}

func (p *PaymentStep) UpdateCard(ctx context.Context, patch CardPatch) State {
	return p.store.SetCardDraft(ctx, patch)
}

// UpdatePromptPay merges the PromptPay draft; the phone keeps digits only.
func (p *PaymentStep) UpdatePromptPay(ctx context.Context, patch PromptPayPatch) State {
	if patch.PhoneNumber != nil {
		patch.PhoneNumber = ptr(SanitizePhone(*patch.PhoneNumber))
	}
	return p.store.SetPromptPayDraft(ctx, patch)
}

// Submit validates the selected draft, creates the payment info and the attempt for the
// order, then marks the order processing and moves to the result step. If the attempt
// fails after the info was created, the info is recorded as orphaned; nothing is undone.
func (p *PaymentStep) Submit(ctx context.Context) (State, error) {
	if !p.busy.acquire() {
		return State{}, ErrBusy
	}
	defer p.busy.release()

	state := p.store.State()
	if state.OrderID == "" {
		return state, ErrOrderRequired
	}
	if err := ValidatePayment(state.Payment); err != nil {
		return state, err
	}

	details, err := EncodeDetails(DetailsFor(state.Payment))
	if err != nil {
		return state, err
	}

	info, err := p.payments.CreatePaymentInfo(ctx, gateway.PaymentInfoRequest{
		PaymentMethod: gateway.PaymentMethod(state.Payment.Method),
		Details:       details,
	})
	if err != nil {
		p.metrics.ObservePayment("info_failed")
		p.logger.Error("create payment info failed", "order_id", state.OrderID, "error", err)
		return state, fmt.Errorf("create payment info: %w", err)
	}

	if _, err := p.payments.CreatePaymentAttempt(ctx, gateway.PaymentAttemptRequest{
		OrderID:       state.OrderID,
		PaymentInfoID: string(info.ID),
	}); err != nil {
		p.metrics.ObservePayment("attempt_failed")
		p.logger.Error("create payment attempt failed, payment info left orphaned",
			"order_id", state.OrderID, "payment_info_id", info.ID, "error", err)
		p.recordOrphan(ctx, Orphan{
			PaymentInfoID: string(info.ID),
			OrderID:       state.OrderID,
			PaymentMethod: state.Payment.Method,
			Reason:        err.Error(),
		})
		return state, fmt.Errorf("create payment attempt: %w", err)
	}

	p.metrics.ObservePayment("success")
	p.logger.Info("payment submitted", "order_id", state.OrderID, "payment_info_id", info.ID)
	return p.store.Dispatch(ctx, SetStatus{Status: StatusProcessing}, GoToStep{Step: StepResult}), nil
}

func (p *PaymentStep) recordOrphan(ctx context.Context, orphan Orphan) {
	if p.orphans == nil {
		return
	}
	if err := p.orphans.RecordOrphan(ctx, orphan); err != nil {
		p.logger.Error("failed to record orphaned payment info", "payment_info_id", orphan.PaymentInfoID, "error", err)
	}
}
