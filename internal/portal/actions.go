package portal

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-order-portal/internal/orderflow"
)

// mount loads the order page: it syncs the flow with the path and renders the step.
func (h *Handler) mount(ctx context.Context, r *http.Request, f *Flow) result {
	f.Navigator.Mount(ctx, orderflow.Route{
		OrderID: chi.URLParam(r, "orderID"),
		Query:   r.URL.Query(),
	})
	view, err := h.stepView(ctx, f)
	return result{view: view, err: err}
}

// stepView renders the current step's page.
func (h *Handler) stepView(ctx context.Context, f *Flow) (any, error) {
	state := f.Store.State()
	switch state.CurrentStep {
	case orderflow.StepShipping:
		return state.Shipping, nil
	case orderflow.StepStatus:
		return f.Status.Refresh(ctx)
	case orderflow.StepResult:
		return f.Result.Refresh(ctx)
	case orderflow.StepReview:
		if state.OrderID == "" {
			return nil, orderflow.ErrOrderRequired
		}
		return f.Review.Load(ctx)
	case orderflow.StepPayment:
		return f.Payment.Summary(), nil
	}
	return nil, nil
}

func (h *Handler) next(ctx context.Context, _ *http.Request, f *Flow) result {
	f.Store.NextStep(ctx)
	view, err := h.stepView(ctx, f)
	return result{view: view, err: err}
}

func (h *Handler) previous(ctx context.Context, _ *http.Request, f *Flow) result {
	f.Store.PreviousStep(ctx)
	view, err := h.stepView(ctx, f)
	return result{view: view, err: err}
}

type gotoRequest struct {
	Step string `json:"step"`
}

func (h *Handler) goTo(ctx context.Context, r *http.Request, f *Flow) result {
	var req gotoRequest
	if err := decodeBody(r, &req); err != nil {
		return result{err: err}
	}
	step, ok := orderflow.ParseStep(req.Step)
	if !ok {
		return result{err: orderflow.FieldErrors{"step": "Unknown step"}}
	}
	f.Store.GoToStep(ctx, step)
	view, err := h.stepView(ctx, f)
	return result{view: view, err: err}
}

func (h *Handler) updateShipping(ctx context.Context, r *http.Request, f *Flow) result {
	var patch orderflow.ShippingPatch
	if err := decodeBody(r, &patch); err != nil {
		return result{err: err}
	}
	return result{view: f.Shipping.Update(ctx, patch).Shipping}
}

type methodRequest struct {
	Method string `json:"method"`
}

func (h *Handler) selectShippingMethod(ctx context.Context, r *http.Request, f *Flow) result {
	var req methodRequest
	if err := decodeBody(r, &req); err != nil {
		return result{err: err}
	}
	method := orderflow.ShippingMethod(req.Method)
	if !method.Valid() {
		return result{err: orderflow.FieldErrors{"method": "Unknown delivery method"}}
	}
	return result{view: f.Shipping.SelectMethod(ctx, method).Shipping}
}

type continueRequest struct {
	ResumeTo string `json:"resumeTo"`
}

func (h *Handler) continueShipping(ctx context.Context, r *http.Request, f *Flow) result {
	var req continueRequest
	if err := decodeBody(r, &req); err != nil {
		return result{err: err}
	}
	var resumeTo orderflow.StepID
	if step, ok := orderflow.ParseStep(req.ResumeTo); ok {
		resumeTo = step
	}
	outcome, err := f.Shipping.Continue(ctx, resumeTo)
	if err != nil {
		return result{view: f.Store.State().Shipping, err: err}
	}
	view, err := h.stepView(ctx, f)
	return result{view: view, push: outcome.OrderCreated, err: err}
}

func (h *Handler) refreshStatus(ctx context.Context, _ *http.Request, f *Flow) result {
	view, err := f.Status.Refresh(ctx)
	return result{view: view, err: err}
}

func (h *Handler) loadReview(ctx context.Context, _ *http.Request, f *Flow) result {
	view, err := f.Review.Load(ctx)
	return result{view: view, err: err}
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *Handler) updateNote(ctx context.Context, r *http.Request, f *Flow) result {
	var req noteRequest
	if err := decodeBody(r, &req); err != nil {
		return result{err: err}
	}
	return result{view: map[string]string{"note": f.Review.UpdateNote(ctx, req.Note).Note}}
}

func (h *Handler) selectPaymentMethod(ctx context.Context, r *http.Request, f *Flow) result {
	var req methodRequest
	if err := decodeBody(r, &req); err != nil {
		return result{err: err}
	}
	method := orderflow.PaymentMethod(req.Method)
	if !method.Valid() {
		return result{err: orderflow.FieldErrors{"method": "Unknown payment method"}}
	}
	f.Payment.SelectMethod(ctx, method)
	return result{view: f.Payment.Summary()}
}

func (h *Handler) updateCard(ctx context.Context, r *http.Request, f *Flow) result {
	var patch orderflow.CardPatch
	if err := decodeBody(r, &patch); err != nil {
		return result{err: err}
	}
	f.Payment.UpdateCard(ctx, patch)
	return result{view: f.Payment.Summary()}
}

func (h *Handler) updatePromptPay(ctx context.Context, r *http.Request, f *Flow) result {
	var patch orderflow.PromptPayPatch
	if err := decodeBody(r, &patch); err != nil {
		return result{err: err}
	}
	f.Payment.UpdatePromptPay(ctx, patch)
	return result{view: f.Payment.Summary()}
}

func (h *Handler) submitPayment(ctx context.Context, _ *http.Request, f *Flow) result {
	if _, err := f.Payment.Submit(ctx); err != nil {
		return result{view: f.Payment.Summary(), err: err}
	}
	return result{view: f.Status.View()}
}

func (h *Handler) refreshResult(ctx context.Context, _ *http.Request, f *Flow) result {
	view, err := f.Result.Refresh(ctx)
	return result{view: view, err: err}
}

func (h *Handler) startOver(ctx context.Context, _ *http.Request, f *Flow) result {
	state, _ := f.Result.StartOver(ctx)
	return result{view: state.Shipping, push: true}
}

func (h *Handler) beginFromHistory(ctx context.Context, r *http.Request, f *Flow) result {
	state, err := f.History.Begin(ctx, chi.URLParam(r, "historyID"))
	if err != nil {
		return result{err: err}
	}
	return result{view: state.Shipping, push: true}
}
