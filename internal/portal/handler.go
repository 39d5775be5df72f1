package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-order-portal/internal/gateway"
	httpmiddleware "github.com/wolfman30/clinic-order-portal/internal/http/middleware"
	"github.com/wolfman30/clinic-order-portal/internal/orderflow"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

const (
	historyReplace = "replace"
	historyPush    = "push"

	bannerBusy          = "Your previous request is still being processed"
	bannerOrderRequired = "Please complete the shipping details first"
	bannerOrderNotFound = "We could not find this order"
	bannerHistoryGone   = "That order is no longer available"
	bannerInvalidBody   = "The request could not be read"
	bannerUnexpected    = "Something went wrong, please try again"
)

var errInvalidBody = errors.New("portal: invalid request body")

// Handler serves the order flow as JSON, one flow per session.
type Handler struct {
	registry      *Registry
	loginPath     string
	sessionCookie string
	logger        *logging.Logger
}

// NewHandler serves flows from registry. sessionCookie names the portal's own cookie,
// which is never forwarded to the clinic services.
func NewHandler(registry *Registry, loginPath, sessionCookie string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Handler{registry: registry, loginPath: loginPath, sessionCookie: sessionCookie, logger: logger}
}

type response struct {
	Step    orderflow.StepID          `json:"step"`
	Steps   []orderflow.TimelineEntry `json:"steps"`
	URL     string                    `json:"url"`
	History string                    `json:"history"`
	State   orderflow.State           `json:"state"`
	View    any                       `json:"view,omitempty"`
	Banner  string                    `json:"banner,omitempty"`
	Errors  orderflow.FieldErrors     `json:"errors,omitempty"`
}

// result is what an action hands back to the renderer.
type result struct {
	view any
	push bool
	err  error
}

type action func(ctx context.Context, r *http.Request, f *Flow) result

// Register adds the order routes to r. submit wraps the routes that create remote
// records.
func (h *Handler) Register(r chi.Router, submit func(http.Handler) http.Handler) {
	if submit == nil {
		submit = func(next http.Handler) http.Handler { return next }
	}
	r.Route("/order", func(r chi.Router) {
		r.Post("/history/{historyID}/begin", h.serve(false, h.beginFromHistory))
		h.flowRoutes(r, submit)
		r.Route("/{orderID}", func(r chi.Router) {
			h.flowRoutes(r, submit)
		})
	})
}

func (h *Handler) flowRoutes(r chi.Router, submit func(http.Handler) http.Handler) {
	r.Get("/", h.serve(false, h.mount))
	r.Post("/next", h.serve(true, h.next))
	r.Post("/previous", h.serve(true, h.previous))
	r.Post("/goto", h.serve(true, h.goTo))

	r.Patch("/shipping", h.serve(true, h.updateShipping))
	r.Post("/shipping/method", h.serve(true, h.selectShippingMethod))
	r.With(submit).Post("/shipping/continue", h.serve(true, h.continueShipping))

	r.Post("/status/refresh", h.serve(true, h.refreshStatus))

	r.Get("/review", h.serve(true, h.loadReview))
	r.Put("/review/note", h.serve(true, h.updateNote))

	r.Put("/payment/method", h.serve(true, h.selectPaymentMethod))
	r.Patch("/payment/card", h.serve(true, h.updateCard))
	r.Patch("/payment/promptpay", h.serve(true, h.updatePromptPay))
	r.With(submit).Post("/payment/submit", h.serve(true, h.submitPayment))

	r.Post("/result/refresh", h.serve(true, h.refreshResult))
	r.Post("/result/start-over", h.serve(true, h.startOver))
}

// serve resolves the session's flow, runs fn with the caller's credentials, and renders
// the outcome. When sync is set and the path names an order other than the stored one,
// the flow is remounted on the path first.
func (h *Handler) serve(sync bool, fn action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := httpmiddleware.SessionIDFromContext(r.Context())
		if !ok {
			h.logger.Error("order request without session")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session unavailable"})
			return
		}

		ctx, signal := gateway.WithAuthSignal(r.Context())
		ctx = gateway.WithCredentials(ctx, gateway.CredentialsFromRequest(r, h.sessionCookie))

		f := h.registry.Flow(ctx, sessionID)
		if orderID := chi.URLParam(r, "orderID"); sync && orderID != "" && orderID != f.Store.State().OrderID {
			f.Navigator.Mount(ctx, orderflow.Route{OrderID: orderID, Query: r.URL.Query()})
		}

		res := fn(ctx, r, f)

		if signal.Raised() || errors.Is(res.err, gateway.ErrUnauthorized) {
			h.redirectToLogin(w, r)
			return
		}
		h.render(ctx, w, f, res)
	}
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := h.loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) render(ctx context.Context, w http.ResponseWriter, f *Flow, res result) {
	status := http.StatusOK
	resp := response{View: res.view}

	var fields orderflow.FieldErrors
	var apiErr *gateway.APIError
	switch {
	case res.err == nil:
	case errors.As(res.err, &fields):
		status = http.StatusUnprocessableEntity
		resp.Errors = fields
	case errors.Is(res.err, orderflow.ErrBusy):
		status = http.StatusConflict
		resp.Banner = bannerBusy
	case errors.Is(res.err, orderflow.ErrOrderRequired):
		f.Store.GoToStep(ctx, orderflow.StepShipping)
		status = http.StatusConflict
		resp.Banner = bannerOrderRequired
	case errors.Is(res.err, orderflow.ErrOrderNotFound):
		status = http.StatusNotFound
		resp.Banner = bannerOrderNotFound
	case errors.Is(res.err, orderflow.ErrHistoryNotFound):
		status = http.StatusNotFound
		resp.Banner = bannerHistoryGone
	case errors.Is(res.err, errInvalidBody):
		status = http.StatusBadRequest
		resp.Banner = bannerInvalidBody
	case errors.As(res.err, &apiErr):
		status = http.StatusBadGateway
		resp.Banner = apiErr.Message
	default:
		status = http.StatusInternalServerError
		resp.Banner = bannerUnexpected
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("order request failed", "status", status, "error", res.err)
	}

	state := f.Store.State()
	resp.State = state
	resp.Step = state.CurrentStep
	resp.Steps = orderflow.StepProgress(state.CurrentStep, orderflow.StepCatalog())
	resp.URL, _ = f.Navigator.ReplaceURL()
	resp.History = historyReplace
	if res.push {
		resp.History = historyPush
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
