package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// CreatePaymentInfo stores encoded payment details and returns the new record.
func (c *Client) CreatePaymentInfo(ctx context.Context, req PaymentInfoRequest) (*PaymentInfo, error) {
	var resp paymentInfoEnvelope
	if _, err := c.do(ctx, call{
		op: "create_payment_info", fallback: "Failed to create payment information",
		method: http.MethodPost, path: "/payment/v1/info",
		body: req, out: &resp, ok: []int{http.StatusCreated},
	}); err != nil {
		return nil, err
	}
	info := resp.info()
	if info.ID == "" {
		return nil, ErrMissingPaymentInfoID
	}
	return &info, nil
}

func (c *Client) GetPaymentInfo(ctx context.Context, id string) (*PaymentInfo, error) {
	var resp paymentInfoEnvelope
	if _, err := c.do(ctx, call{
		op: "get_payment_info", fallback: "Failed to fetch payment information",
		method: http.MethodGet, path: fmt.Sprintf("/payment/v1/info/%s", url.PathEscape(id)),
		out: &resp, ok: []int{http.StatusOK},
	}); err != nil {
		return nil, err
	}
	info := resp.info()
	return &info, nil
}

func (c *Client) ListPaymentInfo(ctx context.Context) ([]PaymentInfo, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, call{
		op: "list_payment_info", fallback: "Failed to list payment information",
		method: http.MethodGet, path: "/payment/v1/info",
		out: &raw, ok: []int{http.StatusOK},
	}); err != nil {
		return nil, err
	}
	return decodeList[PaymentInfo](raw, "payment_info")
}

func (c *Client) UpdatePaymentInfo(ctx context.Context, req PaymentInfoRequest) (*PaymentInfo, error) {
	var resp paymentInfoEnvelope
	if _, err := c.do(ctx, call{
		op: "update_payment_info", fallback: "Failed to update payment information",
		method: http.MethodPut, path: "/payment/v1/info",
		body: req, out: &resp, ok: []int{http.StatusOK},
	}); err != nil {
		return nil, err
	}
	info := resp.info()
	return &info, nil
}

// DeletePaymentInfo removes a payment-info record; the id travels in the body.
func (c *Client) DeletePaymentInfo(ctx context.Context, id string) error {
	_, err := c.do(ctx, call{
		op: "delete_payment_info", fallback: "Failed to delete payment information",
		method: http.MethodDelete, path: "/payment/v1/info",
		body: map[string]string{"id": id}, ok: []int{http.StatusOK, http.StatusNoContent},
	})
	return err
}

// CreatePaymentAttempt records an attempt to pay order with a stored payment info.
func (c *Client) CreatePaymentAttempt(ctx context.Context, req PaymentAttemptRequest) (*PaymentAttempt, error) {
	var resp paymentAttemptEnvelope
	if _, err := c.do(ctx, call{
		op: "create_payment_attempt", fallback: "Failed to create payment attempt",
		method: http.MethodPost, path: "/payment/v1/attempt",
		body: req, out: &resp, ok: []int{http.StatusCreated},
	}); err != nil {
		return nil, err
	}
	attempt := resp.attempt()
	return &attempt, nil
}

func (c *Client) UpdatePaymentAttempt(ctx context.Context, req UpdatePaymentAttemptRequest) (*PaymentAttempt, error) {
	var resp paymentAttemptEnvelope
	if _, err := c.do(ctx, call{
		op: "update_payment_attempt", fallback: "Failed to update payment attempt",
		method: http.MethodPatch, path: "/payment/v1/attempt",
		body: req, out: &resp, ok: []int{http.StatusOK},
	}); err != nil {
		return nil, err
	}
	attempt := resp.attempt()
	return &attempt, nil
}

func (c *Client) GetPaymentAttempt(ctx context.Context, id string) (*PaymentAttempt, error) {
	var resp paymentAttemptEnvelope
	if _, err := c.do(ctx, call{
		op: "get_payment_attempt", fallback: "Failed to fetch payment attempt",
		method: http.MethodGet, path: fmt.Sprintf("/payment/v1/attempt/%s", url.PathEscape(id)),
		out: &resp, ok: []int{http.StatusOK},
	}); err != nil {
		return nil, err
	}
	attempt := resp.attempt()
	return &attempt, nil
}

func (c *Client) PaymentAttemptsForOrder(ctx context.Context, orderID string) ([]PaymentAttempt, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, call{
		op: "list_payment_attempts", fallback: "Failed to fetch payment attempts for order",
		method: http.MethodGet, path: "/payment/v1/attempt",
		query: url.Values{"order_id": []string{orderID}},
		out:   &raw, ok: []int{http.StatusOK},
	}); err != nil {
		return nil, err
	}
	return decodeList[PaymentAttempt](raw, "payment_attempts")
}
