package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// CreateOrder creates an order and returns its id.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error) {
	var resp CreateOrderResponse
	if _, err := c.do(ctx, call{
		op: "create_order", fallback: "Failed to create order",
		method: http.MethodPost, path: "/order/v1/orders",
		body: req, out: &resp, ok: []int{http.StatusOK, http.StatusCreated},
	}); err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", ErrMissingOrderID
	}
	return string(resp.OrderID), nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*OrderEnvelope, error) {
	var resp OrderEnvelope
	if _, err := c.do(ctx, call{
		op: "get_order", fallback: "Failed to fetch order",
		method: http.MethodGet, path: fmt.Sprintf("/order/v1/orders/%s", url.PathEscape(id)),
		out: &resp, ok: []int{http.StatusOK, http.StatusCreated, http.StatusNoContent},
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LatestOrder returns an empty envelope when the patient has no orders.
func (c *Client) LatestOrder(ctx context.Context) (*OrderEnvelope, error) {
	var resp OrderEnvelope
	if _, err := c.do(ctx, call{
		op: "latest_order", fallback: "Failed to fetch latest order",
		method: http.MethodGet, path: "/order/v1/orders/latest",
		out: &resp, ok: []int{http.StatusOK, http.StatusCreated, http.StatusNoContent},
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListOrders returns the patient's order history.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, call{
		op: "list_orders", fallback: "Failed to retrieve orders",
		method: http.MethodGet, path: "/order/v1/orders",
		out: &raw, ok: []int{http.StatusOK, http.StatusCreated, http.StatusNoContent},
	}); err != nil {
		return nil, err
	}
	return decodeList[Order](raw, "orders")
}
