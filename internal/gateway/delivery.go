package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateDeliveryInfo stores a delivery-info record. The returned record is nil when the
// service does not echo one back.
func (c *Client) CreateDeliveryInfo(ctx context.Context, info DeliveryInfo) (*DeliveryInfo, error) {
	var resp deliveryInfoEnvelope
	if _, err := c.do(ctx, call{
		op: "create_delivery_info", fallback: "Failed to create delivery info",
		method: http.MethodPost, path: "/delivery-info/v1",
		body: info, out: &resp, ok: []int{http.StatusOK, http.StatusCreated},
	}); err != nil {
		return nil, err
	}
	return resp.DeliveryInfo, nil
}

func (c *Client) UpdateDeliveryInfo(ctx context.Context, id string, info DeliveryInfo) (*DeliveryInfo, error) {
	var resp deliveryInfoEnvelope
	if _, err := c.do(ctx, call{
		op: "update_delivery_info", fallback: "Failed to update delivery info",
		method: http.MethodPut, path: fmt.Sprintf("/delivery-info/v1/%s", url.PathEscape(id)),
		body: info, out: &resp, ok: []int{http.StatusOK, http.StatusNoContent},
	}); err != nil {
		return nil, err
	}
	return resp.DeliveryInfo, nil
}

// DeliveryInfoByMethod returns the stored record for method, or nil when there is none
// (204 or 404).
func (c *Client) DeliveryInfoByMethod(ctx context.Context, method DeliveryMethod) (*DeliveryInfo, error) {
	q := url.Values{}
	if method != "" {
		q.Set("method", string(method))
	}
	var resp deliveryInfoEnvelope
	status, err := c.do(ctx, call{
		op: "get_delivery_info", fallback: "Failed to get delivery info",
		method: http.MethodGet, path: "/delivery-info/v1/methods", query: q,
		out: &resp, ok: []int{http.StatusOK, http.StatusNoContent, http.StatusNotFound},
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, nil
	}
	return resp.DeliveryInfo, nil
}
