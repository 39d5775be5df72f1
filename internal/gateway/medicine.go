package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) ListMedicines(ctx context.Context) ([]Medicine, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, call{
		op: "list_medicines", fallback: "Failed to fetch medicines list",
		method: http.MethodGet, path: "/medicine/v1/medicines",
		out: &raw, ok: []int{http.StatusOK, http.StatusCreated},
	}); err != nil {
		return nil, err
	}
	return decodeList[Medicine](raw, "medicines")
}

// GetMedicine returns a medicine's unit price and unit.
func (c *Client) GetMedicine(ctx context.Context, id string) (*Medicine, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, call{
		op: "get_medicine", fallback: "Failed to fetch medicine details",
		method: http.MethodGet, path: fmt.Sprintf("/medicine/v1/medicines/%s", url.PathEscape(id)),
		out: &raw, ok: []int{http.StatusOK, http.StatusCreated},
	}); err != nil {
		return nil, err
	}
	med, err := decodeOne[Medicine](raw, "medicine")
	if err != nil {
		return nil, err
	}
	return &med, nil
}
