package gateway

import (
	"context"
	"encoding/json"
	"net/http"
)

// Login authenticates a patient with their hospital id.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if _, err := c.do(ctx, call{
		op: "login", fallback: "Incorrect ID or Password",
		method: http.MethodPost, path: "/user/v1/patient/login",
		body: req, out: &resp, ok: []int{http.StatusOK},
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Patient, error) {
	var resp Patient
	if _, err := c.do(ctx, call{
		op: "register", fallback: "Failed to register patient",
		method: http.MethodPost, path: "/user/v1/patient/register",
		body: req, out: &resp, ok: []int{http.StatusOK, http.StatusCreated},
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the signed-in patient's profile.
func (c *Client) Me(ctx context.Context) (*Patient, error) {
	var resp Patient
	if _, err := c.do(ctx, call{
		op: "get_profile", fallback: "Failed to fetch profile",
		method: http.MethodGet, path: "/user/v1/patient/me",
		out: &resp, ok: []int{http.StatusOK},
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Patient, error) {
	var resp Patient
	if _, err := c.do(ctx, call{
		op: "update_profile", fallback: "Failed to update user profile",
		method: http.MethodPut, path: "/user/v1/patient/me",
		body: req, out: &resp, ok: []int{http.StatusOK, http.StatusCreated},
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListDoctors(ctx context.Context) ([]Doctor, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, call{
		op: "list_doctors", fallback: "Failed to fetch doctors",
		method: http.MethodGet, path: "/user/v1/doctors",
		out: &raw, ok: []int{http.StatusOK, http.StatusCreated},
	}); err != nil {
		return nil, err
	}
	return decodeList[Doctor](raw, "doctors")
}

// DoctorsByIDs looks doctors up by id list.
func (c *Client) DoctorsByIDs(ctx context.Context, ids []string) ([]Doctor, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, call{
		op: "get_doctors", fallback: "Failed to fetch doctor details",
		method: http.MethodPost, path: "/user/v1/doctors",
		body: map[string][]string{"doctor_ids": ids},
		out:  &raw, ok: []int{http.StatusOK, http.StatusCreated},
	}); err != nil {
		return nil, err
	}
	return decodeList[Doctor](raw, "doctors")
}
