package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Slots returns a doctor's open slots keyed by date.
func (c *Client) Slots(ctx context.Context, doctorID string) (map[string][]Slot, error) {
	var resp map[string][]Slot
	if _, err := c.do(ctx, call{
		op: "get_slots", fallback: "Failed to fetch appointment slots",
		method: http.MethodGet, base: c.appointmentBaseURL,
		path: fmt.Sprintf("/appointment/v1/doctor/%s/slots", url.PathEscape(doctorID)),
		out:  &resp, ok: []int{http.StatusOK},
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) BookAppointment(ctx context.Context, req BookAppointmentRequest) (*Appointment, error) {
	var resp Appointment
	if _, err := c.do(ctx, call{
		op: "book_appointment", fallback: "Failed to book appointment",
		method: http.MethodPost, base: c.appointmentBaseURL, path: "/appointment/v1/patient",
		body: req, out: &resp, ok: []int{http.StatusCreated},
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AppointmentHistory lists past appointments; 204 means none.
func (c *Client) AppointmentHistory(ctx context.Context) ([]Appointment, error) {
	return c.listAppointments(ctx, "appointment_history", "/appointment/v1/patient/history")
}

func (c *Client) IncomingAppointments(ctx context.Context) ([]Appointment, error) {
	return c.listAppointments(ctx, "incoming_appointments", "/appointment/v1/patient/incoming")
}

// LatestAppointment returns nil when the patient has none.
func (c *Client) LatestAppointment(ctx context.Context) (*Appointment, error) {
	var raw json.RawMessage
	status, err := c.do(ctx, call{
		op: "latest_appointment", fallback: "Failed to fetch latest appointment",
		method: http.MethodGet, base: c.appointmentBaseURL, path: "/appointment/v1/patient/history/latest",
		out: &raw, ok: []int{http.StatusOK, http.StatusNoContent},
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || len(raw) == 0 {
		return nil, nil
	}
	appt, err := decodeOne[Appointment](raw, "appointment")
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (c *Client) listAppointments(ctx context.Context, op, path string) ([]Appointment, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, call{
		op: op, fallback: "Failed to fetch appointments",
		method: http.MethodGet, base: c.appointmentBaseURL, path: path,
		out: &raw, ok: []int{http.StatusOK, http.StatusNoContent},
	}); err != nil {
		return nil, err
	}
	return decodeList[Appointment](raw, "appointments")
}
