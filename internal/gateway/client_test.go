package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, logging.Default(), WithAppointmentBaseURL(ts.URL))
}

func TestClient_ErrorMessageFromBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"note too long"}`))
	})

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Note: "x"})
	require.Error(t, err)
	assert.Equal(t, "note too long", err.Error())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "create_order", apiErr.Op)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestClient_FallbackMessageNamesOperation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream failed", http.StatusBadGateway)
	})

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{})
	require.Error(t, err)
	assert.Equal(t, "Failed to create order", err.Error())
}

func TestClient_TransportFailureUsesFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	client := NewClient(url, nil)
	_, err := client.GetMedicine(context.Background(), "m1")
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch medicine details", err.Error())
	assert.Equal(t, 0, StatusOf(err))
}

func TestClient_UnauthorizedRaisesSignal(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		ctx, signal := WithAuthSignal(context.Background())
		_, err := client.GetOrder(ctx, "o1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.True(t, signal.Raised(), "status %d should raise the auth signal", status)
	}
}

func TestClient_NonAuthErrorLeavesSignal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, signal := WithAuthSignal(context.Background())
	_, err := client.GetOrder(ctx, "o1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, signal.Raised())
}

func TestClient_ForwardsCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "sid=1", r.Header.Get("Cookie"))
		_, _ = w.Write([]byte(`{"id":"p1","first_name":"Ann"}`))
	})

	ctx := WithCredentials(context.Background(), Credentials{Authorization: "Bearer abc", Cookie: "sid=1"})
	patient, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ann", patient.FirstName)
}

func TestCredentialsFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer t")
	r.Header.Set("Cookie", "a=b")
	creds := CredentialsFromRequest(r)
	assert.Equal(t, Credentials{Authorization: "Bearer t", Cookie: "a=b"}, creds)
}

func TestCredentialsFromRequest_OmitsNamedCookies(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Cookie", "clinic_auth=abc; order_session=signed.jwt.value;theme=dark")

	creds := CredentialsFromRequest(r, "order_session")
	assert.Equal(t, "clinic_auth=abc; theme=dark", creds.Cookie)

	r.Header.Set("Cookie", "order_session=x")
	assert.Empty(t, CredentialsFromRequest(r, "order_session").Cookie)
}

func TestAuthSignalNilSafe(t *testing.T) {
	var signal *AuthSignal
	signal.Raise()
	assert.False(t, signal.Raised())
	assert.Nil(t, AuthSignalFrom(context.Background()))
}

func TestClient_SendsJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"hospital_id":"H1","password":"pw"}`, string(body))
		_, _ = w.Write([]byte(`{"token":"t1"}`))
	})

	resp, err := client.Login(context.Background(), LoginRequest{HospitalID: "H1", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "t1", resp.Token)
}

func TestIDAcceptsNumbers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"order_id": 42}`))
	})
	id, err := client.CreateOrder(context.Background(), CreateOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}
