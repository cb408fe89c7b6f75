package lnbits

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/payments", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))

		var body struct {
			Out    bool   `json:"out"`
			Amount int64  `json:"amount"`
			Memo   string `json:"memo"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body.Out)
		assert.Equal(t, int64(1000), body.Amount)
		assert.Equal(t, "Access Payment", body.Memo)

		json.NewEncoder(w).Encode(map[string]string{
			"payment_request": "lnbc10n1payme",
			"payment_hash":    "deadbeef",
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-api-key"})
	invoice, err := client.CreateInvoice(context.Background(), 1000, "Access Payment")
	require.NoError(t, err)
	assert.Equal(t, "lnbc10n1payme", invoice.PaymentRequest)
	assert.Equal(t, "deadbeef", invoice.PaymentHash)
}

func TestCreateInvoice_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "wallet not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "k"})
	_, err := client.CreateInvoice(context.Background(), 1000, "memo")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "wallet not found")
}

func TestPaymentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/payments/deadbeef", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"paid":     true,
			"preimage": "0000",
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-api-key"})
	paid, err := client.PaymentStatus(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestPaymentStatus_Unpaid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"paid": false})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "k"})
	paid, err := client.PaymentStatus(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestPaymentStatus_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(Config{BaseURL: server.URL, APIKey: "k"})
	_, err := client.PaymentStatus(context.Background(), "deadbeef")
	require.Error(t, err)

	// Transport failures are wrapped plainly, not reported as APIErrors.
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestPaymentStatus_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "k"})
	_, err := client.PaymentStatus(context.Background(), "deadbeef")
	assert.ErrorContains(t, err, "parse")
}
