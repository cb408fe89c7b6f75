// Package lnbits is a minimal client for the LNbits payments API, covering
// the two calls the L402 gate needs: creating an invoice and querying its
// settlement status.
package lnbits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lightning-goats/l402/pkg/l402"
)

// DefaultTimeout bounds every request to the LNbits API so a stalled
// provider cannot block request handling indefinitely.
const DefaultTimeout = 10 * time.Second

// Config holds configuration for the LNbits client.
type Config struct {
	// BaseURL is the LNbits instance URL, without a trailing slash.
	BaseURL string

	// APIKey is the wallet API key, sent as X-Api-Key on every request.
	APIKey string

	// Timeout is the HTTP client timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Client talks to a single LNbits instance. It is safe for concurrent use.
// It performs no retries and caches nothing: every settlement check is a
// fresh query, trading latency for always-current status.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates an LNbits client from config.
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// APIError reports a non-2xx response from the LNbits API, carrying the
// upstream status and body for diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lnbits API error: status %d: %s", e.StatusCode, e.Body)
}

// createInvoiceRequest is the POST /api/v1/payments body. out=false asks
// LNbits for an incoming (receivable) invoice.
type createInvoiceRequest struct {
	Out    bool   `json:"out"`
	Amount int64  `json:"amount"`
	Memo   string `json:"memo"`
}

type createInvoiceResponse struct {
	PaymentRequest string `json:"payment_request"`
	PaymentHash    string `json:"payment_hash"`
}

// CreateInvoice creates a new invoice for amount satoshis and returns its
// payment request and payment hash.
func (c *Client) CreateInvoice(ctx context.Context, amount int64, memo string) (*l402.Invoice, error) {
	body, err := json.Marshal(createInvoiceRequest{Out: false, Amount: amount, Memo: memo})
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var invoice createInvoiceResponse
	if err := c.do(req, &invoice); err != nil {
		return nil, err
	}
	return &l402.Invoice{
		PaymentRequest: invoice.PaymentRequest,
		PaymentHash:    invoice.PaymentHash,
	}, nil
}

type paymentStatusResponse struct {
	Paid bool `json:"paid"`
}

// PaymentStatus reports whether the invoice identified by paymentHash has
// settled.
func (c *Client) PaymentStatus(ctx context.Context, paymentHash string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/payments/"+paymentHash, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	var status paymentStatusResponse
	if err := c.do(req, &status); err != nil {
		return false, err
	}
	return status.Paid, nil
}

// do executes a request and decodes a 2xx JSON response into out.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("lnbits request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse lnbits response: %w", err)
	}
	return nil
}
