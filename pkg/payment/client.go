package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"pictora-hq/relay/pkg/config"
	"pictora-hq/relay/pkg/proxy"
	"pictora-hq/relay/pkg/telemetry/tracing"
	"pictora-hq/relay/pkg/upstream"
)

// ProviderPayPal labels PayPal calls in logs, metrics, and the journal.
const ProviderPayPal = "paypal"

// StatusCompleted is the PayPal order and capture status for a finished payment.
const StatusCompleted = "COMPLETED"

// Money is a PayPal amount.
type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// Capture is one capture of an order payment.
type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount *Money `json:"amount,omitempty"`
}

// PurchaseUnit is one purchase unit of an order.
type PurchaseUnit struct {
	Amount      *Money `json:"amount,omitempty"`
	Description string `json:"description,omitempty"`
	Payments    *struct {
		Captures []Capture `json:"captures"`
	} `json:"payments,omitempty"`
}

// Order is the subset of a PayPal order the relay reads.
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

// FirstCapture returns purchase_units[0].payments.captures[0], if present.
func (o *Order) FirstCapture() *Capture {
	if len(o.PurchaseUnits) == 0 || o.PurchaseUnits[0].Payments == nil || len(o.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil
	}
	return &o.PurchaseUnits[0].Payments.Captures[0]
}

// Amount returns the first purchase unit amount value, or "".
func (o *Order) Amount() string {
	if len(o.PurchaseUnits) == 0 || o.PurchaseUnits[0].Amount == nil {
		return ""
	}
	return o.PurchaseUnits[0].Amount.Value
}

type createOrderBody struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

// Client calls the PayPal Orders v2 API. Every call is a single attempt.
type Client struct {
	cfg          config.PayPalConfig
	baseURL      string
	http         *upstream.Client
	tokens       *TokenSource
	newRequestID func() string
}

// NewClient creates a PayPal client. Credentials are checked per call so
// an unconfigured relay still starts.
func NewClient(cfg config.PayPalConfig, httpClient *upstream.Client) *Client {
	base := strings.TrimRight(cfg.APIBaseURL(), "/")
	return &Client{
		cfg:          cfg,
		baseURL:      base,
		http:         httpClient,
		tokens:       NewTokenSource(base, cfg.ClientID, cfg.ClientSecret, httpClient),
		newRequestID: uuid.NewString,
	}
}

// Configured reports whether both credentials are set.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

func (c *Client) checkConfigured() error {
	if c.cfg.ClientID == "" {
		return &proxy.ConfigError{Setting: "PAYPAL_CLIENT_ID"}
	}
	if c.cfg.ClientSecret == "" {
		return &proxy.ConfigError{Setting: "PAYPAL_CLIENT_SECRET"}
	}
	return nil
}

// CreateOrder creates a CAPTURE-intent order for amount. An empty currency
// uses the configured default.
func (c *Client) CreateOrder(ctx context.Context, amount, currency, description string) (*Order, error) {
	if currency == "" {
		currency = c.cfg.Currency
	}
	if currency == "" {
		currency = config.DefaultPayPalCurrency
	}

	body := createOrderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []PurchaseUnit{{
			Amount:      &Money{CurrencyCode: currency, Value: amount},
			Description: description,
		}},
	}
	return c.call(ctx, http.MethodPost, "/v2/checkout/orders", body, "")
}

// CaptureOrder captures an approved order. A fresh PayPal-Request-Id is
// sent on every call and the call is never retried.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	tracing.SetOrderAttribute(tracing.SpanFromContext(ctx), orderID)
	return c.call(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", nil, c.newRequestID())
}

// GetOrder fetches an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	tracing.SetOrderAttribute(tracing.SpanFromContext(ctx), orderID)
	return c.call(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), nil, "")
}

func (c *Client) call(ctx context.Context, method, path string, payload any, requestID string) (*Order, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode paypal request: %w", err)
		}
		body = bytes.NewReader(data)
	} else if method == http.MethodPost {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build paypal request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		return nil, &upstream.Error{
			Provider:   ProviderPayPal,
			StatusCode: resp.StatusCode,
			Message:    paypalErrorMessage(resp.Body),
			Body:       resp.Body,
		}
	}

	var order Order
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, &upstream.Error{Provider: ProviderPayPal, Message: "invalid order response", Cause: err}
	}
	return &order, nil
}

// paypalErrorMessage extracts a readable message from a PayPal error body.
// Both the Orders API shape and the OAuth shape are understood.
func paypalErrorMessage(body []byte) string {
	var e struct {
		Name             string `json:"name"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Details          []struct {
			Issue       string `json:"issue"`
			Description string `json:"description"`
		} `json:"details"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return strings.TrimSpace(string(body))
	}

	switch {
	case len(e.Details) > 0 && e.Details[0].Issue != "":
		msg := e.Details[0].Issue
		if e.Details[0].Description != "" {
			msg += ": " + e.Details[0].Description
		}
		return msg
	case e.Name != "":
		return e.Name + ": " + e.Message
	case e.Error != "":
		return e.Error + ": " + e.ErrorDescription
	}
	return strings.TrimSpace(string(body))
}
