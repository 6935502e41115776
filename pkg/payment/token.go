package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"pictora-hq/relay/pkg/upstream"
)

// tokenRefreshMargin is how long before expiry a cached token is replaced.
const tokenRefreshMargin = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenSource fetches and caches PayPal OAuth access tokens using the
// client-credentials grant.
type TokenSource struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *upstream.Client
	now          func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenSource creates a token source for the given PayPal host.
func NewTokenSource(baseURL, clientID, clientSecret string, client *upstream.Client) *TokenSource {
	return &TokenSource{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       client,
		now:          time.Now,
	}
}

// Token returns a cached token, or fetches a new one when the cached token
// is missing or within a minute of expiring. Concurrent callers share one
// fetch because the lock is held across it.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expiry) {
		return ts.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(ts.clientID, ts.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token request failed: %w", err)
	}
	if !resp.OK() {
		return "", &upstream.Error{
			Provider:   ProviderPayPal,
			StatusCode: resp.StatusCode,
			Message:    "failed to obtain access token: " + paypalErrorMessage(resp.Body),
			Body:       resp.Body,
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil || tr.AccessToken == "" {
		return "", &upstream.Error{Provider: ProviderPayPal, Message: "invalid token response", Cause: err}
	}

	ts.token = tr.AccessToken
	ts.expiry = ts.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenRefreshMargin)
	return ts.token, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = ""
	ts.expiry = time.Time{}
}
