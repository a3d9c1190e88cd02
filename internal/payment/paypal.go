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
	"sync"
	"time"
)

// Provider is the payment processor capability the checkout flow needs:
// create a provider-side order, capture it, and authenticate webhook
// deliveries.
type Provider interface {
	CreateOrder(ctx context.Context, total float64, currency, customID string) (string, error)
	CaptureOrder(ctx context.Context, providerOrderID string) (*CaptureResult, error)
	VerifyWebhook(ctx context.Context, headers http.Header, body []byte) (bool, error)
}

// CaptureResult is the outcome of a capture call, reduced to what order
// finalization consumes.
type CaptureResult struct {
	PaymentOrderID  string
	Status          string
	Amount          float64
	ShippingAddress string
}

// StatusCompleted is the provider's terminal success status for a capture.
const StatusCompleted = "COMPLETED"

// Client talks to the PayPal REST API. OAuth tokens are cached until shortly
// before expiry.
type Client struct {
	baseURL      *url.URL
	clientID     string
	clientSecret string
	webhookID    string
	http         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(baseURL, clientID, clientSecret, webhookID string, httpClient *http.Client) *Client {
	u, err := url.Parse(baseURL)
	if err != nil {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid paypal base url %q: %v", baseURL, err))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:      u,
		clientID:     clientID,
		clientSecret: clientSecret,
		webhookID:    webhookID,
		http:         httpClient,
	}
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/v1/oauth2/token"), form)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token: status %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = out.AccessToken
	// Renew a minute early so in-flight calls never carry an expired token.
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)

	return c.accessToken, nil
}

func (c *Client) CreateOrder(ctx context.Context, total float64, currency, customID string) (string, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": currency,
				"value":         fmt.Sprintf("%.2f", total),
			},
			// Correlation field: lets the webhook path, which has no session
			// context, resolve the owning cart.
			"custom_id": customID,
		}},
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.postJSON(ctx, "/v2/checkout/orders", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("paypal create order: empty order id")
	}

	return out.ID, nil
}

func (c *Client) CaptureOrder(ctx context.Context, providerOrderID string) (*CaptureResult, error) {
	var out orderResource
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(providerOrderID))
	if err := c.postJSON(ctx, path, struct{}{}, &out); err != nil {
		return nil, err
	}

	res := &CaptureResult{
		PaymentOrderID: out.ID,
		Status:         out.Status,
	}
	if len(out.PurchaseUnits) > 0 {
		pu := out.PurchaseUnits[0]
		if len(pu.Payments.Captures) > 0 {
			res.Amount = pu.Payments.Captures[0].Amount.Float()
		}
		res.ShippingAddress = pu.Shipping.FullAddress()
	}

	return res, nil
}

// VerifyWebhook authenticates a webhook delivery through the provider's
// verify-webhook-signature API, per the provider's own convention.
func (c *Client) VerifyWebhook(ctx context.Context, headers http.Header, body []byte) (bool, error) {
	payload := map[string]any{
		"auth_algo":         headers.Get("Paypal-Auth-Algo"),
		"cert_url":          headers.Get("Paypal-Cert-Url"),
		"transmission_id":   headers.Get("Paypal-Transmission-Id"),
		"transmission_sig":  headers.Get("Paypal-Transmission-Sig"),
		"transmission_time": headers.Get("Paypal-Transmission-Time"),
		"webhook_id":        c.webhookID,
		"webhook_event":     json.RawMessage(body),
	}

	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.postJSON(ctx, "/v1/notifications/verify-webhook-signature", payload, &out); err != nil {
		return false, err
	}

	return out.VerificationStatus == "SUCCESS", nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paypal %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("paypal %s: status %d: %s", path, resp.StatusCode, readBody(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode paypal response: %w", err)
	}

	return nil
}

func (c *Client) resolve(path string) string {
	rel := &url.URL{Path: path}
	return c.baseURL.ResolveReference(rel).String()
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(b)
}
