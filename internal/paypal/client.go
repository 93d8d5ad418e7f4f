package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meuqianimal/paywall/paywall/models"
)

const (
	LiveBaseURL    = "https://api-m.paypal.com"
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"

	maxErrorBody = 4 << 10
)

// ResolveBaseURL maps "live" and "sandbox" to the PayPal REST hosts and
// passes any other absolute URL through.
func ResolveBaseURL(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "live", "production":
		return LiveBaseURL, nil
	case "sandbox":
		return SandboxBaseURL, nil
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("paypal api base must be live, sandbox or an absolute URL: %q", v)
	}
	return strings.TrimRight(v, "/"), nil
}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// AppBaseURL is the public storefront URL used for return/cancel links.
	AppBaseURL string
	BrandName  string
	Timeout    time.Duration
	// CacheTokens reuses bearer tokens until shortly before they expire.
	CacheTokens bool
}

// Client talks to the PayPal Orders v2 REST API.
type Client struct {
	cfg    Config
	base   string
	HTTP   *http.Client
	tokens *tokenCache

	newRequestID func() string
}

func New(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	c := &Client{
		cfg:          cfg,
		base:         strings.TrimRight(cfg.BaseURL, "/"),
		HTTP:         hc,
		newRequestID: func() string { return uuid.New().String() },
	}
	if c.base == "" {
		c.base = LiveBaseURL
	}
	if cfg.CacheTokens {
		c.tokens = newTokenCache(c.fetchToken, time.Now)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AccessToken exchanges the client credentials for a bearer token. When token
// caching is enabled a still-fresh token is reused.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.tokens != nil {
		return c.tokens.Token(ctx)
	}
	tok, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

func (c *Client) fetchToken(ctx context.Context) (token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return token{}, &RequestError{Op: "oauth2 token", Kind: ErrProviderAuth, Err: err}
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return token{}, &RequestError{Op: "oauth2 token", Kind: ErrProviderAuth, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return token{}, newStatusError("oauth2 token", ErrProviderAuth, resp)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return token{}, &RequestError{Op: "oauth2 token", Kind: ErrProviderAuth, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	if payload.AccessToken == "" {
		return token{}, &RequestError{Op: "oauth2 token", Kind: ErrProviderAuth, StatusCode: resp.StatusCode, Err: fmt.Errorf("empty access_token")}
	}

	return token{
		Value:     payload.AccessToken,
		ExpiresIn: time.Duration(payload.ExpiresIn) * time.Second,
	}, nil
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	// ReferenceID carries the product id so a capture can be matched to it.
	ReferenceID string `json:"reference_id"`
	Amount      amount `json:"amount"`
	Description string `json:"description"`
}

type applicationContext struct {
	BrandName  string `json:"brand_name,omitempty"`
	UserAction string `json:"user_action"`
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
}

type orderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateOrder opens a CAPTURE-intent order for product and returns its id.
func (c *Client) CreateOrder(ctx context.Context, accessToken string, product models.Product) (string, error) {
	appBase := strings.TrimRight(c.cfg.AppBaseURL, "/")
	description := product.Label
	if c.cfg.BrandName != "" {
		description = c.cfg.BrandName + " - " + product.Label
	}

	body := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: product.ID,
			Amount:      amount{CurrencyCode: product.Currency, Value: product.Amount},
			Description: description,
		}},
		ApplicationContext: applicationContext{
			BrandName:  c.cfg.BrandName,
			UserAction: "PAY_NOW",
			ReturnURL:  appBase + "/return",
			CancelURL:  appBase + "/cancel",
		},
	}

	var out orderResponse
	if err := c.postJSON(ctx, "create order", accessToken, c.newRequestID(), c.base+"/v2/checkout/orders", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &RequestError{Op: "create order", Kind: ErrProviderRequest, Err: fmt.Errorf("response carries no order id")}
	}
	return out.ID, nil
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
		Payments    struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount amount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Payer struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

// CaptureOrder captures orderID and reports what the provider recorded.
// Missing fields are returned empty; judging them is up to the caller.
func (c *Client) CaptureOrder(ctx context.Context, accessToken, orderID string) (models.CaptureResult, error) {
	target := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.base, url.PathEscape(orderID))

	var out captureResponse
	if err := c.postJSON(ctx, "capture order", accessToken, CaptureRequestID(orderID), target, struct{}{}, &out); err != nil {
		return models.CaptureResult{}, err
	}

	res := models.CaptureResult{
		OrderID:    out.ID,
		Status:     models.CaptureStatus(out.Status),
		PayerEmail: out.Payer.EmailAddress,
	}
	if len(out.PurchaseUnits) > 0 {
		res.ProductID = out.PurchaseUnits[0].ReferenceID
	}
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		capture := out.PurchaseUnits[0].Payments.Captures[0]
		res.Amount = capture.Amount.Value
		res.Currency = capture.Amount.CurrencyCode
	}
	return res, nil
}

// CaptureRequestID is the PayPal-Request-Id sent when capturing orderID. It is
// the same for every attempt, so PayPal replays the first capture's answer
// instead of charging twice.
func CaptureRequestID(orderID string) string {
	return "capture-" + orderID
}

func (c *Client) postJSON(ctx context.Context, op, accessToken, requestID, target string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return &RequestError{Op: op, Kind: ErrProviderRequest, Err: fmt.Errorf("encode: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return &RequestError{Op: op, Kind: ErrProviderRequest, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("PayPal-Request-Id", requestID)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &RequestError{Op: op, Kind: ErrProviderRequest, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
			c.tokens.Invalidate(accessToken)
		}
		return newStatusError(op, ErrProviderRequest, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Op: op, Kind: ErrProviderRequest, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func newStatusError(op string, kind error, resp *http.Response) *RequestError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &RequestError{
		Op:         op,
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		DebugID:    resp.Header.Get("Paypal-Debug-Id"),
	}
}
