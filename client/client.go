// Package client is the Go SDK for the WashLoop API. It wraps the HTTP
// surface with typed requests and responses, a closed error taxonomy, and
// the stateful pieces a frontend needs: a session manager, wizard state
// machines, and an idle prefetch scheduler.
package client

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

	"github.com/google/go-querystring/query"
)

const defaultTimeout = 15 * time.Second

// Client is a thread-safe WashLoop API client. The zero value is not
// usable; construct with New.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken installs the bearer token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken removes the bearer token.
func (c *Client) ClearToken() { c.SetToken("") }

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges an email and password for an access token. The endpoint
// speaks the OAuth2 password-grant form encoding, so the email goes in the
// username field.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out LoginResponse
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup creates a pending account. No token is issued; the caller
// continues to phone verification, which completes onboarding and logs in.
func (c *Client) Signup(ctx context.Context, req *SignupRequest) (*SignupResponse, error) {
	var out SignupResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile behind the current token.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestOTP asks the server to send a one-time code to the given phone.
func (c *Client) RequestOTP(ctx context.Context, phone, email string) (*RequestOTPResponse, error) {
	body := map[string]string{"phone": phone}
	if email != "" {
		body["email"] = email
	}
	var out RequestOTPResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/request-otp", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmOTP submits a code and, on success, returns a logged-in token.
func (c *Client) ConfirmOTP(ctx context.Context, req *ConfirmOTPRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/confirm-otp", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestMagicLink asks the server to email a one-time login link. The
// response is intentionally uniform whether or not the address exists.
func (c *Client) RequestMagicLink(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/magic-link", map[string]string{"email": email}, nil)
}

// MagicLogin exchanges a magic-link token for an access token.
func (c *Client) MagicLogin(ctx context.Context, token string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/magic-login", map[string]string{"token": token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Services lists the wash services for a tenant.
func (c *Client) Services(ctx context.Context, opts *CatalogOptions) ([]WashService, error) {
	var out []WashService
	if err := c.doJSON(ctx, http.MethodGet, pathWithQuery("/services", opts), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Extras lists the add-on extras for a tenant.
func (c *Client) Extras(ctx context.Context, opts *CatalogOptions) ([]Extra, error) {
	var out []Extra
	if err := c.doJSON(ctx, http.MethodGet, pathWithQuery("/services/extras", opts), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Branding returns the tenant's public branding blob.
func (c *Client) Branding(ctx context.Context, opts *CatalogOptions) (*TenantBranding, error) {
	var out TenantBranding
	if err := c.doJSON(ctx, http.MethodGet, pathWithQuery("/tenant", opts), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder submits a booking. The server recomputes the total from the
// catalog; the request never carries a price.
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	var out CreateOrderResponse
	if err := c.doJSON(ctx, http.MethodPost, "/orders/create", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Order fetches a single order by ID.
func (c *Client) Order(ctx context.Context, id int64) (*Order, error) {
	var out Order
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Orders lists the caller's own orders, newest first.
func (c *Client) Orders(ctx context.Context, opts *ListOptions) ([]Order, error) {
	var out []Order
	if err := c.doJSON(ctx, http.MethodGet, pathWithQuery("/orders/", opts), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Loyalty returns the caller's visit count and reward progress.
func (c *Client) Loyalty(ctx context.Context) (*LoyaltySummary, error) {
	var out LoyaltySummary
	if err := c.doJSON(ctx, http.MethodGet, "/loyalty/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analytics returns the tenant dashboard summary. Requires an admin token.
func (c *Client) Analytics(ctx context.Context, opts *CatalogOptions) (*AnalyticsSummary, error) {
	var out AnalyticsSummary
	if err := c.doJSON(ctx, http.MethodGet, pathWithQuery("/admin/analytics/summary", opts), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pathWithQuery(path string, opts interface{}) string {
	if opts == nil {
		return path
	}
	values, err := query.Values(opts)
	if err != nil || len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errf(ErrInvalidInput, "encode request: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: ErrTransport, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: ErrTransport, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: ErrServer, Message: "decode response", Err: err}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<14))
	_ = json.Unmarshal(raw, &body)

	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &Error{
		Kind:    kindForCode(body.Code, resp.StatusCode),
		Message: msg,
		Status:  resp.StatusCode,
	}
}
