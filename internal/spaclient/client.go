package spaclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/bestway-spa/internal/logging"
)

const (
	// DefaultBaseURL is the EU endpoint of the Bestway smart hub API
	DefaultBaseURL = "https://smarthub-eu.bestwaycorp.com"

	// DefaultTimeout bounds every HTTP round trip
	DefaultTimeout = 10 * time.Second

	// DefaultTokenTTL is how long a minted token is trusted. The server-side
	// lifetime is believed to be 24h.
	DefaultTokenTTL = 23 * time.Hour

	// CodeUnauthorized is the response code the API uses for a rejected token
	CodeUnauthorized = 10001

	visitorPath     = "/api/enduser/visitor"
	thingShadowPath = "/api/device/thing_shadow"
	commandPath     = "/api/device/command"

	// maxBodySize caps how much of a response body is read
	maxBodySize = 1 << 20
)

// Client talks to the Bestway cloud API on behalf of a single spa.
//
// Token state and the lazily created HTTP client are guarded internally, but
// callers are still expected to serialize FetchState/SetState; see the
// coordinator package.
type Client struct {
	// BaseURL is the API root (default: DefaultBaseURL)
	BaseURL string

	// Timeout bounds each HTTP request (default: DefaultTimeout)
	Timeout time.Duration

	// TokenTTL is the client-side validity of a minted token (default: DefaultTokenTTL)
	TokenTTL time.Duration

	// InsecureSkipVerify disables TLS certificate verification
	InsecureSkipVerify bool

	// Transport overrides the HTTP transport (tests)
	Transport http.RoundTripper

	creds Credentials

	// now is the clock used for token expiry and request timestamps
	now func() time.Time

	// tokenMu guards token and tokenExpiresAt; it is held across minting so
	// concurrent cache misses mint once.
	tokenMu        sync.Mutex
	token          string
	tokenExpiresAt time.Time

	httpMu     sync.Mutex
	httpClient *http.Client
}

// NewClient creates a client for the default EU endpoint
func NewClient(creds Credentials) *Client {
	return NewClientWithURL(DefaultBaseURL, creds)
}

// NewClientWithURL creates a client with a custom API root
// baseURL: e.g. "https://smarthub-eu.bestwaycorp.com"
func NewClientWithURL(baseURL string, creds Credentials) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Timeout:  DefaultTimeout,
		TokenTTL: DefaultTokenTTL,
		creds:    creds,
		now:      time.Now,
	}
}

// Credentials returns the credentials the client was built with
func (c *Client) Credentials() Credentials {
	return c.creds
}

// SetClock replaces the time source. It must be called before the client is used.
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// AcquireToken returns the cached token while it is valid, otherwise mints a
// new one from the visitor endpoint.
func (c *Client) AcquireToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiresAt) {
		return c.token, nil
	}

	token, err := c.mintToken(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.tokenExpiresAt = c.now().Add(c.tokenTTL())
	logging.Debug("Token acquired",
		zap.Time("expires_at", c.tokenExpiresAt),
	)
	return token, nil
}

// InvalidateToken drops the cached token so the next AcquireToken mints a new one
func (c *Client) InvalidateToken() {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = ""
	c.tokenExpiresAt = time.Time{}
}

// TokenExpiry returns the expiry of the cached token, or false if none is held
func (c *Client) TokenExpiry() (time.Time, bool) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token == "" {
		return time.Time{}, false
	}
	return c.tokenExpiresAt, true
}

func (c *Client) mintToken(ctx context.Context) (string, error) {
	payload := visitorRequest{
		AppID:                 c.creds.AppID,
		Brand:                 "",
		ClientID:              c.creds.ClientID,
		LanCode:               "en",
		Location:              "GB",
		MarketingNotification: 0,
		PushType:              "android",
		RegistrationID:        c.creds.RegistrationID,
		Timezone:              "GMT",
		VisitorID:             c.creds.VisitorID,
	}

	status, body, err := c.post(ctx, "token", visitorPath, "", payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", NewConnectionError("token", fmt.Sprintf("connection failed with status %d", status), status, string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", NewProtocolError("token", "invalid JSON in token response", string(body), err)
	}

	var data visitorData
	if env.hasData() {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", NewProtocolError("token", "invalid data in token response", string(body), err)
		}
	}
	if data.Token == nil || *data.Token == "" {
		return "", NewAuthError("token", "no token in response (invalid credentials)")
	}
	return *data.Token, nil
}

// FetchState returns a fresh snapshot of the spa state. A response carrying
// CodeUnauthorized causes one reauthentication and one retry.
func (c *Client) FetchState(ctx context.Context) (Snapshot, error) {
	payload := deviceRequest{
		DeviceID:  c.creds.DeviceID,
		ProductID: c.creds.ProductID,
	}

	env, body, err := c.fetchOnce(ctx, payload, "fetch failed")
	if err != nil {
		return Snapshot{}, err
	}

	if env.unauthorized() {
		logging.Info("Token rejected during fetch, reauthenticating")
		c.InvalidateToken()

		env, body, err = c.fetchOnce(ctx, payload, "fetch failed after reauthentication")
		if err != nil {
			return Snapshot{}, err
		}
		if env.unauthorized() {
			return Snapshot{}, NewAuthError("fetch", "fetch failed after reauthentication: token rejected")
		}
	}

	if !env.hasData() {
		return Snapshot{}, NewMalformedResponseError("fetch", "malformed response: missing data field", string(body))
	}

	values, err := decodeObject(env.Data)
	if err != nil {
		return Snapshot{}, NewMalformedResponseError("fetch", "malformed response: data is not an object", string(body))
	}

	logging.Debug("Spa state fetched", zap.Any("state", values))
	return Snapshot{values: values}, nil
}

func (c *Client) fetchOnce(ctx context.Context, payload deviceRequest, failMsg string) (*envelope, []byte, error) {
	token, err := c.AcquireToken(ctx)
	if err != nil {
		return nil, nil, err
	}

	status, body, err := c.post(ctx, "fetch", thingShadowPath, token, payload)
	if err != nil {
		return nil, nil, err
	}
	if status != http.StatusOK {
		return nil, body, NewConnectionError("fetch", fmt.Sprintf("%s with status %d", failMsg, status), status, string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, body, NewProtocolError("fetch", "invalid JSON in state response", string(body), err)
	}
	return &env, body, nil
}

// SetState changes a single spa property. It performs a fetch first as a
// liveness and auth check; only {key: value} is sent as the desired delta.
func (c *Client) SetState(ctx context.Context, key string, value int) (*CommandResponse, error) {
	if _, err := c.FetchState(ctx); err != nil {
		return nil, err
	}

	var desired desiredState
	desired.State.Desired = map[string]int{key: value}
	desiredJSON, err := json.Marshal(desired)
	if err != nil {
		return nil, fmt.Errorf("failed to encode desired state: %w", err)
	}

	payload := commandRequest{
		DeviceID:  c.creds.DeviceID,
		ProductID: c.creds.ProductID,
		Desired:   string(desiredJSON),
	}

	logging.Debug("Setting spa state",
		zap.String("key", key),
		zap.Int("value", value),
		zap.String("desired", payload.Desired),
	)

	resp, err := c.commandOnce(ctx, payload, "command failed")
	if err != nil {
		logging.Error("Failed to control spa state", zap.Error(err))
		return nil, err
	}

	if resp.Code == CodeUnauthorized {
		logging.Info("Token rejected during command, reauthenticating")
		c.InvalidateToken()

		resp, err = c.commandOnce(ctx, payload, "command failed after reauthentication")
		if err != nil {
			logging.Error("Failed to control spa state after reauthentication", zap.Error(err))
			return nil, err
		}
		if resp.Code == CodeUnauthorized {
			return nil, NewAuthError("command", "command failed after reauthentication: token rejected")
		}
	}

	logging.Debug("State update response", zap.ByteString("body", resp.Raw))
	return resp, nil
}

func (c *Client) commandOnce(ctx context.Context, payload commandRequest, failMsg string) (*CommandResponse, error) {
	token, err := c.AcquireToken(ctx)
	if err != nil {
		return nil, err
	}

	status, body, err := c.post(ctx, "command", commandPath, token, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, NewConnectionError("command",
			fmt.Sprintf("%s with status %d: %s", failMsg, status, string(body)), status, string(body))
	}

	var resp CommandResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewProtocolError("command", fmt.Sprintf("invalid JSON in command response: %s", string(body)), string(body), err)
	}
	resp.Raw = body
	return &resp, nil
}

// post sends a signed JSON POST and returns the status code and body.
// Transport failures are returned as classified *APIError values.
func (c *Client) post(ctx context.Context, op, path, token string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	endpoint := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, nil, NewNetworkError(op, "failed to create request", err)
	}

	headers, err := SignHeaders(c.creds, token, c.now())
	if err != nil {
		return 0, nil, fmt.Errorf("failed to sign %s request: %w", op, err)
	}
	req.Header = headers
	if u, err := url.Parse(c.BaseURL); err == nil {
		req.Host = u.Host
	}

	start := time.Now()
	logging.LogAPIRequest(op, endpoint, token != "")

	resp, err := c.client().Do(req)
	if err != nil {
		return 0, nil, NewNetworkError(op, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, NewNetworkError(op, "failed to read response body", err)
	}

	// The visitor response carries the session token
	logging.LogAPIResponse(op, resp.StatusCode, time.Since(start), body, path == visitorPath)
	return resp.StatusCode, body, nil
}

// client returns the shared HTTP client, creating it on first use
func (c *Client) client() *http.Client {
	c.httpMu.Lock()
	defer c.httpMu.Unlock()

	if c.httpClient == nil {
		transport := c.Transport
		if transport == nil {
			t := http.DefaultTransport.(*http.Transport).Clone()
			if c.InsecureSkipVerify {
				t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // matches vendor app behaviour when enabled
			}
			transport = t
		}
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}
	return c.httpClient
}

// Close releases idle connections. The client may be used again afterwards;
// a new HTTP client is created on the next call.
func (c *Client) Close() error {
	c.httpMu.Lock()
	defer c.httpMu.Unlock()

	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
	return nil
}

func (c *Client) tokenTTL() time.Duration {
	if c.TokenTTL <= 0 {
		return DefaultTokenTTL
	}
	return c.TokenTTL
}
