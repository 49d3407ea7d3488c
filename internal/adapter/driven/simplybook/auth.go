package simplybook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
	"github.com/ericfisherdev/nextslot/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Authenticator = (*RESTAuthenticator)(nil)
	_ driven.Authenticator = (*RPCAuthenticator)(nil)
)

// Authentication defaults.
const (
	DefaultAuthTimeout   = 10 * time.Second
	DefaultTokenLifetime = time.Hour
)

// authBase carries what both authenticator dialects share.
type authBase struct {
	http      *http.Client
	endpoint  string
	creds     model.Credentials
	timeout   time.Duration
	lifetime  time.Duration
	now       func() time.Time
	userAgent string
}

// AuthOption configures an authenticator.
type AuthOption func(*authBase)

// WithAuthTimeout bounds each authentication call.
func WithAuthTimeout(d time.Duration) AuthOption {
	return func(a *authBase) { a.timeout = d }
}

// WithTokenLifetime sets the lifetime assumed for tokens whose response
// carries no expiry.
func WithTokenLifetime(d time.Duration) AuthOption {
	return func(a *authBase) { a.lifetime = d }
}

// WithAuthClock replaces time.Now, for tests.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(a *authBase) { a.now = now }
}

func newAuthBase(httpClient *http.Client, baseURL, p string, creds model.Credentials, opts []AuthOption) (authBase, error) {
	endpoint, err := endpointURL(baseURL, p)
	if err != nil {
		return authBase{}, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	a := authBase{
		http:      httpClient,
		endpoint:  endpoint,
		creds:     creds,
		timeout:   DefaultAuthTimeout,
		lifetime:  DefaultTokenLifetime,
		now:       time.Now,
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(&a)
	}
	return a, nil
}

// postJSON sends payload to the auth endpoint under the auth timeout. Any
// transport failure or non-2xx status is returned as *model.AuthError.
func (a *authBase) postJSON(ctx context.Context, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, &model.AuthError{Err: fmt.Errorf("marshaling auth request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &model.AuthError{Err: fmt.Errorf("creating auth request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, &model.AuthError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &model.AuthError{Status: resp.StatusCode, Err: fmt.Errorf("reading auth response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.AuthError{Status: resp.StatusCode, Body: model.Excerpt(body)}
	}

	return body, nil
}

// RESTAuthenticator authenticates against the v2 REST API with company,
// login and password.
type RESTAuthenticator struct {
	authBase
}

// NewRESTAuthenticator creates an authenticator posting to {baseURL}/admin/auth.
func NewRESTAuthenticator(httpClient *http.Client, baseURL string, creds model.Credentials, opts ...AuthOption) (*RESTAuthenticator, error) {
	base, err := newAuthBase(httpClient, baseURL, "/admin/auth", creds, opts)
	if err != nil {
		return nil, err
	}
	return &RESTAuthenticator{authBase: base}, nil
}

type restAuthRequest struct {
	Company  string `json:"company"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type restAuthResponse struct {
	Token   string          `json:"token"`
	Expires json.RawMessage `json:"expires"`
}

// Authenticate exchanges the credentials for a session. It does not retry.
func (a *RESTAuthenticator) Authenticate(ctx context.Context) (model.Session, error) {
	body, err := a.postJSON(ctx, restAuthRequest{
		Company:  a.creds.Company,
		Login:    a.creds.Login,
		Password: a.creds.Secret,
	})
	if err != nil {
		return model.Session{}, err
	}

	var resp restAuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Session{}, &model.AuthError{Status: http.StatusOK, Err: fmt.Errorf("decoding auth response: %w", err)}
	}
	if resp.Token == "" {
		return model.Session{}, &model.AuthError{Status: http.StatusOK, Err: model.ErrNoToken}
	}

	issued := a.now()
	expiresAt, ok := parseExpiry(resp.Expires)
	if !ok {
		expiresAt = issued.Add(a.lifetime)
	}

	return model.Session{Token: resp.Token, ExpiresAt: expiresAt}, nil
}

// RPCAuthenticator authenticates against the v1 JSON-RPC API with company
// and API key. Its tokens carry no expiry; the configured lifetime applies.
type RPCAuthenticator struct {
	authBase
}

// NewRPCAuthenticator creates an authenticator posting getToken to {baseURL}/login.
func NewRPCAuthenticator(httpClient *http.Client, baseURL string, creds model.Credentials, opts ...AuthOption) (*RPCAuthenticator, error) {
	base, err := newAuthBase(httpClient, baseURL, "/login", creds, opts)
	if err != nil {
		return nil, err
	}
	return &RPCAuthenticator{authBase: base}, nil
}

// Authenticate calls getToken. It does not retry.
func (a *RPCAuthenticator) Authenticate(ctx context.Context) (model.Session, error) {
	body, err := a.postJSON(ctx, rpcRequest{
		JSONRPC: "2.0",
		Method:  "getToken",
		Params: map[string]any{
			"company": a.creds.Company,
			"api_key": a.creds.APIKey,
		},
		ID: 1,
	})
	if err != nil {
		return model.Session{}, err
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Session{}, &model.AuthError{Status: http.StatusOK, Err: fmt.Errorf("decoding getToken response: %w", err)}
	}
	if resp.Error != nil {
		return model.Session{}, &model.AuthError{Status: http.StatusOK, Err: resp.Error}
	}

	var token string
	if err := json.Unmarshal(resp.Result, &token); err != nil || token == "" {
		return model.Session{}, &model.AuthError{Status: http.StatusOK, Err: model.ErrNoToken}
	}

	return model.Session{Token: token, ExpiresAt: a.now().Add(a.lifetime)}, nil
}

// expiryLayouts are the timestamp forms accepted in the expires field.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseExpiry reads an expires value given as a timestamp string or as unix
// seconds.
func parseExpiry(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		for _, layout := range expiryLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0), true
		}
		return time.Time{}, false
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if secs, err := n.Int64(); err == nil && secs > 0 {
			return time.Unix(secs, 0), true
		}
	}

	return time.Time{}, false
}
