// Package identity is a pass-through client for the external identity
// provider. It owns no credential logic itself: passwords, token issuance
// and token verification all happen upstream, this client only maps fields
// and normalizes errors.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/opalhq/walletd/internal/config"
	"github.com/opalhq/walletd/internal/util"
)

// Account is the subset of the provider's user record this service consumes.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a successful authentication: a time-bound bearer token plus the
// account it asserts.
type Session struct {
	AccessToken string
	Account     Account
}

// ProviderError is a client-caused failure reported by the identity provider
// (duplicate email, weak password, bad credentials). The provider's own
// message is passed through verbatim.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider rejected request (%d): %s", e.StatusCode, e.Message)
}

// UnavailableError is a transport failure or provider-side 5xx. Distinct from
// ProviderError so callers can map it to the upstream error class.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("identity provider unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.Identity) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account upstream. The account exists at the provider
// once this returns, independent of what happens next in this process.
func (c *Client) Register(ctx context.Context, email, password string) (*Account, error) {
	var account Account
	if err := c.do(ctx, http.MethodPost, "/signup", "", credentialsPayload{Email: email, Password: password}, &account); err != nil {
		return nil, err
	}

	return &account, nil
}

type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	User        Account `json:"user"`
}

// Authenticate exchanges credentials for a session token. Invalid credentials
// surface as a ProviderError carrying the provider's wording; this client
// adds no interpretation of its own.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	var res tokenResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", credentialsPayload{Email: email, Password: password}, &res); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken: res.AccessToken,
		Account:     res.User,
	}, nil
}

// Verify resolves a bearer token to its account. It is called fresh on every
// protected request, token validity is never cached locally since tokens can
// expire or be revoked server-side at any time. Any failure, transport,
// malformed token or provider-reported invalidity, uniformly yields ok=false
// so provider internals never leak to API consumers.
func (c *Client) Verify(ctx context.Context, token string) (*Account, bool) {
	if token == "" {
		return nil, false
	}

	var account Account
	if err := c.do(ctx, http.MethodGet, "/user", token, nil, &account); err != nil {
		util.LogFromContext(ctx).Debug().Err(err).Msg("Token verification failed")
		return nil, false
	}
	if account.ID == "" {
		return nil, false
	}

	return &account, true
}

func (c *Client) do(ctx context.Context, method, path, bearer string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "failed to encode request payload")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	req.Header.Set("apikey", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &UnavailableError{Err: err}
	}
	defer func() {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}()

	if res.StatusCode >= 500 {
		return &UnavailableError{Err: errors.Errorf("provider returned status %d", res.StatusCode)}
	}

	if res.StatusCode >= 400 {
		return &ProviderError{
			StatusCode: res.StatusCode,
			Message:    decodeProviderMessage(res.Body),
		}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return &UnavailableError{Err: errors.Wrap(err, "failed to decode provider response")}
		}
	}

	return nil
}

// decodeProviderMessage extracts a human-readable message from the known
// error body shapes of the provider.
func decodeProviderMessage(r io.Reader) string {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return "request rejected"
	}

	for _, msg := range []string{body.Msg, body.Message, body.ErrorDescription} {
		if msg != "" {
			return msg
		}
	}

	return "request rejected"
}
