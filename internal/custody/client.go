// Package custody is the client for the external MPC wallet provider. Key
// material never exists in this process: wallet creation and raw digest
// signing both happen upstream, scoped to an opaque wallet handle.
package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/opalhq/walletd/internal/config"
)

// Wallet handle states as reported by the provider.
const (
	StatusProvisioning = "provisioning"
	StatusReady        = "ready"
)

// Fixed creation parameters: one EVM-style chain family, user identified by
// email. Non-configurable by design.
const (
	chainTypeEthereum  = "ethereum"
	userIdentifierKind = "email"
)

// Wallet is the provider's view of one custodial key pair. Address is only
// populated once Status is ready.
type Wallet struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Address string `json:"address"`
}

// Ready reports whether the handle has a derived public address.
func (w *Wallet) Ready() bool {
	return w.Status == StatusReady
}

// ProviderError is a request the wallet provider rejected (invalid payload,
// conflict, stale API credential, deleted handle). The provider detail is
// preserved for diagnosis.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet provider rejected request (%d): %s", e.StatusCode, e.Message)
}

// UnavailableError is a transport failure or provider-side 5xx.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("wallet provider unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.Custody) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type createWalletPayload struct {
	ChainType          string `json:"chain_type"`
	UserIdentifier     string `json:"user_identifier"`
	UserIdentifierKind string `json:"user_identifier_kind"`
}

// Create requests a new custodial wallet for the given user email. The
// returned handle is not ready yet; poll Get until it reports ready.
func (c *Client) Create(ctx context.Context, email string) (*Wallet, error) {
	payload := createWalletPayload{
		ChainType:          chainTypeEthereum,
		UserIdentifier:     email,
		UserIdentifierKind: userIdentifierKind,
	}

	var wallet Wallet
	if err := c.do(ctx, http.MethodPost, "/v1/wallets", payload, uuid.NewString(), &wallet); err != nil {
		return nil, err
	}

	return &wallet, nil
}

// Get fetches the current state of a wallet handle.
func (c *Client) Get(ctx context.Context, walletID string) (*Wallet, error) {
	var wallet Wallet
	if err := c.do(ctx, http.MethodGet, "/v1/wallets/"+walletID, nil, "", &wallet); err != nil {
		return nil, err
	}

	return &wallet, nil
}

type signPayload struct {
	Digest string `json:"digest"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

// SignDigest submits a 0x-prefixed hex digest to the provider's raw signing
// operation for the given handle and returns the hex-encoded recoverable
// signature. This call is not retried here; retry policy, if any, belongs to
// the caller.
func (c *Client) SignDigest(ctx context.Context, walletID, digestHex string) (string, error) {
	var res signResponse
	if err := c.do(ctx, http.MethodPost, "/v1/wallets/"+walletID+"/sign", signPayload{Digest: digestHex}, "", &res); err != nil {
		return "", err
	}
	if res.Signature == "" {
		return "", &UnavailableError{Err: errors.New("provider returned empty signature")}
	}

	return res.Signature, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, idempotencyKey string, out any) error {
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

	req.Header.Set("X-Api-Key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
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
		var errBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		msg := "request rejected"
		if err := json.NewDecoder(res.Body).Decode(&errBody); err == nil {
			if errBody.Message != "" {
				msg = errBody.Message
			} else if errBody.Error != "" {
				msg = errBody.Error
			}
		}

		return &ProviderError{StatusCode: res.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return &UnavailableError{Err: errors.Wrap(err, "failed to decode provider response")}
		}
	}

	return nil
}
