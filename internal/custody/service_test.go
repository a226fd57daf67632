package custody_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opalhq/walletd/internal/config"
	"github.com/opalhq/walletd/internal/custody"
)

type fakeProvider struct {
	createCalls atomic.Int64
	getCalls    atomic.Int64
	signCalls   atomic.Int64

	// readyAfter is the number of status polls the wallet stays in
	// provisioning before reporting ready. Negative means never ready.
	readyAfter int64
	address    string
	signature  string
}

func (f *fakeProvider) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/wallets", func(w http.ResponseWriter, r *http.Request) {
		f.createCalls.Add(1)
		require.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		require.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ethereum", body["chain_type"])
		require.Equal(t, "email", body["user_identifier_kind"])

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "w-1", "status": custody.StatusProvisioning})
	})

	mux.HandleFunc("GET /v1/wallets/w-1", func(w http.ResponseWriter, _ *http.Request) {
		calls := f.getCalls.Add(1)

		status := custody.StatusProvisioning
		address := ""
		if f.readyAfter >= 0 && calls > f.readyAfter {
			status = custody.StatusReady
			address = f.address
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "w-1", "status": status, "address": address})
	})

	mux.HandleFunc("POST /v1/wallets/w-1/sign", func(w http.ResponseWriter, r *http.Request) {
		f.signCalls.Add(1)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Regexp(t, "^0x[0-9a-f]{64}$", body["digest"])

		_ = json.NewEncoder(w).Encode(map[string]string{"signature": f.signature})
	})

	return mux
}

func newService(t *testing.T, provider *fakeProvider, maxAttempts int) *custody.Service {
	t.Helper()

	srv := httptest.NewServer(provider.handler(t))
	t.Cleanup(srv.Close)

	cfg := config.Custody{
		URL:             srv.URL,
		APIKey:          "test-key",
		PollInterval:    time.Millisecond,
		PollMaxAttempts: maxAttempts,
	}

	return custody.NewService(custody.NewClient(cfg), cfg)
}

func TestProvisionPollsUntilReady(t *testing.T) {
	provider := &fakeProvider{readyAfter: 3, address: "0x000000000000000000000000000000000000dEaD"}
	service := newService(t, provider, 60)

	wallet, err := service.Provision(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "w-1", wallet.ID)
	assert.True(t, wallet.Ready())
	assert.Equal(t, provider.address, wallet.Address)
	assert.Equal(t, int64(1), provider.createCalls.Load())
	assert.Equal(t, int64(4), provider.getCalls.Load())
}

func TestWaitReadyAlreadyReadyReturnsAfterOnePoll(t *testing.T) {
	provider := &fakeProvider{readyAfter: 0, address: "0x000000000000000000000000000000000000dEaD"}
	service := newService(t, provider, 60)

	wallet, err := service.WaitReady(context.Background(), "w-1")
	require.NoError(t, err)
	assert.True(t, wallet.Ready())
	assert.Equal(t, int64(1), provider.getCalls.Load())
}

func TestWaitReadyExhaustsExactlyAtAttemptBound(t *testing.T) {
	provider := &fakeProvider{readyAfter: -1}
	service := newService(t, provider, 7)

	_, err := service.WaitReady(context.Background(), "w-1")
	require.ErrorIs(t, err, custody.ErrProvisioningTimeout)
	assert.Equal(t, int64(7), provider.getCalls.Load())
}

func TestProvisionAbortsOnProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "wallet already exists for user"})
	}))
	t.Cleanup(srv.Close)

	cfg := config.Custody{URL: srv.URL, APIKey: "k", PollInterval: time.Millisecond, PollMaxAttempts: 3}
	service := custody.NewService(custody.NewClient(cfg), cfg)

	_, err := service.Provision(context.Background(), "a@x.com")
	require.Error(t, err)

	var providerErr *custody.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusConflict, providerErr.StatusCode)
	assert.Equal(t, "wallet already exists for user", providerErr.Message)
}

func TestSignDigest(t *testing.T) {
	provider := &fakeProvider{readyAfter: 0, signature: "0xdeadbeef"}
	service := newService(t, provider, 60)

	sig, err := service.SignDigest(context.Background(), "w-1",
		"0x0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", sig)
	assert.Equal(t, int64(1), provider.signCalls.Load())
}

func TestConnectionReuseAcrossErrorResponses(t *testing.T) {
	var newConns atomic.Int64

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "maintenance"})
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			newConns.Add(1)
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	cfg := config.Custody{URL: srv.URL, APIKey: "k", PollInterval: time.Millisecond, PollMaxAttempts: 3}
	client := custody.NewClient(cfg)

	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), "w-1")
		require.Error(t, err)
	}

	// response bodies are drained, so the same connection serves every call
	assert.Equal(t, int64(1), newConns.Load())
}
