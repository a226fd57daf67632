package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/opalhq/walletd/internal/api"
)

type GenericPayload map[string]any

// PerformRequest serves one request against the in-process echo instance and
// returns the recorded response. The body is JSON-encoded when non-nil.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body any, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if headers != nil {
		req.Header = headers
	}
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}

// HeadersWithAuth builds a header set with the given bearer token attached.
func HeadersWithAuth(t *testing.T, token string) http.Header {
	t.Helper()

	headers := http.Header{}
	headers.Set(echo.HeaderAuthorization, "Bearer "+token)

	return headers
}

// ParseResponseBody decodes the recorded JSON body into the given target.
func ParseResponseBody(t *testing.T, res *httptest.ResponseRecorder, target any) {
	t.Helper()

	require.NoError(t, json.NewDecoder(res.Result().Body).Decode(target))
}
