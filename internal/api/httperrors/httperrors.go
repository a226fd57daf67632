package httperrors

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// HTTPError is the single well-formed error body every handler-level failure
// resolves to. Internal provider payloads and stack traces never leave the
// service through it, only the short title and an optional detail string.
type HTTPError struct {
	Code   int    `json:"status"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
}

func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{
		Code:  code,
		Type:  errorType,
		Title: title,
	}
}

func NewHTTPErrorWithDetail(code int, errorType string, title string, detail string) *HTTPError {
	return &HTTPError{
		Code:   code,
		Type:   errorType,
		Title:  title,
		Detail: detail,
	}
}

// HTTPErrorHandler converts any error escaping a handler into a structured
// JSON body. It must be installed as the echo HTTPErrorHandler so no error
// can close the connection without a body.
func HTTPErrorHandler(err error, c echo.Context) {
	var httpErr *HTTPError

	switch e := err.(type) {
	case *HTTPError:
		httpErr = e
	case *echo.HTTPError:
		httpErr = &HTTPError{
			Code:  e.Code,
			Type:  TypeGeneric,
			Title: fmt.Sprintf("%v", e.Message),
		}
	default:
		log.Error().Err(err).Msg("Unhandled error escaped a handler")
		httpErr = &HTTPError{
			Code:  http.StatusInternalServerError,
			Type:  TypeGeneric,
			Title: http.StatusText(http.StatusInternalServerError),
		}
	}

	if c.Response().Committed {
		return
	}

	if writeErr := c.JSON(httpErr.Code, httpErr); writeErr != nil {
		log.Error().Err(writeErr).Msg("Failed to write error response")
	}
}
