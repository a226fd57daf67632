package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger attaches a request-scoped zerolog logger to the request context and
// emits one line per completed request.
func Logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := log.With().
				Str("id", id).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Logger()

			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			start := time.Now()
			err := next(c)
			if err != nil {
				// still handled by the error handler afterwards
				c.Error(err)
			}

			res := c.Response()

			var evt *zerolog.Event
			switch {
			case res.Status >= 500:
				evt = l.Error()
			case res.Status >= 400:
				evt = l.Warn()
			default:
				evt = l.Debug()
			}

			evt.Int("status", res.Status).
				Dur("duration", time.Since(start)).
				Int64("bytes_out", res.Size).
				Msg("Request served")

			return nil
		}
	}
}
