package crud

import (
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
)

// maxLoggedBody caps request bodies copied into debug logs.
const maxLoggedBody = 2048

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	fields := []any{"method", req.Method, "url", req.URL.String()}

	if req.Body != nil && req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			raw, _ := io.ReadAll(io.LimitReader(body, maxLoggedBody))
			_ = body.Close()
			if gjson.ValidBytes(raw) {
				fields = append(fields, "body", compact(raw))
			}
		}
	}
	t.logger.Debug("HTTP Request", fields...)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		t.logger.Warn("HTTP Request failed", "method", req.Method, "url", req.URL.String(),
			"duration", elapsed, "error", err)
		return nil, err
	}

	t.logger.Info("HTTP Response",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", elapsed,
	)
	return resp, nil
}

// compact strips insignificant whitespace from a JSON document.
func compact(raw []byte) string {
	return gjson.GetBytes(raw, "@ugly").Raw
}
