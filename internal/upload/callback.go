package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/calstateteach/canvas-upload-service/pkg/models"
)

// Reporter delivers one outbound notification carrying the full result mapping
// to a caller-specified endpoint. Best-effort: implementations never return an
// error, because failing to notify must not mask the already-computed outcome.
type Reporter interface {
	Report(ctx context.Context, callbackURL string, result models.Params)
}

// HTTPReporter implements Reporter with a form-encoded HTTP POST, one field
// per result key.
type HTTPReporter struct {
	client *http.Client
}

// NewHTTPReporter creates a new HTTPReporter.
func NewHTTPReporter(timeout time.Duration) *HTTPReporter {
	return &HTTPReporter{client: &http.Client{Timeout: timeout}}
}

// Report posts the result to callbackURL. A blank URL is a no-op. Transport
// failures are logged and swallowed; nothing about the response body is
// interpreted beyond the status code.
func (r *HTTPReporter) Report(ctx context.Context, callbackURL string, result models.Params) {
	if callbackURL == "" {
		return
	}

	form := formValues(result)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, strings.NewReader(form.Encode()))
	if err != nil {
		slog.Error("building callback request", "callback_url", callbackURL, "error", err)
		callbackTotal.WithLabelValues("error").Inc()
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		slog.Error("callback delivery failed", "callback_url", callbackURL, "error", err)
		callbackTotal.WithLabelValues("error").Inc()
		return
	}
	defer resp.Body.Close()

	slog.Info("callback delivered", "callback_url", callbackURL, "status", resp.StatusCode)
	callbackTotal.WithLabelValues("ok").Inc()
}

// formValues flattens the result mapping into form fields. String values are
// sent verbatim; everything else is JSON-encoded.
func formValues(result models.Params) url.Values {
	form := url.Values{}
	for k, v := range result {
		if s, ok := v.(string); ok {
			form.Set(k, s)
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			form.Set(k, fmt.Sprint(v))
			continue
		}
		form.Set(k, string(b))
	}
	return form
}

// Compile-time check that HTTPReporter implements Reporter.
var _ Reporter = (*HTTPReporter)(nil)
