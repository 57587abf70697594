package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/calstateteach/canvas-upload-service/pkg/models"
)

// ErrDispatchRejected is returned when the poll dispatch target refuses the
// continuation payload.
var ErrDispatchRejected = errors.New("dispatch rejected")

// functionErrorHeader marks a dispatch that was accepted at the transport
// level but failed inside the target function.
const functionErrorHeader = "X-Function-Error"

// Dispatcher schedules a poll invocation for the given continuation
// parameters without blocking the caller beyond the accept/reject handshake.
type Dispatcher interface {
	Dispatch(ctx context.Context, params models.Params) error
}

// HTTPDispatcher posts the continuation payload to an async invocation
// endpoint. A 2xx status with no error-indicator header means the dispatch was
// accepted; anything else is a rejection.
type HTTPDispatcher struct {
	target string
	client *http.Client
}

// NewHTTPDispatcher creates a dispatcher targeting the given URL.
func NewHTTPDispatcher(target string, timeout time.Duration) *HTTPDispatcher {
	return &HTTPDispatcher{target: target, client: &http.Client{Timeout: timeout}}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, params models.Params) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding dispatch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		dispatchTotal.WithLabelValues("http", "error").Inc()
		return fmt.Errorf("%w: %v", ErrDispatchRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		dispatchTotal.WithLabelValues("http", "error").Inc()
		return fmt.Errorf("%w: status %d", ErrDispatchRejected, resp.StatusCode)
	}
	if v := resp.Header.Get(functionErrorHeader); v != "" {
		dispatchTotal.WithLabelValues("http", "error").Inc()
		return fmt.Errorf("%w: %s header %q", ErrDispatchRejected, functionErrorHeader, v)
	}

	dispatchTotal.WithLabelValues("http", "ok").Inc()
	return nil
}

// LocalDispatcher runs the poller in a background goroutine of the same
// process. It always accepts; the poller's own reporting is the only feedback
// channel, as with a fire-and-forget platform invoke.
type LocalDispatcher struct {
	poller *Poller
}

// NewLocalDispatcher creates a dispatcher that hands the payload to the given
// poller in-process.
func NewLocalDispatcher(p *Poller) *LocalDispatcher {
	return &LocalDispatcher{poller: p}
}

func (d *LocalDispatcher) Dispatch(_ context.Context, params models.Params) error {
	dispatchTotal.WithLabelValues("local", "ok").Inc()
	go func() {
		// The poll boundary re-raises unexpected panics so the hosting fault
		// handler can observe them; here that handler is this recover.
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("dispatched poll panicked", "error", rec)
			}
		}()
		d.poller.Poll(context.Background(), params)
	}()
	return nil
}

// Compile-time checks.
var (
	_ Dispatcher = (*HTTPDispatcher)(nil)
	_ Dispatcher = (*LocalDispatcher)(nil)
)
