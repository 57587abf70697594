// Package upload implements the upload-initiation and asynchronous-polling
// orchestration: one logical upload job split across re-entrant invocations,
// coordinated only through the parameter mapping the caller stores and
// re-supplies. No job state is persisted here.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/calstateteach/canvas-upload-service/internal/canvas"
	"github.com/calstateteach/canvas-upload-service/pkg/models"
)

// Quota rejections surface differently depending on whether a size hint was
// given: a 400 with this exact message, or an embedded error containing the
// longer substring.
const (
	quotaMessage        = "file size exceeds quota"
	quotaErrorSubstring = "file size exceeds quota limits"
)

// Orchestrator is the initiation entry point. Given fresh job parameters it
// starts a URL upload in the target user's account and dispatches a poll
// invocation to track it; given parameters that already carry a progress
// reference it delegates to the Poller.
type Orchestrator struct {
	canvas     canvas.Client
	dispatcher Dispatcher
	reporter   Reporter
	poller     *Poller
	folderPath string
}

// NewOrchestrator creates an Orchestrator. folderPath is the fixed destination
// folder in the user's account, e.g. "my files/VideoUploads".
func NewOrchestrator(c canvas.Client, d Dispatcher, r Reporter, p *Poller, folderPath string) *Orchestrator {
	return &Orchestrator{canvas: c, dispatcher: d, reporter: r, poller: p, folderPath: folderPath}
}

// Route inspects the incoming parameters: a non-empty progress reference means
// the job is already in flight and the pass belongs to the Poller; otherwise a
// new upload is initiated.
func (o *Orchestrator) Route(ctx context.Context, params models.Params) models.Params {
	if params.ProgressURL() != "" {
		return o.poller.Poll(ctx, params)
	}
	return o.Initiate(ctx, params)
}

// Initiate runs one initiation invocation and returns the result mapping:
// the original parameters plus status_flag, status_msg and, when the upload
// was started, the progress reference. Failures are classified into the
// outcome taxonomy and delivered via callback, never raised past this
// boundary; only unexpected panics propagate, after being reported.
func (o *Orchestrator) Initiate(ctx context.Context, params models.Params) models.Params {
	defer recoverReport(ctx, o.reporter, params, "initiate")

	out, progressURL := o.initiate(ctx, params)

	enriched := params
	if progressURL != "" {
		enriched = params.WithProgressURL(progressURL)
	}
	result := enriched.WithOutcome(out.flag, out.msg)

	recordOutcome("initiate", out.flag)
	o.reporter.Report(ctx, params.CallbackURL(), result)
	return result
}

func (o *Orchestrator) initiate(ctx context.Context, params models.Params) (outcome, string) {
	fileURL, err := params.RequireString(models.KeyFileURL)
	if err != nil {
		return errOutcome(err), ""
	}
	displayName, err := params.RequireString(models.KeyFileDisplayName)
	if err != nil {
		return errOutcome(err), ""
	}
	userEmail, err := params.RequireString(models.KeyUserEmail)
	if err != nil {
		return errOutcome(err), ""
	}

	userID, err := canvas.ResolveUserID(ctx, o.canvas, userEmail)
	if err != nil {
		return errOutcome(err), ""
	}
	slog.Info("resolved upload target", "user_email", userEmail, "user_id", userID)

	resp, err := o.canvas.InitiateURLUpload(ctx, canvas.UploadRequest{
		UserID:          userID,
		FolderPath:      o.folderPath,
		SourceURL:       fileURL,
		DisplayName:     displayName,
		SizeHint:        sizeHint(params),
		ContentTypeHint: params.OptionalString(models.KeyContentTypeHint),
	})
	if err != nil {
		return errOutcome(fmt.Errorf("initiating upload: %w", err)), ""
	}

	// Two error shapes: a 400 answers with "message" (seen when a size hint
	// was given), a 200 can still embed "error".
	if resp.Message == quotaMessage {
		return o.quotaExceeded(ctx, userID), ""
	}
	if resp.Error != "" {
		if strings.Contains(resp.Error, quotaErrorSubstring) {
			return o.quotaExceeded(ctx, userID), ""
		}
		return errOutcome(fmt.Errorf("canvas upload error: %s", resp.Error)), ""
	}
	if resp.Message != "" {
		return errOutcome(fmt.Errorf("canvas upload error: %s", resp.Message)), ""
	}
	if resp.Progress == nil {
		return errOutcome(fmt.Errorf("malformed response: file upload call did not return a progress object")), ""
	}
	if resp.Progress.URL == "" {
		return errOutcome(fmt.Errorf("malformed response: file upload call did not return a progress URL")), ""
	}
	progressURL := resp.Progress.URL

	// So the progress reference is recoverable even if the caller loses the
	// synchronous result.
	slog.Info("upload initiated", "progress_url", progressURL, "user_id", userID)

	// The continuation payload carries the POLLING flag and the progress
	// reference; it is what the dispatched poll invocation will receive.
	continuation := params.WithProgressURL(progressURL).WithOutcome(models.FlagPolling, progressURL)
	if err := o.dispatcher.Dispatch(ctx, continuation); err != nil {
		return errOutcome(fmt.Errorf("dispatching poll invocation: %w", err)), progressURL
	}

	return outcome{flag: models.FlagInitiated, msg: progressURL}, progressURL
}

func (o *Orchestrator) quotaExceeded(ctx context.Context, userID int64) outcome {
	return outcome{
		flag: models.FlagQuotaExceeded,
		msg:  canvas.QuotaExceededMessage(ctx, o.canvas, userID),
	}
}

// sizeHint extracts the optional file size hint. JSON numbers arrive as
// float64; string values are tolerated for callers that form-encode.
func sizeHint(params models.Params) int64 {
	switch v := params[models.KeyFileSizeHint].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
