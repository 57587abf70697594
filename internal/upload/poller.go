package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/calstateteach/canvas-upload-service/internal/canvas"
	"github.com/calstateteach/canvas-upload-service/pkg/models"
)

// Poller tracks an in-flight upload by repeatedly querying its progress URL
// until the workflow reaches a terminal state or the wait budget runs out.
// Polling is read-only on the Canvas side, so re-invoking with the same
// progress reference is safe.
type Poller struct {
	canvas   canvas.Client
	reporter Reporter
	interval time.Duration
	maxWait  time.Duration
}

// NewPoller creates a Poller. maxWait must stay below the hosting platform's
// own execution ceiling with margin for the final classification step.
func NewPoller(c canvas.Client, r Reporter, interval, maxWait time.Duration) *Poller {
	return &Poller{canvas: c, reporter: r, interval: interval, maxWait: maxWait}
}

// Poll runs one poll invocation and returns the result mapping: the original
// parameters plus status_flag and status_msg. Every exit path delivers the
// result to the callback endpoint exactly once. A PENDING outcome is not an
// error; it signals the caller to re-invoke with the same progress reference.
func (p *Poller) Poll(ctx context.Context, params models.Params) models.Params {
	defer recoverReport(ctx, p.reporter, params, "poll")

	out := p.poll(ctx, params)
	result := params.WithOutcome(out.flag, out.msg)

	recordOutcome("poll", out.flag)
	p.reporter.Report(ctx, params.CallbackURL(), result)
	return result
}

func (p *Poller) poll(ctx context.Context, params models.Params) outcome {
	progressURL, err := params.RequireString(models.KeyProgressURL)
	if err != nil {
		return errOutcome(err)
	}

	deadline := time.Now().Add(p.maxWait)

	var prog *canvas.Progress
	for {
		prog, err = p.canvas.GetProgress(ctx, progressURL)
		if err != nil {
			return errOutcome(fmt.Errorf("fetching progress %s: %w", progressURL, err))
		}
		if prog.WorkflowState == "" {
			return errOutcome(fmt.Errorf("progress URL %s missing workflow_state field", progressURL))
		}

		if prog.WorkflowState != canvas.StateQueued && prog.WorkflowState != canvas.StateRunning {
			break
		}

		if time.Now().After(deadline) {
			return outcome{
				flag: models.FlagPending,
				msg:  fmt.Sprintf("File upload still pending after more than %s. Progress URL: %s", p.maxWait, progressURL),
			}
		}

		select {
		case <-ctx.Done():
			return errOutcome(fmt.Errorf("poll interrupted: %w", ctx.Err()))
		case <-time.After(p.interval):
		}
	}

	switch prog.WorkflowState {
	case canvas.StateCompleted:
		return p.completed(ctx, prog)
	case canvas.StateFailed:
		return p.failed(ctx, params, prog)
	default:
		return errOutcome(fmt.Errorf("progress URL returned unknown workflow_state of %q", prog.WorkflowState))
	}
}

// completed builds the READY outcome. Failing to fetch the file descriptor is
// logged but does not downgrade the outcome: the upload itself succeeded.
func (p *Poller) completed(ctx context.Context, prog *canvas.Progress) outcome {
	const degradedMsg = "Error when trying to retrieve Canvas file descriptor for the upload."

	if prog.Results == nil {
		slog.Error("completed progress has no results id", "progress_url", prog.URL)
		return outcome{flag: models.FlagReady, msg: degradedMsg}
	}

	f, err := p.canvas.GetFile(ctx, prog.Results.ID)
	if err != nil {
		slog.Error("fetching file descriptor for completed upload", "file_id", prog.Results.ID, "error", err)
		return outcome{flag: models.FlagReady, msg: degradedMsg}
	}

	b, err := json.Marshal(f)
	if err != nil {
		slog.Error("encoding file descriptor", "file_id", prog.Results.ID, "error", err)
		return outcome{flag: models.FlagReady, msg: degradedMsg}
	}
	return outcome{flag: models.FlagReady, msg: string(b)}
}

// failed classifies a failed workflow state, pulling fresh quota figures when
// the remote message indicates the quota limit and the caller told us whose
// account the upload targeted.
func (p *Poller) failed(ctx context.Context, params models.Params, prog *canvas.Progress) outcome {
	if canvas.IsQuotaExceededMessage(prog.Message) {
		msg := prog.Message
		if email := params.OptionalString(models.KeyUserEmail); email != "" {
			if userID, err := canvas.ResolveUserID(ctx, p.canvas, email); err == nil {
				msg = canvas.QuotaExceededMessage(ctx, p.canvas, userID)
			}
		}
		return outcome{flag: models.FlagQuotaExceeded, msg: msg}
	}
	return outcome{flag: models.FlagError, msg: prog.Message}
}
