package upload

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/calstateteach/canvas-upload-service/pkg/models"
)

// outcome is the tagged result of one orchestration pass. Internal operations
// return an outcome instead of raising; the entry points convert it into the
// result mapping, record it, and deliver it exactly once.
type outcome struct {
	flag models.Flag
	msg  string
}

func errOutcome(err error) outcome {
	return outcome{flag: models.FlagError, msg: err.Error()}
}

// recoverReport is the shared fault adapter deferred at every entry point.
// An unexpected panic is logged with its stack, reported via callback as ERROR
// on a best-effort basis, and then re-raised so the hosting fault handler also
// observes the failure.
func recoverReport(ctx context.Context, r Reporter, params models.Params, entry string) {
	rec := recover()
	if rec == nil {
		return
	}

	diag := fmt.Sprintf("panic: %v\n%s", rec, debug.Stack())
	slog.Error("unexpected failure", "entry", entry, "error", rec)

	recordOutcome(entry, models.FlagError)
	r.Report(ctx, params.CallbackURL(), params.WithOutcome(models.FlagError, diag))

	panic(rec)
}
