package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/calstateteach/canvas-upload-service/internal/api/response"
	"github.com/calstateteach/canvas-upload-service/pkg/models"
)

// functionErrorHeader signals an unhandled fault to HTTP dispatch callers,
// which treat any value in this header as a rejected invocation even on a
// 2xx status.
const functionErrorHeader = "X-Function-Error"

// InvokeFunc runs one upload invocation and returns its result mapping.
type InvokeFunc func(ctx context.Context, params models.Params) models.Params

// NewInvokeHandler returns an http.HandlerFunc that decodes the request body
// into an upload parameter mapping, runs invoke, and writes the result back
// as a bare JSON object.
//
// A panic escaping invoke means the orchestration layer already reported the
// fault through its callback; here it is translated to the function-error
// header so an HTTP dispatcher counts the invocation as failed rather than
// silently succeeded.
func NewInvokeHandler(invoke InvokeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params models.Params
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("invocation fault",
					"error", rec,
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
				)
				w.Header().Set(functionErrorHeader, "Unhandled")
				response.Error(w, http.StatusOK,
					"INVOCATION_FAULT", "The invocation terminated abnormally", nil)
			}
		}()

		result := invoke(r.Context(), params)
		response.Result(w, result)
	}
}
