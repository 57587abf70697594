package handler

import (
	"net/http"

	"github.com/calstateteach/canvas-upload-service/internal/api/response"
	"github.com/calstateteach/canvas-upload-service/internal/cache"
)

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health. The
// cache check only runs when a cache is configured; the service itself stays
// usable without one.
func NewHealthHandler(env string, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}

		if c != nil {
			checks["cache"] = "ok"
			if err := c.Ping(r.Context()); err != nil {
				checks["cache"] = "degraded"
			}
		}

		for _, status := range checks {
			if status != "ok" {
				response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
					"One or more services degraded", checks)
				return
			}
		}

		response.Result(w, map[string]any{
			"status":   "ok",
			"env":      env,
			"services": checks,
		})
	}
}
