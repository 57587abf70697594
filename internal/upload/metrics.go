package upload

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/calstateteach/canvas-upload-service/pkg/models"
)

var (
	outcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_upload_outcome_total",
		Help: "Total job outcomes reported, by entry point and flag.",
	}, []string{"entry", "flag"})

	callbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_upload_callback_total",
		Help: "Total callback delivery attempts, by result.",
	}, []string{"result"})

	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_upload_dispatch_total",
		Help: "Total poll dispatches, by mode and result.",
	}, []string{"mode", "result"})
)

func recordOutcome(entry string, f models.Flag) {
	outcomeTotal.WithLabelValues(entry, f.String()).Inc()
}
