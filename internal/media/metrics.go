package media

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels for Metrics.Operations.
const (
	OpDecode = "decode"
	OpResize = "resize"
	OpEncode = "encode"
)

type Metrics struct {
	// Operations counts filesystem-touching pipeline steps by op label.
	Operations *prometheus.CounterVec
	// Resolutions counts finished resolutions by result label ("image" or "not_image").
	Resolutions *prometheus.CounterVec
}

// newMetrics registers the pipeline counters with reg. A nil reg leaves them
// unregistered, which is what tests want.
func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worklog_image_pipeline_operations_total",
				Help: "Total number of image decode, resize and encode attempts",
			},
			[]string{"op"},
		),
		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worklog_image_resolutions_total",
				Help: "Total number of attachment image resolutions by result",
			},
			[]string{"result"},
		),
	}
}
