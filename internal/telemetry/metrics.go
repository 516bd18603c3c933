package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Playback engine metrics.
var (
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "segue_dispatch_total",
		Help: "Queue item dispatches by item kind.",
	}, []string{"kind"})

	SkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "segue_skips_total",
		Help: "Queue items skipped because their segment no longer exists.",
	})

	FadesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "segue_fades_total",
		Help: "Crossfades performed at segment boundaries.",
	})

	PlayerErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "segue_player_errors_total",
		Help: "Errors surfaced by the player adapter.",
	})

	QueuePosition = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "segue_queue_position",
		Help: "Current playback cursor position within the queue.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
