package monitor

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the monitor's Prometheus counters.
type Metrics struct {
	LinesDecoded  prometheus.Counter
	EventsDecoded prometheus.Counter
	Captures      prometheus.Counter
	Sessions      prometheus.Counter
	Notifications *prometheus.CounterVec
}

// NewMetrics registers the monitor counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LinesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "nightwatch_lines_decoded_total",
			Help: "Analyze log lines read by the monitor.",
		}),
		EventsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "nightwatch_events_decoded_total",
			Help: "Typed events produced by the decoder.",
		}),
		Captures: factory.NewCounter(prometheus.CounterOpts{
			Name: "nightwatch_captures_total",
			Help: "Completed captures observed.",
		}),
		Sessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "nightwatch_sessions_total",
			Help: "Imaging sessions started.",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nightwatch_notifications_total",
			Help: "Derived transition notifications by type.",
		}, []string{"type"}),
	}
}

// ServeMetrics exposes the registry on addr until the server fails. Run it
// in its own goroutine; errors other than a clean close are logged.
func ServeMetrics(addr string, reg *prometheus.Registry, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("monitor: metrics server: %v", err)
	}
}
