// Package metrics exposes sweep and reconciliation counters over HTTP in
// the Prometheus text format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	defaultEndpoint = "/metrics"
	namespace       = "dnsm"
)

// Metrics holds the collectors dnsm reports.
type Metrics struct {
	Registry *prometheus.Registry

	SweepRuns       prometheus.Counter
	RecordsExpired  prometheus.Counter
	SweepFailures   *prometheus.CounterVec
	ExpiringSoon    prometheus.Gauge
	LastSweepUnixTS prometheus.Gauge
}

// New registers the dnsm collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sweep_runs_total",
			Help: "Number of expiry sweeps run.",
		}),
		RecordsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_expired_total",
			Help: "Number of expired records removed.",
		}),
		SweepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sweep_failures_total",
			Help: "Expired records whose removal failed, by failed side.",
		}, []string{"side"}),
		ExpiringSoon: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "records_expiring_soon",
			Help: "Records expiring within the warning window at the last sweep.",
		}),
		LastSweepUnixTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_sweep_timestamp_seconds",
			Help: "Unix time of the last completed sweep.",
		}),
	}
	reg.MustRegister(m.SweepRuns, m.RecordsExpired, m.SweepFailures, m.ExpiringSoon, m.LastSweepUnixTS)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Server serves /metrics until Shutdown.
type Server struct {
	*http.Server
	Endpoint string
}

// NewServer returns a server for m listening on addr.
func NewServer(addr string, m *Metrics) *Server {
	router := http.NewServeMux()
	router.Handle(defaultEndpoint, m.Handler())
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		Endpoint: defaultEndpoint,
	}
}

// Start listens on the configured address and serves in the background.
// It returns once the listener is bound.
func (s *Server) Start() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to listen on %s: %w", s.Addr, err)
	}
	go func() {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.Infof("serving metrics on %s%s", ln.Addr(), s.Endpoint)
	return ln.Addr(), nil
}

// Shutdown stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
