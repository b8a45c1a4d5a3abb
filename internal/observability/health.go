// Package observability provides the engine's Prometheus metrics and the
// health/readiness/stats HTTP surface: a liveness probe, a readiness probe
// gated on store connectivity, a JSON stats endpoint, and a /metrics
// handler.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	probeTimeoutShort = 5 * time.Second
	probeTimeoutLong  = 10 * time.Second
)

// Engine metrics, registered once at package init.
var (
	ExpressionsProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "landcrawl_expressions_processed_total",
		Help: "Total number of Expressions processed by the Batch Scheduler",
	})
	ExpressionsErroredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "landcrawl_expressions_errored_total",
		Help: "Total number of Expressions that ended in a non-content outcome",
	})
	ExpressionsApprovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "landcrawl_expressions_approved_total",
		Help: "Total number of Expressions approved (relevance > 0)",
	})
	RelevanceGateCallsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "landcrawl_relevance_gate_calls_total",
		Help: "Total number of relevance gate consultations",
	})
	RelevanceGateErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "landcrawl_relevance_gate_errors_total",
		Help: "Total number of relevance gate calls that returned no opinion",
	})
	BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "landcrawl_batch_duration_seconds",
		Help:    "Wall-clock duration of one Batch Scheduler barrier batch",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		ExpressionsProcessedTotal,
		ExpressionsErroredTotal,
		ExpressionsApprovedTotal,
		RelevanceGateCallsTotal,
		RelevanceGateErrorsTotal,
		BatchDuration,
	)
}

// Pinger is the minimal readiness dependency: the store connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsSource reports the current engine-wide Expression totals surfaced by
// the /stats endpoint.
type StatsSource interface {
	EngineStats(ctx context.Context) (map[string]any, error)
}

// Server hosts the engine's health/readiness/stats/metrics endpoints.
type Server struct {
	store  Pinger
	stats  StatsSource
	port   int
	ready  atomic.Bool
	server *http.Server
}

// NewServer constructs a Server. store is consulted by the readiness probe;
// stats (may be nil) backs /stats.
func NewServer(store Pinger, stats StatsSource, port int) *Server {
	s := &Server{store: store, stats: stats, port: port}
	s.ready.Store(false)

	return s
}

// SetReady marks the server ready or not ready for traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start runs the HTTP server until ctx is cancelled, performing a bounded
// graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: probeTimeoutShort,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), probeTimeoutShort)
		defer cancel()

		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("start health server: %w", err)
	}

	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeoutShort)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, "stats unavailable", http.StatusNotImplemented)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeoutLong)
	defer cancel()

	stats, err := s.stats.EngineStats(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}
