package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// statusStore keeps the reports of completed runs for the status endpoint.
type statusStore struct {
	mu      sync.RWMutex
	reports []runReport
}

func (s *statusStore) add(report runReport) {
	s.mu.Lock()
	s.reports = append(s.reports, report)
	s.mu.Unlock()
}

func (s *statusStore) snapshot() []runReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]runReport(nil), s.reports...)
}

func newRouter(status *statusStore, opts ...otelhttp.Option) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"runs": status.snapshot()})
	})
	return otelhttp.NewHandler(r, "hooksim", opts...)
}
