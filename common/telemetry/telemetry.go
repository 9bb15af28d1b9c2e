package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/lyzr/recipes/common/logger"
	"github.com/lyzr/recipes/common/metrics"
)

// Telemetry holds observability endpoints
type Telemetry struct {
	log     *logger.Logger
	metrics *metrics.Metrics

	pprofAddr   string
	metricsAddr string

	mu      sync.Mutex
	servers []*http.Server
}

// New creates telemetry components. A zero port disables that endpoint.
func New(pprofPort, metricsPort int, m *metrics.Metrics, log *logger.Logger) *Telemetry {
	t := &Telemetry{log: log, metrics: m}
	if pprofPort > 0 {
		t.pprofAddr = fmt.Sprintf("localhost:%d", pprofPort)
	}
	if metricsPort > 0 && m != nil {
		t.metricsAddr = fmt.Sprintf(":%d", metricsPort)
	}
	return t
}

// Start starts the enabled telemetry endpoints in the background
func (t *Telemetry) Start(ctx context.Context) error {
	if t.pprofAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		t.serve("pprof", t.pprofAddr, mux)
	}

	if t.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", t.metrics.Handler())
		t.serve("metrics", t.metricsAddr, mux)
	}

	return nil
}

func (t *Telemetry) serve(name, addr string, handler http.Handler) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	t.mu.Lock()
	t.servers = append(t.servers, srv)
	t.mu.Unlock()

	go func() {
		t.log.Info(name+" server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error(name+" server error", "error", err)
		}
	}()
}

// Stop shuts down every endpoint started by Start
func (t *Telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	servers := t.servers
	t.servers = nil
	t.mu.Unlock()

	var errs []error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordDuration logs and records an operation's duration
func (t *Telemetry) RecordDuration(operation, result string, start time.Time) {
	duration := time.Since(start)
	t.metrics.ObserveOperation(operation, result, duration)
	t.log.Debug("operation completed",
		"operation", operation,
		"result", result,
		"duration_ms", duration.Milliseconds(),
	)
}

// RecordEvent records a telemetry event
func (t *Telemetry) RecordEvent(event string, attrs map[string]any) {
	t.metrics.EventObserved(event)
	t.log.Info("telemetry_event",
		"event", event,
		"attrs", attrs,
	)
}
