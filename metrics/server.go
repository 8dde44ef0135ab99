package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/tinyland/lab/net-meter/monitor"
)

const shutdownTimeout = 5 * time.Second

// Health is the /healthz response body.
type Health struct {
	Status   string            `json:"status"`
	Ticks    uint64            `json:"ticks"`
	LastTick time.Time         `json:"last_tick"`
	Alerts   string            `json:"alerts"`
	Samplers map[string]string `json:"samplers"`
}

// Server serves /metrics and /healthz for a monitor.
type Server struct {
	addr   string
	mon    *monitor.Monitor
	logger *slog.Logger
	router *mux.Router
	now    func() time.Time
}

// NewServer builds the routes. A nil logger discards output.
func NewServer(addr string, mon *monitor.Monitor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{addr: addr, mon: mon, logger: logger, now: time.Now}

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(mon))

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthCheck reports whether the monitor ticked within two intervals.
func (s *Server) healthCheck() (Health, bool) {
	r := s.mon.Report()
	h := Health{
		Status:   "ok",
		Ticks:    r.Seq,
		LastTick: r.At,
		Alerts:   r.Status.Overall.String(),
		Samplers: r.Samplers,
	}
	switch {
	case r.Seq == 0:
		h.Status = "starting"
	case s.now().Sub(r.At) > 2*s.mon.Interval():
		h.Status = "stale"
		return h, false
	}
	for _, state := range r.Samplers {
		if state != "ok" {
			h.Status = "degraded"
			break
		}
	}
	return h, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h, ok := s.healthCheck()
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(h); err != nil {
		s.logger.Debug("healthz write failed", "error", err)
	}
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics: listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("metrics listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serve: %w", err)
	}
	return nil
}
