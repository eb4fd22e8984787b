package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Shoaibashk/GaugeLink/internal/poll"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadingsFunc returns the latest samples of every poller
type ReadingsFunc func() []poll.Sample

// Server serves /metrics, /health and /readings
type Server struct {
	srv    *http.Server
	logger *log.Logger
}

// NewServer creates the exposition server. path is the metrics path.
func NewServer(addr, path string, e *Exporter, readings ReadingsFunc, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(e.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/readings", func(w http.ResponseWriter, r *http.Request) {
		samples := []poll.Sample{}
		if readings != nil {
			samples = append(samples, readings()...)
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(samples); err != nil {
			logger.Error("encode readings", "err", err)
		}
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves in the background until Shutdown
func (s *Server) Start() {
	s.logger.Info("Metrics server listening", "address", s.srv.Addr)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server error", "err", err)
		}
	}()
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
