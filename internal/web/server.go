// Package web serves the board over a JSON HTTP API with a Server-Sent
// Events stream of progress and completion events.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lucasnoah/hirepipe/internal/board"
	"github.com/lucasnoah/hirepipe/internal/events"
	"github.com/lucasnoah/hirepipe/internal/logging"
	"github.com/lucasnoah/hirepipe/internal/reports"
)

const shutdownTimeout = 5 * time.Second

// Server is the board API server.
type Server struct {
	board    *board.Board
	broker   *events.Broker
	reports  *reports.Store
	port     int
	validate *validator.Validate

	// heartbeat is the SSE keep-alive interval.
	heartbeat time.Duration
}

// NewServer creates a Server. broker and store may be nil, which disables
// the event stream and report routes respectively.
func NewServer(b *board.Board, broker *events.Broker, store *reports.Store, port int) *Server {
	return &Server{
		board:     b,
		broker:    broker,
		reports:   store,
		port:      port,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		heartbeat: 15 * time.Second,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Logger(zap.L(), "http"))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/board", s.handleBoard)

		r.Get("/selection", s.handleSelection)
		r.Post("/selection/toggle", s.handleSelectionToggle)
		r.Post("/selection/select-all", s.handleSelectAll)
		r.Post("/selection/clear", s.handleSelectionClear)

		r.Get("/applications/{id}/history", s.handleHistory)
		r.Post("/applications/{id}/move", s.handleMove)

		r.Post("/bulk", s.handleBulk)
		r.Post("/drag", s.handleDrag)
		r.Post("/interviews", s.handleInterviews)

		r.Get("/events", s.handleEvents)

		r.Get("/reports", s.handleReports)
		r.Get("/reports/{runID}", s.handleReport)
	})
	return r
}

// Start listens on the configured port until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log := zap.S().Named("web")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(shutdownCtx)
		log.Info("board server terminated")
	}()

	log.Infof("hirepipe API: http://localhost%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
