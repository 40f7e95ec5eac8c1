// Package api serves the dashboard JSON API: the company catalog,
// per-company analytics, and live valuation snapshots.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/narrative"
	"fundamentals-lab/internal/observability"
	"fundamentals-lab/internal/snapshot"
	"fundamentals-lab/internal/storage"
)

// SnapshotSource resolves a live snapshot, blended fair value, and the
// warehouse view of a company. snapshot.Service implements it; degraded
// snapshots come back zeroed and an empty warehouse comes back nil, never
// as errors.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, exchange, ticker string) (domain.ValuationSnapshot, float64)
	History(ctx context.Context, exchange, ticker string) *snapshot.History
}

// ServerOptions contains configuration for creating a Server.
type ServerOptions struct {
	Store storage.DatasetStore
	// Snapshots may be nil; the snapshot route then serves zeroed data.
	Snapshots SnapshotSource
	// Narratives may be nil; analysis responses then carry a null narrative.
	Narratives *narrative.Service
	// DefaultTargetMultiple applies when a request has no multiple param.
	DefaultTargetMultiple float64
	Logger                *log.Logger
}

// Server holds the API dependencies and route handlers.
type Server struct {
	store           storage.DatasetStore
	snapshots       SnapshotSource
	narratives      *narrative.Service
	defaultMultiple float64
	logger          *log.Logger
	started         time.Time
}

// NewServer creates an API server.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	multiple := opts.DefaultTargetMultiple
	if multiple == 0 {
		multiple = 15
	}

	return &Server{
		store:           opts.Store,
		snapshots:       opts.Snapshots,
		narratives:      opts.Narratives,
		defaultMultiple: multiple,
		logger:          logger,
		started:         time.Now(),
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recordRequests)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", observability.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/companies", s.handleCompanies)
		r.Get("/company/{exchange}/{ticker}", s.handleCompany)
		r.Get("/company/{exchange}/{ticker}/snapshot", s.handleSnapshot)
	})

	return r
}

// HTTPServer wraps the router in an http.Server with timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}
