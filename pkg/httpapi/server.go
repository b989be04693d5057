// Package httpapi exposes the knowledge-graph engine to the chat application
// over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/graphmind/kgraph/pkg/interfaces"
	"github.com/graphmind/kgraph/pkg/kgraph"
	"github.com/graphmind/kgraph/pkg/logging"
)

// Engine is the slice of the knowledge-graph engine the HTTP layer depends on.
type Engine interface {
	UpsertNodes(ctx context.Context, userID string, inputs []kgraph.NodeInput) ([]kgraph.Node, error)
	UpsertEdges(ctx context.Context, userID string, inputs []kgraph.EdgeInput) ([]kgraph.Edge, error)
	DeleteRecords(ctx context.Context, userID string, ids []string) error
	Synonyms(ctx context.Context, userID, nodeID string, topK int) ([]kgraph.Recommendation, error)
	LeastSimilar(ctx context.Context, userID, nodeID string, topK int) ([]kgraph.Recommendation, error)
	EdgeAnalogy(ctx context.Context, userID, nodeID, label string, topK int) ([]kgraph.Recommendation, error)
	ProjectLayout(ctx context.Context, userID string) ([]interfaces.Coordinate, error)
}

// Server wires the engine's operations into an HTTP handler.
type Server struct {
	engine  Engine
	layouts interfaces.LayoutRepository
	logger  logging.Logger
}

// Option represents an option for configuring the server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLayoutRepository enables coordinate persistence after layout
// computation. Without it, layout responses are returned but not stored.
func WithLayoutRepository(repo interfaces.LayoutRepository) Option {
	return func(s *Server) {
		s.layouts = repo
	}
}

// NewServer creates an HTTP server over the given engine.
func NewServer(engine Engine, options ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.New(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", s.health)
	router.Post("/embed/node", s.embedNodes)
	router.Post("/embed/edge", s.embedEdges)
	router.Post("/embed/delete", s.deleteRecords)
	router.Post("/recommendation", s.recommendation)
	router.Post("/calculate-layout", s.calculateLayout)

	return router
}
