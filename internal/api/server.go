// Package api provides the HTTP admin API: catalog inspection and upload,
// selection history, health, and the live event stream.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/songrequest/server/internal/catalog"
	"github.com/songrequest/server/internal/domain"
)

// Catalog is the read side of the catalog store.
type Catalog interface {
	Stats() catalog.Stats
	AllTracks() []domain.Track
	KeyboardFor(f domain.Field) ([]string, error)
	QueryByFieldPrefix(f domain.Field, letter string) ([]string, error)
	QueryPairsByField(f domain.Field, value string) ([]domain.Track, error)
}

// Uploader applies catalog uploads.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (catalog.Result, error)
	ReloadFile(ctx context.Context) (catalog.Result, bool, error)
}

// Selections exposes the announced selection history.
type Selections interface {
	History(ctx context.Context, limit int) ([]domain.Selection, error)
}

// Pinger checks the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EventStream serves the event stream and reports its clients.
type EventStream interface {
	http.Handler
	ClientCount() int
}

// Deps are the collaborators of the HTTP API. Nil members degrade the
// matching endpoints.
type Deps struct {
	Catalog    Catalog
	Uploader   Uploader
	Selections Selections
	Database   Pinger
	Events     EventStream
	// Sessions reports the number of live dialog sessions.
	Sessions func() int
	// MaxUploadBytes bounds PUT /api/v1/catalog.
	MaxUploadBytes int64
	// AllowedOrigins enables CORS for browser dashboards.
	AllowedOrigins []string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	deps   Deps
	router *chi.Mux
	api    huma.API
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", catalogNameHeader},
			MaxAge:         300,
		}))
	}

	humaConfig := huma.DefaultConfig("Song Request API", "1.0.0")
	humaConfig.Info.Description = "Catalog management and request history for the song request bot."

	s := &Server{
		deps:   deps,
		router: router,
		api:    humachi.New(router, humaConfig),
		logger: logger,
	}

	RegisterErrorHandler()
	s.registerHealthRoutes()
	s.registerCatalogRoutes()
	s.registerSelectionRoutes()

	// The stream is plain net/http: huma operations are request/response.
	if deps.Events != nil {
		router.Get("/api/v1/events", deps.Events.ServeHTTP)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for OpenAPI export and tests.
func (s *Server) API() huma.API {
	return s.api
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// The stream logs its own connects and disconnects.
			if r.URL.Path == "/api/v1/events" {
				return
			}
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
