// Package api exposes the book catalog over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/bookcatalog/internal/catalog"
	"github.com/listenupapp/bookcatalog/internal/credentials"
	"github.com/listenupapp/bookcatalog/internal/domain"
	"github.com/listenupapp/bookcatalog/internal/ratelimit"
	"github.com/listenupapp/bookcatalog/internal/search"
)

// CatalogService is the catalog surface the handlers drive.
type CatalogService interface {
	State() catalog.State
	Books() []domain.Book
	ClearError()
	FetchBooks(ctx context.Context) error
	AddBook(ctx context.Context, draft domain.NewBook) (domain.Book, error)
	FetchBookByID(ctx context.Context, bookID string) ([]domain.Book, error)
	UpdateBook(ctx context.Context, bookID string, patch domain.BookPatch) (domain.Book, error)
	DeleteBook(ctx context.Context, bookID string) error
}

// Searcher queries the mirror index.
type Searcher interface {
	Search(ctx context.Context, params search.Params) (*search.Result, error)
	MatchingIDs(ctx context.Context, text string) ([]string, error)
	DocumentCount() (uint64, error)
	Generation() uint64
}

// ClientCounter reports connected event stream clients.
type ClientCounter interface {
	ClientCount() int
}

// Validator checks request bodies.
type Validator interface {
	Validate(any) error
}

// Deps holds everything the server needs.
type Deps struct {
	Catalog     CatalogService
	Credentials credentials.Store
	Search      Searcher
	Validator   Validator
	Events      http.Handler
	Clients     ClientCounter

	CORSOrigins []string
	// Mutations per second allowed per client IP. Zero disables the limit.
	MutationRPS   float64
	MutationBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	catalog   CatalogService
	creds     credentials.Store
	search    Searcher
	validator Validator
	events    http.Handler
	clients   ClientCounter
	limiter   *ratelimit.KeyedRateLimiter
	router    *chi.Mux
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		catalog:   deps.Catalog,
		creds:     deps.Credentials,
		search:    deps.Search,
		validator: deps.Validator,
		events:    deps.Events,
		clients:   deps.Clients,
		router:    chi.NewRouter(),
		logger:    logger,
	}
	if deps.MutationRPS > 0 {
		burst := max(deps.MutationBurst, 1)
		s.limiter = ratelimit.New(deps.MutationRPS, burst)
	}

	s.setupMiddleware(deps.CORSOrigins)
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", s.handleGetCatalog)
		r.With(s.limitMutations).Delete("/catalog/error", s.handleClearError)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.handleListBooks)
			r.Get("/{id}", s.handleGetBook)

			r.Group(func(r chi.Router) {
				r.Use(s.limitMutations)
				r.Post("/", s.handleAddBook)
				r.Post("/refresh", s.handleRefreshBooks)
				r.Put("/{id}", s.handleUpdateBook)
				r.Delete("/{id}", s.handleDeleteBook)
			})
		})

		r.Get("/search", s.handleSearch)

		r.Route("/credentials", func(r chi.Router) {
			r.Use(s.limitMutations)
			r.Put("/", s.handlePutCredentials)
			r.Delete("/", s.handleDeleteCredentials)
		})

		if s.events != nil {
			r.Get("/events", s.events.ServeHTTP)
		}
	})
}

// NewHTTPServer wraps handler in an http.Server with the given timeouts.
// A zero write timeout keeps event streams open.
func NewHTTPServer(addr string, handler http.Handler, readTimeout, writeTimeout, idleTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
