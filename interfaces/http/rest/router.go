// Package rest wires the HTTP surface: routing, middleware, and handlers.
package rest

import (
	"net/http"

	"braindump/interfaces/http/rest/handlers"
	"braindump/interfaces/http/rest/middleware"
	"braindump/pkg/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	ingest       *handlers.IngestHandler
	nodes        *handlers.NodeHandler
	settings     *handlers.SettingsHandler
	integrations *handlers.IntegrationHandler
	validator    *auth.JWTValidator
	enableCORS   bool
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	ingest *handlers.IngestHandler,
	nodes *handlers.NodeHandler,
	settings *handlers.SettingsHandler,
	integrations *handlers.IntegrationHandler,
	validator *auth.JWTValidator,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		ingest:       ingest,
		nodes:        nodes,
		settings:     settings,
		integrations: integrations,
		validator:    validator,
		enableCORS:   enableCORS,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.braindump.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		r.Post("/ingest", rt.ingest.Ingest)

		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", rt.nodes.List)
			r.Get("/active", rt.nodes.Active)
			r.Post("/complete", rt.nodes.Complete)
			r.Post("/{nodeID}/complete", rt.nodes.Complete)
			r.Post("/{nodeID}/execute", rt.nodes.Execute)
			r.Delete("/{nodeID}", rt.nodes.Delete)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/contacts", rt.settings.GetContacts)
			r.Put("/contacts", rt.settings.PutContacts)
			r.Get("/slack-targets", rt.settings.GetSlackTargets)
			r.Put("/slack-targets", rt.settings.PutSlackTargets)
		})

		r.Route("/integrations", func(r chi.Router) {
			r.Get("/", rt.integrations.Status)
			r.Post("/{provider}/start", rt.integrations.Start)
			r.Post("/{provider}/exchange", rt.integrations.Exchange)
			r.Delete("/{provider}", rt.integrations.Disconnect)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
