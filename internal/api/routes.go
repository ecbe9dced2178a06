// Task 3.4: Route registration and go-chi router setup.
// Public routes (/v1/health, /v1/version, /metrics) vs protected routes
// (everything else under /v1, bearer JWT when the manifest configures
// server.auth).
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/matiasleandrokruk/stackd/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/stackd/internal/api/middleware"
	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
	"github.com/matiasleandrokruk/stackd/internal/domain/registry"
)

// kindStems maps resource kinds to their route stems under /v1.
var kindStems = map[string]string{
	manifest.KindModel:     "models",
	manifest.KindShield:    "shields",
	manifest.KindVectorDB:  "vector-dbs",
	manifest.KindDataset:   "datasets",
	manifest.KindScoringFn: "scoring-functions",
	manifest.KindBenchmark: "benchmarks",
	manifest.KindToolGroup: "toolgroups",
}

// Deps carries everything the router serves.
type Deps struct {
	Manifest *manifest.Manifest
	Registry *registry.Registry
	Logger   zerolog.Logger

	// AuthSecret enables bearer JWT auth on protected routes when non-nil.
	AuthSecret []byte
}

// NewRouter creates and configures a new chi router with all routes.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(apmiddleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
	}))
	r.Use(apmiddleware.Metrics)

	// ===== PUBLIC ROUTES (no auth required) =====

	// Health check — unauthenticated, used by load balancers and compose
	// health probes
	r.Get("/v1/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})
	r.Get("/v1/version", handlers.Version)
	r.Handle("/metrics", promhttp.Handler())

	// ===== PROTECTED ROUTES (bearer JWT when server.auth is configured) =====

	r.Group(func(g chi.Router) {
		if deps.AuthSecret != nil {
			g.Use(apmiddleware.Auth(deps.AuthSecret))
		}

		providerHandler := handlers.NewProviderHandler(deps.Manifest)
		g.Route("/v1/providers", func(g chi.Router) {
			g.Get("/", providerHandler.ListProviders)            // GET /v1/providers
			g.Get("/{provider_id}", providerHandler.GetProvider) // GET /v1/providers/{provider_id}
		})

		// One handler per resource kind; identifiers may contain slashes,
		// so item routes match a wildcard tail.
		for _, kind := range manifest.Kinds {
			resourceHandler := handlers.NewResourceHandler(deps.Registry, deps.Manifest, kind)
			g.Route("/v1/"+kindStems[kind], func(g chi.Router) {
				g.Get("/", resourceHandler.List)
				g.Post("/", resourceHandler.Register)
				g.Get("/*", resourceHandler.Get)
				g.Delete("/*", resourceHandler.Unregister)
			})
		}

		// Walks the top-level mux, so the listing covers public routes too.
		inspectHandler := handlers.NewInspectHandler(r)
		g.Get("/v1/inspect/routes", inspectHandler.ListRoutes)
	})

	return r
}
