// Task 3.5: HTTP server initialization and lifecycle management.
// The server is built from a resolved manifest: it opens the metadata
// store, seeds the resource registry, wires the control-plane router, and
// consumes registry events for logging and metrics. It never touches the
// data plane; inference_store is validated elsewhere and not opened here.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/matiasleandrokruk/stackd/internal/api"
	"github.com/matiasleandrokruk/stackd/internal/api/middleware"
	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
	"github.com/matiasleandrokruk/stackd/internal/domain/registry"
	"github.com/matiasleandrokruk/stackd/internal/infra/eventbus"
	"github.com/matiasleandrokruk/stackd/internal/infra/kvstore"
	"github.com/matiasleandrokruk/stackd/pkg/authtoken"
)

// Timeouts for the control-plane listener. Requests are small JSON
// bodies; nothing here streams.
const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server wraps the HTTP server, the metadata store, and the registry
// event loop.
type Server struct {
	log        zerolog.Logger
	manifest   *manifest.Manifest
	store      kvstore.Store
	registry   *registry.Registry
	http       *http.Server
	eventsDone chan struct{}
}

// New builds a server from a resolved, validated manifest. The metadata
// store is opened here (in-memory when the manifest declares none) and
// closed by Shutdown.
func New(ctx context.Context, log zerolog.Logger, m *manifest.Manifest) (*Server, error) {
	storeSpec := kvstore.Spec{Type: kvstore.TypeMemory}
	if m.MetadataStore != nil {
		storeSpec = *m.MetadataStore
	}
	store, err := kvstore.Open(ctx, storeSpec)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	bus := eventbus.New()
	reg, err := registry.New(ctx, store, bus, m)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, fmt.Errorf("build registry: %w", err)
	}

	var secret []byte
	if m.Server.Auth != nil {
		secret, err = authtoken.SecretFromEnv(m.Server.Auth.Config.SecretEnv)
		if err != nil {
			store.Close() //nolint:errcheck
			return nil, fmt.Errorf("server auth: %w", err)
		}
	}

	router := api.NewRouter(api.Deps{
		Manifest:   m,
		Registry:   reg,
		Logger:     log,
		AuthSecret: secret,
	})

	s := &Server{
		log:      log,
		manifest: m,
		store:    store,
		registry: reg,
		http: &http.Server{
			Addr:         m.Server.Addr(),
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		eventsDone: make(chan struct{}),
	}
	s.consumeEvents(bus)
	return s, nil
}

// consumeEvents logs every registry event and feeds the event counter.
// The bus never closes its channels; the loop runs until Shutdown.
func (s *Server) consumeEvents(bus *eventbus.Bus) {
	registered := bus.Subscribe(registry.TopicResourceRegistered)
	unregistered := bus.Subscribe(registry.TopicResourceUnregistered)

	go func() {
		for {
			select {
			case evt := <-registered:
				s.logEvent(evt, "registered")
			case evt := <-unregistered:
				s.logEvent(evt, "unregistered")
			case <-s.eventsDone:
				return
			}
		}
	}()
}

func (s *Server) logEvent(evt eventbus.Event, action string) {
	payload, _ := evt.Payload.(registry.EventPayload)
	middleware.CountRegistryEvent(payload.Kind, action)
	s.log.Info().
		Str("event_id", evt.ID).
		Str("kind", payload.Kind).
		Str("identifier", payload.Identifier).
		Str("action", action).
		Msg("registry event")
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.http.Addr).
		Str("image_name", s.manifest.ImageName).
		Bool("tls", s.manifest.Server.TLSEnabled()).
		Msg("starting control plane")

	if s.manifest.Server.TLSEnabled() {
		return s.http.ListenAndServeTLS(s.manifest.Server.TLSCertFile, s.manifest.Server.TLSKeyFile)
	}
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server, stops the event loop and
// closes the metadata store. Call it once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down control plane")
	close(s.eventsDone)

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("metadata store close error: %w", err)
	}

	s.log.Info().Msg("control plane shutdown complete")
	return nil
}
