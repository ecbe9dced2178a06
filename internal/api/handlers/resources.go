// Task 3.3: HTTP handlers for resource registration.
// One handler serves every resource kind (models, shields, vector DBs,
// datasets, scoring functions, benchmarks, toolgroups); the kind is bound
// at route-registration time. Identifiers may contain slashes (e.g.
// meta-llama/Llama-3.3-70B), so item routes match a wildcard tail.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
	"github.com/matiasleandrokruk/stackd/internal/domain/registry"
)

// ResourceHandler handles HTTP requests for one resource kind.
type ResourceHandler struct {
	registry *registry.Registry
	manifest *manifest.Manifest
	kind     string
}

// NewResourceHandler creates a handler bound to a resource kind.
func NewResourceHandler(reg *registry.Registry, m *manifest.Manifest, kind string) *ResourceHandler {
	return &ResourceHandler{registry: reg, manifest: m, kind: kind}
}

// ListResourcesResponse is the response body for listing resources.
type ListResourcesResponse struct {
	Data []registry.Resource `json:"data"`
}

// List handles GET /v1/<kind-stem>
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	resources, err := h.registry.List(r.Context(), h.kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resources == nil {
		resources = []registry.Resource{}
	}
	writeJSON(w, http.StatusOK, ListResourcesResponse{Data: resources})
}

// Get handles GET /v1/<kind-stem>/{identifier...}
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "*")
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "missing resource identifier")
		return
	}

	res, err := h.registry.Get(r.Context(), h.kind, identifier)
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Register handles POST /v1/<kind-stem>
func (h *ResourceHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	res, err := registry.FromPayload(h.kind, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if res.ProviderID == "" {
		writeError(w, http.StatusBadRequest, "provider_id is required")
		return
	}
	if api := manifest.APIForKind[h.kind]; !h.manifest.HasProvider(api, res.ProviderID) {
		writeError(w, http.StatusBadRequest, "unknown provider for "+api+": "+res.ProviderID)
		return
	}

	if err := h.registry.Register(r.Context(), res); err != nil {
		if errors.Is(err, registry.ErrConflict) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Unregister handles DELETE /v1/<kind-stem>/{identifier...}
func (h *ResourceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "*")
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "missing resource identifier")
		return
	}

	err := h.registry.Unregister(r.Context(), h.kind, identifier)
	switch {
	case errors.Is(err, registry.ErrStaticResource):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
