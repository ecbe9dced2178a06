// Task 3.3: HTTP handlers for provider inspection.
// Providers come from the loaded manifest only; they cannot be registered
// at runtime. Config values that look like secrets are redacted before
// they leave the process.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
)

// ProviderHandler handles HTTP requests for provider listing.
type ProviderHandler struct {
	manifest *manifest.Manifest
}

// NewProviderHandler creates a new ProviderHandler instance.
func NewProviderHandler(m *manifest.Manifest) *ProviderHandler {
	return &ProviderHandler{manifest: m}
}

// ListProvidersResponse is the response body for listing providers.
type ListProvidersResponse struct {
	Data []manifest.ProviderInfo `json:"data"`
}

// ListProviders handles GET /v1/providers
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	redacted := h.manifest.Redact()
	writeJSON(w, http.StatusOK, ListProvidersResponse{Data: redacted.ProviderList()})
}

// GetProvider handles GET /v1/providers/{provider_id}
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider_id")

	redacted := h.manifest.Redact()
	for _, p := range redacted.ProviderList() {
		if p.ProviderID == providerID {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "provider not found: "+providerID)
}
