package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
)

func mountProviders(m *manifest.Manifest) *chi.Mux {
	h := NewProviderHandler(m)
	r := chi.NewRouter()
	r.Route("/v1/providers", func(r chi.Router) {
		r.Get("/", h.ListProviders)
		r.Get("/{provider_id}", h.GetProvider)
	})
	return r
}

func TestListProvidersRedactsSecrets(t *testing.T) {
	t.Parallel()

	mux := mountProviders(testManifest())
	req := httptest.NewRequest(http.MethodGet, "/v1/providers/", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ListProvidersResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("got %d providers, want 2", len(resp.Data))
	}
	for _, p := range resp.Data {
		if p.ProviderID == "ollama" {
			if p.Config["api_key"] != "********" {
				t.Fatalf("api_key not redacted: %v", p.Config["api_key"])
			}
			if p.Config["url"] != "http://localhost:11434" {
				t.Fatalf("non-secret config mangled: %v", p.Config["url"])
			}
		}
	}
}

func TestListProvidersDoesNotMutateManifest(t *testing.T) {
	t.Parallel()

	m := testManifest()
	mux := mountProviders(m)
	req := httptest.NewRequest(http.MethodGet, "/v1/providers/", nil)
	mux.ServeHTTP(httptest.NewRecorder(), req)

	if m.Providers["inference"][0].Config["api_key"] != "super-secret" {
		t.Fatal("redaction leaked into the loaded manifest")
	}
}

func TestGetProvider(t *testing.T) {
	t.Parallel()

	mux := mountProviders(testManifest())
	req := httptest.NewRequest(http.MethodGet, "/v1/providers/llama-guard", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var p manifest.ProviderInfo
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.API != "safety" || p.ProviderType != "inline::llama-guard" {
		t.Fatalf("unexpected provider: %+v", p)
	}
}

func TestGetProviderNotFound(t *testing.T) {
	t.Parallel()

	mux := mountProviders(testManifest())
	req := httptest.NewRequest(http.MethodGet, "/v1/providers/absent", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
