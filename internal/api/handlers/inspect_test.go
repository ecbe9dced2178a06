package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestListRoutesWalksRouter(t *testing.T) {
	t.Parallel()

	mux := chi.NewRouter()
	mux.Get("/v1/health", func(w http.ResponseWriter, r *http.Request) {})
	mux.Post("/v1/models", func(w http.ResponseWriter, r *http.Request) {})
	mux.Get("/v1/inspect/routes", NewInspectHandler(mux).ListRoutes)

	req := httptest.NewRequest(http.MethodGet, "/v1/inspect/routes", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ListRoutesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("got %d routes, want 3: %+v", len(resp.Data), resp.Data)
	}
	// Sorted by route, then method.
	if resp.Data[0].Route != "/v1/health" || resp.Data[0].Method != http.MethodGet {
		t.Fatalf("unexpected first route: %+v", resp.Data[0])
	}
	if resp.Data[2].Route != "/v1/models" || resp.Data[2].Method != http.MethodPost {
		t.Fatalf("unexpected last route: %+v", resp.Data[2])
	}
}
