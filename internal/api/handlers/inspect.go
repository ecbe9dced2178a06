// Task 3.3: Route inspection endpoint.
// Walks the live router instead of keeping a parallel route table, so the
// listing can never drift from what the server actually serves.
package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RouteInfo is one served route.
type RouteInfo struct {
	Route  string `json:"route"`
	Method string `json:"method"`
}

// ListRoutesResponse is the response body for GET /v1/inspect/routes.
type ListRoutesResponse struct {
	Data []RouteInfo `json:"data"`
}

// InspectHandler handles HTTP requests for router introspection.
type InspectHandler struct {
	router chi.Routes
}

// NewInspectHandler creates a new InspectHandler over the router it is
// mounted on.
func NewInspectHandler(router chi.Routes) *InspectHandler {
	return &InspectHandler{router: router}
}

// ListRoutes handles GET /v1/inspect/routes
func (h *InspectHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	var routes []RouteInfo
	walker := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		// chi renders mounted subrouters with a trailing /*; keep the
		// pattern as-is but normalize duplicate slashes.
		routes = append(routes, RouteInfo{
			Route:  strings.ReplaceAll(route, "//", "/"),
			Method: method,
		})
		return nil
	}
	if err := chi.Walk(h.router, walker); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Route != routes[j].Route {
			return routes[i].Route < routes[j].Route
		}
		return routes[i].Method < routes[j].Method
	})
	writeJSON(w, http.StatusOK, ListRoutesResponse{Data: routes})
}
