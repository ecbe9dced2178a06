// Task 3.3: Version endpoint
package handlers

import (
	"net/http"

	"github.com/matiasleandrokruk/stackd/internal/version"
)

// VersionResponse is the response body for GET /v1/version.
type VersionResponse struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
}

// Version handles GET /v1/version
func Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:   version.Version,
		BuildTime: version.BuildTime,
	})
}
