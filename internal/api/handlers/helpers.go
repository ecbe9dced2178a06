// Task 3.3: Handler helper functions
package handlers

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes bounds registration payloads; resource records are small.
const maxBodyBytes = 1 << 20

// writeError writes a JSON error response in the shared format.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}
