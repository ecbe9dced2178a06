package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matiasleandrokruk/stackd/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/stackd/pkg/authtoken"
)

var testSecret = []byte("test-secret-please-rotate")

func protected(t *testing.T, gotSubject *string) http.Handler {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := r.Context().Value(ctxkeys.Subject).(string); ok {
			*gotSubject = s
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return Auth(testSecret)(next)
}

func TestAuthValidToken(t *testing.T) {
	t.Parallel()

	token, err := authtoken.GenerateToken(testSecret, "ci-runner", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	var subject string
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t, &subject).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if subject != "ci-runner" {
		t.Fatalf("subject = %q, want ci-runner", subject)
	}
}

func TestAuthMissingHeader(t *testing.T) {
	t.Parallel()

	var subject string
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	protected(t, &subject).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Fatalf("body %q missing error field", rec.Body.String())
	}
}

func TestAuthWrongScheme(t *testing.T) {
	t.Parallel()

	var subject string
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	protected(t, &subject).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := authtoken.GenerateToken([]byte("other-secret"), "ci-runner", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	var subject string
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t, &subject).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthExpiredToken(t *testing.T) {
	t.Parallel()

	token, err := authtoken.GenerateToken(testSecret, "ci-runner", time.Nanosecond)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	var subject string
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t, &subject).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"empty", "", ""},
		{"bearer", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"trailing space", "Bearer  abc ", "abc"},
		{"lowercase scheme", "bearer abc", ""},
		{"no token", "Bearer ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if got := extractBearerToken(req); got != tc.want {
				t.Fatalf("extractBearerToken(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}
