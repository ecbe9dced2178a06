package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
	"github.com/matiasleandrokruk/stackd/internal/infra/logging"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func serverManifest(port int) *manifest.Manifest {
	return &manifest.Manifest{
		Version:   manifest.CurrentVersion,
		ImageName: "server-test",
		APIs:      []string{"inference"},
		Providers: map[string][]manifest.Provider{
			"inference": {
				{ProviderID: "ollama", ProviderType: "remote::ollama", Config: map[string]any{}},
			},
		},
		Models: []manifest.Model{
			{ModelID: "llama3.2:3b", ProviderID: "ollama", ModelType: "llm"},
		},
		Server: manifest.Server{Host: "127.0.0.1", Port: port},
	}
}

func startServer(t *testing.T, m *manifest.Manifest) *Server {
	t.Helper()
	srv, err := New(context.Background(), logging.Nop(), m)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Errorf("Start error: %v", err)
		}
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx) //nolint:errcheck
	})

	base := "http://" + srv.Addr()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/v1/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return srv
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server never became healthy")
	return nil
}

func TestServerServesManifestResources(t *testing.T) {
	port := freePort(t)
	srv := startServer(t, serverManifest(port))
	base := "http://" + srv.Addr()

	resp, err := http.Get(base + "/v1/models")
	if err != nil {
		t.Fatalf("GET /v1/models: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Data []struct {
			Identifier string `json:"identifier"`
			Provenance string `json:"provenance"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Identifier != "llama3.2:3b" {
		t.Fatalf("unexpected models: %+v", body.Data)
	}
	if body.Data[0].Provenance != "manifest" {
		t.Fatalf("provenance = %q, want manifest", body.Data[0].Provenance)
	}
}

func TestServerRegisterThenUnregister(t *testing.T) {
	port := freePort(t)
	srv := startServer(t, serverManifest(port))
	base := "http://" + srv.Addr()

	body := strings.NewReader(`{"model_id":"dynamic-model","provider_id":"ollama"}`)
	resp, err := http.Post(base+"/v1/models", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, base+"/v1/models/dynamic-model", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", resp.StatusCode)
	}
}

func TestServerAuthSecretMissing(t *testing.T) {
	m := serverManifest(freePort(t))
	m.Server.Auth = &manifest.Auth{
		ProviderType: manifest.AuthProviderBearer,
		Config:       manifest.AuthConfig{SecretEnv: "STACKD_TEST_UNSET_SECRET"},
	}

	_, err := New(context.Background(), logging.Nop(), m)
	if err == nil || !strings.Contains(err.Error(), "STACKD_TEST_UNSET_SECRET") {
		t.Fatalf("expected missing-secret error, got %v", err)
	}
}

func TestServerAddrFromManifest(t *testing.T) {
	t.Parallel()

	m := serverManifest(9321)
	srv, err := New(context.Background(), logging.Nop(), m)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer srv.Shutdown(context.Background()) //nolint:errcheck
	if srv.Addr() != fmt.Sprintf("127.0.0.1:%d", 9321) {
		t.Fatalf("Addr = %q", srv.Addr())
	}
}

// syncBuffer lets the event-loop goroutine write log lines while the
// test polls them.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServerEventLogCarriesEventID(t *testing.T) {
	var logs syncBuffer
	m := serverManifest(freePort(t))
	srv, err := New(context.Background(), logging.New(&logs, "info", "json"), m)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	go srv.Start() //nolint:errcheck
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx) //nolint:errcheck
	})

	base := "http://" + srv.Addr()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, healthErr := http.Get(base + "/v1/health")
		if healthErr == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}

	body := strings.NewReader(`{"model_id":"traced-model","provider_id":"ollama"}`)
	resp, err := http.Post(base+"/v1/models", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		out := logs.String()
		if strings.Contains(out, "registry event") && strings.Contains(out, `"event_id"`) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("registry event log line missing event_id:\n%s", logs.String())
}

func TestServerShutdownStopsEventLoop(t *testing.T) {
	baseline := runtime.NumGoroutine()

	m := serverManifest(freePort(t))
	srv, err := New(context.Background(), logging.Nop(), m)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("event loop still running: %d goroutines, baseline %d",
		runtime.NumGoroutine(), baseline)
}
