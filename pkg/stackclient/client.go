// Task 5.3: Go client for a stack server.
// Covers the control-plane surface stackd serves plus the data-plane
// calls (chat completion, vector insert/query) a full stack distribution
// exposes. This is a leaf package: programs embedding it get no server
// dependencies.
package stackclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/matiasleandrokruk/stackd/pkg/identifier"
)

// DefaultHTTPTimeout is used by clients created without a custom
// http.Client. Streaming calls override it with the request context.
const DefaultHTTPTimeout = 30 * time.Second

// Client wraps the HTTP interactions with a stack server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey sends the key as an Authorization bearer token on every call.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// New instantiates a client for the stack server at rawURL.
func New(rawURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("stackclient: invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("stackclient: base url %q must be absolute", rawURL)
	}
	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError represents server-side errors.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stack api error (%d): %s", e.StatusCode, e.Detail)
}

// HealthStatus is the response body of GET /v1/health.
type HealthStatus struct {
	Status string `json:"status"`
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	if err := c.get(ctx, "/v1/health", &out); err != nil {
		return HealthStatus{}, err
	}
	return out, nil
}

// WaitForHealthy polls /v1/health until the server answers ok or ctx is
// done. It replaces compose-style fixed startup sleeps on the client side.
func (c *Client) WaitForHealthy(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if status, err := c.Health(ctx); err == nil && status.Status == "ok" {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("stackclient: server never became healthy: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// VersionInfo is the response body of GET /v1/version.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
}

// Version returns the server's version information.
func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	var out VersionInfo
	if err := c.get(ctx, "/v1/version", &out); err != nil {
		return VersionInfo{}, err
	}
	return out, nil
}

// ProviderInfo is one configured provider as reported by the server.
type ProviderInfo struct {
	API          string         `json:"api"`
	ProviderID   string         `json:"provider_id"`
	ProviderType string         `json:"provider_type"`
	Config       map[string]any `json:"config"`
}

// ListProviders returns every configured provider, config redacted.
func (c *Client) ListProviders(ctx context.Context) ([]ProviderInfo, error) {
	var out struct {
		Data []ProviderInfo `json:"data"`
	}
	if err := c.get(ctx, "/v1/providers", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetProvider returns one provider by id.
func (c *Client) GetProvider(ctx context.Context, providerID string) (ProviderInfo, error) {
	var out ProviderInfo
	if err := c.get(ctx, "/v1/providers/"+providerID, &out); err != nil {
		return ProviderInfo{}, err
	}
	return out, nil
}

// RouteInfo is one served route.
type RouteInfo struct {
	Route  string `json:"route"`
	Method string `json:"method"`
}

// ListRoutes returns the routes the server discovered by walking its router.
func (c *Client) ListRoutes(ctx context.Context) ([]RouteInfo, error) {
	var out struct {
		Data []RouteInfo `json:"data"`
	}
	if err := c.get(ctx, "/v1/inspect/routes", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Resource is one registry entry as the server reports it.
type Resource struct {
	Kind       string          `json:"kind"`
	Identifier string          `json:"identifier"`
	ProviderID string          `json:"provider_id"`
	Provenance string          `json:"provenance"`
	Payload    json.RawMessage `json:"payload"`
}

// Model declares a model served through an inference provider.
type Model struct {
	ModelID         string         `json:"model_id"`
	ProviderID      string         `json:"provider_id"`
	ProviderModelID string         `json:"provider_model_id,omitempty"`
	ModelType       string         `json:"model_type,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// ListModels lists registered models.
func (c *Client) ListModels(ctx context.Context) ([]Resource, error) {
	return c.listResources(ctx, "models")
}

// RegisterModel registers a model dynamically.
func (c *Client) RegisterModel(ctx context.Context, m Model) (Resource, error) {
	var out Resource
	if err := c.post(ctx, "/v1/models", m, &out); err != nil {
		return Resource{}, err
	}
	return out, nil
}

// UnregisterModel removes a dynamically registered model. Identifiers may
// contain slashes (meta-llama/Llama-3.3-70B); the server routes them as a
// wildcard tail.
func (c *Client) UnregisterModel(ctx context.Context, modelID string) error {
	return c.delete(ctx, "/v1/models/"+modelID)
}

// VectorDB declares a vector store (memory bank).
type VectorDB struct {
	VectorDBID         string `json:"vector_db_id"`
	ProviderID         string `json:"provider_id"`
	EmbeddingModel     string `json:"embedding_model"`
	EmbeddingDimension int    `json:"embedding_dimension"`
}

// ListVectorDBs lists registered vector DBs.
func (c *Client) ListVectorDBs(ctx context.Context) ([]Resource, error) {
	return c.listResources(ctx, "vector-dbs")
}

// RegisterVectorDB registers a vector DB (memory-bank registration).
func (c *Client) RegisterVectorDB(ctx context.Context, db VectorDB) (Resource, error) {
	var out Resource
	if err := c.post(ctx, "/v1/vector-dbs", db, &out); err != nil {
		return Resource{}, err
	}
	return out, nil
}

// UnregisterVectorDB removes a dynamically registered vector DB.
func (c *Client) UnregisterVectorDB(ctx context.Context, vectorDBID string) error {
	return c.delete(ctx, "/v1/vector-dbs/"+vectorDBID)
}

func (c *Client) listResources(ctx context.Context, stem string) ([]Resource, error) {
	var out struct {
		Data []Resource `json:"data"`
	}
	if err := c.get(ctx, "/v1/"+stem, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ===== HTTP PLUMBING =====

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("stackclient: encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) delete(ctx context.Context, endpoint string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("stackclient: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", identifier.New())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stackclient: perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("stackclient: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		apiErr.Detail = resp.Status
		return apiErr
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Detail = body.Error
	} else {
		apiErr.Detail = strings.TrimSpace(string(data))
	}
	if apiErr.Detail == "" {
		apiErr.Detail = resp.Status
	}
	return apiErr
}
