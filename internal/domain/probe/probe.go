// Package probe — Task 4.4: the doctor.
// Runs offline reachability checks for a resolved manifest: one HTTP
// probe per remote provider that exposes a url, a ping per configured
// store, and an MCP handshake per toolgroup endpoint. Nothing here talks
// to the data plane; the doctor answers "could this distribution come up
// on this machine" before anything is started.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/matiasleandrokruk/stackd/internal/domain/catalog"
	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
	"github.com/matiasleandrokruk/stackd/internal/infra/kvstore"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 5 * time.Second

// Check is the outcome of one probe.
type Check struct {
	Kind    string        `json:"kind"` // provider | store | mcp
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Detail  string        `json:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Report collects every check of one doctor run.
type Report struct {
	Checks []Check `json:"checks"`
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Failed counts the checks that did not pass.
func (r *Report) Failed() int {
	n := 0
	for _, c := range r.Checks {
		if !c.OK {
			n++
		}
	}
	return n
}

// Render writes the report as aligned text for the CLI.
func (r *Report) Render(w io.Writer) {
	for _, c := range r.Checks {
		status := "ok"
		if !c.OK {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%-5s %-9s %-45s %s (%dms)\n",
			status, c.Kind, c.Name, c.Detail, c.Elapsed.Milliseconds())
	}
}

// Doctor runs the checks. The zero value is not usable; call New.
type Doctor struct {
	client  *http.Client
	timeout time.Duration
}

// New returns a Doctor with the default per-check timeout.
func New() *Doctor {
	return &Doctor{
		client:  &http.Client{Timeout: DefaultTimeout},
		timeout: DefaultTimeout,
	}
}

// Run probes every provider, store and MCP endpoint of the manifest.
func (d *Doctor) Run(ctx context.Context, m *manifest.Manifest) *Report {
	report := &Report{}

	apis := make([]string, 0, len(m.Providers))
	for api := range m.Providers {
		apis = append(apis, api)
	}
	sort.Strings(apis)
	for _, api := range apis {
		for _, p := range m.Providers[api] {
			if check, ok := d.probeProvider(ctx, api, p); ok {
				report.Checks = append(report.Checks, check)
			}
		}
	}

	if m.MetadataStore != nil {
		report.Checks = append(report.Checks, d.probeStore(ctx, "metadata_store", *m.MetadataStore))
	}
	if m.InferenceStore != nil {
		report.Checks = append(report.Checks, d.probeStore(ctx, "inference_store", *m.InferenceStore))
	}

	for _, tg := range m.ToolGroups {
		if tg.MCPEndpoint == nil {
			continue
		}
		report.Checks = append(report.Checks, d.probeMCP(ctx, tg.ToolGroupID, tg.MCPEndpoint.URI))
	}

	return report
}

// probeProvider issues the catalog's health request against the provider's
// configured url. Providers without a url (inline backends) have nothing
// to probe and report no check.
func (d *Doctor) probeProvider(ctx context.Context, api string, p manifest.Provider) (Check, bool) {
	base, _ := p.Config["url"].(string)
	if base == "" {
		return Check{}, false
	}

	target := base
	method := http.MethodGet
	if pt, ok := catalog.Lookup(api, p.ProviderType); ok && pt.Health != nil {
		target = strings.TrimSuffix(base, "/") + pt.Health.Path
		method = pt.Health.Method
	}

	check := Check{Kind: "provider", Name: api + "/" + p.ProviderID}
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, method, target, nil)
	if err != nil {
		check.Detail = err.Error()
		check.Elapsed = time.Since(start)
		return check, true
	}
	if key := bearerKey(p.Config); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := d.client.Do(req)
	check.Elapsed = time.Since(start)
	if err != nil {
		check.Detail = err.Error()
		return check, true
	}
	defer resp.Body.Close()

	check.OK = resp.StatusCode >= 200 && resp.StatusCode < 300
	check.Detail = resp.Status
	return check, true
}

// bearerKey pulls an api_key or api_token out of a provider config.
func bearerKey(config map[string]any) string {
	if key, _ := config["api_key"].(string); key != "" {
		return key
	}
	if key, _ := config["api_token"].(string); key != "" {
		return key
	}
	return ""
}

func (d *Doctor) probeStore(ctx context.Context, name string, spec kvstore.Spec) Check {
	check := Check{Kind: "store", Name: name + " (" + spec.Type + ")"}
	start := time.Now()

	openCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	store, err := kvstore.Open(openCtx, spec)
	if err != nil {
		check.Detail = err.Error()
		check.Elapsed = time.Since(start)
		return check
	}
	defer store.Close()

	if err := store.Ping(openCtx); err != nil {
		check.Detail = err.Error()
		check.Elapsed = time.Since(start)
		return check
	}
	check.OK = true
	check.Detail = "reachable"
	check.Elapsed = time.Since(start)
	return check
}

func (d *Doctor) probeMCP(ctx context.Context, toolGroupID, uri string) Check {
	check := Check{Kind: "mcp", Name: "toolgroup " + toolGroupID}
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	tools, err := handshake(reqCtx, d.client, uri)
	check.Elapsed = time.Since(start)
	if err != nil {
		check.Detail = err.Error()
		return check
	}

	check.OK = true
	check.Detail = describeTools(tools)
	return check
}

func describeTools(tools []Tool) string {
	if len(tools) == 0 {
		return "0 tools"
	}
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	const max = 5
	if len(names) > max {
		names = append(names[:max], "...")
	}
	return fmt.Sprintf("%d tools: %s", len(tools), strings.Join(names, ", "))
}
