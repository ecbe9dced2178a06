// Package registry — Task 2.6: merged resource registry.
// The registry holds every resource the stack knows about: static entries
// declared by the manifest and dynamic entries registered over the API
// and persisted in the metadata store. Static entries are immutable for
// the process lifetime; dynamic entries survive restarts through the
// kvstore and are re-read on construction.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
	"github.com/matiasleandrokruk/stackd/internal/infra/eventbus"
	"github.com/matiasleandrokruk/stackd/internal/infra/kvstore"
)

// Persisted keys are registry:v1:<kind>:<identifier>.
const keyPrefix = "registry:v1:"

// Event bus topics.
const (
	TopicResourceRegistered   = "registry.resource_registered"
	TopicResourceUnregistered = "registry.resource_unregistered"
)

// Provenance of a registry entry.
const (
	ProvenanceManifest = "manifest"
	ProvenanceAPI      = "api"
)

var (
	ErrNotFound       = errors.New("registry: resource not found")
	ErrConflict       = errors.New("registry: resource already registered with a different definition")
	ErrStaticResource = errors.New("registry: resource is declared by the manifest")
)

// Resource is one registry entry. Payload carries the kind-specific record
// (a manifest.Model, manifest.Shield, ...) marshaled canonically, so two
// registrations compare by bytes.
type Resource struct {
	Kind       string          `json:"kind"`
	Identifier string          `json:"identifier"`
	ProviderID string          `json:"provider_id"`
	Provenance string          `json:"provenance"`
	Payload    json.RawMessage `json:"payload"`
}

// EventPayload is what registry events carry on the bus.
type EventPayload struct {
	Kind       string `json:"kind"`
	Identifier string `json:"identifier"`
}

// Registry is safe for concurrent use.
type Registry struct {
	store kvstore.Store
	bus   eventbus.EventBus

	mu      sync.RWMutex
	static  map[string]Resource
	dynamic map[string]Resource
}

// New seeds the static entries from the manifest and loads previously
// persisted dynamic entries from the store.
func New(ctx context.Context, store kvstore.Store, bus eventbus.EventBus, m *manifest.Manifest) (*Registry, error) {
	r := &Registry{
		store:   store,
		bus:     bus,
		static:  make(map[string]Resource),
		dynamic: make(map[string]Resource),
	}
	for _, res := range FromManifest(m) {
		r.static[key(res.Kind, res.Identifier)] = res
	}

	persisted, err := store.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("registry: load persisted resources: %w", err)
	}
	for k, raw := range persisted {
		var res Resource
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("registry: decode persisted resource %s: %w", k, err)
		}
		res.Provenance = ProvenanceAPI
		r.dynamic[key(res.Kind, res.Identifier)] = res
	}
	return r, nil
}

func key(kind, identifier string) string {
	return keyPrefix + kind + ":" + identifier
}

func knownKind(kind string) bool {
	for _, k := range manifest.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Register adds a dynamic resource. Registering a payload identical to an
// existing dynamic entry is a no-op; a different payload under the same
// identifier, or any identifier the manifest declares, is ErrConflict.
func (r *Registry) Register(ctx context.Context, res Resource) error {
	if !knownKind(res.Kind) {
		return fmt.Errorf("registry: unknown kind %q", res.Kind)
	}
	if res.Identifier == "" {
		return errors.New("registry: empty identifier")
	}
	res.Provenance = ProvenanceAPI

	k := key(res.Kind, res.Identifier)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.static[k]; ok {
		return fmt.Errorf("%w: %s %q", ErrConflict, res.Kind, res.Identifier)
	}
	if existing, ok := r.dynamic[k]; ok {
		if bytes.Equal(existing.Payload, res.Payload) {
			return nil
		}
		return fmt.Errorf("%w: %s %q", ErrConflict, res.Kind, res.Identifier)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("registry: encode resource: %w", err)
	}
	if err := r.store.Set(ctx, k, raw); err != nil {
		return fmt.Errorf("registry: persist %s %q: %w", res.Kind, res.Identifier, err)
	}
	r.dynamic[k] = res
	r.bus.Publish(TopicResourceRegistered, EventPayload{Kind: res.Kind, Identifier: res.Identifier})
	return nil
}

// Unregister removes a dynamic resource. Manifest-declared entries are
// ErrStaticResource; unknown identifiers are ErrNotFound.
func (r *Registry) Unregister(ctx context.Context, kind, identifier string) error {
	if !knownKind(kind) {
		return fmt.Errorf("registry: unknown kind %q", kind)
	}
	k := key(kind, identifier)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.static[k]; ok {
		return fmt.Errorf("%w: %s %q", ErrStaticResource, kind, identifier)
	}
	if _, ok := r.dynamic[k]; !ok {
		return fmt.Errorf("%w: %s %q", ErrNotFound, kind, identifier)
	}
	if err := r.store.Delete(ctx, k); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("registry: delete %s %q: %w", kind, identifier, err)
	}
	delete(r.dynamic, k)
	r.bus.Publish(TopicResourceUnregistered, EventPayload{Kind: kind, Identifier: identifier})
	return nil
}

// Get returns one resource by kind and identifier.
func (r *Registry) Get(ctx context.Context, kind, identifier string) (Resource, error) {
	if !knownKind(kind) {
		return Resource{}, fmt.Errorf("registry: unknown kind %q", kind)
	}
	k := key(kind, identifier)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if res, ok := r.static[k]; ok {
		return res, nil
	}
	if res, ok := r.dynamic[k]; ok {
		return res, nil
	}
	return Resource{}, fmt.Errorf("%w: %s %q", ErrNotFound, kind, identifier)
}

// List returns every resource of a kind: manifest entries first, then
// dynamic ones, each group sorted by identifier.
func (r *Registry) List(ctx context.Context, kind string) ([]Resource, error) {
	if !knownKind(kind) {
		return nil, fmt.Errorf("registry: unknown kind %q", kind)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var statics, dynamics []Resource
	for _, res := range r.static {
		if res.Kind == kind {
			statics = append(statics, res)
		}
	}
	for _, res := range r.dynamic {
		if res.Kind == kind {
			dynamics = append(dynamics, res)
		}
	}
	sort.Slice(statics, func(i, j int) bool { return statics[i].Identifier < statics[j].Identifier })
	sort.Slice(dynamics, func(i, j int) bool { return dynamics[i].Identifier < dynamics[j].Identifier })
	return append(statics, dynamics...), nil
}

// FromManifest converts the manifest's declared resources into registry
// entries with manifest provenance.
func FromManifest(m *manifest.Manifest) []Resource {
	var out []Resource
	add := func(kind, identifier, providerID string, record any) {
		payload, err := json.Marshal(record)
		if err != nil {
			// Records are plain structs; marshal cannot fail on them.
			panic(fmt.Sprintf("registry: marshal %s %q: %v", kind, identifier, err))
		}
		out = append(out, Resource{
			Kind:       kind,
			Identifier: identifier,
			ProviderID: providerID,
			Provenance: ProvenanceManifest,
			Payload:    payload,
		})
	}
	for _, r := range m.Models {
		add(manifest.KindModel, r.ModelID, r.ProviderID, r)
	}
	for _, r := range m.Shields {
		add(manifest.KindShield, r.ShieldID, r.ProviderID, r)
	}
	for _, r := range m.VectorDBs {
		add(manifest.KindVectorDB, r.VectorDBID, r.ProviderID, r)
	}
	for _, r := range m.Datasets {
		add(manifest.KindDataset, r.DatasetID, r.ProviderID, r)
	}
	for _, r := range m.ScoringFns {
		add(manifest.KindScoringFn, r.ScoringFnID, r.ProviderID, r)
	}
	for _, r := range m.Benchmarks {
		add(manifest.KindBenchmark, r.BenchmarkID, r.ProviderID, r)
	}
	for _, r := range m.ToolGroups {
		add(manifest.KindToolGroup, r.ToolGroupID, r.ProviderID, r)
	}
	return out
}
