// Task 2.6: decoding API registration bodies into registry entries.
// Payloads are re-marshaled after decoding so that two registrations of
// the same record compare equal byte-for-byte regardless of the field
// order or whitespace the client sent.
package registry

import (
	"encoding/json"
	"fmt"

	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
)

// FromPayload decodes a kind-specific record (a manifest.Model,
// manifest.Shield, ...) and wraps it as a dynamic registry entry.
func FromPayload(kind string, payload []byte) (Resource, error) {
	decode := func(record any) error {
		if err := json.Unmarshal(payload, record); err != nil {
			return fmt.Errorf("registry: decode %s payload: %w", kind, err)
		}
		return nil
	}

	var identifier, providerID string
	var record any

	switch kind {
	case manifest.KindModel:
		var r manifest.Model
		if err := decode(&r); err != nil {
			return Resource{}, err
		}
		if r.ModelType == "" {
			r.ModelType = manifest.ModelTypeLLM
		}
		identifier, providerID, record = r.ModelID, r.ProviderID, r
	case manifest.KindShield:
		var r manifest.Shield
		if err := decode(&r); err != nil {
			return Resource{}, err
		}
		identifier, providerID, record = r.ShieldID, r.ProviderID, r
	case manifest.KindVectorDB:
		var r manifest.VectorDB
		if err := decode(&r); err != nil {
			return Resource{}, err
		}
		identifier, providerID, record = r.VectorDBID, r.ProviderID, r
	case manifest.KindDataset:
		var r manifest.Dataset
		if err := decode(&r); err != nil {
			return Resource{}, err
		}
		identifier, providerID, record = r.DatasetID, r.ProviderID, r
	case manifest.KindScoringFn:
		var r manifest.ScoringFn
		if err := decode(&r); err != nil {
			return Resource{}, err
		}
		identifier, providerID, record = r.ScoringFnID, r.ProviderID, r
	case manifest.KindBenchmark:
		var r manifest.Benchmark
		if err := decode(&r); err != nil {
			return Resource{}, err
		}
		identifier, providerID, record = r.BenchmarkID, r.ProviderID, r
	case manifest.KindToolGroup:
		var r manifest.ToolGroup
		if err := decode(&r); err != nil {
			return Resource{}, err
		}
		identifier, providerID, record = r.ToolGroupID, r.ProviderID, r
	default:
		return Resource{}, fmt.Errorf("registry: unknown kind %q", kind)
	}

	if identifier == "" {
		return Resource{}, fmt.Errorf("registry: %s payload missing its identifier field", kind)
	}

	canonical, err := json.Marshal(record)
	if err != nil {
		return Resource{}, fmt.Errorf("registry: encode %s %q: %w", kind, identifier, err)
	}
	return Resource{
		Kind:       kind,
		Identifier: identifier,
		ProviderID: providerID,
		Provenance: ProvenanceAPI,
		Payload:    canonical,
	}, nil
}
