package manifest

// Task 1.6: manifest validation. Validate checks referential consistency
// across the whole document and reports every problem it finds in one
// pass, so a broken manifest can be fixed in one edit instead of one
// error at a time. Unknown top-level keys never reach here; strict
// decoding rejects them during Parse.

import (
	"fmt"
	"strings"

	"github.com/matiasleandrokruk/stackd/internal/domain/catalog"
)

// AuthProviderBearer is the only auth provider type the server implements.
const AuthProviderBearer = "bearer"

// ValidationError aggregates every problem Validate found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid manifest: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid manifest: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Validate checks the manifest against the schema rules. It returns nil
// or a *ValidationError listing all violations.
func (m *Manifest) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if m.Version == "" {
		add("version must not be empty")
	}
	if m.ImageName == "" {
		add("image_name must not be empty")
	}

	declaredAPIs := make(map[string]bool, len(m.APIs))
	for _, api := range m.APIs {
		if !KnownAPI(api) {
			add("apis: unknown api %q", api)
			continue
		}
		if declaredAPIs[api] {
			add("apis: duplicate api %q", api)
			continue
		}
		declaredAPIs[api] = true
	}

	for api, providers := range m.Providers {
		if !declaredAPIs[api] {
			add("providers.%s: api not listed in apis", api)
		}
		seen := make(map[string]bool, len(providers))
		for _, p := range providers {
			if p.ProviderID == "" {
				add("providers.%s: provider with empty provider_id", api)
				continue
			}
			if seen[p.ProviderID] {
				add("providers.%s: duplicate provider_id %q", api, p.ProviderID)
			}
			seen[p.ProviderID] = true
			if p.ProviderType == "" {
				add("providers.%s.%s: provider_type must not be empty", api, p.ProviderID)
				continue
			}
			if _, ok := catalog.Lookup(api, p.ProviderType); !ok && m.ExternalProvidersDir == "" {
				add("providers.%s.%s: unknown provider_type %q", api, p.ProviderID, p.ProviderType)
			}
		}
	}
	for _, api := range m.APIs {
		if declaredAPIs[api] && len(m.Providers[api]) == 0 {
			add("apis: %s declared but has no providers", api)
		}
	}

	m.validateResources(add)
	m.validateStores(add)
	m.validateServer(add)

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func (m *Manifest) validateResources(add func(string, ...any)) {
	checkProvider := func(kind, id, providerID string) {
		api := APIForKind[kind]
		if id == "" {
			add("%s with empty identifier", kind)
			return
		}
		if providerID == "" {
			add("%s %q: provider_id must not be empty", kind, id)
			return
		}
		if !m.HasProvider(api, providerID) {
			add("%s %q: provider_id %q not found in providers.%s", kind, id, providerID, api)
		}
	}
	dup := func(kind string) func(id string) {
		seen := make(map[string]bool)
		return func(id string) {
			if id == "" {
				return
			}
			if seen[id] {
				add("duplicate %s %q", kind, id)
			}
			seen[id] = true
		}
	}

	modelType := make(map[string]string, len(m.Models))
	dupModel := dup(KindModel)
	for _, r := range m.Models {
		checkProvider(KindModel, r.ModelID, r.ProviderID)
		dupModel(r.ModelID)
		if r.ModelType != ModelTypeLLM && r.ModelType != ModelTypeEmbedding {
			add("model %q: invalid model_type %q", r.ModelID, r.ModelType)
		}
		modelType[r.ModelID] = r.ModelType
	}

	dupShield := dup(KindShield)
	for _, r := range m.Shields {
		checkProvider(KindShield, r.ShieldID, r.ProviderID)
		dupShield(r.ShieldID)
	}

	dupVectorDB := dup(KindVectorDB)
	for _, r := range m.VectorDBs {
		checkProvider(KindVectorDB, r.VectorDBID, r.ProviderID)
		dupVectorDB(r.VectorDBID)
		if len(m.Models) > 0 && r.EmbeddingModel != "" {
			typ, ok := modelType[r.EmbeddingModel]
			switch {
			case !ok:
				add("vector_db %q: embedding_model %q not found in models", r.VectorDBID, r.EmbeddingModel)
			case typ != ModelTypeEmbedding:
				add("vector_db %q: embedding_model %q is not an embedding model", r.VectorDBID, r.EmbeddingModel)
			}
		}
	}

	datasets := make(map[string]bool, len(m.Datasets))
	dupDataset := dup(KindDataset)
	for _, r := range m.Datasets {
		checkProvider(KindDataset, r.DatasetID, r.ProviderID)
		dupDataset(r.DatasetID)
		datasets[r.DatasetID] = true
	}

	scoringFns := make(map[string]bool, len(m.ScoringFns))
	dupScoringFn := dup(KindScoringFn)
	for _, r := range m.ScoringFns {
		checkProvider(KindScoringFn, r.ScoringFnID, r.ProviderID)
		dupScoringFn(r.ScoringFnID)
		scoringFns[r.ScoringFnID] = true
	}

	dupBenchmark := dup(KindBenchmark)
	for _, r := range m.Benchmarks {
		checkProvider(KindBenchmark, r.BenchmarkID, r.ProviderID)
		dupBenchmark(r.BenchmarkID)
		if r.DatasetID != "" && len(m.Datasets) > 0 && !datasets[r.DatasetID] {
			add("benchmark %q: dataset_id %q not found in datasets", r.BenchmarkID, r.DatasetID)
		}
		for _, fn := range r.ScoringFunctions {
			if len(m.ScoringFns) > 0 && !scoringFns[fn] {
				add("benchmark %q: scoring function %q not found in scoring_fns", r.BenchmarkID, fn)
			}
		}
	}

	dupToolGroup := dup(KindToolGroup)
	for _, r := range m.ToolGroups {
		checkProvider(KindToolGroup, r.ToolGroupID, r.ProviderID)
		dupToolGroup(r.ToolGroupID)
		if r.MCPEndpoint != nil && r.MCPEndpoint.URI == "" {
			add("tool_group %q: mcp_endpoint.uri must not be empty", r.ToolGroupID)
		}
	}
}

func (m *Manifest) validateStores(add func(string, ...any)) {
	if m.MetadataStore != nil {
		if err := m.MetadataStore.Validate(); err != nil {
			add("metadata_store: %v", err)
		}
	}
	if m.InferenceStore != nil {
		if err := m.InferenceStore.Validate(); err != nil {
			add("inference_store: %v", err)
		}
	}
}

func (m *Manifest) validateServer(add func(string, ...any)) {
	if m.Server.Port < 1 || m.Server.Port > 65535 {
		add("server.port %d out of range 1-65535", m.Server.Port)
	}
	if (m.Server.TLSCertFile == "") != (m.Server.TLSKeyFile == "") {
		add("server: tls_certfile and tls_keyfile must be set together")
	}
	if m.Server.Auth != nil {
		if m.Server.Auth.ProviderType != AuthProviderBearer {
			add("server.auth: unsupported provider_type %q", m.Server.Auth.ProviderType)
		}
		if m.Server.Auth.Config.SecretEnv == "" {
			add("server.auth: config.secret_env must not be empty")
		}
	}
}
