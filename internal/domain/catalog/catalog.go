// Package catalog — Task 1.8: compiled-in provider-type catalog.
// The catalog is the closed list of provider types a manifest may bind to
// each API category, together with the config hints shown by docs/CLI and
// the health probe the doctor uses for remote backends. Manifests naming
// a type outside this table fail validation unless they declare an
// external_providers_dir.
package catalog

import "sort"

// ConfigField is one documented provider config key with its usual
// manifest value (typically an ${env.*} expression).
type ConfigField struct {
	Name    string `json:"name"`
	Default string `json:"default,omitempty"`
}

// HealthProbe describes the HTTP check for a remote provider, relative to
// the provider's configured url.
type HealthProbe struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// ProviderType is one entry of the catalog.
type ProviderType struct {
	Type        string        `json:"type"`
	API         string        `json:"api"`
	Description string        `json:"description"`
	Fields      []ConfigField `json:"fields,omitempty"`
	Health      *HealthProbe  `json:"health,omitempty"`
}

func get(path string) *HealthProbe {
	return &HealthProbe{Method: "GET", Path: path}
}

var table = []ProviderType{
	// ===== inference =====
	{
		Type: "inline::meta-reference", API: "inference",
		Description: "Reference in-process inference engine",
		Fields: []ConfigField{
			{Name: "model", Default: "${env.INFERENCE_MODEL}"},
			{Name: "checkpoint_dir", Default: "${env.CHECKPOINT_DIR:=null}"},
		},
	},
	{
		Type: "inline::sentence-transformers", API: "inference",
		Description: "Local sentence-transformers embedding models",
	},
	{
		Type: "remote::ollama", API: "inference",
		Description: "Ollama server for local models",
		Fields: []ConfigField{
			{Name: "url", Default: "${env.OLLAMA_URL:=http://localhost:11434}"},
		},
		Health: get("/api/tags"),
	},
	{
		Type: "remote::vllm", API: "inference",
		Description: "vLLM OpenAI-compatible serving engine",
		Fields: []ConfigField{
			{Name: "url", Default: "${env.VLLM_URL:=http://localhost:8000/v1}"},
			{Name: "max_tokens", Default: "${env.VLLM_MAX_TOKENS:=4096}"},
			{Name: "api_token", Default: "${env.VLLM_API_TOKEN:=fake}"},
		},
		Health: get("/health"),
	},
	{
		Type: "remote::tgi", API: "inference",
		Description: "Hugging Face text-generation-inference server",
		Fields: []ConfigField{
			{Name: "url", Default: "${env.TGI_URL:=http://localhost:8080}"},
		},
		Health: get("/health"),
	},
	{
		Type: "remote::together", API: "inference",
		Description: "Together AI hosted models",
		Fields: []ConfigField{
			{Name: "url", Default: "https://api.together.xyz/v1"},
			{Name: "api_key", Default: "${env.TOGETHER_API_KEY}"},
		},
		Health: get("/models"),
	},
	{
		Type: "remote::fireworks", API: "inference",
		Description: "Fireworks AI hosted models",
		Fields: []ConfigField{
			{Name: "url", Default: "https://api.fireworks.ai/inference/v1"},
			{Name: "api_key", Default: "${env.FIREWORKS_API_KEY}"},
		},
		Health: get("/models"),
	},
	{
		Type: "remote::openai", API: "inference",
		Description: "OpenAI hosted models",
		Fields: []ConfigField{
			{Name: "url", Default: "https://api.openai.com/v1"},
			{Name: "api_key", Default: "${env.OPENAI_API_KEY}"},
		},
		Health: get("/models"),
	},
	{
		Type: "remote::anthropic", API: "inference",
		Description: "Anthropic hosted models",
		Fields: []ConfigField{
			{Name: "api_key", Default: "${env.ANTHROPIC_API_KEY}"},
		},
	},
	{
		Type: "remote::gemini", API: "inference",
		Description: "Google Gemini hosted models",
		Fields: []ConfigField{
			{Name: "api_key", Default: "${env.GEMINI_API_KEY}"},
		},
	},
	{
		Type: "remote::groq", API: "inference",
		Description: "Groq hosted models",
		Fields: []ConfigField{
			{Name: "url", Default: "https://api.groq.com/openai/v1"},
			{Name: "api_key", Default: "${env.GROQ_API_KEY}"},
		},
		Health: get("/models"),
	},

	// ===== safety =====
	{
		Type: "inline::llama-guard", API: "safety",
		Description: "Llama Guard content classifier",
		Fields: []ConfigField{
			{Name: "excluded_categories", Default: "[]"},
		},
	},
	{
		Type: "inline::prompt-guard", API: "safety",
		Description: "Prompt injection classifier",
	},
	{
		Type: "inline::code-scanner", API: "safety",
		Description: "Static scanner for generated code",
	},

	// ===== vector_io =====
	{
		Type: "inline::faiss", API: "vector_io",
		Description: "FAISS index persisted through a kv store",
		Fields: []ConfigField{
			{Name: "kvstore", Default: "sqlite db"},
		},
	},
	{
		Type: "inline::sqlite-vec", API: "vector_io",
		Description: "SQLite with the sqlite-vec extension",
		Fields: []ConfigField{
			{Name: "db_path", Default: "${env.SQLITE_STORE_DIR:=~/.stackd}/sqlite_vec.db"},
		},
	},
	{
		Type: "remote::chromadb", API: "vector_io",
		Description: "Chroma vector database",
		Fields: []ConfigField{
			{Name: "url", Default: "${env.CHROMADB_URL:=http://localhost:8000}"},
		},
		Health: get("/api/v1/heartbeat"),
	},
	{
		Type: "remote::pgvector", API: "vector_io",
		Description: "PostgreSQL with the pgvector extension",
		Fields: []ConfigField{
			{Name: "host", Default: "${env.PGVECTOR_HOST:=localhost}"},
			{Name: "port", Default: "${env.PGVECTOR_PORT:=5432}"},
			{Name: "db", Default: "${env.PGVECTOR_DB}"},
			{Name: "user", Default: "${env.PGVECTOR_USER}"},
			{Name: "password", Default: "${env.PGVECTOR_PASSWORD}"},
		},
	},
	{
		Type: "remote::qdrant", API: "vector_io",
		Description: "Qdrant vector database",
		Fields: []ConfigField{
			{Name: "url", Default: "${env.QDRANT_URL:=http://localhost:6333}"},
			{Name: "api_key", Default: "${env.QDRANT_API_KEY:=}"},
		},
		Health: get("/healthz"),
	},
	{
		Type: "remote::milvus", API: "vector_io",
		Description: "Milvus vector database",
		Fields: []ConfigField{
			{Name: "uri", Default: "${env.MILVUS_URI:=http://localhost:19530}"},
			{Name: "token", Default: "${env.MILVUS_TOKEN:=}"},
		},
	},

	// ===== agents =====
	{
		Type: "inline::meta-reference", API: "agents",
		Description: "Reference agent loop with kv-backed persistence",
		Fields: []ConfigField{
			{Name: "persistence_store", Default: "sqlite db"},
		},
	},

	// ===== telemetry =====
	{
		Type: "inline::meta-reference", API: "telemetry",
		Description: "In-process traces and metrics sinks",
		Fields: []ConfigField{
			{Name: "service_name", Default: "${env.OTEL_SERVICE_NAME:=}"},
			{Name: "sinks", Default: "${env.TELEMETRY_SINKS:=console,sqlite}"},
			{Name: "sqlite_db_path", Default: "${env.SQLITE_STORE_DIR:=~/.stackd}/trace_store.db"},
		},
	},

	// ===== eval =====
	{
		Type: "inline::meta-reference", API: "eval",
		Description: "Reference benchmark runner",
		Fields: []ConfigField{
			{Name: "kvstore", Default: "sqlite db"},
		},
	},

	// ===== datasetio =====
	{
		Type: "remote::huggingface", API: "datasetio",
		Description: "Datasets pulled from the Hugging Face hub",
		Fields: []ConfigField{
			{Name: "kvstore", Default: "sqlite db"},
		},
	},
	{
		Type: "inline::localfs", API: "datasetio",
		Description: "Datasets read from the local filesystem",
		Fields: []ConfigField{
			{Name: "kvstore", Default: "sqlite db"},
		},
	},

	// ===== scoring =====
	{
		Type: "inline::basic", API: "scoring",
		Description: "Exact-match and subset scoring functions",
	},
	{
		Type: "inline::llm-as-judge", API: "scoring",
		Description: "Scoring through a judge model",
	},
	{
		Type: "inline::braintrust", API: "scoring",
		Description: "Braintrust autoevals scorers",
		Fields: []ConfigField{
			{Name: "openai_api_key", Default: "${env.OPENAI_API_KEY:=}"},
		},
	},

	// ===== tool_runtime =====
	{
		Type: "remote::brave-search", API: "tool_runtime",
		Description: "Web search through the Brave API",
		Fields: []ConfigField{
			{Name: "api_key", Default: "${env.BRAVE_SEARCH_API_KEY:=}"},
			{Name: "max_results", Default: "3"},
		},
	},
	{
		Type: "remote::tavily-search", API: "tool_runtime",
		Description: "Web search through the Tavily API",
		Fields: []ConfigField{
			{Name: "api_key", Default: "${env.TAVILY_SEARCH_API_KEY:=}"},
			{Name: "max_results", Default: "3"},
		},
	},
	{
		Type: "remote::wolfram-alpha", API: "tool_runtime",
		Description: "Computation through the Wolfram Alpha API",
		Fields: []ConfigField{
			{Name: "api_key", Default: "${env.WOLFRAM_ALPHA_API_KEY:=}"},
		},
	},
	{
		Type: "inline::rag-runtime", API: "tool_runtime",
		Description: "Retrieval tools over registered vector DBs",
	},
	{
		Type: "remote::model-context-protocol", API: "tool_runtime",
		Description: "Tools served by an MCP endpoint",
	},
}

var index = make(map[string]ProviderType, len(table))

func init() {
	for _, pt := range table {
		index[pt.API+"/"+pt.Type] = pt
	}
}

// Lookup returns the catalog entry for a provider type under an API
// category.
func Lookup(api, providerType string) (ProviderType, bool) {
	pt, ok := index[api+"/"+providerType]
	return pt, ok
}

// TypesFor lists the catalog entries for one API category, sorted by type.
func TypesFor(api string) []ProviderType {
	var out []ProviderType
	for _, pt := range table {
		if pt.API == api {
			out = append(out, pt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// APIs lists the API categories the catalog has entries for, sorted.
func APIs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, pt := range table {
		if !seen[pt.API] {
			seen[pt.API] = true
			out = append(out, pt.API)
		}
	}
	sort.Strings(out)
	return out
}

// All lists every catalog entry, sorted by API category then type.
func All() []ProviderType {
	out := make([]ProviderType, len(table))
	copy(out, table)
	sort.Slice(out, func(i, j int) bool {
		if out[i].API != out[j].API {
			return out[i].API < out[j].API
		}
		return out[i].Type < out[j].Type
	})
	return out
}
