package manifest

import (
	"errors"
	"strings"
	"testing"

	"github.com/matiasleandrokruk/stackd/internal/infra/kvstore"
)

// expectProblems validates m and asserts every fragment appears among the
// reported problems.
func expectProblems(t *testing.T, m *Manifest, fragments ...string) *ValidationError {
	t.Helper()
	err := m.Validate()
	if err == nil {
		t.Fatalf("expected validation to fail")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	joined := strings.Join(verr.Problems, "\n")
	for _, frag := range fragments {
		if !strings.Contains(joined, frag) {
			t.Fatalf("missing problem %q in:\n%s", frag, joined)
		}
	}
	return verr
}

func TestValidate(t *testing.T) {
	t.Run("sample manifest is valid", func(t *testing.T) {
		if err := parseSample(t).Validate(); err != nil {
			t.Fatalf("Validate error: %v", err)
		}
	})

	t.Run("empty version and image_name", func(t *testing.T) {
		m := parseSample(t)
		m.Version = ""
		m.ImageName = ""
		verr := expectProblems(t, m, "version must not be empty", "image_name must not be empty")
		if len(verr.Problems) != 2 {
			t.Fatalf("expected exactly 2 problems, got %v", verr.Problems)
		}
	})

	t.Run("unknown and duplicate apis", func(t *testing.T) {
		m := parseSample(t)
		m.APIs = append(m.APIs, "warp_drive", "inference")
		expectProblems(t, m, `unknown api "warp_drive"`, `duplicate api "inference"`)
	})

	t.Run("providers key not declared in apis", func(t *testing.T) {
		m := parseSample(t)
		m.Providers["scoring"] = []Provider{{ProviderID: "basic", ProviderType: "inline::basic"}}
		expectProblems(t, m, "providers.scoring: api not listed in apis")
	})

	t.Run("api without providers", func(t *testing.T) {
		m := parseSample(t)
		m.APIs = append(m.APIs, "telemetry")
		expectProblems(t, m, "telemetry declared but has no providers")
	})

	t.Run("duplicate provider_id", func(t *testing.T) {
		m := parseSample(t)
		m.Providers["inference"] = append(m.Providers["inference"], Provider{ProviderID: "ollama", ProviderType: "remote::vllm"})
		expectProblems(t, m, `providers.inference: duplicate provider_id "ollama"`)
	})

	t.Run("unknown provider_type", func(t *testing.T) {
		m := parseSample(t)
		m.Providers["inference"][0].ProviderType = "remote::nope"
		expectProblems(t, m, `unknown provider_type "remote::nope"`)
	})

	t.Run("external_providers_dir allows unknown types", func(t *testing.T) {
		m := parseSample(t)
		m.Providers["inference"][0].ProviderType = "remote::custom-thing"
		m.ExternalProvidersDir = "/opt/providers"
		if err := m.Validate(); err != nil {
			t.Fatalf("expected unknown type to pass with external_providers_dir, got %v", err)
		}
	})

	t.Run("model references missing provider", func(t *testing.T) {
		m := parseSample(t)
		m.Models[0].ProviderID = "vllm"
		expectProblems(t, m, `model "llama3.2:3b": provider_id "vllm" not found in providers.inference`)
	})

	t.Run("invalid model_type", func(t *testing.T) {
		m := parseSample(t)
		m.Models[0].ModelType = "diffusion"
		expectProblems(t, m, `invalid model_type "diffusion"`)
	})

	t.Run("vector_db embedding model checks", func(t *testing.T) {
		m := parseSample(t)
		m.VectorDBs = []VectorDB{
			{VectorDBID: "kb", ProviderID: "faiss", EmbeddingModel: "missing-model", EmbeddingDimension: 384},
			{VectorDBID: "kb2", ProviderID: "faiss", EmbeddingModel: "llama3.2:3b", EmbeddingDimension: 384},
		}
		expectProblems(t, m,
			`embedding_model "missing-model" not found in models`,
			`embedding_model "llama3.2:3b" is not an embedding model`,
		)

		// Valid when pointing at the declared embedding model.
		m.VectorDBs = []VectorDB{{VectorDBID: "kb", ProviderID: "faiss", EmbeddingModel: "all-MiniLM-L6-v2", EmbeddingDimension: 384}}
		if err := m.Validate(); err != nil {
			t.Fatalf("Validate error: %v", err)
		}
	})

	t.Run("benchmark references", func(t *testing.T) {
		m := parseSample(t)
		m.APIs = append(m.APIs, "eval", "datasetio", "scoring")
		m.Providers["eval"] = []Provider{{ProviderID: "eval", ProviderType: "inline::meta-reference"}}
		m.Providers["datasetio"] = []Provider{{ProviderID: "localfs", ProviderType: "inline::localfs"}}
		m.Providers["scoring"] = []Provider{{ProviderID: "basic", ProviderType: "inline::basic"}}
		m.Datasets = []Dataset{{DatasetID: "qa", ProviderID: "localfs"}}
		m.ScoringFns = []ScoringFn{{ScoringFnID: "basic::equality", ProviderID: "basic"}}
		m.Benchmarks = []Benchmark{{
			BenchmarkID:      "bench",
			ProviderID:       "eval",
			DatasetID:        "missing-ds",
			ScoringFunctions: []string{"basic::equality", "basic::missing"},
		}}
		expectProblems(t, m,
			`dataset_id "missing-ds" not found in datasets`,
			`scoring function "basic::missing" not found in scoring_fns`,
		)

		m.Benchmarks[0].DatasetID = "qa"
		m.Benchmarks[0].ScoringFunctions = []string{"basic::equality"}
		if err := m.Validate(); err != nil {
			t.Fatalf("Validate error: %v", err)
		}
	})

	t.Run("duplicate resource identifiers", func(t *testing.T) {
		m := parseSample(t)
		m.Shields = append(m.Shields, Shield{ShieldID: "content-safety", ProviderID: "llama-guard"})
		expectProblems(t, m, `duplicate shield "content-safety"`)
	})

	t.Run("toolgroup with empty mcp uri", func(t *testing.T) {
		m := parseSample(t)
		m.APIs = append(m.APIs, "tool_runtime")
		m.Providers["tool_runtime"] = []Provider{{ProviderID: "mcp", ProviderType: "remote::model-context-protocol"}}
		m.ToolGroups = []ToolGroup{{ToolGroupID: "mcp::fs", ProviderID: "mcp", MCPEndpoint: &MCPEndpoint{}}}
		expectProblems(t, m, `tool_group "mcp::fs": mcp_endpoint.uri must not be empty`)
	})

	t.Run("bad store spec", func(t *testing.T) {
		m := parseSample(t)
		m.MetadataStore = &kvstore.Spec{Type: "sqlite"}
		expectProblems(t, m, "metadata_store:")
	})

	t.Run("server problems", func(t *testing.T) {
		m := parseSample(t)
		m.Server.Port = 70000
		m.Server.TLSCertFile = "/etc/tls/cert.pem"
		m.Server.Auth = &Auth{ProviderType: "oauth"}
		expectProblems(t, m,
			"server.port 70000 out of range",
			"tls_certfile and tls_keyfile must be set together",
			`server.auth: unsupported provider_type "oauth"`,
			"server.auth: config.secret_env must not be empty",
		)
	})

	t.Run("problems aggregate", func(t *testing.T) {
		m := parseSample(t)
		m.ImageName = ""
		m.APIs = append(m.APIs, "warp_drive")
		m.Models[0].ProviderID = "gone"
		verr := expectProblems(t, m)
		if len(verr.Problems) < 3 {
			t.Fatalf("expected at least 3 problems, got %v", verr.Problems)
		}
		if !strings.Contains(verr.Error(), "problems") {
			t.Fatalf("multi-problem error should count problems: %s", verr.Error())
		}
	})
}
