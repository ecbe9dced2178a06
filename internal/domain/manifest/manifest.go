// Package manifest — Task 1.3: distribution manifest model.
// A manifest wires one stack distribution: which API categories it serves,
// which provider backs each category, which resources (models, shields,
// vector DBs, datasets, scoring functions, benchmarks, toolgroups) are
// declared up front, where registry state persists, and how the server
// listens. Manifests are loaded once at startup; nothing here watches or
// reloads them.
package manifest

import (
	"net"
	"sort"
	"strconv"

	"github.com/matiasleandrokruk/stackd/internal/infra/kvstore"
)

// DefaultPort is the stack server port used when the manifest omits one.
const DefaultPort = 8321

// CurrentVersion is the manifest schema version this code reads and writes.
const CurrentVersion = "2"

// API categories a distribution may serve. The set is closed: a manifest
// naming anything else fails validation.
const (
	APIAgents      = "agents"
	APIDatasetIO   = "datasetio"
	APIEval        = "eval"
	APIInference   = "inference"
	APISafety      = "safety"
	APIScoring     = "scoring"
	APITelemetry   = "telemetry"
	APIToolRuntime = "tool_runtime"
	APIVectorIO    = "vector_io"
)

// APIs lists every known API category in canonical order.
var APIs = []string{
	APIAgents,
	APIDatasetIO,
	APIEval,
	APIInference,
	APISafety,
	APIScoring,
	APITelemetry,
	APIToolRuntime,
	APIVectorIO,
}

// KnownAPI reports whether name is a recognized API category.
func KnownAPI(name string) bool {
	for _, a := range APIs {
		if a == name {
			return true
		}
	}
	return false
}

// Resource kinds. Each kind's entries must reference a provider of the
// paired API category (see APIForKind).
const (
	KindModel     = "model"
	KindShield    = "shield"
	KindVectorDB  = "vector_db"
	KindDataset   = "dataset"
	KindScoringFn = "scoring_function"
	KindBenchmark = "benchmark"
	KindToolGroup = "tool_group"
)

// Kinds lists every resource kind in canonical order.
var Kinds = []string{
	KindModel,
	KindShield,
	KindVectorDB,
	KindDataset,
	KindScoringFn,
	KindBenchmark,
	KindToolGroup,
}

// APIForKind maps each resource kind to the API category whose providers
// may back it. This is the referential-consistency table validation
// enforces.
var APIForKind = map[string]string{
	KindModel:     APIInference,
	KindShield:    APISafety,
	KindVectorDB:  APIVectorIO,
	KindDataset:   APIDatasetIO,
	KindScoringFn: APIScoring,
	KindBenchmark: APIEval,
	KindToolGroup: APIToolRuntime,
}

// Model types.
const (
	ModelTypeLLM       = "llm"
	ModelTypeEmbedding = "embedding"
)

// Manifest is a parsed distribution manifest. Field order matches the
// canonical key order of the YAML rendering.
type Manifest struct {
	Version              string                `yaml:"version" json:"version"`
	ImageName            string                `yaml:"image_name" json:"image_name"`
	APIs                 []string              `yaml:"apis" json:"apis"`
	Providers            map[string][]Provider `yaml:"providers" json:"providers"`
	MetadataStore        *kvstore.Spec         `yaml:"metadata_store,omitempty" json:"metadata_store,omitempty"`
	InferenceStore       *kvstore.Spec         `yaml:"inference_store,omitempty" json:"inference_store,omitempty"`
	Models               []Model               `yaml:"models" json:"models"`
	Shields              []Shield              `yaml:"shields" json:"shields"`
	VectorDBs            []VectorDB            `yaml:"vector_dbs" json:"vector_dbs"`
	Datasets             []Dataset             `yaml:"datasets" json:"datasets"`
	ScoringFns           []ScoringFn           `yaml:"scoring_fns" json:"scoring_fns"`
	Benchmarks           []Benchmark           `yaml:"benchmarks" json:"benchmarks"`
	ToolGroups           []ToolGroup           `yaml:"tool_groups" json:"tool_groups"`
	ExternalProvidersDir string                `yaml:"external_providers_dir,omitempty" json:"external_providers_dir,omitempty"`
	Server               Server                `yaml:"server" json:"server"`
}

// Provider binds one backend implementation to an API category.
type Provider struct {
	ProviderID   string         `yaml:"provider_id" json:"provider_id"`
	ProviderType string         `yaml:"provider_type" json:"provider_type"`
	Config       map[string]any `yaml:"config" json:"config"`
}

// Model declares a model served through an inference provider.
type Model struct {
	Metadata        map[string]any `yaml:"metadata" json:"metadata"`
	ModelID         string         `yaml:"model_id" json:"model_id"`
	ProviderID      string         `yaml:"provider_id" json:"provider_id"`
	ProviderModelID string         `yaml:"provider_model_id,omitempty" json:"provider_model_id,omitempty"`
	ModelType       string         `yaml:"model_type,omitempty" json:"model_type,omitempty"`
}

// Shield declares a safety filter backed by a safety provider.
type Shield struct {
	ShieldID         string         `yaml:"shield_id" json:"shield_id"`
	ProviderID       string         `yaml:"provider_id" json:"provider_id"`
	ProviderShieldID string         `yaml:"provider_shield_id,omitempty" json:"provider_shield_id,omitempty"`
	Params           map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// VectorDB declares a vector store (memory bank) backed by a vector_io provider.
type VectorDB struct {
	VectorDBID         string `yaml:"vector_db_id" json:"vector_db_id"`
	ProviderID         string `yaml:"provider_id" json:"provider_id"`
	EmbeddingModel     string `yaml:"embedding_model" json:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension" json:"embedding_dimension"`
}

// Dataset declares a dataset reachable through a datasetio provider.
type Dataset struct {
	DatasetID  string         `yaml:"dataset_id" json:"dataset_id"`
	ProviderID string         `yaml:"provider_id" json:"provider_id"`
	Purpose    string         `yaml:"purpose,omitempty" json:"purpose,omitempty"`
	Source     map[string]any `yaml:"source,omitempty" json:"source,omitempty"`
	Metadata   map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// ScoringFn declares a scoring function backed by a scoring provider.
type ScoringFn struct {
	ScoringFnID string         `yaml:"scoring_fn_id" json:"scoring_fn_id"`
	ProviderID  string         `yaml:"provider_id" json:"provider_id"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	ReturnType  map[string]any `yaml:"return_type,omitempty" json:"return_type,omitempty"`
}

// Benchmark declares an eval benchmark over a dataset and scoring functions.
type Benchmark struct {
	BenchmarkID      string         `yaml:"benchmark_id" json:"benchmark_id"`
	ProviderID       string         `yaml:"provider_id" json:"provider_id"`
	DatasetID        string         `yaml:"dataset_id,omitempty" json:"dataset_id,omitempty"`
	ScoringFunctions []string       `yaml:"scoring_functions,omitempty" json:"scoring_functions,omitempty"`
	Metadata         map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// ToolGroup declares a bundle of tools exposed through a tool_runtime provider.
type ToolGroup struct {
	ToolGroupID string         `yaml:"toolgroup_id" json:"toolgroup_id"`
	ProviderID  string         `yaml:"provider_id" json:"provider_id"`
	MCPEndpoint *MCPEndpoint   `yaml:"mcp_endpoint,omitempty" json:"mcp_endpoint,omitempty"`
	Args        map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
}

// MCPEndpoint points a toolgroup at a model-context-protocol server.
type MCPEndpoint struct {
	URI string `yaml:"uri" json:"uri"`
}

// Server configures the stack server's listener.
type Server struct {
	Port        int    `yaml:"port" json:"port"`
	Host        string `yaml:"host,omitempty" json:"host,omitempty"`
	TLSCertFile string `yaml:"tls_certfile,omitempty" json:"tls_certfile,omitempty"`
	TLSKeyFile  string `yaml:"tls_keyfile,omitempty" json:"tls_keyfile,omitempty"`
	Auth        *Auth  `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// Auth enables bearer-token authentication on the control plane.
type Auth struct {
	ProviderType string     `yaml:"provider_type" json:"provider_type"`
	Config       AuthConfig `yaml:"config" json:"config"`
}

// AuthConfig carries auth provider settings. SecretEnv names the
// environment variable holding the HS256 signing secret — the secret
// itself never appears in a manifest.
type AuthConfig struct {
	SecretEnv string `yaml:"secret_env" json:"secret_env"`
}

// Addr returns the listen address for the server block.
func (s Server) Addr() string {
	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

// TLSEnabled reports whether both a certificate and a key are configured.
func (s Server) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

// HasProvider reports whether the manifest declares a provider with the
// given id under the given API category.
func (m *Manifest) HasProvider(api, providerID string) bool {
	for _, p := range m.Providers[api] {
		if p.ProviderID == providerID {
			return true
		}
	}
	return false
}

// ProviderInfo is a provider together with the API category it serves,
// as listed by the providers endpoint and CLI.
type ProviderInfo struct {
	API          string         `json:"api" yaml:"api"`
	ProviderID   string         `json:"provider_id" yaml:"provider_id"`
	ProviderType string         `json:"provider_type" yaml:"provider_type"`
	Config       map[string]any `json:"config" yaml:"config"`
}

// ProviderList flattens the providers map into a deterministic list,
// ordered by API category then by position within the category.
func (m *Manifest) ProviderList() []ProviderInfo {
	apis := make([]string, 0, len(m.Providers))
	for api := range m.Providers {
		apis = append(apis, api)
	}
	sort.Strings(apis)
	var out []ProviderInfo
	for _, api := range apis {
		for _, p := range m.Providers[api] {
			out = append(out, ProviderInfo{
				API:          api,
				ProviderID:   p.ProviderID,
				ProviderType: p.ProviderType,
				Config:       p.Config,
			})
		}
	}
	return out
}
