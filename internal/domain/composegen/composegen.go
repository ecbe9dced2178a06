// Package composegen — Task 4.3: docker-compose deployments.
// Generate renders the two-service deployment for a distribution: an
// inference backend container and the stack server container that waits a
// fixed delay for it, both on host networking with bounded restart
// retries. Output is a yaml.v3 marshal of typed structs, so the file
// shape never drifts with map ordering.
package composegen

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
)

// Backend kinds Generate knows how to wire.
const (
	BackendTGI    = "tgi"
	BackendOllama = "ollama"
	BackendVLLM   = "vllm"
)

// DefaultStartupDelay is how long the stack server sleeps before starting,
// giving the backend container time to come up.
const DefaultStartupDelay = 60 * time.Second

var backendDefaults = map[string]struct {
	image        string
	port         int
	providerType string
	volumeTarget string
}{
	BackendTGI:    {"ghcr.io/huggingface/text-generation-inference:latest", 8080, "remote::tgi", "/data"},
	BackendOllama: {"ollama/ollama:latest", 11434, "remote::ollama", "/root/.ollama"},
	BackendVLLM:   {"vllm/vllm-openai:latest", 8000, "remote::vllm", "/root/.cache/huggingface"},
}

// Options select the backend and deployment knobs.
type Options struct {
	Backend      string        // tgi | ollama | vllm
	Image        string        // backend image override
	GPUCount     int           // nvidia device reservation by count
	DeviceIDs    []string      // nvidia device reservation by explicit ids
	StartupDelay time.Duration // stack server sleep; DefaultStartupDelay when zero
	VolumeName   string        // named volume; defaults to the backend name
	ManifestPath string        // host path of run.yaml; "./run.yaml" when empty
}

type composeFile struct {
	Services map[string]service  `yaml:"services"`
	Volumes  map[string]struct{} `yaml:"volumes,omitempty"`
}

type service struct {
	Image       string   `yaml:"image"`
	NetworkMode string   `yaml:"network_mode,omitempty"`
	Volumes     []string `yaml:"volumes,omitempty"`
	Ports       []string `yaml:"ports,omitempty"`
	Environment []string `yaml:"environment,omitempty"`
	Runtime     string   `yaml:"runtime,omitempty"`
	Command     []string `yaml:"command,omitempty"`
	DependsOn   []string `yaml:"depends_on,omitempty"`
	Deploy      *deploy  `yaml:"deploy,omitempty"`
}

type deploy struct {
	Resources     *resources     `yaml:"resources,omitempty"`
	RestartPolicy *restartPolicy `yaml:"restart_policy,omitempty"`
}

type resources struct {
	Reservations *reservations `yaml:"reservations,omitempty"`
}

type reservations struct {
	Devices []deviceReservation `yaml:"devices"`
}

type deviceReservation struct {
	Driver       string   `yaml:"driver"`
	Count        int      `yaml:"count,omitempty"`
	DeviceIDs    []string `yaml:"device_ids,omitempty"`
	Capabilities []string `yaml:"capabilities"`
}

type restartPolicy struct {
	Condition   string `yaml:"condition"`
	Delay       string `yaml:"delay"`
	MaxAttempts int    `yaml:"max_attempts"`
	Window      string `yaml:"window"`
}

func boundedRestart() *restartPolicy {
	return &restartPolicy{Condition: "on-failure", Delay: "3s", MaxAttempts: 5, Window: "60s"}
}

// Generate renders the compose file for a substituted manifest. raw is the
// manifest as written; its ${env.*} references become compose-level
// environment passthrough on the stack service.
func Generate(m *manifest.Manifest, raw []byte, opts Options) ([]byte, error) {
	def, ok := backendDefaults[opts.Backend]
	if !ok {
		return nil, fmt.Errorf("composegen: unknown backend %q (want %s, %s or %s)",
			opts.Backend, BackendTGI, BackendOllama, BackendVLLM)
	}

	image := opts.Image
	if image == "" {
		image = def.image
	}
	volumeName := opts.VolumeName
	if volumeName == "" {
		volumeName = opts.Backend
	}
	delay := opts.StartupDelay
	if delay <= 0 {
		delay = DefaultStartupDelay
	}
	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = "./run.yaml"
	}

	port := backendPort(m, def.providerType, def.port)

	backend := service{
		Image:       image,
		NetworkMode: "host",
		Volumes:     []string{volumeName + ":" + def.volumeTarget},
		Environment: backendEnv(opts.Backend),
		Deploy:      &deploy{RestartPolicy: boundedRestart()},
	}
	cmd, err := backendCommand(m, opts.Backend, port)
	if err != nil {
		return nil, err
	}
	backend.Command = cmd
	if opts.GPUCount > 0 || len(opts.DeviceIDs) > 0 {
		backend.Runtime = "nvidia"
		dev := deviceReservation{Driver: "nvidia", Capabilities: []string{"gpu"}}
		if len(opts.DeviceIDs) > 0 {
			dev.DeviceIDs = opts.DeviceIDs
		} else {
			dev.Count = opts.GPUCount
		}
		backend.Deploy.Resources = &resources{Reservations: &reservations{Devices: []deviceReservation{dev}}}
	}

	serverPort := m.Server.Port
	if serverPort == 0 {
		serverPort = manifest.DefaultPort
	}
	stack := service{
		Image:       "stackd/distribution-" + m.ImageName + ":latest",
		NetworkMode: "host",
		Volumes:     []string{manifestPath + ":/root/stackd/run.yaml:ro"},
		Ports:       []string{fmt.Sprintf("%d:%d", serverPort, serverPort)},
		Environment: passthroughEnv(raw),
		DependsOn:   []string{opts.Backend},
		Command: []string{"sh", "-c", fmt.Sprintf(
			"sleep %d && stackd serve --manifest /root/stackd/run.yaml --port %d",
			int(delay.Seconds()), serverPort)},
		Deploy: &deploy{RestartPolicy: boundedRestart()},
	}

	file := composeFile{
		Services: map[string]service{
			opts.Backend: backend,
			"stackd":     stack,
		},
		Volumes: map[string]struct{}{volumeName: {}},
	}

	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		enc.Close()
		return nil, fmt.Errorf("composegen: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("composegen: encode yaml: %w", err)
	}
	return []byte(sb.String()), nil
}

// backendPort reads the port out of the matching inference provider's url
// config, falling back to the backend's conventional port.
func backendPort(m *manifest.Manifest, providerType string, fallback int) int {
	for _, p := range m.Providers[manifest.APIInference] {
		if p.ProviderType != providerType {
			continue
		}
		rawURL, _ := p.Config["url"].(string)
		if rawURL == "" {
			continue
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			continue
		}
		if portStr := u.Port(); portStr != "" {
			var port int
			if _, err := fmt.Sscanf(portStr, "%d", &port); err == nil {
				return port
			}
		}
	}
	return fallback
}

func backendEnv(backend string) []string {
	switch backend {
	case BackendTGI:
		return []string{"HF_TOKEN=${HF_TOKEN:-}"}
	case BackendVLLM:
		return []string{"HUGGING_FACE_HUB_TOKEN=${HF_TOKEN:-}"}
	default:
		return nil
	}
}

// backendCommand builds the container args. tgi and vllm need the model to
// serve; ollama runs its default entrypoint.
func backendCommand(m *manifest.Manifest, backend string, port int) ([]string, error) {
	if backend == BackendOllama {
		return nil, nil
	}
	model := servedModel(m)
	if model == "" {
		return nil, fmt.Errorf("composegen: %s backend needs an llm model in the manifest", backend)
	}
	switch backend {
	case BackendTGI:
		return []string{"--model-id", model, "--port", fmt.Sprintf("%d", port)}, nil
	default: // vllm
		return []string{"--model", model, "--port", fmt.Sprintf("%d", port)}, nil
	}
}

// servedModel picks the first llm model, preferring the provider-facing id.
func servedModel(m *manifest.Manifest) string {
	for _, model := range m.Models {
		if model.ModelType != manifest.ModelTypeLLM {
			continue
		}
		if model.ProviderModelID != "" {
			return model.ProviderModelID
		}
		return model.ModelID
	}
	return ""
}

// passthroughEnv lists every ${env.*} reference of the raw manifest as a
// compose-level passthrough entry, so host values reach the container at
// deploy time.
func passthroughEnv(raw []byte) []string {
	refs := manifest.EnvRefs(raw)
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.HasDefault {
			out = append(out, fmt.Sprintf("%s=${%s:-%s}", ref.Name, ref.Name, ref.Default))
		} else {
			out = append(out, fmt.Sprintf("%s=${%s:-}", ref.Name, ref.Name))
		}
	}
	sort.Strings(out)
	return out
}
