package manifest

// Task 1.7: canonical rendering. Write emits the manifest with 2-space
// indent and the §1.1 key order (struct field order). Redact produces a
// copy safe to show over the API or in CLI output.

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// redactedValue replaces secret-looking provider config values.
const redactedValue = "********"

var secretKeySuffixes = []string{"api_key", "api_token", "password", "secret", "token"}

// Write renders the manifest as canonical YAML.
func (m *Manifest) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		enc.Close()
		return fmt.Errorf("manifest: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("manifest: encode yaml: %w", err)
	}
	return nil
}

// Redact returns a copy of the manifest with secret-looking provider
// config values masked. A config key matches when it ends in api_key,
// api_token, password, secret, or token (case-insensitive). Fields other
// than providers are shared with the receiver.
func (m *Manifest) Redact() *Manifest {
	clone := *m
	clone.Providers = make(map[string][]Provider, len(m.Providers))
	for api, providers := range m.Providers {
		list := make([]Provider, len(providers))
		for i, p := range providers {
			list[i] = p
			list[i].Config = redactMap(p.Config)
		}
		clone.Providers[api] = list
	}
	return &clone
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, suffix := range secretKeySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func redactMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if isSecretKey(k) {
			out[k] = redactedValue
			continue
		}
		out[k] = redactAny(v)
	}
	return out
}

func redactAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return redactMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = redactAny(item)
		}
		return out
	default:
		return v
	}
}
