package manifest

// Task 1.4: manifest loading. Load reads a YAML manifest from disk,
// substitutes ${env.*} expressions, and strict-decodes the result; unknown
// keys are rejected so a typo'd field fails fast instead of being silently
// dropped. ParseRaw skips substitution for tools that need the manifest as
// written (docgen, resolve without env).

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the manifest at path, applying environment
// substitution.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return m, nil
}

// Parse parses manifest YAML, substituting ${env.*} expressions before
// decoding. A reference to an unset variable with no default is an
// *EnvVarError.
func Parse(data []byte) (*Manifest, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if root.Kind == 0 {
		return nil, errors.New("empty manifest")
	}
	if err := SubstituteEnv(&root); err != nil {
		return nil, err
	}
	substituted, err := yaml.Marshal(&root)
	if err != nil {
		return nil, fmt.Errorf("render substituted yaml: %w", err)
	}
	return decodeStrict(substituted)
}

// ParseRaw parses manifest YAML without environment substitution. Scalars
// keep their literal ${env.*} text.
func ParseRaw(data []byte) (*Manifest, error) {
	return decodeStrict(data)
}

func decodeStrict(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty manifest")
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	m.normalize()
	return &m, nil
}

// normalize fills schema defaults after decoding.
func (m *Manifest) normalize() {
	if m.Server.Port == 0 {
		m.Server.Port = DefaultPort
	}
	for i := range m.Models {
		if m.Models[i].ModelType == "" {
			m.Models[i].ModelType = ModelTypeLLM
		}
	}
}
