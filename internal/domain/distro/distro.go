// Package distro — Task 4.1: built-in distributions.
// Each distribution is a complete manifest template embedded at build
// time. Templates lean on ${env.NAME:=default} so they parse and
// validate with no environment prepared, and `stackd build` materializes
// them into a directory users can run and edit.
package distro

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matiasleandrokruk/stackd/internal/domain/docgen"
	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
)

//go:embed templates/*.yaml
var templatesFS embed.FS

// Distribution is one built-in template as shown by `stackd templates list`.
type Distribution struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List returns every built-in distribution, sorted by name. The
// description is the leading comment line of the template.
func List() []Distribution {
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		// The directory is embedded; a read failure is a build defect.
		panic(fmt.Sprintf("distro: read embedded templates: %v", err))
	}
	out := make([]Distribution, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		raw, err := templatesFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			panic(fmt.Sprintf("distro: read embedded template %s: %v", entry.Name(), err))
		}
		out = append(out, Distribution{Name: name, Description: description(raw)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// description extracts the leading `# ...` comment line.
func description(raw []byte) string {
	line, _, _ := strings.Cut(string(raw), "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "#"))
}

// Get returns a template's raw YAML and its parsed form. Parsing applies
// environment substitution; every template defaults all of its variables,
// so Get succeeds with nothing exported.
func Get(name string) ([]byte, *manifest.Manifest, error) {
	raw, err := templatesFS.ReadFile("templates/" + name + ".yaml")
	if err != nil {
		return nil, nil, fmt.Errorf("distro: unknown distribution %q", name)
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("distro: template %s: %w", name, err)
	}
	return raw, m, nil
}

// Build writes a distribution's run.yaml and generated doc.md into
// destDir, creating the directory when needed.
func Build(name, destDir string) error {
	raw, m, err := Get(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("distro: create %s: %w", destDir, err)
	}
	runPath := filepath.Join(destDir, "run.yaml")
	if err := os.WriteFile(runPath, raw, 0o644); err != nil {
		return fmt.Errorf("distro: write %s: %w", runPath, err)
	}
	doc := docgen.Render(m, raw)
	docPath := filepath.Join(destDir, "doc.md")
	if err := os.WriteFile(docPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("distro: write %s: %w", docPath, err)
	}
	return nil
}
