package distro

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
)

func TestList(t *testing.T) {
	distros := List()
	want := []string{"fireworks", "ollama", "open-benchmark", "remote-vllm", "tgi", "together"}
	if len(distros) != len(want) {
		t.Fatalf("expected %d distributions, got %d: %#v", len(want), len(distros), distros)
	}
	for i, name := range want {
		if distros[i].Name != name {
			t.Fatalf("distros[%d] = %q, want %q", i, distros[i].Name, name)
		}
		if distros[i].Description == "" {
			t.Fatalf("distribution %s has no description", name)
		}
	}
}

func TestGet(t *testing.T) {
	// Numeric template fields must not be clobbered by ambient env.
	t.Setenv("STACKD_PORT", "")
	t.Setenv("VLLM_MAX_TOKENS", "")

	t.Run("every template parses and validates", func(t *testing.T) {
		for _, d := range List() {
			raw, m, err := Get(d.Name)
			if err != nil {
				t.Fatalf("Get(%s) error: %v", d.Name, err)
			}
			if len(raw) == 0 {
				t.Fatalf("Get(%s) returned empty raw bytes", d.Name)
			}
			if m.ImageName != d.Name {
				t.Fatalf("template %s has image_name %q", d.Name, m.ImageName)
			}
			if err := m.Validate(); err != nil {
				t.Fatalf("template %s does not validate: %v", d.Name, err)
			}
			if m.MetadataStore == nil || m.MetadataStore.Type != "sqlite" {
				t.Fatalf("template %s must persist its registry in sqlite: %#v", d.Name, m.MetadataStore)
			}
		}
	})

	t.Run("unknown name -> error", func(t *testing.T) {
		if _, _, err := Get("starter"); err == nil || !strings.Contains(err.Error(), "starter") {
			t.Fatalf("expected unknown-distribution error, got %v", err)
		}
	})

	t.Run("open-benchmark carries the eval chain", func(t *testing.T) {
		_, m, err := Get("open-benchmark")
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if len(m.Datasets) == 0 || len(m.ScoringFns) == 0 || len(m.Benchmarks) == 0 {
			t.Fatalf("expected datasets, scoring_fns and benchmarks: %d/%d/%d",
				len(m.Datasets), len(m.ScoringFns), len(m.Benchmarks))
		}
	})
}

func TestBuild(t *testing.T) {
	t.Setenv("STACKD_PORT", "")
	dest := filepath.Join(t.TempDir(), "out", "ollama")
	if err := Build("ollama", dest); err != nil {
		t.Fatalf("Build error: %v", err)
	}

	runRaw, err := os.ReadFile(filepath.Join(dest, "run.yaml"))
	if err != nil {
		t.Fatalf("read run.yaml: %v", err)
	}
	tmplRaw, _, err := Get("ollama")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(runRaw) != string(tmplRaw) {
		t.Fatalf("run.yaml must be written verbatim")
	}
	// The written manifest still parses.
	if _, err := manifest.Parse(runRaw); err != nil {
		t.Fatalf("written run.yaml does not parse: %v", err)
	}

	doc, err := os.ReadFile(filepath.Join(dest, "doc.md"))
	if err != nil {
		t.Fatalf("read doc.md: %v", err)
	}
	if !strings.HasPrefix(string(doc), "# ollama distribution") {
		t.Fatalf("unexpected doc.md head: %q", string(doc[:60]))
	}
	if !strings.Contains(string(doc), "`OLLAMA_URL` (default: `http://localhost:11434`)") {
		t.Fatalf("doc.md must list template env vars:\n%s", doc)
	}

	t.Run("unknown template -> error, no files", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope")
		if err := Build("nope", missing); err == nil {
			t.Fatalf("expected error")
		}
		if _, err := os.Stat(missing); !os.IsNotExist(err) {
			t.Fatalf("dest dir must not be created on unknown template")
		}
	})
}
