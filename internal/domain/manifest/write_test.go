package manifest

import (
	"bytes"
	"strings"
	"testing"
)

func TestWrite(t *testing.T) {
	t.Run("canonical key order", func(t *testing.T) {
		var buf bytes.Buffer
		if err := parseSample(t).Write(&buf); err != nil {
			t.Fatalf("Write error: %v", err)
		}
		out := buf.String()
		order := []string{"version:", "image_name:", "apis:", "providers:", "metadata_store:", "models:", "shields:", "server:"}
		last := -1
		for _, key := range order {
			idx := strings.Index(out, "\n"+key)
			if key == "version:" {
				idx = strings.Index(out, key)
			}
			if idx < 0 {
				t.Fatalf("missing key %q in output:\n%s", key, out)
			}
			if idx < last {
				t.Fatalf("key %q out of order in output:\n%s", key, out)
			}
			last = idx
		}
		if !strings.Contains(out, "\n  inference:\n") {
			t.Fatalf("expected 2-space indent for provider categories:\n%s", out)
		}
	})

	t.Run("write/parse roundtrip", func(t *testing.T) {
		m := parseSample(t)
		var buf bytes.Buffer
		if err := m.Write(&buf); err != nil {
			t.Fatalf("Write error: %v", err)
		}
		back, err := ParseRaw(buf.Bytes())
		if err != nil {
			t.Fatalf("ParseRaw error: %v", err)
		}
		if back.ImageName != m.ImageName || back.Server.Port != m.Server.Port {
			t.Fatalf("roundtrip changed manifest: %#v", back)
		}
		if len(back.Models) != len(m.Models) || back.Models[1].ModelType != ModelTypeEmbedding {
			t.Fatalf("roundtrip changed models: %#v", back.Models)
		}
		if err := back.Validate(); err != nil {
			t.Fatalf("roundtripped manifest invalid: %v", err)
		}
	})
}

func TestRedact(t *testing.T) {
	m := parseSample(t)
	m.Providers["inference"][0].Config = map[string]any{
		"url":     "https://api.together.xyz/v1",
		"api_key": "tk-secret",
		"nested": map[string]any{
			"db_password": "hunter2",
			"timeout":     30,
		},
		"items": []any{map[string]any{"auth_token": "abc"}},
	}

	red := m.Redact()
	cfg := red.Providers["inference"][0].Config
	if cfg["url"] != "https://api.together.xyz/v1" {
		t.Fatalf("url must not be redacted: %v", cfg["url"])
	}
	if cfg["api_key"] != "********" {
		t.Fatalf("api_key not redacted: %v", cfg["api_key"])
	}
	nested := cfg["nested"].(map[string]any)
	if nested["db_password"] != "********" || nested["timeout"] != 30 {
		t.Fatalf("nested redaction wrong: %#v", nested)
	}
	item := cfg["items"].([]any)[0].(map[string]any)
	if item["auth_token"] != "********" {
		t.Fatalf("token inside list not redacted: %#v", item)
	}

	// Source manifest untouched.
	if m.Providers["inference"][0].Config["api_key"] != "tk-secret" {
		t.Fatalf("Redact mutated the original manifest")
	}
}

func TestProviderList(t *testing.T) {
	list := parseSample(t).ProviderList()
	if len(list) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(list))
	}
	// Ordered by API category.
	if list[0].API != "inference" || list[1].API != "safety" || list[2].API != "vector_io" {
		t.Fatalf("unexpected order: %#v", list)
	}
	if list[0].ProviderID != "ollama" || list[0].ProviderType != "remote::ollama" {
		t.Fatalf("unexpected first provider: %#v", list[0])
	}
}
