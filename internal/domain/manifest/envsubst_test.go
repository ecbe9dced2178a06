package manifest

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// substitute runs SubstituteEnv over a small document and decodes the
// result untyped, so tests can assert both values and re-typed kinds.
func substitute(t *testing.T, src string) map[string]any {
	t.Helper()
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(src), &root); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := SubstituteEnv(&root); err != nil {
		t.Fatalf("SubstituteEnv error: %v", err)
	}
	var out map[string]any
	if err := root.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func substituteErr(t *testing.T, src string) error {
	t.Helper()
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(src), &root); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	err := SubstituteEnv(&root)
	if err == nil {
		t.Fatalf("expected substitution error for %q", src)
	}
	return err
}

func TestSubstituteEnv(t *testing.T) {
	t.Run("plain reference", func(t *testing.T) {
		t.Setenv("STACKD_TEST_HOST", "example.com")
		out := substitute(t, "v: ${env.STACKD_TEST_HOST}")
		if out["v"] != "example.com" {
			t.Fatalf("got %v", out["v"])
		}
	})

	t.Run("unset without default -> EnvVarError", func(t *testing.T) {
		err := substituteErr(t, "v: ${env.STACKD_TEST_UNSET_VAR}")
		var envErr *EnvVarError
		if !errors.As(err, &envErr) || envErr.Name != "STACKD_TEST_UNSET_VAR" {
			t.Fatalf("expected EnvVarError for STACKD_TEST_UNSET_VAR, got %v", err)
		}
	})

	t.Run("default when unset", func(t *testing.T) {
		out := substitute(t, "v: ${env.STACKD_TEST_UNSET_VAR:=fallback}")
		if out["v"] != "fallback" {
			t.Fatalf("got %v", out["v"])
		}
	})

	t.Run("default when set empty", func(t *testing.T) {
		t.Setenv("STACKD_TEST_EMPTY", "")
		out := substitute(t, "v: ${env.STACKD_TEST_EMPTY:=fallback}")
		if out["v"] != "fallback" {
			t.Fatalf("got %v", out["v"])
		}
	})

	t.Run("env wins over default", func(t *testing.T) {
		t.Setenv("STACKD_TEST_SET", "real")
		out := substitute(t, "v: ${env.STACKD_TEST_SET:=fallback}")
		if out["v"] != "real" {
			t.Fatalf("got %v", out["v"])
		}
	})

	t.Run("empty default -> empty string", func(t *testing.T) {
		out := substitute(t, "v: ${env.STACKD_TEST_UNSET_VAR:=}")
		if out["v"] != "" {
			t.Fatalf("got %v", out["v"])
		}
	})

	t.Run("conditional set -> value", func(t *testing.T) {
		t.Setenv("STACKD_TEST_SET", "anything")
		out := substitute(t, "v: ${env.STACKD_TEST_SET:+enabled}")
		if out["v"] != "enabled" {
			t.Fatalf("got %v", out["v"])
		}
	})

	t.Run("conditional unset -> empty", func(t *testing.T) {
		out := substitute(t, "v: ${env.STACKD_TEST_UNSET_VAR:+enabled}")
		if out["v"] != "" {
			t.Fatalf("got %v", out["v"])
		}
	})

	t.Run("conditional set empty -> empty", func(t *testing.T) {
		t.Setenv("STACKD_TEST_EMPTY", "")
		out := substitute(t, "v: ${env.STACKD_TEST_EMPTY:+enabled}")
		if out["v"] != "" {
			t.Fatalf("got %v", out["v"])
		}
	})

	t.Run("embedded in larger scalar", func(t *testing.T) {
		t.Setenv("STACKD_TEST_HOST", "example.com")
		out := substitute(t, "v: http://${env.STACKD_TEST_HOST}:${env.STACKD_TEST_PORT:=8080}/x")
		if out["v"] != "http://example.com:8080/x" {
			t.Fatalf("got %v", out["v"])
		}
	})

	t.Run("full unquoted expression re-types int", func(t *testing.T) {
		t.Setenv("STACKD_TEST_PORT", "8321")
		out := substitute(t, "v: ${env.STACKD_TEST_PORT}")
		if out["v"] != 8321 {
			t.Fatalf("expected int 8321, got %[1]v (%[1]T)", out["v"])
		}
	})

	t.Run("full unquoted expression re-types bool", func(t *testing.T) {
		out := substitute(t, "v: ${env.STACKD_TEST_UNSET_VAR:=true}")
		if out["v"] != true {
			t.Fatalf("expected bool true, got %[1]v (%[1]T)", out["v"])
		}
	})

	t.Run("quoted expression stays string", func(t *testing.T) {
		t.Setenv("STACKD_TEST_PORT", "8321")
		out := substitute(t, `v: "${env.STACKD_TEST_PORT}"`)
		if out["v"] != "8321" {
			t.Fatalf("expected string, got %[1]v (%[1]T)", out["v"])
		}
	})

	t.Run("partial substitution stays string", func(t *testing.T) {
		t.Setenv("STACKD_TEST_PORT", "8321")
		out := substitute(t, "v: port-${env.STACKD_TEST_PORT}")
		if out["v"] != "port-8321" {
			t.Fatalf("got %[1]v (%[1]T)", out["v"])
		}
	})

	t.Run("substitutes inside sequences and nested maps", func(t *testing.T) {
		t.Setenv("STACKD_TEST_HOST", "example.com")
		out := substitute(t, "a:\n  b:\n  - ${env.STACKD_TEST_HOST}\n")
		inner := out["a"].(map[string]any)["b"].([]any)
		if inner[0] != "example.com" {
			t.Fatalf("got %v", inner[0])
		}
	})

	t.Run("malformed empty name -> error", func(t *testing.T) {
		err := substituteErr(t, "v: ${env.}")
		if !strings.Contains(err.Error(), "malformed") {
			t.Fatalf("expected malformed error, got %v", err)
		}
	})

	t.Run("unterminated expression -> error", func(t *testing.T) {
		err := substituteErr(t, `v: "${env.STACKD_TEST_HOST"`)
		if !strings.Contains(err.Error(), "malformed") {
			t.Fatalf("expected malformed error, got %v", err)
		}
	})

	t.Run("scalar without expressions untouched", func(t *testing.T) {
		out := substitute(t, "v: plain $HOME ${not.env}")
		if out["v"] != "plain $HOME ${not.env}" {
			t.Fatalf("got %v", out["v"])
		}
	})
}

func TestEnvRefs(t *testing.T) {
	src := []byte(`
url: ${env.OLLAMA_URL:=http://localhost:11434}
key: ${env.API_KEY}
flag: ${env.FEATURE:+on}
again: ${env.API_KEY:=other}
`)
	refs := EnvRefs(src)
	if len(refs) != 3 {
		t.Fatalf("expected 3 refs, got %d: %#v", len(refs), refs)
	}
	// Sorted by name; first occurrence wins for API_KEY.
	if refs[0].Name != "API_KEY" || refs[0].HasDefault || refs[0].Conditional {
		t.Fatalf("unexpected ref[0]: %#v", refs[0])
	}
	if refs[1].Name != "FEATURE" || !refs[1].Conditional {
		t.Fatalf("unexpected ref[1]: %#v", refs[1])
	}
	if refs[2].Name != "OLLAMA_URL" || !refs[2].HasDefault || refs[2].Default != "http://localhost:11434" {
		t.Fatalf("unexpected ref[2]: %#v", refs[2])
	}

	if got := EnvRefs([]byte("no refs here")); len(got) != 0 {
		t.Fatalf("expected no refs, got %#v", got)
	}
}
