package manifest

// Task 1.5: ${env.*} substitution. Expressions are resolved against the
// process environment while the manifest is still a yaml node tree, so a
// scalar that consists of a single unquoted expression can be re-typed
// (int, bool) before decoding into the typed structs.
//
// Forms:
//
//	${env.NAME}          value of NAME; error when unset
//	${env.NAME:=default} value of NAME, or default when unset or empty
//	${env.NAME:+value}   value when NAME is set and non-empty, else ""

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const envExprPrefix = "${env."

var envExprRe = regexp.MustCompile(`\$\{env\.([A-Za-z_][A-Za-z0-9_]*)(?::([=+])([^}]*))?\}`)

// EnvVarError reports a ${env.NAME} reference with no value and no default.
type EnvVarError struct {
	Name string
}

func (e *EnvVarError) Error() string {
	return fmt.Sprintf("environment variable %s is not set", e.Name)
}

// SubstituteEnv resolves every ${env.*} expression in the node tree in
// place. Unquoted scalars that were a single expression are re-typed when
// the resolved value parses as an int or bool.
func SubstituteEnv(root *yaml.Node) error {
	if root == nil {
		return nil
	}
	switch root.Kind {
	case yaml.ScalarNode:
		return substituteScalar(root)
	default:
		for _, child := range root.Content {
			if err := SubstituteEnv(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func substituteScalar(node *yaml.Node) error {
	value := node.Value
	if !strings.Contains(value, envExprPrefix) {
		return nil
	}
	matches := envExprRe.FindAllStringSubmatchIndex(value, -1)
	if len(matches) != strings.Count(value, envExprPrefix) {
		return fmt.Errorf("malformed environment expression in %q", value)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(value[last:m[0]])
		resolved, err := resolveExpr(value, m)
		if err != nil {
			return err
		}
		b.WriteString(resolved)
		last = m[1]
	}
	b.WriteString(value[last:])
	resolved := b.String()

	wholeExpr := len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(value)
	node.Value = resolved
	node.Tag = retag(resolved, wholeExpr && node.Style == 0)
	return nil
}

// resolveExpr evaluates one matched expression. m is the submatch index
// slice for value: name at m[2:4], operator at m[4:6], argument at m[6:8].
func resolveExpr(value string, m []int) (string, error) {
	name := value[m[2]:m[3]]
	env, set := os.LookupEnv(name)
	if m[4] < 0 {
		if !set {
			return "", &EnvVarError{Name: name}
		}
		return env, nil
	}
	arg := value[m[6]:m[7]]
	switch value[m[4]:m[5]] {
	case "=":
		if !set || env == "" {
			return arg, nil
		}
		return env, nil
	default: // "+"
		if set && env != "" {
			return arg, nil
		}
		return "", nil
	}
}

// retag picks the yaml tag for a substituted scalar. Only a full, unquoted
// expression may change type; partial substitutions always stay strings.
func retag(resolved string, retype bool) string {
	if !retype {
		return "!!str"
	}
	if _, err := strconv.ParseInt(resolved, 10, 64); err == nil {
		return "!!int"
	}
	if resolved == "true" || resolved == "false" {
		return "!!bool"
	}
	return "!!str"
}

// EnvRef describes one ${env.*} reference found in raw manifest bytes.
type EnvRef struct {
	Name        string
	Default     string
	HasDefault  bool
	Conditional bool
}

// EnvRefs scans raw manifest text for environment references, one entry
// per variable name, sorted by name. The first occurrence of a name wins
// when the same variable appears with different defaults.
func EnvRefs(data []byte) []EnvRef {
	seen := make(map[string]EnvRef)
	var names []string
	for _, m := range envExprRe.FindAllSubmatch(data, -1) {
		name := string(m[1])
		if _, ok := seen[name]; ok {
			continue
		}
		ref := EnvRef{Name: name}
		if len(m[2]) > 0 {
			switch string(m[2]) {
			case "=":
				ref.HasDefault = true
				ref.Default = string(m[3])
			case "+":
				ref.Conditional = true
			}
		}
		seen[name] = ref
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]EnvRef, 0, len(names))
	for _, name := range names {
		out = append(out, seen[name])
	}
	return out
}
