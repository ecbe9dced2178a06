// Package docgen — Task 4.2: distribution documentation pages.
// Render turns a manifest into the Markdown page that ships next to each
// built distribution. Output is deterministic: same manifest and raw
// bytes, same document.
package docgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
)

// Render produces the documentation page for a manifest. raw is the
// manifest as written, used to list ${env.*} references with their
// defaults; pass the parsed manifest's source bytes.
func Render(m *manifest.Manifest, raw []byte) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s distribution\n\n", m.ImageName)
	fmt.Fprintf(&b, "The `%s` distribution consists of the following provider configurations.\n\n", m.ImageName)

	writeProviderTable(&b, m)
	writeEnvSection(&b, raw)
	writeModelSection(&b, m)
	writeResourceSection(&b, m)
	writeRunningSection(&b, m)

	return b.String()
}

func writeProviderTable(b *strings.Builder, m *manifest.Manifest) {
	b.WriteString("## Providers\n\n")
	b.WriteString("| API | Provider(s) |\n")
	b.WriteString("|-----|-------------|\n")

	apis := make([]string, 0, len(m.Providers))
	for api := range m.Providers {
		apis = append(apis, api)
	}
	sort.Strings(apis)
	for _, api := range apis {
		types := make([]string, 0, len(m.Providers[api]))
		for _, p := range m.Providers[api] {
			types = append(types, "`"+p.ProviderType+"`")
		}
		fmt.Fprintf(b, "| %s | %s |\n", api, strings.Join(types, ", "))
	}
	b.WriteString("\n")
}

func writeEnvSection(b *strings.Builder, raw []byte) {
	refs := manifest.EnvRefs(raw)
	if len(refs) == 0 {
		return
	}
	b.WriteString("## Environment variables\n\n")
	b.WriteString("The following environment variables can be configured:\n\n")
	for _, ref := range refs {
		switch {
		case ref.HasDefault && ref.Default != "":
			fmt.Fprintf(b, "- `%s` (default: `%s`)\n", ref.Name, ref.Default)
		case ref.HasDefault:
			fmt.Fprintf(b, "- `%s` (default: empty)\n", ref.Name)
		case ref.Conditional:
			fmt.Fprintf(b, "- `%s` (set to enable)\n", ref.Name)
		default:
			fmt.Fprintf(b, "- `%s` (required)\n", ref.Name)
		}
	}
	b.WriteString("\n")
}

func writeModelSection(b *strings.Builder, m *manifest.Manifest) {
	if len(m.Models) == 0 {
		return
	}
	b.WriteString("## Models\n\n")
	b.WriteString("The following models are configured by default:\n\n")
	b.WriteString("| Model | Type | Provider |\n")
	b.WriteString("|-------|------|----------|\n")
	for _, model := range m.Models {
		fmt.Fprintf(b, "| `%s` | %s | `%s` |\n", model.ModelID, model.ModelType, model.ProviderID)
	}
	b.WriteString("\n")
}

func writeResourceSection(b *strings.Builder, m *manifest.Manifest) {
	type group struct {
		label string
		ids   []string
	}
	groups := []group{
		{"Shields", shieldIDs(m)},
		{"Vector DBs", vectorDBIDs(m)},
		{"Datasets", datasetIDs(m)},
		{"Scoring functions", scoringFnIDs(m)},
		{"Benchmarks", benchmarkIDs(m)},
		{"Tool groups", toolGroupIDs(m)},
	}

	any := false
	for _, g := range groups {
		if len(g.ids) > 0 {
			any = true
			break
		}
	}
	if !any {
		return
	}

	b.WriteString("## Resources\n\n")
	for _, g := range groups {
		if len(g.ids) == 0 {
			continue
		}
		quoted := make([]string, len(g.ids))
		for i, id := range g.ids {
			quoted[i] = "`" + id + "`"
		}
		fmt.Fprintf(b, "- %s: %s\n", g.label, strings.Join(quoted, ", "))
	}
	b.WriteString("\n")
}

func writeRunningSection(b *strings.Builder, m *manifest.Manifest) {
	b.WriteString("## Running\n\n")
	b.WriteString("```bash\nstackd serve --manifest run.yaml\n```\n\n")
	port := m.Server.Port
	if port == 0 {
		port = manifest.DefaultPort
	}
	fmt.Fprintf(b, "The server listens on port %d.\n", port)
}

func shieldIDs(m *manifest.Manifest) []string {
	out := make([]string, 0, len(m.Shields))
	for _, r := range m.Shields {
		out = append(out, r.ShieldID)
	}
	return out
}

func vectorDBIDs(m *manifest.Manifest) []string {
	out := make([]string, 0, len(m.VectorDBs))
	for _, r := range m.VectorDBs {
		out = append(out, r.VectorDBID)
	}
	return out
}

func datasetIDs(m *manifest.Manifest) []string {
	out := make([]string, 0, len(m.Datasets))
	for _, r := range m.Datasets {
		out = append(out, r.DatasetID)
	}
	return out
}

func scoringFnIDs(m *manifest.Manifest) []string {
	out := make([]string, 0, len(m.ScoringFns))
	for _, r := range m.ScoringFns {
		out = append(out, r.ScoringFnID)
	}
	return out
}

func benchmarkIDs(m *manifest.Manifest) []string {
	out := make([]string, 0, len(m.Benchmarks))
	for _, r := range m.Benchmarks {
		out = append(out, r.BenchmarkID)
	}
	return out
}

func toolGroupIDs(m *manifest.Manifest) []string {
	out := make([]string, 0, len(m.ToolGroups))
	for _, r := range m.ToolGroups {
		out = append(out, r.ToolGroupID)
	}
	return out
}
