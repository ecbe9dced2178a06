// Task 5.1: validate and resolve — manifest tooling.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/stackd/internal/domain/distro"
	"github.com/matiasleandrokruk/stackd/internal/domain/manifest"
)

// loadManifestArg resolves arg as a built-in template name first, then as
// a file path. Every manifest command accepts both forms.
func loadManifestArg(arg string) ([]byte, *manifest.Manifest, error) {
	for _, d := range distro.List() {
		if d.Name == arg {
			return distro.Get(arg)
		}
	}
	raw, err := os.ReadFile(arg)
	if err != nil {
		return nil, nil, fmt.Errorf("%q is neither a built-in template nor a readable file: %w", arg, err)
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, nil, err
	}
	return raw, m, nil
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "validate <template|manifest.yaml>",
		Short:   "Validate a distribution manifest",
		Args:    cobra.ExactArgs(1),
		Example: "  stackd validate run.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := loadManifestArg(args[0])
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				var vErr *manifest.ValidationError
				if errors.As(err, &vErr) {
					for _, problem := range vErr.Problems {
						cmd.PrintErrln("  -", problem)
					}
					return fmt.Errorf("%s: %d problem(s)", args[0], len(vErr.Problems))
				}
				return err
			}
			cmd.Printf("%s: ok (%d providers, %d apis)\n",
				args[0], len(m.ProviderList()), len(m.APIs))
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	var redact bool

	cmd := &cobra.Command{
		Use:   "resolve <template|manifest.yaml>",
		Short: "Print a manifest with ${env...} references resolved",
		Args:  cobra.ExactArgs(1),
		Example: "  stackd resolve ollama\n" +
			"  stackd resolve run.yaml --redact",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := loadManifestArg(args[0])
			if err != nil {
				return err
			}
			if redact {
				m = m.Redact()
			}
			var b strings.Builder
			if err := m.Write(&b); err != nil {
				return err
			}
			cmd.Print(b.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&redact, "redact", false, "Mask secret-looking config values")
	return cmd
}
