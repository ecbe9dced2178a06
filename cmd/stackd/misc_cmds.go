// Task 5.1: doctor, providers, hash-key, version.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/stackd/internal/domain/catalog"
	"github.com/matiasleandrokruk/stackd/internal/domain/probe"
	"github.com/matiasleandrokruk/stackd/internal/version"
	"github.com/matiasleandrokruk/stackd/pkg/authtoken"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "doctor <template|manifest.yaml>",
		Short:   "Probe the reachability of every remote backend a manifest depends on",
		Args:    cobra.ExactArgs(1),
		Example: "  stackd doctor run.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := loadManifestArg(args[0])
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return err
			}

			report := probe.New().Run(cmd.Context(), m)
			report.Render(cmd.OutOrStdout())
			if !report.OK() {
				return fmt.Errorf("%d check(s) failed", report.Failed())
			}
			return nil
		},
	}
}

func newProvidersCmd() *cobra.Command {
	providers := &cobra.Command{
		Use:   "providers",
		Short: "Inspect the provider-type catalog",
	}

	var api string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the provider types manifests may bind to",
		Example: "  stackd providers list\n" +
			"  stackd providers list --api inference",
		RunE: func(cmd *cobra.Command, args []string) error {
			var types []catalog.ProviderType
			if api == "" {
				types = catalog.All()
			} else {
				types = catalog.TypesFor(api)
				if len(types) == 0 {
					return fmt.Errorf("unknown api %q (one of: %s)", api, strings.Join(catalog.APIs(), ", "))
				}
			}

			for _, t := range types {
				cmd.Printf("%-12s %-28s %s\n", t.API, t.Type, t.Description)
				for _, f := range t.Fields {
					if f.Default != "" {
						cmd.Printf("  %s%-26s %s\n", "- ", f.Name, f.Default)
					} else {
						cmd.Printf("  %s%s\n", "- ", f.Name)
					}
				}
			}
			return nil
		},
	}

	list.Flags().StringVar(&api, "api", "", "Restrict to one API category")
	providers.AddCommand(list)
	return providers
}

func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "hash-key <api-key>",
		Short:   "Produce a bcrypt hash of an API key for manifest auth config",
		Args:    cobra.ExactArgs(1),
		Example: "  stackd hash-key sk-local-dev",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := authtoken.HashAPIKey(args[0])
			if err != nil {
				return err
			}
			cmd.Println(hash)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(version.String())
			return nil
		},
	}
}
