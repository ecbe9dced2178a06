// Task 5.1: build, docs, compose, templates — distribution artifacts.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/stackd/internal/domain/composegen"
	"github.com/matiasleandrokruk/stackd/internal/domain/distro"
	"github.com/matiasleandrokruk/stackd/internal/domain/docgen"
)

func newBuildCmd() *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:   "build <template|manifest.yaml>",
		Short: "Write a distribution's run.yaml and doc.md into a directory",
		Args:  cobra.ExactArgs(1),
		Example: "  stackd build ollama --dest ./ollama-distro\n" +
			"  stackd build run.yaml --dest ./my-distro",
		RunE: func(cmd *cobra.Command, args []string) error {
			if destDir == "" {
				destDir = args[0] + "-distro"
			}

			// Built-in templates keep their raw bytes (env references
			// intact); file manifests are re-validated before copying.
			for _, d := range distro.List() {
				if d.Name == args[0] {
					if err := distro.Build(args[0], destDir); err != nil {
						return err
					}
					cmd.Printf("wrote %s and %s\n",
						filepath.Join(destDir, "run.yaml"), filepath.Join(destDir, "doc.md"))
					return nil
				}
			}

			raw, m, err := loadManifestArg(args[0])
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return err
			}
			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return err
			}
			runPath := filepath.Join(destDir, "run.yaml")
			if err := os.WriteFile(runPath, raw, 0o644); err != nil {
				return err
			}
			docPath := filepath.Join(destDir, "doc.md")
			if err := os.WriteFile(docPath, []byte(docgen.Render(m, raw)), 0o644); err != nil {
				return err
			}
			cmd.Printf("wrote %s and %s\n", runPath, docPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&destDir, "dest", "", "Destination directory (defaults <name>-distro)")
	return cmd
}

func newDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "docs <template|manifest.yaml>",
		Short:   "Render the documentation page for a distribution",
		Args:    cobra.ExactArgs(1),
		Example: "  stackd docs tgi",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, m, err := loadManifestArg(args[0])
			if err != nil {
				return err
			}
			cmd.Print(docgen.Render(m, raw))
			return nil
		},
	}
}

func newComposeCmd() *cobra.Command {
	var (
		backend    string
		image      string
		gpus       int
		deviceIDs  []string
		delay      time.Duration
		volume     string
		output     string
		runYAMLRef string
	)

	cmd := &cobra.Command{
		Use:   "compose <template|manifest.yaml>",
		Short: "Generate a docker-compose deployment for a distribution",
		Args:  cobra.ExactArgs(1),
		Example: "  stackd compose tgi --backend tgi --gpus 1\n" +
			"  stackd compose run.yaml --backend ollama --delay 30s -o compose.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, m, err := loadManifestArg(args[0])
			if err != nil {
				return err
			}

			out, err := composegen.Generate(m, raw, composegen.Options{
				Backend:      backend,
				Image:        image,
				GPUCount:     gpus,
				DeviceIDs:    deviceIDs,
				StartupDelay: delay,
				VolumeName:   volume,
				ManifestPath: runYAMLRef,
			})
			if err != nil {
				return err
			}

			if output == "" {
				cmd.Print(string(out))
				return nil
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", composegen.BackendTGI, "Inference backend: tgi|ollama|vllm")
	cmd.Flags().StringVar(&image, "image", "", "Backend image override")
	cmd.Flags().IntVar(&gpus, "gpus", 0, "GPU count reservation")
	cmd.Flags().StringSliceVar(&deviceIDs, "device-ids", nil, "Explicit GPU device ids")
	cmd.Flags().DurationVar(&delay, "delay", 0, fmt.Sprintf("Stack server startup delay (default %s)", composegen.DefaultStartupDelay))
	cmd.Flags().StringVar(&volume, "volume", "", "Named volume for model/cache persistence")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().StringVar(&runYAMLRef, "manifest-path", "", "Host path of run.yaml mounted into the stack server")
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	templates := &cobra.Command{
		Use:   "templates",
		Short: "Inspect built-in distribution templates",
	}

	list := &cobra.Command{
		Use:     "list",
		Short:   "List built-in distributions",
		Example: "  stackd templates list",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, d := range distro.List() {
				cmd.Printf("%-16s %s\n", d.Name, d.Description)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:     "show <name>",
		Short:   "Print a built-in distribution's manifest",
		Args:    cobra.ExactArgs(1),
		Example: "  stackd templates show remote-vllm",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _, err := distro.Get(args[0])
			if err != nil {
				return err
			}
			cmd.Print(string(raw))
			return nil
		},
	}

	templates.AddCommand(list, show)
	return templates
}
