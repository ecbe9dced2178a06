// Task 5.1: Cobra command tree and persistent flags.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/stackd/internal/infra/config"
	"github.com/matiasleandrokruk/stackd/internal/infra/logging"
)

// cliState is shared by every subcommand: resolved settings plus the
// process logger built from them.
type cliState struct {
	settings config.Settings
	log      zerolog.Logger
}

func buildRootCmd() *cobra.Command {
	state := &cliState{settings: config.Load(), log: logging.Nop()}

	root := &cobra.Command{
		Use:           "stackd",
		Short:         "Distribution tooling and control plane for LLM stack manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error (defaults STACKD_LOG_LEVEL or info)")
	root.PersistentFlags().String("log-format", "", "Log format: console|json (defaults STACKD_LOG_FORMAT or console)")
	root.PersistentFlags().String("env-file", "", "dotenv file loaded before manifest resolution")
	root.PersistentFlags().String("config", "", "stackd settings file (.yaml/.json/.toml)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			settings, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			state.settings = settings
		}
		if v, _ := cmd.Flags().GetString("log-level"); v != "" {
			state.settings.LogLevel = v
		}
		if v, _ := cmd.Flags().GetString("log-format"); v != "" {
			state.settings.LogFormat = v
		}
		if path, _ := cmd.Flags().GetString("env-file"); path != "" {
			if err := config.LoadEnvFile(path); err != nil {
				return err
			}
		}
		state.log = logging.New(os.Stderr, state.settings.LogLevel, state.settings.LogFormat)
		return nil
	}

	root.AddCommand(
		newServeCmd(state),
		newValidateCmd(),
		newResolveCmd(),
		newBuildCmd(),
		newDocsCmd(),
		newComposeCmd(),
		newDoctorCmd(),
		newTemplatesCmd(),
		newProvidersCmd(),
		newHashKeyCmd(),
		newVersionCmd(),
	)
	return root
}
