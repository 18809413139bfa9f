package main

import (
	"fmt"
	"os"

	"aodash/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Version will be set at build time
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	rootCmd := &cobra.Command{
		Use:          "aodash",
		Short:        "Live terminal dashboard for the Anarchy Online tracker state file",
		Long:         "aodash polls the JSON state file written by the game tracker and renders zone, experience, credits, combat, loot and chat as a live terminal dashboard.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(v)
			if err != nil {
				return err
			}
			return runDashboard(cmd.Context(), cfg)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(keyConfig, "", "config file (JSON or YAML); defaults to "+config.DefaultPath+" when present")
	flags.String(keyState, "", "path to the tracker state file (default "+config.DefaultStateFilePath+")")
	flags.String(keyUI, "", "presentation: auto, tview or headless")
	flags.Duration(keyInterval, 0, "poll interval, e.g. 500ms")
	flags.String(keySelf, "", "your character name, highlighted in chat")
	bindSettings(v, flags)

	rootCmd.AddCommand(
		newSnapshotCmd(v),
		newConfigCmd(v),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "aodash %s\n", Version)
			return err
		},
	}
}

func newConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(v)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// Purpose: Report whether stdout is a TTY for UI gating.
// Key aspects: Uses term.IsTerminal on stdout fd.
// Upstream: surface selection.
// Downstream: term.IsTerminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
