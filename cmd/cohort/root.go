package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cohort/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cohort",
	Short: "cohort segments users into experiment variants and remembers the decision",
	Long: `cohort reads experiment definitions (experiments.yaml by default), allocates a stable
user identity and persists segmentation decisions in the store selected by COHORT_STORE.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "experiments.yaml", "Experiment definitions file (.yaml or .json)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// openApp builds the CLI application from the persistent flags and the environment.
func openApp(cmd *cobra.Command) (*cli.App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.NewApp(cli.Options{
		ConfigPath: configPath,
		Debug:      debug,
		Out:        cmd.OutOrStdout(),
	})
}
