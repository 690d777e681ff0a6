package main

import (
	"os"

	"github.com/aretw0/cohort"
	"github.com/aretw0/cohort/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the identity and every experiment's stored state",
	RunE: func(cmd *cobra.Command, args []string) error {
		pretty, _ := cmd.Flags().GetBool("pretty")
		if !cmd.Flags().Changed("pretty") {
			pretty = tui.IsTerminal(os.Stdout)
		}

		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if pretty {
			tui.PrintBanner(cmd.OutOrStdout(), cohort.Version)
		}
		return app.Inspect(cmd.Context(), cmd.OutOrStdout(), pretty)
	},
}

func init() {
	inspectCmd.Flags().Bool("pretty", false, "Render a markdown report (default when stdout is a terminal)")
	rootCmd.AddCommand(inspectCmd)
}
