package main

import (
	"fmt"

	"github.com/aretw0/cohort/internal/cli"
	"github.com/spf13/cobra"
)

var segmentCmd = &cobra.Command{
	Use:   "segment <experiment>",
	Short: "Segment the user into an experiment and print the assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		snap, err := app.Segment(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return cli.WriteJSON(cmd.OutOrStdout(), snap)
	},
}

var startCmd = &cobra.Command{
	Use:   "start <experiment> [args...]",
	Short: "Run the action of the assigned variant",
	Long:  `Runs the start handlers and the action of the stored variant. Does nothing when the user is not segmented.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		return app.Start(cmd.Context(), args[0], args[1:])
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <experiment>",
	Short: "Record a conversion and clear the stored assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		cleared, err := app.Complete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if cleared == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s completed (no assignment)\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s completed on %s\n", args[0], cleared.VariantID)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <experiment>",
	Short: "Print the stored state of an experiment without segmenting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		snap, err := app.Inspector().Experiment(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("%w: %s", cli.ErrUnknownExperiment, args[0])
		}
		return cli.WriteJSON(cmd.OutOrStdout(), snap)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <experiment>...",
	Short: "Remove stored assignments (and optionally the user identity)",
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, _ := cmd.Flags().GetBool("identity")
		if len(args) == 0 && !identity {
			return fmt.Errorf("nothing to reset: name an experiment or pass --identity")
		}

		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		return app.Reset(cmd.Context(), args, identity)
	},
}

func init() {
	resetCmd.Flags().Bool("identity", false, "Also remove the user identity")

	rootCmd.AddCommand(segmentCmd, startCmd, completeCmd, statusCmd, resetCmd)
}
