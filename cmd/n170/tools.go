package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"n170/engine"
)

func newTrialsCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "trials",
		Short: "Build a randomized trial table without presenting it",
		Long: `Build the trial order exactly as a session would and write it as CSV.
The table can be replayed with "n170 run --trials <file>".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			plan, err := engine.NewPlan(cfg, newRand(opts.seed))
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := engine.WriteTrialTable(w, plan); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d trials (%d face, %d house), %d fixation changes\n",
				len(plan.Trials), plan.Count(engine.Face), plan.Count(engine.House), len(plan.FixChanges))
			return nil
		},
	}
	addPlanFlags(cmd, opts)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports available for triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := engine.ListPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
