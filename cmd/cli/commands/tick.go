package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyqueue/obs-scheduler/pkg/core/services"
)

// TickCmd creates the tick command
func TickCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick <timeslot>",
		Short: "Score and plan a single timeslot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeslot, err := strconv.Atoi(args[0])
			if err != nil || timeslot < 0 {
				return fmt.Errorf("timeslot must be a non-negative integer, got: %s", args[0])
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			app.Logger.Debug("tick command",
				zap.Int("timeslot", timeslot),
				zap.Bool("dry_run", dryRun))

			result, err := services.RunTick(app.Ctx, services.TickParams{
				Database:       app.Database,
				Table:          app.Table,
				Metrics:        app.Metrics,
				Logger:         app.Logger,
				Timeslot:       timeslot,
				TimeslotLength: app.Cfg.Schedule.TimeslotLength,
				DryRun:         dryRun,
			})
			if err != nil {
				return err
			}

			writeTick(os.Stdout, result)
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Run without recording used time")

	return cmd
}

func writeTick(w io.Writer, result *services.TickResult) {
	fmt.Fprintf(w, "\n✓ Timeslot %d ranked (run %s)\n\n", result.Timeslot, result.RunID)

	if len(result.Ranked) == 0 {
		fmt.Fprintln(w, "No observations to rank.")
		fmt.Fprintln(w)
		return
	}

	for _, r := range result.Ranked {
		site := "-"
		if r.Site != "" {
			site = r.Site
		}
		fmt.Fprintf(w, "  %3d. %s  -> %s\n", r.Rank, r.Description, site)
	}

	fmt.Fprintf(w, "\nScheduled %d observation(s), objective %.3f\n\n",
		len(result.Plan.Assignments), result.Plan.Objective)
}
