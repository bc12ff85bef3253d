package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyqueue/obs-scheduler/pkg/core/services"
)

// ScheduleCmd creates the schedule command
func ScheduleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Score and plan every configured timeslot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			starts, err := app.Cfg.Schedule.TimeslotStarts()
			if err != nil {
				return err
			}

			app.Logger.Debug("schedule command",
				zap.Int("timeslots", len(starts)),
				zap.Bool("dry_run", dryRun))

			result, err := services.RunSchedule(app.Ctx, services.ScheduleParams{
				Tick: services.TickParams{
					Database:       app.Database,
					Table:          app.Table,
					Metrics:        app.Metrics,
					Logger:         app.Logger,
					TimeslotLength: app.Cfg.Schedule.TimeslotLength,
					DryRun:         dryRun,
				},
				TimeslotStarts: starts,
			})
			if err != nil {
				return err
			}

			writeSchedule(os.Stdout, result)
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Run without recording used time")

	return cmd
}

func writeSchedule(w io.Writer, result *services.ScheduleResult) {
	fmt.Fprintf(w, "\n✓ Schedule run %s complete (%d timeslots)\n\n", result.RunID, len(result.Ticks))

	for i, tick := range result.Ticks {
		fmt.Fprintf(w, "Timeslot %d  %s\n", tick.Timeslot, result.Starts[i].UTC().Format("2006-01-02 15:04"))

		if len(tick.Plan.Assignments) == 0 {
			fmt.Fprintln(w, "  nothing scheduled")
			continue
		}
		for _, a := range tick.Plan.Assignments {
			fmt.Fprintf(w, "  %-3s %s\n", a.Site, describeIndex(tick, int(a.Index)))
		}
	}
	fmt.Fprintln(w)
}

func describeIndex(tick *services.TickResult, idx int) string {
	for _, r := range tick.Ranked {
		if int(r.Index) == idx {
			return r.Description
		}
	}
	return fmt.Sprintf("observation %d", idx)
}
