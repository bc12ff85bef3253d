package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyqueue/obs-scheduler/pkg/core/services"
	"github.com/skyqueue/obs-scheduler/pkg/db"
)

// ImportObservationsCmd creates the importObservations command
func ImportObservationsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "importObservations <file>",
		Short: "Import observations from a YAML file into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("importObservations command", zap.String("file", args[0]))

			records, err := db.LoadObservationsFile(args[0])
			if err != nil {
				return err
			}

			imported, err := services.ImportObservations(app.Ctx, app.Database, app.Table, app.Logger, records)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Imported %d observation(s)\n\n", len(imported))
			for _, o := range imported {
				fmt.Printf("  %s  band=%s allocated=%.0fs\n", o.ID, o.Band, o.AllocatedTime)
			}
			fmt.Println()

			return nil
		},
	}
}
