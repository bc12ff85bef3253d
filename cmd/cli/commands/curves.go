package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
)

// CurvesCmd creates the curves command
func CurvesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "curves",
		Short: "Print the derived priority curve of every band",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("curves command")

			writeCurves(os.Stdout, app.Table)
			return nil
		},
	}
}

func writeCurves(w io.Writer, table *priority.Table) {
	fmt.Fprintf(w, "\nBand curves (derivation order %s)\n\n", bandList(table.Order()))
	fmt.Fprintf(w, "%-6s%10s%10s%10s%10s%8s%8s%8s%10s\n", "Band", "m1", "b1", "m2", "b2", "xb", "xb0", "xc0", "max")

	for _, band := range model.Bands {
		p := table.ParametersFor(band)
		fmt.Fprintf(w, "%-6s%10.4f%10.4f%10.4f%10.4f%8.3f%8.3f%8.3f%10.4f\n",
			band, p.M1, p.B1, p.M2, p.B2, p.XB, p.XB0, p.XC0, table.MaxPriority(band))
	}
	fmt.Fprintln(w)
}

func bandList(bands []model.Band) string {
	labels := make([]string, len(bands))
	for i, b := range bands {
		labels[i] = string(b)
	}
	return strings.Join(labels, " -> ")
}
