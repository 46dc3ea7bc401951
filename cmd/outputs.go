package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/waydo/internal/ui"
	"github.com/bnema/waydo/internal/wayland"
	"github.com/spf13/cobra"
)

var outputsJSON bool

type outputsReport struct {
	Outputs []wayland.Output `json:"outputs"`
	Width   uint32           `json:"width"`
	Height  uint32           `json:"height"`
}

var outputsCmd = &cobra.Command{
	Use:   "outputs",
	Short: "List outputs and the absolute pointer extent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		conn, err := wayland.Connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		w, h := conn.BoundingExtent()
		report := outputsReport{Outputs: conn.Outputs().Outputs(), Width: w, Height: h}

		out := cmd.OutOrStdout()
		if outputsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		if len(report.Outputs) == 0 {
			fmt.Fprintln(out, ui.FormatWarning("No outputs advertised by the compositor"))
			return nil
		}
		fmt.Fprintln(out, renderOutputs(report))
		return nil
	},
}

func renderOutputs(r outputsReport) string {
	rows := make([][]string, 0, len(r.Outputs))
	for _, o := range r.Outputs {
		name := o.Name
		if name == "" {
			name = fmt.Sprintf("wl_output#%d", o.Handle)
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d,%d", o.X, o.Y),
			fmt.Sprintf("%dx%d", o.Width, o.Height),
		})
	}
	return ui.RenderTable([]string{"Output", "Position", "Size"}, rows) + "\n" +
		ui.FormatKeyValue("Extent", 8, fmt.Sprintf("%dx%d", r.Width, r.Height))
}

func init() {
	outputsCmd.Flags().BoolVar(&outputsJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(outputsCmd)
}
