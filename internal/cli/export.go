package cli

import (
	"github.com/spf13/cobra"

	"github.com/jlenoir/go-order-audit/internal/export"
	"github.com/jlenoir/go-order-audit/internal/pipeline"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <input.csv>",
	Short: "Analyze an order export and write the cleaned CSV",
	Long: `Runs the full audit pipeline and writes the cleaned dataset: normalized
fields, recomputed totals, and the anomaly score and reasons per row.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		result, err := pipeline.New(cfg, log).Analyze(in)
		if err != nil {
			return err
		}

		out, err := openOutput(exportOutput)
		if err != nil {
			return err
		}
		defer out.Close()

		return export.CleanCSV(out, result.Rows, result.Annotations)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
