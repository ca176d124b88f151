package cli

import (
	"github.com/spf13/cobra"

	"github.com/jlenoir/go-order-audit/internal/export"
)

var templateOutput string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write an empty import template with an example row",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := openOutput(templateOutput)
		if err != nil {
			return err
		}
		defer out.Close()

		return export.Template(out)
	},
}

func init() {
	templateCmd.Flags().StringVarP(&templateOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(templateCmd)
}
