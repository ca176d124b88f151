package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jlenoir/go-order-audit/internal/models"
	"github.com/jlenoir/go-order-audit/internal/pipeline"
)

var (
	analyzeFormat string
	analyzeReport bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <input.csv>",
	Short: "Analyze an order export and print the audit results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		p := pipeline.New(cfg, log)
		result, err := p.Analyze(in)
		if err != nil {
			return err
		}

		switch analyzeFormat {
		case "json":
			if err := writeJSON(os.Stdout, result); err != nil {
				return err
			}
		case "table":
			writeTable(os.Stdout, result)
		default:
			return fmt.Errorf("unknown format %q (want table or json)", analyzeFormat)
		}

		if analyzeReport {
			fmt.Fprintln(os.Stdout)
			fmt.Fprint(os.Stdout, p.Report(result))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "table", "output format (table, json)")
	analyzeCmd.Flags().BoolVar(&analyzeReport, "report", false, "append the plain-text report")
	rootCmd.AddCommand(analyzeCmd)
}

// resultView is the JSON projection of a pipeline result. Row numerics use
// pointers so non-finite values serialize as null instead of breaking the
// encoder.
type resultView struct {
	RunID       string                 `json:"run_id"`
	Summary     models.DatasetSummary  `json:"summary"`
	Projection  models.ChartProjection `json:"projection"`
	Rows        []rowView              `json:"rows"`
	Annotations []models.RowAnnotation `json:"annotations"`
	ElapsedMS   int64                  `json:"elapsed_ms"`
}

type rowView struct {
	OrderID       string   `json:"order_id"`
	OrderDate     string   `json:"order_date,omitempty"`
	CustomerID    string   `json:"customer_id"`
	CustomerEmail string   `json:"customer_email"`
	CustomerAge   *float64 `json:"customer_age"`
	ProductName   string   `json:"product_name"`
	Category      string   `json:"category"`
	Price         *float64 `json:"price"`
	Quantity      *float64 `json:"quantity"`
	TotalAmount   *float64 `json:"total_amount"`
	Country       string   `json:"country"`
	PaymentMethod string   `json:"payment_method"`
	OrderStatus   string   `json:"order_status"`
}

func writeJSON(w *os.File, result *pipeline.Result) error {
	view := resultView{
		RunID:       result.RunID,
		Summary:     result.Summary,
		Projection:  result.Projection,
		Rows:        make([]rowView, len(result.Rows)),
		Annotations: result.Annotations,
		ElapsedMS:   result.Elapsed.Milliseconds(),
	}
	for i, row := range result.Rows {
		date := ""
		if row.HasDate {
			date = row.OrderDate.UTC().Format("2006-01-02")
		}
		view.Rows[i] = rowView{
			OrderID:       row.OrderID,
			OrderDate:     date,
			CustomerID:    row.CustomerID,
			CustomerEmail: row.CustomerEmail,
			CustomerAge:   finitePtr(row.CustomerAge),
			ProductName:   row.ProductName,
			Category:      row.Category,
			Price:         finitePtr(row.Price),
			Quantity:      finitePtr(row.Quantity),
			TotalAmount:   finitePtr(row.TotalAmount),
			Country:       row.Country,
			PaymentMethod: row.PaymentMethod,
			OrderStatus:   row.OrderStatus,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

// finitePtr returns a pointer to v when finite and nil otherwise.
func finitePtr(v float64) *float64 {
	if !models.IsFinite(v) {
		return nil
	}
	return &v
}

func writeTable(w *os.File, result *pipeline.Result) {
	fmt.Fprintf(w, "Run %s: %d rows, revenue %.2f, anomaly rate %.1f%%, quality %.1f\n\n",
		result.RunID,
		result.Summary.OrderCount,
		result.Summary.Revenue,
		result.Summary.AnomalyRatePct,
		result.Summary.QualityScore)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSCORE\tREASONS")
	for _, ann := range result.Annotations {
		if !ann.Flagged() {
			continue
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%s\n", ann.OrderID, ann.Score, strings.Join(ann.Reasons, "; "))
	}
	tw.Flush()
}
