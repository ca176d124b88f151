// Package export writes the cleaned dataset back out as delimited text. The
// cleaned export re-derives each row's total from price and quantity with
// decimal arithmetic, carries the anomaly verdicts alongside the data, and
// renders non-finite numerics as empty cells rather than NaN text.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jlenoir/go-order-audit/internal/models"
)

// cleanHeader is the column set of the cleaned export: the canonical input
// columns plus the two audit columns.
var cleanHeader = []string{
	"order_id",
	"order_date",
	"customer_id",
	"customer_email",
	"customer_age",
	"product_name",
	"category",
	"price",
	"quantity",
	"total_amount",
	"country",
	"payment_method",
	"order_status",
	"anomaly_score",
	"anomaly_reasons",
}

// CleanCSV writes rows and their annotations as a cleaned delimited export.
// Totals are recomputed as price times quantity rounded to two decimals using
// decimal arithmetic when both operands are finite; otherwise the original
// total is kept when finite and the cell is left at zero when not. Reasons
// are joined with a semicolon separator.
func CleanCSV(w io.Writer, rows []models.Row, anns []models.RowAnnotation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cleanHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		date := ""
		if row.HasDate {
			date = row.OrderDate.UTC().Format("2006-01-02")
		}

		record := []string{
			row.OrderID,
			date,
			row.CustomerID,
			row.CustomerEmail,
			formatNumber(row.CustomerAge),
			row.ProductName,
			row.Category,
			formatNumber(row.Price),
			formatNumber(row.Quantity),
			formatNumber(cleanTotal(row)),
			row.Country,
			row.PaymentMethod,
			row.OrderStatus,
			strconv.FormatFloat(anns[i].Score, 'f', -1, 64),
			strings.Join(anns[i].Reasons, "; "),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.OrderID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Template writes an empty import template: the canonical header plus one
// example row demonstrating the expected formats.
func Template(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{
		"order_id", "order_date", "customer_id", "customer_email", "customer_age",
		"product_name", "category", "price", "quantity", "total_amount",
		"country", "payment_method", "order_status",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	example := []string{
		"ORD10001", "2024-01-15", "CUST0001", "user@example.com", "32",
		"Sample Product", "Electronics", "199.99", "2", "399.98",
		"France", "Credit Card", "Delivered",
	}
	if err := cw.Write(example); err != nil {
		return fmt.Errorf("write example row: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// cleanTotal recomputes the row total from price and quantity, rounded to two
// decimals, falling back to the original total when the operands are not both
// finite.
func cleanTotal(row models.Row) float64 {
	if models.IsFinite(row.Price) && models.IsFinite(row.Quantity) {
		total := decimal.NewFromFloat(row.Price).
			Mul(decimal.NewFromFloat(row.Quantity)).
			Round(2)
		f, _ := total.Float64()
		return f
	}
	if models.IsFinite(row.TotalAmount) {
		return row.TotalAmount
	}
	return 0
}

// formatNumber renders a finite value without trailing zeros and a non-finite
// value as an empty cell.
func formatNumber(v float64) string {
	if !models.IsFinite(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
