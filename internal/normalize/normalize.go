// Package normalize coerces untyped raw records into canonical typed rows.
// Every string field is trimmed with internal whitespace runs collapsed,
// numeric fields use locale-tolerant parsing with NaN as the unparsable
// sentinel, dates are parsed under multiple accepted formats, and the row
// set is deduplicated by order identifier (first occurrence wins).
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jlenoir/go-order-audit/internal/models"
)

// Options configures normalization behavior.
type Options struct {
	// DeduplicateByOrderID drops later rows sharing an order identifier,
	// keeping the first occurrence in input order. It defaults to true;
	// disabling it hands duplicate detection entirely to the rule engine's
	// duplicate-order rule, which otherwise can never fire.
	DeduplicateByOrderID bool
}

// DefaultOptions returns the standard normalization options.
func DefaultOptions() Options {
	return Options{DeduplicateByOrderID: true}
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	// dirtyPattern matches leading/trailing whitespace or an internal run of
	// two or more whitespace characters, evaluated on the pre-trim value.
	dirtyPattern = regexp.MustCompile(`^\s|\s$|\s{2,}`)
	// dayFirstDate matches D/M/YYYY with an optional HH:MM suffix.
	dayFirstDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:\s+(\d{2}):(\d{2}))?$`)
)

// isoLayouts are tried in order before the day-first fallback.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Records normalizes a raw record sequence into canonical rows, applying
// per-record normalization followed by first-occurrence-wins deduplication
// when enabled. Running it over a sequence already free of duplicate
// identifiers is a no-op with respect to the row set.
func Records(records []models.RawRecord, opts Options) []models.Row {
	rows := make([]models.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, Record(rec))
	}
	if !opts.DeduplicateByOrderID {
		return rows
	}

	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, row := range rows {
		if seen[row.OrderID] {
			continue
		}
		seen[row.OrderID] = true
		out = append(out, row)
	}
	return out
}

// Record normalizes a single raw record into a canonical row.
func Record(rec models.RawRecord) models.Row {
	date, hasDate := ParseDate(rec["order_date"])

	row := models.Row{
		OrderID:       CleanText(rec["order_id"]),
		OrderDate:     date,
		HasDate:       hasDate,
		CustomerID:    CleanText(rec["customer_id"]),
		CustomerEmail: CleanText(rec["customer_email"]),
		CustomerAge:   ParseNumber(rec["customer_age"]),
		ProductName:   CleanText(rec["product_name"]),
		Category:      CleanText(rec["category"]),
		Price:         ParseNumber(rec["price"]),
		Quantity:      math.Round(ParseNumber(rec["quantity"])),
		TotalAmount:   ParseNumber(rec["total_amount"]),
		Country:       CleanText(rec["country"]),
		PaymentMethod: CleanText(rec["payment_method"]),
		OrderStatus:   CleanText(rec["order_status"]),
	}

	// Pre-trim whitespace evidence for the rule engine's whitespace rule;
	// the cleaned fields themselves can no longer carry it.
	for _, field := range []string{"payment_method", "category"} {
		if raw, ok := rec[field]; ok && raw != "" && dirtyPattern.MatchString(raw) {
			row.DirtyFields = append(row.DirtyFields, field)
		}
	}

	return row
}

// CleanText trims the value and collapses internal whitespace runs to a
// single space.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// ParseNumber parses a numeric field tolerating a comma decimal separator.
// Unparsable or infinite values become NaN so downstream rules can detect
// them; they are never defaulted to zero.
func ParseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// ParseDate parses an order date, trying the strict calendar layouts first
// and falling back to D/M/YYYY with an optional HH:MM suffix. All dates are
// interpreted in UTC. Failure is reported through the second return value,
// not an error: an absent date is an anomaly signal, not a fault.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	if m := dayFirstDate.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		hour, minute := 0, 0
		if m[4] != "" {
			hour, _ = strconv.Atoi(m[4])
			minute, _ = strconv.Atoi(m[5])
		}
		return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}
