// Package models provides the canonical data structures for the order audit
// pipeline. This package contains the raw and normalized row representations,
// per-product robust statistics, row-level annotations, and the derived
// dataset-level views consumed by reporting collaborators.
package models

import (
	"fmt"
	"math"
	"time"
)

// RawRecord represents one untyped input line as a mapping of column name to
// raw cell text. RawRecords are ephemeral: produced by ingestion, consumed by
// normalization, and never retained afterwards.
type RawRecord map[string]string

// RequiredColumns is the fixed set of columns an input export must provide.
// Header order does not matter and extra columns are ignored.
var RequiredColumns = []string{
	"order_id",
	"order_date",
	"customer_id",
	"customer_email",
	"product_name",
	"category",
	"price",
	"quantity",
	"total_amount",
	"country",
	"payment_method",
	"order_status",
}

// Bucket labels used by the aggregator for rows whose date or country could
// not be normalized.
const (
	InvalidDateBucket    = "invalid"
	UnknownCountryBucket = "unknown"
)

// Row is the canonical normalized order row. A Row is created once per
// distinct order identifier, is immutable after normalization, and is owned
// by the pipeline run that created it.
//
// Numeric fields use NaN as the non-finite sentinel for unparsable input:
// malformed values are propagated, not defaulted, so downstream rules can
// flag them. Quantity is kept as float64 for the same reason even though it
// is rounded to the nearest integer when finite.
type Row struct {
	OrderID       string    `json:"order_id"`
	OrderDate     time.Time `json:"order_date"`
	HasDate       bool      `json:"has_date"`
	CustomerID    string    `json:"customer_id"`
	CustomerEmail string    `json:"customer_email"`
	CustomerAge   float64   `json:"customer_age"`
	ProductName   string    `json:"product_name"`
	Category      string    `json:"category"`
	Price         float64   `json:"price"`
	Quantity      float64   `json:"quantity"`
	TotalAmount   float64   `json:"total_amount"`
	Country       string    `json:"country"`
	PaymentMethod string    `json:"payment_method"`
	OrderStatus   string    `json:"order_status"`

	// DirtyFields lists the whitespace-sensitive fields (payment_method,
	// category) that carried leading/trailing whitespace or an internal run
	// of two or more whitespace characters before normalization cleaned
	// them. The whitespace rule fires from this pre-trim evidence.
	DirtyFields []string `json:"dirty_fields,omitempty"`
}

// DateKey returns the ISO calendar-date bucket for the row, or the literal
// invalid bucket when the order date could not be parsed.
func (r Row) DateKey() string {
	if !r.HasDate {
		return InvalidDateBucket
	}
	return r.OrderDate.UTC().Format("2006-01-02")
}

// CountryKey returns the country bucket for the row, substituting the
// unknown bucket for an empty country.
func (r Row) CountryKey() string {
	if r.Country == "" {
		return UnknownCountryBucket
	}
	return r.Country
}

// RevenueContribution returns the amount this row contributes to revenue:
// the total amount when finite, otherwise price times quantity when both are
// finite, otherwise zero. The dataset KPI and the daily revenue series both
// use this function so they reconcile exactly.
func (r Row) RevenueContribution() float64 {
	if IsFinite(r.TotalAmount) {
		return r.TotalAmount
	}
	if IsFinite(r.Price) && IsFinite(r.Quantity) {
		return r.Price * r.Quantity
	}
	return 0
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ProductStats holds the robust per-product statistics computed by the
// profiler: median and median absolute deviation of price, and the quantity
// quartiles. Stats are recomputed on every run from the full row set and are
// not retained across runs.
type ProductStats struct {
	MedianPrice float64 `json:"median_price"`
	MADPrice    float64 `json:"mad_price"`
	QuantityQ1  float64 `json:"quantity_q1"`
	QuantityQ3  float64 `json:"quantity_q3"`
}

// QuantityIQR returns the interquartile range of the quantity distribution,
// substituting 1 when the range is zero or undefined so that derived bounds
// stay finite.
func (s ProductStats) QuantityIQR() float64 {
	iqr := s.QuantityQ3 - s.QuantityQ1
	if iqr == 0 || math.IsNaN(iqr) {
		return 1
	}
	return iqr
}

// QuantityBounds returns the [lo, hi] acceptance interval for quantities of
// this product given an IQR multiplier.
func (s ProductStats) QuantityBounds(factor float64) (lo, hi float64) {
	iqr := s.QuantityIQR()
	return s.QuantityQ1 - factor*iqr, s.QuantityQ3 + factor*iqr
}

// RowAnnotation carries the rule engine's verdict for one row: the ordered
// human-readable reasons and the bounded anomaly score. Annotations are
// one-to-one with rows and never modified after the engine completes a pass.
type RowAnnotation struct {
	OrderID string   `json:"order_id"`
	Reasons []string `json:"reasons"`
	Score   float64  `json:"score"`
}

// Flagged reports whether the row accumulated at least one reason.
func (a RowAnnotation) Flagged() bool {
	return len(a.Reasons) > 0
}

// DatasetSummary holds the dataset-level KPIs derived by the aggregator.
type DatasetSummary struct {
	Revenue        float64 `json:"revenue"`
	OrderCount     int     `json:"order_count"`
	AnomalyRatePct float64 `json:"anomaly_rate_pct"`
	QualityScore   float64 `json:"quality_score"`
}

// HeatmapCell is one cell of the day-by-country anomaly matrix. Cells with a
// zero count are still emitted so consumers can assume full grid coverage.
type HeatmapCell struct {
	DayIndex     int `json:"day_index"`
	CountryIndex int `json:"country_index"`
	Count        int `json:"count"`
}

// ChartProjection holds the chart-ready views derived by the aggregator.
// Days are ISO calendar-date strings sorted lexicographically (equivalent to
// chronological order), with the invalid bucket sorting among them; the
// revenue and anomaly series are aligned with Days, and HeatmapCells covers
// the full Days x Countries grid.
type ChartProjection struct {
	Days              []string      `json:"days"`
	DailyRevenue      []float64     `json:"daily_revenue"`
	DailyAnomalyCount []int         `json:"daily_anomaly_count"`
	Countries         []string      `json:"countries"`
	HeatmapCells      []HeatmapCell `json:"heatmap_cells"`
}

// String implements fmt.Stringer for diagnostics.
func (r Row) String() string {
	return fmt.Sprintf("Row{OrderID: %s, Product: %s, Price: %g, Quantity: %g, Country: %s}",
		r.OrderID, r.ProductName, r.Price, r.Quantity, r.Country)
}
