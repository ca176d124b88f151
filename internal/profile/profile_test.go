package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlenoir/go-order-audit/internal/models"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
		nan      bool
	}{
		{name: "odd count", values: []float64{3, 1, 2}, expected: 2},
		{name: "even count averages middle pair", values: []float64{4, 1, 3, 2}, expected: 2.5},
		{name: "single value", values: []float64{7}, expected: 7},
		{name: "ignores non-finite values", values: []float64{1, math.NaN(), 3, math.Inf(1)}, expected: 2},
		{name: "empty is NaN", values: nil, nan: true},
		{name: "all NaN is NaN", values: []float64{math.NaN(), math.NaN()}, nan: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Median(tt.values)
			if tt.nan {
				assert.True(t, math.IsNaN(got))
			} else {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestMAD(t *testing.T) {
	// Median 10, absolute deviations {0, 0, 0, 90}, median of those is 0.
	assert.Equal(t, 0.0, MAD([]float64{10, 10, 10, 100}))

	// Median 14, deviations {4, 2, 0, 2, 86} -> sorted {0, 2, 2, 4, 86}.
	assert.Equal(t, 2.0, MAD([]float64{10, 12, 14, 16, 100}))

	assert.True(t, math.IsNaN(MAD(nil)))
}

func TestQuantile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	assert.InDelta(t, 2.75, Quantile(values, 0.25), 1e-12)
	assert.InDelta(t, 6.25, Quantile(values, 0.75), 1e-12)
	assert.InDelta(t, 4.5, Quantile(values, 0.5), 1e-12)
	assert.Equal(t, 1.0, Quantile(values, 0))
	assert.Equal(t, 8.0, Quantile(values, 1))

	assert.Equal(t, 5.0, Quantile([]float64{5}, 0.75))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestComputeZeroMADSubstitution(t *testing.T) {
	rows := []models.Row{
		{ProductName: "Widget", Price: 10, Quantity: 1},
		{ProductName: "Widget", Price: 10, Quantity: 2},
		{ProductName: "Widget", Price: 10, Quantity: 3},
		{ProductName: "Widget", Price: 100, Quantity: 4},
	}

	stats := Compute(rows)
	require.Contains(t, stats, "Widget")

	st := stats["Widget"]
	assert.Equal(t, 10.0, st.MedianPrice)
	assert.Equal(t, 1e-9, st.MADPrice, "zero MAD is replaced by the epsilon")
}

func TestComputeQuantityBounds(t *testing.T) {
	rows := make([]models.Row, 8)
	for i := range rows {
		rows[i] = models.Row{ProductName: "Widget", Price: 10, Quantity: float64(i + 1)}
	}

	stats := Compute(rows)
	st := stats["Widget"]

	assert.InDelta(t, 2.75, st.QuantityQ1, 1e-12)
	assert.InDelta(t, 6.25, st.QuantityQ3, 1e-12)

	lo, hi := st.QuantityBounds(1.5)
	assert.InDelta(t, -2.5, lo, 1e-12)
	assert.InDelta(t, 11.5, hi, 1e-12)
}

func TestComputeSingleRowProduct(t *testing.T) {
	stats := Compute([]models.Row{{ProductName: "Lone", Price: 42, Quantity: 3}})
	st := stats["Lone"]

	assert.Equal(t, 42.0, st.MedianPrice)
	assert.Equal(t, 1e-9, st.MADPrice)
	assert.Equal(t, 3.0, st.QuantityQ1)
	assert.Equal(t, 3.0, st.QuantityQ3)
	assert.Equal(t, 1.0, st.QuantityIQR(), "degenerate IQR substitutes 1")
}

func TestComputeParallelMatchesSerial(t *testing.T) {
	var rows []models.Row
	products := []string{"A", "B", "C", "D", "E"}
	for i := 0; i < 100; i++ {
		rows = append(rows, models.Row{
			ProductName: products[i%len(products)],
			Price:       float64(i%13) * 3.5,
			Quantity:    float64(i % 7),
		})
	}

	serial := Compute(rows)
	for _, workers := range []int{2, 4, 16} {
		assert.Equal(t, serial, ComputeParallel(rows, workers), "workers=%d", workers)
	}
}

func TestComputeParallelFallsBackToSerial(t *testing.T) {
	rows := []models.Row{{ProductName: "Widget", Price: 10, Quantity: 1}}
	assert.Equal(t, Compute(rows), ComputeParallel(rows, 8))
	assert.Equal(t, Compute(rows), ComputeParallel(rows, 0))
}

func TestComputeEmptyRows(t *testing.T) {
	assert.Empty(t, Compute(nil))
	assert.Empty(t, ComputeParallel(nil, 4))
}
