// Package profile computes robust per-product statistics over normalized
// rows: median and median absolute deviation for price, and quartile-based
// bounds for quantity. These statistics are the only bridge between rows of
// the same product; they are recomputed from scratch on every run and never
// retained across runs.
package profile

import (
	"math"
	"sort"
	"sync"

	"github.com/jlenoir/go-order-audit/internal/models"
)

// madEpsilon replaces a zero MAD so the robust z-score denominator stays
// positive.
const madEpsilon = 1e-9

// Stats maps product name to its computed statistics.
type Stats map[string]models.ProductStats

// group holds the raw per-product samples collected before computation.
type group struct {
	prices     []float64
	quantities []float64
}

// Compute derives per-product statistics serially. A product with a single
// row still receives a degenerate median/MAD/quartile set.
func Compute(rows []models.Row) Stats {
	groups := collect(rows)
	stats := make(Stats, len(groups))
	for product, g := range groups {
		stats[product] = computeOne(g)
	}
	return stats
}

// ComputeParallel derives the same statistics as Compute using a bounded
// pool of workers sharded by product. Each product's computation is
// independent; the WaitGroup acts as the barrier the rule engine requires
// before reading stats. Output is identical to the serial path.
func ComputeParallel(rows []models.Row, workers int) Stats {
	groups := collect(rows)
	if workers <= 1 || len(groups) < 2 {
		stats := make(Stats, len(groups))
		for product, g := range groups {
			stats[product] = computeOne(g)
		}
		return stats
	}

	jobs := make(chan string, len(groups))
	for product := range groups {
		jobs <- product
	}
	close(jobs)

	stats := make(Stats, len(groups))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for product := range jobs {
				st := computeOne(groups[product])
				mu.Lock()
				stats[product] = st
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return stats
}

// collect groups price and quantity samples by product name.
func collect(rows []models.Row) map[string]*group {
	groups := make(map[string]*group)
	for _, row := range rows {
		g, ok := groups[row.ProductName]
		if !ok {
			g = &group{}
			groups[row.ProductName] = g
		}
		g.prices = append(g.prices, row.Price)
		g.quantities = append(g.quantities, row.Quantity)
	}
	return groups
}

// computeOne derives the statistics for one product group.
func computeOne(g *group) models.ProductStats {
	med := Median(g.prices)
	mad := MAD(g.prices)
	if !(mad > 0) {
		mad = madEpsilon
	}
	return models.ProductStats{
		MedianPrice: med,
		MADPrice:    mad,
		QuantityQ1:  Quantile(g.quantities, 0.25),
		QuantityQ3:  Quantile(g.quantities, 0.75),
	}
}

// Median returns the standard median of the finite values, averaging the two
// middle values for even counts. It returns NaN when no finite value exists.
func Median(values []float64) float64 {
	a := finiteSorted(values)
	n := len(a)
	if n == 0 {
		return math.NaN()
	}
	mid := n / 2
	if n%2 == 1 {
		return a[mid]
	}
	return (a[mid-1] + a[mid]) / 2
}

// MAD returns the median absolute deviation from the median over the finite
// values. It returns NaN when no finite value exists.
func MAD(values []float64) float64 {
	med := Median(values)
	var dev []float64
	for _, v := range values {
		if models.IsFinite(v) {
			dev = append(dev, math.Abs(v-med))
		}
	}
	return Median(dev)
}

// Quantile estimates the q-quantile of the finite values using linear
// interpolation between ranks: position = (n-1)*q, interpolated between the
// floor and ceil ranks. It returns NaN when no finite value exists.
func Quantile(values []float64, q float64) float64 {
	a := finiteSorted(values)
	n := len(a)
	if n == 0 {
		return math.NaN()
	}
	pos := float64(n-1) * q
	base := int(math.Floor(pos))
	rest := pos - float64(base)
	if base+1 >= n {
		return a[n-1]
	}
	return a[base] + (a[base+1]-a[base])*rest
}

// finiteSorted returns the finite subset of values in ascending order.
func finiteSorted(values []float64) []float64 {
	a := make([]float64, 0, len(values))
	for _, v := range values {
		if models.IsFinite(v) {
			a = append(a, v)
		}
	}
	sort.Float64s(a)
	return a
}
