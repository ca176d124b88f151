// Package aggregate reduces annotated rows into dataset-level KPIs,
// chart-ready daily and geographic projections, and a plain-text report. All
// functions here are pure: they read rows and annotations aligned by index
// and never mutate either.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jlenoir/go-order-audit/internal/models"
)

// Summarize computes the dataset KPIs. Revenue sums each row's revenue
// contribution, the anomaly rate is the flagged-row percentage, and the
// quality score is 100 times one minus the mean anomaly score. An empty
// dataset yields zero revenue, a zero anomaly rate, and a quality score of
// 100.
func Summarize(rows []models.Row, anns []models.RowAnnotation) models.DatasetSummary {
	summary := models.DatasetSummary{OrderCount: len(rows)}
	if len(rows) == 0 {
		summary.QualityScore = 100
		return summary
	}

	flagged := 0
	scoreSum := 0.0
	for i, row := range rows {
		summary.Revenue += row.RevenueContribution()
		scoreSum += anns[i].Score
		if anns[i].Flagged() {
			flagged++
		}
	}

	n := float64(len(rows))
	summary.AnomalyRatePct = 100 * float64(flagged) / n
	summary.QualityScore = 100 * (1 - scoreSum/n)
	return summary
}

// Project derives the chart-ready views: the daily revenue and anomaly-count
// series aligned on sorted calendar-date buckets, and the full day-by-country
// anomaly heatmap grid. Rows without a parseable date land in the invalid
// bucket and rows without a country in the unknown bucket, so every row is
// represented somewhere.
func Project(rows []models.Row, anns []models.RowAnnotation) models.ChartProjection {
	dayRevenue := make(map[string]float64)
	dayAnomalies := make(map[string]int)
	countrySet := make(map[string]bool)
	cellCounts := make(map[string]map[string]int)

	for i, row := range rows {
		day := row.DateKey()
		country := row.CountryKey()
		dayRevenue[day] += row.RevenueContribution()
		countrySet[country] = true

		if anns[i].Flagged() {
			dayAnomalies[day]++
			if cellCounts[country] == nil {
				cellCounts[country] = make(map[string]int)
			}
			cellCounts[country][day]++
		}
	}

	days := make([]string, 0, len(dayRevenue))
	for day := range dayRevenue {
		days = append(days, day)
	}
	sort.Strings(days)

	countries := make([]string, 0, len(countrySet))
	for country := range countrySet {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	proj := models.ChartProjection{
		Days:              days,
		DailyRevenue:      make([]float64, len(days)),
		DailyAnomalyCount: make([]int, len(days)),
		Countries:         countries,
	}
	for i, day := range days {
		proj.DailyRevenue[i] = round2(dayRevenue[day])
		proj.DailyAnomalyCount[i] = dayAnomalies[day]
	}

	// Zero-count cells are emitted so consumers get the full grid.
	proj.HeatmapCells = make([]models.HeatmapCell, 0, len(countries)*len(days))
	for ci, country := range countries {
		for di, day := range days {
			proj.HeatmapCells = append(proj.HeatmapCells, models.HeatmapCell{
				DayIndex:     di,
				CountryIndex: ci,
				Count:        cellCounts[country][day],
			})
		}
	}

	return proj
}

// reasonCount pairs a reason string with its occurrence count for ranking.
type reasonCount struct {
	reason string
	count  int
}

// topReasonLimit caps the reasons listed in the text report.
const topReasonLimit = 8

// Report renders a plain-text audit summary: row and flag counts, the most
// frequent reasons ranked by count with ties broken alphabetically, and a
// fixed recommendations block.
func Report(rows []models.Row, anns []models.RowAnnotation) string {
	counts := make(map[string]int)
	flagged := 0
	for _, ann := range anns {
		if ann.Flagged() {
			flagged++
		}
		for _, reason := range ann.Reasons {
			counts[reason]++
		}
	}

	ranked := make([]reasonCount, 0, len(counts))
	for reason, count := range counts {
		ranked = append(ranked, reasonCount{reason, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].reason < ranked[j].reason
	})
	if len(ranked) > topReasonLimit {
		ranked = ranked[:topReasonLimit]
	}

	pct := 0.0
	if len(rows) > 0 {
		pct = 100 * float64(flagged) / float64(len(rows))
	}

	var b strings.Builder
	b.WriteString("ORDER AUDIT REPORT\n")
	b.WriteString("==================\n\n")
	fmt.Fprintf(&b, "Rows analyzed:  %d\n", len(rows))
	fmt.Fprintf(&b, "Rows flagged:   %d (%.1f%%)\n\n", flagged, pct)

	b.WriteString("Top anomaly reasons:\n")
	if len(ranked) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, rc := range ranked {
		fmt.Fprintf(&b, "  %4d  %s\n", rc.count, rc.reason)
	}

	b.WriteString("\nRecommendations:\n")
	b.WriteString("  - Review flagged rows before importing into downstream systems.\n")
	b.WriteString("  - Fix source-side formatting issues (whitespace, dates, emails) at export time.\n")
	b.WriteString("  - Investigate products with recurring price outliers for catalog errors.\n")

	return b.String()
}

// round2 rounds to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
