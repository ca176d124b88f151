package rules

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"

	"github.com/jlenoir/go-order-audit/internal/models"
	"github.com/jlenoir/go-order-audit/internal/profile"
)

// madScale converts a MAD into a consistent estimator of the standard
// deviation under normality.
const madScale = 1.4826

// zCandidateScale divides the robust z-score to form the price score
// candidate before clamping.
const zCandidateScale = 6.0

// emailPattern accepts addresses of the shape local@domain.tld with a TLD of
// at least two characters and no whitespace or extra @ anywhere.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

// Engine evaluates the configured rule set against normalized rows. An Engine
// is cheap to construct and holds no per-run state; Evaluate is a pure
// function of (rows, stats, config) and is deterministic for identical input.
type Engine struct {
	cfg     Config
	stats   profile.Stats
	allowed map[string]bool
	logger  *slog.Logger
}

// NewEngine builds an engine over the given configuration and per-product
// statistics. A nil logger disables engine logging.
func NewEngine(cfg Config, stats profile.Stats, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		cfg:     cfg,
		stats:   stats,
		allowed: cfg.allowedSet(),
		logger:  logger,
	}
}

// delta is one rule family's contribution to a single row: appended reasons
// plus score candidates and bumps. Deltas are merged per row after all
// families ran; merging is order-insensitive for the score and reason order
// follows family evaluation order.
type delta struct {
	reasons        []string
	priceCandidate float64
	qtyCandidate   float64
	negativeBump   float64
}

// Evaluate runs every enabled rule over the rows and returns one annotation
// per row, aligned by index. A row touched by no rule yields an annotation
// with no reasons and a zero score.
func (e *Engine) Evaluate(rows []models.Row) []models.RowAnnotation {
	deltas := make([]delta, len(rows))

	e.evaluatePrice(rows, deltas)
	e.evaluateQuantity(rows, deltas)
	e.evaluateFormat(rows, deltas)

	anns := make([]models.RowAnnotation, len(rows))
	flagged := 0
	for i, d := range deltas {
		score := math.Max(d.priceCandidate, d.qtyCandidate) + d.negativeBump
		if len(d.reasons) > 0 {
			score += e.cfg.FormatBump
		}
		anns[i] = models.RowAnnotation{
			OrderID: rows[i].OrderID,
			Reasons: d.reasons,
			Score:   round3(clamp01(score)),
		}
		if anns[i].Flagged() {
			flagged++
		}
	}

	e.logger.Debug("rule evaluation complete",
		slog.Int("rows", len(rows)),
		slog.Int("flagged", flagged))

	return anns
}

// evaluatePrice applies the negative-price and robust z-score rules. The
// z-score uses the scaled MAD of the row's product group; a non-finite price
// produces neither reason nor candidate here (the incoherent-total rule
// covers the arithmetic fallout).
func (e *Engine) evaluatePrice(rows []models.Row, deltas []delta) {
	negEnabled := e.cfg.Enabled(RulePriceNegative)
	zEnabled := e.cfg.Enabled(RulePriceRobustZ)
	if !negEnabled && !zEnabled {
		return
	}

	for i, row := range rows {
		if !models.IsFinite(row.Price) {
			continue
		}
		d := &deltas[i]

		if negEnabled && row.Price < 0 {
			d.reasons = append(d.reasons, "negative price")
			d.negativeBump = e.cfg.NegativePriceBump
		}

		if !zEnabled {
			continue
		}
		st, ok := e.stats[row.ProductName]
		if !ok {
			continue
		}
		z := math.Abs(row.Price-st.MedianPrice) / (madScale * st.MADPrice)
		if !models.IsFinite(z) {
			continue
		}
		if z > e.cfg.PriceZThreshold {
			d.reasons = append(d.reasons, fmt.Sprintf("price outlier (|z|=%.2f)", z))
		}
		d.priceCandidate = clamp01(z / zCandidateScale)
	}
}

// evaluateQuantity applies the non-positive and IQR-bounds rules. The bounds
// come from the row's product quartiles widened by the configured factor; the
// score candidate is the overshoot distance normalized by the interval width.
func (e *Engine) evaluateQuantity(rows []models.Row, deltas []delta) {
	posEnabled := e.cfg.Enabled(RuleQuantityNonPositive)
	iqrEnabled := e.cfg.Enabled(RuleQuantityIQR)
	if !posEnabled && !iqrEnabled {
		return
	}

	for i, row := range rows {
		if !models.IsFinite(row.Quantity) {
			continue
		}
		d := &deltas[i]

		if posEnabled && row.Quantity <= 0 {
			d.reasons = append(d.reasons, "non-positive quantity")
		}

		if !iqrEnabled {
			continue
		}
		st, ok := e.stats[row.ProductName]
		if !ok {
			continue
		}
		lo, hi := st.QuantityBounds(e.cfg.IQRFactor)
		if !models.IsFinite(lo) || !models.IsFinite(hi) {
			continue
		}
		if row.Quantity < lo || row.Quantity > hi {
			d.reasons = append(d.reasons, "quantity outside IQR bounds")
		}

		var dist float64
		switch {
		case row.Quantity < lo:
			dist = lo - row.Quantity
		case row.Quantity > hi:
			dist = row.Quantity - hi
		}
		if dist > 0 {
			d.qtyCandidate = clamp01(dist / math.Max(1, hi-lo))
		}
	}
}

// evaluateFormat applies the structural rules: duplicate identifiers, invalid
// dates, malformed emails, countries off the whitelist, pre-trim whitespace
// evidence, and incoherent totals.
func (e *Engine) evaluateFormat(rows []models.Row, deltas []delta) {
	dupEnabled := e.cfg.Enabled(RuleDuplicateOrderID)
	dateEnabled := e.cfg.Enabled(RuleInvalidDate)
	emailEnabled := e.cfg.Enabled(RuleInvalidEmail)
	countryEnabled := e.cfg.Enabled(RuleCountryWhitelist)
	wsEnabled := e.cfg.Enabled(RuleWhitespaceFields)
	totalEnabled := e.cfg.Enabled(RuleTotalIncoherent)

	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		d := &deltas[i]

		if dupEnabled {
			if seen[row.OrderID] {
				d.reasons = append(d.reasons, "duplicate order_id")
			}
			seen[row.OrderID] = true
		}

		if dateEnabled && !row.HasDate {
			d.reasons = append(d.reasons, "invalid date")
		}

		if emailEnabled && !emailPattern.MatchString(row.CustomerEmail) {
			d.reasons = append(d.reasons, "malformed email")
		}

		if countryEnabled && !e.allowed[row.Country] {
			d.reasons = append(d.reasons, fmt.Sprintf("suspect country: %s", row.Country))
		}

		if wsEnabled {
			for _, field := range row.DirtyFields {
				d.reasons = append(d.reasons, fmt.Sprintf("%s has stray whitespace", field))
			}
		}

		if totalEnabled && models.IsFinite(row.Price) && models.IsFinite(row.Quantity) && models.IsFinite(row.TotalAmount) {
			expected := round2(row.Price * row.Quantity)
			if math.Abs(row.TotalAmount-expected) > 0.01 {
				d.reasons = append(d.reasons, fmt.Sprintf("incoherent total_amount (expected %.2f)", expected))
			}
		}
	}
}

// clamp01 bounds v into [0, 1], treating NaN as 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// round2 rounds to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// round3 rounds to three decimal places, half away from zero.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
