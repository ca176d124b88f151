package rules

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlenoir/go-order-audit/internal/models"
	"github.com/jlenoir/go-order-audit/internal/profile"
)

// cleanRow returns a row that no default rule flags.
func cleanRow(orderID string) models.Row {
	return models.Row{
		OrderID:       orderID,
		OrderDate:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		HasDate:       true,
		CustomerID:    "CUST1",
		CustomerEmail: "user@example.com",
		ProductName:   "Widget",
		Category:      "Electronics",
		Price:         10,
		Quantity:      2,
		TotalAmount:   20,
		Country:       "France",
		PaymentMethod: "Credit Card",
		OrderStatus:   "Delivered",
	}
}

func evaluate(t *testing.T, cfg Config, rows []models.Row) []models.RowAnnotation {
	t.Helper()
	engine := NewEngine(cfg, profile.Compute(rows), nil)
	anns := engine.Evaluate(rows)
	require.Len(t, anns, len(rows))
	return anns
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3.5, cfg.PriceZThreshold)
	assert.Equal(t, 0.3, cfg.NegativePriceBump)
	assert.Equal(t, 1.5, cfg.IQRFactor)
	assert.Equal(t, 0.2, cfg.FormatBump)
	assert.Contains(t, cfg.AllowedCountries, "France")
	assert.Contains(t, cfg.AllowedCountries, "Italia")
	for _, rule := range AllRules {
		assert.True(t, cfg.Enabled(rule), string(rule))
	}
}

func TestConfigEnabled(t *testing.T) {
	cfg := Config{Rules: map[RuleName]bool{RulePriceNegative: false}}

	assert.False(t, cfg.Enabled(RulePriceNegative), "explicit false disables")
	assert.True(t, cfg.Enabled(RuleInvalidDate), "absent key means enabled")
	assert.True(t, Config{}.Enabled(RulePriceRobustZ), "nil map means all enabled")
}

func TestCleanRowHasNoReasonsAndZeroScore(t *testing.T) {
	rows := []models.Row{cleanRow("ORD1"), cleanRow("ORD2")}
	rows[1].OrderID = "ORD2"

	anns := evaluate(t, DefaultConfig(), rows)
	for _, ann := range anns {
		assert.Empty(t, ann.Reasons)
		assert.Equal(t, 0.0, ann.Score)
		assert.False(t, ann.Flagged())
	}
}

func TestNegativePriceRule(t *testing.T) {
	row := cleanRow("ORD1")
	row.Price = -5
	row.TotalAmount = -10

	anns := evaluate(t, DefaultConfig(), []models.Row{row})

	assert.Contains(t, anns[0].Reasons, "negative price")
	assert.GreaterOrEqual(t, anns[0].Score, 0.5, "negative bump plus format bump")
}

func TestNegativePriceRuleDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules[RulePriceNegative] = false

	row := cleanRow("ORD1")
	row.Price = -5
	row.TotalAmount = -10

	anns := evaluate(t, cfg, []models.Row{row})
	assert.NotContains(t, anns[0].Reasons, "negative price")
}

func TestPriceRobustZRule(t *testing.T) {
	rows := []models.Row{
		cleanRow("ORD1"), cleanRow("ORD2"), cleanRow("ORD3"), cleanRow("ORD4"),
	}
	rows[1].OrderID = "ORD2"
	rows[2].OrderID = "ORD3"
	rows[3].OrderID = "ORD4"
	rows[0].Price = 10
	rows[1].Price = 12
	rows[2].Price = 14
	rows[3].Price = 500
	for i := range rows {
		rows[i].TotalAmount = rows[i].Price * rows[i].Quantity
	}

	anns := evaluate(t, DefaultConfig(), rows)

	require.NotEmpty(t, anns[3].Reasons)
	assert.Contains(t, anns[3].Reasons[0], "price outlier (|z|=")
	assert.Greater(t, anns[3].Score, 0.0)
	for _, ann := range anns[:3] {
		assert.NotContains(t, ann.Reasons, "price outlier")
	}
}

func TestScoreStaysBoundedUnderZeroThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PriceZThreshold = 0

	rows := make([]models.Row, 6)
	for i := range rows {
		rows[i] = cleanRow("ORD" + string(rune('1'+i)))
		rows[i].Price = float64(i) * 137.5
		rows[i].TotalAmount = rows[i].Price * rows[i].Quantity
	}
	rows[0].Price = -999
	rows[0].TotalAmount = rows[0].Price * rows[0].Quantity

	anns := evaluate(t, cfg, rows)
	for _, ann := range anns {
		assert.GreaterOrEqual(t, ann.Score, 0.0)
		assert.LessOrEqual(t, ann.Score, 1.0)
	}
}

func TestQuantityNonPositiveRule(t *testing.T) {
	tests := []struct {
		name     string
		quantity float64
		flagged  bool
	}{
		{name: "zero", quantity: 0, flagged: true},
		{name: "negative", quantity: -2, flagged: true},
		{name: "positive", quantity: 2, flagged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := cleanRow("ORD1")
			row.Quantity = tt.quantity
			row.TotalAmount = row.Price * row.Quantity

			anns := evaluate(t, DefaultConfig(), []models.Row{row})
			if tt.flagged {
				assert.Contains(t, anns[0].Reasons, "non-positive quantity")
			} else {
				assert.NotContains(t, anns[0].Reasons, "non-positive quantity")
			}
		})
	}
}

func TestQuantityIQRRule(t *testing.T) {
	rows := make([]models.Row, 9)
	for i := 0; i < 8; i++ {
		rows[i] = cleanRow("ORD" + string(rune('1'+i)))
		rows[i].Quantity = float64(i + 1)
		rows[i].TotalAmount = rows[i].Price * rows[i].Quantity
	}
	// Quartiles over {1..8, 50}: far outside any reasonable bounds.
	rows[8] = cleanRow("ORD9")
	rows[8].Quantity = 50
	rows[8].TotalAmount = rows[8].Price * rows[8].Quantity

	anns := evaluate(t, DefaultConfig(), rows)

	assert.Contains(t, anns[8].Reasons, "quantity outside IQR bounds")
	assert.Greater(t, anns[8].Score, 0.0)
	for _, ann := range anns[:8] {
		assert.NotContains(t, ann.Reasons, "quantity outside IQR bounds")
	}
}

func TestDuplicateOrderIDRule(t *testing.T) {
	first := cleanRow("ORD1")
	second := cleanRow("ORD1")

	anns := evaluate(t, DefaultConfig(), []models.Row{first, second})

	assert.NotContains(t, anns[0].Reasons, "duplicate order_id")
	assert.Contains(t, anns[1].Reasons, "duplicate order_id")
}

func TestInvalidDateRule(t *testing.T) {
	row := cleanRow("ORD1")
	row.HasDate = false

	anns := evaluate(t, DefaultConfig(), []models.Row{row})
	assert.Contains(t, anns[0].Reasons, "invalid date")
}

func TestInvalidEmailRule(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		flagged bool
	}{
		{name: "valid", email: "user@example.com", flagged: false},
		{name: "double at", email: "user@@bad", flagged: true},
		{name: "missing tld", email: "user@example", flagged: true},
		{name: "one letter tld", email: "user@example.c", flagged: true},
		{name: "embedded space", email: "us er@example.com", flagged: true},
		{name: "empty", email: "", flagged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := cleanRow("ORD1")
			row.CustomerEmail = tt.email

			anns := evaluate(t, DefaultConfig(), []models.Row{row})
			if tt.flagged {
				assert.Contains(t, anns[0].Reasons, "malformed email")
			} else {
				assert.NotContains(t, anns[0].Reasons, "malformed email")
			}
		})
	}
}

func TestCountryWhitelistRule(t *testing.T) {
	row := cleanRow("ORD1")
	row.Country = "Atlantis"

	anns := evaluate(t, DefaultConfig(), []models.Row{row})
	assert.Contains(t, anns[0].Reasons, "suspect country: Atlantis")

	row.Country = "France"
	anns = evaluate(t, DefaultConfig(), []models.Row{row})
	assert.Empty(t, anns[0].Reasons)
}

func TestWhitespaceFieldsRule(t *testing.T) {
	row := cleanRow("ORD1")
	row.DirtyFields = []string{"payment_method", "category"}

	anns := evaluate(t, DefaultConfig(), []models.Row{row})

	assert.Contains(t, anns[0].Reasons, "payment_method has stray whitespace")
	assert.Contains(t, anns[0].Reasons, "category has stray whitespace")
}

func TestTotalIncoherentRule(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		qty     float64
		total   float64
		flagged bool
		reason  string
	}{
		{
			name: "incoherent", price: 10, qty: 3, total: 25,
			flagged: true, reason: "incoherent total_amount (expected 30.00)",
		},
		{name: "coherent", price: 10, qty: 3, total: 30, flagged: false},
		{name: "within tolerance", price: 10, qty: 3, total: 30.005, flagged: false},
		{name: "non-finite total skipped", price: 10, qty: 3, total: math.NaN(), flagged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := cleanRow("ORD1")
			row.Price = tt.price
			row.Quantity = tt.qty
			row.TotalAmount = tt.total

			anns := evaluate(t, DefaultConfig(), []models.Row{row})
			if tt.flagged {
				assert.Contains(t, anns[0].Reasons, tt.reason)
			} else {
				for _, reason := range anns[0].Reasons {
					assert.NotContains(t, reason, "incoherent total_amount")
				}
			}
		})
	}
}

func TestNonFinitePriceProducesNoPriceReasons(t *testing.T) {
	row := cleanRow("ORD1")
	row.Price = math.NaN()
	row.TotalAmount = math.NaN()

	anns := evaluate(t, DefaultConfig(), []models.Row{row})

	assert.NotContains(t, anns[0].Reasons, "negative price")
	for _, reason := range anns[0].Reasons {
		assert.NotContains(t, reason, "price outlier")
	}
}

func TestScoreRoundedToThreeDecimals(t *testing.T) {
	rows := []models.Row{
		cleanRow("ORD1"), cleanRow("ORD2"), cleanRow("ORD3"), cleanRow("ORD4"),
	}
	rows[1].OrderID = "ORD2"
	rows[2].OrderID = "ORD3"
	rows[3].OrderID = "ORD4"
	rows[0].Price = 10
	rows[1].Price = 12
	rows[2].Price = 14
	rows[3].Price = 17
	for i := range rows {
		rows[i].TotalAmount = rows[i].Price * rows[i].Quantity
	}

	anns := evaluate(t, DefaultConfig(), rows)
	for _, ann := range anns {
		scaled := ann.Score * 1000
		assert.InDelta(t, math.Round(scaled), scaled, 1e-9)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	rows := []models.Row{cleanRow("ORD1"), cleanRow("ORD2"), cleanRow("ORD2")}
	rows[0].Price = -1
	rows[0].TotalAmount = rows[0].Price * rows[0].Quantity
	rows[1].Country = "Atlantis"

	cfg := DefaultConfig()
	stats := profile.Compute(rows)
	engine := NewEngine(cfg, stats, nil)

	first := engine.Evaluate(rows)
	second := engine.Evaluate(rows)
	assert.Equal(t, first, second)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.25, clamp01(0.25))
	assert.Equal(t, 0.0, clamp01(math.NaN()))
}
