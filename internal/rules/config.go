// Package rules implements the anomaly rule engine: a configurable set of
// independent rules evaluated against each normalized row, accumulating
// human-readable reasons and a bounded [0,1] anomaly score. The engine is a
// single deterministic pass with no retries; malformed and non-finite values
// are anomaly signals, never failures.
package rules

// RuleName identifies one of the independently toggleable detection rules.
type RuleName string

// Rule identifiers, in evaluation order. Order affects only reason ordering,
// never the final score.
const (
	RulePriceNegative       RuleName = "price_negative"
	RulePriceRobustZ        RuleName = "price_robust_z"
	RuleQuantityNonPositive RuleName = "quantity_non_positive"
	RuleQuantityIQR         RuleName = "quantity_iqr"
	RuleDuplicateOrderID    RuleName = "duplicate_order_id"
	RuleInvalidDate         RuleName = "invalid_date"
	RuleInvalidEmail        RuleName = "invalid_email"
	RuleCountryWhitelist    RuleName = "country_whitelist"
	RuleWhitespaceFields    RuleName = "whitespace_fields"
	RuleTotalIncoherent     RuleName = "total_incoherent"
)

// AllRules lists every rule in evaluation order.
var AllRules = []RuleName{
	RulePriceNegative,
	RulePriceRobustZ,
	RuleQuantityNonPositive,
	RuleQuantityIQR,
	RuleDuplicateOrderID,
	RuleInvalidDate,
	RuleInvalidEmail,
	RuleCountryWhitelist,
	RuleWhitespaceFields,
	RuleTotalIncoherent,
}

// Config is the detection configuration consumed by the profiler and rule
// engine. It is treated as read-only by both and persists across runs until
// replaced wholesale; there is no process-wide mutable default.
type Config struct {
	// PriceZThreshold is the robust z-score above which a price is flagged.
	PriceZThreshold float64 `json:"price_z_threshold" yaml:"price_z_threshold" mapstructure:"price_z_threshold"`

	// NegativePriceBump is the flat score addition for a negative price.
	NegativePriceBump float64 `json:"negative_price_bump" yaml:"negative_price_bump" mapstructure:"negative_price_bump"`

	// IQRFactor widens the quantity acceptance interval around [Q1, Q3].
	IQRFactor float64 `json:"iqr_factor" yaml:"iqr_factor" mapstructure:"iqr_factor"`

	// FormatBump is the flat score addition applied once per row when the
	// row accumulated at least one reason.
	FormatBump float64 `json:"format_bump" yaml:"format_bump" mapstructure:"format_bump"`

	// Rules toggles individual rules. A rule absent from the map is
	// enabled; only an explicit false disables it.
	Rules map[RuleName]bool `json:"rules" yaml:"rules" mapstructure:"rules"`

	// AllowedCountries is the country whitelist for the country rule.
	AllowedCountries []string `json:"allowed_countries" yaml:"allowed_countries" mapstructure:"allowed_countries"`
}

// DefaultConfig returns the standard detection configuration.
func DefaultConfig() Config {
	rules := make(map[RuleName]bool, len(AllRules))
	for _, r := range AllRules {
		rules[r] = true
	}
	return Config{
		PriceZThreshold:   3.5,
		NegativePriceBump: 0.3,
		IQRFactor:         1.5,
		FormatBump:        0.2,
		Rules:             rules,
		AllowedCountries: []string{
			"France", "Germany", "Italy", "Italia", "Spain", "Belgium", "Netherlands",
		},
	}
}

// Enabled reports whether the named rule is active under this configuration.
func (c Config) Enabled(rule RuleName) bool {
	if c.Rules == nil {
		return true
	}
	enabled, ok := c.Rules[rule]
	return !ok || enabled
}

// allowedSet materializes the country whitelist for membership checks.
func (c Config) allowedSet() map[string]bool {
	set := make(map[string]bool, len(c.AllowedCountries))
	for _, country := range c.AllowedCountries {
		set[country] = true
	}
	return set
}
