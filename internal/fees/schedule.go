package fees

import "strings"

// Side identifies which party a fee breakdown is computed for. Buyer and
// seller currently share one schedule per currency; callers always pass the
// side so the schedules can diverge later without touching call sites.
type Side string

const (
	SideBuyer  Side = "buyer"
	SideSeller Side = "seller"
)

// CurrencyFee is the fee policy for one currency. BaseFee and Threshold are
// integer minor units; RateBps is the percentage rate in basis points
// applied to the portion of the price above Threshold.
type CurrencyFee struct {
	BaseFee   int64 `json:"base_fee"`
	Threshold int64 `json:"threshold"`
	RateBps   int64 `json:"rate_bps"`
}

// Table is the versioned, authoritative per-currency fee schedule. It is a
// single configuration artifact: the server computes from it and publishes
// it for display-side clients, so client copies can never diverge.
type Table struct {
	Version      int                    `json:"version"`
	BaseCurrency string                 `json:"base_currency"`
	Currencies   map[string]CurrencyFee `json:"currencies"`
}

// Breakdown is the fee computed for one party, in minor units
type Breakdown struct {
	BaseFee       int64 `json:"base_fee"`
	PercentageFee int64 `json:"percentage_fee"`
	Total         int64 `json:"total"`
}

// DefaultTable returns the current fee schedule
func DefaultTable() *Table {
	return &Table{
		Version:      3,
		BaseCurrency: "GBP",
		Currencies: map[string]CurrencyFee{
			"GBP": {BaseFee: 40, Threshold: 2000, RateBps: 100},
			"USD": {BaseFee: 50, Threshold: 2500, RateBps: 100},
			"EUR": {BaseFee: 45, Threshold: 2200, RateBps: 100},
		},
	}
}

// Lookup returns the fee policy for a currency code along with the code
// actually used. Unknown codes fall back to the base currency: this is a
// deliberate fail-closed default (the platform still collects its base-
// currency fee) rather than silent data loss.
func (t *Table) Lookup(currency string) (CurrencyFee, string) {
	code := strings.ToUpper(currency)
	if fee, ok := t.Currencies[code]; ok {
		return fee, code
	}
	return t.Currencies[t.BaseCurrency], t.BaseCurrency
}

// ComputeFee computes the fee breakdown for one party. itemPrice is in the
// currency's minor units; negative prices are treated as zero. The
// percentage component applies only to the amount above the threshold and
// is rounded half-up to the minor unit.
func (t *Table) ComputeFee(side Side, itemPrice int64, currency string) Breakdown {
	fee, _ := t.Lookup(currency)

	if itemPrice < 0 {
		itemPrice = 0
	}

	// Any amount above the threshold owes a strictly positive percentage
	// fee, so the half-up rounding is floored at one minor unit.
	var pct int64
	if excess := itemPrice - fee.Threshold; excess > 0 {
		pct = roundHalfUpDiv(excess*fee.RateBps, 10_000)
		if pct < 1 {
			pct = 1
		}
	}

	return Breakdown{
		BaseFee:       fee.BaseFee,
		PercentageFee: pct,
		Total:         fee.BaseFee + pct,
	}
}

// roundHalfUpDiv divides n by d rounding half up. n must be non-negative.
func roundHalfUpDiv(n, d int64) int64 {
	return (n + d/2) / d
}
