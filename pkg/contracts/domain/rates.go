package domain

import (
	"fmt"
	"strings"
)

// RateTable maps a normalized (upper-cased, trimmed) shipowner name to its
// per-day demurrage rate. Default is the fallback for carriers without an
// explicit entry and must always be positive.
type RateTable struct {
	Default float64            `json:"default" validate:"required,gt=0"`
	Rates   map[string]float64 `json:"rates" validate:"dive,gt=0"`
}

// DefaultRateTable returns the built-in rate configuration used until the
// operator supplies their own.
func DefaultRateTable() RateTable {
	return RateTable{
		Default: 100,
		Rates: map[string]float64{
			"MSC":   120,
			"COSCO": 110,
			"CSSC":  115,
		},
	}
}

// NormalizeCarrier canonicalizes a shipowner name for rate lookup.
func NormalizeCarrier(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// RateFor returns the per-day rate for a carrier, falling back to Default
// when the carrier has no explicit entry.
func (t RateTable) RateFor(carrier string) float64 {
	if rate, ok := t.Rates[NormalizeCarrier(carrier)]; ok && rate > 0 {
		return rate
	}
	return t.Default
}

// Normalized returns a copy of the table with every carrier key
// canonicalized, so lookups are case-insensitive regardless of how the
// replacement map was spelled.
func (t RateTable) Normalized() RateTable {
	out := RateTable{Default: t.Default, Rates: make(map[string]float64, len(t.Rates))}
	for carrier, rate := range t.Rates {
		out.Rates[NormalizeCarrier(carrier)] = rate
	}
	return out
}

// Validate checks that the default and every explicit rate are positive.
func (t RateTable) Validate() error {
	if t.Default <= 0 {
		return fmt.Errorf("rate table: default rate must be positive, got %v", t.Default)
	}
	for carrier, rate := range t.Rates {
		if rate <= 0 {
			return fmt.Errorf("rate table: rate for %q must be positive, got %v", carrier, rate)
		}
	}
	return nil
}

// RecomputeCosts refreshes DemurrageCost on every record from its
// DemurrageDays and the current table. It must be called after any rate
// replacement; demurrage days themselves never change here.
func (t RateTable) RecomputeCosts(records []ContainerRecord) {
	for i := range records {
		records[i].DemurrageCost = float64(records[i].DemurrageDays) * t.RateFor(records[i].Shipowner)
	}
}
