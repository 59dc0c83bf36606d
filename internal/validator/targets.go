package validator

import (
	"dataset-service/internal/generator"

	"github.com/shopspring/decimal"
)

// Tolerances bound how far a built dataset may drift from its targets.
type Tolerances struct {
	// TotalAmount is the largest accepted gap between an order total and
	// the sum of its lines.
	TotalAmount decimal.Decimal
	// Mix is the accepted absolute gap per share in the segment, status
	// and quantity mixes. A count less than one record away from its exact
	// target passes regardless.
	Mix float64
	// VarianceFraction is the accepted absolute gap in the share of lines
	// priced off catalog.
	VarianceFraction float64
}

// DefaultTolerances returns a two-cent total tolerance and two percentage
// points for every mix.
func DefaultTolerances() Tolerances {
	return Tolerances{
		TotalAmount:      decimal.RequireFromString("0.02"),
		Mix:              0.02,
		VarianceFraction: 0.02,
	}
}

// Targets is what a store is validated against.
type Targets struct {
	Customers int
	Products  int
	Orders    int

	SegmentMix  map[string]float64
	StatusMix   map[string]float64
	QuantityMix map[string]float64

	PriceVarianceFraction float64
	PriceVarianceRate     decimal.Decimal

	Tolerances Tolerances
}

// NewTargets derives targets from generation options and the catalog size.
func NewTargets(opts generator.Options, products int, tol Tolerances) Targets {
	opts = opts.WithDefaults()
	return Targets{
		Customers:             opts.Customers,
		Products:              products,
		Orders:                opts.Orders,
		SegmentMix:            shares(opts.SegmentMix),
		StatusMix:             shares(opts.StatusMix),
		QuantityMix:           shares(opts.QuantityMix),
		PriceVarianceFraction: opts.PriceVarianceFraction,
		PriceVarianceRate:     decimal.NewFromFloat(opts.PriceVarianceRate),
		Tolerances:            tol,
	}
}

// shares normalizes a weight table to fractions of one.
func shares(table []generator.Weight) map[string]float64 {
	var total float64
	for _, w := range table {
		total += w.Weight
	}
	out := make(map[string]float64, len(table))
	if total <= 0 {
		return out
	}
	for _, w := range table {
		out[w.Name] += w.Weight / total
	}
	return out
}
