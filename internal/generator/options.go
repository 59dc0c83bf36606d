package generator

import (
	"fmt"
	"strconv"

	"dataset-service/internal/models"
)

// Weight is one row of a named distribution table.
type Weight struct {
	Name   string  `mapstructure:"name" json:"name" yaml:"name"`
	Weight float64 `mapstructure:"weight" json:"weight" yaml:"weight"`
}

// AnchorWeight weights the category of the first product picked for a
// customer segment.
type AnchorWeight struct {
	Segment  string  `mapstructure:"segment" json:"segment" yaml:"segment"`
	Category string  `mapstructure:"category" json:"category" yaml:"category"`
	Weight   float64 `mapstructure:"weight" json:"weight" yaml:"weight"`
}

// AffinityRule weights a follow-up pick once From is present in an order.
// To is a category or StopTarget; Match optionally narrows To to products
// whose name contains it.
type AffinityRule struct {
	From   string  `mapstructure:"from" json:"from" yaml:"from"`
	To     string  `mapstructure:"to" json:"to" yaml:"to"`
	Match  string  `mapstructure:"match" json:"match,omitempty" yaml:"match,omitempty"`
	Weight float64 `mapstructure:"weight" json:"weight" yaml:"weight"`
}

// StopTarget ends an order when drawn as a follow-up.
const StopTarget = "stop"

// Options configures a generation run.
type Options struct {
	Seed      uint64 `mapstructure:"seed" json:"seed" yaml:"seed"`
	Customers int    `mapstructure:"customers" json:"customers" yaml:"customers"`
	Orders    int    `mapstructure:"orders" json:"orders" yaml:"orders"`
	StartDate string `mapstructure:"start_date" json:"start_date" yaml:"start_date"`
	EndDate   string `mapstructure:"end_date" json:"end_date" yaml:"end_date"`
	IDWidth   int    `mapstructure:"id_width" json:"id_width" yaml:"id_width"`

	SegmentMix    []Weight       `mapstructure:"segment_mix" json:"segment_mix" yaml:"segment_mix"`
	StatusMix     []Weight       `mapstructure:"status_mix" json:"status_mix" yaml:"status_mix"`
	ItemCounts    []Weight       `mapstructure:"item_counts" json:"item_counts" yaml:"item_counts"`
	QuantityMix   []Weight       `mapstructure:"quantity_mix" json:"quantity_mix" yaml:"quantity_mix"`
	AnchorWeights []AnchorWeight `mapstructure:"anchor_weights" json:"anchor_weights" yaml:"anchor_weights"`
	Affinity      []AffinityRule `mapstructure:"affinity" json:"affinity" yaml:"affinity"`

	PriceVarianceFraction float64 `mapstructure:"price_variance_fraction" json:"price_variance_fraction" yaml:"price_variance_fraction"`
	PriceVarianceRate     float64 `mapstructure:"price_variance_rate" json:"price_variance_rate" yaml:"price_variance_rate"`

	TopCustomerFraction float64 `mapstructure:"top_customer_fraction" json:"top_customer_fraction" yaml:"top_customer_fraction"`
	TopOrderShare       float64 `mapstructure:"top_order_share" json:"top_order_share" yaml:"top_order_share"`

	ShipDelayMin     int `mapstructure:"ship_delay_min" json:"ship_delay_min" yaml:"ship_delay_min"`
	ShipDelayMax     int `mapstructure:"ship_delay_max" json:"ship_delay_max" yaml:"ship_delay_max"`
	TransitDays      int `mapstructure:"transit_days" json:"transit_days" yaml:"transit_days"`
	SeasonalAttempts int `mapstructure:"seasonal_attempts" json:"seasonal_attempts" yaml:"seasonal_attempts"`

	// CorporateQuantityTilt multiplies the odds of each extra unit on
	// Corporate keyboard and accessory lines.
	CorporateQuantityTilt float64 `mapstructure:"corporate_quantity_tilt" json:"corporate_quantity_tilt" yaml:"corporate_quantity_tilt"`
}

// DefaultOptions returns the options that reproduce the shipped dataset.
func DefaultOptions() Options {
	return Options{
		Seed:                  42,
		Customers:             50,
		Orders:                250,
		StartDate:             "2023-10-21",
		EndDate:               "2025-10-20",
		IDWidth:               3,
		SegmentMix:            DefaultSegmentMix(),
		StatusMix:             DefaultStatusMix(),
		ItemCounts:            DefaultItemCounts(),
		QuantityMix:           DefaultQuantityMix(),
		AnchorWeights:         DefaultAnchorWeights(),
		Affinity:              DefaultAffinity(),
		PriceVarianceFraction: 0.20,
		PriceVarianceRate:     0.05,
		TopCustomerFraction:   0.20,
		TopOrderShare:         0.60,
		ShipDelayMin:          1,
		ShipDelayMax:          3,
		TransitDays:           7,
		SeasonalAttempts:      100,
		CorporateQuantityTilt: 3.0,
	}
}

func DefaultSegmentMix() []Weight {
	return []Weight{
		{Name: string(models.SegmentConsumer), Weight: 80},
		{Name: string(models.SegmentCorporate), Weight: 16},
		{Name: string(models.SegmentHomeOffice), Weight: 4},
	}
}

func DefaultStatusMix() []Weight {
	return []Weight{
		{Name: string(models.StatusDelivered), Weight: 80},
		{Name: string(models.StatusShipped), Weight: 12},
		{Name: string(models.StatusProcessing), Weight: 7},
		{Name: string(models.StatusCancelled), Weight: 1},
	}
}

// DefaultItemCounts splits the four-or-five bucket evenly.
func DefaultItemCounts() []Weight {
	return []Weight{
		{Name: "1", Weight: 54},
		{Name: "2", Weight: 27},
		{Name: "3", Weight: 12},
		{Name: "4", Weight: 4},
		{Name: "5", Weight: 4},
	}
}

func DefaultQuantityMix() []Weight {
	return []Weight{
		{Name: "1", Weight: 80},
		{Name: "2", Weight: 14},
		{Name: "3", Weight: 4},
		{Name: "4", Weight: 1.5},
		{Name: "5", Weight: 0.5},
	}
}

func DefaultAnchorWeights() []AnchorWeight {
	rows := map[models.Segment][5]float64{
		models.SegmentConsumer:   {25, 15, 20, 25, 15},
		models.SegmentCorporate:  {35, 30, 20, 10, 5},
		models.SegmentHomeOffice: {30, 25, 15, 10, 20},
	}
	var out []AnchorWeight
	for _, seg := range models.Segments {
		for i, cat := range models.Categories {
			out = append(out, AnchorWeight{Segment: string(seg), Category: string(cat), Weight: rows[seg][i]})
		}
	}
	return out
}

func DefaultAffinity() []AffinityRule {
	return []AffinityRule{
		{From: "Laptops", To: "Accessories", Weight: 6},
		{From: "Laptops", To: "Keyboards", Match: "Mouse", Weight: 3},
		{From: "Laptops", To: "Monitors", Weight: 1},
		{From: "Laptops", To: StopTarget, Weight: 1},
		{From: "Monitors", To: "Keyboards", Weight: 6},
		{From: "Monitors", To: "Accessories", Weight: 2},
		{From: "Monitors", To: "Monitors", Weight: 1},
		{From: "Monitors", To: StopTarget, Weight: 1},
		{From: "Keyboards", To: "Keyboards", Weight: 5},
		{From: "Keyboards", To: "Accessories", Weight: 3},
		{From: "Keyboards", To: "Monitors", Weight: 1},
		{From: "Keyboards", To: StopTarget, Weight: 1},
		{From: "Accessories", To: "Laptops", Weight: 4},
		{From: "Accessories", To: "Monitors", Weight: 3},
		{From: "Accessories", To: "Accessories", Weight: 3},
		{From: "Accessories", To: StopTarget, Weight: 1},
		{From: "Audio", To: "Audio", Weight: 3},
		{From: "Audio", To: "Accessories", Weight: 1},
		{From: "Audio", To: StopTarget, Weight: 6},
	}
}

// WithDefaults fills empty tables with the shipped defaults.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if len(o.SegmentMix) == 0 {
		o.SegmentMix = d.SegmentMix
	}
	if len(o.StatusMix) == 0 {
		o.StatusMix = d.StatusMix
	}
	if len(o.ItemCounts) == 0 {
		o.ItemCounts = d.ItemCounts
	}
	if len(o.QuantityMix) == 0 {
		o.QuantityMix = d.QuantityMix
	}
	if len(o.AnchorWeights) == 0 {
		o.AnchorWeights = d.AnchorWeights
	}
	if len(o.Affinity) == 0 {
		o.Affinity = d.Affinity
	}
	if o.StartDate == "" {
		o.StartDate = d.StartDate
	}
	if o.EndDate == "" {
		o.EndDate = d.EndDate
	}
	if o.IDWidth == 0 {
		o.IDWidth = d.IDWidth
	}
	if o.SeasonalAttempts == 0 {
		o.SeasonalAttempts = d.SeasonalAttempts
	}
	return o
}

// Window parses the configured date window.
func (o Options) Window() (models.Date, models.Date, error) {
	start, err := models.ParseDate(o.StartDate)
	if err != nil {
		return models.Date{}, models.Date{}, fmt.Errorf("%w: start_date: %v", ErrInvalidConfig, err)
	}
	end, err := models.ParseDate(o.EndDate)
	if err != nil {
		return models.Date{}, models.Date{}, fmt.Errorf("%w: end_date: %v", ErrInvalidConfig, err)
	}
	if end.Before(start) {
		return models.Date{}, models.Date{}, fmt.Errorf("%w: end_date %s precedes start_date %s", ErrInvalidConfig, end, start)
	}
	return start, end, nil
}

// Validate rejects option values no generator stage can work with.
func (o Options) Validate() error {
	if o.Customers < 0 || o.Orders < 0 {
		return fmt.Errorf("%w: customers and orders must be non-negative", ErrInvalidConfig)
	}
	if o.Orders > 0 && o.Customers == 0 {
		return fmt.Errorf("%w: orders requested without customers", ErrInvalidConfig)
	}
	if o.IDWidth < 1 || o.IDWidth > 9 {
		return fmt.Errorf("%w: id_width must be between 1 and 9", ErrInvalidConfig)
	}
	if _, _, err := o.Window(); err != nil {
		return err
	}
	if _, err := weightsFor(o.SegmentMix, segmentNames(), "segment_mix"); err != nil {
		return err
	}
	if _, err := weightsFor(o.StatusMix, statusNames(), "status_mix"); err != nil {
		return err
	}
	if _, err := countTable(o.ItemCounts, maxItemsPerOrder, "item_counts"); err != nil {
		return err
	}
	if _, err := countTable(o.QuantityMix, maxQuantity, "quantity_mix"); err != nil {
		return err
	}
	for _, a := range o.AnchorWeights {
		if !models.IsValidSegment(models.Segment(a.Segment)) || !models.IsValidCategory(models.Category(a.Category)) || a.Weight < 0 {
			return fmt.Errorf("%w: anchor weight %s/%s", ErrInvalidConfig, a.Segment, a.Category)
		}
	}
	for _, r := range o.Affinity {
		if !models.IsValidCategory(models.Category(r.From)) || r.Weight < 0 ||
			(r.To != StopTarget && !models.IsValidCategory(models.Category(r.To))) {
			return fmt.Errorf("%w: affinity rule %s -> %s", ErrInvalidConfig, r.From, r.To)
		}
	}
	if o.PriceVarianceFraction < 0 || o.PriceVarianceFraction > 1 {
		return fmt.Errorf("%w: price_variance_fraction must be within [0,1]", ErrInvalidConfig)
	}
	if o.PriceVarianceRate < 0 || o.PriceVarianceRate >= 1 {
		return fmt.Errorf("%w: price_variance_rate must be within [0,1)", ErrInvalidConfig)
	}
	if o.TopCustomerFraction <= 0 || o.TopCustomerFraction > 1 || o.TopOrderShare <= 0 || o.TopOrderShare > 1 {
		return fmt.Errorf("%w: top_customer_fraction and top_order_share must be within (0,1]", ErrInvalidConfig)
	}
	if o.ShipDelayMin < 1 || o.ShipDelayMax < o.ShipDelayMin || o.TransitDays < 0 {
		return fmt.Errorf("%w: need 1 <= ship_delay_min <= ship_delay_max and transit_days >= 0", ErrInvalidConfig)
	}
	if o.SeasonalAttempts < 1 {
		return fmt.Errorf("%w: seasonal_attempts must be positive", ErrInvalidConfig)
	}
	if o.CorporateQuantityTilt < 1 {
		return fmt.Errorf("%w: corporate_quantity_tilt must be at least 1", ErrInvalidConfig)
	}
	return nil
}

func segmentNames() []string {
	out := make([]string, len(models.Segments))
	for i, s := range models.Segments {
		out[i] = string(s)
	}
	return out
}

func statusNames() []string {
	out := make([]string, len(models.Statuses))
	for i, s := range models.Statuses {
		out[i] = string(s)
	}
	return out
}

// weightsFor lays a named table out in the order of names. Unknown names,
// negative weights and all-zero tables are rejected.
func weightsFor(table []Weight, names []string, label string) ([]float64, error) {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	out := make([]float64, len(names))
	var sum float64
	for _, w := range table {
		i, ok := index[w.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s: unknown entry %q", ErrInvalidConfig, label, w.Name)
		}
		if w.Weight < 0 {
			return nil, fmt.Errorf("%w: %s: negative weight for %q", ErrInvalidConfig, label, w.Name)
		}
		out[i] += w.Weight
		sum += w.Weight
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: %s: weights sum to zero", ErrInvalidConfig, label)
	}
	return out, nil
}

// countTable reads a table keyed by the integers 1..size.
func countTable(table []Weight, size int, label string) ([]float64, error) {
	names := make([]string, size)
	for i := range names {
		names[i] = strconv.Itoa(i + 1)
	}
	return weightsFor(table, names, label)
}
