package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"dataset-service/internal/catalog"
	"dataset-service/internal/models"

	"github.com/shopspring/decimal"
)

const (
	maxQuantity      = 5
	maxItemsPerOrder = 5
)

var cent = decimal.New(1, -2)

type itemLine struct {
	order   int
	product models.Product
	segment models.Segment
}

// GenerateOrderItems produces the line items of every non-cancelled order
// and returns a copy of orders with totals back-filled from those items.
// The input orders are not modified. seed is the item stage sub-seed.
func GenerateOrderItems(orders []models.Order, customers []models.Customer, cat *catalog.Catalog, opts Options, seed uint64) ([]models.OrderItem, []models.Order, []InfeasibleDistributionError, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, nil, nil, fmt.Errorf("%w: items need a non-empty catalog", ErrInvalidInput)
	}
	countWeights, err := countTable(opts.ItemCounts, maxItemsPerOrder, "item_counts")
	if err != nil {
		return nil, nil, nil, err
	}
	quantityWeights, err := countTable(opts.QuantityMix, maxQuantity, "quantity_mix")
	if err != nil {
		return nil, nil, nil, err
	}
	picker, err := newProductPicker(cat, opts)
	if err != nil {
		return nil, nil, nil, err
	}

	segmentOf := make(map[string]models.Segment, len(customers))
	for _, c := range customers {
		segmentOf[c.CustomerID] = c.Segment
	}

	out := make([]models.Order, len(orders))
	copy(out, orders)
	var active []int
	for i := range out {
		if _, ok := segmentOf[out[i].CustomerID]; !ok {
			return nil, nil, nil, fmt.Errorf("%w: order %s references unknown customer %s", ErrInvalidInput, out[i].OrderID, out[i].CustomerID)
		}
		out[i].TotalAmount = decimal.Zero
		if out[i].Status != models.StatusCancelled {
			active = append(active, i)
		}
	}

	var warnings []InfeasibleDistributionError

	countRng := newStream(seed, "items.count")
	countUrn := newUrn(apportion(len(active), countWeights))
	targets := make([]int, len(active))
	clamped := 0
	for k := range active {
		targets[k] = countUrn.draw(countRng) + 1
		if targets[k] > cat.Len() {
			targets[k] = cat.Len()
			clamped++
		}
	}
	if clamped > 0 {
		warnings = append(warnings, InfeasibleDistributionError{
			Stage:     "items",
			Target:    "items per order",
			Requested: len(active),
			Realized:  len(active) - clamped,
			Reason:    fmt.Sprintf("catalog holds only %d products", cat.Len()),
		})
	}

	productRng := newStream(seed, "items.products")
	var lines []itemLine
	for k, oi := range active {
		seg := segmentOf[out[oi].CustomerID]
		for _, p := range picker.pick(productRng, seg, targets[k]) {
			lines = append(lines, itemLine{order: oi, product: p, segment: seg})
		}
	}

	quantityRng := newStream(seed, "items.quantity")
	quantityUrn := newUrn(apportion(len(lines), quantityWeights))
	tilt := make([]float64, maxQuantity)
	for q := range tilt {
		tilt[q] = math.Pow(opts.CorporateQuantityTilt, float64(q))
	}
	quantities := make([]int, len(lines))
	for i, l := range lines {
		var t []float64
		if l.segment == models.SegmentCorporate &&
			(l.product.Category == models.CategoryKeyboards || l.product.Category == models.CategoryAccessories) {
			t = tilt
		}
		quantities[i] = quantityUrn.drawTilted(quantityRng, t) + 1
	}

	priceRng := newStream(seed, "items.price")
	varied := apportion(len(lines), []float64{opts.PriceVarianceFraction, 1 - opts.PriceVarianceFraction})[0]
	varianceUrn := newUrn([]int{varied, len(lines) - varied})
	rate := decimal.NewFromFloat(opts.PriceVarianceRate)
	narrow := 0

	items := make([]models.OrderItem, len(lines))
	totals := make(map[int]decimal.Decimal, len(active))
	for i, l := range lines {
		price := l.product.Price
		if varianceUrn.draw(priceRng) == 0 {
			u := opts.PriceVarianceRate * (1 - priceRng.Float64())
			up := priceRng.IntN(2) == 0
			if p, ok := perturbPrice(price, u, up, rate); ok {
				price = p
			} else {
				narrow++
			}
		}
		items[i] = models.OrderItem{
			OrderItemID:  int64(i + 1),
			OrderID:      out[l.order].OrderID,
			ProductID:    l.product.ProductID,
			Quantity:     quantities[i],
			PricePerUnit: price,
		}
		totals[l.order] = totals[l.order].Add(items[i].LineTotal())
	}
	if narrow > 0 {
		warnings = append(warnings, InfeasibleDistributionError{
			Stage:     "items",
			Target:    "price variance lines",
			Requested: varied,
			Realized:  varied - narrow,
			Reason:    "catalog price too small to move one cent inside the variance band",
		})
	}

	for oi, total := range totals {
		out[oi].TotalAmount = total.Round(2)
	}
	return items, out, warnings, nil
}

// perturbPrice moves price by the factor 1±u, rounded to cents and clamped
// inside [ceil(p·(1-rate)), floor(p·(1+rate))]. A result equal to the
// catalog price is nudged one cent. It reports false when the band has no
// room for any cent other than price itself.
func perturbPrice(price decimal.Decimal, u float64, up bool, rate decimal.Decimal) (decimal.Decimal, bool) {
	one := decimal.NewFromInt(1)
	lo := price.Mul(one.Sub(rate)).RoundCeil(2)
	hi := price.Mul(one.Add(rate)).RoundFloor(2)

	factor := decimal.NewFromFloat(1 - u)
	if up {
		factor = decimal.NewFromFloat(1 + u)
	}
	p := price.Mul(factor).Round(2)
	if p.LessThan(lo) {
		p = lo
	}
	if p.GreaterThan(hi) {
		p = hi
	}
	if !p.Equal(price) {
		return p, true
	}

	higher, lower := price.Add(cent), price.Sub(cent)
	canRaise := higher.LessThanOrEqual(hi)
	canLower := lower.GreaterThanOrEqual(lo) && lower.IsPositive()
	switch {
	case up && canRaise:
		return higher, true
	case canLower:
		return lower, true
	case canRaise:
		return higher, true
	default:
		return price, false
	}
}

// pickTarget is a follow-up destination: a category, optionally narrowed
// by a product name fragment, or the stop marker.
type pickTarget struct {
	category models.Category
	match    string
	stop     bool
}

type productPicker struct {
	products []models.Product
	anchors  map[models.Segment][]float64
	targets  []pickTarget
	rows     map[models.Category][]float64
}

func newProductPicker(cat *catalog.Catalog, opts Options) (*productPicker, error) {
	p := &productPicker{
		products: cat.Products(),
		anchors:  make(map[models.Segment][]float64),
		rows:     make(map[models.Category][]float64),
	}
	for _, seg := range models.Segments {
		p.anchors[seg] = make([]float64, len(models.Categories))
	}
	for _, a := range opts.AnchorWeights {
		row, ok := p.anchors[models.Segment(a.Segment)]
		ci := categoryIndex(models.Category(a.Category))
		if !ok || ci < 0 || a.Weight < 0 {
			return nil, fmt.Errorf("%w: anchor weight %s/%s", ErrInvalidConfig, a.Segment, a.Category)
		}
		row[ci] += a.Weight
	}

	index := make(map[pickTarget]int)
	for _, r := range opts.Affinity {
		from := models.Category(r.From)
		if categoryIndex(from) < 0 || r.Weight < 0 {
			return nil, fmt.Errorf("%w: affinity rule %s -> %s", ErrInvalidConfig, r.From, r.To)
		}
		t := pickTarget{category: models.Category(r.To), match: r.Match}
		if r.To == StopTarget {
			t = pickTarget{stop: true}
		} else if categoryIndex(t.category) < 0 {
			return nil, fmt.Errorf("%w: affinity rule %s -> %s", ErrInvalidConfig, r.From, r.To)
		}
		ti, ok := index[t]
		if !ok {
			ti = len(p.targets)
			index[t] = ti
			p.targets = append(p.targets, t)
		}
		for len(p.rows[from]) < len(p.targets) {
			p.rows[from] = append(p.rows[from], 0)
		}
		p.rows[from][ti] += r.Weight
	}
	return p, nil
}

// pick selects up to n distinct products. The anchor category follows the
// segment's weights; every follow-up is drawn from the summed affinity rows
// of the categories already in the order, and a drawn stop ends it early.
func (p *productPicker) pick(r *rand.Rand, seg models.Segment, n int) []models.Product {
	used := make(map[string]bool, n)
	var picks []models.Product
	var present []models.Category
	add := func(prod models.Product) {
		used[prod.ProductID] = true
		picks = append(picks, prod)
		for _, c := range present {
			if c == prod.Category {
				return
			}
		}
		present = append(present, prod.Category)
	}

	anchor := make([]float64, len(models.Categories))
	for i, w := range p.anchors[seg] {
		if len(p.available(pickTarget{category: models.Categories[i]}, used)) > 0 {
			anchor[i] = w
		}
	}
	if ci := pickWeighted(r, anchor); ci >= 0 {
		pool := p.available(pickTarget{category: models.Categories[ci]}, used)
		add(pool[r.IntN(len(pool))])
	} else {
		add(p.products[r.IntN(len(p.products))])
	}

	for len(picks) < n {
		weights := make([]float64, len(p.targets))
		for _, c := range present {
			for ti, w := range p.rows[c] {
				weights[ti] += w
			}
		}
		for ti, t := range p.targets {
			if !t.stop && len(p.available(t, used)) == 0 {
				weights[ti] = 0
			}
		}

		ti := pickWeighted(r, weights)
		var pool []models.Product
		switch {
		case ti < 0:
			pool = p.available(pickTarget{}, used)
		case p.targets[ti].stop:
			return picks
		default:
			pool = p.available(p.targets[ti], used)
		}
		if len(pool) == 0 {
			return picks
		}
		add(pool[r.IntN(len(pool))])
	}
	return picks
}

// available lists unused products matching t in catalog order. An empty
// target matches every product.
func (p *productPicker) available(t pickTarget, used map[string]bool) []models.Product {
	var out []models.Product
	for _, prod := range p.products {
		if used[prod.ProductID] {
			continue
		}
		if t.category != "" && prod.Category != t.category {
			continue
		}
		if t.match != "" && !strings.Contains(prod.Name, t.match) {
			continue
		}
		out = append(out, prod)
	}
	return out
}

func categoryIndex(c models.Category) int {
	for i, v := range models.Categories {
		if v == c {
			return i
		}
	}
	return -1
}
