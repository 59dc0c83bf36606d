// Package validator re-reads a built store and checks it against the
// relational, financial and distribution rules a generated dataset must
// satisfy. It never writes to the store.
package validator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"dataset-service/internal/models"
	"dataset-service/internal/repository"
	"dataset-service/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Check names, in report order.
const (
	CheckRecordCounts          = "record_counts"
	CheckFKOrdersCustomer      = "fk_orders_customer"
	CheckFKItemsOrder          = "fk_items_order"
	CheckFKItemsProduct        = "fk_items_product"
	CheckShippedAfterOrder     = "shipped_after_order"
	CheckStatusFieldCoupling   = "status_field_coupling"
	CheckOrderTotals           = "order_totals"
	CheckOrdersHaveItems       = "orders_have_items"
	CheckCancelledOrders       = "cancelled_orders"
	CheckPriceBand             = "price_band"
	CheckQuantityRange         = "quantity_range"
	CheckEmailUniqueLookup     = "email_unique_lookup"
	CheckSegmentMix            = "segment_mix"
	CheckStatusMix             = "status_mix"
	CheckQuantityMix           = "quantity_mix"
	CheckPriceVarianceFraction = "price_variance_fraction"
)

const (
	minQuantity = 1
	maxQuantity = 5
	bundleLimit = 5
)

// floatSlack absorbs binary rounding in share arithmetic.
const floatSlack = 1e-9

// Validator checks a built store.
type Validator struct {
	db   *gorm.DB
	repo repository.DatasetRepository
}

// New creates a validator reading through db.
func New(db *gorm.DB) *Validator {
	return &Validator{db: db, repo: repository.NewDatasetRepository(db)}
}

// Validate checks the store behind db against targets.
func Validate(ctx context.Context, db *gorm.DB, targets Targets) (*Report, error) {
	return New(db).Validate(ctx, targets)
}

// snapshot is the store content a validation pass works on.
type snapshot struct {
	customers []models.Customer
	products  map[string]models.Product
	orders    []models.Order
	items     []models.OrderItem
	byOrder   map[string][]models.OrderItem
}

// Validate runs every check and collects informational stats. The error
// is non-nil only when the store could not be read; failed checks are
// reported through Report.Err.
func (v *Validator) Validate(ctx context.Context, t Targets) (*Report, error) {
	log := utils.Log.Component("validator", "")

	snap, err := v.load(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{ValidatedAt: time.Now().UTC()}
	report.Checks = append(report.Checks, recordCounts(snap, t))

	fkQueries := []struct {
		name  string
		query string
	}{
		{CheckFKOrdersCustomer, `SELECT o.order_id FROM orders o LEFT JOIN customers c ON c.customer_id = o.customer_id WHERE c.customer_id IS NULL ORDER BY o.order_id`},
		{CheckFKItemsOrder, `SELECT CAST(i.order_item_id AS TEXT) FROM order_items i LEFT JOIN orders o ON o.order_id = i.order_id WHERE o.order_id IS NULL ORDER BY i.order_item_id`},
		{CheckFKItemsProduct, `SELECT CAST(i.order_item_id AS TEXT) FROM order_items i LEFT JOIN products p ON p.product_id = i.product_id WHERE p.product_id IS NULL ORDER BY i.order_item_id`},
	}
	for _, fk := range fkQueries {
		c, err := v.orphans(ctx, fk.name, fk.query)
		if err != nil {
			return nil, err
		}
		report.Checks = append(report.Checks, c)
	}

	report.Checks = append(report.Checks,
		shippedAfterOrder(snap),
		statusFieldCoupling(snap),
		orderTotals(snap, t),
		ordersHaveItems(snap),
		cancelledOrders(snap),
		priceBand(snap, t),
		quantityRange(snap),
	)

	emails, err := v.emailLookup(ctx, snap)
	if err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, emails)

	segments := make(map[string]int)
	for _, c := range snap.customers {
		segments[string(c.Segment)]++
	}
	statuses := make(map[string]int)
	for _, o := range snap.orders {
		statuses[string(o.Status)]++
	}
	quantities := make(map[string]int)
	for _, it := range snap.items {
		quantities[strconv.Itoa(it.Quantity)]++
	}
	report.Checks = append(report.Checks,
		mixCheck(CheckSegmentMix, t.SegmentMix, segments, len(snap.customers), t.Tolerances.Mix),
		mixCheck(CheckStatusMix, t.StatusMix, statuses, len(snap.orders), t.Tolerances.Mix),
		mixCheck(CheckQuantityMix, t.QuantityMix, quantities, len(snap.items), t.Tolerances.Mix),
		varianceFraction(snap, t),
	)

	stats, err := v.stats(ctx, snap)
	if err != nil {
		return nil, err
	}
	report.Stats = stats
	report.Passed = len(report.Failed()) == 0

	entry := log.WithFields(logrus.Fields{
		"checks": len(report.Checks),
		"passed": report.Passed,
	})
	if report.Passed {
		entry.Info("Validation passed")
	} else {
		entry.WithField("failed", report.Failed()).Warn("Validation failed")
	}
	return report, nil
}

func (v *Validator) load(ctx context.Context) (*snapshot, error) {
	customers, err := v.repo.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read customers: %w", err)
	}
	products, err := v.repo.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	orders, err := v.repo.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	items, err := v.repo.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	snap := &snapshot{
		customers: customers,
		products:  make(map[string]models.Product, len(products)),
		orders:    orders,
		items:     items,
		byOrder:   make(map[string][]models.OrderItem, len(orders)),
	}
	for _, p := range products {
		snap.products[p.ProductID] = p
	}
	for _, it := range items {
		snap.byOrder[it.OrderID] = append(snap.byOrder[it.OrderID], it)
	}
	return snap, nil
}

func (v *Validator) orphans(ctx context.Context, name, query string) (Check, error) {
	var ids []string
	if err := v.db.WithContext(ctx).Raw(query).Scan(&ids).Error; err != nil {
		return Check{}, fmt.Errorf("failed to run %s: %w", name, err)
	}
	c := Check{Name: name}
	for _, id := range ids {
		c.offend(id)
	}
	c.Observed = float64(c.Count)
	c.Passed = c.Count == 0
	return c, nil
}

func (v *Validator) emailLookup(ctx context.Context, snap *snapshot) (Check, error) {
	c := Check{Name: CheckEmailUniqueLookup, Target: 1}
	for _, cust := range snap.customers {
		n, err := v.repo.CountCustomersByEmail(ctx, cust.Email)
		if err != nil {
			return Check{}, fmt.Errorf("failed to look up customer email: %w", err)
		}
		if n != 1 {
			c.offend(cust.CustomerID)
		}
	}
	c.Observed = float64(c.Count)
	c.Passed = c.Count == 0
	return c, nil
}

func recordCounts(snap *snapshot, t Targets) Check {
	c := Check{Name: CheckRecordCounts}

	open := 0
	for _, o := range snap.orders {
		if o.Status != models.StatusCancelled {
			open++
		}
	}
	exact := []struct {
		table string
		got   int
		want  int
	}{
		{"customers", len(snap.customers), t.Customers},
		{"products", len(snap.products), t.Products},
		{"orders", len(snap.orders), t.Orders},
	}
	var parts []string
	for _, e := range exact {
		parts = append(parts, fmt.Sprintf("%s %d/%d", e.table, e.got, e.want))
		if e.got != e.want {
			c.offend(e.table)
		}
	}
	parts = append(parts, fmt.Sprintf("order_items %d in [%d, %d]", len(snap.items), open, open*maxQuantity))
	if len(snap.items) < open || len(snap.items) > open*maxQuantity {
		c.offend("order_items")
	}

	c.Observed = float64(c.Count)
	c.Detail = strings.Join(parts, ", ")
	c.Passed = c.Count == 0
	return c
}

func shippedAfterOrder(snap *snapshot) Check {
	c := Check{Name: CheckShippedAfterOrder}
	for _, o := range snap.orders {
		if o.ShippedDate != nil && o.ShippedDate.Before(o.OrderDate) {
			c.offend(o.OrderID)
		}
	}
	c.Observed = float64(c.Count)
	c.Passed = c.Count == 0
	return c
}

func statusFieldCoupling(snap *snapshot) Check {
	c := Check{Name: CheckStatusFieldCoupling}
	for _, o := range snap.orders {
		shipped := o.ShippedDate != nil
		tracked := o.TrackingNumber != nil && *o.TrackingNumber != ""
		var ok bool
		switch o.Status {
		case models.StatusProcessing, models.StatusCancelled:
			ok = !shipped && !tracked
		case models.StatusShipped, models.StatusDelivered:
			ok = shipped && tracked
		}
		if !ok {
			c.offend(o.OrderID)
		}
	}
	c.Observed = float64(c.Count)
	c.Passed = c.Count == 0
	return c
}

func orderTotals(snap *snapshot, t Targets) Check {
	tol := t.Tolerances.TotalAmount
	c := Check{Name: CheckOrderTotals, Tolerance: tol.InexactFloat64()}
	worst := decimal.Zero
	for _, o := range snap.orders {
		if o.Status == models.StatusCancelled {
			continue
		}
		sum := decimal.Zero
		for _, it := range snap.byOrder[o.OrderID] {
			sum = sum.Add(it.LineTotal())
		}
		diff := o.TotalAmount.Sub(sum.Round(2)).Abs()
		if diff.GreaterThan(worst) {
			worst = diff
		}
		if diff.GreaterThan(tol) {
			c.offend(o.OrderID)
		}
	}
	c.Observed = worst.InexactFloat64()
	c.Passed = c.Count == 0
	return c
}

func ordersHaveItems(snap *snapshot) Check {
	c := Check{Name: CheckOrdersHaveItems}
	for _, o := range snap.orders {
		if o.Status != models.StatusCancelled && len(snap.byOrder[o.OrderID]) == 0 {
			c.offend(o.OrderID)
		}
	}
	c.Observed = float64(c.Count)
	c.Passed = c.Count == 0
	return c
}

func cancelledOrders(snap *snapshot) Check {
	c := Check{Name: CheckCancelledOrders}
	for _, o := range snap.orders {
		if o.Status != models.StatusCancelled {
			continue
		}
		if !o.TotalAmount.IsZero() || len(snap.byOrder[o.OrderID]) > 0 {
			c.offend(o.OrderID)
		}
	}
	c.Observed = float64(c.Count)
	c.Passed = c.Count == 0
	return c
}

// priceBand accepts unit prices within the variance rate of the catalog
// price, bounds inclusive.
func priceBand(snap *snapshot, t Targets) Check {
	rate := t.PriceVarianceRate
	c := Check{Name: CheckPriceBand, Target: rate.InexactFloat64()}
	worst := decimal.Zero
	one := decimal.NewFromInt(1)
	for _, it := range snap.items {
		p, ok := snap.products[it.ProductID]
		if !ok || !p.Price.IsPositive() {
			continue
		}
		low := p.Price.Mul(one.Sub(rate))
		high := p.Price.Mul(one.Add(rate))
		if dev := it.PricePerUnit.Div(p.Price).Sub(one).Abs(); dev.GreaterThan(worst) {
			worst = dev
		}
		if it.PricePerUnit.LessThan(low) || it.PricePerUnit.GreaterThan(high) {
			c.offend(itemKey(it))
		}
	}
	c.Observed = worst.InexactFloat64()
	c.Passed = c.Count == 0
	return c
}

func quantityRange(snap *snapshot) Check {
	c := Check{Name: CheckQuantityRange}
	for _, it := range snap.items {
		if it.Quantity < minQuantity || it.Quantity > maxQuantity {
			c.offend(itemKey(it))
		}
	}
	c.Observed = float64(c.Count)
	c.Passed = c.Count == 0
	return c
}

// withinTolerance reports whether count realizes share of n. A count that
// is the nearest whole number of records to the target always passes,
// since no integer count can do better.
func withinTolerance(count, n int, share, tol float64) bool {
	observed := float64(count) / float64(n)
	if math.Abs(observed-share) <= tol+floatSlack {
		return true
	}
	return math.Abs(float64(count)-share*float64(n)) < 1
}

// mixCheck compares realized shares to target shares.
func mixCheck(name string, target map[string]float64, counts map[string]int, n int, tol float64) Check {
	c := Check{Name: name, Tolerance: tol}
	if n == 0 {
		c.Passed = true
		return c
	}

	keys := make([]string, 0, len(target))
	for k := range target {
		keys = append(keys, k)
	}
	for k := range counts {
		if _, ok := target[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var parts []string
	worst := 0.0
	for _, k := range keys {
		observed := float64(counts[k]) / float64(n)
		worst = math.Max(worst, math.Abs(observed-target[k]))
		parts = append(parts, fmt.Sprintf("%s %.3f/%.3f", k, observed, target[k]))
		if !withinTolerance(counts[k], n, target[k], tol) {
			c.offend(k)
		}
	}
	c.Observed = worst
	c.Detail = strings.Join(parts, ", ")
	c.Passed = c.Count == 0
	return c
}

func varianceFraction(snap *snapshot, t Targets) Check {
	c := Check{Name: CheckPriceVarianceFraction, Target: t.PriceVarianceFraction, Tolerance: t.Tolerances.VarianceFraction}
	k := len(snap.items)
	if k == 0 {
		c.Passed = true
		return c
	}

	varied := 0
	for _, it := range snap.items {
		if p, ok := snap.products[it.ProductID]; ok && !it.PricePerUnit.Equal(p.Price) {
			varied++
		}
	}
	c.Observed = float64(varied) / float64(k)
	c.Count = varied
	c.Detail = fmt.Sprintf("%d of %d lines priced off catalog", varied, k)
	c.Passed = withinTolerance(varied, k, c.Target, c.Tolerance)
	return c
}

func itemKey(it models.OrderItem) string {
	return it.OrderID + "#" + strconv.FormatInt(it.OrderItemID, 10)
}
