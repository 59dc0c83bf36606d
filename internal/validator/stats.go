package validator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"dataset-service/internal/models"
)

// topFraction is the customer share behind TopQuintileShare.
const topFraction = 0.2

func (v *Validator) stats(ctx context.Context, snap *snapshot) (Stats, error) {
	s := Stats{
		Counts: map[string]int64{
			"customers":   int64(len(snap.customers)),
			"products":    int64(len(snap.products)),
			"orders":      int64(len(snap.orders)),
			"order_items": int64(len(snap.items)),
		},
		ItemsPerOrder:  itemsPerOrder(snap),
		CategoryMix:    categoryMix(snap),
		QueryTimingsMS: make(map[string]float64),
	}
	s.TopQuintileShare = topQuintileShare(snap)
	s.SeasonalRatio = seasonalRatio(snap.orders)

	if err := v.timeQueries(ctx, snap, &s); err != nil {
		return Stats{}, err
	}
	return s, nil
}

// timeQueries runs the lookups the read API serves once each and records
// how long they took. The bundle query also fills Stats.Bundles.
func (v *Validator) timeQueries(ctx context.Context, snap *snapshot, s *Stats) error {
	timed := func(name string, fn func() error) error {
		start := time.Now()
		if err := fn(); err != nil {
			return fmt.Errorf("failed to run %s query: %w", name, err)
		}
		s.QueryTimingsMS[name] = float64(time.Since(start).Microseconds()) / 1000
		return nil
	}

	if len(snap.customers) > 0 {
		c := snap.customers[0]
		if err := timed("customer_by_email", func() error {
			_, err := v.repo.CustomerByEmail(ctx, c.Email)
			return err
		}); err != nil {
			return err
		}
		if err := timed("orders_by_customer", func() error {
			_, err := v.repo.OrdersByCustomer(ctx, c.CustomerID, 0)
			return err
		}); err != nil {
			return err
		}
	}
	if len(snap.orders) > 0 {
		id := snap.orders[len(snap.orders)-1].OrderID
		if err := timed("items_by_order", func() error {
			_, err := v.repo.ItemsByOrder(ctx, id)
			return err
		}); err != nil {
			return err
		}
	}
	inStock := true
	if err := timed("products_by_category", func() error {
		_, err := v.repo.ProductsByCategory(ctx, models.CategoryLaptops, &inStock)
		return err
	}); err != nil {
		return err
	}
	return timed("top_bundles", func() error {
		bundles, err := v.repo.TopBundles(ctx, bundleLimit)
		s.Bundles = bundles
		return err
	})
}

func itemsPerOrder(snap *snapshot) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, o := range snap.orders {
		if o.Status == models.StatusCancelled {
			continue
		}
		counts[strconv.Itoa(len(snap.byOrder[o.OrderID]))]++
		total++
	}
	return fractions(counts, total)
}

func categoryMix(snap *snapshot) map[string]float64 {
	counts := make(map[string]int)
	for _, it := range snap.items {
		if p, ok := snap.products[it.ProductID]; ok {
			counts[string(p.Category)]++
		}
	}
	return fractions(counts, len(snap.items))
}

// topQuintileShare is the share of orders placed by the busiest fifth of
// customers, customers without orders included.
func topQuintileShare(snap *snapshot) float64 {
	if len(snap.orders) == 0 || len(snap.customers) == 0 {
		return 0
	}
	perCustomer := make(map[string]int, len(snap.customers))
	for _, c := range snap.customers {
		perCustomer[c.CustomerID] = 0
	}
	for _, o := range snap.orders {
		perCustomer[o.CustomerID]++
	}
	counts := make([]int, 0, len(perCustomer))
	for _, n := range perCustomer {
		counts = append(counts, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	top := max(1, int(math.Round(topFraction*float64(len(snap.customers)))))
	head := 0
	for i := 0; i < top && i < len(counts); i++ {
		head += counts[i]
	}
	return float64(head) / float64(len(snap.orders))
}

// seasonalRatio compares fourth-quarter to second-quarter order volume.
func seasonalRatio(orders []models.Order) float64 {
	var q2, q4 int
	for _, o := range orders {
		switch o.OrderDate.Month() {
		case time.April, time.May, time.June:
			q2++
		case time.October, time.November, time.December:
			q4++
		}
	}
	if q2 == 0 {
		return 0
	}
	return float64(q4) / float64(q2)
}

func fractions(counts map[string]int, total int) map[string]float64 {
	out := make(map[string]float64, len(counts))
	if total == 0 {
		return out
	}
	for k, n := range counts {
		out[k] = float64(n) / float64(total)
	}
	return out
}
