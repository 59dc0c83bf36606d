package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"dataset-service/internal/catalog"
	"dataset-service/internal/models"

	"github.com/shopspring/decimal"
)

// Indexes into models.Statuses.
const (
	iDelivered = iota
	iShipped
	iProcessing
	iCancelled
)

const (
	maxOrdersPerYear = 9999
	trackingPrefix   = "1Z999AA1"
)

type orderDraft struct {
	draw     int
	age      int
	date     models.Date
	open     bool
	id       string
	customer string
	status   models.OrderStatus
}

// windowPlan splits the date window at the anchor into the open window
// (recent days where an order may still be in flight) and the closed
// window behind it.
type windowPlan struct {
	days          int
	openDays      int
	quota         []int
	cancelledOpen bool
	warnings      []InfeasibleDistributionError
}

// GenerateOrders produces opts.Orders orders for customers. Status counts
// equal the largest-remainder quotas of the status mix; date and status
// are drawn jointly so every order is consistent with its age at the
// anchor (the window end). seed is the order stage sub-seed.
func GenerateOrders(customers []models.Customer, cat *catalog.Catalog, opts Options, seed uint64) ([]models.Order, []InfeasibleDistributionError, error) {
	m := opts.Orders
	if m == 0 {
		return []models.Order{}, nil, nil
	}
	if len(customers) == 0 {
		return nil, nil, fmt.Errorf("%w: %d orders requested for an empty customer population", ErrInvalidInput, m)
	}
	if cat == nil || cat.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: orders need a non-empty catalog", ErrInvalidInput)
	}
	start, end, err := opts.Window()
	if err != nil {
		return nil, nil, err
	}
	weights, err := weightsFor(opts.StatusMix, statusNames(), "status_mix")
	if err != nil {
		return nil, nil, err
	}

	plan := planWindows(start, end, opts, apportion(m, weights))
	q := plan.quota
	warnings := plan.warnings

	// Dates. Ages younger than the minimum ship delay can only hold orders
	// that never ship, so they are capped at that quota.
	dateRng := newStream(seed, "orders.dates")
	nOpen := q[iShipped] + q[iProcessing]
	youngCap := q[iProcessing]
	if plan.cancelledOpen {
		nOpen += q[iCancelled]
		youngCap += q[iCancelled]
	}
	drafts := make([]orderDraft, 0, m)
	young, fallbacks := 0, 0
	for i := 0; i < m; i++ {
		lo, hi := plan.openDays, plan.days-1
		open := i < nOpen
		if open {
			lo, hi = 0, plan.openDays-1
			if young >= youngCap {
				lo = opts.ShipDelayMin
			}
		}
		age, seasonal := sampleAge(dateRng, end, lo, hi, opts.SeasonalAttempts)
		if !seasonal {
			fallbacks++
		}
		if open && age < opts.ShipDelayMin {
			young++
		}
		drafts = append(drafts, orderDraft{draw: i, age: age, date: end.AddDays(-age), open: open})
	}
	if fallbacks > 0 {
		warnings = append(warnings, InfeasibleDistributionError{
			Stage:     "orders",
			Target:    "seasonal order dates",
			Requested: m,
			Realized:  m - fallbacks,
			Reason:    fmt.Sprintf("rejection sampling exhausted %d attempts; fell back to uniform dates", opts.SeasonalAttempts),
		})
	}

	custRng := newStream(seed, "orders.customers")
	ranked := custRng.Perm(len(customers))
	cum := newCumulative(customerWeights(len(customers), opts))
	for i := range drafts {
		drafts[i].customer = customers[ranked[cum.sample(custRng)]].CustomerID
	}

	sort.SliceStable(drafts, func(a, b int) bool {
		if drafts[a].age != drafts[b].age {
			return drafts[a].age > drafts[b].age
		}
		return drafts[a].draw < drafts[b].draw
	})

	if err := assignOrderIDs(drafts); err != nil {
		return nil, nil, err
	}

	statusRng := newStream(seed, "orders.status")
	openUrn := newUrn([]int{0, q[iShipped], q[iProcessing], 0})
	closedUrn := newUrn([]int{q[iDelivered], 0, 0, q[iCancelled]})
	if plan.cancelledOpen {
		openUrn = newUrn([]int{0, q[iShipped], q[iProcessing], q[iCancelled]})
		closedUrn = newUrn([]int{q[iDelivered], 0, 0, 0})
	}
	// Youngest first, so the ages that cannot ship consume the
	// non-shipping quota before anything else can.
	for i := len(drafts) - 1; i >= 0; i-- {
		if !drafts[i].open {
			continue
		}
		p := processingProbability(drafts[i].age)
		tilt := []float64{0, 1 - p, p, 1}
		if drafts[i].age < opts.ShipDelayMin {
			tilt[iShipped] = 0
		}
		drafts[i].status = models.Statuses[openUrn.drawTilted(statusRng, tilt)]
	}
	for i := range drafts {
		if !drafts[i].open {
			drafts[i].status = models.Statuses[closedUrn.draw(statusRng)]
		}
	}

	shipRng := newStream(seed, "orders.shipping")
	tracking := make(map[string]struct{})
	orders := make([]models.Order, len(drafts))
	for i, d := range drafts {
		o := models.Order{
			OrderID:     d.id,
			CustomerID:  d.customer,
			OrderDate:   d.date,
			Status:      d.status,
			TotalAmount: decimal.Zero,
		}
		if d.status == models.StatusShipped || d.status == models.StatusDelivered {
			lo, hi := opts.ShipDelayMin, opts.ShipDelayMax
			if d.status == models.StatusShipped {
				lo = max(lo, d.age-opts.TransitDays)
				hi = min(hi, d.age)
			}
			shipped := d.date.AddDays(lo + shipRng.IntN(hi-lo+1))
			tn := trackingNumber(shipRng, tracking)
			o.ShippedDate = &shipped
			o.TrackingNumber = &tn
		}
		orders[i] = o
	}
	return orders, warnings, nil
}

func planWindows(start, end models.Date, opts Options, quota []int) windowPlan {
	days := start.DaysUntil(end) + 1
	plan := windowPlan{
		days:     days,
		openDays: min(opts.ShipDelayMax+opts.TransitDays, days),
		quota:    quota,
	}
	q := plan.quota

	if plan.days == plan.openDays {
		plan.cancelledOpen = true
		if q[iDelivered] > 0 {
			plan.warnings = append(plan.warnings, InfeasibleDistributionError{
				Stage:     "orders",
				Target:    string(models.StatusDelivered),
				Requested: q[iDelivered],
				Realized:  0,
				Reason:    fmt.Sprintf("a %d-day window leaves no day old enough for delivery; moved to %s", days, models.StatusShipped),
			})
			q[iShipped] += q[iDelivered]
			q[iDelivered] = 0
		}
	}
	if plan.openDays <= opts.ShipDelayMin && q[iShipped] > 0 {
		plan.warnings = append(plan.warnings, InfeasibleDistributionError{
			Stage:     "orders",
			Target:    string(models.StatusShipped),
			Requested: q[iShipped],
			Realized:  0,
			Reason:    fmt.Sprintf("no order date in a %d-day window is at least %d days old; moved to %s", days, opts.ShipDelayMin, models.StatusProcessing),
		})
		q[iProcessing] += q[iShipped]
		q[iShipped] = 0
	}
	return plan
}

// sampleAge draws an age in [lo, hi] days before end, re-weighted by the
// seasonal keep probability. The second result is false when every
// attempt was rejected and the age was drawn uniformly instead.
func sampleAge(r *rand.Rand, end models.Date, lo, hi, attempts int) (int, bool) {
	for a := 0; a < attempts; a++ {
		age := lo + r.IntN(hi-lo+1)
		if r.Float64() < keepProbability(end.AddDays(-age)) {
			return age, true
		}
	}
	return lo + r.IntN(hi-lo+1), false
}

func keepProbability(d models.Date) float64 {
	var p float64
	switch d.Month() {
	case time.November, time.December:
		p = 0.70
	case time.April, time.May, time.June:
		p = 0.35
	default:
		p = 0.50
	}
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		p *= 0.8
	}
	return p
}

// processingProbability is the chance an open order of the given age is
// still being processed rather than shipped.
func processingProbability(age int) float64 {
	switch {
	case age <= 2:
		return 0.8
	case age <= 5:
		return 0.5
	default:
		return 0.2
	}
}

// customerWeights ranks customers by a power law rank^-alpha, with alpha
// solved so the top TopCustomerFraction of ranks holds exactly
// TopOrderShare of the weight. A share at or below the uniform baseline
// yields uniform weights.
func customerWeights(n int, opts Options) []float64 {
	top := int(math.Round(opts.TopCustomerFraction * float64(n)))
	top = max(1, min(top, n))

	alpha := 0.0
	if top < n && opts.TopOrderShare > float64(top)/float64(n) {
		lo, hi := 0.0, 1.0
		for headShare(n, top, hi) < opts.TopOrderShare && hi < 64 {
			lo, hi = hi, hi*2
		}
		for i := 0; i < 60; i++ {
			mid := (lo + hi) / 2
			if headShare(n, top, mid) < opts.TopOrderShare {
				lo = mid
			} else {
				hi = mid
			}
		}
		alpha = hi
	}

	w := make([]float64, n)
	for i := range w {
		w[i] = math.Pow(float64(i+1), -alpha)
	}
	return w
}

// headShare is the fraction of rank^-alpha weight held by the first top ranks.
func headShare(n, top int, alpha float64) float64 {
	var head, total float64
	for i := 1; i <= n; i++ {
		w := math.Pow(float64(i), -alpha)
		total += w
		if i <= top {
			head += w
		}
	}
	return head / total
}

func assignOrderIDs(drafts []orderDraft) error {
	perYear := make(map[int]int)
	for _, d := range drafts {
		perYear[d.date.Year()]++
	}
	for _, d := range drafts {
		if n := perYear[d.date.Year()]; n > maxOrdersPerYear {
			return &CapacityError{Resource: fmt.Sprintf("order identifiers for %d", d.date.Year()), Requested: n, Available: maxOrdersPerYear}
		}
	}
	seq := make(map[int]int)
	for i := range drafts {
		year := drafts[i].date.Year()
		seq[year]++
		drafts[i].id = fmt.Sprintf("ORD-%d-%04d", year, seq[year])
	}
	return nil
}

func trackingNumber(r *rand.Rand, seen map[string]struct{}) string {
	for {
		tn := fmt.Sprintf("%s%08d", trackingPrefix, r.IntN(100_000_000))
		if _, dup := seen[tn]; !dup {
			seen[tn] = struct{}{}
			return tn
		}
	}
}
