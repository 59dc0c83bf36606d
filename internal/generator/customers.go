package generator

import (
	"fmt"
	"math"
	"strings"

	"dataset-service/internal/models"
)

// CustomerCapacity returns how many customers the identifier scheme and the
// name pool can hold for the given identifier width.
func CustomerCapacity(idWidth int) (ids int, names int) {
	return int(math.Pow10(idWidth)) - 1, len(firstNames) * len(lastNames)
}

// GenerateCustomers produces opts.Customers customers whose segment counts
// match the configured mix exactly. seed is the customer stage sub-seed.
func GenerateCustomers(opts Options, seed uint64) ([]models.Customer, error) {
	n := opts.Customers
	maxIDs, maxNames := CustomerCapacity(opts.IDWidth)
	if n > maxIDs {
		return nil, &CapacityError{Resource: "customer identifiers", Requested: n, Available: maxIDs}
	}
	if n > maxNames {
		return nil, &CapacityError{Resource: "customer names", Requested: n, Available: maxNames}
	}

	weights, err := weightsFor(opts.SegmentMix, segmentNames(), "segment_mix")
	if err != nil {
		return nil, err
	}
	counts := apportion(n, weights)

	segments := make([]models.Segment, 0, n)
	for i, c := range counts {
		for j := 0; j < c; j++ {
			segments = append(segments, models.Segments[i])
		}
	}
	segRng := newStream(seed, "customers.segments")
	segRng.Shuffle(len(segments), func(i, j int) {
		segments[i], segments[j] = segments[j], segments[i]
	})

	nameRng := newStream(seed, "customers.names")
	geoRng := newStream(seed, "customers.geo")
	phoneRng := newStream(seed, "customers.phone")

	picks := nameRng.Perm(maxNames)[:n]
	regionCum := newCumulative(regionWeights())
	emails := make(map[string]struct{}, n)

	customers := make([]models.Customer, n)
	for i := 0; i < n; i++ {
		first := firstNames[picks[i]/len(lastNames)]
		last := lastNames[picks[i]%len(lastNames)]
		seg := segments[i]

		email := uniqueEmail(emails, emailLocal(seg, first, last), emailDomains(seg), nameRng.IntN(len(emailDomains(seg))))

		reg := regions[regionCum.sample(geoRng)]
		c := reg.Cities[geoRng.IntN(len(reg.Cities))]

		customers[i] = models.Customer{
			CustomerID: fmt.Sprintf("CUST-%0*d", opts.IDWidth, i+1),
			Email:      email,
			Name:       first + " " + last,
			Phone:      phoneNumber(phoneRng.IntN),
			City:       c.Name,
			State:      c.State,
			Segment:    seg,
		}
	}
	return customers, nil
}

func emailDomains(seg models.Segment) []string {
	switch seg {
	case models.SegmentCorporate:
		return companyDomains
	case models.SegmentHomeOffice:
		return homeOfficeDomains
	default:
		return consumerDomains
	}
}

func emailLocal(seg models.Segment, first, last string) string {
	first, last = strings.ToLower(first), strings.ToLower(last)
	if seg == models.SegmentHomeOffice {
		return first + last
	}
	return first + "." + last
}

// uniqueEmail tries every domain starting at start before falling back to a
// numeric suffix. Distinct names can still collide once the dot is dropped
// (Ann Alee, Anna Lee).
func uniqueEmail(seen map[string]struct{}, local string, domains []string, start int) string {
	for suffix := 0; ; suffix++ {
		l := local
		if suffix > 0 {
			l = fmt.Sprintf("%s%d", local, suffix+1)
		}
		for k := 0; k < len(domains); k++ {
			email := l + "@" + domains[(start+k)%len(domains)]
			if _, taken := seen[email]; !taken {
				seen[email] = struct{}{}
				return email
			}
		}
	}
}

// phoneNumber formats a NXX-NXX-XXXX number; exchange and area codes never
// start with 0 or 1.
func phoneNumber(intN func(int) int) string {
	return fmt.Sprintf("%d%02d-%d%02d-%04d",
		2+intN(8), intN(100),
		2+intN(8), intN(100),
		intN(10000))
}
