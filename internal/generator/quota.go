package generator

import (
	"math"
	"math/rand/v2"
	"sort"
)

const remainderEpsilon = 1e-9

// apportion splits total across weights with largest-remainder rounding so
// the parts always sum to total. Equal remainders go to the smaller
// weight, then to the earlier index.
func apportion(total int, weights []float64) []int {
	out := make([]int, len(weights))
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if total <= 0 || sum <= 0 {
		return out
	}

	type share struct {
		index     int
		weight    float64
		remainder float64
	}
	shares := make([]share, len(weights))
	assigned := 0
	for i, w := range weights {
		exact := float64(total) * w / sum
		floor := math.Floor(exact + remainderEpsilon)
		out[i] = int(floor)
		assigned += out[i]
		shares[i] = share{index: i, weight: w, remainder: exact - floor}
	}

	sort.SliceStable(shares, func(a, b int) bool {
		ra, rb := shares[a].remainder, shares[b].remainder
		if math.Abs(ra-rb) > remainderEpsilon {
			return ra > rb
		}
		if shares[a].weight != shares[b].weight {
			return shares[a].weight < shares[b].weight
		}
		return shares[a].index < shares[b].index
	})
	for k := 0; assigned < total; k++ {
		s := shares[k%len(shares)]
		if s.weight <= 0 {
			continue
		}
		out[s.index]++
		assigned++
	}
	return out
}

// urn draws categories without replacement from exact counts, so the
// realized counts always equal the quotas it was filled with.
type urn struct {
	counts []int
	left   int
}

func newUrn(counts []int) *urn {
	u := &urn{counts: append([]int(nil), counts...)}
	for _, c := range counts {
		u.left += c
	}
	return u
}

func (u *urn) remaining(i int) int {
	return u.counts[i]
}

func (u *urn) empty() bool {
	return u.left == 0
}

// draw removes one ball uniformly at random.
func (u *urn) draw(r *rand.Rand) int {
	return u.drawTilted(r, nil)
}

// drawTilted removes one ball, scaling each category's remaining count by
// tilt[i]. A nil tilt is a plain uniform draw.
func (u *urn) drawTilted(r *rand.Rand, tilt []float64) int {
	weights := make([]float64, len(u.counts))
	for i, c := range u.counts {
		weights[i] = float64(c)
		if tilt != nil {
			weights[i] *= tilt[i]
		}
	}
	i := pickWeighted(r, weights)
	if i < 0 {
		return -1
	}
	u.take(i)
	return i
}

func (u *urn) take(i int) {
	u.counts[i]--
	u.left--
}
