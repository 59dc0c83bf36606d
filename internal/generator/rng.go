package generator

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
)

// Stage counters feed the seed derivation. Their values are part of the
// reproducibility contract and must never be renumbered.
const (
	stageCustomers uint64 = 1
	stageOrders    uint64 = 2
	stageItems     uint64 = 3
)

const golden = 0x9e3779b97f4a7c15

// splitmix64 is the finalizer of the SplitMix64 generator.
func splitmix64(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// StageSeed derives the sub-seed of a pipeline stage from the run seed.
func StageSeed(seed, stage uint64) uint64 {
	return splitmix64(seed + stage*golden)
}

// newStream returns an independent PCG stream for a named draw sequence
// inside a stage. Streams never share state, so adding draws to one
// sequence leaves every other sequence untouched.
func newStream(stageSeed uint64, name string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	s1 := splitmix64(stageSeed ^ h.Sum64())
	s2 := splitmix64(s1)
	return rand.New(rand.NewPCG(s1, s2))
}

// pickWeighted draws an index with probability proportional to weights.
// It returns -1 when every weight is zero.
func pickWeighted(r *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return -1
	}
	x := r.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if x < w {
			return i
		}
		x -= w
	}
	return last
}

// cumulative samples indexes from precomputed cumulative weights.
type cumulative struct {
	bounds []float64
}

func newCumulative(weights []float64) cumulative {
	bounds := make([]float64, len(weights))
	var acc float64
	for i, w := range weights {
		acc += w
		bounds[i] = acc
	}
	return cumulative{bounds: bounds}
}

func (c cumulative) sample(r *rand.Rand) int {
	total := c.bounds[len(c.bounds)-1]
	x := r.Float64() * total
	i := sort.SearchFloat64s(c.bounds, x)
	// SearchFloat64s returns the first bound >= x; equality belongs to the next bucket.
	for i < len(c.bounds)-1 && c.bounds[i] <= x {
		i++
	}
	return i
}
