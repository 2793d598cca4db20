package metrics

import (
	"math"
	"sync/atomic"
)

// latencyDigest is a fixed-bucket streaming summary: O(1) per
// observation, bounded memory regardless of request volume. Quantiles
// are estimated by linear interpolation within the matching bucket.
type latencyDigest struct {
	bounds []float64 // ascending upper bounds, seconds
	counts []atomic.Uint64
	count  atomic.Uint64
	sum    atomicFloat
}

func newLatencyDigest(bounds []float64) *latencyDigest {
	return &latencyDigest{
		bounds: bounds,
		counts: make([]atomic.Uint64, len(bounds)+1),
	}
}

func (d *latencyDigest) Observe(seconds float64) {
	i := len(d.bounds)
	for j, b := range d.bounds {
		if seconds <= b {
			i = j
			break
		}
	}
	d.counts[i].Add(1)
	d.count.Add(1)
	d.sum.Add(seconds)
}

// summary returns a point-in-time copy of the digest.
func (d *latencyDigest) summary() LatencySummary {
	s := LatencySummary{
		Bounds:  d.bounds,
		Buckets: make([]uint64, len(d.counts)),
	}
	for i := range d.counts {
		s.Buckets[i] = d.counts[i].Load()
	}
	s.Count = d.count.Load()
	s.Sum = d.sum.Load()
	return s
}

// LatencySummary is the exported form of the digest.
type LatencySummary struct {
	Count   uint64
	Sum     float64   // seconds
	Bounds  []float64 // bucket upper bounds, seconds
	Buckets []uint64  // per-bucket counts; last is the overflow bucket
}

// Mean returns the average latency in seconds, 0 when empty.
func (s LatencySummary) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Quantile estimates the q-th quantile (0 < q ≤ 1) in seconds. Values
// in the overflow bucket report the highest finite bound.
func (s LatencySummary) Quantile(q float64) float64 {
	if s.Count == 0 || len(s.Bounds) == 0 {
		return 0
	}
	rank := q * float64(s.Count)
	var seen uint64
	for i, c := range s.Buckets {
		if float64(seen+c) < rank {
			seen += c
			continue
		}
		if i >= len(s.Bounds) {
			break
		}
		lo := 0.0
		if i > 0 {
			lo = s.Bounds[i-1]
		}
		if c == 0 {
			return s.Bounds[i]
		}
		frac := (rank - float64(seen)) / float64(c)
		return lo + frac*(s.Bounds[i]-lo)
	}
	return s.Bounds[len(s.Bounds)-1]
}

// atomicFloat accumulates float64 values with a CAS loop.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Add(v float64) {
	for {
		old := f.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + v)
		if f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}
