package statistics

import (
	"storedb/pkg/primitives"
)

// Histogram is a fixed-width equi-width histogram over int32 values, used to
// estimate predicate selectivity for query planning. Unlike an equi-depth
// histogram, bucket boundaries are spaced evenly across [min, max]; bucket
// occupancy varies with the data's actual distribution.
//
// Construction is two-pass: the caller first scans the column to find
// min/max (AddValue is not meaningful before Min/Max are fixed), then
// rescans calling AddValue for every value. NewHistogram takes min and max
// from its caller and performs the second pass over the value slice.
type Histogram struct {
	buckets []int64
	min     int32
	max     int32
	width   int32
	ntups   int64
}

// NewHistogram builds an equi-width histogram with numBuckets buckets
// spanning [min, max], populated with values. Width is ceil((max-min+1) /
// numBuckets), with a floor of 1 so a degenerate single-value range still
// gets one bucket.
func NewHistogram(min, max int32, numBuckets int, values []int32) *Histogram {
	if numBuckets < 1 {
		numBuckets = 1
	}

	span := int64(max) - int64(min) + 1
	if span < 1 {
		span = 1
	}
	width := int32((span + int64(numBuckets) - 1) / int64(numBuckets))
	if width < 1 {
		width = 1
	}

	h := &Histogram{
		buckets: make([]int64, numBuckets),
		min:     min,
		max:     max,
		width:   width,
	}

	for _, v := range values {
		h.AddValue(v)
	}

	return h
}

// AddValue records one occurrence of v in its bucket.
func (h *Histogram) AddValue(v int32) {
	h.buckets[h.bucketIndex(v)]++
	h.ntups++
}

// NumBuckets returns the configured bucket count.
func (h *Histogram) NumBuckets() int {
	return len(h.buckets)
}

// TotalCount returns the number of values folded into the histogram.
func (h *Histogram) TotalCount() int64 {
	return h.ntups
}

func (h *Histogram) bucketIndex(v int32) int {
	idx := (int64(v) - int64(h.min)) / int64(h.width)
	if idx < 0 {
		idx = 0
	}
	if idx >= int64(len(h.buckets)) {
		idx = int64(len(h.buckets)) - 1
	}
	return int(idx)
}

// bucketBounds returns the inclusive [lo, hi] value range covered by bucket i.
func (h *Histogram) bucketBounds(i int) (int32, int32) {
	lo := h.min + int32(i)*h.width
	hi := lo + h.width - 1
	return lo, hi
}

// EstimateSelectivity returns the estimated fraction of rows, in [0.0, 1.0],
// satisfying "column op v".
func (h *Histogram) EstimateSelectivity(op primitives.Predicate, v int32) float64 {
	if h.ntups == 0 {
		return 0.0
	}

	switch op {
	case primitives.Equals:
		return h.equals(v)
	case primitives.NotEqual, primitives.NotEqualsBracket:
		return 1.0 - h.equals(v)
	case primitives.GreaterThan:
		return h.greaterThan(v)
	case primitives.GreaterThanOrEqual:
		return h.greaterThan(v - 1)
	case primitives.LessThan:
		return h.lessThan(v)
	case primitives.LessThanOrEqual:
		return h.lessThan(v + 1)
	default:
		return h.AvgSelectivity()
	}
}

func (h *Histogram) equals(v int32) float64 {
	if v < h.min || v > h.max {
		return 0.0
	}
	idx := h.bucketIndex(v)
	return (float64(h.buckets[idx]) / float64(h.width)) / float64(h.ntups)
}

func (h *Histogram) greaterThan(v int32) float64 {
	if v < h.min {
		return 1.0
	}
	if v > h.max {
		return 0.0
	}

	idx := h.bucketIndex(v)
	_, hi := h.bucketBounds(idx)
	bFrac := float64(h.buckets[idx]) / float64(h.ntups)
	bPart := (float64(hi-v) / float64(h.width)) * bFrac

	var right int64
	for i := idx + 1; i < len(h.buckets); i++ {
		right += h.buckets[i]
	}

	return clamp01(bPart + float64(right)/float64(h.ntups))
}

func (h *Histogram) lessThan(v int32) float64 {
	if v <= h.min {
		return 0.0
	}
	if v > h.max {
		return 1.0
	}

	idx := h.bucketIndex(v)
	lo, _ := h.bucketBounds(idx)
	bFrac := float64(h.buckets[idx]) / float64(h.ntups)
	bPart := (float64(v-lo) / float64(h.width)) * bFrac

	var left int64
	for i := 0; i < idx; i++ {
		left += h.buckets[i]
	}

	return clamp01(float64(left)/float64(h.ntups) + bPart)
}

// AvgSelectivity returns the histogram's default selectivity estimate, used
// as a fallback for predicates (e.g. LIKE) it cannot model precisely. For an
// equi-width histogram this is simply the average bucket occupancy.
func (h *Histogram) AvgSelectivity() float64 {
	if len(h.buckets) == 0 {
		return 1.0
	}
	return 1.0 / float64(len(h.buckets))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
