package interval

import (
	"fmt"
	"strings"
)

// GenomicInterval is an inclusive [Start, End] coordinate range on a single
// chromosome.  An interval with End < Start is degenerate; it has length zero
// and intersects nothing.
type GenomicInterval struct {
	Chrom string
	Start int
	End   int
}

// New returns the interval chrom:[start, end].
func New(chrom string, start, end int) GenomicInterval {
	return GenomicInterval{Chrom: chrom, Start: start, End: end}
}

// Length returns End-Start+1, or 0 if the interval is degenerate.
func (iv GenomicInterval) Length() int {
	if iv.End < iv.Start {
		return 0
	}
	return iv.End - iv.Start + 1
}

// Empty returns true iff the interval covers no positions.
func (iv GenomicInterval) Empty() bool {
	return iv.End < iv.Start
}

// Contains returns true iff pos lies inside the interval.
func (iv GenomicInterval) Contains(pos int) bool {
	return iv.Start <= pos && pos <= iv.End
}

// ContainsInterval returns true iff (iv ∩ other) = other.  A degenerate other
// is never contained.
func (iv GenomicInterval) ContainsInterval(other GenomicInterval) bool {
	return iv.Chrom == other.Chrom && !other.Empty() &&
		iv.Start <= other.Start && other.End <= iv.End
}

// Intersects returns true iff (iv ∩ other) != ∅.
func (iv GenomicInterval) Intersects(other GenomicInterval) bool {
	return iv.Chrom == other.Chrom && !iv.Empty() && !other.Empty() &&
		iv.Start <= other.End && other.Start <= iv.End
}

// Intersection returns the overlapping sub-interval of iv and other.  ok is
// false if the intervals do not overlap, in which case the returned interval
// must not be used.
func (iv GenomicInterval) Intersection(other GenomicInterval) (result GenomicInterval, ok bool) {
	if !iv.Intersects(other) {
		return GenomicInterval{}, false
	}
	result.Chrom = iv.Chrom
	result.Start = max(iv.Start, other.Start)
	result.End = min(iv.End, other.End)
	return result, true
}

// Clamp restricts [start, end] (on iv's chromosome) to iv's bounds.  ok is
// false if the clamped range is empty, including when start > end.
func (iv GenomicInterval) Clamp(start, end int) (GenomicInterval, bool) {
	return iv.Intersection(GenomicInterval{Chrom: iv.Chrom, Start: start, End: end})
}

// Shift returns the interval translated by delta positions.
func (iv GenomicInterval) Shift(delta int) GenomicInterval {
	return GenomicInterval{Chrom: iv.Chrom, Start: iv.Start + delta, End: iv.End + delta}
}

// Compare returns (negative int, 0, positive int) if (iv<other, iv=other,
// iv>other) respectively, ordering by chromosome name, then start, then end.
func (iv GenomicInterval) Compare(other GenomicInterval) int {
	if c := strings.Compare(iv.Chrom, other.Chrom); c != 0 {
		return c
	}
	if iv.Start != other.Start {
		return iv.Start - other.Start
	}
	return iv.End - other.End
}

// String returns the interval as "chrom:start-end".
func (iv GenomicInterval) String() string {
	return fmt.Sprintf("%s:%d-%d", iv.Chrom, iv.Start, iv.End)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
