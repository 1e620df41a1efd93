package interval

import (
	"sort"
)

// Union is an interval-union over the positions of one chromosome.  Adding
// overlapping or touching intervals merges them; it is not possible to
// recover the individual intervals afterwards.
//
// It is implemented as a sorted length-2N sequence of endpoints, where the
// (inclusive) start of interval #k is in element [2k] and its exclusive end is
// in element [2k+1].  Position pos is covered iff
// sort.SearchInts(endpoints, pos+1) is odd.
type Union struct {
	chrom     string
	endpoints []int
}

// NewUnion returns an empty Union for chrom.
func NewUnion(chrom string) *Union {
	return &Union{chrom: chrom}
}

// searchAfter returns the index of the first endpoint > pos.
func (u *Union) searchAfter(pos int) int {
	return sort.Search(len(u.endpoints), func(i int) bool { return u.endpoints[i] > pos })
}

// Add inserts the inclusive range [start, end].  It is a no-op when end <
// start.
func (u *Union) Add(start, end int) {
	if end < start {
		return
	}
	limit := end + 1
	loIdx := sort.Search(len(u.endpoints), func(i int) bool { return u.endpoints[i] >= start })
	hiIdx := u.searchAfter(limit)
	newStart, newLimit := start, limit
	if loIdx&1 == 1 {
		// start falls inside (or touches the end of) an existing interval.
		loIdx--
		newStart = u.endpoints[loIdx]
	}
	if hiIdx&1 == 1 {
		newLimit = u.endpoints[hiIdx]
		hiIdx++
	}
	merged := make([]int, 0, len(u.endpoints)-(hiIdx-loIdx)+2)
	merged = append(merged, u.endpoints[:loIdx]...)
	merged = append(merged, newStart, newLimit)
	merged = append(merged, u.endpoints[hiIdx:]...)
	u.endpoints = merged
}

// AddInterval inserts iv.  Intervals on other chromosomes are ignored.
func (u *Union) AddInterval(iv GenomicInterval) {
	if iv.Chrom != u.chrom {
		return
	}
	u.Add(iv.Start, iv.End)
}

// Contains returns true iff pos is covered.
func (u *Union) Contains(pos int) bool {
	return u.searchAfter(pos)&1 == 1
}

// Covers returns true iff every position in [start, end] is covered.  An empty
// range is trivially covered.
func (u *Union) Covers(start, end int) bool {
	if end < start {
		return true
	}
	idx := u.searchAfter(start)
	if idx&1 == 0 {
		return false
	}
	return end+1 <= u.endpoints[idx]
}

// Covered returns the total number of covered positions.
func (u *Union) Covered() int {
	n := 0
	for i := 0; i+1 < len(u.endpoints); i += 2 {
		n += u.endpoints[i+1] - u.endpoints[i]
	}
	return n
}

// Intervals returns the disjoint covered intervals in ascending order.
func (u *Union) Intervals() []GenomicInterval {
	ivs := make([]GenomicInterval, 0, len(u.endpoints)/2)
	for i := 0; i+1 < len(u.endpoints); i += 2 {
		ivs = append(ivs, GenomicInterval{Chrom: u.chrom, Start: u.endpoints[i], End: u.endpoints[i+1] - 1})
	}
	return ivs
}

// Gaps returns the maximal uncovered sub-intervals of [start, end], in
// ascending order.
func (u *Union) Gaps(start, end int) []GenomicInterval {
	var gaps []GenomicInterval
	if end < start {
		return gaps
	}
	pos := start
	idx := u.searchAfter(pos)
	for pos <= end {
		if idx&1 == 1 {
			// Inside a covered interval; skip to its end.
			pos = u.endpoints[idx]
			idx++
			continue
		}
		gapEnd := end
		if idx < len(u.endpoints) && u.endpoints[idx]-1 < gapEnd {
			gapEnd = u.endpoints[idx] - 1
		}
		gaps = append(gaps, GenomicInterval{Chrom: u.chrom, Start: pos, End: gapEnd})
		pos = gapEnd + 1
		idx++
	}
	return gaps
}
