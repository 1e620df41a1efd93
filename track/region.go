// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"fmt"
)

// Region is an annotated span.  Start and End are inclusive offsets into
// whatever frame currently owns the region: a Segment's local frame before
// it is copied, a View's local frame afterwards.  Moving a region between
// frames is always done explicitly with Rebase.
type Region struct {
	Start       int
	End         int
	Label       string
	Score       float64
	Orientation Strand
	// Nested holds sub-regions (e.g. motif sites inside a module), in the
	// same frame as the parent.
	Nested []Region
}

// Rebase returns a deep copy of r with r and all nested regions translated
// by offset.
func (r Region) Rebase(offset int) Region {
	c := r
	c.Start += offset
	c.End += offset
	if r.Nested != nil {
		c.Nested = make([]Region, len(r.Nested))
		for i := range r.Nested {
			c.Nested[i] = r.Nested[i].Rebase(offset)
		}
	}
	return c
}

// Clone returns a deep copy of r.
func (r Region) Clone() Region {
	return r.Rebase(0)
}

// Overlaps returns true iff r shares at least one position with [start, end].
func (r Region) Overlaps(start, end int) bool {
	return r.Start <= end && start <= r.End
}

// Length returns the number of positions spanned by r.
func (r Region) Length() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// SameSpanAndLabel is the duplicate-suppression equality used by
// RegionView.AddRegion.
func (r Region) SameSpanAndLabel(o Region) bool {
	return r.Start == o.Start && r.End == o.End && r.Label == o.Label
}

// Equal returns true iff every field of r and o, including nested regions, is
// identical.
func (r Region) Equal(o Region) bool {
	if !r.SameSpanAndLabel(o) || r.Score != o.Score || r.Orientation != o.Orientation ||
		len(r.Nested) != len(o.Nested) {
		return false
	}
	for i := range r.Nested {
		if !r.Nested[i].Equal(o.Nested[i]) {
			return false
		}
	}
	return true
}

func (r Region) String() string {
	return fmt.Sprintf("%s[%d,%d]%c", r.Label, r.Start, r.End, r.Orientation.Byte())
}
