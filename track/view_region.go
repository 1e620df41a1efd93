// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	biointerval "github.com/biogo/store/interval"
	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/tracks/interval"
	"github.com/pkg/errors"
)

// RegionView holds the annotated regions of one sequence, in the view's
// local frame.  Regions may extend past either end of the buffer as long as
// they overlap it.
//
// AddRegion suppresses duplicates: a region is already present if a stored
// region has the same Start, End and Label.
type RegionView struct {
	baseView
	regions []Region
	// index maps a hash of (Start, End, Label) to positions in regions.
	index map[uint64][]int
	tree  *biointerval.IntTree
}

// NewRegionView returns an empty RegionView covering iv.
func NewRegionView(name string, dataset DatasetID, iv interval.GenomicInterval) *RegionView {
	return &RegionView{
		baseView: baseView{name: name, dataset: dataset, iv: iv},
		index:    map[uint64][]int{},
		tree:     &biointerval.IntTree{},
	}
}

// regionEntry adapts an entry of RegionView.regions to biointerval.IntTree.
// The range is half-open.
type regionEntry struct {
	start, limit int
	id           uintptr
}

func (e regionEntry) Overlap(b biointerval.IntRange) bool {
	return e.limit > b.Start && e.start < b.End
}
func (e regionEntry) ID() uintptr                 { return e.id }
func (e regionEntry) Range() biointerval.IntRange { return biointerval.IntRange{Start: e.start, End: e.limit} }

func regionKey(r Region) uint64 {
	buf := make([]byte, 16+len(r.Label))
	binary.LittleEndian.PutUint64(buf[0:], uint64(r.Start))
	binary.LittleEndian.PutUint64(buf[8:], uint64(r.End))
	copy(buf[16:], r.Label)
	return farm.Hash64(buf)
}

// Kind implements View.
func (v *RegionView) Kind() PayloadKind { return KindRegions }

// Regions returns the stored regions in insertion order.  The caller must not
// modify them.
func (v *RegionView) Regions() []Region { return v.regions }

// NumRegions returns the number of stored regions.
func (v *RegionView) NumRegions() int { return len(v.regions) }

// Contains returns true iff a region with r's span and label is stored.
func (v *RegionView) Contains(r Region) bool {
	for _, i := range v.index[regionKey(r)] {
		if v.regions[i].SameSpanAndLabel(r) {
			return true
		}
	}
	return false
}

// AddRegion stores a copy of r, which must be in the view's local frame.  It
// returns false, leaving the view unchanged, if r is already present.
func (v *RegionView) AddRegion(r Region) bool {
	if v.Contains(r) {
		return false
	}
	v.insert(r.Clone())
	return true
}

func (v *RegionView) insert(r Region) {
	i := len(v.regions)
	v.regions = append(v.regions, r)
	key := regionKey(r)
	v.index[key] = append(v.index[key], i)
	if r.End < r.Start {
		return
	}
	if err := v.tree.Insert(regionEntry{start: r.Start, limit: r.End + 1, id: uintptr(i)}, false); err != nil {
		panic(fmt.Sprintf("%s: index region %v: %v", v.name, r, err))
	}
}

// overlapping returns copies of the regions overlapping the buffer index
// range [start, end], ordered by Start, then End, then insertion order.
func (v *RegionView) overlapping(start, end int) []Region {
	hits := v.tree.Get(regionEntry{start: start, limit: end + 1})
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = int(h.ID())
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := v.regions[ids[i]], v.regions[ids[j]]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return ids[i] < ids[j]
	})
	out := make([]Region, len(ids))
	for i, id := range ids {
		out[i] = v.regions[id].Clone()
	}
	return out
}

// RegionsAtRelative returns the regions covering buffer index pos.
func (v *RegionView) RegionsAtRelative(pos int) ([]Region, error) {
	if err := v.checkIndex(pos); err != nil {
		return nil, err
	}
	return v.overlapping(pos, pos), nil
}

// RegionsAtGenomic returns the regions covering genomic position pos.
func (v *RegionView) RegionsAtGenomic(pos int) ([]Region, error) {
	return v.RegionsAtRelative(v.GenomicToRelative(pos))
}

// SetRelative is AddRegion with a bounds check: r must overlap the buffer.
func (v *RegionView) SetRelative(r Region) (bool, error) {
	if !r.Overlaps(0, v.Len()-1) {
		return false, errors.Wrapf(ErrOutOfBounds, "%s: region %v", v.name, r)
	}
	return v.AddRegion(r), nil
}

// RegionsInGenomicInterval returns copies of the regions overlapping
// [start, end] clamped to the view, in the view's local frame.  It returns
// ErrNoData if the clamped range is empty.
func (v *RegionView) RegionsInGenomicInterval(start, end int) ([]Region, error) {
	from, to, err := v.clampGenomic(start, end)
	if err != nil {
		return nil, err
	}
	return v.overlapping(from, to), nil
}

// Crop implements View.  Regions are rebased into the new frame; regions
// that no longer overlap the buffer are dropped.
func (v *RegionView) Crop(start, end int) error {
	changed, err := v.checkCrop(start, end)
	if !changed || err != nil {
		return err
	}
	old := v.regions
	v.regions = nil
	v.index = map[uint64][]int{}
	v.tree = &biointerval.IntTree{}
	last := end - start
	for _, r := range old {
		if r = r.Rebase(-start); r.Overlaps(0, last) {
			v.insert(r)
		}
	}
	v.cropInterval(start, end)
	return nil
}

// sortedRegions returns the regions ordered by Start, End and Label.
func (v *RegionView) sortedRegions() []Region {
	s := append([]Region(nil), v.regions...)
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Start != s[j].Start {
			return s[i].Start < s[j].Start
		}
		if s[i].End != s[j].End {
			return s[i].End < s[j].End
		}
		return s[i].Label < s[j].Label
	})
	return s
}

// ContainsSameData implements View.  Insertion order is ignored.
func (v *RegionView) ContainsSameData(other View) bool {
	o, ok := other.(*RegionView)
	if !ok || v.iv != o.iv || len(v.regions) != len(o.regions) {
		return false
	}
	a, b := v.sortedRegions(), o.sortedRegions()
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Clone implements View.
func (v *RegionView) Clone() View {
	c := NewRegionView(v.name, v.dataset, v.iv)
	for _, r := range v.regions {
		c.insert(r.Clone())
	}
	return c
}

func (v *RegionView) writeFingerprint(w io.Writer) {
	v.writeHeader(w, KindRegions)
	var write func(rs []Region, depth int)
	write = func(rs []Region, depth int) {
		for _, r := range rs {
			fmt.Fprintf(w, "%d\x00%d\x00%d\x00%q\x00%g\x00%d\x00", depth, r.Start, r.End, r.Label, r.Score, r.Orientation)
			write(r.Nested, depth+1)
		}
	}
	write(v.sortedRegions(), 0)
}
