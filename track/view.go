// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"fmt"
	"io"

	"github.com/grailbio/tracks/interval"
	"github.com/pkg/errors"
)

// DatasetID names the dataset (track) a View belongs to.  It is a lookup key
// into the registry that owns the dataset, never a reference to it.
type DatasetID string

// State describes how much of a View has been filled during assembly.
type State uint8

const (
	// Unpopulated views hold only sentinel/zero values.
	Unpopulated State = iota
	// PartiallyPopulated views have received at least one contribution, but
	// coverage of the full interval is not confirmed.
	PartiallyPopulated
	// FullyPopulated views have received a non-empty contribution at every
	// position.
	FullyPopulated
)

var stateNames = [...]string{"unpopulated", "partial", "full"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// View is the addressable buffer holding one biological sequence's track
// data over a fixed genomic interval.  Buffer length always equals
// Interval().Length(); only Crop changes it.
//
// The implementations are *DNAView, *NumericView and *RegionView.
type View interface {
	// Name returns the sequence name.
	Name() string
	// Dataset returns the id of the owning dataset.
	Dataset() DatasetID
	// SetDataset changes the owning dataset.  Only the registry calls this.
	SetDataset(id DatasetID)
	// Interval returns the genomic interval spanned by the buffer.
	Interval() interval.GenomicInterval
	// Len returns the buffer length.
	Len() int
	// Kind returns the payload kind the buffer holds.
	Kind() PayloadKind
	// RelativeToGenomic converts a buffer index to a genomic position.
	RelativeToGenomic(pos int) int
	// GenomicToRelative converts a genomic position to a buffer index.
	GenomicToRelative(pos int) int
	// Crop shrinks the buffer to the inclusive index range [start, end].
	Crop(start, end int) error
	// ContainsSameData returns true iff other has the same kind, interval and
	// contents.
	ContainsSameData(other View) bool
	// Clone returns a deep copy.
	Clone() View

	writeFingerprint(w io.Writer)
}

// NewView allocates an Unpopulated view of the given kind.
func NewView(kind PayloadKind, name string, dataset DatasetID, iv interval.GenomicInterval) (View, error) {
	switch kind {
	case KindBytes:
		return NewDNAView(name, dataset, iv), nil
	case KindNumbers:
		return NewNumericView(name, dataset, iv), nil
	case KindRegions:
		return NewRegionView(name, dataset, iv), nil
	}
	return nil, errors.Wrapf(ErrTypeMismatch, "no view for payload kind %v", kind)
}

// baseView holds the fields shared by all views.
type baseView struct {
	name    string
	dataset DatasetID
	iv      interval.GenomicInterval
}

func (v *baseView) Name() string                       { return v.name }
func (v *baseView) Dataset() DatasetID                 { return v.dataset }
func (v *baseView) SetDataset(id DatasetID)            { v.dataset = id }
func (v *baseView) Interval() interval.GenomicInterval { return v.iv }
func (v *baseView) Len() int                           { return v.iv.Length() }
func (v *baseView) RelativeToGenomic(pos int) int      { return v.iv.Start + pos }
func (v *baseView) GenomicToRelative(pos int) int      { return pos - v.iv.Start }

func (v *baseView) checkIndex(pos int) error {
	if pos < 0 || pos >= v.iv.Length() {
		return errors.Wrapf(ErrOutOfBounds, "%s: index %d outside [0,%d)", v.name, pos, v.iv.Length())
	}
	return nil
}

// checkCrop validates a crop request.  It returns changed=false when
// [start, end] already equals the full buffer.
func (v *baseView) checkCrop(start, end int) (changed bool, err error) {
	if end < start {
		return false, errors.Wrapf(ErrInvertedRange, "%s: crop [%d,%d]", v.name, start, end)
	}
	if start < 0 || end >= v.iv.Length() {
		return false, errors.Wrapf(ErrOutOfBounds, "%s: crop [%d,%d] of [0,%d]", v.name, start, end, v.iv.Length()-1)
	}
	return start != 0 || end != v.iv.Length()-1, nil
}

// cropInterval moves the interval to the buffer index range [start, end].
func (v *baseView) cropInterval(start, end int) {
	v.iv = interval.GenomicInterval{Chrom: v.iv.Chrom, Start: v.iv.Start + start, End: v.iv.Start + end}
}

// clampGenomic clamps the genomic range [start, end] to the view and returns
// the corresponding buffer indexes.
func (v *baseView) clampGenomic(start, end int) (from, to int, err error) {
	if end < start {
		return 0, 0, errors.Wrapf(ErrNoData, "%s: inverted range %d-%d", v.name, start, end)
	}
	iv, ok := v.iv.Clamp(start, end)
	if !ok {
		return 0, 0, errors.Wrapf(ErrNoData, "%s: %d-%d outside %v", v.name, start, end, v.iv)
	}
	return iv.Start - v.iv.Start, iv.End - v.iv.Start, nil
}

func (v *baseView) writeHeader(w io.Writer, kind PayloadKind) {
	fmt.Fprintf(w, "%v\x00%v\x00", kind, v.iv)
}
