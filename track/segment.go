// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"fmt"
	"sort"

	"github.com/grailbio/tracks/interval"
	"github.com/pkg/errors"
)

// Segment is a bounded fragment of one track's data.  For Bytes and Numbers
// payloads, Payload.Len() == Interval.Length().
//
// A Segment is produced by a cache reader or fetcher, consumed once by
// ImportFrom or CopyInto, and then discarded.  It is never shared between
// goroutines.
type Segment struct {
	TrackName   string
	Organism    int
	GenomeBuild string
	Interval    interval.GenomicInterval
	Payload     Payload
	// SaveToCache marks segments fetched from an external source that should
	// be written back to the disk cache.
	SaveToCache bool
}

// NewSegment returns a Segment with no payload.
func NewSegment(trackName string, organism int, genomeBuild string, iv interval.GenomicInterval) *Segment {
	return &Segment{
		TrackName:   trackName,
		Organism:    organism,
		GenomeBuild: genomeBuild,
		Interval:    iv,
	}
}

// FileName returns the cache key of the segment:
//   {TrackName}_{Organism}_{GenomeBuild}_{Chrom}_{Start}_{End}
// The key names persisted cache entries and must never change format.
func (s *Segment) FileName() string {
	return fmt.Sprintf("%s_%d_%s_%s_%d_%d", s.TrackName, s.Organism, s.GenomeBuild,
		s.Interval.Chrom, s.Interval.Start, s.Interval.End)
}

func (s *Segment) String() string {
	return fmt.Sprintf("%s/%s/%v(%v)", s.TrackName, s.GenomeBuild, s.Interval, KindOf(s.Payload))
}

// HasPayload returns true iff the segment carries data.
func (s *Segment) HasPayload() bool {
	return s.Payload != nil
}

// Validate checks the payload-length invariant.
func (s *Segment) Validate() error {
	switch p := s.Payload.(type) {
	case Bytes, Numbers, Float32Numbers:
		if p.Len() != s.Interval.Length() {
			return errors.Wrapf(ErrOutOfBounds, "%v: payload has %d values for %d positions",
				s, p.Len(), s.Interval.Length())
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Segment) Clone() *Segment {
	c := *s
	c.Payload = ClonePayload(s.Payload)
	return &c
}

// derive returns an empty segment with the same identity as s, covering iv.
func (s *Segment) derive(iv interval.GenomicInterval) *Segment {
	return &Segment{
		TrackName:   s.TrackName,
		Organism:    s.Organism,
		GenomeBuild: s.GenomeBuild,
		Interval:    iv,
		SaveToCache: s.SaveToCache,
	}
}

// EmptySubSegment returns a payload-less segment anchored at
// Interval.Start+relativeStart spanning size positions, truncated at the end
// of s.  ok is false if relativeStart lies outside s or size < 1.
func (s *Segment) EmptySubSegment(relativeStart, size int) (sub *Segment, ok bool) {
	if relativeStart < 0 || relativeStart >= s.Interval.Length() || size < 1 {
		return nil, false
	}
	start := s.Interval.Start + relativeStart
	iv, ok := s.Interval.Clamp(start, start+size-1)
	if !ok {
		return nil, false
	}
	return s.derive(iv), true
}

// EmptySubSegmentForGenomicRange returns a payload-less segment covering
// [start, end] clamped to s's bounds.  ok is false if the range lies entirely
// outside s.
func (s *Segment) EmptySubSegmentForGenomicRange(start, end int) (sub *Segment, ok bool) {
	iv, ok := s.Interval.Clamp(start, end)
	if !ok {
		return nil, false
	}
	return s.derive(iv), true
}

// InitializeDefaultPayload replaces the payload with the default payload of
// the given kind; see NewPayload.
func (s *Segment) InitializeDefaultPayload(kind PayloadKind) {
	s.Payload = NewPayload(kind, s.Interval.Length())
}

// AddRegion appends r (in s's local frame) to the payload.  If the payload is
// not a region list, it is replaced by a new list holding only r; any
// existing bytes or numbers are discarded.
func (s *Segment) AddRegion(r Region) {
	if regions, ok := s.Payload.(Regions); ok {
		s.Payload = append(regions, r)
		return
	}
	s.Payload = Regions{r}
}

// AddNumericRange sets every position of the genomic range [start, end] that
// lies inside s to value.  A Numbers payload is allocated if needed; a
// Float32Numbers payload is upconverted first.
func (s *Segment) AddNumericRange(start, end int, value float64) {
	iv, ok := s.Interval.Clamp(start, end)
	if !ok {
		return
	}
	values := s.numbers()
	for i := iv.Start - s.Interval.Start; i <= iv.End-s.Interval.Start; i++ {
		values[i] = value
	}
}

// numbers returns the payload as Numbers, converting or allocating it as
// needed.
func (s *Segment) numbers() Numbers {
	switch p := s.Payload.(type) {
	case Numbers:
		return p
	case Float32Numbers:
		n := p.Float64()
		s.Payload = n
		return n
	}
	n := NewPayload(KindNumbers, s.Interval.Length()).(Numbers)
	s.Payload = n
	return n
}

// Compare orders segments by chromosome, then ascending start, then end.
func (s *Segment) Compare(o *Segment) int {
	return s.Interval.Compare(o.Interval)
}

// SortSegments sorts segs by ascending start.  Segments with equal intervals
// keep their relative order.
func SortSegments(segs []*Segment) {
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Compare(segs[j]) < 0 })
}
