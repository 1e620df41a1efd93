// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"github.com/pkg/errors"
)

// ImportFrom merges the part of src that overlaps s into s, leaving s's data
// outside the overlap untouched.  s acts as an accumulator: it may receive
// many small, out-of-order fragments before being copied into a View once.
//
// src is validated in the following order, and the first failure is returned
// without modifying s: ErrWrongChromosome, ErrWrongBuild, ErrWrongTrack,
// ErrNoOverlap, ErrMissingData, ErrUnknownPayload.  ErrTypeMismatch is
// returned if s already holds a payload of a different kind.
//
// Bytes and Numbers are overwritten position by position, so on conflicting
// positions the most recent import wins.  Regions of src that intersect s are
// rebased into s's frame and appended without deduplication.
func (s *Segment) ImportFrom(src *Segment) error {
	if err := s.CheckCompatible(src); err != nil {
		return err
	}
	if err := src.Validate(); err != nil {
		return err
	}
	overlap, _ := s.Interval.Intersection(src.Interval)
	srcOff := overlap.Start - src.Interval.Start
	dstOff := overlap.Start - s.Interval.Start
	n := overlap.Length()

	switch p := src.Payload.(type) {
	case Bytes:
		dst, err := s.accumulatorBytes()
		if err != nil {
			return err
		}
		copy(dst[dstOff:dstOff+n], p[srcOff:srcOff+n])
	case Numbers:
		dst, err := s.accumulatorNumbers()
		if err != nil {
			return err
		}
		copy(dst[dstOff:dstOff+n], p[srcOff:srcOff+n])
	case Float32Numbers:
		dst, err := s.accumulatorNumbers()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			dst[dstOff+i] = float64(p[srcOff+i])
		}
	case Regions:
		var dst Regions
		switch cur := s.Payload.(type) {
		case nil:
			dst = Regions{}
		case Regions:
			dst = cur
		default:
			return errors.Wrapf(ErrTypeMismatch, "import regions into %v", s)
		}
		offset := src.Interval.Start - s.Interval.Start
		last := s.Interval.Length() - 1
		for _, r := range p {
			if rebased := r.Rebase(offset); rebased.Overlaps(0, last) {
				dst = append(dst, rebased)
			}
		}
		s.Payload = dst
	default:
		return errors.Wrapf(ErrUnknownPayload, "import %T into %v", src.Payload, s)
	}
	return nil
}

// CheckCompatible runs the validation of ImportFrom without modifying s.
func (s *Segment) CheckCompatible(src *Segment) error {
	switch {
	case src.Interval.Chrom != s.Interval.Chrom:
		return errors.Wrapf(ErrWrongChromosome, "import %v into %v", src, s)
	case src.GenomeBuild != s.GenomeBuild:
		return errors.Wrapf(ErrWrongBuild, "import %v into %v", src, s)
	case src.TrackName != s.TrackName:
		return errors.Wrapf(ErrWrongTrack, "import %v into %v", src, s)
	case !s.Interval.Intersects(src.Interval):
		return errors.Wrapf(ErrNoOverlap, "import %v into %v", src, s)
	case src.Payload == nil:
		return errors.Wrapf(ErrMissingData, "import %v into %v", src, s)
	}
	switch src.Payload.(type) {
	case Bytes, Numbers, Float32Numbers, Regions:
		return nil
	}
	return errors.Wrapf(ErrUnknownPayload, "import %T into %v", src.Payload, s)
}

func (s *Segment) accumulatorBytes() (Bytes, error) {
	switch cur := s.Payload.(type) {
	case nil:
		b := NewPayload(KindBytes, s.Interval.Length()).(Bytes)
		s.Payload = b
		return b, nil
	case Bytes:
		return cur, nil
	}
	return nil, errors.Wrapf(ErrTypeMismatch, "import bytes into %v", s)
}

func (s *Segment) accumulatorNumbers() (Numbers, error) {
	switch s.Payload.(type) {
	case nil, Numbers, Float32Numbers:
		return s.numbers(), nil
	}
	return nil, errors.Wrapf(ErrTypeMismatch, "import numbers into %v", s)
}
