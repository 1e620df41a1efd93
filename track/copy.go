// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"github.com/pkg/errors"
)

// CopyResult reports the outcome of a successful CopyInto.
type CopyResult uint8

const (
	// NoOp means the segment had no payload and the view was not touched.
	NoOp CopyResult = iota
	// Applied means the payload was copied.  The view may still be unchanged
	// if the segment does not overlap it.
	Applied
)

func (r CopyResult) String() string {
	if r == NoOp {
		return "noop"
	}
	return "applied"
}

// CopyInto writes the part of s that overlaps target into target.  Positions
// of target outside the overlap are never modified.
//
// ErrTypeMismatch is returned if s's payload kind differs from target's.  It
// means the track is wired to the wrong dataset and the caller should abort.
//
// Region payloads are rebased into target's frame.  Regions that fall
// entirely outside the buffer are dropped; the rest are added through
// RegionView.AddRegion, which suppresses duplicates.
func (s *Segment) CopyInto(target View) (CopyResult, error) {
	if s.Payload == nil {
		return NoOp, nil
	}
	if s.Payload.Kind() != target.Kind() {
		return NoOp, errors.Wrapf(ErrTypeMismatch, "copy %v into %s (%v)", s, target.Name(), target.Kind())
	}
	if err := s.Validate(); err != nil {
		return NoOp, err
	}
	viv := target.Interval()
	overlap, ok := s.Interval.Intersection(viv)
	if !ok {
		return Applied, nil
	}
	srcOff := overlap.Start - s.Interval.Start
	dstOff := overlap.Start - viv.Start
	n := overlap.Length()

	switch p := s.Payload.(type) {
	case Bytes:
		v := target.(*DNAView)
		copy(v.buf[dstOff:dstOff+n], p[srcOff:srcOff+n])
	case Numbers:
		v := target.(*NumericView)
		copy(v.buf[dstOff:dstOff+n], p[srcOff:srcOff+n])
	case Float32Numbers:
		v := target.(*NumericView)
		for i := 0; i < n; i++ {
			v.buf[dstOff+i] = float64(p[srcOff+i])
		}
	case Regions:
		v := target.(*RegionView)
		offset := s.Interval.Start - viv.Start
		last := v.Len() - 1
		for _, r := range p {
			if rebased := r.Rebase(offset); rebased.Overlaps(0, last) {
				v.AddRegion(rebased)
			}
		}
	default:
		return NoOp, errors.Wrapf(ErrUnknownPayload, "copy %T into %s", s.Payload, target.Name())
	}
	return Applied, nil
}
