// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"github.com/pkg/errors"
)

// Errors returned by ImportFrom.  They describe a fragment that cannot be
// merged into an accumulator; the caller may skip it and continue.
var (
	ErrWrongChromosome = errors.New("segment is on a different chromosome")
	ErrWrongBuild      = errors.New("segment is from a different genome build")
	ErrWrongTrack      = errors.New("segment belongs to a different track")
	ErrNoOverlap       = errors.New("segments do not overlap")
	ErrMissingData     = errors.New("segment has no payload")
	ErrUnknownPayload  = errors.New("unrecognized payload kind")
)

// ErrTypeMismatch is returned when a payload is copied or merged into a
// buffer of a different kind.  It indicates a track wired to the wrong
// dataset type and should abort the enclosing assembly.
var ErrTypeMismatch = errors.New("payload kind does not match target")

// Usage errors from position accessors and Crop.
var (
	ErrOutOfBounds   = errors.New("position out of bounds")
	ErrInvertedRange = errors.New("end precedes start")
	ErrNoData        = errors.New("no data in range")
)

// IsMergeError returns true iff err is one of the recoverable ImportFrom
// errors, i.e. the fragment can be skipped without aborting assembly.
func IsMergeError(err error) bool {
	switch errors.Cause(err) {
	case ErrWrongChromosome, ErrWrongBuild, ErrWrongTrack, ErrNoOverlap, ErrMissingData, ErrUnknownPayload:
		return true
	}
	return false
}
