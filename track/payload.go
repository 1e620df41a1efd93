// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/simd"
)

// UnknownBase is the sentinel stored at byte positions that have not
// received data.
const UnknownBase = 'N'

// PayloadKind identifies the shape of a Payload or of a View's buffer.
type PayloadKind uint8

const (
	// KindEmpty means no payload.
	KindEmpty PayloadKind = iota
	// KindBytes is a byte (base) sequence.
	KindBytes
	// KindNumbers is a numeric sequence.
	KindNumbers
	// KindRegions is a list of annotated regions.
	KindRegions
)

var kindNames = [...]string{"empty", "bytes", "numbers", "regions"}

func (k PayloadKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("PayloadKind(%d)", k)
}

// ParseKind parses a kind name as accepted on the command line.  "dna" and
// "numeric"/"region" are accepted as synonyms.
func ParseKind(s string) (PayloadKind, error) {
	switch strings.ToLower(s) {
	case "bytes", "dna", "sequence":
		return KindBytes, nil
	case "numbers", "numeric":
		return KindNumbers, nil
	case "regions", "region":
		return KindRegions, nil
	case "empty", "":
		return KindEmpty, nil
	}
	return KindEmpty, fmt.Errorf("unknown payload kind %q", s)
}

// Payload is the data carried by a Segment.  It is one of Bytes, Numbers,
// Float32Numbers or Regions; a nil Payload means "no data".  The set of
// implementations is closed.
type Payload interface {
	// Kind returns the buffer kind the payload can be copied into.
	Kind() PayloadKind
	// Len returns the number of positions (Bytes, Numbers) or regions.
	Len() int

	clonePayload() Payload
}

// Bytes is a base sequence, one byte per genomic position.
type Bytes []byte

// Numbers is a numeric sequence, one value per genomic position.
type Numbers []float64

// Float32Numbers is a single-precision numeric sequence found in older cached
// data.  It is upconverted to Numbers whenever it is merged or copied.
type Float32Numbers []float32

// Regions is a list of regions in the owner's local frame.
type Regions []Region

// Kind implements Payload.
func (Bytes) Kind() PayloadKind { return KindBytes }

// Kind implements Payload.
func (Numbers) Kind() PayloadKind { return KindNumbers }

// Kind implements Payload.
func (Float32Numbers) Kind() PayloadKind { return KindNumbers }

// Kind implements Payload.
func (Regions) Kind() PayloadKind { return KindRegions }

// Len implements Payload.
func (p Bytes) Len() int { return len(p) }

// Len implements Payload.
func (p Numbers) Len() int { return len(p) }

// Len implements Payload.
func (p Float32Numbers) Len() int { return len(p) }

// Len implements Payload.
func (p Regions) Len() int { return len(p) }

func (p Bytes) clonePayload() Payload {
	return append(Bytes(nil), p...)
}

func (p Numbers) clonePayload() Payload {
	return append(Numbers(nil), p...)
}

func (p Float32Numbers) clonePayload() Payload {
	return append(Float32Numbers(nil), p...)
}

func (p Regions) clonePayload() Payload {
	c := make(Regions, len(p))
	for i := range p {
		c[i] = p[i].Clone()
	}
	return c
}

// Float64 returns the values upconverted to double precision.  No scaling is
// applied.
func (p Float32Numbers) Float64() Numbers {
	out := make(Numbers, len(p))
	for i, v := range p {
		out[i] = float64(v)
	}
	return out
}

// KindOf returns p.Kind(), or KindEmpty if p is nil.
func KindOf(p Payload) PayloadKind {
	if p == nil {
		return KindEmpty
	}
	return p.Kind()
}

// ClonePayload returns a deep copy of p.
func ClonePayload(p Payload) Payload {
	if p == nil {
		return nil
	}
	return p.clonePayload()
}

// NewPayload allocates the default payload of the given kind for n
// positions: bytes are filled with UnknownBase, numbers are zero, and regions
// start as an empty list.  It returns nil for KindEmpty.
func NewPayload(kind PayloadKind, n int) Payload {
	switch kind {
	case KindBytes:
		b := make(Bytes, n)
		simd.Memset8(b, UnknownBase)
		return b
	case KindNumbers:
		return make(Numbers, n)
	case KindRegions:
		return Regions{}
	}
	return nil
}
