// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

// Strand is the orientation of a region or of a sequence relative to the
// reference.
type Strand int8

const (
	// StrandNone means undetermined orientation.
	StrandNone Strand = 0
	// StrandDirect is the reference (+) strand.
	StrandDirect Strand = 1
	// StrandReverse is the reverse (-) strand.
	StrandReverse Strand = -1
)

// Byte returns '+', '-' or '.'.
func (s Strand) Byte() byte {
	switch s {
	case StrandDirect:
		return '+'
	case StrandReverse:
		return '-'
	}
	return '.'
}

// ParseStrand maps '+', '-' and anything else to StrandDirect, StrandReverse
// and StrandNone.
func ParseStrand(b byte) Strand {
	switch b {
	case '+':
		return StrandDirect
	case '-':
		return StrandReverse
	}
	return StrandNone
}

// revComp8Table maps 'A'/'a' to 'T', 'C'/'c' to 'G', 'G'/'g' to 'C', 'T'/'t'
// to 'A', and everything else to 'N'.
var revComp8Table = func() (t [256]byte) {
	for i := range t {
		t[i] = 'N'
	}
	t['A'], t['a'] = 'T', 'T'
	t['C'], t['c'] = 'G', 'G'
	t['G'], t['g'] = 'C', 'C'
	t['T'], t['t'] = 'A', 'A'
	return
}()

// ReverseComp8Inplace reverse-complements ascii8[].
func ReverseComp8Inplace(ascii8 []byte) {
	nByte := len(ascii8)
	nByteDiv2 := nByte >> 1
	for idx, invIdx := 0, nByte-1; idx != nByteDiv2; idx, invIdx = idx+1, invIdx-1 {
		ascii8[idx], ascii8[invIdx] = revComp8Table[ascii8[invIdx]], revComp8Table[ascii8[idx]]
	}
	if nByte&1 == 1 {
		ascii8[nByteDiv2] = revComp8Table[ascii8[nByteDiv2]]
	}
}

// OrientBytes returns values as seen from the given strand.  Values returned
// by View accessors are always on the direct strand; callers that need the
// sequence's own orientation pass them through this function.  values is
// not modified.
func OrientBytes(values []byte, s Strand) []byte {
	out := append([]byte(nil), values...)
	if s == StrandReverse {
		ReverseComp8Inplace(out)
	}
	return out
}

// OrientNumbers is the numeric counterpart of OrientBytes: reverse-strand
// values are returned in reverse order.
func OrientNumbers(values []float64, s Strand) []float64 {
	out := append([]float64(nil), values...)
	if s == StrandReverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
