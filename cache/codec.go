// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/tracks/interval"
	"github.com/grailbio/tracks/track"
)

// Payload encodings recorded in the "encoding" header.
const (
	encBytes   = "bytes"
	encFloat64 = "float64"
	encFloat32 = "float32"
	encRegions = "regions"
)

// marshalPayload serializes p and returns its encoding name.
func marshalPayload(p track.Payload) (enc string, data []byte, err error) {
	switch p := p.(type) {
	case track.Bytes:
		return encBytes, append([]byte(nil), p...), nil
	case track.Numbers:
		data = make([]byte, 8*len(p))
		for i, v := range p {
			binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
		}
		return encFloat64, data, nil
	case track.Float32Numbers:
		data = make([]byte, 4*len(p))
		for i, v := range p {
			binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
		}
		return encFloat32, data, nil
	case track.Regions:
		return encRegions, appendRegions(nil, p), nil
	}
	return "", nil, errors.E(errors.NotSupported, fmt.Sprintf("cache: cannot marshal %v payload", track.KindOf(p)))
}

func unmarshalPayload(enc string, data []byte) (track.Payload, error) {
	switch enc {
	case encBytes:
		return track.Bytes(append([]byte(nil), data...)), nil
	case encFloat64:
		if len(data)%8 != 0 {
			return nil, errors.E(errors.Integrity, "cache: truncated float64 payload")
		}
		p := make(track.Numbers, len(data)/8)
		for i := range p {
			p[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
		}
		return p, nil
	case encFloat32:
		if len(data)%4 != 0 {
			return nil, errors.E(errors.Integrity, "cache: truncated float32 payload")
		}
		p := make(track.Float32Numbers, len(data)/4)
		for i := range p {
			p[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
		}
		return p, nil
	case encRegions:
		p, rest, err := readRegions(data)
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			return nil, errors.E(errors.Integrity, "cache: trailing bytes after regions")
		}
		return p, nil
	}
	return nil, errors.E(errors.NotSupported, "cache: unknown payload encoding", enc)
}

// Regions are encoded as a uvarint count followed by, for each region:
// varint start, varint end, uvarint label length, label, 8-byte score,
// orientation byte, and the nested regions encoded recursively.
func appendRegions(buf []byte, regions []track.Region) []byte {
	var tmp [binary.MaxVarintLen64]byte
	putUvarint := func(v uint64) { buf = append(buf, tmp[:binary.PutUvarint(tmp[:], v)]...) }
	putVarint := func(v int64) { buf = append(buf, tmp[:binary.PutVarint(tmp[:], v)]...) }

	putUvarint(uint64(len(regions)))
	for _, r := range regions {
		putVarint(int64(r.Start))
		putVarint(int64(r.End))
		putUvarint(uint64(len(r.Label)))
		buf = append(buf, r.Label...)
		binary.LittleEndian.PutUint64(tmp[:8], math.Float64bits(r.Score))
		buf = append(buf, tmp[:8]...)
		buf = append(buf, byte(r.Orientation))
		buf = appendRegions(buf, r.Nested)
	}
	return buf
}

var errCorruptRegions = errors.E(errors.Integrity, "cache: corrupt region payload")

func readRegions(data []byte) (track.Regions, []byte, error) {
	n, k := binary.Uvarint(data)
	if k <= 0 || n > uint64(len(data)) {
		return nil, nil, errCorruptRegions
	}
	data = data[k:]
	regions := make(track.Regions, 0, n)
	for i := uint64(0); i < n; i++ {
		var r track.Region
		start, k := binary.Varint(data)
		if k <= 0 {
			return nil, nil, errCorruptRegions
		}
		data = data[k:]
		end, k := binary.Varint(data)
		if k <= 0 {
			return nil, nil, errCorruptRegions
		}
		data = data[k:]
		labelLen, k := binary.Uvarint(data)
		if k <= 0 || labelLen > uint64(len(data)-k) || uint64(len(data)-k)-labelLen < 9 {
			return nil, nil, errCorruptRegions
		}
		data = data[k:]
		r.Start, r.End = int(start), int(end)
		r.Label = string(data[:labelLen])
		data = data[labelLen:]
		r.Score = math.Float64frombits(binary.LittleEndian.Uint64(data[:8]))
		r.Orientation = track.Strand(int8(data[8]))
		data = data[9:]
		nested, rest, err := readRegions(data)
		if err != nil {
			return nil, nil, err
		}
		if len(nested) > 0 {
			r.Nested = nested
		}
		data = rest
		regions = append(regions, r)
	}
	return regions, data, nil
}

// A fragment record holds one Segment of an entry: uvarint encoding-name
// length, encoding name, varint start, varint end, and the payload.
func marshalFragment(seg *track.Segment) ([]byte, error) {
	enc, data, err := marshalPayload(seg.Payload)
	if err != nil {
		return nil, err
	}
	var tmp [binary.MaxVarintLen64]byte
	buf := make([]byte, 0, len(enc)+3*binary.MaxVarintLen64+len(data))
	buf = append(buf, tmp[:binary.PutUvarint(tmp[:], uint64(len(enc)))]...)
	buf = append(buf, enc...)
	buf = append(buf, tmp[:binary.PutVarint(tmp[:], int64(seg.Interval.Start))]...)
	buf = append(buf, tmp[:binary.PutVarint(tmp[:], int64(seg.Interval.End))]...)
	return append(buf, data...), nil
}

var errCorruptFragment = errors.E(errors.Integrity, "cache: corrupt fragment record")

// unmarshalFragment decodes a fragment record of the entry described by id.
func unmarshalFragment(id *track.Segment, data []byte) (*track.Segment, error) {
	encLen, k := binary.Uvarint(data)
	if k <= 0 || encLen > uint64(len(data)-k) {
		return nil, errCorruptFragment
	}
	data = data[k:]
	enc := string(data[:encLen])
	data = data[encLen:]
	start, k := binary.Varint(data)
	if k <= 0 {
		return nil, errCorruptFragment
	}
	data = data[k:]
	end, k := binary.Varint(data)
	if k <= 0 {
		return nil, errCorruptFragment
	}
	data = data[k:]
	seg := track.NewSegment(id.TrackName, id.Organism, id.GenomeBuild,
		interval.New(id.Interval.Chrom, int(start), int(end)))
	p, err := unmarshalPayload(enc, data)
	if err != nil {
		return nil, err
	}
	seg.Payload = p
	return seg, nil
}
