// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package cache persists track Segments on local disk or S3.  An entry holds
// the Segments that answered one fetch request, in order, as one recordio
// file named after the request's cache key, track.Segment.FileName(), plus
// the ".rio" suffix.  Entries are written once and replaced whole.
package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/tracks/interval"
	"github.com/grailbio/tracks/track"
)

func init() {
	recordiozstd.Init()
}

// Suffix is appended to cache keys to form file names.
const Suffix = ".rio"

// Codecs for entry payloads.
const (
	// CodecZstd compresses the fragment records with the recordio zstd
	// transformer.
	CodecZstd = "zstd"
	// CodecSnappy compresses each fragment record with snappy before it is
	// written.
	CodecSnappy = "snappy"
	// CodecNone stores the payload uncompressed.
	CodecNone = "none"
)

const trailerVersion = 2

// Header keys.
const (
	hdrTrack    = "track"
	hdrOrganism = "organism"
	hdrBuild    = "build"
	hdrChrom    = "chrom"
	hdrStart    = "start"
	hdrEnd      = "end"
	hdrCodec    = "codec"
)

// Opts controls how entries are written and read.
type Opts struct {
	// Codec is one of CodecZstd, CodecSnappy or CodecNone.
	Codec string
	// Verify checks the fragment checksums when reading.
	Verify bool
}

// DefaultOpts are the default cache options.
var DefaultOpts = Opts{Codec: CodecZstd, Verify: true}

// Store is a directory of cache entries.  Dir may be a local path or an
// s3:// URL.  A Store is safe for concurrent use; concurrent Puts of the same
// key leave one complete entry.
type Store struct {
	Dir  string
	Opts Opts
}

// New returns a Store rooted at dir.
func New(dir string, opts Opts) *Store {
	return &Store{Dir: dir, Opts: opts}
}

// Path returns the path of the entry for key.
func (s *Store) Path(key string) string {
	return file.Join(s.Dir, key+Suffix)
}

// Put writes the Segments answering one request under id.FileName().  id
// identifies the request (track, organism, build and interval); its payload
// is ignored.  segs may be empty, recording that the request has no data.
// Segments without payload are skipped, and every stored Segment must belong
// to id's track, build and chromosome.  Segments are returned by Get in the
// order given.
func (s *Store) Put(ctx context.Context, id *track.Segment, segs []*track.Segment) (err error) {
	var transformers []string
	switch s.Opts.Codec {
	case CodecZstd, "":
		transformers = []string{recordiozstd.Name}
	case CodecSnappy:
	case CodecNone:
	default:
		return errors.E(errors.Invalid, "cache: unknown codec", s.Opts.Codec)
	}
	var (
		records   [][]byte
		checksums []uint64
		rawLens   []int
		rawTotal  int
	)
	for _, seg := range segs {
		if !seg.HasPayload() {
			continue
		}
		if seg.TrackName != id.TrackName || seg.Organism != id.Organism ||
			seg.GenomeBuild != id.GenomeBuild || seg.Interval.Chrom != id.Interval.Chrom {
			return errors.E(errors.Invalid, "cache: segment", seg.String(), "does not belong to", id.FileName())
		}
		if err = seg.Validate(); err != nil {
			return err
		}
		data, err := marshalFragment(seg)
		if err != nil {
			return err
		}
		checksums = append(checksums, seahash.Sum64(data))
		rawLens = append(rawLens, len(data))
		rawTotal += len(data)
		if s.Opts.Codec == CodecSnappy {
			data = snappy.Encode(nil, data)
		}
		records = append(records, data)
	}

	path := s.Path(id.FileName())
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "cache: create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: transformers,
	})
	iv := id.Interval
	w.AddHeader(hdrTrack, id.TrackName)
	w.AddHeader(hdrOrganism, strconv.Itoa(id.Organism))
	w.AddHeader(hdrBuild, id.GenomeBuild)
	w.AddHeader(hdrChrom, iv.Chrom)
	w.AddHeader(hdrStart, strconv.Itoa(iv.Start))
	w.AddHeader(hdrEnd, strconv.Itoa(iv.End))
	w.AddHeader(hdrCodec, codecName(s.Opts.Codec))
	w.AddHeader(recordio.KeyTrailer, true)
	for _, data := range records {
		w.Append(data)
	}
	w.SetTrailer(entryTrailer(checksums, rawLens))
	if err = w.Finish(); err != nil {
		return errors.E(err, "cache: write", path)
	}
	if log.At(log.Debug) {
		log.Debug.Printf("cache: wrote %s (%d fragment(s), %d bytes)", path, len(records), rawTotal)
	}
	return nil
}

func codecName(c string) string {
	if c == "" {
		return CodecZstd
	}
	return c
}

// The trailer holds the version, the number of fragment records, and the
// seahash checksum and length of each uncompressed record.
func entryTrailer(checksums []uint64, rawLens []int) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, int64(trailerVersion)); err != nil {
		panic("couldn't write trailer version")
	}
	if err := binary.Write(&buf, binary.LittleEndian, int64(len(checksums))); err != nil {
		panic("couldn't write record count to trailer")
	}
	for i, checksum := range checksums {
		if err := binary.Write(&buf, binary.LittleEndian, checksum); err != nil {
			panic("couldn't write checksum to trailer")
		}
		if err := binary.Write(&buf, binary.LittleEndian, int64(rawLens[i])); err != nil {
			panic("couldn't write length to trailer")
		}
	}
	return buf.Bytes()
}

func parseTrailer(trailer []byte) (checksums []uint64, rawLens []int64, err error) {
	r := bytes.NewReader(trailer)
	var version, n int64
	if err = binary.Read(r, binary.LittleEndian, &version); err != nil {
		return
	}
	if version != trailerVersion {
		err = errors.E(errors.NotSupported, fmt.Sprintf("cache: unrecognized trailer version %d", version))
		return
	}
	if err = binary.Read(r, binary.LittleEndian, &n); err != nil {
		return
	}
	if n < 0 || n > int64(len(trailer)) {
		err = errors.E(errors.Integrity, fmt.Sprintf("cache: bad record count %d", n))
		return
	}
	checksums = make([]uint64, n)
	rawLens = make([]int64, n)
	for i := range checksums {
		if err = binary.Read(r, binary.LittleEndian, &checksums[i]); err != nil {
			return
		}
		if err = binary.Read(r, binary.LittleEndian, &rawLens[i]); err != nil {
			return
		}
	}
	return
}

// Get reads the entry for key and returns its Segments in the order they
// were written; an entry recording "no data" yields no Segments.  Get
// returns an error of kind errors.NotExist if there is no such entry, and
// errors.Integrity if the entry is corrupt.  The returned Segments are not
// marked SaveToCache.
func (s *Store) Get(ctx context.Context, key string) (segs []*track.Segment, err error) {
	path := s.Path(key)
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "cache: open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	scanner := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	defer scanner.Finish() // nolint: errcheck

	hdr := map[string]string{}
	for _, kv := range scanner.Header() {
		if v, ok := kv.Value.(string); ok {
			hdr[kv.Key] = v
		}
	}
	id, err := segmentFromHeader(hdr)
	if err != nil {
		return nil, errors.E(err, path)
	}
	if got := id.FileName(); got != key {
		return nil, errors.E(errors.Integrity, "cache:", path, "holds entry for", got)
	}
	var records [][]byte
	for scanner.Scan() {
		data := scanner.Get().([]byte)
		if hdr[hdrCodec] == CodecSnappy {
			if data, err = snappy.Decode(nil, data); err != nil {
				return nil, errors.E(errors.Integrity, err, "cache: snappy", path)
			}
		} else {
			data = append([]byte(nil), data...)
		}
		records = append(records, data)
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.E(err, path)
	}
	if s.Opts.Verify {
		checksums, rawLens, err := parseTrailer(scanner.Trailer())
		if err != nil {
			return nil, errors.E(errors.Integrity, err, "cache: trailer", path)
		}
		if len(checksums) != len(records) {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("cache: %s holds %d records, trailer lists %d", path, len(records), len(checksums)))
		}
		for i, data := range records {
			if int64(len(data)) != rawLens[i] || seahash.Sum64(data) != checksums[i] {
				return nil, errors.E(errors.Integrity, "cache: checksum mismatch", path)
			}
		}
	}
	for _, data := range records {
		seg, err := unmarshalFragment(id, data)
		if err != nil {
			return nil, errors.E(err, path)
		}
		if err = seg.Validate(); err != nil {
			return nil, errors.E(errors.Integrity, err, path)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func segmentFromHeader(hdr map[string]string) (*track.Segment, error) {
	for _, k := range []string{hdrTrack, hdrOrganism, hdrBuild, hdrChrom, hdrStart, hdrEnd} {
		if _, ok := hdr[k]; !ok {
			return nil, errors.E(errors.Integrity, "cache: missing header", k)
		}
	}
	organism, err := strconv.Atoi(hdr[hdrOrganism])
	if err != nil {
		return nil, errors.E(errors.Integrity, err, "cache: bad organism")
	}
	start, err := strconv.Atoi(hdr[hdrStart])
	if err != nil {
		return nil, errors.E(errors.Integrity, err, "cache: bad start")
	}
	end, err := strconv.Atoi(hdr[hdrEnd])
	if err != nil {
		return nil, errors.E(errors.Integrity, err, "cache: bad end")
	}
	return track.NewSegment(hdr[hdrTrack], organism, hdr[hdrBuild], interval.New(hdr[hdrChrom], start, end)), nil
}

// Remove deletes the entry for key.
func (s *Store) Remove(ctx context.Context, key string) error {
	path := s.Path(key)
	if err := file.Remove(ctx, path); err != nil {
		return errors.E(err, "cache: remove", path)
	}
	return nil
}

// List returns the keys of all entries in the store.  A missing directory
// is an empty store.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var keys []string
	lister := file.List(ctx, s.Dir, false)
	for lister.Scan() {
		if lister.IsDir() {
			continue
		}
		name := lister.Path()
		if i := strings.LastIndexAny(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		if strings.HasSuffix(name, Suffix) {
			keys = append(keys, strings.TrimSuffix(name, Suffix))
		}
	}
	if err := lister.Err(); err != nil && !errors.Is(errors.NotExist, err) {
		return nil, errors.E(err, "cache: list", s.Dir)
	}
	return keys, nil
}
