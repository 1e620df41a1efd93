// Package source produces track Segments from external data files: FASTA
// for base sequences, BED for annotated regions and bedGraph for numeric
// scores.  Genomic positions are 0-based and inclusive.
//
// A Fetcher returns zero or more Segments for a requested interval.  The
// Segments may cover only part of the request (e.g. past the end of a
// chromosome) and are marked SaveToCache.
package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/tracks/interval"
	"github.com/grailbio/tracks/track"
	"github.com/klauspost/compress/gzip"
)

// TrackSpec identifies a track.  Its fields are copied into every Segment
// produced for the track.
type TrackSpec struct {
	Name        string
	Organism    int
	GenomeBuild string
	Kind        track.PayloadKind
}

func (s TrackSpec) String() string {
	return fmt.Sprintf("%s(%d/%s,%v)", s.Name, s.Organism, s.GenomeBuild, s.Kind)
}

// NewSegment returns an empty Segment for the track covering iv.
func (s TrackSpec) NewSegment(iv interval.GenomicInterval) *track.Segment {
	return track.NewSegment(s.Name, s.Organism, s.GenomeBuild, iv)
}

// Request asks for a track's data over an interval.
type Request struct {
	Track    TrackSpec
	Interval interval.GenomicInterval
}

func (r Request) String() string {
	return fmt.Sprintf("%v@%v", r.Track, r.Interval)
}

// Fetcher supplies Segments.  Fetch may block on I/O and must be safe for
// concurrent use.  A nil slice with a nil error means the source has no data
// for the request.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]*track.Segment, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) ([]*track.Segment, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) ([]*track.Segment, error) {
	return f(ctx, req)
}

// Closer is implemented by fetchers that hold open files.
type Closer interface {
	Close(ctx context.Context) error
}

// Close closes f if it implements Closer.
func Close(ctx context.Context, f Fetcher) error {
	if c, ok := f.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}

// Chunks splits iv into intervals aligned to multiples of size, so that the
// same chunk (and cache key) is produced for every request touching it.  The
// first and last chunk may extend past iv.  Chunks returns iv itself if size
// is not positive.
func Chunks(iv interval.GenomicInterval, size int) []interval.GenomicInterval {
	if iv.Empty() {
		return nil
	}
	if size <= 0 {
		return []interval.GenomicInterval{iv}
	}
	var chunks []interval.GenomicInterval
	for start := floorDiv(iv.Start, size) * size; start <= iv.End; start += size {
		chunks = append(chunks, interval.New(iv.Chrom, start, start+size-1))
	}
	return chunks
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// KindForPath returns the payload kind of the track data in the file at
// path, judged by its extension: .fa/.fasta/.fna for FASTA (bytes), .bed for
// BED (regions), .bedgraph/.bg for bedGraph (numbers), each optionally
// followed by .gz.  ok is false for other extensions.
func KindForPath(path string) (kind track.PayloadKind, ok bool) {
	base := strings.ToLower(strings.TrimSuffix(path, ".gz"))
	switch {
	case hasAnySuffix(base, ".fa", ".fasta", ".fna"):
		return track.KindBytes, true
	case hasAnySuffix(base, ".bed"):
		return track.KindRegions, true
	case hasAnySuffix(base, ".bedgraph", ".bg"):
		return track.KindNumbers, true
	}
	return track.KindEmpty, false
}

// Open returns a fetcher for the file at path, chosen as in KindForPath.
func Open(ctx context.Context, path string) (Fetcher, error) {
	kind, _ := KindForPath(path)
	switch kind {
	case track.KindBytes:
		return OpenFasta(ctx, path)
	case track.KindRegions:
		return OpenBED(ctx, path)
	case track.KindNumbers:
		return OpenBedGraph(ctx, path)
	}
	return nil, errors.E(errors.NotSupported, "source: unrecognized file type:", path)
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// readAll opens path, transparently decompressing gzip input, and passes the
// contents to read.
func readAll(ctx context.Context, path string, read func(io.Reader) error) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "source: open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return errors.E(err, "source: gzip", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	if err := read(r); err != nil {
		return errors.E(err, path)
	}
	return nil
}
