package source

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/tracks/track"
)

type bedGraphEntry struct {
	start, end int
	value      float64
}

// BedGraphFetcher serves numeric tracks from an in-memory bedGraph file.
// Positions not covered by any entry have no data; in a View they keep the
// default value 0.
type BedGraphFetcher struct {
	chroms map[string][]bedGraphEntry
}

// OpenBedGraph reads the (optionally gzipped) bedGraph file at path.
func OpenBedGraph(ctx context.Context, path string) (*BedGraphFetcher, error) {
	var b *BedGraphFetcher
	err := readAll(ctx, path, func(r io.Reader) (err error) {
		b, err = ReadBedGraph(r)
		return
	})
	return b, err
}

// ReadBedGraph parses a bedGraph file ("chrom start end value").  Entries of
// a chromosome must not overlap.
func ReadBedGraph(r io.Reader) (*BedGraphFetcher, error) {
	b := &BedGraphFetcher{chroms: map[string][]bedGraphEntry{}}
	var tokens [4][]byte
	n := 0
	err := scanLines(r, tokens[:], 4, func(lineIdx, _ int) error {
		start, end, ok, err := parseSpan(tokens[1], tokens[2], lineIdx)
		if err != nil || !ok {
			return err
		}
		v, err := strconv.ParseFloat(gunsafe.BytesToString(tokens[3]), 64)
		if err != nil {
			return errors.E(errors.Invalid, err, fmt.Sprintf("bad value on line %d", lineIdx))
		}
		chrom := string(tokens[0])
		b.chroms[chrom] = append(b.chroms[chrom], bedGraphEntry{start, end, v})
		n++
		return nil
	})
	if err != nil {
		return nil, err
	}
	for chrom, entries := range b.chroms {
		sort.Slice(entries, func(i, j int) bool { return entries[i].start < entries[j].start })
		for i := 1; i < len(entries); i++ {
			if entries[i].start <= entries[i-1].end {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("bedGraph: overlapping entries on %s at %d", chrom, entries[i].start))
			}
		}
	}
	log.Printf("bedGraph loaded, %d entries on %d chromosome(s)", n, len(b.chroms))
	return b, nil
}

// Fetch implements Fetcher.  It returns one Segment per run of contiguous
// entries, clipped to the request.  Positions no entry covers are not
// returned.
func (b *BedGraphFetcher) Fetch(ctx context.Context, req Request) ([]*track.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iv := req.Interval
	if iv.Empty() {
		return nil, nil
	}
	entries := b.chroms[iv.Chrom]
	i := sort.Search(len(entries), func(i int) bool { return entries[i].end >= iv.Start })
	var segs []*track.Segment
	for i < len(entries) && entries[i].start <= iv.End {
		j := i + 1
		for j < len(entries) && entries[j].start == entries[j-1].end+1 && entries[j].start <= iv.End {
			j++
		}
		run, _ := iv.Clamp(entries[i].start, entries[j-1].end)
		seg := req.Track.NewSegment(run)
		seg.SaveToCache = true
		for _, e := range entries[i:j] {
			seg.AddNumericRange(e.start, e.end, e.value)
		}
		segs = append(segs, seg)
		i = j
	}
	return segs, nil
}
