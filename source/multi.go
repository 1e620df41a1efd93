package source

import (
	"context"

	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/tracks/interval"
	"github.com/grailbio/tracks/track"
)

// Multi fetches from several sources of one track and concatenates their
// Segments in source order.  Where a later source has base or numeric data,
// it wins: the Segments of earlier sources are cut around it, so the result
// does not depend on the order in which the Segments are applied.  Regions
// from all sources are kept.
type Multi []Fetcher

// Fetch implements Fetcher.
func (m Multi) Fetch(ctx context.Context, req Request) ([]*track.Segment, error) {
	perSource := make([][]*track.Segment, len(m))
	for i, f := range m {
		segs, err := f.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		perSource[i] = segs
	}
	later := interval.NewUnion(req.Interval.Chrom)
	for i := len(perSource) - 1; i >= 0; i-- {
		var kept, covered []*track.Segment
		for _, seg := range perSource[i] {
			if !overwrites(seg) || seg.Interval.Chrom != req.Interval.Chrom {
				kept = append(kept, seg)
				continue
			}
			covered = append(covered, seg)
			gaps := later.Gaps(seg.Interval.Start, seg.Interval.End)
			if len(gaps) == 1 && gaps[0] == seg.Interval {
				kept = append(kept, seg)
				continue
			}
			for _, gap := range gaps {
				sub, _ := seg.EmptySubSegmentForGenomicRange(gap.Start, gap.End)
				if err := sub.ImportFrom(seg); err != nil {
					return nil, err
				}
				kept = append(kept, sub)
			}
		}
		for _, seg := range covered {
			later.AddInterval(seg.Interval)
		}
		perSource[i] = kept
	}
	var segs []*track.Segment
	for _, s := range perSource {
		segs = append(segs, s...)
	}
	return segs, nil
}

// overwrites returns true iff seg's data replaces what a View held before.
func overwrites(seg *track.Segment) bool {
	switch seg.Payload.(type) {
	case track.Bytes, track.Numbers, track.Float32Numbers:
		return true
	}
	return false
}

// Close closes every source and returns the first error.
func (m Multi) Close(ctx context.Context) error {
	var e errorreporter.T
	for _, f := range m {
		e.Set(Close(ctx, f))
	}
	return e.Err()
}

// OpenAll opens each of paths as in Open.  A single path yields its fetcher
// directly; several yield a Multi.  On error, the fetchers opened so far are
// closed.
func OpenAll(ctx context.Context, paths []string) (Fetcher, error) {
	if len(paths) == 1 {
		return Open(ctx, paths[0])
	}
	var m Multi
	for _, path := range paths {
		f, err := Open(ctx, path)
		if err != nil {
			_ = m.Close(ctx)
			return nil, err
		}
		m = append(m, f)
	}
	return m, nil
}
