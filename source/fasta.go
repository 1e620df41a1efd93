package source

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/tracks/encoding/fasta"
	"github.com/grailbio/tracks/track"
)

// FastaFetcher serves base-sequence tracks from a FASTA reference.  Bases are
// upper-cased and anything other than A, C, G, T is returned as 'N'.
type FastaFetcher struct {
	fa    fasta.Fasta
	close func(context.Context) error
}

// NewFastaFetcher returns a fetcher reading from fa.  fa should have been
// created with fasta.DefaultOpts.
func NewFastaFetcher(fa fasta.Fasta) *FastaFetcher {
	return &FastaFetcher{fa: fa}
}

// OpenFasta opens the FASTA file at path; see fasta.Open.
func OpenFasta(ctx context.Context, path string) (*FastaFetcher, error) {
	f, err := fasta.Open(ctx, path, fasta.DefaultOpts)
	if err != nil {
		return nil, err
	}
	return &FastaFetcher{fa: f, close: f.Close}, nil
}

// Close implements Closer.
func (f *FastaFetcher) Close(ctx context.Context) error {
	if f.close == nil {
		return nil
	}
	return f.close(ctx)
}

// Fetch implements Fetcher.  The returned Segment is clipped to the
// chromosome; no Segment is returned for unknown chromosomes or intervals
// past the chromosome end.
func (f *FastaFetcher) Fetch(ctx context.Context, req Request) ([]*track.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := f.fa.Len(req.Interval.Chrom)
	if err != nil {
		if errors.Is(errors.NotExist, err) {
			return nil, nil
		}
		return nil, err
	}
	iv, ok := req.Interval.Clamp(0, n-1)
	if !ok {
		return nil, nil
	}
	seq, err := f.fa.Read(make([]byte, 0, iv.Length()), iv.Chrom, iv.Start, iv.End+1)
	if err != nil {
		return nil, errors.E(err, "source: read", req.String())
	}
	seg := req.Track.NewSegment(iv)
	seg.SaveToCache = true
	seg.Payload = track.Bytes(seq)
	return []*track.Segment{seg}, nil
}
