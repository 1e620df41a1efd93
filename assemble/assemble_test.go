// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package assemble_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/tracks/assemble"
	"github.com/grailbio/tracks/cache"
	"github.com/grailbio/tracks/encoding/fasta"
	"github.com/grailbio/tracks/interval"
	"github.com/grailbio/tracks/registry"
	"github.com/grailbio/tracks/source"
	"github.com/grailbio/tracks/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dnaSpec     = source.TrackSpec{Name: "dna", Organism: 1, GenomeBuild: "hg19", Kind: track.KindBytes}
	phyloPSpec  = source.TrackSpec{Name: "phyloP", Organism: 1, GenomeBuild: "hg19", Kind: track.KindNumbers}
	geneSpec    = source.TrackSpec{Name: "genes", Organism: 1, GenomeBuild: "hg19", Kind: track.KindRegions}
	referenceFa = ">chr1\nACGTACGTAC\nGGGGCCCCTT\nAAAATTTTNN\n>chr2\nCCCCCCCCCC\n"
)

func newRegistry(t *testing.T, kind track.PayloadKind, seqs ...registry.Sequence) *registry.Registry {
	r := registry.New("ds")
	require.NoError(t, r.AddSequences(kind, seqs))
	return r
}

func fastaFetcher(t *testing.T) *source.FastaFetcher {
	fa, err := fasta.New(strings.NewReader(referenceFa), fasta.DefaultOpts)
	require.NoError(t, err)
	return source.NewFastaFetcher(fa)
}

// countingFetcher records the requests passed to the wrapped fetcher.
type countingFetcher struct {
	source.Fetcher
	mu   sync.Mutex
	reqs []interval.GenomicInterval
}

func (f *countingFetcher) Fetch(ctx context.Context, req source.Request) ([]*track.Segment, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req.Interval)
	f.mu.Unlock()
	return f.Fetcher.Fetch(ctx, req)
}

func TestAssembleBytes(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, track.KindBytes, registry.Sequence{Name: "s1", Interval: interval.New("chr1", 5, 24)})
	fetcher := &countingFetcher{Fetcher: fastaFetcher(t)}
	opts := assemble.DefaultOpts
	opts.ChunkSize = 8
	a := assemble.New(reg, fetcher, opts)

	res, err := a.AssembleView(ctx, dnaSpec, "s1")
	require.NoError(t, err)
	assert.Equal(t, track.FullyPopulated, res.State)
	assert.Equal(t, 4, res.Applied)
	assert.Equal(t, 0, res.Skipped)
	assert.True(t, res.Changed)
	assert.Len(t, res.Missing, 0)
	assert.Equal(t, []interval.GenomicInterval{
		interval.New("chr1", 0, 7),
		interval.New("chr1", 8, 15),
		interval.New("chr1", 16, 23),
		interval.New("chr1", 24, 31),
	}, fetcher.reqs)

	v, err := reg.View("s1")
	require.NoError(t, err)
	assert.Equal(t, "CGTACGGGGCCCCTTAAAAT", string(v.(*track.DNAView).Bytes()))
	assert.Equal(t, track.DatasetID("ds"), v.Dataset())
	state, err := reg.State("s1")
	require.NoError(t, err)
	assert.Equal(t, track.FullyPopulated, state)

	// Same data again.
	res, err = a.AssembleView(ctx, dnaSpec, "s1")
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestAssemblePartial(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, track.KindBytes,
		registry.Sequence{Name: "tail", Interval: interval.New("chr1", 20, 39)},
		registry.Sequence{Name: "none", Interval: interval.New("chrX", 0, 9)})
	opts := assemble.DefaultOpts
	opts.ChunkSize = 8
	a := assemble.New(reg, fastaFetcher(t), opts)

	res, err := a.AssembleView(ctx, dnaSpec, "tail")
	require.NoError(t, err)
	assert.Equal(t, track.PartiallyPopulated, res.State)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, []interval.GenomicInterval{interval.New("chr1", 30, 39)}, res.Missing)
	v, err := reg.View("tail")
	require.NoError(t, err)
	assert.Equal(t, "AAAATTTTNNNNNNNNNNNN", string(v.(*track.DNAView).Bytes()))

	res, err = a.AssembleView(ctx, dnaSpec, "none")
	require.NoError(t, err)
	assert.Equal(t, track.Unpopulated, res.State)
	assert.False(t, res.Changed)
}

func numbersSegment(spec source.TrackSpec, iv interval.GenomicInterval, value float64) *track.Segment {
	seg := spec.NewSegment(iv)
	seg.AddNumericRange(iv.Start, iv.End, value)
	return seg
}

func TestAssembleOverlapOrder(t *testing.T) {
	for _, accumulate := range []bool{false, true} {
		ctx := context.Background()
		reg := newRegistry(t, track.KindNumbers, registry.Sequence{Name: "s", Interval: interval.New("chr2", 0, 9)})
		fetcher := source.FetcherFunc(func(ctx context.Context, req source.Request) ([]*track.Segment, error) {
			// Out of order; the later start applies last.
			return []*track.Segment{
				numbersSegment(req.Track, interval.New("chr2", 4, 9), 2),
				numbersSegment(req.Track, interval.New("chr2", 0, 5), 1),
			}, nil
		})
		opts := assemble.DefaultOpts
		opts.Accumulate = accumulate
		res, err := assemble.New(reg, fetcher, opts).AssembleView(ctx, phyloPSpec, "s")
		require.NoError(t, err)
		assert.Equal(t, track.FullyPopulated, res.State, "accumulate=%v", accumulate)
		assert.Equal(t, 2, res.Applied)
		v, err := reg.View("s")
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 1, 1, 1, 2, 2, 2, 2, 2, 2}, v.(*track.NumericView).Numbers(), "accumulate=%v", accumulate)
	}
}

func TestAssembleSkipsUnmergeable(t *testing.T) {
	for _, accumulate := range []bool{false, true} {
		ctx := context.Background()
		reg := newRegistry(t, track.KindNumbers, registry.Sequence{Name: "s", Interval: interval.New("chr2", 0, 9)})
		fetcher := source.FetcherFunc(func(ctx context.Context, req source.Request) ([]*track.Segment, error) {
			wrongBuild := req.Track
			wrongBuild.GenomeBuild = "hg38"
			wrongTrack := req.Track
			wrongTrack.Name = "gerp"
			return []*track.Segment{
				numbersSegment(wrongBuild, interval.New("chr2", 0, 9), 5),
				numbersSegment(wrongTrack, interval.New("chr2", 0, 9), 6),
				numbersSegment(req.Track, interval.New("chr3", 0, 9), 7),
				req.Track.NewSegment(interval.New("chr2", 0, 9)),
				numbersSegment(req.Track, interval.New("chr2", 2, 3), 1),
			}, nil
		})
		opts := assemble.DefaultOpts
		opts.Accumulate = accumulate
		res, err := assemble.New(reg, fetcher, opts).AssembleView(ctx, phyloPSpec, "s")
		require.NoError(t, err)
		assert.Equal(t, 3, res.Skipped)
		assert.Equal(t, 1, res.Applied)
		assert.Equal(t, track.PartiallyPopulated, res.State)
		v, err := reg.View("s")
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0, 1, 1, 0, 0, 0, 0, 0, 0}, v.(*track.NumericView).Numbers())
	}
}

func TestAssembleTypeMismatch(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, track.KindBytes, registry.Sequence{Name: "s", Interval: interval.New("chr2", 0, 9)})
	fetcher := source.FetcherFunc(func(ctx context.Context, req source.Request) ([]*track.Segment, error) {
		return []*track.Segment{numbersSegment(req.Track, interval.New("chr2", 0, 9), 1)}, nil
	})
	a := assemble.New(reg, fetcher, assemble.DefaultOpts)

	_, err := a.AssembleView(ctx, dnaSpec, "s")
	require.Error(t, err)
	assert.True(t, assemble.IsTypeMismatch(err))
	state, err := reg.State("s")
	require.NoError(t, err)
	assert.Equal(t, track.Unpopulated, state)

	_, err = a.AssembleView(ctx, phyloPSpec, "s")
	assert.True(t, assemble.IsTypeMismatch(err))

	_, err = a.AssembleView(ctx, dnaSpec, "missing")
	assert.True(t, errors.Is(errors.NotExist, err))
	assert.False(t, assemble.IsTypeMismatch(err))
}

func TestAssembleRegions(t *testing.T) {
	ctx := context.Background()
	bed, err := source.ReadBED(strings.NewReader("chr1\t5\t15\tgeneA\t0\t+\nchr1\t18\t30\tgeneB\t0\t-\n"))
	require.NoError(t, err)
	reg := newRegistry(t, track.KindRegions, registry.Sequence{Name: "s", Interval: interval.New("chr1", 0, 19)})
	opts := assemble.DefaultOpts
	opts.ChunkSize = 10
	res, err := assemble.New(reg, bed, opts).AssembleView(ctx, geneSpec, "s")
	require.NoError(t, err)
	assert.Equal(t, track.FullyPopulated, res.State)

	v, err := reg.View("s")
	require.NoError(t, err)
	rv := v.(*track.RegionView)
	// geneA is returned for both chunks but stored once.
	assert.Equal(t, 2, rv.NumRegions())
	got, err := rv.RegionsAtGenomic(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "geneA", got[0].Label)
	assert.Equal(t, 5, got[0].Start)
	assert.Equal(t, 14, got[0].End)
}

func TestAssembleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := newRegistry(t, track.KindBytes, registry.Sequence{Name: "s1", Interval: interval.New("chr1", 0, 29)})
	calls := 0
	fetcher := source.FetcherFunc(func(ctx context.Context, req source.Request) ([]*track.Segment, error) {
		calls++
		cancel()
		return nil, nil
	})
	opts := assemble.DefaultOpts
	opts.ChunkSize = 10
	_, err := assemble.New(reg, fetcher, opts).AssembleView(ctx, dnaSpec, "s1")
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 1, calls)
	state, err := reg.State("s1")
	require.NoError(t, err)
	assert.Equal(t, track.Unpopulated, state)
}

func TestAssembleAll(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, track.KindBytes,
		registry.Sequence{Name: "a", Interval: interval.New("chr1", 0, 9)},
		registry.Sequence{Name: "b", Interval: interval.New("chr1", 25, 34)},
		registry.Sequence{Name: "c", Interval: interval.New("chr2", 0, 9)},
		registry.Sequence{Name: "d", Interval: interval.New("chr3", 0, 9)})
	var (
		mu        sync.Mutex
		published = map[string]track.State{}
	)
	reg.AddListener(registry.ListenerFunc(func(name string, v track.View, state track.State) {
		mu.Lock()
		published[name] = state
		mu.Unlock()
	}))
	opts := assemble.DefaultOpts
	opts.Parallelism = 2
	results, err := assemble.New(reg, fastaFetcher(t), opts).AssembleAll(ctx, dnaSpec)
	require.NoError(t, err)
	require.Len(t, results, 4)
	want := map[string]track.State{
		"a": track.FullyPopulated,
		"b": track.PartiallyPopulated,
		"c": track.FullyPopulated,
		"d": track.Unpopulated,
	}
	for _, res := range results {
		assert.Equal(t, want[res.Name], res.State, res.Name)
	}
	assert.Equal(t, want, published)
}

func TestAssembleAllError(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, track.KindBytes,
		registry.Sequence{Name: "a", Interval: interval.New("chr1", 0, 9)},
		registry.Sequence{Name: "b", Interval: interval.New("chr2", 0, 9)})
	fetcher := source.FetcherFunc(func(ctx context.Context, req source.Request) ([]*track.Segment, error) {
		if req.Interval.Chrom == "chr2" {
			return nil, errors.E(errors.Unavailable, "source offline")
		}
		seg := req.Track.NewSegment(req.Interval)
		seg.InitializeDefaultPayload(track.KindBytes)
		return []*track.Segment{seg}, nil
	})
	opts := assemble.DefaultOpts
	opts.Parallelism = 1
	_, err := assemble.New(reg, fetcher, opts).AssembleAll(ctx, dnaSpec)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Unavailable, err))
}

func TestAssembleAllFirstErrorWins(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, track.KindBytes,
		registry.Sequence{Name: "a", Interval: interval.New("chr1", 0, 9)},
		registry.Sequence{Name: "b", Interval: interval.New("chr2", 0, 9)},
		registry.Sequence{Name: "c", Interval: interval.New("chr3", 0, 9)},
		registry.Sequence{Name: "d", Interval: interval.New("chr4", 0, 9)})
	fetcher := source.FetcherFunc(func(ctx context.Context, req source.Request) ([]*track.Segment, error) {
		if req.Interval.Chrom == "chr3" {
			return nil, errors.E(errors.Unavailable, "source offline")
		}
		// The other views wait until the failure cancels them.
		<-ctx.Done()
		return nil, ctx.Err()
	})
	opts := assemble.DefaultOpts
	opts.Parallelism = 4
	_, err := assemble.New(reg, fetcher, opts).AssembleAll(ctx, dnaSpec)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Unavailable, err), "got %v", err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = assemble.New(reg, fastaFetcher(t), opts).AssembleAll(cctx, dnaSpec)
	assert.Equal(t, context.Canceled, err)
	for _, name := range reg.Names() {
		state, err := reg.State(name)
		require.NoError(t, err)
		assert.Equal(t, track.Unpopulated, state, name)
	}
}

func TestAssembleBedGraphCoverage(t *testing.T) {
	ctx := context.Background()
	bg, err := source.ReadBedGraph(strings.NewReader("chr1\t10\t20\t5\n"))
	require.NoError(t, err)
	reg := newRegistry(t, track.KindNumbers,
		registry.Sequence{Name: "some", Interval: interval.New("chr1", 0, 99)},
		registry.Sequence{Name: "all", Interval: interval.New("chr1", 12, 15)},
		registry.Sequence{Name: "none", Interval: interval.New("chr1", 50, 99)})
	a := assemble.New(reg, bg, assemble.DefaultOpts)

	res, err := a.AssembleView(ctx, phyloPSpec, "some")
	require.NoError(t, err)
	assert.Equal(t, track.PartiallyPopulated, res.State)
	assert.Equal(t, []interval.GenomicInterval{
		interval.New("chr1", 0, 9),
		interval.New("chr1", 20, 99),
	}, res.Missing)

	res, err = a.AssembleView(ctx, phyloPSpec, "all")
	require.NoError(t, err)
	assert.Equal(t, track.FullyPopulated, res.State)

	res, err = a.AssembleView(ctx, phyloPSpec, "none")
	require.NoError(t, err)
	assert.Equal(t, track.Unpopulated, res.State)
	assert.Equal(t, 0, res.Applied)
}

func TestAssembleMultiSourceCached(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "cache")
	defer cleanup()

	lo, err := source.ReadBedGraph(strings.NewReader("chr1\t10\t20\t5\n"))
	require.NoError(t, err)
	hi, err := source.ReadBedGraph(strings.NewReader("chr1\t500\t600\t7\n"))
	require.NoError(t, err)
	loGenes, err := source.ReadBED(strings.NewReader("chr1\t10\t20\tA\n"))
	require.NoError(t, err)
	hiGenes, err := source.ReadBED(strings.NewReader("chr1\t500\t600\tB\n"))
	require.NoError(t, err)

	for _, accumulate := range []bool{false, true} {
		numbers := cache.NewCachingFetcher(cache.New(filepath.Join(dir, fmt.Sprint("numbers", accumulate)), cache.DefaultOpts), source.Multi{lo, hi})
		genes := cache.NewCachingFetcher(cache.New(filepath.Join(dir, fmt.Sprint("genes", accumulate)), cache.DefaultOpts), source.Multi{loGenes, hiGenes})
		opts := assemble.DefaultOpts
		opts.ChunkSize = 250
		opts.Accumulate = accumulate

		// The second run is served from the cache and must match the first.
		for run := 0; run < 2; run++ {
			reg := newRegistry(t, track.KindNumbers, registry.Sequence{Name: "s", Interval: interval.New("chr1", 0, 999)})
			res, err := assemble.New(reg, numbers, opts).AssembleView(ctx, phyloPSpec, "s")
			require.NoError(t, err)
			assert.Equal(t, track.PartiallyPopulated, res.State, "accumulate=%v run=%d", accumulate, run)
			v, err := reg.View("s")
			require.NoError(t, err)
			nv := v.(*track.NumericView)
			for pos, want := range map[int]float64{5: 0, 15: 5, 300: 0, 550: 7} {
				got, err := nv.ValueAtGenomic(pos)
				require.NoError(t, err)
				assert.Equal(t, want, got, "accumulate=%v run=%d pos=%d", accumulate, run, pos)
			}

			reg = newRegistry(t, track.KindRegions, registry.Sequence{Name: "s", Interval: interval.New("chr1", 0, 999)})
			_, err = assemble.New(reg, genes, opts).AssembleView(ctx, geneSpec, "s")
			require.NoError(t, err)
			v, err = reg.View("s")
			require.NoError(t, err)
			assert.Equal(t, 2, v.(*track.RegionView).NumRegions(), "accumulate=%v run=%d", accumulate, run)
		}
		assert.Equal(t, cache.Stats{Hits: 4, Misses: 4, Writes: 4}, numbers.Stats())
		assert.Equal(t, cache.Stats{Hits: 4, Misses: 4, Writes: 4}, genes.Stats())
	}
}
