package source

import (
	"bytes"
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

// bedFeatures holds one chromosome's features in genomic coordinates, sorted
// by start.
type bedFeatures struct {
	regions []track.Region
	// maxLen is the length of the longest region.
	maxLen int
}

// overlapping returns the regions intersecting [start, end].
func (f *bedFeatures) overlapping(start, end int) []track.Region {
	lo := sort.Search(len(f.regions), func(i int) bool { return f.regions[i].Start > start-f.maxLen })
	var out []track.Region
	for i := lo; i < len(f.regions) && f.regions[i].Start <= end; i++ {
		if f.regions[i].Overlaps(start, end) {
			out = append(out, f.regions[i])
		}
	}
	return out
}

// BEDFetcher serves region tracks from an in-memory BED file.  Columns after
// the third are optional: name becomes the region label, score the region
// score and strand its orientation.  BED12 blocks become nested regions.
type BEDFetcher struct {
	chroms map[string]*bedFeatures
}

// OpenBED reads the (optionally gzipped) BED file at path.
func OpenBED(ctx context.Context, path string) (*BEDFetcher, error) {
	var b *BEDFetcher
	err := readAll(ctx, path, func(r io.Reader) (err error) {
		b, err = ReadBED(r)
		return
	})
	return b, err
}

// ReadBED parses a BED file.  Input need not be sorted.
func ReadBED(r io.Reader) (*BEDFetcher, error) {
	b := &BEDFetcher{chroms: map[string]*bedFeatures{}}
	var tokens [12][]byte
	n := 0
	err := scanLines(r, tokens[:], 3, func(lineIdx, nToken int) error {
		start, end, ok, err := parseSpan(tokens[1], tokens[2], lineIdx)
		if err != nil || !ok {
			return err
		}
		reg := track.Region{Start: start, End: end}
		if nToken > 3 && !bytes.Equal(tokens[3], []byte(".")) {
			reg.Label = string(tokens[3])
		}
		if nToken > 4 && !bytes.Equal(tokens[4], []byte(".")) {
			if reg.Score, err = strconv.ParseFloat(gunsafe.BytesToString(tokens[4]), 64); err != nil {
				return errors.E(errors.Invalid, err, fmt.Sprintf("bad score on line %d", lineIdx))
			}
		}
		if nToken > 5 {
			reg.Orientation = track.ParseStrand(tokens[5][0])
		}
		if nToken == 12 {
			if reg.Nested, err = parseBlocks(reg, tokens[10], tokens[11], lineIdx); err != nil {
				return err
			}
		}
		chrom := string(tokens[0])
		f := b.chroms[chrom]
		if f == nil {
			f = &bedFeatures{}
			b.chroms[chrom] = f
		}
		f.regions = append(f.regions, reg)
		if l := reg.Length(); l > f.maxLen {
			f.maxLen = l
		}
		n++
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, f := range b.chroms {
		sort.SliceStable(f.regions, func(i, j int) bool { return f.regions[i].Start < f.regions[j].Start })
	}
	log.Printf("BED loaded, %d feature(s) on %d chromosome(s)", n, len(b.chroms))
	return b, nil
}

// parseBlocks converts BED12 blockSizes/blockStarts to nested regions.
func parseBlocks(parent track.Region, sizesTok, startsTok []byte, lineIdx int) ([]track.Region, error) {
	sizes := bytes.Split(bytes.TrimRight(sizesTok, ","), []byte(","))
	starts := bytes.Split(bytes.TrimRight(startsTok, ","), []byte(","))
	if len(sizes) != len(starts) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("block count mismatch on line %d", lineIdx))
	}
	blocks := make([]track.Region, len(sizes))
	for i := range sizes {
		size, err := strconv.Atoi(gunsafe.BytesToString(sizes[i]))
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("bad block size on line %d", lineIdx))
		}
		off, err := strconv.Atoi(gunsafe.BytesToString(starts[i]))
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("bad block start on line %d", lineIdx))
		}
		blocks[i] = track.Region{
			Start:       parent.Start + off,
			End:         parent.Start + off + size - 1,
			Label:       parent.Label,
			Orientation: parent.Orientation,
		}
	}
	return blocks, nil
}

// Chroms returns the number of chromosomes with features.
func (b *BEDFetcher) Chroms() int { return len(b.chroms) }

// Fetch implements Fetcher.  It returns a single Segment covering the
// request; its region list is empty if no feature overlaps it.
func (b *BEDFetcher) Fetch(ctx context.Context, req Request) ([]*track.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iv := req.Interval
	if iv.Empty() {
		return nil, nil
	}
	seg := req.Track.NewSegment(iv)
	seg.SaveToCache = true
	regions := track.Regions{}
	if f := b.chroms[iv.Chrom]; f != nil {
		for _, r := range f.overlapping(iv.Start, iv.End) {
			regions = append(regions, r.Rebase(-iv.Start))
		}
	}
	seg.Payload = regions
	return []*track.Segment{seg}, nil
}
