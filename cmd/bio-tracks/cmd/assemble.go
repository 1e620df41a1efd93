package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/tracks/assemble"
	"github.com/grailbio/tracks/cache"
	"github.com/grailbio/tracks/registry"
	"github.com/grailbio/tracks/server"
	"github.com/grailbio/tracks/source"
	"github.com/grailbio/tracks/track"
	"v.io/x/lib/cmdline"
)

type assembleFlags struct {
	track       trackFlags
	manifest    *string
	source      *string
	dataset     *string
	cacheDir    *string
	codec       *string
	chunkSize   *int
	accumulate  *bool
	parallelism *int
	out         *string
	values      *bool
}

func addAssembleFlags(cmd *cmdline.Command) assembleFlags {
	return assembleFlags{
		track:       addTrackFlags(cmd),
		manifest:    cmd.Flags.String("manifest", "", "Sequence manifest TSV (name, chrom, start, end)"),
		source:      cmd.Flags.String("source", "", "Comma-separated FASTA, BED or bedGraph files to fetch track data from; later files win where they overlap"),
		dataset:     cmd.Flags.String("dataset", "default", "Dataset id the views belong to"),
		cacheDir:    cmd.Flags.String("cache", "", "Segment cache directory (local or s3://); no caching if empty"),
		codec:       cmd.Flags.String("codec", cache.DefaultOpts.Codec, "Cache entry codec: 'zstd', 'snappy' or 'none'"),
		chunkSize:   cmd.Flags.Int("chunk-size", assemble.DefaultOpts.ChunkSize, "Fetch chunk length"),
		accumulate:  cmd.Flags.Bool("accumulate", assemble.DefaultOpts.Accumulate, "Merge the fragments of each chunk before copying them into a view"),
		parallelism: cmd.Flags.Int("parallelism", assemble.DefaultOpts.Parallelism, "Number of views assembled concurrently"),
		out:         cmd.Flags.String("out", "", "Summary TSV path; no summary if empty"),
		values:      cmd.Flags.Bool("values", false, "Also write the assembled data to <out>.values.tsv"),
	}
}

// runAssemble assembles every sequence of the manifest and returns the
// registry holding the published views.
func runAssemble(ctx context.Context, flags assembleFlags) (reg *registry.Registry, err error) {
	if *flags.manifest == "" || *flags.source == "" {
		return nil, fmt.Errorf("-manifest and -source are required")
	}
	paths := strings.Split(*flags.source, ",")
	if *flags.track.kind == "" {
		kind, ok := source.KindForPath(paths[0])
		if !ok {
			return nil, fmt.Errorf("-kind is required for source %s", paths[0])
		}
		for _, path := range paths[1:] {
			if k, _ := source.KindForPath(path); k != kind {
				return nil, fmt.Errorf("source %s does not hold %v data like %s", path, kind, paths[0])
			}
		}
		*flags.track.kind = kind.String()
	}
	spec, err := flags.track.spec()
	if err != nil {
		return nil, err
	}
	seqs, err := registry.ReadManifest(ctx, *flags.manifest)
	if err != nil {
		return nil, err
	}
	reg = registry.New(track.DatasetID(*flags.dataset))
	if err = reg.AddSequences(spec.Kind, seqs); err != nil {
		return nil, err
	}

	var fetcher source.Fetcher
	if fetcher, err = source.OpenAll(ctx, paths); err != nil {
		return nil, err
	}
	defer func() {
		if e := source.Close(ctx, fetcher); e != nil && err == nil {
			err = e
		}
	}()
	var caching *cache.CachingFetcher
	if *flags.cacheDir != "" {
		opts := cache.DefaultOpts
		opts.Codec = *flags.codec
		caching = cache.NewCachingFetcher(cache.New(*flags.cacheDir, opts), fetcher)
		fetcher = caching
	}

	opts := assemble.DefaultOpts
	opts.ChunkSize = *flags.chunkSize
	opts.Accumulate = *flags.accumulate
	opts.Parallelism = *flags.parallelism
	results, err := assemble.New(reg, fetcher, opts).AssembleAll(ctx, spec)
	if caching != nil {
		log.Printf("cache %s: %v", *flags.cacheDir, caching.Stats())
	}
	if err != nil {
		if assemble.IsTypeMismatch(err) {
			return nil, errors.E(errors.Invalid, err, "track", spec.String(), "does not match the source data")
		}
		return nil, err
	}
	if *flags.out != "" {
		if err = writeSummary(ctx, *flags.out, reg, results); err != nil {
			return nil, err
		}
		if *flags.values {
			if err = writeValues(ctx, strings.TrimSuffix(*flags.out, ".tsv")+".values.tsv", reg); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

func serve(ctx context.Context, flags assembleFlags, addr string) error {
	reg, err := runAssemble(ctx, flags)
	if err != nil {
		return err
	}
	return server.New(reg).Run(addr)
}

type summaryRow struct {
	Name    string `tsv:"name"`
	Chrom   string `tsv:"chrom"`
	Start   int    `tsv:"start"`
	End     int    `tsv:"end"`
	State   string `tsv:"state"`
	Applied int    `tsv:"applied"`
	Skipped int    `tsv:"skipped"`
	Changed bool   `tsv:"changed"`
	Missing string `tsv:"missing"`
}

func writeSummary(ctx context.Context, path string, reg *registry.Registry, results []assemble.Result) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewRowWriter(out.Writer(ctx))
	for _, res := range results {
		row := summaryRow{
			Name:    res.Name,
			State:   res.State.String(),
			Applied: res.Applied,
			Skipped: res.Skipped,
			Changed: res.Changed,
		}
		if v, err := reg.View(res.Name); err == nil {
			iv := v.Interval()
			row.Chrom, row.Start, row.End = iv.Chrom, iv.Start, iv.End
		}
		missing := make([]string, len(res.Missing))
		for i, iv := range res.Missing {
			missing[i] = iv.String()
		}
		row.Missing = strings.Join(missing, ",")
		if err := w.Write(&row); err != nil {
			return err
		}
	}
	return w.Flush()
}

// writeValues writes one row per position (bytes, numbers) or per region,
// in genomic coordinates.  Region rows hold start, end, label and strand.
func writeValues(ctx context.Context, path string, reg *registry.Registry) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	for _, name := range reg.Names() {
		v, err := reg.View(name)
		if err != nil {
			return err
		}
		iv := v.Interval()
		switch v := v.(type) {
		case *track.DNAView:
			for i, b := range v.Bytes() {
				w.WriteString(name)
				w.WriteString(iv.Chrom)
				w.WriteInt64(int64(v.RelativeToGenomic(i)))
				w.WriteByte(b)
				if err := w.EndLine(); err != nil {
					return err
				}
			}
		case *track.NumericView:
			for i, x := range v.Numbers() {
				w.WriteString(name)
				w.WriteString(iv.Chrom)
				w.WriteInt64(int64(v.RelativeToGenomic(i)))
				w.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
				if err := w.EndLine(); err != nil {
					return err
				}
			}
		case *track.RegionView:
			for _, r := range v.Regions() {
				w.WriteString(name)
				w.WriteString(iv.Chrom)
				w.WriteInt64(int64(v.RelativeToGenomic(r.Start)))
				w.WriteInt64(int64(v.RelativeToGenomic(r.End)))
				w.WriteString(r.Label)
				w.WriteByte(r.Orientation.Byte())
				if err := w.EndLine(); err != nil {
					return err
				}
			}
		}
	}
	return w.Flush()
}
