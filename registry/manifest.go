package registry

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/tracks/interval"
)

type manifestRow struct {
	Name  string `tsv:"name"`
	Chrom string `tsv:"chrom"`
	Start int    `tsv:"start"`
	End   int    `tsv:"end"`
}

// ParseManifest reads a sequence manifest: a TSV file with a header row and
// the columns "name", "chrom", "start" and "end".  Coordinates are 0-based
// and inclusive.  Lines starting with '#' are ignored.
func ParseManifest(r io.Reader) ([]Sequence, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	tr.Comment = '#'

	var (
		seqs []Sequence
		seen = map[string]bool{}
	)
	for {
		var row manifestRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, err, "manifest")
		}
		if row.Name == "" || row.Chrom == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("manifest: empty name or chrom in %+v", row))
		}
		if row.End < row.Start {
			return nil, errors.E(errors.Invalid, "manifest: sequence", row.Name, "has inverted interval")
		}
		if seen[row.Name] {
			return nil, errors.E(errors.Invalid, "manifest: duplicate sequence", row.Name)
		}
		seen[row.Name] = true
		seqs = append(seqs, Sequence{Name: row.Name, Interval: interval.New(row.Chrom, row.Start, row.End)})
	}
	return seqs, nil
}

// ReadManifest reads the manifest at path; see ParseManifest.
func ReadManifest(ctx context.Context, path string) (seqs []Sequence, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	seqs, err = ParseManifest(in.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, path)
	}
	return seqs, nil
}
