package fasta

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// File is a Fasta opened with Open.  It must be closed after use.
type File struct {
	Fasta
	in file.File
}

// Close releases the underlying file, if any is still open.
func (f *File) Close(ctx context.Context) error {
	if f.in == nil {
		return nil
	}
	return f.in.Close(ctx)
}

// Open opens the FASTA file at path, which may be local or s3://.  If
// path+".fai" exists, the file is accessed through the index; otherwise it is
// read into memory.  Paths ending in ".gz" are always read into memory.
func Open(ctx context.Context, path string, opts Opts) (_ *File, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "fasta: open", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		idx, ierr := file.Open(ctx, path+".fai")
		if ierr == nil {
			defer file.CloseAndReport(ctx, idx, &err)
			fa, err := NewIndexed(in.Reader(ctx), idx.Reader(ctx), opts)
			if err != nil {
				in.Close(ctx) // nolint: errcheck
				return nil, errors.E(err, path)
			}
			return &File{Fasta: fa, in: in}, nil
		}
		if !errors.Is(errors.NotExist, ierr) {
			in.Close(ctx) // nolint: errcheck
			return nil, errors.E(ierr, "fasta: open index", path+".fai")
		}
		log.Debug.Printf("fasta: %s has no index, reading into memory", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.E(err, "fasta: gzip", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	fa, err := New(r, opts)
	if err != nil {
		return nil, errors.E(err, path)
	}
	return &File{Fasta: fa}, nil
}
