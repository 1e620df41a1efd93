// Package fasta reads reference sequences from (optionally indexed) FASTA
// files.  See http://www.htslib.org/doc/faidx.html.  FASTA files consist of a
// number of named sequences that may be interrupted by newlines:
//
// >chr7
// ACGTAC
// GAGGAC
// GCG
// >chr8
// ACGT
//
// A sequence name is the stretch of characters after '>' up to the first
// space; '>chr1 A viral sequence' names "chr1".
package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
)

const bufferInitSize = 1024 * 1024 * 300 // 300 MB

// Fasta is a set of named sequences.  Implementations are safe for concurrent
// use.
type Fasta interface {
	// Read appends the bases of seqName in the 0-based half-open range
	// [start, end) to dst and returns the extended slice.
	Read(dst []byte, seqName string, start, end int) ([]byte, error)

	// Len returns the length of the given sequence.
	Len(seqName string) (int, error)

	// SeqNames returns the names of all sequences, in the order of appearance
	// in the FASTA file.
	SeqNames() []string
}

// Opts controls how bases are returned.
type Opts struct {
	// Clean upper-cases A, C, G and T and replaces every other byte with 'N'.
	Clean bool
}

// DefaultOpts is used by the track sources.
var DefaultOpts = Opts{Clean: true}

var cleanTable = func() (t [256]byte) {
	for i := range t {
		t[i] = 'N'
	}
	for _, c := range []byte("ACGT") {
		t[c] = c
		t[c+'a'-'A'] = c
	}
	return
}()

// CleanInplace upper-cases A, C, G and T in seq and replaces every other byte
// with 'N'.
func CleanInplace(seq []byte) {
	for i, c := range seq {
		seq[i] = cleanTable[c]
	}
}

func notFound(seqName string) error {
	return errors.E(errors.NotExist, "fasta: sequence not found:", seqName)
}

func checkRange(seqName string, start, end, length int) error {
	if end <= start {
		return errors.E(errors.Invalid, "fasta: start must be less than end")
	}
	if start < 0 || end > length {
		return errors.E(errors.Invalid, fmt.Sprintf("fasta: range [%d, %d) outside %s of length %d", start, end, seqName, length))
	}
	return nil
}

type fasta struct {
	seqs     map[string][]byte
	seqNames []string
}

// New creates a Fasta that holds all the sequences of r in memory.
func New(r io.Reader, opts Opts) (Fasta, error) {
	f := &fasta{seqs: make(map[string][]byte)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)
	var (
		seqName string
		seq     []byte
		started bool
	)
	add := func() {
		if opts.Clean {
			CleanInplace(seq)
		}
		f.seqs[seqName] = seq
		f.seqNames = append(f.seqNames, seqName)
	}
	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if started {
				add()
			}
			seqName = string(bytes.SplitN(line[1:], []byte(" "), 2)[0])
			seq = nil
			started = true
			continue
		}
		if !started {
			return nil, errors.E(errors.Invalid, "fasta: malformed FASTA file: data before the first header")
		}
		seq = append(seq, line...)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, "fasta: couldn't read FASTA data")
	}
	if started {
		add()
	}
	return f, nil
}

// Read implements Fasta.
func (f *fasta) Read(dst []byte, seqName string, start, end int) ([]byte, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return dst, notFound(seqName)
	}
	if err := checkRange(seqName, start, end, len(s)); err != nil {
		return dst, err
	}
	return append(dst, s[start:end]...), nil
}

// Len implements Fasta.
func (f *fasta) Len(seqName string) (int, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, notFound(seqName)
	}
	return len(s), nil
}

// SeqNames implements Fasta.
func (f *fasta) SeqNames() []string {
	return f.seqNames
}
