package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// WriteIndex writes entries in the *.fai format.
func WriteIndex(out io.Writer, entries []IndexEntry) error {
	w := tsv.NewWriter(out)
	for _, e := range entries {
		w.WriteString(e.Name)
		w.WriteInt64(e.Length)
		w.WriteInt64(e.Offset)
		w.WriteInt64(e.LineBases)
		w.WriteInt64(e.LineWidth)
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// BuildIndex scans a FASTA file and returns its index entries.  The index
// can be later passed to NewIndexed() to random-access the file quickly.
//
// The index format is defined by "samtools faidx"
// (http://www.htslib.org/doc/faidx.html).
func BuildIndex(in io.Reader) ([]IndexEntry, error) {
	var (
		r       = bufio.NewReader(in)
		entries []IndexEntry
		cur     = -1
		cumByte int64
	)
	for {
		fullLine, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, errors.E(err, "fasta: build index")
		}
		eof := err == io.EOF
		cumByte += int64(len(fullLine))
		line := bytes.TrimRight(fullLine, "\r\n")
		switch {
		case len(line) == 0:
		case line[0] == '>':
			entries = append(entries, IndexEntry{
				Name:   string(bytes.SplitN(line[1:], []byte(" "), 2)[0]),
				Offset: cumByte,
			})
			cur = len(entries) - 1
		case cur < 0:
			return nil, errors.E(errors.Invalid, "fasta: malformed FASTA file")
		default:
			e := &entries[cur]
			if e.LineWidth == 0 {
				e.LineWidth = int64(len(fullLine))
				e.LineBases = int64(len(line))
			}
			e.Length += int64(len(line))
		}
		if eof {
			break
		}
	}
	if cumByte == 0 {
		return nil, errors.E(errors.Invalid, "fasta: empty FASTA file")
	}
	return entries, nil
}

// GenerateIndex reads FASTA from in and writes its index to out.
func GenerateIndex(out io.Writer, in io.Reader) error {
	entries, err := BuildIndex(in)
	if err != nil {
		return err
	}
	return WriteIndex(out, entries)
}
