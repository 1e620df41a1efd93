package fasta

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// IndexEntry is one line of a FASTA index: sequence name, length, byte offset of
// the first base, bases per line and bytes per line.  For example,
// "chr3\t12345\t9000\t80\t81".
type IndexEntry struct {
	Name      string
	Length    int64
	Offset    int64
	LineBases int64
	LineWidth int64
}

type indexedFasta struct {
	opts     Opts
	seqs     map[string]IndexEntry
	seqNames []string // returned by SeqNames()

	mu     sync.Mutex
	reader io.ReadSeeker
	bufOff int64
	buf    []byte // caches file contents starting at bufOff.
}

// ReadIndex parses a FASTA index (*.fai).  Rows are returned in file order.
func ReadIndex(index io.Reader) ([]IndexEntry, error) {
	r := tsv.NewReader(index)
	var rows []IndexEntry
	for {
		var row IndexEntry
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, err, "fasta: invalid index")
		}
		if row.LineBases <= 0 || row.LineWidth < row.LineBases {
			return nil, errors.E(errors.Invalid, "fasta: invalid index line for", row.Name)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NewIndexed creates a Fasta that performs random lookups in r using the
// given index, without reading the data into memory.
func NewIndexed(r io.ReadSeeker, index io.Reader, opts Opts) (Fasta, error) {
	rows, err := ReadIndex(index)
	if err != nil {
		return nil, err
	}
	f := &indexedFasta{opts: opts, seqs: make(map[string]IndexEntry, len(rows)), reader: r}
	for _, row := range rows {
		f.seqs[row.Name] = row
		f.seqNames = append(f.seqNames, row.Name)
	}
	sort.SliceStable(f.seqNames, func(i, j int) bool {
		return f.seqs[f.seqNames[i]].Offset < f.seqs[f.seqNames[j]].Offset
	})
	return f, nil
}

// Len implements Fasta.
func (f *indexedFasta) Len(seqName string) (int, error) {
	ent, ok := f.seqs[seqName]
	if !ok {
		return 0, notFound(seqName)
	}
	return int(ent.Length), nil
}

// SeqNames implements Fasta.
func (f *indexedFasta) SeqNames() []string {
	return f.seqNames
}

// read returns the range [off, off+n) of the underlying file.  REQUIRES: f.mu
// is held.
func (f *indexedFasta) read(off int64, n int) ([]byte, error) {
	limit := off + int64(n)
	if off < f.bufOff || limit > f.bufOff+int64(len(f.buf)) {
		if newOffset, err := f.reader.Seek(off, io.SeekStart); err != nil || newOffset != off {
			return nil, errors.E(err, fmt.Sprintf("fasta: failed to seek to offset %d", off))
		}
		bufSize := 8192
		if bufSize < n {
			bufSize = n
		}
		if cap(f.buf) < bufSize {
			f.buf = make([]byte, bufSize)
		}
		f.buf = f.buf[:bufSize]
		bytesRead, err := io.ReadAtLeast(f.reader, f.buf, n)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, errors.E(err, "fasta: read")
		}
		if bytesRead < n {
			return nil, errors.E(errors.Invalid, "fasta: unexpected end of file (bad index? file doesn't end in newline?)")
		}
		f.bufOff = off
		f.buf = f.buf[:bytesRead]
	}
	return f.buf[off-f.bufOff : limit-f.bufOff], nil
}

// Read implements Fasta.
func (f *indexedFasta) Read(dst []byte, seqName string, start, end int) ([]byte, error) {
	ent, ok := f.seqs[seqName]
	if !ok {
		return dst, notFound(seqName)
	}
	if err := checkRange(seqName, start, end, int(ent.Length)); err != nil {
		return dst, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	// Start the read at a byte offset allowing for the presence of newline
	// characters.
	var (
		s               = int64(start)
		e               = int64(end)
		charsPerNewline = ent.LineWidth - ent.LineBases
		offset          = ent.Offset + s + charsPerNewline*(s/ent.LineBases)
		firstLineBases  = ent.LineBases - (s % ent.LineBases)
		newlinesToRead  int64
	)
	if e-s > firstLineBases {
		newlinesToRead = 1 + (e-s-firstLineBases)/ent.LineBases
	}
	capacity := e - s + newlinesToRead*charsPerNewline
	// The last line of a sequence may lack its terminator.
	if maxCap := ent.Offset + ent.Length + (ent.Length-1)/ent.LineBases*charsPerNewline - offset; capacity > maxCap {
		capacity = maxCap
	}
	buffer, err := f.read(offset, int(capacity))
	if err != nil {
		return dst, err
	}

	n0 := len(dst)
	linePos := (offset - ent.Offset) % ent.LineWidth
	for _, c := range buffer {
		if linePos < ent.LineBases {
			dst = append(dst, c)
		}
		linePos++
		if linePos == ent.LineWidth {
			linePos = 0
		}
	}
	if f.opts.Clean {
		CleanInplace(dst[n0:])
	}
	return dst, nil
}
