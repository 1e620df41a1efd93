// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"bytes"
	"io"

	"github.com/grailbio/base/simd"
	"github.com/grailbio/tracks/interval"
)

// DNAView holds one base per genomic position.  Positions that have not
// received data hold UnknownBase.
type DNAView struct {
	baseView
	buf []byte
}

// NewDNAView returns an Unpopulated DNAView covering iv.
func NewDNAView(name string, dataset DatasetID, iv interval.GenomicInterval) *DNAView {
	buf := make([]byte, iv.Length())
	simd.Memset8(buf, UnknownBase)
	return &DNAView{baseView: baseView{name: name, dataset: dataset, iv: iv}, buf: buf}
}

// Kind implements View.
func (v *DNAView) Kind() PayloadKind { return KindBytes }

// Bytes returns the underlying buffer.  The caller must not modify it.
func (v *DNAView) Bytes() []byte { return v.buf }

// ValueAtRelative returns the base at buffer index pos.
func (v *DNAView) ValueAtRelative(pos int) (byte, error) {
	if err := v.checkIndex(pos); err != nil {
		return 0, err
	}
	return v.buf[pos], nil
}

// ValueAtGenomic returns the base at genomic position pos.
func (v *DNAView) ValueAtGenomic(pos int) (byte, error) {
	return v.ValueAtRelative(v.GenomicToRelative(pos))
}

// SetRelative stores b at buffer index pos.
func (v *DNAView) SetRelative(pos int, b byte) error {
	if err := v.checkIndex(pos); err != nil {
		return err
	}
	v.buf[pos] = b
	return nil
}

// SetGenomic stores b at genomic position pos.
func (v *DNAView) SetGenomic(pos int, b byte) error {
	return v.SetRelative(v.GenomicToRelative(pos), b)
}

// ValuesInGenomicInterval returns a copy of the bases in [start, end] clamped
// to the view, on the direct strand.  It returns ErrNoData if the clamped
// range is empty.
func (v *DNAView) ValuesInGenomicInterval(start, end int) ([]byte, error) {
	from, to, err := v.clampGenomic(start, end)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), v.buf[from:to+1]...), nil
}

// Crop implements View.
func (v *DNAView) Crop(start, end int) error {
	changed, err := v.checkCrop(start, end)
	if !changed || err != nil {
		return err
	}
	v.buf = append([]byte(nil), v.buf[start:end+1]...)
	v.cropInterval(start, end)
	return nil
}

// ContainsSameData implements View.
func (v *DNAView) ContainsSameData(other View) bool {
	o, ok := other.(*DNAView)
	return ok && v.iv == o.iv && bytes.Equal(v.buf, o.buf)
}

// Clone implements View.
func (v *DNAView) Clone() View {
	c := *v
	c.buf = append([]byte(nil), v.buf...)
	return &c
}

func (v *DNAView) writeFingerprint(w io.Writer) {
	v.writeHeader(w, KindBytes)
	w.Write(v.buf) // nolint: errcheck
}

