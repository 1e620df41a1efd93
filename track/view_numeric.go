// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package track

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/grailbio/tracks/interval"
)

// NumericView holds one score per genomic position.  Positions that have not
// received data hold 0.
type NumericView struct {
	baseView
	buf []float64
}

// NewNumericView returns an Unpopulated NumericView covering iv.
func NewNumericView(name string, dataset DatasetID, iv interval.GenomicInterval) *NumericView {
	return &NumericView{
		baseView: baseView{name: name, dataset: dataset, iv: iv},
		buf:      make([]float64, iv.Length()),
	}
}

// Kind implements View.
func (v *NumericView) Kind() PayloadKind { return KindNumbers }

// Numbers returns the underlying buffer.  The caller must not modify it.
func (v *NumericView) Numbers() []float64 { return v.buf }

// ValueAtRelative returns the value at buffer index pos.
func (v *NumericView) ValueAtRelative(pos int) (float64, error) {
	if err := v.checkIndex(pos); err != nil {
		return 0, err
	}
	return v.buf[pos], nil
}

// ValueAtGenomic returns the value at genomic position pos.
func (v *NumericView) ValueAtGenomic(pos int) (float64, error) {
	return v.ValueAtRelative(v.GenomicToRelative(pos))
}

// SetRelative stores x at buffer index pos.
func (v *NumericView) SetRelative(pos int, x float64) error {
	if err := v.checkIndex(pos); err != nil {
		return err
	}
	v.buf[pos] = x
	return nil
}

// SetGenomic stores x at genomic position pos.
func (v *NumericView) SetGenomic(pos int, x float64) error {
	return v.SetRelative(v.GenomicToRelative(pos), x)
}

// ValuesInGenomicInterval returns a copy of the values in [start, end]
// clamped to the view, in ascending genomic order.  It returns ErrNoData if
// the clamped range is empty.
func (v *NumericView) ValuesInGenomicInterval(start, end int) ([]float64, error) {
	from, to, err := v.clampGenomic(start, end)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), v.buf[from:to+1]...), nil
}

// Crop implements View.
func (v *NumericView) Crop(start, end int) error {
	changed, err := v.checkCrop(start, end)
	if !changed || err != nil {
		return err
	}
	v.buf = append([]float64(nil), v.buf[start:end+1]...)
	v.cropInterval(start, end)
	return nil
}

// ContainsSameData implements View.  Values are compared bitwise, so NaN
// positions compare equal to themselves.
func (v *NumericView) ContainsSameData(other View) bool {
	o, ok := other.(*NumericView)
	if !ok || v.iv != o.iv || len(v.buf) != len(o.buf) {
		return false
	}
	for i := range v.buf {
		if math.Float64bits(v.buf[i]) != math.Float64bits(o.buf[i]) {
			return false
		}
	}
	return true
}

// Clone implements View.
func (v *NumericView) Clone() View {
	c := *v
	c.buf = append([]float64(nil), v.buf...)
	return &c
}

func (v *NumericView) writeFingerprint(w io.Writer) {
	v.writeHeader(w, KindNumbers)
	var b [8]byte
	for _, x := range v.buf {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(x))
		w.Write(b[:]) // nolint: errcheck
	}
}
