// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package track assembles per-sequence track buffers from fragments.
//
// A Segment carries one fetch unit of a track (bases, numeric scores or
// annotated regions) for a bounded genomic interval.  Segments are merged
// into accumulator Segments with ImportFrom, and copied into the
// per-sequence View they belong to with CopyInto.  Both operations translate
// between three coordinate frames:
//
//   genomic         absolute chromosome position
//   segment-local   genomic - segment.Interval.Start
//   view-local      genomic - view.Interval().Start
//
// Overlapping writes follow a last-write-wins rule; writes of non-overlapping
// Bytes or Numbers fragments commute, so a View converges to the same buffer
// regardless of the order in which disjoint fragments arrive.
//
// None of the operations in this package perform I/O, block, or lock.  A
// View is owned by a single assembler at a time.
package track
