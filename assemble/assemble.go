// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package assemble fills registry Views with track data.  For each View the
// assembler splits the View's interval into aligned chunks, fetches the
// chunks in ascending order, and copies the returned Segments into a fresh
// View that is published to the registry when every chunk has been applied.
//
// Segments that cannot be merged (wrong chromosome, build or track, no
// overlap) are logged and skipped.  A payload kind that does not match the
// View aborts the assembly.
package assemble

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/tracks/interval"
	"github.com/grailbio/tracks/registry"
	"github.com/grailbio/tracks/source"
	"github.com/grailbio/tracks/track"
	pkgerrors "github.com/pkg/errors"
)

// Opts controls assembly.
type Opts struct {
	// ChunkSize is the length of each fetch request.  Requests are aligned to
	// multiples of ChunkSize so their cache keys repeat across runs.
	ChunkSize int
	// Accumulate merges the fragments returned for a chunk with ImportFrom
	// before copying the result into the View once.
	Accumulate bool
	// Parallelism is the number of Views AssembleAll fills concurrently.
	Parallelism int
}

// DefaultOpts are the default assembly options.
var DefaultOpts = Opts{
	ChunkSize:   100000,
	Parallelism: runtime.NumCPU(),
}

// Assembler fills the Views of Registry with data from Fetcher.
type Assembler struct {
	Registry *registry.Registry
	Fetcher  source.Fetcher
	Opts     Opts
}

// New returns an Assembler.
func New(reg *registry.Registry, fetcher source.Fetcher, opts Opts) *Assembler {
	return &Assembler{Registry: reg, Fetcher: fetcher, Opts: opts}
}

// Result summarizes the assembly of one View.
type Result struct {
	Name  string
	State track.State
	// Applied is the number of Segments copied or imported.
	Applied int
	// Skipped is the number of Segments rejected as unmergeable.
	Skipped int
	// Changed is true iff the published View differs from the one it
	// replaced.
	Changed bool
	// Missing lists the parts of the View no Segment covered.
	Missing []interval.GenomicInterval
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %v, %d applied, %d skipped, changed=%v", r.Name, r.State, r.Applied, r.Skipped, r.Changed)
}

// IsTypeMismatch returns true iff err reports a payload kind that does not
// match the View being assembled.
func IsTypeMismatch(err error) bool {
	for err != nil {
		if pkgerrors.Cause(err) == track.ErrTypeMismatch {
			return true
		}
		e, ok := err.(*errors.Error)
		if !ok {
			return false
		}
		err = e.Err
	}
	return false
}

// viewAssembly holds the state of one AssembleView call.  It is used by a
// single goroutine.
type viewAssembly struct {
	spec  source.TrackSpec
	view  track.View
	ref   *track.Segment
	cov   *interval.Union
	sched schedule
	res   Result
}

// AssembleView fetches spec's data over the interval of the View registered
// as name and publishes the filled View.  Fetches stop as soon as ctx is
// done; a canceled assembly publishes nothing and returns ctx.Err().
func (a *Assembler) AssembleView(ctx context.Context, spec source.TrackSpec, name string) (Result, error) {
	old, err := a.Registry.View(name)
	if err != nil {
		return Result{Name: name}, err
	}
	if old.Kind() != spec.Kind {
		return Result{Name: name}, pkgerrors.Wrapf(track.ErrTypeMismatch, "assemble %v into %s (%v)", spec, name, old.Kind())
	}
	viv := old.Interval()
	view, err := track.NewView(old.Kind(), name, a.Registry.Dataset(), viv)
	if err != nil {
		return Result{Name: name}, err
	}
	va := &viewAssembly{
		spec:  spec,
		view:  view,
		ref:   spec.NewSegment(viv),
		cov:   interval.NewUnion(viv.Chrom),
		res:   Result{Name: name},
	}
	for _, chunk := range source.Chunks(viv, a.Opts.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return va.res, err
		}
		req := source.Request{Track: spec, Interval: chunk}
		segs, err := a.Fetcher.Fetch(ctx, req)
		if err != nil {
			return va.res, errors.E(err, "assemble: fetch", req.String())
		}
		va.sched.push(segs...)
		if log.At(log.Debug) {
			log.Debug.Printf("assemble %s: %d segment(s) for %v", name, va.sched.len(), chunk)
		}
		if a.Opts.Accumulate {
			iv, _ := chunk.Intersection(viv)
			err = va.accumulate(iv)
		} else {
			err = va.apply()
		}
		if err != nil {
			return va.res, err
		}
	}

	va.res.State = coverageState(va.cov, viv)
	va.res.Missing = va.cov.Gaps(viv.Start, viv.End)
	va.res.Changed = track.Fingerprint(old) != track.Fingerprint(view)
	if err := a.Registry.Publish(name, view, va.res.State); err != nil {
		return va.res, err
	}
	log.Printf("assemble %v", va.res)
	return va.res, nil
}

// skip records an unmergeable Segment.  Errors other than merge errors are
// returned.
func (va *viewAssembly) skip(seg *track.Segment, err error) error {
	if !track.IsMergeError(err) {
		return err
	}
	va.res.Skipped++
	log.Error.Printf("assemble %s: skipping %v: %v", va.view.Name(), seg, err)
	return nil
}

// apply copies each queued Segment straight into the View.
func (va *viewAssembly) apply() error {
	return va.sched.drain(func(seg *track.Segment) error {
		if !seg.HasPayload() {
			return nil
		}
		if err := va.ref.CheckCompatible(seg); err != nil {
			return va.skip(seg, err)
		}
		if _, err := seg.CopyInto(va.view); err != nil {
			return err
		}
		va.res.Applied++
		overlap, _ := seg.Interval.Intersection(va.view.Interval())
		va.cov.AddInterval(overlap)
		return nil
	})
}

// accumulate imports the queued Segments into one accumulator covering iv
// and copies it into the View.
func (va *viewAssembly) accumulate(iv interval.GenomicInterval) error {
	acc := va.spec.NewSegment(iv)
	err := va.sched.drain(func(seg *track.Segment) error {
		if !seg.HasPayload() {
			return nil
		}
		if err := acc.ImportFrom(seg); err != nil {
			return va.skip(seg, err)
		}
		va.res.Applied++
		overlap, _ := acc.Interval.Intersection(seg.Interval)
		va.cov.AddInterval(overlap)
		return nil
	})
	if err != nil {
		return err
	}
	_, err = acc.CopyInto(va.view)
	return err
}

func coverageState(cov *interval.Union, iv interval.GenomicInterval) track.State {
	switch {
	case cov.Covers(iv.Start, iv.End):
		return track.FullyPopulated
	case cov.Covered() > 0:
		return track.PartiallyPopulated
	}
	return track.Unpopulated
}

// AssembleAll assembles every View in the registry, Opts.Parallelism at a
// time.  The first fatal error cancels the remaining assemblies and is
// returned; results are indexed like Registry.Names().
func (a *Assembler) AssembleAll(ctx context.Context, spec source.TrackSpec) ([]Result, error) {
	names := a.Registry.Names()
	results := make([]Result, len(names))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu sync.Mutex
		n  [3]int
	)
	parallelism := a.Opts.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	if parallelism > len(names) {
		parallelism = len(names)
	}
	if parallelism == 0 {
		return results, nil
	}
	log.Printf("assemble: %d view(s) of %v, parallelism %d", len(names), spec, parallelism)
	err := traverse.Each(parallelism, func(worker int) error {
		for i := worker; i < len(names); i += parallelism {
			if ctx.Err() != nil {
				return nil
			}
			res, err := a.AssembleView(ctx, spec, names[i])
			results[i] = res
			if err != nil {
				if ctx.Err() != nil {
					// Canceled by the caller or by a failed sibling.
					return nil
				}
				cancel()
				return err
			}
			mu.Lock()
			n[res.State]++
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	log.Printf("assemble: done, %d full, %d partial, %d unpopulated",
		n[track.FullyPopulated], n[track.PartiallyPopulated], n[track.Unpopulated])
	return results, nil
}
