// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package assemble

import (
	"github.com/biogo/store/llrb"
	"github.com/grailbio/tracks/track"
)

// pending is a fetched Segment waiting to be applied.  seq breaks ties
// between Segments with equal intervals so they apply in arrival order.
type pending struct {
	seg *track.Segment
	seq int
}

// Compare implements llrb.Comparable.
func (p *pending) Compare(c llrb.Comparable) int {
	o := c.(*pending)
	if c := p.seg.Compare(o.seg); c != 0 {
		return c
	}
	return p.seq - o.seq
}

// schedule orders fetched Segments by ascending start.  Fetchers may return
// the fragments of a request in any order.
type schedule struct {
	tree llrb.Tree
	seq  int
}

func (s *schedule) push(segs ...*track.Segment) {
	for _, seg := range segs {
		if seg == nil {
			continue
		}
		s.tree.Insert(&pending{seg: seg, seq: s.seq})
		s.seq++
	}
}

func (s *schedule) len() int { return s.tree.Len() }

// drain calls fn on every queued Segment in order and empties the schedule.
// It stops at the first error.
func (s *schedule) drain(fn func(seg *track.Segment) error) error {
	var err error
	s.tree.Do(func(item llrb.Comparable) bool {
		err = fn(item.(*pending).seg)
		return err != nil
	})
	s.tree = llrb.Tree{}
	return err
}
