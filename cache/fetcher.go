// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/tracks/source"
	"github.com/grailbio/tracks/track"
)

// Stats counts the lookups served by a CachingFetcher.
type Stats struct {
	Hits, Misses, Writes, WriteErrors, Corrupt int64
}

func (s Stats) String() string {
	return fmt.Sprintf("hits=%d misses=%d writes=%d write-errors=%d corrupt=%d",
		s.Hits, s.Misses, s.Writes, s.WriteErrors, s.Corrupt)
}

// CachingFetcher serves requests from Store and falls back to Upstream on a
// miss.  The Segments Upstream returns for a request are written back as one
// entry under the request's key, in order, so a hit yields the same
// Segments, clipped intervals included.  A request Upstream has no data for
// is cached as an empty entry.  Nothing is written if any returned Segment
// with a payload is not marked SaveToCache.
//
// Segments returned from the cache are not marked SaveToCache.
type CachingFetcher struct {
	Store    *Store
	Upstream source.Fetcher

	hits, misses, writes, writeErrors, corrupt int64
}

// NewCachingFetcher returns a fetcher layering store over upstream.
func NewCachingFetcher(store *Store, upstream source.Fetcher) *CachingFetcher {
	return &CachingFetcher{Store: store, Upstream: upstream}
}

// Fetch implements source.Fetcher.  Cache read failures other than a miss
// are logged and the request is sent upstream.  Write-back failures are
// logged and do not fail the fetch.
func (f *CachingFetcher) Fetch(ctx context.Context, req source.Request) ([]*track.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := req.Track.NewSegment(req.Interval)
	key := id.FileName()
	segs, err := f.Store.Get(ctx, key)
	switch {
	case err == nil:
		atomic.AddInt64(&f.hits, 1)
		if log.At(log.Debug) {
			log.Debug.Printf("cache: hit %s (%d segment(s))", key, len(segs))
		}
		return segs, nil
	case errors.Is(errors.NotExist, err):
		atomic.AddInt64(&f.misses, 1)
	default:
		atomic.AddInt64(&f.misses, 1)
		atomic.AddInt64(&f.corrupt, 1)
		log.Error.Printf("cache: discarding entry %s: %v", key, err)
	}

	segs, err = f.Upstream.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, seg := range segs {
		if seg.HasPayload() && !seg.SaveToCache {
			if log.At(log.Debug) {
				log.Debug.Printf("cache: not caching %s: %v is not cacheable", key, seg)
			}
			return segs, nil
		}
	}
	if err := f.Store.Put(ctx, id, segs); err != nil {
		atomic.AddInt64(&f.writeErrors, 1)
		log.Error.Printf("cache: write %s: %v", key, err)
		return segs, nil
	}
	atomic.AddInt64(&f.writes, 1)
	return segs, nil
}

// Close closes the upstream fetcher.
func (f *CachingFetcher) Close(ctx context.Context) error {
	return source.Close(ctx, f.Upstream)
}

// Stats returns a snapshot of the fetcher's counters.
func (f *CachingFetcher) Stats() Stats {
	return Stats{
		Hits:        atomic.LoadInt64(&f.hits),
		Misses:      atomic.LoadInt64(&f.misses),
		Writes:      atomic.LoadInt64(&f.writes),
		WriteErrors: atomic.LoadInt64(&f.writeErrors),
		Corrupt:     atomic.LoadInt64(&f.corrupt),
	}
}
