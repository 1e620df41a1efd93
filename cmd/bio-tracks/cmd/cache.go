package cmd

import (
	"context"
	"io"
	"sort"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/tracks/cache"
	"github.com/grailbio/tracks/track"
)

func cacheList(ctx context.Context, out io.Writer, dir string) error {
	keys, err := cache.New(dir, cache.DefaultOpts).List(ctx)
	if err != nil {
		return err
	}
	sort.Strings(keys)
	w := tsv.NewWriter(out)
	for _, key := range keys {
		w.WriteString(key)
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// cacheShow prints one line per cached Segment: key, interval, payload kind
// and payload length.  An entry recording "no data" prints as a single
// "empty" line.  Entries are checksum-verified.
func cacheShow(ctx context.Context, out io.Writer, dir string, keys []string) error {
	s := cache.New(dir, cache.DefaultOpts)
	w := tsv.NewWriter(out)
	for _, key := range keys {
		segs, err := s.Get(ctx, key)
		if err != nil {
			return err
		}
		if len(segs) == 0 {
			w.WriteString(key)
			w.WriteString("-")
			w.WriteString(track.KindEmpty.String())
			w.WriteInt64(0)
			if err := w.EndLine(); err != nil {
				return err
			}
		}
		for _, seg := range segs {
			w.WriteString(key)
			w.WriteString(seg.Interval.String())
			w.WriteString(track.KindOf(seg.Payload).String())
			w.WriteInt64(int64(seg.Payload.Len()))
			if err := w.EndLine(); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
