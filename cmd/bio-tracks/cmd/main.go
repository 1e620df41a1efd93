package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/tracks/assemble"
	"github.com/grailbio/tracks/cache"
	"github.com/grailbio/tracks/interval"
	"github.com/grailbio/tracks/source"
	"github.com/grailbio/tracks/track"
	"v.io/x/lib/cmdline"
)

// trackFlags identify the track being assembled.
type trackFlags struct {
	name     *string
	organism *int
	build    *string
	kind     *string
}

func addTrackFlags(cmd *cmdline.Command) trackFlags {
	return trackFlags{
		name:     cmd.Flags.String("track", "", "Track name, e.g. 'phyloP'"),
		organism: cmd.Flags.Int("organism", 1, "Organism id"),
		build:    cmd.Flags.String("build", "hg19", "Genome build"),
		kind:     cmd.Flags.String("kind", "", "Payload kind: 'bytes', 'numbers' or 'regions'"),
	}
}

func (f trackFlags) spec() (source.TrackSpec, error) {
	if *f.name == "" {
		return source.TrackSpec{}, fmt.Errorf("-track is required")
	}
	kind, err := track.ParseKind(*f.kind)
	if err != nil {
		return source.TrackSpec{}, err
	}
	return source.TrackSpec{Name: *f.name, Organism: *f.organism, GenomeBuild: *f.build, Kind: kind}, nil
}

func newCmdAssemble() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "assemble",
		Short: "Assemble track data for the sequences of a manifest",
		Long: `
Assemble fetches track data for every sequence listed in the manifest, from
the given source and through the segment cache if -cache is set, and writes
a per-sequence summary TSV to -out.  With -values, the assembled data itself
is written to <out>.values.tsv.

The manifest is a TSV file with the header "name chrom start end";
coordinates are 0-based and inclusive.  The source is a FASTA (bytes), BED
(regions) or bedGraph (numbers) file, optionally gzipped.`,
	}
	flags := addAssembleFlags(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("assemble takes no arguments, but got %v", argv)
		}
		_, err := runAssemble(vcontext.Background(), flags)
		return err
	})
	return cmd
}

func newCmdServe() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "serve",
		Short: "Assemble track data and serve it over HTTP",
		Long: `
Serve runs assemble (see "bio-tracks help assemble") and then serves the
assembled views at GET /views and GET /views/:name?start=&end=.`,
	}
	flags := addAssembleFlags(cmd)
	addr := cmd.Flags.String("addr", ":8080", "HTTP listen address")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("serve takes no arguments, but got %v", argv)
		}
		return serve(vcontext.Background(), flags, *addr)
	})
	return cmd
}

func newCmdKey() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "key",
		Short:    "Print the cache keys of the chunks covering a region",
		ArgsName: "chrom:start-end...",
	}
	tf := addTrackFlags(cmd)
	chunkSize := cmd.Flags.Int("chunk-size", assemble.DefaultOpts.ChunkSize, "Fetch chunk length")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("key takes one or more regions")
		}
		if *tf.kind == "" {
			*tf.kind = "bytes"
		}
		spec, err := tf.spec()
		if err != nil {
			return err
		}
		for _, arg := range argv {
			iv, err := interval.ParseRegionString(arg)
			if err != nil {
				return err
			}
			for _, chunk := range source.Chunks(iv, *chunkSize) {
				fmt.Fprintln(env.Stdout, spec.NewSegment(chunk).FileName())
			}
		}
		return nil
	})
	return cmd
}

func newCmdCache() *cmdline.Command {
	ls := &cmdline.Command{
		Name:     "ls",
		Short:    "List the keys of a segment cache",
		ArgsName: "dir",
	}
	ls.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("cache ls takes one directory, but got %v", argv)
		}
		return cacheList(vcontext.Background(), env.Stdout, argv[0])
	})
	show := &cmdline.Command{
		Name:     "show",
		Short:    "Describe cache entries",
		ArgsName: "dir key...",
	}
	show.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 2 {
			return fmt.Errorf("cache show takes a directory and keys, but got %v", argv)
		}
		return cacheShow(vcontext.Background(), env.Stdout, argv[0], argv[1:])
	})
	rm := &cmdline.Command{
		Name:     "rm",
		Short:    "Remove cache entries",
		ArgsName: "dir key...",
	}
	rm.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 2 {
			return fmt.Errorf("cache rm takes a directory and keys, but got %v", argv)
		}
		s := cache.New(argv[0], cache.DefaultOpts)
		for _, key := range argv[1:] {
			if err := s.Remove(vcontext.Background(), key); err != nil {
				return err
			}
		}
		return nil
	})
	return &cmdline.Command{
		Name:     "cache",
		Short:    "Inspect a segment cache",
		Children: []*cmdline.Command{ls, show, rm},
	}
}

// Run runs the bio-tracks command line.
func Run() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-tracks",
			Short:    "Assemble and serve genomic track data",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdAssemble(),
				newCmdServe(),
				newCmdKey(),
				newCmdCache(),
			},
		})
}
