package cmd

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"v.io/x/lib/cmdline"
)

const (
	testFasta    = ">chr1\nACGTACGTAC\nGGGGCCCCTT\nAAAATTTTNN\n>chr2\nCCCCCCCCCC\n"
	testManifest = "name\tchrom\tstart\tend\n# comment\ns1\tchr1\t5\t24\ns2\tchr2\t0\t19\n"
)

func setupFlags(t *testing.T, dir string) assembleFlags {
	flags := addAssembleFlags(&cmdline.Command{Name: "assemble"})
	*flags.track.name = "dna"
	*flags.manifest = filepath.Join(dir, "manifest.tsv")
	*flags.source = filepath.Join(dir, "ref.fa")
	*flags.chunkSize = 8
	*flags.out = filepath.Join(dir, "summary.tsv")
	require.NoError(t, ioutil.WriteFile(*flags.manifest, []byte(testManifest), 0644))
	require.NoError(t, ioutil.WriteFile(*flags.source, []byte(testFasta), 0644))
	return flags
}

func TestRunAssemble(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "bio-tracks")
	defer cleanup()
	flags := setupFlags(t, dir)
	*flags.values = true

	reg, err := runAssemble(ctx, flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, reg.Names())

	summary, err := ioutil.ReadFile(*flags.out)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "s1\tchr1\t5\t24\tfull\t4\t0\ttrue\t\n")
	assert.Contains(t, string(summary), "s2\tchr2\t0\t19\tpartial\t2\t0\ttrue\tchr2:10-19\n")

	values, err := ioutil.ReadFile(filepath.Join(dir, "summary.values.tsv"))
	require.NoError(t, err)
	assert.Contains(t, string(values), "s1\tchr1\t5\tC\n")
	assert.Contains(t, string(values), "s1\tchr1\t24\tA\n")
	assert.Contains(t, string(values), "s2\tchr2\t19\tN\n")
}

func TestRunAssembleErrors(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "bio-tracks")
	defer cleanup()

	flags := setupFlags(t, dir)
	*flags.track.kind = "numbers"
	_, err := runAssemble(ctx, flags)
	assert.Error(t, err)

	flags = setupFlags(t, dir)
	*flags.source = filepath.Join(dir, "ref.vcf")
	_, err = runAssemble(ctx, flags)
	assert.Error(t, err)

	flags = setupFlags(t, dir)
	*flags.track.name = ""
	_, err = runAssemble(ctx, flags)
	assert.Error(t, err)
}

func TestCacheCommands(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "bio-tracks")
	defer cleanup()
	cacheDir := filepath.Join(dir, "cache")
	flags := setupFlags(t, dir)
	*flags.cacheDir = cacheDir
	*flags.out = ""

	_, err := runAssemble(ctx, flags)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, cacheList(ctx, &out, cacheDir))
	assert.Equal(t,
		"dna_1_hg19_chr1_0_7\n"+
			"dna_1_hg19_chr1_16_23\n"+
			"dna_1_hg19_chr1_24_31\n"+
			"dna_1_hg19_chr1_8_15\n"+
			"dna_1_hg19_chr2_0_7\n"+
			"dna_1_hg19_chr2_16_23\n"+
			"dna_1_hg19_chr2_8_15\n",
		out.String())

	out.Reset()
	require.NoError(t, cacheShow(ctx, &out, cacheDir, []string{"dna_1_hg19_chr1_24_31", "dna_1_hg19_chr2_16_23"}))
	assert.Equal(t,
		"dna_1_hg19_chr1_24_31\tchr1:24-29\tbytes\t6\n"+
			"dna_1_hg19_chr2_16_23\t-\tempty\t0\n",
		out.String())

	assert.Error(t, cacheShow(ctx, &out, cacheDir, []string{"dna_1_hg19_chr1_0_9"}))

	// A second run is served from the cache.
	_, err = runAssemble(ctx, flags)
	require.NoError(t, err)
}
