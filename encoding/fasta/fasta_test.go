package fasta_test

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/tracks/encoding/fasta"
	"github.com/klauspost/compress/gzip"
)

const (
	fastaData  = ">seq1\n" + "ACGTA\nCGTAC\nGT\n" + ">seq2 A viral sequence\n" + "ACGT\n" + "ACGT\n"
	fastaIndex = "seq1\t12\t6\t5\t6\n" + "seq2\t8\t44\t4\t5\n"
)

func readers(t *testing.T, opts fasta.Opts) map[string]fasta.Fasta {
	unindexed, err := fasta.New(strings.NewReader(fastaData), opts)
	assert.NoError(t, err)
	indexed, err := fasta.NewIndexed(strings.NewReader(fastaData), strings.NewReader(fastaIndex), opts)
	assert.NoError(t, err)
	return map[string]fasta.Fasta{"unindexed": unindexed, "indexed": indexed}
}

func TestRead(t *testing.T) {
	tests := []struct {
		seq        string
		start, end int
		want       string
	}{
		{"seq1", 1, 2, "C"},
		{"seq1", 1, 6, "CGTAC"},
		{"seq1", 0, 12, "ACGTACGTACGT"},
		{"seq1", 0, 10, "ACGTACGTAC"},
		{"seq1", 10, 12, "GT"},
		{"seq2", 0, 8, "ACGTACGT"},
		{"seq2", 2, 5, "GTA"},
	}
	for name, fa := range readers(t, fasta.Opts{}) {
		for _, tt := range tests {
			got, err := fa.Read([]byte("x"), tt.seq, tt.start, tt.end)
			assert.NoError(t, err)
			expect.EQ(t, string(got), "x"+tt.want, "%s %+v", name, tt)
		}
		_, err := fa.Read(nil, "seq0", 0, 1)
		expect.True(t, errors.Is(errors.NotExist, err), name)
		_, err = fa.Read(nil, "seq1", 10, 13)
		expect.True(t, errors.Is(errors.Invalid, err), name)
		_, err = fa.Read(nil, "seq1", 4, 3)
		expect.True(t, errors.Is(errors.Invalid, err), name)

		n, err := fa.Len("seq2")
		assert.NoError(t, err)
		expect.EQ(t, n, 8)
		expect.EQ(t, fa.SeqNames(), []string{"seq1", "seq2"})
	}
}

func TestClean(t *testing.T) {
	const data = ">s\nacgtRYn\nACGT*\n"
	fa, err := fasta.New(strings.NewReader(data), fasta.DefaultOpts)
	assert.NoError(t, err)
	got, err := fa.Read(nil, "s", 0, 12)
	assert.NoError(t, err)
	expect.EQ(t, string(got), "ACGTNNNACGTN")

	idx := bytes.Buffer{}
	assert.NoError(t, fasta.GenerateIndex(&idx, strings.NewReader(data)))
	indexed, err := fasta.NewIndexed(strings.NewReader(data), &idx, fasta.DefaultOpts)
	assert.NoError(t, err)
	got, err = indexed.Read(nil, "s", 2, 9)
	assert.NoError(t, err)
	expect.EQ(t, string(got), "GTNNNAC")
}

func TestGenerateIndex(t *testing.T) {
	generateIndex := func(fa string) (faidx string) {
		idx := bytes.Buffer{}
		assert.NoError(t, fasta.GenerateIndex(&idx, strings.NewReader(fa)))
		return idx.String()
	}

	fa := `>E0
GGTGAAATC
CCTGAAATC
AAAATTGCT
>E1
GTCCCTCCCCAGACATGGCCCTGGGAGGC
>E2
CCGCGCCCGCGCCCCCGCCGCC
>E3
GTCAAGGTTGCACAG
>E4
ATGAATCATGTGGTAAAA
`
	fai := generateIndex(fa)
	assert.EQ(t, fai, `E0	27	4	9	10
E1	29	38	29	30
E2	22	72	22	23
E3	15	99	15	16
E4	18	119	18	19
`)
	indexed, err := fasta.NewIndexed(strings.NewReader(fa), strings.NewReader(fai), fasta.Opts{})
	assert.NoError(t, err)
	l, err := indexed.Len("E3")
	assert.NoError(t, err)
	assert.EQ(t, l, 15)
	seq, err := indexed.Read(nil, "E3", 0, l)
	assert.NoError(t, err)
	assert.EQ(t, string(seq), "GTCAAGGTTGCACAG")
	seq, err = indexed.Read(nil, "E0", 7, 21)
	assert.NoError(t, err)
	assert.EQ(t, string(seq), "TCCCTGAAATCAAA")

	// MS-DOS line endings.
	assert.EQ(t, generateIndex(">E0\r\nGGGG\r\n>E1\r\nAAAAA\r\n"),
		`E0	4	5	4	6
E1	5	16	5	7
`)
	// No newline at the end.
	assert.EQ(t, generateIndex(">E0\nGGGG\n>E1\nCCCCC\nAAAAA"),
		`E0	4	4	4	5
E1	10	13	5	6
`)
	assert.EQ(t, generateIndex(">E0\nGGGG\n>E1\nAAAAA"),
		`E0	4	4	4	5
E1	5	13	5	5
`)
	unterminated := ">E0\nGGGG\n>E1\nCCCCC\nAAA"
	indexed, err = fasta.NewIndexed(strings.NewReader(unterminated),
		strings.NewReader(generateIndex(unterminated)), fasta.Opts{})
	assert.NoError(t, err)
	seq, err = indexed.Read(nil, "E1", 3, 8)
	assert.NoError(t, err)
	assert.EQ(t, string(seq), "CCAAA")

	idx := bytes.Buffer{}
	assert.Regexp(t, fasta.GenerateIndex(&idx, strings.NewReader("")), "empty FASTA")
}

func TestOpen(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "fasta")
	defer cleanup()

	plain := filepath.Join(dir, "ref.fa")
	assert.NoError(t, ioutil.WriteFile(plain, []byte(fastaData), 0644))
	gzPath := filepath.Join(dir, "ref.fa.gz")
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write([]byte(fastaData))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, ioutil.WriteFile(gzPath, gz.Bytes(), 0644))

	check := func(path string) {
		f, err := fasta.Open(ctx, path, fasta.DefaultOpts)
		assert.NoError(t, err)
		got, err := f.Read(nil, "seq1", 3, 9)
		assert.NoError(t, err)
		expect.EQ(t, string(got), "TACGTA", path)
		assert.NoError(t, f.Close(ctx))
	}
	check(plain)
	check(gzPath)

	// With an index.
	assert.NoError(t, ioutil.WriteFile(plain+".fai", []byte(fastaIndex), 0644))
	check(plain)

	_, err = fasta.Open(ctx, filepath.Join(dir, "missing.fa"), fasta.DefaultOpts)
	expect.True(t, errors.Is(errors.NotExist, err))
}
