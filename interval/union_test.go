package interval

import (
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestUnionAdd(t *testing.T) {
	u := NewUnion("chr1")
	u.Add(10, 19)
	u.Add(30, 39)
	expect.EQ(t, u.endpoints, []int{10, 20, 30, 40})

	// Touching intervals merge.
	u.Add(20, 24)
	expect.EQ(t, u.endpoints, []int{10, 25, 30, 40})

	// Bridging interval merges both neighbors.
	u.Add(22, 31)
	expect.EQ(t, u.endpoints, []int{10, 40})

	u.Add(0, 4)
	u.Add(50, 49)
	expect.EQ(t, u.endpoints, []int{0, 5, 10, 40})
	expect.EQ(t, u.Covered(), 35)

	u.AddInterval(New("chr2", 5, 9))
	expect.EQ(t, u.Covered(), 35)
	u.AddInterval(New("chr1", 5, 9))
	expect.EQ(t, u.Intervals(), []GenomicInterval{New("chr1", 0, 39)})
}

func TestUnionCoversAndGaps(t *testing.T) {
	u := NewUnion("chr1")
	u.Add(100, 139)
	u.Add(160, 199)

	expect.True(t, u.Contains(100))
	expect.True(t, u.Contains(139))
	expect.False(t, u.Contains(140))
	expect.True(t, u.Covers(100, 139))
	expect.False(t, u.Covers(100, 140))
	expect.True(t, u.Covers(170, 180))
	expect.True(t, u.Covers(5, 4))

	expect.EQ(t, u.Gaps(90, 210), []GenomicInterval{
		New("chr1", 90, 99),
		New("chr1", 140, 159),
		New("chr1", 200, 210),
	})
	expect.EQ(t, len(u.Gaps(100, 139)), 0)
	expect.EQ(t, u.Gaps(130, 165), []GenomicInterval{New("chr1", 140, 159)})
}

func TestUnionRandom(t *testing.T) {
	const size = 500
	for iter := 0; iter < 100; iter++ {
		u := NewUnion("chr1")
		var covered [size]bool
		for i := 0; i < 20; i++ {
			start := rand.Intn(size)
			end := start + rand.Intn(30)
			if end >= size {
				end = size - 1
			}
			u.Add(start, end)
			for p := start; p <= end; p++ {
				covered[p] = true
			}
		}
		n := 0
		for p := 0; p < size; p++ {
			if covered[p] {
				n++
			}
			if u.Contains(p) != covered[p] {
				t.Fatalf("position %d: want %v", p, covered[p])
			}
		}
		expect.EQ(t, u.Covered(), n)
		gapTotal := 0
		for _, g := range u.Gaps(0, size-1) {
			gapTotal += g.Length()
		}
		expect.EQ(t, gapTotal, size-n)
	}
}
