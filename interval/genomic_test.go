package interval

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestGenomicIntervalLength(t *testing.T) {
	expect.EQ(t, New("chr1", 1000, 1999).Length(), 1000)
	expect.EQ(t, New("chr1", 5, 5).Length(), 1)
	expect.EQ(t, New("chr1", 6, 5).Length(), 0)
	expect.True(t, New("chr1", 6, 5).Empty())
}

func TestGenomicIntervalIntersection(t *testing.T) {
	tests := []struct {
		a, b GenomicInterval
		want GenomicInterval
		ok   bool
	}{
		{New("chr1", 1000, 1999), New("chr1", 1500, 2500), New("chr1", 1500, 1999), true},
		{New("chr1", 1500, 2500), New("chr1", 1000, 1999), New("chr1", 1500, 1999), true},
		{New("chr1", 100, 149), New("chr1", 149, 199), New("chr1", 149, 149), true},
		{New("chr1", 100, 149), New("chr1", 150, 199), GenomicInterval{}, false},
		{New("chr1", 100, 199), New("chr2", 100, 199), GenomicInterval{}, false},
		{New("chr1", 100, 199), New("chr1", 120, 110), GenomicInterval{}, false},
		{New("chr1", 100, 199), New("chr1", 120, 130), New("chr1", 120, 130), true},
	}
	for _, tt := range tests {
		got, ok := tt.a.Intersection(tt.b)
		expect.EQ(t, ok, tt.ok, "%v ∩ %v", tt.a, tt.b)
		expect.EQ(t, tt.a.Intersects(tt.b), tt.ok, "%v ∩ %v", tt.a, tt.b)
		if ok {
			expect.EQ(t, got, tt.want)
		}
	}
}

func TestGenomicIntervalClamp(t *testing.T) {
	iv := New("chr1", 100, 199)
	got, ok := iv.Clamp(50, 120)
	expect.True(t, ok)
	expect.EQ(t, got, New("chr1", 100, 120))

	got, ok = iv.Clamp(150, 500)
	expect.True(t, ok)
	expect.EQ(t, got, New("chr1", 150, 199))

	_, ok = iv.Clamp(200, 300)
	expect.False(t, ok)
	_, ok = iv.Clamp(150, 140)
	expect.False(t, ok)
}

func TestGenomicIntervalCompare(t *testing.T) {
	expect.True(t, New("chr1", 10, 20).Compare(New("chr1", 11, 12)) < 0)
	expect.True(t, New("chr1", 10, 20).Compare(New("chr1", 10, 19)) > 0)
	expect.True(t, New("chr1", 10, 20).Compare(New("chr2", 0, 1)) < 0)
	expect.EQ(t, New("chr1", 10, 20).Compare(New("chr1", 10, 20)), 0)
	expect.EQ(t, New("chr1", 10, 20).Shift(-10), New("chr1", 0, 10))
	expect.EQ(t, New("chrX", 3, 9).String(), "chrX:3-9")
}

func TestParseRegionString(t *testing.T) {
	tests := []struct {
		region string
		want   GenomicInterval
	}{
		{"chr1:1-1000", New("chr1", 1, 1000)},
		{"chr1:1000", New("chr1", 1000, 1000)},
		{"chr1:1,500-2,500", New("chr1", 1500, 2500)},
		{"HLA-A*01:01:1-5", New("HLA-A*01:01", 1, 5)},
	}
	for _, tt := range tests {
		result, err := ParseRegionString(tt.region)
		expect.NoError(t, err)
		expect.EQ(t, result, tt.want)
	}
	for _, bad := range []string{"", "chr1", ":1-5", "chr1:9-5", "chr1:a-5"} {
		_, err := ParseRegionString(bad)
		expect.NotNil(t, err, bad)
	}
}
