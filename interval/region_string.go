package interval

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRegionString parses a region string of one of the forms
//   [chrom]:[start]-[end]
//   [chrom]:[pos]
// returning the inclusive interval it names.  Coordinates are taken as
// written; commas used as thousands separators are accepted.
func ParseRegionString(region string) (result GenomicInterval, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		err = fmt.Errorf("interval.ParseRegionString: %v has no position range", region)
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty chromosome name")
		return
	}
	result.Chrom = region[0:colonPos]
	rangeStr := strings.Replace(region[colonPos+1:], ",", "", -1)
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos int
		if pos, err = strconv.Atoi(rangeStr); err != nil {
			return
		}
		result.Start = pos
		result.End = pos
		return
	}
	var start, end int
	if start, err = strconv.Atoi(rangeStr[:dashPos]); err != nil {
		return
	}
	if end, err = strconv.Atoi(rangeStr[dashPos+1:]); err != nil {
		return
	}
	if end < start {
		err = fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start = start
	result.End = end
	return
}
