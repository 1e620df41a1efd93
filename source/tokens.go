package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	gunsafe "github.com/grailbio/base/unsafe"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// isHeaderLine returns true for blank, comment, "track" and "browser" lines
// of BED-like files.
func isHeaderLine(line []byte) bool {
	line = bytes.TrimLeft(line, " \t")
	return len(line) == 0 || line[0] == '#' ||
		bytes.HasPrefix(line, []byte("track")) || bytes.HasPrefix(line, []byte("browser"))
}

// scanLines calls fn for every data line of a BED-like file, with the first
// len(tokens) tokens of the line.  Lines with fewer than minTokens tokens are
// rejected.
func scanLines(r io.Reader, tokens [][]byte, minTokens int, fn func(lineIdx, nToken int) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 16<<20)
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		if isHeaderLine(curLine) {
			continue
		}
		nToken := getTokens(tokens, curLine)
		if nToken < minTokens {
			return errors.E(errors.Invalid, fmt.Sprintf("line %d has fewer tokens than expected", lineIdx))
		}
		if err := fn(lineIdx, nToken); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// parseSpan parses 0-based half-open BED coordinates into an inclusive
// [start, end] pair.  Empty spans return ok=false.
func parseSpan(startTok, endTok []byte, lineIdx int) (start, end int, ok bool, err error) {
	if start, err = strconv.Atoi(gunsafe.BytesToString(startTok)); err != nil {
		return
	}
	var limit int
	if limit, err = strconv.Atoi(gunsafe.BytesToString(endTok)); err != nil {
		return
	}
	if start < 0 || limit < start {
		err = errors.E(errors.Invalid, fmt.Sprintf("invalid coordinate pair on line %d", lineIdx))
		return
	}
	return start, limit - 1, limit > start, nil
}
