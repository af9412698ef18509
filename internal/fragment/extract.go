// Package fragment locates and decodes JSON arrays embedded in line-oriented
// flight responses.
//
// Upstream pages are served as a stream of framed lines, for example
//
//	4:["$","$L1e",null,{"activations":[{"activationId":"892","title":"Flood in [X]"}],"total":1}]
//
// Only the array introduced by a named key is of interest. The surrounding
// framing is not JSON on its own, so the array is cut out by scanning for a
// balanced bracket pair while tracking string and escape state. Brackets or
// quotes that appear inside string values never affect the scan.
package fragment

import (
	"strings"
)

// RawFragment is an unparsed candidate array body cut from a response.
type RawFragment struct {
	SourceKey string // marker that introduced the array
	Body      string // text from the opening '[' through the matching ']'
	Line      int    // 1-based line number in the response
}

// ArrayMarker returns the marker that introduces a JSON array under key,
// e.g. ArrayMarker("items") == `"items":[`.
func ArrayMarker(key string) string {
	return `"` + key + `":[`
}

// Extract returns the array that follows marker on the first line containing
// marker and every required co-occurring marker. The second return value is
// false when no line qualifies or the array never closes on that line.
func Extract(text, marker string, required ...string) (RawFragment, bool) {
	if marker == "" {
		return RawFragment{}, false
	}

	lineNo := 0
	for line := range strings.Lines(text) {
		lineNo++
		if !qualifies(line, marker, required) {
			continue
		}

		start := openBracket(line, marker)
		if start < 0 {
			return RawFragment{}, false
		}
		end := matchBracket(line, start)
		if end < 0 {
			return RawFragment{}, false
		}
		return RawFragment{
			SourceKey: marker,
			Body:      line[start : end+1],
			Line:      lineNo,
		}, true
	}
	return RawFragment{}, false
}

func qualifies(line, marker string, required []string) bool {
	if !strings.Contains(line, marker) {
		return false
	}
	for _, r := range required {
		if !strings.Contains(line, r) {
			return false
		}
	}
	return true
}

// openBracket returns the offset of the '[' that opens the array introduced
// by marker, or -1.
func openBracket(line, marker string) int {
	idx := strings.Index(line, marker)
	if idx < 0 {
		return -1
	}
	if strings.HasSuffix(marker, "[") {
		return idx + len(marker) - 1
	}
	rel := strings.IndexByte(line[idx+len(marker):], '[')
	if rel < 0 {
		return -1
	}
	return idx + len(marker) + rel
}

// matchBracket scans from the '[' at start and returns the offset of the
// bracket that brings depth back to zero, or -1 if the line ends first.
func matchBracket(line string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(line); i++ {
		c := line[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if inString {
			if c == '"' {
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
