package domain

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxDescriptionRunes caps the extracted detail description.
const MaxDescriptionRunes = 500

const maxImpactPhrases = 3

type durationPattern struct {
	re         *regexp.Regexp
	multiplier int
}

// Patterns are tried in order against the lower-cased page; the first hit in
// each category wins.
var (
	durationPatterns = []durationPattern{
		{regexp.MustCompile(`(\d+)\s*days?`), 1},
		{regexp.MustCompile(`(\d+)\s*weeks?`), 7},
		{regexp.MustCompile(`lasted\s+(\d+)\s*days?`), 1},
		{regexp.MustCompile(`duration[:\s]+(\d+)\s*days?`), 1},
		{regexp.MustCompile(`over\s+(\d+)\s*days?`), 1},
		{regexp.MustCompile(`for\s+(\d+)\s*days?`), 1},
	}

	dateRangePatterns = []*regexp.Regexp{
		regexp.MustCompile(`from\s+(\d{1,2}[/\-]\d{1,2}[/\-]\d{4})\s+to\s+(\d{1,2}[/\-]\d{1,2}[/\-]\d{4})`),
		regexp.MustCompile(`between\s+(\d{1,2}[/\-]\d{1,2}[/\-]\d{4})\s+and\s+(\d{1,2}[/\-]\d{1,2}[/\-]\d{4})`),
		regexp.MustCompile(`(\d{1,2}\s+\w+\s+\d{4})\s+to\s+(\d{1,2}\s+\w+\s+\d{4})`),
	}

	impactPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+[,\d]*)\s+(?:people\s+)?(deaths?)`),
		regexp.MustCompile(`(\d+[,\d]*)\s+(?:people\s+)?(casualties)`),
		regexp.MustCompile(`(\d+[,\d]*)\s+(?:people\s+)?(missing)`),
		regexp.MustCompile(`(\d+[,\d]*)\s+(?:people\s+)?(displaced)`),
		regexp.MustCompile(`(\d+[,\d]*)\s+(?:people\s+)?(evacuated)`),
		regexp.MustCompile(`(\d+[,\d]*)\s+(?:people\s+)?(affected)`),
	}

	firstParagraph = regexp.MustCompile(`(?is)<p(?:\s[^>]*)?>(.*?)</p>`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
)

// ExtractDetail pulls duration, date range, description and impact figures
// out of an activation detail page. Categories are independent; anything not
// found stays nil.
func ExtractDetail(page string) DurationDetail {
	var d DurationDetail
	text := strings.ToLower(page)

	for _, p := range durationPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		d.DurationDays = ptr(n * p.multiplier)
		break
	}

	for _, re := range dateRangePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			d.StartDate = ptr(m[1])
			d.EndDate = ptr(m[2])
			break
		}
	}

	if desc := extractDescription(page); desc != "" {
		d.Description = ptr(desc)
	}

	if impact := extractImpact(text); impact != "" {
		d.ImpactDetails = ptr(impact)
	}
	return d
}

func extractDescription(page string) string {
	m := firstParagraph.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	desc := html.UnescapeString(htmlTag.ReplaceAllString(m[1], ""))
	return truncateRunes(strings.TrimSpace(desc), MaxDescriptionRunes)
}

func extractImpact(text string) string {
	var phrases []string
	seen := make(map[string]bool)
	for _, re := range impactPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			phrase := m[1] + " " + m[2]
			if seen[phrase] {
				continue
			}
			seen[phrase] = true
			phrases = append(phrases, phrase)
			if len(phrases) == maxImpactPhrases {
				return strings.Join(phrases, "; ")
			}
		}
	}
	return strings.Join(phrases, "; ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
