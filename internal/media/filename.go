// Package media saves library files (satellite images and PDF reports) to
// disk under predictable, filesystem-safe names.
package media

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const maxTitleRunes = 50

var (
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separators  = regexp.MustCompile(`[-\s]+`)
)

// SafeTitle strips punctuation from title, collapses runs of dashes and
// whitespace into a single underscore, and keeps at most 50 runes.
func SafeTitle(title string) string {
	s := unsafeChars.ReplaceAllString(title, "")
	s = separators.ReplaceAllString(s, "_")
	r := []rune(s)
	if len(r) > maxTitleRunes {
		r = r[:maxTitleRunes]
	}
	return string(r)
}

// ImageExtension picks a file extension from the image URL path, defaulting
// to .jpg.
func ImageExtension(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)
	switch {
	case strings.Contains(path, ".jpg"), strings.Contains(path, ".jpeg"):
		return ".jpg"
	case strings.Contains(path, ".png"):
		return ".png"
	case strings.Contains(path, ".gif"):
		return ".gif"
	case strings.Contains(path, ".tiff"), strings.Contains(path, ".tif"):
		return ".tiff"
	default:
		return ".jpg"
	}
}

// ImageFilename names the n-th (1-based) saved satellite image.
func ImageFilename(n int, title, rawURL string) string {
	return fmt.Sprintf("satellite_%02d_%s%s", n, SafeTitle(title), ImageExtension(rawURL))
}

// ReportFilename names the n-th (1-based) saved report.
func ReportFilename(n int, title string) string {
	return fmt.Sprintf("report_%02d_%s.pdf", n, SafeTitle(title))
}

// LooksLikeImage reports whether a response content type or the URL suggests
// image data.
func LooksLikeImage(contentType, rawURL string) bool {
	ct := strings.ToLower(contentType)
	for _, t := range []string{"image/", "jpeg", "jpg", "png", "gif"} {
		if strings.Contains(ct, t) {
			return true
		}
	}
	u := strings.ToLower(rawURL)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".tiff", ".tif"} {
		if strings.Contains(u, ext) {
			return true
		}
	}
	return false
}
