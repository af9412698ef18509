package domain

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/flood-activation-etl/internal/fragment"
)

const (
	postDisasterSuffix   = " - Post-disaster"
	preDisasterSuffix    = " - Pre-disaster"
	postDisasterKeywords = "satellite, flood, quickview, post-disaster"
	preDisasterKeywords  = "satellite, flood, quickview, pre-disaster"
)

// documentPriorityKeywords ranks documents for download. A document's score
// is the index of the first keyword found in its title or keywords.
var documentPriorityKeywords = []string{"report", "annual", "technical", "guidelines"}

// QuickviewNormalizer splits a quickview into its post- and pre-event images.
// Relative image URLs are resolved against BaseURL when it is set.
type QuickviewNormalizer struct {
	BaseURL *url.URL
}

// Normalize yields one record per present image URL: image1 first, tagged
// Post-disaster, then image2, tagged Pre-disaster.
func (n QuickviewNormalizer) Normalize(raw RawQuickview) []SatelliteImageRecord {
	title := raw.Title
	if title == "" {
		title = "Unknown"
	}

	var out []SatelliteImageRecord
	if u := resolveURL(n.BaseURL, raw.Image1URL); u != "" {
		out = append(out, SatelliteImageRecord{
			Title:       title + postDisasterSuffix,
			Description: raw.Description,
			ImageURL:    u,
			Keywords:    postDisasterKeywords,
			Copyright:   raw.Copyrights,
			Country:     raw.Country,
			Satellite:   raw.Image1Satellite,
			Width:       int64(raw.Image1Width),
			Height:      int64(raw.Image1Height),
			QuickviewID: int64(raw.QuickviewID),
		})
	}
	if u := resolveURL(n.BaseURL, raw.Image2URL); u != "" {
		out = append(out, SatelliteImageRecord{
			Title:       title + preDisasterSuffix,
			Description: raw.Description,
			ImageURL:    u,
			Keywords:    preDisasterKeywords,
			Copyright:   raw.Copyrights,
			Country:     raw.Country,
			Satellite:   raw.Image2Satellite,
			Width:       int64(raw.Image2Width),
			Height:      int64(raw.Image2Height),
			QuickviewID: int64(raw.QuickviewID),
		})
	}
	return out
}

// DocumentNormalizer maps library documents, dropping entries without a
// resolvable URL.
type DocumentNormalizer struct {
	BaseURL *url.URL
}

func (n DocumentNormalizer) Normalize(raw RawDocument) []DocumentRecord {
	u := resolveURL(n.BaseURL, raw.DocumentURL)
	if u == "" {
		return nil
	}
	title := raw.Title
	if title == "" {
		title = "Unknown"
	}
	doc := DocumentRecord{
		Title:       title,
		Description: raw.Description,
		DocumentURL: u,
		Keywords:    raw.Keywords,
	}
	doc.Priority = DocumentPriority(doc)
	return []DocumentRecord{doc}
}

// DocumentPriority returns the index of the first priority keyword found in
// the document's title or keywords, or len(keywords) when none match.
func DocumentPriority(doc DocumentRecord) int {
	title := strings.ToLower(doc.Title)
	keywords := strings.ToLower(doc.Keywords)
	for i, k := range documentPriorityKeywords {
		if strings.Contains(title, k) || strings.Contains(keywords, k) {
			return i
		}
	}
	return len(documentPriorityKeywords)
}

// RankDocuments returns a copy of docs sorted by ascending priority. Ties keep
// their listing order.
func RankDocuments(docs []DocumentRecord) []DocumentRecord {
	ranked := slices.Clone(docs)
	for i := range ranked {
		ranked[i].Priority = DocumentPriority(ranked[i])
	}
	slices.SortStableFunc(ranked, func(a, b DocumentRecord) int {
		return a.Priority - b.Priority
	})
	return ranked
}

// ParseQuickviews extracts and normalizes the quickviews listing.
func ParseQuickviews(body string, base *url.URL) ([]SatelliteImageRecord, error) {
	raws, err := fragment.ExtractAndDecode[RawQuickview](body, ItemsMarker, QuickviewRequired...)
	if err != nil {
		return nil, err
	}
	return NormalizeAll[RawQuickview, SatelliteImageRecord](QuickviewNormalizer{BaseURL: base}, raws), nil
}

// ParseDocuments extracts and normalizes the documents listing.
func ParseDocuments(body string, base *url.URL) ([]DocumentRecord, error) {
	raws, err := fragment.ExtractAndDecode[RawDocument](body, ItemsMarker, DocumentsRequired...)
	if err != nil {
		return nil, err
	}
	return NormalizeAll[RawDocument, DocumentRecord](DocumentNormalizer{BaseURL: base}, raws), nil
}

// DownloadedImage is a satellite image saved to disk.
type DownloadedImage struct {
	SatelliteImageRecord
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
	FileSize int64  `json:"file_size"`
}

// DownloadedReport is a library document saved to disk.
type DownloadedReport struct {
	DocumentRecord
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
	FileSize int64  `json:"file_size"`
}

// ImageManifest is the images metadata document.
type ImageManifest struct {
	TotalCount     int               `json:"total_count"`
	DownloadDate   time.Time         `json:"download_date"`
	Source         string            `json:"source"`
	Directory      string            `json:"images_directory"`
	TotalSizeBytes int64             `json:"total_size_bytes"`
	Synthetic      bool              `json:"synthetic"`
	Images         []DownloadedImage `json:"images"`
}

// ReportManifest is the reports metadata document.
type ReportManifest struct {
	TotalCount   int                `json:"total_count"`
	DownloadDate time.Time          `json:"download_date"`
	Source       string             `json:"source"`
	Directory    string             `json:"reports_directory"`
	Synthetic    bool               `json:"synthetic"`
	Reports      []DownloadedReport `json:"reports"`
}

// NewImageManifest summarizes downloaded images.
func NewImageManifest(images []DownloadedImage, dir, source string, synthetic bool) ImageManifest {
	var total int64
	for _, img := range images {
		total += img.FileSize
	}
	if images == nil {
		images = []DownloadedImage{}
	}
	return ImageManifest{
		TotalCount:     len(images),
		DownloadDate:   Now(),
		Source:         source,
		Directory:      dir,
		TotalSizeBytes: total,
		Synthetic:      synthetic,
		Images:         images,
	}
}

// NewReportManifest summarizes downloaded reports.
func NewReportManifest(reports []DownloadedReport, dir, source string, synthetic bool) ReportManifest {
	if reports == nil {
		reports = []DownloadedReport{}
	}
	return ReportManifest{
		TotalCount:   len(reports),
		DownloadDate: Now(),
		Source:       source,
		Directory:    dir,
		Synthetic:    synthetic,
		Reports:      reports,
	}
}

// resolveURL returns raw as an absolute URL, resolving it against base when
// it is relative. Empty or unparsable input yields "".
func resolveURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.IsAbs() || base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
