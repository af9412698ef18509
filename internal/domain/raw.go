package domain

import "github.com/couchcryptid/flood-activation-etl/internal/fragment"

// Markers that locate each listing's array in a flight response, plus the
// co-occurring fields that tell the listings apart (quickviews and documents
// both live under "items").
var (
	ActivationsMarker = fragment.ArrayMarker("activations")

	ItemsMarker       = fragment.ArrayMarker("items")
	QuickviewRequired = []string{`"quickviewId":`, `"image1Url":`}
	DocumentsRequired = []string{`"title":`, `"documentUrl":`}
)

// RawActivation is one entry of the "activations" array.
type RawActivation struct {
	ActivationID          FlexString `json:"activationId"`
	Title                 string     `json:"title"`
	DateAsTimestamp       FlexInt    `json:"dateAsTimestamp"`
	Country               string     `json:"country"`
	CenterPointLatitude   FlexFloat  `json:"centerPointLatitude"`
	CenterPointLongitude  FlexFloat  `json:"centerPointLongitude"`
	Slug                  string     `json:"slug"`
	ArticleID             FlexString `json:"articleId"`
	ExternalReferenceCode FlexString `json:"externalReferenceCode"`
	Keywords              string     `json:"keywords"`
	DisasterTypes         []string   `json:"disasterTypes"`
}

// RawQuickview is one entry of the quickviews "items" array.
type RawQuickview struct {
	QuickviewID     FlexInt `json:"quickviewId"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Copyrights      string  `json:"copyrights"`
	Country         string  `json:"country"`
	Image1URL       string  `json:"image1Url"`
	Image1Satellite string  `json:"image1Satellite"`
	Image1Width     FlexInt `json:"image1Width"`
	Image1Height    FlexInt `json:"image1Height"`
	Image2URL       string  `json:"image2Url"`
	Image2Satellite string  `json:"image2Satellite"`
	Image2Width     FlexInt `json:"image2Width"`
	Image2Height    FlexInt `json:"image2Height"`
}

// RawDocument is one entry of the documents "items" array.
type RawDocument struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DocumentURL string `json:"documentUrl"`
	Keywords    string `json:"keywords"`
}
