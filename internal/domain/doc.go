// Package domain models International Charter "Space and Major Disasters"
// activation data collected from disasterscharter.org.
//
// # Data Source
//
// The public site renders its listings with React Server Components. Asking
// for a page with the "rsc: 1" header returns a flight stream: one framed
// record per line, with the interesting data embedded as a JSON array under a
// named key. Three listings are consumed:
//
//	/activations?disaster=flood&location=<region>   "activations":[ ... ]
//	/library/quickviews?disaster=flood               "items":[ ... ] with "quickviewId"
//	/library/documents                               "items":[ ... ] with "documentUrl"
//
// Cutting the arrays out of the stream is the job of package fragment; this
// package owns the typed raw shapes and their normalization.
//
// # Charter Data Conventions
//
// Identifiers:
//
//	activationId is the Charter call number (e.g. "892"). Depending on the
//	page it is serialized as a string or a number; both decode to a string.
//
// Time:
//
//	dateAsTimestamp is epoch milliseconds (UTC). Zero or missing means the
//	activation date is unknown, and the event is stored without a date.
//
// Coordinates:
//
//	centerPointLatitude / centerPointLongitude are WGS-84 degrees, sometimes
//	serialized as strings. Values outside [-90,90] / [-180,180] are zeroed.
//
// Quickviews:
//
//	A quickview pairs two satellite images. image1* is the post-event
//	acquisition, image2* the pre-event reference. Each image yields its own
//	SatelliteImageRecord and fields never cross between the two.
//
// # Region Queries and Deduplication
//
// Activations are listed once without a location filter ("global") and once
// per Charter region. The same activation shows up in several listings. An
// EventSet keeps the first copy it sees and drops the rest, so the order of a
// QueryPlan decides which region tag a duplicate keeps. QueryPlan.Validate
// enforces that the global query, when present, runs first.
//
// # Severity Classification
//
// The upstream data carries no severity. A coarse label is derived from the
// title for flood activations only:
//
//	contains devastating|major|severe|catastrophic   high
//	contains flooding|flood                          medium
//	otherwise                                        low
//
// Sets are checked in that order and the first hit wins.
//
// # Detail Enrichment
//
// Activation detail pages are free text. ExtractDetail pulls a duration,
// a date range, a description and impact figures out of them with ordered
// regular expressions; anything not found stays null.
package domain
