// Command validate checks collection outputs against the consumer contract:
// every event carries a unique activation ID, snapshot metadata agrees with
// the events it summarizes, derived fields match what the domain rules
// produce, and media manifests only list records with resolvable URLs.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -snapshot data/processed/flood_events.json \
//	  -images data/images/images_metadata.json \
//	  -reports data/reports/reports_metadata.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"slices"

	"github.com/google/go-cmp/cmp"

	"github.com/couchcryptid/flood-activation-etl/internal/adapter/snapshot"
	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	snapshotPath := flag.String("snapshot", "", "path to a processed or enriched snapshot")
	imagesPath := flag.String("images", "", "optional path to the images manifest")
	reportsPath := flag.String("reports", "", "optional path to the reports manifest")
	checkFiles := flag.Bool("check-files", true, "verify downloaded files exist with the recorded size")
	flag.Parse()

	if *snapshotPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*snapshotPath, *imagesPath, *reportsPath, *checkFiles))
}

func run(snapshotPath, imagesPath, reportsPath string, checkFiles bool) int {
	fmt.Println("=== Flood Activation Output Validation ===")
	fmt.Println()

	snap, err := snapshot.Load(snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load snapshot: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateEvents(snap.Events),
		validateMetadata(snap),
		validateDerivedFields(snap.Events),
	}

	if imagesPath != "" {
		var m domain.ImageManifest
		if err := loadJSON(imagesPath, &m); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load images manifest: %v\n", err)
			return 1
		}
		phases = append(phases, validateImages(m, checkFiles))
	}
	if reportsPath != "" {
		var m domain.ReportManifest
		if err := loadJSON(reportsPath, &m); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load reports manifest: %v\n", err)
			return 1
		}
		phases = append(phases, validateReports(m, checkFiles))
	}

	return report(phases, len(snap.Events))
}

func report(phases []*phase, events int) int {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Events: %d\n", events)

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// ── Events ──

func validateEvents(events []domain.DisasterEvent) *phase {
	p := &phase{name: "Event identity"}
	seen := make(map[string]int, len(events))
	for i := range events {
		e := &events[i]
		if e.ActivationID == "" {
			p.errorf("event %d (%q): activation_id is empty", i, e.Title)
			continue
		}
		if first, dup := seen[e.ActivationID]; dup {
			p.errorf("event %d: activation_id %s duplicates event %d", i, e.ActivationID, first)
			continue
		}
		seen[e.ActivationID] = i

		if e.CollectedAt.IsZero() {
			p.errorf("event %s: collected_at is zero", e.ActivationID)
		}
		switch {
		case e.Synthetic && e.DataSource != domain.SourcePlaceholder:
			p.errorf("event %s: synthetic event has data_source %q", e.ActivationID, e.DataSource)
		case !e.Synthetic && e.DataSource != domain.SourceCharter:
			p.errorf("event %s: data_source %q, want %q", e.ActivationID, e.DataSource, domain.SourceCharter)
		}
	}
	return p
}

// ── Metadata ──

func validateMetadata(snap domain.Snapshot) *phase {
	p := &phase{name: "Snapshot metadata"}
	md := snap.Metadata

	synthetic := slices.ContainsFunc(snap.Events, func(e domain.DisasterEvent) bool { return e.Synthetic })
	if synthetic != md.Synthetic {
		p.errorf("metadata.synthetic = %v but events synthetic = %v", md.Synthetic, synthetic)
	}
	if md.CollectionDate.IsZero() {
		p.errorf("metadata.collection_date is zero")
	}

	want := domain.BuildSnapshot(snap.Events, md.CollectionDate, md.Synthetic).Metadata
	if diff := cmp.Diff(want, md); diff != "" {
		p.errorf("metadata does not summarize events (-want +got):\n%s", diff)
	}
	return p
}

// ── Derived fields ──

func validateDerivedFields(events []domain.DisasterEvent) *phase {
	p := &phase{name: "Derived fields"}
	for i := range events {
		checkDerived(p.errorf, &events[i])
	}
	return p
}

func checkDerived(pf func(string, ...any), e *domain.DisasterEvent) {
	id := e.ActivationID
	if e.OccurredAt != nil && e.OccurredAt.UnixMilli() != e.Timestamp {
		pf("event %s: date %s does not match timestamp %d", id, e.OccurredAt, e.Timestamp)
	}
	if e.Location.Latitude < -90 || e.Location.Latitude > 90 {
		pf("event %s: latitude %v out of range", id, e.Location.Latitude)
	}
	if e.Location.Longitude < -180 || e.Location.Longitude > 180 {
		pf("event %s: longitude %v out of range", id, e.Location.Longitude)
	}
	if e.Location.Region == "" {
		pf("event %s: region is empty", id)
	}
	if e.Synthetic {
		return
	}

	switch {
	case e.DisasterType == nil && e.Severity != nil:
		pf("event %s: severity set without disaster_type", id)
	case e.DisasterType != nil && e.Severity == nil:
		pf("event %s: disaster_type set without severity", id)
	case e.Severity != nil:
		if want := domain.SeverityFromTitle(e.Title); *e.Severity != want {
			pf("event %s: severity %q, title %q classifies as %q", id, *e.Severity, e.Title, want)
		}
	}
}

// ── Media manifests ──

func validateImages(m domain.ImageManifest, checkFiles bool) *phase {
	p := &phase{name: "Images manifest"}
	if m.TotalCount != len(m.Images) {
		p.errorf("total_count %d, images %d", m.TotalCount, len(m.Images))
	}
	var total int64
	for i, img := range m.Images {
		total += img.FileSize
		checkURL(p.errorf, fmt.Sprintf("image %d", i), img.ImageURL)
		if checkFiles {
			checkFile(p.errorf, img.Filepath, img.FileSize)
		}
	}
	if total != m.TotalSizeBytes {
		p.errorf("total_size_bytes %d, sum of file sizes %d", m.TotalSizeBytes, total)
	}
	return p
}

func validateReports(m domain.ReportManifest, checkFiles bool) *phase {
	p := &phase{name: "Reports manifest"}
	if m.TotalCount != len(m.Reports) {
		p.errorf("total_count %d, reports %d", m.TotalCount, len(m.Reports))
	}
	for i, r := range m.Reports {
		checkURL(p.errorf, fmt.Sprintf("report %d", i), r.DocumentURL)
		if checkFiles {
			checkFile(p.errorf, r.Filepath, r.FileSize)
		}
	}
	return p
}

func checkURL(pf func(string, ...any), what, raw string) {
	if raw == "" {
		pf("%s: url is empty", what)
		return
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		pf("%s: url %q is not absolute", what, raw)
	}
}

func checkFile(pf func(string, ...any), path string, size int64) {
	info, err := os.Stat(path)
	if err != nil {
		pf("file %s: %v", path, err)
		return
	}
	if info.Size() != size {
		pf("file %s: size %d, manifest says %d", path, info.Size(), size)
	}
}
