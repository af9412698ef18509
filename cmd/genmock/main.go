// Command genmock builds flight-style activation listing fixtures for the
// collector tests and local mock servers. It runs the generated response
// through the real domain parser so the optional snapshot fixture matches
// what a collection run would write.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -rsc-out testdata/activations_flood.txt \
//	  -snapshot-out testdata/flood_events.json
//
//	go run ./cmd/genmock -in activations.json -key activations -rsc-out out.txt
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-activation-etl/internal/adapter/snapshot"
	"github.com/couchcryptid/flood-activation-etl/internal/domain"
	"github.com/couchcryptid/flood-activation-etl/internal/fixture"
)

// collectedAt is the fixed clock used for reproducible fixtures.
var collectedAt = time.Date(2024, time.May, 2, 6, 0, 0, 0, time.UTC)

type sample struct {
	title   string
	country string
	lat     float64
	lon     float64
}

var samples = []sample{
	{"Flood in Kenya", "Kenya", 0.0236, 37.9062},
	{"Severe flooding in Brazil", "Brazil", -30.0346, -51.2177},
	{"Flash floods in Afghanistan", "Afghanistan", 36.1677, 68.7751},
	{"Flood in Germany", "Germany", 50.9375, 6.9603},
	{"Devastating floods in Libya", "Libya", 32.7670, 22.6367},
	{"Cyclone and storm surge in Bangladesh", "Bangladesh", 22.3569, 91.7832},
	{"Flood in Italy", "Italy", 44.4056, 11.8843},
	{"Major flooding in Pakistan", "Pakistan", 27.5295, 68.7592},
	{"Floods in Democratic Republic of the Congo", "Democratic Republic of the Congo", -4.4419, 15.2663},
	{"Flood in Haiti", "Haiti", 18.5944, -72.3074},
	{"Flood in Fiji", "Fiji", -17.7134, 178.0650},
	{"Landslide in Guatemala", "Guatemala", 14.6349, -90.5069},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "", "JSON array to wrap (default: generate sample activations)")
	key := flag.String("key", "activations", "array key the fragment is embedded under")
	count := flag.Int("n", len(samples), "number of sample activations to generate")
	edgeCases := flag.Bool("edge-cases", true, "add an entry without an ID and a duplicate ID to generated samples")
	region := flag.String("region", domain.GlobalRegion, "region tag applied when building the snapshot fixture")
	rscOut := flag.String("rsc-out", "", "output path for the flight response fixture")
	snapshotOut := flag.String("snapshot-out", "", "optional output path for the processed snapshot fixture")
	flag.Parse()

	if *rscOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -rsc-out")
	}

	// Set a fixed clock for reproducible collection timestamps.
	clock := clockwork.NewFakeClockAt(collectedAt)
	domain.SetClock(clock)
	defer domain.SetClock(nil)

	var items any
	if *in != "" {
		raw, err := os.ReadFile(*in)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return fmt.Errorf("input must be a JSON array: %w", err)
		}
		items = arr
		log.Printf("%s: %d items", *in, len(arr))
	} else {
		acts := generate(clock, *count, *edgeCases)
		items = acts
		log.Printf("generated %d activations", len(acts))
	}

	body, err := fixture.WrapRSC(*key, items)
	if err != nil {
		return err
	}
	if err := writeFile(*rscOut, []byte(body)); err != nil {
		return fmt.Errorf("writing response fixture: %w", err)
	}
	log.Printf("wrote response fixture: %s", *rscOut)

	if *snapshotOut == "" {
		return nil
	}
	if *key != "activations" {
		return fmt.Errorf("-snapshot-out requires -key activations")
	}

	events, err := domain.ParseActivations(body, domain.Query{Region: *region, Disaster: domain.DisasterFlood})
	if err != nil {
		return fmt.Errorf("parse generated fixture: %w", err)
	}
	set := domain.NewEventSet()
	stats := set.Merge(events)
	snap := domain.BuildSnapshot(set.Events(), clock.Now(), false)

	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}
	if err := writeFile(*snapshotOut, data); err != nil {
		return fmt.Errorf("writing snapshot fixture: %w", err)
	}
	log.Printf("wrote snapshot fixture: %s", *snapshotOut)

	printStats(snap, stats)
	return nil
}

// generate builds n sample activations spaced five days apart, newest first.
func generate(clock clockwork.Clock, n int, edgeCases bool) []fixture.Activation {
	out := make([]fixture.Activation, 0, n+2)
	for i := range n {
		s := samples[i%len(samples)]
		id := 900 - i
		slug := fmt.Sprintf("activation-%d", id)
		out = append(out, fixture.Activation{
			ActivationID:          id,
			Title:                 s.title,
			DateAsTimestamp:       clock.Now().Add(-time.Duration(i) * 120 * time.Hour).UnixMilli(),
			Country:               s.country,
			CenterPointLatitude:   s.lat,
			CenterPointLongitude:  s.lon,
			Slug:                  slug,
			ArticleID:             fmt.Sprintf("%d", 70000+id),
			ExternalReferenceCode: fmt.Sprintf("ERC-%d", id),
			Keywords:              "flood",
			DisasterTypes:         []string{"flood"},
		})
	}
	if edgeCases && n > 0 {
		out = append(out,
			fixture.Activation{Title: "Flood without an activation ID", Country: "Nowhere"},
			fixture.Activation{ActivationID: 900, Title: "Duplicate of the first activation", Country: "Kenya"},
		)
	}
	return out
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(snap domain.Snapshot, stats domain.MergeStats) {
	severities := map[string]int{}
	for _, e := range snap.Events {
		if e.Severity != nil {
			severities[*e.Severity]++
		}
	}
	keys := make([]string, 0, len(severities))
	for k := range severities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Events: %d (added %d, duplicates %d, missing id %d)\n",
		len(snap.Events), stats.Added, stats.Duplicates, stats.MissingID)
	for _, k := range keys {
		fmt.Printf("Severity %s: %d\n", k, severities[k])
	}
	if r := snap.Metadata.DateRange; r.Earliest != nil {
		fmt.Printf("Date range: %s .. %s\n", r.Earliest.Format(time.DateOnly), r.Latest.Format(time.DateOnly))
	}
	for _, c := range domain.TopCountries(snap.Events, 5) {
		fmt.Printf("  %-35s %d\n", c.Country, c.Count)
	}
}
