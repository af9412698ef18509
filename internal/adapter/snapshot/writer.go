// Package snapshot persists collections and media manifests as JSON files
// under the output directory.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

// Output layout relative to the output directory.
const (
	RawEventsFile      = "raw/flood_events_raw.json"
	ProcessedFile      = "processed/flood_events.json"
	EnrichedFile       = "processed/flood_events_enriched.json"
	ImagesDir          = "images"
	ImageManifestFile  = "images/images_metadata.json"
	ReportsDir         = "reports"
	ReportManifestFile = "reports/reports_metadata.json"
)

// Writer writes output documents atomically: each file is written to a
// temporary sibling and renamed into place. Failures are *domain.PersistFault.
type Writer struct {
	dir string
}

// NewWriter returns a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output root.
func (w *Writer) Dir() string { return w.dir }

// Path returns the absolute-or-relative path of a layout entry.
func (w *Writer) Path(rel string) string { return filepath.Join(w.dir, filepath.FromSlash(rel)) }

// WriteRaw writes the bare event list.
func (w *Writer) WriteRaw(events []domain.DisasterEvent) (string, error) {
	if events == nil {
		events = []domain.DisasterEvent{}
	}
	return w.write(RawEventsFile, events)
}

// WriteProcessed writes the collection snapshot.
func (w *Writer) WriteProcessed(s domain.Snapshot) (string, error) {
	return w.write(ProcessedFile, s)
}

// WriteEnriched writes the enriched collection snapshot.
func (w *Writer) WriteEnriched(s domain.Snapshot) (string, error) {
	return w.write(EnrichedFile, s)
}

// WriteImageManifest writes the downloaded images manifest.
func (w *Writer) WriteImageManifest(m domain.ImageManifest) (string, error) {
	return w.write(ImageManifestFile, m)
}

// WriteReportManifest writes the downloaded reports manifest.
func (w *Writer) WriteReportManifest(m domain.ReportManifest) (string, error) {
	return w.write(ReportManifestFile, m)
}

// LoadProcessed reads the collection snapshot written by WriteProcessed.
func (w *Writer) LoadProcessed() (domain.Snapshot, error) {
	return Load(w.Path(ProcessedFile))
}

// Load reads a snapshot document from path.
func Load(path string) (domain.Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var s domain.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return s, nil
}

// Encode renders v the way every output file is written: two-space indent,
// no HTML escaping, trailing newline.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Writer) write(rel string, v any) (string, error) {
	path := w.Path(rel)
	data, err := Encode(v)
	if err != nil {
		return "", &domain.PersistFault{Path: path, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := writeAtomic(path, data); err != nil {
		return "", &domain.PersistFault{Path: path, Err: err}
	}
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
