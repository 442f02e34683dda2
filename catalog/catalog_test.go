package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFormatParseFilenameRoundTrip(t *testing.T) {
	ts := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)
	name := FormatFilename(KindForecasts, ts)
	kind, got, err := ParseFilename(name)
	if err != nil {
		t.Fatalf("parse %q: %v", name, err)
	}
	if kind != KindForecasts || !got.Equal(ts) {
		t.Fatalf("round trip mismatch: kind=%s ts=%v", kind, got)
	}
}

func TestParseFilenameRejectsMalformed(t *testing.T) {
	for _, name := range []string{
		"forecasts.parquet",
		"unknown_2026-07-31T14:00:00Z.parquet",
		"forecasts_notadate.parquet",
	} {
		if _, _, err := ParseFilename(name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func writeCatalogFile(t *testing.T, root string, kind Kind, ts time.Time) string {
	t.Helper()
	dir := filepath.Join(root, ts.UTC().Format(dateLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, FormatFilename(kind, ts))
	if err := os.WriteFile(path, []byte("parquet"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

// TestLocalList covers the list contract: date-named
// subdirectories narrow the walk, then kind and the filename-embedded
// timestamp filter the survivors.
func TestLocalList(t *testing.T) {
	root := t.TempDir()
	in := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	tooEarly := in.Add(-48 * time.Hour)
	wrongKind := in.Add(time.Hour)

	want := writeCatalogFile(t, root, KindForecasts, in)
	writeCatalogFile(t, root, KindForecasts, tooEarly)
	writeCatalogFile(t, root, KindObservations, wrongKind)

	l := NewLocal(root)
	entries, err := l.List(context.Background(), Params{
		Kind:  KindForecasts,
		Start: in.Add(-time.Hour),
		End:   in.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %+v", len(entries), entries)
	}
	if entries[0].Path != want || !entries[0].GeneratedAt.Equal(in) {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestLocalListMissingRoot(t *testing.T) {
	l := NewLocal(filepath.Join(t.TempDir(), "does-not-exist"))
	entries, err := l.List(context.Background(), Params{Kind: KindForecasts, Start: time.Now().Add(-time.Hour), End: time.Now()})
	if err != nil {
		t.Fatalf("expected nil error for missing root, got %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

// TestLocalBuildPathAndDownload checks build_path determinism from the
// embedded timestamp and the download stream.
func TestLocalBuildPathAndDownload(t *testing.T) {
	root := t.TempDir()
	ts := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	writeCatalogFile(t, root, KindObservations, ts)

	l := NewLocal(root)
	name := FormatFilename(KindObservations, ts)
	wantPath := filepath.Join(root, "2026-07-31", name)
	if got := l.BuildPath(name, ts); got != wantPath {
		t.Fatalf("BuildPath = %s, want %s", got, wantPath)
	}

	rc, err := l.Download(context.Background(), name, ts)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()
	buf := make([]byte, 16)
	n, _ := rc.Read(buf)
	if string(buf[:n]) != "parquet" {
		t.Fatalf("unexpected content %q", buf[:n])
	}
}
