package eventstore

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
)

// TestArchiveProducesCompleteSnapshot checks that Archive's output,
// decompressed, is a standalone SQLite database image (the WAL was
// checkpointed into it first).
func TestArchiveProducesCompleteSnapshot(t *testing.T) {
	s := openTestStore(t)
	if err := s.AddEvent(sampleEvent(t)); err != nil {
		t.Fatalf("add event: %v", err)
	}

	var buf bytes.Buffer
	if err := s.Archive(&buf); err != nil {
		t.Fatalf("archive: %v", err)
	}

	dec, err := zstd.NewReader(&buf)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("SQLite format 3\x00")) {
		t.Fatalf("archive is not a SQLite image, got prefix %q", raw[:minInt(16, len(raw))])
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
