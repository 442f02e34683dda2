package eventstore

import (
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/klauspost/compress/zstd"
)

// Archive checkpoints the WAL, then streams a zstd-compressed copy of
// the database file to dst. The checkpoint runs through the write queue
// first, so the copied file is a complete snapshot with no WAL sidecar
// needed to replay it.
func (s *Store) Archive(dst io.Writer) error {
	if err := s.Checkpoint(); err != nil {
		return fmt.Errorf("eventstore: checkpoint before archive: %w", err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("eventstore: open %s for archive: %w", s.path, err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return fmt.Errorf("eventstore: new zstd writer: %w", err)
	}
	n, err := io.Copy(enc, f)
	if err != nil {
		enc.Close()
		return fmt.Errorf("eventstore: archive copy: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("eventstore: finish archive: %w", err)
	}
	glog.V(2).Infof("eventstore: archived %d bytes from %s", n, s.path)
	return nil
}
