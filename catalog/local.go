package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/karrick/godirwalk"
)

// Local implements Catalog over a local filesystem root, walking
// date-named subdirectories with godirwalk.
type Local struct {
	Root string
}

var _ Catalog = (*Local)(nil)

func NewLocal(root string) *Local { return &Local{Root: root} }

// BuildPath is deterministic from the embedded timestamp, never from
// the current clock.
func (l *Local) BuildPath(filename string, generatedAt time.Time) string {
	return filepath.Join(l.Root, generatedAt.UTC().Format(dateLayout), filename)
}

// List walks date-named subdirectories whose date falls in
// [start.Date, end.Date], then filters by kind and by the filename's
// embedded timestamp against [start, end].
func (l *Local) List(ctx context.Context, p Params) ([]Entry, error) {
	var out []Entry
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: read root %s: %w", l.Root, err)
	}

	startDate := p.Start.UTC().Format(dateLayout)
	endDate := p.End.UTC().Format(dateLayout)

	for _, de := range entries {
		if !de.IsDir() {
			continue
		}
		name := de.Name()
		if name < startDate || name > endDate {
			continue
		}
		dirPath := filepath.Join(l.Root, name)
		err := godirwalk.Walk(dirPath, &godirwalk.Options{
			Callback: func(path string, de *godirwalk.Dirent) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				if de.IsDir() {
					return nil
				}
				kind, generatedAt, err := ParseFilename(path)
				if err != nil {
					return nil // skip non-catalog files silently
				}
				if p.Kind != "" && kind != p.Kind {
					return nil
				}
				if !inWindow(generatedAt, p.Start, p.End) {
					return nil
				}
				out = append(out, Entry{Path: path, Kind: kind, GeneratedAt: generatedAt})
				return nil
			},
			Unsorted: true,
		})
		if err != nil {
			return nil, fmt.Errorf("catalog: walk %s: %w", dirPath, err)
		}
	}
	return out, nil
}

// Download opens the file at its deterministic path and streams it.
func (l *Local) Download(ctx context.Context, filename string, generatedAt time.Time) (io.ReadCloser, error) {
	path := l.BuildPath(filename, generatedAt)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	return f, nil
}
