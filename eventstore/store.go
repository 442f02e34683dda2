// Package eventstore implements the persisted event/entry/weather-
// snapshot store: a single-writer, many-reader SQLite database with
// WAL journaling and foreign-key enforcement, all mutations funneled
// through one background goroutine so at most one transaction is ever
// in flight.
//
// One goroutine owns the database; everyone else sends requests to it.
// modernc.org/sqlite keeps the module pure-Go and cgo-free.
package eventstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/glog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrConstraintViolation wraps a primary-key/unique-constraint failure,
// e.g. adding an event whose id already exists.
var ErrConstraintViolation = errors.New("eventstore: constraint violation")

// ErrAlreadySigned is returned when update_event_attestation is called
// with a value that differs from the one already persisted.
var ErrAlreadySigned = errors.New("eventstore: event already has a different attestation")

type writeOp struct {
	fn   func(*sql.Tx) error
	done chan error
}

// Store is the single handle the ETL orchestrator and (out-of-scope)
// API layer share; construct one per process.
type Store struct {
	db      *sql.DB
	path    string
	writeCh chan writeOp
	closed  chan struct{}
}

// Open creates {dir}/events.sqlite if missing, applies embedded
// migrations in filename order, and starts the single write-serializing
// goroutine.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventstore: create dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, "events.sqlite")
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=cache_size(-64000)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one physical connection, writer goroutine still serializes writes logically

	s := &Store{db: db, path: path, writeCh: make(chan writeOp, 64), closed: make(chan struct{})}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	go s.runWriter()
	glog.Infof("eventstore: opened %s", path)
	return s, nil
}

func (s *Store) migrate() error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("eventstore: read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		sqlBytes, err := migrationFS.ReadFile(filepath.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("eventstore: read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("eventstore: apply migration %s: %w", name, err)
		}
		glog.V(2).Infof("eventstore: applied migration %s", name)
	}
	return nil
}

func (s *Store) runWriter() {
	for op := range s.writeCh {
		tx, err := s.db.Begin()
		if err != nil {
			op.done <- err
			continue
		}
		if err := op.fn(tx); err != nil {
			tx.Rollback()
			op.done <- err
			continue
		}
		op.done <- tx.Commit()
	}
	close(s.closed)
}

// write enqueues fn on the single write goroutine and blocks for its
// result. Every mutating operation in this package goes through write
// so at most one transaction is ever in flight.
func (s *Store) write(fn func(*sql.Tx) error) error {
	done := make(chan error, 1)
	s.writeCh <- writeOp{fn: fn, done: done}
	return <-done
}

func wrapConstraint(err error) error {
	if err == nil {
		return nil
	}
	// modernc.org/sqlite surfaces constraint failures in the driver
	// error's message; sentinel-wrap by substring match since the
	// driver does not expose a typed constraint-violation error.
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed") || strings.Contains(msg, "FOREIGN KEY constraint") {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	return err
}

// Checkpoint truncates the WAL so an external replicator sees a
// complete snapshot.
func (s *Store) Checkpoint() error {
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return err
	})
}

// HealthCheck runs a connectivity probe plus PRAGMA quick_check;
// corruption here is fatal at startup.
func (s *Store) HealthCheck() error {
	if _, err := s.db.Exec("SELECT 1"); err != nil {
		return fmt.Errorf("eventstore: connectivity check: %w", err)
	}
	var result string
	if err := s.db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("eventstore: integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("eventstore: integrity check failed: %s", result)
	}
	return nil
}

// Close stops accepting writes, waits for the writer goroutine to
// drain, and closes the underlying connection.
func (s *Store) Close() error {
	close(s.writeCh)
	<-s.closed
	return s.db.Close()
}
