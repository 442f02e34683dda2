package eventstore

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrNoOracleMetadata is returned by GetStoredPublicKey when no row has
// been written yet (first-ever startup).
var ErrNoOracleMetadata = errors.New("eventstore: no oracle_metadata row")

// AddOracleMetadata persists the oracle's x-only public key and a
// human-readable name, once, at first startup.
func (s *Store) AddOracleMetadata(pubkey [32]byte, name string) error {
	return wrapConstraint(s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO oracle_metadata (pubkey, name) VALUES (?, ?)`, hex.EncodeToString(pubkey[:]), name)
		return err
	}))
}

// GetStoredPublicKey returns the single persisted x-only pubkey, or
// ErrNoOracleMetadata if none has been written yet.
func (s *Store) GetStoredPublicKey() ([32]byte, error) {
	var hexKey string
	err := s.db.QueryRow(`SELECT pubkey FROM oracle_metadata LIMIT 1`).Scan(&hexKey)
	if errors.Is(err, sql.ErrNoRows) {
		return [32]byte{}, ErrNoOracleMetadata
	}
	if err != nil {
		return [32]byte{}, fmt.Errorf("eventstore: query oracle_metadata: %w", err)
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("eventstore: malformed stored pubkey %q", hexKey)
	}
	var out [32]byte
	copy(out[:], raw)
	return out, nil
}
