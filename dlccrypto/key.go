// Package dlccrypto implements the oracle's key lifecycle and the
// single-oracle Schnorr-style locking-point/attestation-secret
// construction used by the DLC attestation engine.
//
// Built on github.com/decred/dcrd/dcrec/secp256k1/v4's ModNScalar and
// JacobianPoint primitives: R = k·G, e = H(R‖P‖m), L = R + e·P,
// s = k + e·sk (mod n), composed the same way the module's own schnorr
// subpackage builds BIP340 signing from identical primitives.
package dlccrypto

import (
	"crypto/rand"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// secp256k1OID is the named-curve OID written into the EC PRIVATE KEY
// PEM's optional parameters field (RFC 5915 / SEC1), matching the OID
// OpenSSL uses for the "secp256k1" curve.
var secp256k1OID = asn1.ObjectIdentifier{1, 3, 132, 0, 10}

// ErrPubkeyMismatch is fatal at startup: the PEM key on disk no longer
// matches the pubkey persisted in oracle_metadata.
var ErrPubkeyMismatch = errors.New("dlccrypto: stored pubkey does not match key file")

// ecPrivateKey is the minimal SEC1 ECPrivateKey ASN.1 structure
// (RFC 5915) this package round-trips: version, raw 32-byte scalar,
// optional named-curve OID, optional public-key bit string.
type ecPrivateKey struct {
	Version       int
	PrivateKey    []byte
	NamedCurveOID asn1.ObjectIdentifier `asn1:"optional,explicit,tag:0"`
	PublicKey     asn1.BitString        `asn1:"optional,explicit,tag:1"`
}

// LoadOrCreate reads the secp256k1 private key PEM at path, generating
// and persisting a fresh one if the file does not exist. The file is written user-read-only.
func LoadOrCreate(path string) (*secp256k1.PrivateKey, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return decodePEM(data)
	case os.IsNotExist(err):
		priv, genErr := secp256k1.GeneratePrivateKey()
		if genErr != nil {
			return nil, fmt.Errorf("dlccrypto: generate key: %w", genErr)
		}
		if writeErr := writeKeyFile(path, priv); writeErr != nil {
			return nil, writeErr
		}
		return priv, nil
	default:
		return nil, fmt.Errorf("dlccrypto: read %s: %w", path, err)
	}
}

func writeKeyFile(path string, priv *secp256k1.PrivateKey) error {
	block, err := encodePEM(priv)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, block, 0o400); err != nil {
		return fmt.Errorf("dlccrypto: write %s: %w", path, err)
	}
	return nil
}

func encodePEM(priv *secp256k1.PrivateKey) ([]byte, error) {
	keyBytes := priv.Serialize()
	pub := priv.PubKey()
	der, err := asn1.Marshal(ecPrivateKey{
		Version:       1,
		PrivateKey:    keyBytes[:],
		NamedCurveOID: secp256k1OID,
		PublicKey:     asn1.BitString{Bytes: pub.SerializeUncompressed(), BitLength: len(pub.SerializeUncompressed()) * 8},
	})
	if err != nil {
		return nil, fmt.Errorf("dlccrypto: marshal EC private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}

func decodePEM(data []byte) (*secp256k1.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, errors.New("dlccrypto: not an EC PRIVATE KEY PEM block")
	}
	var key ecPrivateKey
	if _, err := asn1.Unmarshal(block.Bytes, &key); err != nil {
		return nil, fmt.Errorf("dlccrypto: unmarshal EC private key: %w", err)
	}
	priv := secp256k1.PrivKeyFromBytes(key.PrivateKey)
	return priv, nil
}

// XOnly returns the 32-byte x-only public key used for the
// oracle_metadata comparison.
func XOnly(pub *secp256k1.PublicKey) [32]byte {
	var j secp256k1.JacobianPoint
	pub.AsJacobian(&j)
	return *j.X.Bytes()
}

// CheckMetadata compares the key file's derived x-only pubkey against
// the value persisted in oracle_metadata; mismatch is fatal at startup.
func CheckMetadata(pub *secp256k1.PublicKey, stored [32]byte) error {
	if XOnly(pub) != stored {
		return ErrPubkeyMismatch
	}
	return nil
}

// NewNonce generates a fresh, cryptographically secure 32-byte event
// nonce scalar.
func NewNonce() ([32]byte, error) {
	var raw [32]byte
	for {
		if _, err := rand.Read(raw[:]); err != nil {
			return raw, fmt.Errorf("dlccrypto: read random nonce: %w", err)
		}
		var s secp256k1.ModNScalar
		overflow := s.SetBytes(&raw)
		if overflow == 0 && !s.IsZero() {
			return raw, nil
		}
	}
}
