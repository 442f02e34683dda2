package dlccrypto

import (
	"bytes"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// TestAttestationUnlocksLockingPoint: the released attestation secret
// must unlock exactly the locking point computed for the same outcome
// message.
func TestAttestationUnlocksLockingPoint(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pub := priv.PubKey()

	nonce, err := NewNonce()
	if err != nil {
		t.Fatalf("new nonce: %v", err)
	}
	noncePoint, err := NoncePoint(nonce)
	if err != nil {
		t.Fatalf("nonce point: %v", err)
	}

	message := []byte("outcome-0-1")
	lockingPoint := LockingPoint(pub, noncePoint, message)

	secret, err := AttestationSecret(priv, nonce, message)
	if err != nil {
		t.Fatalf("attestation secret: %v", err)
	}

	if !VerifyUnlocks(secret, lockingPoint) {
		t.Fatal("attestation secret does not unlock the locking point for its own outcome message")
	}
}

// TestAttestationDoesNotUnlockOtherOutcomes ensures the secret is
// outcome-specific: it must not unlock a different outcome's point.
func TestAttestationDoesNotUnlockOtherOutcomes(t *testing.T) {
	priv, _ := secp256k1.GeneratePrivateKey()
	pub := priv.PubKey()
	nonce, _ := NewNonce()
	noncePoint, _ := NoncePoint(nonce)

	secret, err := AttestationSecret(priv, nonce, []byte("winners-a"))
	if err != nil {
		t.Fatalf("attestation secret: %v", err)
	}

	otherPoint := LockingPoint(pub, noncePoint, []byte("winners-b"))
	if VerifyUnlocks(secret, otherPoint) {
		t.Fatal("attestation secret for one outcome unexpectedly unlocked a different outcome")
	}
}

func TestKeyPEMRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/oracle.pem"

	priv1, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	priv2, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !bytes.Equal(priv1.Serialize(), priv2.Serialize()) {
		t.Fatal("reloaded key does not match the originally generated key")
	}

	if err := CheckMetadata(priv1.PubKey(), XOnly(priv2.PubKey())); err != nil {
		t.Fatalf("unexpected mismatch: %v", err)
	}

	var other [32]byte
	other[0] = priv1.PubKey().X().Bytes()[0] + 1
	if err := CheckMetadata(priv1.PubKey(), other); err == nil {
		t.Fatal("expected mismatch error for a stored pubkey that differs")
	}
}
