package dlccrypto

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// NoncePoint returns the public commitment R = nonce·G to a 32-byte
// event nonce scalar.
func NoncePoint(nonce [32]byte) (*secp256k1.PublicKey, error) {
	var k secp256k1.ModNScalar
	if overflow := k.SetBytes(&nonce); overflow != 0 {
		return nil, errNonceOverflow
	}
	var r secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&k, &r)
	r.ToAffine()
	return secp256k1.NewPublicKey(&r.X, &r.Y), nil
}

// LockingPoint derives the deterministic curve point published for one
// outcome message: L = R + e·P where e = H(R ‖ P ‖ m). Called once per enumerated outcome when building an
// event's announcement.
func LockingPoint(oraclePub *secp256k1.PublicKey, noncePoint *secp256k1.PublicKey, message []byte) *secp256k1.PublicKey {
	e := challenge(noncePoint, oraclePub, message)

	rJ := toJacobian(noncePoint)
	pJ := toJacobian(oraclePub)

	var eP secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(e, &pJ, &eP)

	var sum secp256k1.JacobianPoint
	secp256k1.AddNonConst(&rJ, &eP, &sum)
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y)
}

// AttestationSecret releases the scalar s = k + e·sk (mod n) that
// unlocks the locking point for the winning outcome message. s·G == LockingPoint(pub, R, message) holds
// by construction.
func AttestationSecret(oraclePriv *secp256k1.PrivateKey, nonce [32]byte, message []byte) (*secp256k1.ModNScalar, error) {
	var k secp256k1.ModNScalar
	if overflow := k.SetBytes(&nonce); overflow != 0 {
		return nil, errNonceOverflow
	}
	var r secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&k, &r)
	r.ToAffine()
	noncePoint := secp256k1.NewPublicKey(&r.X, &r.Y)

	oraclePub := oraclePriv.PubKey()
	e := challenge(noncePoint, oraclePub, message)

	var eSk secp256k1.ModNScalar
	eSk.Mul2(e, &oraclePriv.Key)

	var s secp256k1.ModNScalar
	s.Set(&k)
	s.Add(&eSk)
	return &s, nil
}

// VerifyUnlocks reports whether s·G equals the given locking point,
// i.e. s is the attestation secret for that outcome. Used by the ETL
// sign step before any attestation is persisted.
func VerifyUnlocks(s *secp256k1.ModNScalar, lockingPoint *secp256k1.PublicKey) bool {
	var p secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(s, &p)
	p.ToAffine()
	candidate := secp256k1.NewPublicKey(&p.X, &p.Y)
	return candidate.IsEqual(lockingPoint)
}

func challenge(noncePoint, oraclePub *secp256k1.PublicKey, message []byte) *secp256k1.ModNScalar {
	h := sha256.New()
	h.Write(noncePoint.SerializeCompressed())
	h.Write(oraclePub.SerializeCompressed())
	h.Write(message)
	sum := h.Sum(nil)

	var e secp256k1.ModNScalar
	e.SetByteSlice(sum)
	return &e
}

func toJacobian(pub *secp256k1.PublicKey) secp256k1.JacobianPoint {
	var j secp256k1.JacobianPoint
	pub.AsJacobian(&j)
	return j
}

var errNonceOverflow = nonceOverflowError{}

type nonceOverflowError struct{}

func (nonceOverflowError) Error() string { return "dlccrypto: nonce scalar overflows curve order" }
