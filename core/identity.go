package core

// Ed25519 keypair generation, signing, and detached verification for
// transaction signers.

import (
	"crypto/ed25519"
	crand "crypto/rand"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var identityLogger = log.StandardLogger()

// SetIdentityLogger overrides identityLogger. No function in this package
// currently writes to identityLogger; the engine logs through Engine.Log.
func SetIdentityLogger(l *log.Logger) { identityLogger = l }

// KeyPair holds an Ed25519 signing key and its public counterpart. The
// private half is process-local and is never serialized.
type KeyPair struct {
	Public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// HasPrivateKey reports whether this KeyPair can sign. A KeyPair rebuilt
// from a snapshot (public key only) returns false here until reprovisioned.
func (k *KeyPair) HasPrivateKey() bool { return k != nil && len(k.private) == ed25519.PrivateKeySize }

// GenerateKeyPair creates a fresh Ed25519 keypair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}
	return &KeyPair{Public: pub, private: priv}, nil
}

// KeyPairFromPublic rebuilds a signing-disabled KeyPair from a previously
// serialized public key, the state a reloaded user starts in.
func KeyPairFromPublic(pub ed25519.PublicKey) *KeyPair {
	return &KeyPair{Public: append(ed25519.PublicKey(nil), pub...)}
}

// Sign produces a detached Ed25519 signature over msg. It fails with
// ErrSign if the stored key material is missing, e.g. for a reloaded user
// that has not been reprovisioned.
func (k *KeyPair) Sign(msg []byte) ([]byte, error) {
	if k == nil || !k.HasPrivateKey() {
		return nil, ErrSign
	}
	return ed25519.Sign(k.private, msg), nil
}

// Verify checks a detached Ed25519 signature against a public key.
func Verify(pub ed25519.PublicKey, msg, sig []byte) error {
	if len(pub) != ed25519.PublicKeySize {
		return ErrVerify
	}
	if !ed25519.Verify(pub, msg, sig) {
		return ErrVerify
	}
	return nil
}

// CanonicalMessage builds the exact byte string signed and verified for
// every transaction: "{id}:{sender}:{receiver}:{amount}:{timestamp}".
// Any deviation here breaks wire compatibility.
func CanonicalMessage(id, sender, receiver string, amount, timestamp uint64) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%d:%d", id, sender, receiver, amount, timestamp))
}
