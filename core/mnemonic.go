package core

// Deterministic identity recovery from a BIP-39 mnemonic.

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"errors"
	"fmt"

	bip39 "github.com/tyler-smith/go-bip39"
)

const mnemonicHMACKey = "ed25519 seed" // SLIP-0010 master-key string

// NewMnemonicIdentity generates a fresh BIP-39 mnemonic and the KeyPair
// deterministically derived from it. The caller must record the mnemonic
// out of band — it is never persisted, and without it REPROVISION_KEY has
// nothing to recover from.
func NewMnemonicIdentity(entropyBits int) (*KeyPair, string, error) {
	if entropyBits != 128 && entropyBits != 256 {
		return nil, "", fmt.Errorf("unsupported entropy size %d", entropyBits)
	}
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return nil, "", fmt.Errorf("%w: entropy: %v", ErrCryptoInit, err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", fmt.Errorf("%w: mnemonic: %v", ErrCryptoInit, err)
	}
	kp, err := KeyPairFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, "", err
	}
	return kp, mnemonic, nil
}

// KeyPairFromMnemonic re-derives the same KeyPair NewMnemonicIdentity
// produced, given the mnemonic (and optional passphrase) back.
func KeyPairFromMnemonic(mnemonic, passphrase string) (*KeyPair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic checksum")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	if len(seed) < 32 {
		return nil, errors.New("seed too short")
	}
	I := hmacSHA512([]byte(mnemonicHMACKey), seed)
	priv := ed25519.NewKeyFromSeed(I[:32])
	pub := priv.Public().(ed25519.PublicKey)
	return &KeyPair{Public: pub, private: priv}, nil
}

func hmacSHA512(key, data []byte) []byte {
	h := hmac.New(sha512.New, key)
	h.Write(data)
	return h.Sum(nil)
}
