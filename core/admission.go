package core

// User admission: plain ADD_USER plus the mnemonic-backed recovery
// commands that restore a reloaded user's signing capability.

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// AddUser registers name with a freshly generated Ed25519 identity and the
// given starting balance. Fails with ErrUserExists if the name is already
// registered.
func (e *Engine) AddUser(name string, initialBalance uint64) error {
	u, err := NewUser(name, initialBalance)
	if err != nil {
		return err
	}
	if err := e.Pool.AddUser(u); err != nil {
		return err
	}
	e.snapshotPool()
	e.Log.WithFields(log.Fields{"user": name, "balance": initialBalance}).Info("user added")
	return nil
}

// AddUserWithMnemonic registers name with an Ed25519 identity derived
// deterministically from mnemonic. The mnemonic itself is never stored;
// only the derived public key and the wallet state persist.
func (e *Engine) AddUserWithMnemonic(name string, initialBalance uint64, mnemonic string) error {
	kp, err := KeyPairFromMnemonic(mnemonic, "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}
	u := NewUserWithKeyPair(name, initialBalance, kp)
	if err := e.Pool.AddUser(u); err != nil {
		return err
	}
	e.snapshotPool()
	e.Log.WithFields(log.Fields{"user": name, "balance": initialBalance}).Info("user added via mnemonic")
	return nil
}

// ReprovisionKey restores signing capability to a reloaded user: it
// re-derives a KeyPair from mnemonic and accepts it only if the derived
// public key matches the one already on file, so a restart can never be
// used to impersonate an existing identity under a recovered name.
func (e *Engine) ReprovisionKey(name, mnemonic string) error {
	kp, err := KeyPairFromMnemonic(mnemonic, "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}
	onFile, ok := e.Pool.PublicKeyOf(name)
	if !ok {
		return ErrUnknownUser
	}
	if !publicKeysEqual(onFile, kp.Public) {
		return ErrKeyMismatch
	}
	if err := e.Pool.Reprovision(name, kp); err != nil {
		return err
	}
	e.Log.WithField("user", name).Info("key reprovisioned")
	return nil
}

func publicKeysEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
