package core

import "errors"

// Structural errors.
var (
	ErrUnknownUser        = errors.New("unknown user")
	ErrUserExists         = errors.New("user already exists")
	ErrTxNotFound         = errors.New("transaction not found")
	ErrNotYours           = errors.New("transaction receiver mismatch")
	ErrUnsupportedTxType  = errors.New("unsupported transaction type")
	ErrMalformedCommand   = errors.New("malformed command")
)

// Semantic errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBadSignature        = errors.New("bad signature")
)

// Crypto/IO errors.
var (
	ErrCryptoInit  = errors.New("crypto init failed")
	ErrSign        = errors.New("signing failed")
	ErrVerify      = errors.New("signature verification failed")
	ErrSnapshotIO  = errors.New("snapshot io error")
)

// Invariant errors.
var (
	ErrBrokenChain   = errors.New("broken chain: parent missing")
	ErrHashMismatch  = errors.New("content hash mismatch")
	ErrKeyMismatch   = errors.New("derived public key does not match key on file")
)
