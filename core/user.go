package core

// User is one identity registered with a node: its name, signing key
// material, wallet balance, and local chain.
type User struct {
	Name           string      `json:"name"`
	KeyPair        *KeyPair    `json:"-"`
	PublicKey      []byte      `json:"public_key"`
	WalletBalance  uint64      `json:"wallet_balance"`
	InitialBalance uint64      `json:"initial_balance"`
	LocalChain     *LocalChain `json:"local_chain"`
}

// NewUser registers a freshly generated identity with the given starting
// balance.
func NewUser(name string, initialBalance uint64) (*User, error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return newUserWithKeyPair(name, initialBalance, kp), nil
}

// NewUserWithKeyPair registers an identity whose signing key was derived
// elsewhere (e.g. from a mnemonic, see mnemonic.go).
func NewUserWithKeyPair(name string, initialBalance uint64, kp *KeyPair) *User {
	return newUserWithKeyPair(name, initialBalance, kp)
}

func newUserWithKeyPair(name string, initialBalance uint64, kp *KeyPair) *User {
	return &User{
		Name:           name,
		KeyPair:        kp,
		PublicKey:      append([]byte(nil), kp.Public...),
		WalletBalance:  initialBalance,
		InitialBalance: initialBalance,
		LocalChain:     NewLocalChain(),
	}
}

// CanSign reports whether this user's process-local key material is
// present. False for a user rebuilt from a snapshot that has not been
// reprovisioned.
func (u *User) CanSign() bool { return u.KeyPair != nil && u.KeyPair.HasPrivateKey() }
