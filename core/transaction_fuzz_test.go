package core

import "testing"

// FuzzContentHash exercises ContentHash across arbitrary field values,
// mirroring the fuzzing style of internal/testutil's sandbox fuzz test.
func FuzzContentHash(f *testing.F) {
	f.Add("tx1", "alice", "bob", uint64(40), uint64(1700000000), []byte{1, 2, 3})
	f.Fuzz(func(t *testing.T, id, sender, receiver string, amount, timestamp uint64, sig []byte) {
		h1 := ContentHash(id, sender, receiver, amount, timestamp, sig)
		h2 := ContentHash(id, sender, receiver, amount, timestamp, sig)
		if h1 != h2 {
			t.Fatalf("ContentHash is not deterministic for identical inputs")
		}
	})
}

// FuzzCanonicalMessage verifies the encoder never panics and always produces
// a signature-verifiable message for a keypair that signs it.
func FuzzCanonicalMessage(f *testing.F) {
	f.Add("tx1", "alice", "bob", uint64(40), uint64(1700000000))
	f.Fuzz(func(t *testing.T, id, sender, receiver string, amount, timestamp uint64) {
		kp, err := GenerateKeyPair()
		if err != nil {
			t.Fatalf("GenerateKeyPair: %v", err)
		}
		msg := CanonicalMessage(id, sender, receiver, amount, timestamp)
		sig, err := kp.Sign(msg)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if err := Verify(kp.Public, msg, sig); err != nil {
			t.Fatalf("Verify failed for freshly signed canonical message: %v", err)
		}
	})
}
