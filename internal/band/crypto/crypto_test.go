package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// With an all-zero IV the first CBC block equals plain ECB, so the NIST
// AES-128 ECB vector (SP 800-38A, F.1.1) pins the implementation down.
func TestEncryptChallengeKnownVector(t *testing.T) {
	key, _ := hex.DecodeString("2b7e151628aed2a6abf7158809cf4f3c")
	nonce, _ := hex.DecodeString("6bc1bee22e409f96e93d7e117393172a")
	wantFirst, _ := hex.DecodeString("3ad77bb40d7a3660a89ecaf32466ef97")

	ciphertext, err := EncryptChallenge(key, nonce)
	if err != nil {
		t.Fatalf("EncryptChallenge() error = %v", err)
	}
	if !bytes.Equal(ciphertext[:16], wantFirst) {
		t.Errorf("ciphertext[:16] = %x, want %x", ciphertext[:16], wantFirst)
	}
}

func TestEncryptChallengePadding(t *testing.T) {
	key := make([]byte, 16)
	nonce := make([]byte, 16)

	// A block-aligned nonce gains a full padding block.
	ciphertext, err := EncryptChallenge(key, nonce)
	if err != nil {
		t.Fatalf("EncryptChallenge() error = %v", err)
	}
	if len(ciphertext) != 32 {
		t.Errorf("ciphertext length = %d, want 32", len(ciphertext))
	}

	// A short nonce pads up to one block.
	ciphertext, err = EncryptChallenge(key, nonce[:10])
	if err != nil {
		t.Fatalf("EncryptChallenge() error = %v", err)
	}
	if len(ciphertext) != 16 {
		t.Errorf("ciphertext length = %d, want 16", len(ciphertext))
	}
}

func TestEncryptChallengeBadKey(t *testing.T) {
	if _, err := EncryptChallenge(make([]byte, 15), make([]byte, 16)); err == nil {
		t.Error("EncryptChallenge() should reject a 15-byte key")
	}
	if _, err := EncryptChallenge(make([]byte, 32), make([]byte, 16)); err == nil {
		t.Error("EncryptChallenge() should reject a 32-byte key")
	}
}

func TestPkcs7Pad(t *testing.T) {
	got := pkcs7Pad([]byte{0x01, 0x02}, 8)
	want := []byte{0x01, 0x02, 0x06, 0x06, 0x06, 0x06, 0x06, 0x06}
	if !bytes.Equal(got, want) {
		t.Errorf("pkcs7Pad() = % x, want % x", got, want)
	}

	got = pkcs7Pad(make([]byte, 8), 8)
	if len(got) != 16 || got[15] != 0x08 {
		t.Errorf("pkcs7Pad(aligned) = % x, want a full 0x08 padding block", got)
	}
}

func TestDecodeKey(t *testing.T) {
	key, err := DecodeKey("2b7e151628aed2a6abf7158809cf4f3c")
	if err != nil {
		t.Fatalf("DecodeKey() error = %v", err)
	}
	if len(key) != 16 {
		t.Errorf("key length = %d, want 16", len(key))
	}

	if _, err := DecodeKey("not-hex"); err == nil {
		t.Error("DecodeKey() should reject non-hex input")
	}
	if _, err := DecodeKey("2b7e15"); err == nil {
		t.Error("DecodeKey() should reject a short key")
	}
}
