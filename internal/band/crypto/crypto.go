// Package crypto implements the band's challenge-response primitive:
// AES-128-CBC with an all-zero IV and PKCS#7 padding over the 16-byte nonce
// the band sends during authentication.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
)

// EncryptChallenge encrypts the band's nonce with the 16-byte auth key. The
// caller sends the first 16 bytes of the result back to the band.
func EncryptChallenge(key, nonce []byte) ([]byte, error) {
	if len(key) != aes.BlockSize {
		return nil, fmt.Errorf("crypto: auth key must be %d bytes, got %d", aes.BlockSize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}

	padded := pkcs7Pad(nonce, aes.BlockSize)
	// The band uses a fixed all-zero IV, so the first ciphertext block is
	// plain ECB of the first plaintext block.
	iv := make([]byte, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// pkcs7Pad appends padding bytes whose value equals the pad length. Input
// already a multiple of the block size gains a full padding block.
func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+pad)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(pad)
	}
	return padded
}

// DecodeKey parses the hex-encoded 16-byte auth key stored in the band's
// configuration record.
func DecodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("crypto: auth key is not valid hex: %w", err)
	}
	if len(key) != aes.BlockSize {
		return nil, fmt.Errorf("crypto: auth key must be %d bytes, got %d", aes.BlockSize, len(key))
	}
	return key, nil
}
