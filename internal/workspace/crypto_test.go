package workspace

import (
	"bytes"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	key := []byte("1234567890ABCDEF1234567890ABCDEF") // 32 bytes
	plainText := []byte("secret message")

	cipherText, err := Encrypt(plainText, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(cipherText) == 0 {
		t.Fatal("CipherText is empty")
	}

	decrypted, err := Decrypt(cipherText, key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plainText) {
		t.Errorf("Decrypted message does not match original.\nGot: %s\nWant: %s", decrypted, plainText)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	key1 := []byte("1234567890ABCDEF1234567890ABCDEF")
	key2 := []byte("TOTAL_DIFFERENT_KEY_1234567890AB")

	cipherText, _ := Encrypt([]byte("secret message"), key1)

	if _, err := Decrypt(cipherText, key2); err == nil {
		t.Error("Expected error when decrypting with wrong key, got nil")
	}
}

func TestNonceRandomness(t *testing.T) {
	key := []byte("1234567890ABCDEF1234567890ABCDEF")
	plainText := []byte("same message")

	c1, _ := Encrypt(plainText, key)
	c2, _ := Encrypt(plainText, key)

	if bytes.Equal(c1, c2) {
		t.Error("Encryption should produce different output for same input (nonce usage)")
	}
}

func TestCorruptCiphertext(t *testing.T) {
	key := []byte("1234567890ABCDEF1234567890ABCDEF")

	_, err := Decrypt([]byte("foo"), key)
	if err == nil {
		t.Error("Expected error for short ciphertext, got nil")
	} else if err.Error() != "cipher too short" {
		t.Errorf("Expected 'cipher too short' error, got: %v", err)
	}

	valid, _ := Encrypt([]byte("message"), key)
	valid[len(valid)-1] ^= 0x01

	if _, err := Decrypt(valid, key); err == nil {
		t.Error("Expected error for tampered ciphertext, got nil")
	}
}

func TestRejectsShortKey(t *testing.T) {
	if _, err := Encrypt([]byte("message"), []byte("short")); err == nil {
		t.Error("Expected error for short key, got nil")
	}
}

func TestDeriveKeyIsDeterministicPerSalt(t *testing.T) {
	secret := []byte("correct horse battery staple")
	salt1 := bytes.Repeat([]byte{1}, saltSize)
	salt2 := bytes.Repeat([]byte{2}, saltSize)

	k1 := DeriveKey(secret, salt1)
	if len(k1) != keySize {
		t.Fatalf("derived key length = %d, want %d", len(k1), keySize)
	}
	if !bytes.Equal(k1, DeriveKey(secret, salt1)) {
		t.Error("same secret and salt should derive the same key")
	}
	if bytes.Equal(k1, DeriveKey(secret, salt2)) {
		t.Error("different salts should derive different keys")
	}
}
