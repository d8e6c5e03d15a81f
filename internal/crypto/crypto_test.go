package crypto

import (
	"bytes"
	"testing"
)

func TestGenerateMachineKey(t *testing.T) {
	key, err := GenerateMachineKey()
	if err != nil {
		t.Fatalf("GenerateMachineKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(key))
	}
	// Keys should be random
	key2, _ := GenerateMachineKey()
	if bytes.Equal(key, key2) {
		t.Error("two machine keys should not be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	machine, _ := GenerateMachineKey()
	key, err := DeriveKey(machine, "consentd/session")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(key))
	}
	// Same inputs → same key (deterministic)
	key2, _ := DeriveKey(machine, "consentd/session")
	if !bytes.Equal(key, key2) {
		t.Error("key derivation should be deterministic")
	}
	// Different context → different key
	key3, _ := DeriveKey(machine, "consentd/other")
	if bytes.Equal(key, key3) {
		t.Error("different contexts should yield different keys")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, _ := GenerateMachineKey()
	plaintext := []byte(`{"session_token":"tok_abc","user_id":"u1"}`)

	ciphertext, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Contains(ciphertext, []byte("tok_abc")) {
		t.Error("ciphertext should not contain plaintext")
	}

	decrypted, err := Decrypt(ciphertext, key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("decrypted %q != original %q", decrypted, plaintext)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	key, _ := GenerateMachineKey()
	wrongKey, _ := GenerateMachineKey()

	ciphertext, _ := Encrypt([]byte("session data"), key)
	if _, err := Decrypt(ciphertext, wrongKey); err == nil {
		t.Error("decryption with wrong key should fail")
	}
}

func TestDecryptTruncated(t *testing.T) {
	key, _ := GenerateMachineKey()
	if _, err := Decrypt([]byte("short"), key); err == nil {
		t.Error("decrypting truncated ciphertext should fail")
	}
}
