package postgres

import (
	"errors"
	"testing"
)

func TestSecretEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewSecretEncryptor("unit-test-passphrase")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	secrets := []string{
		"sk-test-1234567890",
		"",
		"chave com acentuação e espaços",
	}

	for _, secret := range secrets {
		blob, err := enc.EncryptString(secret)
		if err != nil {
			t.Fatalf("encrypt %q: %v", secret, err)
		}
		if blob[0] != secretVersion {
			t.Errorf("expected version byte %d, got %d", secretVersion, blob[0])
		}

		got, err := enc.DecryptString(blob)
		if err != nil {
			t.Fatalf("decrypt %q: %v", secret, err)
		}
		if got != secret {
			t.Errorf("expected %q back, got %q", secret, got)
		}
	}
}

func TestSecretEncryptor_NoncesDiffer(t *testing.T) {
	enc, err := NewSecretEncryptor("unit-test-passphrase")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blob1, _ := enc.EncryptString("same secret")
	blob2, _ := enc.EncryptString("same secret")

	if string(blob1) == string(blob2) {
		t.Error("expected different ciphertexts for repeated encryption")
	}
}

func TestSecretEncryptor_WrongPassphrase(t *testing.T) {
	enc1, _ := NewSecretEncryptor("passphrase-one")
	enc2, _ := NewSecretEncryptor("passphrase-two")

	blob, err := enc1.EncryptString("secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = enc2.DecryptString(blob)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestSecretEncryptor_TamperedBlob(t *testing.T) {
	enc, _ := NewSecretEncryptor("unit-test-passphrase")

	blob, err := enc.EncryptString("secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blob[len(blob)-1] ^= 0xFF
	if _, err := enc.DecryptString(blob); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestSecretEncryptor_InvalidBlobs(t *testing.T) {
	enc, _ := NewSecretEncryptor("unit-test-passphrase")

	if _, err := enc.DecryptString([]byte{0x01, 0x02}); !errors.Is(err, ErrInvalidBlobSize) {
		t.Errorf("expected ErrInvalidBlobSize, got %v", err)
	}

	blob, _ := enc.EncryptString("secret")
	blob[0] = 0x7F
	if _, err := enc.DecryptString(blob); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestSecretEncryptor_EmptyPassphrase(t *testing.T) {
	if _, err := NewSecretEncryptor(""); err == nil {
		t.Error("expected error for empty passphrase")
	}
}
