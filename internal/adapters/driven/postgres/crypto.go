package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// secretVersion is the version byte for the encrypted blob format
	secretVersion = 0x01

	// nonceSize is the AES-GCM nonce size
	nonceSize = 12

	// keySize is the required key size for AES-256
	keySize = 32

	// kdfIterations for PBKDF2 passphrase derivation
	kdfIterations = 100_000
)

// kdfSalt is a fixed application salt for passphrase-derived keys.
// Secrets protected here are API keys, not user passwords; the salt
// only needs to separate this deployment format from generic PBKDF2 use.
var kdfSalt = []byte("dossier-core/ai-settings/v1")

var (
	// ErrInvalidBlobSize is returned when the encrypted blob is too small.
	ErrInvalidBlobSize = errors.New("encrypted blob is too small")

	// ErrUnsupportedVersion is returned when the blob version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported secret blob version")

	// ErrDecryptionFailed is returned when decryption fails (wrong key or corrupted data).
	ErrDecryptionFailed = errors.New("failed to decrypt secret blob")
)

// SecretEncryptor handles AES-256-GCM encryption of stored API keys.
// The encrypted format is: version(1) || nonce(12) || ciphertext(N)
type SecretEncryptor struct {
	gcm cipher.AEAD
}

// NewSecretEncryptor creates an encryptor from a passphrase. The
// passphrase is stretched to a 32-byte key with PBKDF2-SHA256.
func NewSecretEncryptor(passphrase string) (*SecretEncryptor, error) {
	if passphrase == "" {
		return nil, errors.New("encryption passphrase is required")
	}

	key := pbkdf2.Key([]byte(passphrase), kdfSalt, kdfIterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &SecretEncryptor{gcm: gcm}, nil
}

// EncryptString encrypts a secret string to a blob.
// Format: version(1) || nonce(12) || ciphertext
func (e *SecretEncryptor) EncryptString(s string) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nil, nonce, []byte(s), nil)

	blob := make([]byte, 1+nonceSize+len(ciphertext))
	blob[0] = secretVersion
	copy(blob[1:1+nonceSize], nonce)
	copy(blob[1+nonceSize:], ciphertext)

	return blob, nil
}

// DecryptString decrypts a blob produced by EncryptString.
func (e *SecretEncryptor) DecryptString(blob []byte) (string, error) {
	minSize := 1 + nonceSize + e.gcm.Overhead()
	if len(blob) < minSize {
		return "", ErrInvalidBlobSize
	}

	if blob[0] != secretVersion {
		return "", fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	nonce := blob[1 : 1+nonceSize]
	ciphertext := blob[1+nonceSize:]

	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
