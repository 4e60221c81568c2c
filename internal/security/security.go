// Package security guards the credential file and the order path. It
// seals credentials.toml into an encrypted vault, validates the inputs
// the model hands to tools, redacts secrets from anything that gets
// written out, and keeps the long-retention audit trail of every
// placement attempt.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	vaultFile    = "credentials.enc"
	vaultVersion = 1

	// AES-256-GCM with a PBKDF2-SHA256 derived key.
	keySize       = 32
	saltSize      = 16
	nonceSize     = 12
	kdfIterations = 100000
)

// vaultEnvelope is the on-disk form of the sealed credential file. The
// salt is regenerated on every seal, so re-sealing with the same
// password still produces a fresh key.
type vaultEnvelope struct {
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Version    int    `json:"version"`
}

// VaultPath returns the sealed credential file location inside a
// config directory.
func VaultPath(configDir string) string {
	return filepath.Join(configDir, vaultFile)
}

// VaultExists reports whether a sealed credential file is present.
func VaultExists(configDir string) bool {
	_, err := os.Stat(VaultPath(configDir))
	return err == nil
}

// SealCredentials encrypts the raw credential file bytes under the
// master password and writes the vault. The plaintext is stored as-is,
// so whatever format the caller keeps credentials in survives a
// seal/open round trip unchanged.
func SealCredentials(configDir string, plaintext []byte, password string) error {
	if password == "" {
		return fmt.Errorf("master password cannot be empty")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	key := deriveKey(password, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	envelope := vaultEnvelope{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, plaintext, nil)),
		Version:    vaultVersion,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing vault: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(VaultPath(configDir), data, 0600); err != nil {
		return fmt.Errorf("writing vault: %w", err)
	}
	return nil
}

// OpenCredentials decrypts the vault and returns the original
// credential file bytes. A wrong password surfaces as a decryption
// failure; GCM authenticates the ciphertext, so tampering fails the
// same way.
func OpenCredentials(configDir, password string) ([]byte, error) {
	data, err := os.ReadFile(VaultPath(configDir))
	if err != nil {
		return nil, fmt.Errorf("reading vault: %w", err)
	}

	var envelope vaultEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parsing vault: %w", err)
	}
	if envelope.Version != vaultVersion {
		return nil, fmt.Errorf("unsupported vault version %d", envelope.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(envelope.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}

	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("opening vault: wrong master password or corrupted file")
	}
	return plaintext, nil
}

// ShredFile overwrites a file with random bytes before removing it.
// Used after sealing so the plaintext credential file does not linger
// on disk.
func ShredFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	noise := make([]byte, info.Size())
	if _, err := rand.Read(noise); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(noise); err != nil {
		f.Close()
		return err
	}
	f.Close()

	return os.Remove(path)
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIterations, keySize, sha256.New)
}
