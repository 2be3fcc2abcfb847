// Package crypto resolves the wallet key that signs bet transactions, either
// from a raw hex key or from a password-encrypted key file.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2-HMAC-SHA256 work factor for new files.
	DefaultIterations = 480_000
	saltLen           = 16
	aesKeyLen         = 32
	keyFileVersion    = 2
)

// keyFile is the on-disk format of an encrypted wallet key.
type keyFile struct {
	Version    int    `json:"version"`
	Address    string `json:"address,omitempty"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeySource says where LoadWallet finds the private key.
type KeySource struct {
	// RawPrivateKey is a hex key, with or without 0x. Takes precedence.
	RawPrivateKey string
	// EncryptedKeyPath is a file written by EncryptKey.
	EncryptedKeyPath string
	KeyPassword      string
}

// Configured reports whether any key source is set.
func (k KeySource) Configured() bool {
	return k.RawPrivateKey != "" || k.EncryptedKeyPath != ""
}

// EncryptKey seals a hex private key under password with PBKDF2 and
// AES-256-GCM. iterations <= 0 uses DefaultIterations.
func EncryptKey(privateKeyHex, password string, iterations int) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: encrypt key: password must not be empty")
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	w, err := NewWallet(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt key: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: encrypt key: salt: %w", err)
	}
	gcm, err := newGCM(password, salt, iterations)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt key: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: encrypt key: nonce: %w", err)
	}

	out := keyFile{
		Version:    keyFileVersion,
		Address:    w.Address().Hex(),
		Iterations: iterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, w.keyBytes(), nil)),
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecryptKey opens a file written by EncryptKey and returns the key as hex
// without the 0x prefix.
func DecryptKey(data []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: decrypt key: password must not be empty")
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return "", fmt.Errorf("crypto: decrypt key: parse: %w", err)
	}
	if kf.Version != keyFileVersion {
		return "", fmt.Errorf("crypto: decrypt key: unsupported version %d", kf.Version)
	}
	if kf.Iterations <= 0 {
		return "", fmt.Errorf("crypto: decrypt key: invalid iterations %d", kf.Iterations)
	}

	salt, err := base64.StdEncoding.DecodeString(kf.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decrypt key: salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(kf.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decrypt key: nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(kf.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decrypt key: ciphertext: %w", err)
	}

	gcm, err := newGCM(password, salt, kf.Iterations)
	if err != nil {
		return "", fmt.Errorf("crypto: decrypt key: %w", err)
	}
	if len(nonce) != gcm.NonceSize() {
		return "", fmt.Errorf("crypto: decrypt key: nonce length %d", len(nonce))
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: decrypt key: wrong password or corrupt file: %w", err)
	}
	return hex.EncodeToString(plaintext), nil
}

// LoadWallet resolves the key from src: the raw key first, then the
// encrypted file.
func LoadWallet(src KeySource) (*Wallet, error) {
	if src.RawPrivateKey != "" {
		return NewWallet(src.RawPrivateKey)
	}
	if src.EncryptedKeyPath != "" {
		data, err := os.ReadFile(src.EncryptedKeyPath)
		if err != nil {
			return nil, fmt.Errorf("crypto: load wallet: %w", err)
		}
		keyHex, err := DecryptKey(data, src.KeyPassword)
		if err != nil {
			return nil, err
		}
		return NewWallet(keyHex)
	}
	return nil, errors.New("crypto: load wallet: no private key source configured")
}

func newGCM(password string, salt []byte, iterations int) (cipher.AEAD, error) {
	derived := pbkdf2.Key([]byte(password), salt, iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return gcm, nil
}

func trimHex(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
