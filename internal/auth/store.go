// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/oncosight/oncosight-tui/internal/util"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store persists the token pair across restarts.
type Store interface {
	// Load returns the stored pair. ErrNoTokens when nothing is stored.
	Load() (TokenPair, error)
	// Save replaces the stored pair.
	Save(pair TokenPair) error
	// Clear removes any stored pair. Clearing an empty store is not an
	// error.
	Clear() error
}

// ErrNoTokens indicates the store holds no credentials.
var ErrNoTokens = errors.New("no stored credentials")

// ErrCorruptStore indicates the credential file could not be decrypted,
// from tampering, truncation, or a replaced secret file.
var ErrCorruptStore = errors.New("credential store corrupt")

// =============================================================================
// ENCRYPTED FILE STORE
// =============================================================================

// Encryption parameters for the credential file.
const (
	keySize    = 32 // AES-256
	saltSize   = 32
	nonceSize  = 12
	kdfRounds  = 600000
	secretSize = 64
)

// FileStore keeps the token pair in an encrypted file. The AES-256-GCM key
// is derived with PBKDF2-SHA-256 from a per-install random secret stored
// next to it; both files are owner-only.
//
// On-disk layout: salt || nonce || ciphertext.
type FileStore struct {
	path       string
	secretPath string
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		path:       filepath.Join(dir, "credentials.enc"),
		secretPath: filepath.Join(dir, "install.secret"),
	}
}

// Load decrypts and decodes the stored token pair.
func (s *FileStore) Load() (TokenPair, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return TokenPair{}, ErrNoTokens
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to read credential file: %w", err)
	}

	if len(raw) < saltSize+nonceSize+1 {
		return TokenPair{}, ErrCorruptStore
	}
	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	ciphertext := raw[saltSize+nonceSize:]

	secret, err := s.loadSecret()
	if err != nil {
		return TokenPair{}, err
	}
	key := pbkdf2.Key(secret, salt, kdfRounds, keySize, sha256.New)
	defer zero(key)

	gcm, err := newGCM(key)
	if err != nil {
		return TokenPair{}, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	defer zero(plaintext)

	var pair TokenPair
	if err := json.Unmarshal(plaintext, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	return pair, nil
}

// Save encrypts and atomically writes the token pair.
func (s *FileStore) Save(pair TokenPair) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	plaintext, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	defer zero(plaintext)

	secret, err := s.loadOrCreateSecret()
	if err != nil {
		return err
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key(secret, salt, kdfRounds, keySize, sha256.New)
	defer zero(key)

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	if err := util.AtomicWriteFile(s.path, blob, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// Clear removes the credential file. The install secret is kept: it is not
// a credential, and reuse across logins is harmless because every Save
// draws a fresh salt.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}

// =============================================================================
// INSTALL SECRET
// =============================================================================

func (s *FileStore) loadSecret() ([]byte, error) {
	secret, err := os.ReadFile(s.secretPath)
	if os.IsNotExist(err) {
		return nil, ErrCorruptStore
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read install secret: %w", err)
	}
	return secret, nil
}

func (s *FileStore) loadOrCreateSecret() ([]byte, error) {
	secret, err := os.ReadFile(s.secretPath)
	if err == nil {
		return secret, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read install secret: %w", err)
	}

	secret = make([]byte, secretSize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("failed to generate install secret: %w", err)
	}
	if err := util.AtomicWriteFile(s.secretPath, secret, 0600); err != nil {
		return nil, fmt.Errorf("failed to write install secret: %w", err)
	}
	return secret, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// zero wipes key material after use.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// =============================================================================
// IN-MEMORY STORE
// =============================================================================

// MemoryStore keeps the pair in memory only. Used for ephemeral sessions
// and in tests.
type MemoryStore struct {
	pair TokenPair
	set  bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load() (TokenPair, error) {
	if !m.set {
		return TokenPair{}, ErrNoTokens
	}
	return m.pair, nil
}

func (m *MemoryStore) Save(pair TokenPair) error {
	m.pair = pair
	m.set = true
	return nil
}

func (m *MemoryStore) Clear() error {
	m.pair = TokenPair{}
	m.set = false
	return nil
}
