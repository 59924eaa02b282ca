// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package vault implements SessionVault (spec.md §4.A): authenticated
// encryption of the workspace-credential Session at rest, keyed by a
// machine-local secret, with owner-only filesystem permissions.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/haldor/chatterm/internal/apperr"
	"github.com/haldor/chatterm/internal/model"
)

const (
	sessionFileName = "session.json"
	secretKeyName   = ".secret_key"
	keySize         = 32 // AES-256
	nonceSize       = 12 // AES-GCM standard nonce
	ownerReadWrite  = 0o600
)

// ErrNotFound is returned by Load when no session file exists yet.
var ErrNotFound = errors.New("vault: no session file")

// Vault is a SessionVault rooted at a platform data directory.
type Vault struct {
	dir string
}

// New returns a Vault rooted at dir (the platform-standard application
// data directory; resolving that path is the caller's concern, same as
// spec.md §6 leaves it to the embedding application).
func New(dir string) *Vault {
	return &Vault{dir: dir}
}

func (v *Vault) sessionPath() string { return filepath.Join(v.dir, sessionFileName) }
func (v *Vault) keyPath() string     { return filepath.Join(v.dir, secretKeyName) }

// loadOrCreateKey reads the 32-byte secret key, generating and persisting a
// fresh random key on first use.
func (v *Vault) loadOrCreateKey() ([]byte, error) {
	data, err := os.ReadFile(v.keyPath())
	if err == nil {
		if len(data) != keySize {
			return nil, fmt.Errorf("vault: secret key has wrong length %d", len(data))
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("vault: read secret key: %w", err)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("vault: generate secret key: %w", err)
	}
	if err := os.MkdirAll(v.dir, 0o700); err != nil {
		return nil, fmt.Errorf("vault: create data dir: %w", err)
	}
	if err := writeFileAtomic(v.keyPath(), key, ownerReadWrite); err != nil {
		return nil, fmt.Errorf("vault: persist secret key: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Load reads, decrypts, and deserializes the session. It returns
// ErrNotFound if no session has ever been saved, or an
// apperr.CodeCorrupted error if AEAD verification fails — never a
// partially-decoded Session (spec.md §4.A contract).
func (v *Vault) Load() (*model.Session, error) {
	raw, err := os.ReadFile(v.sessionPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, apperr.Network("read session file", err)
	}

	if len(raw) < nonceSize {
		return nil, apperr.Corrupted(fmt.Errorf("ciphertext too short: %d bytes", len(raw)))
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]

	key, err := v.loadOrCreateKey()
	if err != nil {
		return nil, apperr.Network("load secret key", err)
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, apperr.Network("init AEAD", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, apperr.Corrupted(err)
	}

	var session model.Session
	if err := json.Unmarshal(plaintext, &session); err != nil {
		// A forged-but-tampered-in-a-decryptable-way payload could never
		// reach here (GCM would already have failed to Open), but a
		// malformed write from a previous version of this program could;
		// treat that identically to an AEAD failure rather than returning
		// a half-built Session.
		return nil, apperr.Corrupted(err)
	}
	return &session, nil
}

// Save serializes and encrypts session, writing nonce‖ciphertext‖tag with a
// fresh random nonce, atomically (write-to-temp + rename) so a crash mid-write
// never leaves a decryptable-but-stale file, and with 0600 permissions set
// immediately on the new file (spec.md §4.A).
func (v *Vault) Save(session *model.Session) error {
	if err := session.Validate(); err != nil {
		return apperr.Validation(err.Error())
	}

	key, err := v.loadOrCreateKey()
	if err != nil {
		return apperr.Network("load secret key", err)
	}
	aead, err := newGCM(key)
	if err != nil {
		return apperr.Network("init AEAD", err)
	}

	plaintext, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("vault: marshal session: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return apperr.Network("generate nonce", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, nonceSize+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)

	if err := os.MkdirAll(v.dir, 0o700); err != nil {
		return apperr.Network("create data dir", err)
	}
	if err := writeFileAtomic(v.sessionPath(), out, ownerReadWrite); err != nil {
		return apperr.Network("persist session", err)
	}
	return nil
}

// Purge deletes both the session file and the secret-key file.
func (v *Vault) Purge() error {
	var errs []error
	for _, p := range []string{v.sessionPath(), v.keyPath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("vault: purge: %v", errs)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the same directory as path
// and renames it into place, so a crash never leaves a partial file visible
// at path. The permission is applied before the rename, not after, so the
// final file is never briefly world-readable.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
