// Package secretfile is a file-backed SecureStore for desktop and CLI use:
// each value is sealed with NaCl secretbox under a key derived from a
// passphrase with scrypt. It stands in for the platform keychain the mobile
// runtimes provide.
package secretfile

import (
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-auth-client/sessionstore"
	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

var _ sessionstore.SecureStore = (*FileStore)(nil)

const (
	saltFile  = ".salt"
	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

// scrypt parameters, interactive-use strength.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// FileStore stores one sealed file per logical key under a directory.
type FileStore struct {
	dir string
	key [keySize]byte
}

// New opens (creating if needed) a store rooted at dir, deriving the sealing
// key from passphrase and a per-store random salt persisted alongside the
// values.
func New(dir, passphrase string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "[secretfile.New] creating store directory")
	}

	salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return nil, err
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, errors.Wrap(err, "[secretfile.New] deriving key")
	}

	fs := &FileStore{dir: dir}
	copy(fs.key[:], derived)
	return fs, nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	sealed, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", sessionstore.ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "[FileStore.Get] reading %q", key)
	}
	if len(sealed) < nonceSize {
		return "", errors.Errorf("[FileStore.Get] %q is truncated", key)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &f.key)
	if !ok {
		return "", errors.Errorf("[FileStore.Get] cannot unseal %q (wrong passphrase or damaged file)", key)
	}
	return string(plain), nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return errors.Wrap(err, "[FileStore.Set] generating nonce")
	}

	sealed := secretbox.Seal(nonce[:], []byte(value), &nonce, &f.key)
	if err := os.WriteFile(f.path(key), sealed, 0o600); err != nil {
		return errors.Wrapf(err, "[FileStore.Set] writing %q", key)
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "[FileStore.Delete] removing %q", key)
	}
	return nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, sanitize(key))
}

// sanitize keeps key-derived filenames inside the store directory.
func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		}
		return '_'
	}, key)
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == saltSize {
		return salt, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "[secretfile] reading salt")
	}

	salt = make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "[secretfile] generating salt")
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, errors.Wrap(err, "[secretfile] writing salt")
	}
	return salt, nil
}
