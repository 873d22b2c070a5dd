package workspace

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrStorageMissing is returned when the workspace file does not exist
	// and auto-creation is disabled.
	ErrStorageMissing = errors.New("workspace file does not exist")
	// ErrStorageCorrupt is returned when the file cannot be decrypted or decoded.
	ErrStorageCorrupt = errors.New("workspace file is corrupt")
	// ErrStorageRead is returned when the file exists but cannot be read.
	ErrStorageRead = errors.New("failed to read workspace")
	// ErrStorageWrite is returned when the workspace cannot be written.
	ErrStorageWrite = errors.New("failed to write workspace")
)

// Store reads and writes the encrypted workspace document.
//
// On disk the file is base64 text of salt || nonce || AES-GCM ciphertext,
// where the key is derived from the user secret and the salt.
type Store struct {
	path       string
	secret     []byte
	autoCreate bool
	log        *zap.Logger

	// last salt seen and the key derived from it
	mu   sync.Mutex
	salt []byte
	key  []byte
}

// Option configures a Store.
type Option func(*Store)

// WithAutoCreate makes Load create an empty workspace when the file is absent.
func WithAutoCreate(enabled bool) Option {
	return func(s *Store) { s.autoCreate = enabled }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// NewStore creates a store for the file at path. Auto-creation is on by default.
func NewStore(path string, secret []byte, opts ...Option) *Store {
	s := &Store{
		path:       path,
		secret:     append([]byte(nil), secret...),
		autoCreate: true,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads, decrypts and decodes the whole workspace.
func (s *Store) Load() (*Workspace, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
		}
		if !s.autoCreate {
			return nil, fmt.Errorf("%w: %s", ErrStorageMissing, s.path)
		}
		ws := New()
		if err := s.Save(ws); err != nil {
			return nil, err
		}
		s.log.Info("created workspace", zap.String("path", s.path))
		return ws, nil
	}

	data, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageCorrupt, err)
	}
	if len(data) < saltSize {
		return nil, fmt.Errorf("%w: file too short", ErrStorageCorrupt)
	}

	salt, sealed := data[:saltSize], data[saltSize:]
	plaintext, err := Decrypt(sealed, s.keyFor(salt))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageCorrupt, err)
	}

	var ws Workspace
	if err := json.Unmarshal(plaintext, &ws); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageCorrupt, err)
	}
	ws.normalize()
	return &ws, nil
}

// Save encodes, encrypts and atomically replaces the workspace file.
func (s *Store) Save(ws *Workspace) error {
	plaintext, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	salt, key, err := s.currentKey()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	sealed, err := Encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	blob := make([]byte, 0, len(salt)+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, sealed...)
	encoded := base64.StdEncoding.EncodeToString(blob)

	if err := writeFileAtomic(s.path, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

// keyFor derives the key for salt, reusing the cached one when it matches.
func (s *Store) keyFor(salt []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil && bytes.Equal(s.salt, salt) {
		return s.key
	}
	s.salt = append([]byte(nil), salt...)
	s.key = DeriveKey(s.secret, s.salt)
	return s.key
}

// currentKey returns the cached salt and key, creating fresh ones on first use.
func (s *Store) currentKey() ([]byte, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		salt, err := NewSalt()
		if err != nil {
			return nil, nil, err
		}
		s.salt = salt
		s.key = DeriveKey(s.secret, salt)
	}
	return s.salt, s.key, nil
}

// writeFileAtomic writes data to a temp file in the same directory, syncs it
// and renames it over path so readers never observe a truncated document.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
