package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"karyalay/internal/logger"
)

// StorageKey is the single key the signed-in user is kept under.
const StorageKey = "@karyalay_user"

var ErrStorage = errors.New("session storage unavailable")

// Data is what a client remembers about the signed-in user.
type Data struct {
	UserID       int       `json:"user_id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"`
	Role         string    `json:"role"`
	SessionID    string    `json:"session_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// KV is a byte store addressed by key. Get returns ok=false for a missing key.
type KV interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Store holds at most one Data value under StorageKey and mirrors it in memory.
type Store struct {
	kv KV

	mu      sync.RWMutex
	current *Data
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load reads the persisted session. A missing or unreadable value leaves the
// store empty; read failures are reported as ErrStorage.
func (s *Store) Load() (*Data, error) {
	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		logger.Error("failed to read stored session", "key", StorageKey, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ok {
		s.current = nil
		return nil, nil
	}

	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		logger.Warn("discarding unreadable stored session", "key", StorageKey, "error", err)
		s.current = nil
		return nil, nil
	}

	s.current = &d
	return s.copyLocked(), nil
}

// Replace persists d as the signed-in session, overwriting any previous one.
func (s *Store) Replace(d Data) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.kv.Set(StorageKey, raw); err != nil {
		logger.Error("failed to persist session", "key", StorageKey, "error", err)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.mu.Lock()
	s.current = &d
	s.mu.Unlock()
	return nil
}

// Clear forgets the signed-in session. The in-memory copy is dropped even
// when the backing store fails.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err := s.kv.Delete(StorageKey); err != nil {
		logger.Error("failed to clear stored session", "key", StorageKey, "error", err)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Current returns a copy of the in-memory session, or nil when signed out.
func (s *Store) Current() *Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() *Data {
	if s.current == nil {
		return nil
	}
	d := *s.current
	return &d
}

// FileKV keeps each key in its own file under a directory.
type FileKV struct {
	dir string
}

func NewFileKV(dir string) *FileKV {
	return &FileKV{dir: dir}
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, filepath.Base(key)+".json")
}

func (f *FileKV) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set writes through a temp file and rename so readers never see a partial value.
func (f *FileKV) Set(key string, value []byte) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path(key))
}

func (f *FileKV) Delete(key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
