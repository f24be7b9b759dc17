package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrNoAccount is the canonical first-run signal: no account record exists
// yet, so a new identity must be generated.
var ErrNoAccount = errors.New("no account record")

// Store persists the single account record across sessions.
type Store interface {
	Load(ctx context.Context) (Identity, error)
	Save(ctx context.Context, id Identity) error
}

// InMemoryStore holds the account record for the process lifetime only.
type InMemoryStore struct {
	mu  sync.RWMutex
	id  Identity
	set bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Load(_ context.Context) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return Identity{}, ErrNoAccount
	}
	return s.id, nil
}

func (s *InMemoryStore) Save(_ context.Context, id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.set = true
	return nil
}

// FileStore keeps the account record in a JSON file, the wallet's equivalent
// of the browser cookie. The key material is plaintext, so the file is
// written owner-readable only.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Identity{}, ErrNoAccount
	}
	if err != nil {
		return Identity{}, fmt.Errorf("read account file: %w", err)
	}
	return Unmarshal(raw)
}

func (s *FileStore) Save(_ context.Context, id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := id.Marshal()
	if err != nil {
		return fmt.Errorf("encode account record: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write account file: %w", err)
	}
	return nil
}
