package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CrestNiraj12/terminalnotes/domain"
)

// TokenProvider supplies an access token for API authentication.
type TokenProvider interface {
	AccessToken() (string, error)
}

// TokenStore persists the access/refresh token pair between runs.
type TokenStore interface {
	TokenProvider
	Load() (domain.Tokens, error)
	Save(domain.Tokens) error
	Clear() error
}

// FileTokenStore keeps both tokens as JSON in a single 0600 file.
// A missing file means logged out.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

// NewFileTokenStore creates a TokenStore backed by the given file path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load reads the token pair. A missing file yields empty tokens.
func (f *FileTokenStore) Load() (domain.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileTokenStore) load() (domain.Tokens, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Tokens{}, nil
	}
	if err != nil {
		return domain.Tokens{}, fmt.Errorf("reading tokens from %s: %w", f.path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return domain.Tokens{}, nil
	}
	var t domain.Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.Tokens{}, fmt.Errorf("parsing tokens in %s: %w", f.path, err)
	}
	t.Access = strings.TrimSpace(t.Access)
	t.Refresh = strings.TrimSpace(t.Refresh)
	return t, nil
}

// AccessToken returns the stored access token, or an error if none is stored.
func (f *FileTokenStore) AccessToken() (string, error) {
	t, err := f.Load()
	if err != nil {
		return "", err
	}
	if t.Access == "" {
		return "", fmt.Errorf("token file %s is empty: %w", f.path, domain.ErrUnauthorized)
	}
	return t.Access, nil
}

// Save replaces the token pair.
func (f *FileTokenStore) Save(t domain.Tokens) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("serializing tokens: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing tokens: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing tokens: %w", err)
	}
	return nil
}

// Clear removes both tokens.
func (f *FileTokenStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing tokens: %w", err)
	}
	return nil
}

// MemoryTokenStore holds tokens in memory only.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens domain.Tokens
}

// NewMemoryTokenStore creates an in-memory store seeded with t.
func NewMemoryTokenStore(t domain.Tokens) *MemoryTokenStore {
	return &MemoryTokenStore{tokens: t}
}

func (m *MemoryTokenStore) Load() (domain.Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, nil
}

func (m *MemoryTokenStore) AccessToken() (string, error) {
	t, _ := m.Load()
	if t.Access == "" {
		return "", domain.ErrUnauthorized
	}
	return t.Access, nil
}

func (m *MemoryTokenStore) Save(t domain.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = t
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = domain.Tokens{}
	return nil
}
