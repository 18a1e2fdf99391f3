// Package credentials stores provider API keys in .genrelay/credentials.toml
// and resolves the key each adapter should use.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/genrelay/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// Manager reads and writes credentials.toml. Every call goes back to disk so
// a key stored by 'genrelay auth' is seen by a process that is already
// running.
type Manager struct {
	path string
	now  func() time.Time
}

// NewManager resolves the .genrelay/ directory (override first, then the
// usual dotdir lookup) and returns a Manager for the credentials file in it.
func NewManager(override string) (*Manager, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	return &Manager{
		path: filepath.Join(dir, credentialsFile),
		now:  time.Now,
	}, nil
}

// GetTarget returns the path of credentials.toml.
func (m *Manager) GetTarget() string {
	return m.path
}

func (m *Manager) load() (*file, error) {
	f := &file{Version: currentVersion}

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
		if f.Version != currentVersion {
			return nil, fmt.Errorf("unsupported credentials version %d", f.Version)
		}
	}

	if f.Keys == nil {
		f.Keys = map[string]StoredKey{}
	}
	return f, nil
}

// save writes the file with owner-only permissions.
func (m *Manager) save(f *file) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// SetKey stores key for provider, replacing any previous key.
func (m *Manager) SetKey(provider, key string) error {
	if !IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q", provider)
	}
	if key == "" {
		return errors.New("API key cannot be empty")
	}

	f, err := m.load()
	if err != nil {
		return err
	}

	f.Keys[provider] = StoredKey{APIKey: key, StoredAt: m.now().UTC()}
	return m.save(f)
}

// GetKey returns the stored key for provider, or "" when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	f, err := m.load()
	if err != nil {
		return "", err
	}
	return f.Keys[provider].APIKey, nil
}

// Stored returns the stored entry for provider and whether one exists.
func (m *Manager) Stored(provider string) (StoredKey, bool, error) {
	f, err := m.load()
	if err != nil {
		return StoredKey{}, false, err
	}
	k, ok := f.Keys[provider]
	return k, ok, nil
}

// RemoveKey deletes the stored key for provider. Removing a key that was
// never stored is not an error.
func (m *Manager) RemoveKey(provider string) error {
	f, err := m.load()
	if err != nil {
		return err
	}

	if _, ok := f.Keys[provider]; !ok {
		return nil
	}

	delete(f.Keys, provider)
	return m.save(f)
}

// ListProviders returns the providers with a stored key, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	f, err := m.load()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(f.Keys)), nil
}

// Resolve returns the key for provider. The environment wins over the stored
// file. The second return names the source ("env:NAME" or "credentials.toml")
// and is empty when no key was found.
func (m *Manager) Resolve(provider string) (string, string, error) {
	if v, name := fromEnv(provider); v != "" {
		return v, "env:" + name, nil
	}

	key, err := m.GetKey(provider)
	if err != nil || key == "" {
		return "", "", err
	}
	return key, credentialsFile, nil
}
