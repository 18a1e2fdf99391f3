package credentials

import "time"

// file is the on-disk layout of credentials.toml.
type file struct {
	Version int                  `toml:"version"`
	Keys    map[string]StoredKey `toml:"providers"`
}

// StoredKey is one provider's key as written by 'genrelay auth'.
type StoredKey struct {
	APIKey   string    `toml:"api_key"`
	StoredAt time.Time `toml:"stored_at,omitempty"`
}
