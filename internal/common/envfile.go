package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvTokenStore persists a single value under a key in a .env-style
// file, so a bearer token obtained in one run is reused by the next.
// Other lines in the file are preserved on save.
type EnvTokenStore struct {
	Path string
	Key  string
}

// NewEnvTokenStore returns a store for the given file and key.
func NewEnvTokenStore(path, key string) *EnvTokenStore {
	return &EnvTokenStore{Path: path, Key: key}
}

// Load returns the stored value, or empty string when the file or key
// does not exist.
func (s *EnvTokenStore) Load() (string, error) {
	values, err := godotenv.Read(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	return values[s.Key], nil
}

// Save writes the value under the store's key, rewriting the existing
// file line by line and appending the key when it is not yet present.
func (s *EnvTokenStore) Save(value string) error {
	var lines []string
	if data, err := os.ReadFile(s.Path); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", s.Path, err)
	}

	entry := fmt.Sprintf("%s=%s", s.Key, value)
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(line, s.Key+"=") {
			lines[i] = entry
			replaced = true
		}
	}
	if !replaced {
		lines = append(lines, entry)
	}

	out := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(s.Path, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Path, err)
	}
	return nil
}
