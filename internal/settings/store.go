package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/muhammadmuzzammil1998/jsonc"
	"github.com/rs/zerolog"
)

// DefaultPath returns the settings file location using XDG_CONFIG_HOME.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "cicd", "config.json")
}

// Store owns the settings file. It is read once at startup and rewritten as a
// whole on every mutation.
type Store struct {
	path    string
	current Settings
}

// Load reads the settings file at path. Missing keys take their defaults and a
// missing file is created with defaults.
func Load(ctx context.Context, path string) (*Store, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "settings").Logger()
	store := &Store{path: path, current: Defaults()}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("settings file missing, writing defaults")
		if err := store.Save(); err != nil {
			return nil, err
		}
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	loaded := Defaults()
	if raw := bytes.TrimSpace(jsonc.ToJSON(data)); len(raw) > 0 {
		if err := json.Unmarshal(raw, &loaded); err != nil {
			return nil, fmt.Errorf("parse settings file %s: %w", path, err)
		}
	}
	for _, field := range loaded.normalize() {
		log.Warn().Str("path", path).Str("field", field).Msg("invalid setting replaced with default")
	}

	store.current = loaded
	return store, nil
}

// Path returns the location of the settings file.
func (s *Store) Path() string {
	return s.path
}

// Current returns a copy of the in-memory settings.
func (s *Store) Current() Settings {
	out := s.current
	if s.current.Repo != nil {
		repo := *s.current.Repo
		out.Repo = &repo
	}
	if s.current.Server != nil {
		server := *s.current.Server
		out.Server = &server
	}
	return out
}

// Update applies u and persists the result. When any field is invalid nothing
// changes, neither in memory nor on disk.
func (s *Store) Update(u Update) error {
	next, err := s.current.apply(u)
	if err != nil {
		return err
	}
	prev := s.current
	s.current = next
	if err := s.Save(); err != nil {
		s.current = prev
		return err
	}
	return nil
}

// Reset restores the defaults and persists them.
func (s *Store) Reset() error {
	prev := s.current
	s.current = Defaults()
	if err := s.Save(); err != nil {
		s.current = prev
		return err
	}
	return nil
}

// Save writes every key to the settings file through a temporary file in the
// same directory followed by a rename.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.current, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
