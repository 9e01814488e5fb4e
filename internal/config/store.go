package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/coverfetch/internal/failure"
)

// Store reads and writes a Snapshot as a TOML file.
type Store struct {
	path string
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and validates the configuration file.
func (s *Store) Load() (Snapshot, error) {
	var snap Snapshot

	meta, err := toml.DecodeFile(s.path, &snap)
	if err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return Snapshot{}, fmt.Errorf("%w: couldn't deserialize config: %s", failure.ErrParse, perr.Error())
		}
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return Snapshot{}, fmt.Errorf("%w: couldn't read the config file: %v", failure.ErrIO, err)
		}
		return Snapshot{}, fmt.Errorf("%w: couldn't deserialize config: %v", failure.ErrParse, err)
	}

	for _, key := range meta.Undecoded() {
		log.Warn().Str("key", key.String()).Str("path", s.path).Msg("Unknown config key ignored")
	}

	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}

// Save writes snap to the backing file. The file is replaced atomically
// and a symlinked config is written through.
func (s *Store) Save(snap Snapshot) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("%w: unable to serialize config: %v", failure.ErrIO, err)
	}

	if err := WriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return err
	}

	log.Debug().Str("path", s.path).Msg("Configuration written to disk")
	return nil
}
