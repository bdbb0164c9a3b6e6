// Package credentials persists the organisation id and API key used to reach
// the telemetry broker.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound = errors.New("credentials not found")
	ErrInvalid  = errors.New("invalid credentials")
)

var validate = validator.New()

// APIAuth is the persisted credential pair.
type APIAuth struct {
	OrgID  string `json:"org-id" validate:"required,printascii"`
	APIKey string `json:"api-key" validate:"required,printascii"`
}

func (a APIAuth) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Store reads and writes one credential file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the credential file. A missing file returns ErrNotFound.
func (s *Store) Load() (APIAuth, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return APIAuth{}, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return APIAuth{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	var a APIAuth
	if err := json.Unmarshal(b, &a); err != nil {
		return APIAuth{}, fmt.Errorf("%w: decode %s: %v", ErrInvalid, s.path, err)
	}
	if err := a.Validate(); err != nil {
		return APIAuth{}, err
	}
	return a, nil
}

// Save validates a and replaces the credential file atomically. The file is
// readable by its owner only.
func (s *Store) Save(a APIAuth) error {
	if err := a.Validate(); err != nil {
		return err
	}

	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".auth-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}
	return nil
}

// LoadOptional is Load, except that a missing file yields nil, nil.
func (s *Store) LoadOptional() (*APIAuth, error) {
	a, err := s.Load()
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
