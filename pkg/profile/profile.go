// Package profile persists the signed-in viewer whose id scopes the feed.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const fileName = "viewer.json"

// ErrNoViewer means nobody is signed in; the feed runs anonymously.
var ErrNoViewer = errors.New("no viewer signed in")

// Viewer is the identity sent with feed requests.
type Viewer struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	SignedInAt time.Time `json:"signed_in_at"`
}

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file the viewer is stored in.
func (s *Store) Path() string {
	return filepath.Join(s.dir, fileName)
}

func (s *Store) Save(viewer *Viewer) error {
	if viewer == nil || strings.TrimSpace(viewer.ID) == "" {
		return errors.New("viewer id is required")
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.Marshal(viewer)
	if err != nil {
		return fmt.Errorf("failed to marshal viewer: %w", err)
	}

	return os.WriteFile(s.Path(), data, 0600)
}

func (s *Store) Load() (*Viewer, error) {
	data, err := os.ReadFile(s.Path()) // #nosec G304 -- fixed file name inside the config dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoViewer
		}
		return nil, fmt.Errorf("failed to read viewer: %w", err)
	}

	var viewer Viewer
	if err := json.Unmarshal(data, &viewer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal viewer: %w", err)
	}
	if viewer.ID == "" {
		return nil, ErrNoViewer
	}

	return &viewer, nil
}

// ViewerID returns the stored viewer id, or "" when anonymous.
func (s *Store) ViewerID() (string, error) {
	viewer, err := s.Load()
	if errors.Is(err, ErrNoViewer) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return viewer.ID, nil
}

// Clear signs the viewer out. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove viewer: %w", err)
	}
	return nil
}
