package chunk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustfall/dustfall/sim/core"
)

// ErrNotFound reports a chunk absent from persistent storage. The
// manager treats it as "generate instead", not a failure.
var ErrNotFound = errors.New("chunk not persisted")

// Store is the persistence collaborator: a byte store keyed by chunk
// id, holding encoded chunk payloads.
type Store interface {
	Load(id core.ChunkID) ([]byte, error)
	Save(id core.ChunkID, data []byte) error
	Delete(id core.ChunkID) error
	Has(id core.ChunkID) bool
}

// DirStore persists one file per chunk under a root directory,
// layer/x_y.dfc. Simple and debuggable; RegionStore packs denser.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk dir: %w", err)
	}
	return &DirStore{root: root}, nil
}

func (s *DirStore) path(id core.ChunkID) string {
	return filepath.Join(s.root, fmt.Sprintf("layer%d", id.Layer), fmt.Sprintf("%d_%d.dfc", id.X, id.Y))
}

func (s *DirStore) Load(id core.ChunkID) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load %v: %w", id, err)
	}
	return data, nil
}

func (s *DirStore) Save(id core.ChunkID, data []byte) error {
	path := s.path(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save %v: %w", id, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("save %v: %w", id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("save %v: %w", id, err)
	}
	return nil
}

func (s *DirStore) Delete(id core.ChunkID) error {
	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %v: %w", id, err)
	}
	return nil
}

func (s *DirStore) Has(id core.ChunkID) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}
