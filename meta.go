package dustfall

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dustfall/dustfall/sim/core"
)

const metaFile = "meta.yaml"

// Meta identifies a world save on disk. Written once when the save
// directory is created, validated on every reopen.
type Meta struct {
	ID      string `yaml:"id"`
	Seed    uint64 `yaml:"seed"`
	Schema  string `yaml:"schema"`
	Created string `yaml:"created"`
}

// newMeta mints the identity for a fresh world.
func newMeta(seed uint64) Meta {
	return Meta{
		ID:      uuid.NewString(),
		Seed:    seed,
		Schema:  core.CurrentSchema.String(),
		Created: time.Now().UTC().Format(time.RFC3339),
	}
}

// loadOrCreateMeta reopens an existing save's metadata or creates it.
// Reopening with a different seed fails: the terrain on disk was
// generated with the recorded seed, and mixing seeds tears the world
// at chunk borders.
func loadOrCreateMeta(dir string, seed uint64) (Meta, error) {
	path := filepath.Join(dir, metaFile)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		m := newMeta(seed)
		return m, writeMeta(path, m)
	case err != nil:
		return Meta{}, fmt.Errorf("read world meta: %w", err)
	}

	var m Meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("parse world meta: %w", err)
	}
	if m.Seed != seed {
		return Meta{}, fmt.Errorf("world %s was created with seed %d, not %d", m.ID, m.Seed, seed)
	}
	return m, nil
}

func writeMeta(path string, m Meta) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode world meta: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write world meta: %w", err)
	}
	return nil
}
