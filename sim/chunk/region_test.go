package chunk

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dustfall/dustfall/sim/core"
)

func TestRegionCoordMapping(t *testing.T) {
	cases := []struct {
		id       core.ChunkID
		rx, ry   int32
		localIdx int
	}{
		{core.NewChunkID(0, 0, 0), 0, 0, 0},
		{core.NewChunkID(31, 31, 0), 0, 0, 31*32 + 31},
		{core.NewChunkID(32, 0, 0), 1, 0, 0},
		{core.NewChunkID(-1, -1, 0), -1, -1, 31*32 + 31},
		{core.NewChunkID(-32, 0, 0), -1, 0, 0},
		{core.NewChunkID(-33, 5, 0), -2, 0, 5*32 + 31},
	}
	for _, c := range cases {
		rc := regionOf(c.id)
		if rc.x != c.rx || rc.y != c.ry {
			t.Errorf("%v: region = (%d, %d), want (%d, %d)", c.id, rc.x, rc.y, c.rx, c.ry)
		}
		if got := localIndex(c.id); got != c.localIdx {
			t.Errorf("%v: local index = %d, want %d", c.id, got, c.localIdx)
		}
	}
}

func TestRegionStoreRoundTrip(t *testing.T) {
	s, err := NewRegionStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	id := core.NewChunkID(3, -7, 0)
	payload := Encode(testChunk(t, 16))

	assert.False(t, s.Has(id))
	_, err = s.Load(id)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Save(id, payload))
	assert.True(t, s.Has(id))

	got, err := s.Load(id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, got))
}

func TestRegionStoreOverwriteGrowAndShrink(t *testing.T) {
	s, err := NewRegionStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	id := core.NewChunkID(0, 0, 0)
	small := bytes.Repeat([]byte{0xAB}, 100)
	big := bytes.Repeat([]byte{0xCD}, SectorSize*3)

	require.NoError(t, s.Save(id, small))
	require.NoError(t, s.Save(id, big))
	got, err := s.Load(id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(big, got))

	require.NoError(t, s.Save(id, small))
	got, err = s.Load(id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(small, got))
}

func TestRegionStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	id := core.NewChunkID(40, 40, 2)
	payload := []byte("persisted payload")

	s, err := NewRegionStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(id, payload))
	require.NoError(t, s.Close())

	s2, err := NewRegionStore(dir, nil)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Load(id)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestRegionStoreNeighborsShareAFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewRegionStore(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	a := core.NewChunkID(1, 1, 0)
	b := core.NewChunkID(2, 1, 0)
	require.NoError(t, s.Save(a, []byte("aaa")))
	require.NoError(t, s.Save(b, []byte("bbbbbb")))

	gotA, err := s.Load(a)
	require.NoError(t, err)
	gotB, err := s.Load(b)
	require.NoError(t, err)
	assert.Equal(t, []byte("aaa"), gotA)
	assert.Equal(t, []byte("bbbbbb"), gotB)
}

func TestRegionStoreDelete(t *testing.T) {
	s, err := NewRegionStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	id := core.NewChunkID(5, 5, 0)
	require.NoError(t, s.Save(id, []byte("x")))
	require.NoError(t, s.Delete(id))
	assert.False(t, s.Has(id))
	_, err = s.Load(id)
	assert.True(t, errors.Is(err, ErrNotFound))

	// Deleting a chunk that was never stored is a no-op.
	require.NoError(t, s.Delete(core.NewChunkID(900, 900, 0)))
}

func TestRegionStoreLayersAreSeparate(t *testing.T) {
	s, err := NewRegionStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	overworld := core.NewChunkID(0, 0, 0)
	cave := core.NewChunkID(0, 0, 1)
	require.NoError(t, s.Save(overworld, []byte("surface")))
	assert.False(t, s.Has(cave))
	require.NoError(t, s.Save(cave, []byte("cave")))

	got, err := s.Load(cave)
	require.NoError(t, err)
	assert.Equal(t, []byte("cave"), got)
}
