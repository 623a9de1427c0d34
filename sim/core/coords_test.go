package core

import "testing"

func TestWorldToChunkFloorDivision(t *testing.T) {
	cases := []struct {
		x, y   int64
		cx, cy int32
	}{
		{0, 0, 0, 0},
		{255, 255, 0, 0},
		{256, 256, 1, 1},
		{-1, -1, -1, -1},
		{-256, -256, -1, -1},
		{-257, -257, -2, -2},
		{511, -512, 1, -2},
	}
	for _, c := range cases {
		id := NewWorldCoord(c.x, c.y).ToChunk(256, 0)
		if id.X != c.cx || id.Y != c.cy {
			t.Errorf("(%d,%d): got chunk (%d,%d), want (%d,%d)", c.x, c.y, id.X, id.Y, c.cx, c.cy)
		}
	}
}

func TestWorldToLocalAlwaysInRange(t *testing.T) {
	cases := []struct {
		x, y   int64
		lx, ly uint16
	}{
		{0, 0, 0, 0},
		{255, 1, 255, 1},
		{256, 257, 0, 1},
		{-1, -1, 255, 255},
		{-256, -257, 0, 255},
	}
	for _, c := range cases {
		l := NewWorldCoord(c.x, c.y).ToLocal(256)
		if l.X != c.lx || l.Y != c.ly {
			t.Errorf("(%d,%d): got local (%d,%d), want (%d,%d)", c.x, c.y, l.X, l.Y, c.lx, c.ly)
		}
	}
}

func TestChunkWorldOriginRoundTrip(t *testing.T) {
	for _, id := range []ChunkID{
		{0, 0, 0}, {1, -1, 0}, {-3, 2, 1}, {100, -100, 0},
	} {
		origin := id.WorldOrigin(256)
		back := origin.ToChunk(256, id.Layer)
		if back != id {
			t.Errorf("%v: origin %v maps back to %v", id, origin, back)
		}
		if origin.ToLocal(256) != (LocalCoord{0, 0}) {
			t.Errorf("%v: origin %v is not a chunk corner", id, origin)
		}
	}
}

func TestLocalIndexRoundTrip(t *testing.T) {
	const size = 17
	for _, l := range []LocalCoord{{0, 0}, {16, 0}, {0, 16}, {16, 16}, {5, 9}} {
		idx := l.Index(size)
		if got := LocalFromIndex(idx, size); got != l {
			t.Errorf("%v: index %d maps back to %v", l, idx, got)
		}
	}
	if idx := (LocalCoord{16, 16}).Index(size); idx != size*size-1 {
		t.Errorf("max corner index = %d, want %d", idx, size*size-1)
	}
}

func TestLayersAreDistinct(t *testing.T) {
	a := NewWorldCoord(10, 10).ToChunk(256, 0)
	b := NewWorldCoord(10, 10).ToChunk(256, 1)
	if a == b {
		t.Error("same position on different layers produced equal chunk ids")
	}
}
