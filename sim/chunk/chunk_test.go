package chunk

import (
	"testing"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/core"
)

func TestNewChunkIsAmbientAir(t *testing.T) {
	c := New(core.NewChunkID(0, 0, 0), 16)
	if c.Dirty() {
		t.Error("fresh chunk should be clean")
	}
	got := c.Get(5, 5)
	if !got.IsEmpty() || got.Temperature != cell.DefaultTemperature {
		t.Errorf("fresh cell = %+v", got)
	}
}

func TestSetMarksDirtyAndBumpsVersion(t *testing.T) {
	c := New(core.NewChunkID(1, 2, 0), 16)
	v0 := c.Version()
	c.Set(3, 4, cell.New(cell.MaterialStone).WithFlag(cell.FlagSolid))
	if !c.Dirty() {
		t.Error("set should mark dirty")
	}
	if c.Version() == v0 {
		t.Error("set should bump version")
	}
	if got := c.Get(3, 4); got.Material != cell.MaterialStone {
		t.Errorf("readback = %+v", got)
	}
	c.MarkClean()
	if c.Dirty() {
		t.Error("MarkClean should clear dirty")
	}
}

func TestOutOfBoundsAccess(t *testing.T) {
	c := New(core.NewChunkID(0, 0, 0), 8)
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {8, 0}, {0, 8}, {100, 100}} {
		if got := c.Get(p[0], p[1]); !got.IsEmpty() {
			t.Errorf("out-of-bounds read at %v = %+v, want air", p, got)
		}
	}
	c.Set(-1, 3, cell.New(1))
	c.Set(8, 3, cell.New(1))
	if c.Dirty() {
		t.Error("out-of-bounds writes must be dropped, not mark dirty")
	}
}

func TestFromCellsLengthCheck(t *testing.T) {
	if _, err := FromCells(core.NewChunkID(0, 0, 0), 4, make([]cell.Cell, 15)); err == nil {
		t.Error("mismatched cell count should fail")
	}
	if _, err := FromCells(core.NewChunkID(0, 0, 0), 4, make([]cell.Cell, 16)); err != nil {
		t.Errorf("exact cell count failed: %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New(core.NewChunkID(0, 0, 0), 4)
	snap := c.Snapshot()
	c.Set(0, 0, cell.New(cell.MaterialSand))
	if snap[0].Material == cell.MaterialSand {
		t.Error("snapshot aliases live cells")
	}
}

func TestReplaceCells(t *testing.T) {
	c := New(core.NewChunkID(0, 0, 0), 4)
	fresh := make([]cell.Cell, 16)
	for i := range fresh {
		fresh[i] = cell.New(cell.MaterialWater).WithFlag(cell.FlagLiquid)
	}
	if err := c.ReplaceCells(fresh); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !c.Get(3, 3).IsLiquid() {
		t.Error("replaced cells not visible")
	}
	if err := c.ReplaceCells(make([]cell.Cell, 9)); err == nil {
		t.Error("wrong length replace should fail")
	}
}
