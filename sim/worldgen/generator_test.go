package worldgen

import (
	"testing"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/core"
)

func TestNoiseDeterministic(t *testing.T) {
	a := NewSimplexNoise(42, 0.01)
	b := NewSimplexNoise(42, 0.01)
	for i := 0; i < 50; i++ {
		x, y := float64(i)*3.7, float64(i)*-1.3
		if a.Noise2D(x, y) != b.Noise2D(x, y) {
			t.Fatalf("same seed diverged at (%v, %v)", x, y)
		}
	}
}

func TestNoiseSeedsDiffer(t *testing.T) {
	a := NewSimplexNoise(1, 0.01)
	b := NewSimplexNoise(2, 0.01)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Noise2D(float64(i), 0) == b.Noise2D(float64(i), 0) {
			same++
		}
	}
	if same > 10 {
		t.Errorf("different seeds agreed on %d of 100 samples", same)
	}
}

func TestNoiseRange(t *testing.T) {
	n := NewSimplexNoise(7, 0.05)
	for i := -200; i < 200; i++ {
		v := n.FBM(float64(i), float64(i/2), 4, 0.5)
		if v < -1.0 || v > 1.0 {
			t.Fatalf("fbm out of range at %d: %v", i, v)
		}
	}
}

func TestTerrainHeightDeterministic(t *testing.T) {
	g := New(42, nil)
	if g.TerrainHeight(100) != g.TerrainHeight(100) {
		t.Error("terrain height not deterministic")
	}
}

func TestTerrainHeightVaries(t *testing.T) {
	g := New(42, nil)
	seen := make(map[int64]struct{})
	for x := int64(0); x < 500; x++ {
		seen[g.TerrainHeight(x)] = struct{}{}
	}
	if len(seen) < 10 {
		t.Errorf("only %d distinct heights over 500 columns", len(seen))
	}
}

func TestGenerateChunkDeterministic(t *testing.T) {
	g := New(42, nil)
	id := core.NewChunkID(0, 0, 0)

	a, err := g.Generate(id, 32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := g.Generate(id, 32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a) != 32*32 {
		t.Fatalf("cell count = %d, want %d", len(a), 32*32)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("cell %d differs between identical generations", i)
		}
	}
}

func TestDifferentChunksDiffer(t *testing.T) {
	g := New(42, nil)
	a, _ := g.Generate(core.NewChunkID(0, 0, 0), 32)
	b, _ := g.Generate(core.NewChunkID(1, 0, 0), 32)
	for i := range a {
		if a[i] != b[i] {
			return
		}
	}
	t.Error("adjacent chunks generated identical content")
}

func TestHighAltitudeIsAir(t *testing.T) {
	g := New(42, nil)
	// Chunk y=100 with size 32 starts at world y 3200, far above any
	// terrain the default params can produce.
	cells, err := g.Generate(core.NewChunkID(0, 100, 0), 32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, c := range cells {
		if !c.IsEmpty() {
			t.Fatalf("cell %d above the world is %d, want air", i, c.Material)
		}
	}
}

func TestDeepChunkHasRockAndNoWater(t *testing.T) {
	g := New(42, nil)
	cells, err := g.Generate(core.NewChunkID(0, -10, 0), 32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	solid, water := 0, 0
	for _, c := range cells {
		if c.IsSolid() {
			solid++
		}
		if c.Material == cell.MaterialWater {
			water++
		}
	}
	if solid == 0 {
		t.Error("deep chunk contains no rock at all")
	}
	if water != 0 {
		t.Errorf("%d water cells far below sea level", water)
	}
}

func TestSurfaceCellsCarryElevation(t *testing.T) {
	g := New(42, nil)
	tagged := 0
	// Sample a wide band of surface-level chunks; some columns must
	// rise above sea level and record their height.
	for cx := int32(-8); cx <= 8; cx++ {
		cells, err := g.Generate(core.NewChunkID(cx, 1, 0), 64)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		for _, c := range cells {
			if c.IsSolid() && c.Data>>8 != 0 {
				tagged++
			}
		}
	}
	if tagged == 0 {
		t.Error("no solid cell carries an elevation tag near the surface")
	}
}

func TestOresOnlyReplaceStone(t *testing.T) {
	g := New(42, nil)
	cells, _ := g.Generate(core.NewChunkID(0, -5, 0), 32)
	for i, c := range cells {
		switch c.Material {
		case MaterialCoal, MaterialIron, MaterialGold, MaterialDiamond, MaterialCopper:
			if !c.IsSolid() {
				t.Fatalf("ore cell %d not solid", i)
			}
		}
	}
}

func TestClosedGeneratorRejectsWork(t *testing.T) {
	g := New(42, nil)
	if err := g.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := g.Generate(core.NewChunkID(0, 0, 0), 32); err != ErrClosed {
		t.Errorf("generate after close = %v, want ErrClosed", err)
	}
}

func TestRegisterMaterials(t *testing.T) {
	table := cell.NewMaterialTable()
	if err := RegisterMaterials(table); err != nil {
		t.Fatalf("register: %v", err)
	}
	if table.Name(MaterialDirt) != "dirt" {
		t.Errorf("dirt not registered")
	}
	if !table.Get(MaterialIron).HasFlag(cell.FlagSolid) {
		t.Errorf("iron ore should be solid")
	}
	if table.Get(MaterialCopper).Conductivity != 255 {
		t.Errorf("copper conductivity = %d", table.Get(MaterialCopper).Conductivity)
	}
}

func TestBiomeMaterialColumns(t *testing.T) {
	forest := defaultBiomes[BiomeForest]
	if forest.MaterialAtDepth(0) != MaterialGrass {
		t.Error("forest surface should be grass")
	}
	if forest.MaterialAtDepth(5) != MaterialDirt {
		t.Error("forest subsurface should be dirt")
	}
	if forest.MaterialAtDepth(100) != cell.MaterialStone {
		t.Error("forest deep layer should be stone")
	}

	mountain := defaultBiomes[BiomeMountain]
	if mountain.MaterialAtDepth(0) != cell.MaterialStone {
		t.Error("mountain surface should be stone")
	}
}
