package worldgen

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/core"
)

// ErrClosed is returned by operations on a closed generator.
var ErrClosed = errors.New("worldgen: generator closed")

// DefaultSeaLevel is the water surface in world y coordinates.
const DefaultSeaLevel = 64

// Params controls terrain shape. Zero values are not usable; start
// from DefaultParams.
type Params struct {
	SeaLevel      int64   `yaml:"sea_level"`
	CaveThreshold float64 `yaml:"cave_threshold"`
	OreFrequency  float64 `yaml:"ore_frequency"`
	Vegetation    bool    `yaml:"vegetation"`
	TerrainHeight int64   `yaml:"terrain_height"`
}

// DefaultParams returns the tuning the overworld ships with.
func DefaultParams() Params {
	return Params{
		SeaLevel:      DefaultSeaLevel,
		CaveThreshold: 0.55,
		OreFrequency:  0.15,
		Vegetation:    true,
		TerrainHeight: 64,
	}
}

// Generator produces chunks deterministically from a world seed. It is
// a shared handle: all methods are safe for concurrent use, and a
// closed generator rejects further work.
type Generator struct {
	mu     sync.Mutex
	closed bool

	seed   uint64
	params Params

	terrain *SimplexNoise
	detail  *SimplexNoise
	caves   *SimplexNoise
	ores    *SimplexNoise
	biomes  *biomeMap
	log     core.Logger
}

// New builds a generator for a seed with default params.
func New(seed uint64, logger core.Logger) *Generator {
	return NewWithParams(seed, DefaultParams(), logger)
}

// NewWithParams builds a generator with explicit tuning.
func NewWithParams(seed uint64, params Params, logger core.Logger) *Generator {
	return &Generator{
		seed:    seed,
		params:  params,
		terrain: NewSimplexNoise(seed, 0.01),
		detail:  NewSimplexNoise(seed+1, 0.05),
		caves:   NewSimplexNoise(seed+2, 0.03),
		ores:    NewSimplexNoise(seed+3, 0.08),
		biomes:  newBiomeMap(seed),
		log:     core.OrNop(logger),
	}
}

// Seed returns the world seed.
func (g *Generator) Seed() uint64 { return g.seed }

// Close marks the generator unusable. Idempotent.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// Generate produces the cells for one chunk. The result depends only
// on the seed, params, and chunk id.
func (g *Generator) Generate(id core.ChunkID, size uint32) ([]cell.Cell, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	g.mu.Unlock()

	if size == 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	g.log.Debugf("generating %v (%dx%d)", id, size, size)

	origin := id.WorldOrigin(size)
	cells := make([]cell.Cell, int(size)*int(size))

	for ly := uint32(0); ly < size; ly++ {
		for lx := uint32(0); lx < size; lx++ {
			wx := origin.X + int64(lx)
			wy := origin.Y + int64(ly)
			cells[ly*size+lx] = g.generateCell(wx, wy)
		}
	}

	g.carveCaves(cells, origin, size)
	g.placeOres(cells, origin, size)
	if g.params.Vegetation {
		g.placeVegetation(cells, origin, size)
	}
	return cells, nil
}

// TerrainHeight returns the surface height for a world column.
func (g *Generator) TerrainHeight(worldX int64) int64 {
	x := float64(worldX)
	base := g.terrain.FBM(x, 0, 4, 0.5)
	detail := g.detail.Noise2D(x, 0) * 0.3

	combined := base + detail
	if combined > 1 {
		combined = 1
	} else if combined < -1 {
		combined = -1
	}
	return g.params.SeaLevel + int64(combined*float64(g.params.TerrainHeight))
}

// Heightmap returns surface heights for width columns starting at x0.
func (g *Generator) Heightmap(x0 int64, width int) []int64 {
	out := make([]int64, width)
	for i := range out {
		out[i] = g.TerrainHeight(x0 + int64(i))
	}
	return out
}

// generateCell fills one cell from the terrain column: air above the
// surface, water up to sea level, then the biome's material column by
// depth. Biome and elevation land in the cell data byte pair.
func (g *Generator) generateCell(wx, wy int64) cell.Cell {
	surface := g.TerrainHeight(wx)

	if wy > surface {
		if wy <= g.params.SeaLevel {
			return cell.New(cell.MaterialWater).WithFlag(cell.FlagLiquid).WithBiome(BiomeOcean)
		}
		return cell.Air()
	}

	depth := uint32(surface - wy)
	biome := g.biomes.biomeAt(float64(wx), float64(wy))
	material := g.biomes.get(biome).MaterialAtDepth(depth)

	c := cell.New(material).WithBiome(biome).WithElevation(clampElevation(surface))
	if material != cell.MaterialWater && material != cell.MaterialAir {
		c = c.WithFlag(cell.FlagSolid)
	}
	return c
}

// CaveAt reports whether the cell at a coordinate belongs to a cave.
// Caves grow more likely with depth below sea level.
func (g *Generator) CaveAt(wx, wy int64) bool {
	v := g.caves.FBM(float64(wx), float64(wy), 3, 0.5)

	depthFactor := float64(g.params.SeaLevel-wy) / 100
	if depthFactor < 0 {
		depthFactor = 0
	} else if depthFactor > 1 {
		depthFactor = 1
	}
	threshold := g.params.CaveThreshold - depthFactor*0.1

	if v < 0 {
		v = -v
	}
	return v < threshold
}

func (g *Generator) carveCaves(cells []cell.Cell, origin core.WorldCoord, size uint32) {
	for ly := uint32(0); ly < size; ly++ {
		for lx := uint32(0); lx < size; lx++ {
			wy := origin.Y + int64(ly)
			// Caves stay a margin below sea level.
			if wy >= g.params.SeaLevel-5 {
				continue
			}
			idx := ly*size + lx
			m := cells[idx].Material
			if m == cell.MaterialAir || m == cell.MaterialWater {
				continue
			}
			if g.CaveAt(origin.X+int64(lx), wy) {
				cells[idx] = cell.Air().WithBiome(BiomeCave)
			}
		}
	}
}

func (g *Generator) placeOres(cells []cell.Cell, origin core.WorldCoord, size uint32) {
	for ly := uint32(0); ly < size; ly++ {
		for lx := uint32(0); lx < size; lx++ {
			idx := ly*size + lx
			if cells[idx].Material != cell.MaterialStone {
				continue
			}
			wx := origin.X + int64(lx)
			wy := origin.Y + int64(ly)
			if ore, ok := g.oreAt(wx, wy); ok {
				data := cells[idx].Data
				cells[idx] = cell.New(ore).WithFlag(cell.FlagSolid).
					WithBiome(uint8(data)).WithElevation(uint8(data >> 8))
			}
		}
	}
}

// oreAt picks an ore for a stone cell, stratified by depth: richer
// ores only appear further down.
func (g *Generator) oreAt(wx, wy int64) (uint16, bool) {
	x, y := float64(wx), float64(wy)

	v := g.ores.Noise2D(x, y)
	if v < 0 {
		v = -v
	}
	if v > g.params.OreFrequency {
		return 0, false
	}

	depth := -wy
	selector := g.ores.Noise2D(x*2, y*2)

	switch {
	case depth > 100 && selector > 0.7:
		return MaterialDiamond, true
	case depth > 60 && selector > 0.4:
		return MaterialGold, true
	case depth > 30 && selector > 0.1:
		return MaterialIron, true
	case depth > 10 && selector > -0.3:
		return MaterialCopper, true
	case depth > 0:
		return MaterialCoal, true
	}
	return 0, false
}

// placeVegetation scans each column for its topmost solid cell and
// decorates exposed surfaces by biome.
func (g *Generator) placeVegetation(cells []cell.Cell, origin core.WorldCoord, size uint32) {
	for lx := uint32(0); lx < size; lx++ {
		for ly := size; ly > 0; {
			ly--
			idx := ly*size + lx
			if !cells[idx].IsSolid() {
				continue
			}
			if ly+1 < size && cells[(ly+1)*size+lx].IsEmpty() {
				g.decorateSurface(cells, lx, ly, origin.X+int64(lx), origin.Y+int64(ly), size)
			}
			break
		}
	}
}

func (g *Generator) decorateSurface(cells []cell.Cell, lx, ly uint32, wx, wy int64, size uint32) {
	density := g.detail.Noise2D(float64(wx)*0.1, float64(wy)*0.1)
	if density < 0.3 {
		return
	}

	switch g.biomes.biomeAt(float64(wx), float64(wy)) {
	case BiomeForest:
		if density > 0.7 && ly+3 < size {
			g.placeTree(cells, lx, ly, size)
		}
	case BiomeDesert:
		if density > 0.9 && ly+2 < size {
			cells[(ly+1)*size+lx] = cell.New(MaterialGrass).WithFlag(cell.FlagSolid).WithBiome(BiomeDesert)
		}
	}
}

// placeTree stamps a three-cell trunk with a three-cell canopy.
func (g *Generator) placeTree(cells []cell.Cell, lx, ly, size uint32) {
	for dy := uint32(1); dy <= 3; dy++ {
		if ly+dy < size {
			cells[(ly+dy)*size+lx] = cell.New(cell.MaterialWood).WithFlag(cell.FlagSolid).WithBiome(BiomeForest)
		}
	}
	if ly+4 >= size {
		return
	}
	canopy := ly + 4
	leaves := cell.New(MaterialGrass).WithFlag(cell.FlagSolid).WithBiome(BiomeForest)
	cells[canopy*size+lx] = leaves
	if lx > 0 {
		cells[canopy*size+lx-1] = leaves
	}
	if lx+1 < size {
		cells[canopy*size+lx+1] = leaves
	}
}

// clampElevation maps a surface height to the cell's elevation byte.
func clampElevation(surface int64) uint8 {
	if surface < 0 {
		return 0
	}
	if surface > 255 {
		return 255
	}
	return uint8(surface)
}
