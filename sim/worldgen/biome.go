package worldgen

import "github.com/dustfall/dustfall/sim/cell"

// Biome ids, stored in each generated cell's data byte.
const (
	BiomeForest uint8 = iota
	BiomeDesert
	BiomeCave
	BiomeOcean
	BiomePlains
	BiomeMountain
)

// Terrain and ore material ids layered on top of the built-in table.
const (
	MaterialDirt      uint16 = 6
	MaterialGrass     uint16 = 7
	MaterialSandstone uint16 = 8
	MaterialClay      uint16 = 9

	MaterialCoal    uint16 = 10
	MaterialIron    uint16 = 11
	MaterialGold    uint16 = 12
	MaterialDiamond uint16 = 13
	MaterialCopper  uint16 = 14
)

// RegisterMaterials adds the generator's terrain and ore materials to
// a table. Call once before uploading the table to the GPU.
func RegisterMaterials(t *cell.MaterialTable) error {
	entries := []struct {
		id    uint16
		name  string
		props cell.MaterialProperties
	}{
		{MaterialDirt, "dirt", cell.MaterialProperties{Density: 1300, Friction: 140, Hardness: 40, Flags: cell.FlagSolid}},
		{MaterialGrass, "grass", cell.MaterialProperties{Density: 1100, Friction: 140, Flammability: 60, Hardness: 30, Flags: cell.FlagSolid}},
		{MaterialSandstone, "sandstone", cell.MaterialProperties{Density: 2300, Friction: 180, Hardness: 120, Flags: cell.FlagSolid}},
		{MaterialClay, "clay", cell.MaterialProperties{Density: 1700, Friction: 160, Hardness: 60, Flags: cell.FlagSolid}},
		{MaterialCoal, "coal_ore", cell.MaterialProperties{Density: 2200, Friction: 190, Flammability: 120, Hardness: 150, Flags: cell.FlagSolid}},
		{MaterialIron, "iron_ore", cell.MaterialProperties{Density: 3500, Friction: 190, Conductivity: 180, Hardness: 220, Flags: cell.FlagSolid}},
		{MaterialGold, "gold_ore", cell.MaterialProperties{Density: 4800, Friction: 180, Conductivity: 220, Hardness: 180, Flags: cell.FlagSolid}},
		{MaterialDiamond, "diamond_ore", cell.MaterialProperties{Density: 3200, Friction: 200, Hardness: 255, Flags: cell.FlagSolid}},
		{MaterialCopper, "copper_ore", cell.MaterialProperties{Density: 3300, Friction: 190, Conductivity: 255, Hardness: 190, Flags: cell.FlagSolid}},
	}
	for _, e := range entries {
		if err := t.Set(e.id, e.name, e.props); err != nil {
			return err
		}
	}
	return nil
}

// Biome defines the material column a biome produces, surface down.
type Biome struct {
	ID              uint8
	Name            string
	Surface         uint16
	Subsurface      uint16
	Deep            uint16
	SurfaceDepth    uint32
	SubsurfaceDepth uint32
}

// MaterialAtDepth returns the material for a depth below the surface,
// with depth 0 being the surface cell.
func (b Biome) MaterialAtDepth(depth uint32) uint16 {
	switch {
	case depth < b.SurfaceDepth:
		return b.Surface
	case depth < b.SurfaceDepth+b.SubsurfaceDepth:
		return b.Subsurface
	default:
		return b.Deep
	}
}

// defaultBiomes is indexed by biome id.
var defaultBiomes = []Biome{
	{BiomeForest, "forest", MaterialGrass, MaterialDirt, cell.MaterialStone, 1, 8},
	{BiomeDesert, "desert", cell.MaterialSand, MaterialSandstone, cell.MaterialStone, 4, 16},
	{BiomeCave, "cave", cell.MaterialStone, cell.MaterialStone, cell.MaterialStone, 0, 0},
	{BiomeOcean, "ocean", cell.MaterialSand, MaterialClay, cell.MaterialStone, 2, 10},
	{BiomePlains, "plains", MaterialGrass, MaterialDirt, cell.MaterialStone, 2, 12},
	{BiomeMountain, "mountain", cell.MaterialStone, cell.MaterialStone, cell.MaterialStone, 0, 0},
}

// biomeMap assigns biomes across the world with layered noise.
type biomeMap struct {
	biomes  []Biome
	noise   *SimplexNoise
	detail  *SimplexNoise
	defID   uint8
}

func newBiomeMap(seed uint64) *biomeMap {
	return &biomeMap{
		biomes: defaultBiomes,
		noise:  NewSimplexNoise(seed, 0.005),
		detail: NewSimplexNoise(seed+1, 0.02),
		defID:  BiomeForest,
	}
}

// biomeAt maps world coordinates to a biome id. Primary noise picks
// the region, detail noise roughens the boundaries, and a doubled
// frequency pass decides mountain against desert on elevation.
func (m *biomeMap) biomeAt(x, y float64) uint8 {
	n1 := m.noise.FBM(x, y, 3, 0.5)
	n2 := m.detail.Noise2D(x, y)
	elevation := m.noise.FBM(x*2, y*2, 2, 0.6)

	combined := n1 + n2*0.2
	switch {
	case combined < -0.4:
		return BiomeOcean
	case combined < -0.15:
		return BiomePlains
	case combined < 0.15:
		return BiomeForest
	case combined < 0.4:
		if elevation > 0.3 {
			return BiomeMountain
		}
		return BiomeDesert
	case combined < 0.6:
		if elevation > 0.2 {
			return BiomeMountain
		}
		return BiomePlains
	default:
		return BiomeCave
	}
}

func (m *biomeMap) get(id uint8) Biome {
	if int(id) < len(m.biomes) {
		return m.biomes[id]
	}
	return m.biomes[m.defID]
}
