package cell

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Well-known material ids. The table is data-driven; these are just
// the ids the built-in defaults occupy.
const (
	MaterialAir   uint16 = 0
	MaterialStone uint16 = 1
	MaterialSand  uint16 = 2
	MaterialWater uint16 = 3
	MaterialWood  uint16 = 4
	MaterialFire  uint16 = 5
)

// MaxMaterials bounds the property table. The GPU-side table is
// allocated once at this size.
const MaxMaterials = 256

// PropertiesSize is the packed byte size of one MaterialProperties entry.
const PropertiesSize = 8

// MaterialProperties is one entry of the material lookup table,
// read-only during simulation.
type MaterialProperties struct {
	Density      uint16
	Friction     uint8
	Flammability uint8
	Conductivity uint8
	Hardness     uint8
	Flags        uint8
}

// HasFlag reports whether the behavior flag bits include flag.
func (p MaterialProperties) HasFlag(flag uint8) bool {
	return p.Flags&flag != 0
}

// EncodeTo packs the entry into dst, which must hold at least
// PropertiesSize bytes. One byte of padding keeps 8-byte stride.
func (p MaterialProperties) EncodeTo(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:2], p.Density)
	dst[2] = p.Friction
	dst[3] = p.Flammability
	dst[4] = p.Conductivity
	dst[5] = p.Hardness
	dst[6] = p.Flags
	dst[7] = 0
}

// MaterialTable maps Cell.Material to its properties. Populated at
// startup, then read-only.
type MaterialTable struct {
	entries [MaxMaterials]MaterialProperties
	names   [MaxMaterials]string
}

// NewMaterialTable returns a table populated with the built-in defaults.
func NewMaterialTable() *MaterialTable {
	t := &MaterialTable{}
	defaults := []struct {
		id    uint16
		name  string
		props MaterialProperties
	}{
		{MaterialAir, "air", MaterialProperties{}},
		{MaterialStone, "stone", MaterialProperties{Density: 2600, Friction: 200, Hardness: 200, Flags: FlagSolid}},
		{MaterialSand, "sand", MaterialProperties{Density: 1600, Friction: 120, Hardness: 30, Flags: FlagSolid}},
		{MaterialWater, "water", MaterialProperties{Density: 1000, Friction: 10, Conductivity: 80, Flags: FlagLiquid}},
		{MaterialWood, "wood", MaterialProperties{Density: 700, Friction: 150, Flammability: 180, Hardness: 80, Flags: FlagSolid}},
		{MaterialFire, "fire", MaterialProperties{Density: 1, Flammability: 255, Flags: FlagBurning}},
	}
	for _, d := range defaults {
		t.entries[d.id] = d.props
		t.names[d.id] = d.name
	}
	return t
}

// Get returns the properties for a material id. Out-of-range ids
// return the zero entry (air).
func (t *MaterialTable) Get(id uint16) MaterialProperties {
	if int(id) >= MaxMaterials {
		return MaterialProperties{}
	}
	return t.entries[id]
}

// Name returns the configured name for a material id, or "".
func (t *MaterialTable) Name(id uint16) string {
	if int(id) >= MaxMaterials {
		return ""
	}
	return t.names[id]
}

// Set overwrites one entry. Returns an error for out-of-range ids.
func (t *MaterialTable) Set(id uint16, name string, props MaterialProperties) error {
	if int(id) >= MaxMaterials {
		return fmt.Errorf("material id %d out of range (max %d)", id, MaxMaterials-1)
	}
	t.entries[id] = props
	t.names[id] = name
	return nil
}

// EncodeTable packs the full table for GPU upload,
// MaxMaterials*PropertiesSize bytes.
func (t *MaterialTable) EncodeTable() []byte {
	out := make([]byte, MaxMaterials*PropertiesSize)
	for i := range t.entries {
		t.entries[i].EncodeTo(out[i*PropertiesSize:])
	}
	return out
}

type materialConfig struct {
	ID           uint16 `yaml:"id"`
	Name         string `yaml:"name"`
	Density      uint16 `yaml:"density"`
	Friction     uint8  `yaml:"friction"`
	Flammability uint8  `yaml:"flammability"`
	Conductivity uint8  `yaml:"conductivity"`
	Hardness     uint8  `yaml:"hardness"`
	Solid        bool   `yaml:"solid"`
	Liquid       bool   `yaml:"liquid"`
}

type materialsFile struct {
	Materials []materialConfig `yaml:"materials"`
}

// LoadMaterials reads material definitions from a YAML stream and
// merges them over the defaults. Entries with out-of-range ids fail
// the whole load.
func LoadMaterials(r io.Reader) (*MaterialTable, error) {
	var cfg materialsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode materials: %w", err)
	}

	t := NewMaterialTable()
	for _, m := range cfg.Materials {
		props := MaterialProperties{
			Density:      m.Density,
			Friction:     m.Friction,
			Flammability: m.Flammability,
			Conductivity: m.Conductivity,
			Hardness:     m.Hardness,
		}
		if m.Solid {
			props.Flags |= FlagSolid
		}
		if m.Liquid {
			props.Flags |= FlagLiquid
		}
		if err := t.Set(m.ID, m.Name, props); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadMaterialsFile is LoadMaterials over a file path.
func LoadMaterialsFile(path string) (*MaterialTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open materials config: %w", err)
	}
	defer f.Close()
	return LoadMaterials(f)
}
