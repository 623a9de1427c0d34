package core

import "fmt"

// SchemaVersion tags persisted chunk data. Major bumps are breaking:
// a reader refuses files whose major differs from its own. Minor and
// patch changes stay readable.
type SchemaVersion struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// CurrentSchema is the version written by this build.
var CurrentSchema = SchemaVersion{Major: 1, Minor: 0, Patch: 0}

// CompatibleWith reports whether data written at v can be read by a
// reader at other. Only the major component matters.
func (v SchemaVersion) CompatibleWith(other SchemaVersion) bool {
	return v.Major == other.Major
}

func (v SchemaVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// File magics for persisted data.
const (
	ChunkMagic  = "DFCH"
	RegionMagic = "DFRG"
)
