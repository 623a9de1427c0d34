package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustfall/dustfall/sim/core"
)

// Region file geometry. A region packs a 32x32 square of chunks into
// one file, allocated in 4 KiB sectors with an offset table up front.
const (
	ChunksPerRegion  = 32
	chunksPerRegion2 = ChunksPerRegion * ChunksPerRegion
	SectorSize       = 4096
	maxChunkSectors  = 256

	regionVersion    = 1
	regionHeaderSize = 16
	regionTableSize  = chunksPerRegion2 * 8
)

// dataStart is the first sector boundary past the header and table.
const dataStart = ((regionHeaderSize + regionTableSize + SectorSize - 1) / SectorSize) * SectorSize

var errRegionCorrupt = errors.New("corrupt region file")

// regionCoord addresses one region file per layer.
type regionCoord struct {
	x, y  int32
	layer uint8
}

func regionOf(id core.ChunkID) regionCoord {
	return regionCoord{
		x:     floorDiv32(id.X, ChunksPerRegion),
		y:     floorDiv32(id.Y, ChunksPerRegion),
		layer: id.Layer,
	}
}

// localIndex returns the chunk's slot in its region's offset table.
func localIndex(id core.ChunkID) int {
	lx := int(modEuclid32(id.X, ChunksPerRegion))
	ly := int(modEuclid32(id.Y, ChunksPerRegion))
	return ly*ChunksPerRegion + lx
}

func floorDiv32(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func modEuclid32(a, b int32) int32 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// chunkLocation is one offset-table entry: sector offset and count.
// A zero entry means no chunk stored.
type chunkLocation struct {
	sectorOffset uint32
	sectorCount  uint32
}

func (l chunkLocation) empty() bool { return l.sectorOffset == 0 && l.sectorCount == 0 }

// regionFile is one open region with its table held in memory.
type regionFile struct {
	f         *os.File
	coord     regionCoord
	locations [chunksPerRegion2]chunkLocation
}

func openRegionFile(path string, coord regionCoord) (*regionFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	r := &regionFile{f: f, coord: coord}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := r.writeTables(); err != nil {
			f.Close()
			return nil, err
		}
		return r, nil
	}
	if err := r.readTables(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *regionFile) writeTables() error {
	buf := make([]byte, regionHeaderSize+regionTableSize)
	copy(buf[0:4], core.RegionMagic)
	binary.LittleEndian.PutUint32(buf[4:8], regionVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.coord.x))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(r.coord.y))
	for i, loc := range r.locations {
		off := regionHeaderSize + i*8
		binary.LittleEndian.PutUint32(buf[off:off+4], loc.sectorOffset)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], loc.sectorCount)
	}
	_, err := r.f.WriteAt(buf, 0)
	return err
}

func (r *regionFile) readTables() error {
	buf := make([]byte, regionHeaderSize+regionTableSize)
	if _, err := r.f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("%w: %v", errRegionCorrupt, err)
	}
	if string(buf[0:4]) != core.RegionMagic {
		return fmt.Errorf("%w: bad magic %q", errRegionCorrupt, buf[0:4])
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v > regionVersion {
		return fmt.Errorf("%w: version %d newer than %d", errRegionCorrupt, v, regionVersion)
	}
	for i := range r.locations {
		off := regionHeaderSize + i*8
		r.locations[i] = chunkLocation{
			sectorOffset: binary.LittleEndian.Uint32(buf[off : off+4]),
			sectorCount:  binary.LittleEndian.Uint32(buf[off+4 : off+8]),
		}
	}
	return nil
}

func (r *regionFile) readChunk(idx int) ([]byte, error) {
	loc := r.locations[idx]
	if loc.empty() {
		return nil, nil
	}
	buf := make([]byte, int(loc.sectorCount)*SectorSize)
	if _, err := r.f.ReadAt(buf, int64(loc.sectorOffset)*SectorSize); err != nil {
		return nil, fmt.Errorf("%w: %v", errRegionCorrupt, err)
	}
	// Payload is length-prefixed inside its sectors.
	n := binary.LittleEndian.Uint32(buf[0:4])
	if int(n) > len(buf)-4 {
		return nil, fmt.Errorf("%w: payload length %d exceeds %d sectors", errRegionCorrupt, n, loc.sectorCount)
	}
	return buf[4 : 4+n], nil
}

func (r *regionFile) writeChunk(idx int, data []byte) error {
	total := 4 + len(data)
	sectors := uint32((total + SectorSize - 1) / SectorSize)
	if sectors > maxChunkSectors {
		return fmt.Errorf("chunk payload of %d bytes exceeds %d sectors", len(data), maxChunkSectors)
	}

	loc := r.locations[idx]
	if loc.sectorCount < sectors {
		loc = chunkLocation{sectorOffset: r.findFreeSpace(idx, sectors), sectorCount: sectors}
	} else {
		loc.sectorCount = sectors
	}

	buf := make([]byte, int(sectors)*SectorSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(data)))
	copy(buf[4:], data)
	if _, err := r.f.WriteAt(buf, int64(loc.sectorOffset)*SectorSize); err != nil {
		return err
	}

	r.locations[idx] = loc
	return r.writeTables()
}

// findFreeSpace appends past the highest allocated sector. Freed holes
// are not reused; compaction is an offline concern.
func (r *regionFile) findFreeSpace(skip int, sectors uint32) uint32 {
	max := uint32(dataStart / SectorSize)
	for i, loc := range r.locations {
		if i == skip || loc.empty() {
			continue
		}
		if end := loc.sectorOffset + loc.sectorCount; end > max {
			max = end
		}
	}
	return max
}

func (r *regionFile) deleteChunk(idx int) error {
	if r.locations[idx].empty() {
		return nil
	}
	r.locations[idx] = chunkLocation{}
	return r.writeTables()
}

func (r *regionFile) close() error { return r.f.Close() }

// RegionStore is a Store that packs chunks into region files, keeping
// file count and filesystem overhead down compared to DirStore.
type RegionStore struct {
	mu   sync.Mutex
	root string
	open map[regionCoord]*regionFile
	log  core.Logger
}

func NewRegionStore(root string, logger core.Logger) (*RegionStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create region dir: %w", err)
	}
	return &RegionStore{
		root: root,
		open: make(map[regionCoord]*regionFile),
		log:  core.OrNop(logger),
	}, nil
}

func (s *RegionStore) path(rc regionCoord) string {
	return filepath.Join(s.root, fmt.Sprintf("layer%d", rc.layer), fmt.Sprintf("r.%d.%d.dfr", rc.x, rc.y))
}

// region returns the open region file, opening or creating on demand.
// Caller holds s.mu.
func (s *RegionStore) region(rc regionCoord, create bool) (*regionFile, error) {
	if r, ok := s.open[rc]; ok {
		return r, nil
	}
	path := s.path(rc)
	if !create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	r, err := openRegionFile(path, rc)
	if err != nil {
		return nil, fmt.Errorf("open region (%d, %d): %w", rc.x, rc.y, err)
	}
	s.open[rc] = r
	s.log.Debugf("opened region (%d, %d, layer %d)", rc.x, rc.y, rc.layer)
	return r, nil
}

func (s *RegionStore) Load(id core.ChunkID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.region(regionOf(id), false)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	data, err := r.readChunk(localIndex(id))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	return data, nil
}

func (s *RegionStore) Save(id core.ChunkID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.region(regionOf(id), true)
	if err != nil {
		return err
	}
	return r.writeChunk(localIndex(id), data)
}

func (s *RegionStore) Delete(id core.ChunkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.region(regionOf(id), false)
	if err != nil || r == nil {
		return err
	}
	return r.deleteChunk(localIndex(id))
}

func (s *RegionStore) Has(id core.ChunkID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.region(regionOf(id), false)
	if err != nil || r == nil {
		return false
	}
	return !r.locations[localIndex(id)].empty()
}

// Close releases all open region files.
func (s *RegionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for rc, r := range s.open {
		if err := r.close(); err != nil && first == nil {
			first = err
		}
		delete(s.open, rc)
	}
	return first
}
