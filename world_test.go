package dustfall

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dustfall/dustfall/sim/cell"
	"github.com/dustfall/dustfall/sim/core"
	"github.com/dustfall/dustfall/sim/intent"
	"github.com/dustfall/dustfall/sim/worldgen"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ChunkSize = 16
	cfg.LoadRadius = 1
	cfg.UnloadRadius = 2
	return cfg
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.ChunkSize = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.LoadRadius, bad.UnloadRadius = 5, 5
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Store = "sqlite"
	assert.Error(t, bad.Validate())
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(`
chunk_size: 64
load_radius: 2
unload_radius: 4
seed: 99
store: region
`))
	require.NoError(t, err)
	assert.Equal(t, uint32(64), cfg.ChunkSize)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, StoreRegion, cfg.Store)
	// Unspecified fields keep defaults.
	assert.Equal(t, worldgen.DefaultParams().SeaLevel, cfg.Generation.SeaLevel)
}

func TestReadConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ReadConfig(strings.NewReader("chunk_sizee: 64\n"))
	assert.Error(t, err)
}

func TestHeadlessWorldStepsAndStreams(t *testing.T) {
	w, err := NewWorld(testConfig(t), nil, nil)
	require.NoError(t, err)
	defer w.Close()

	stats, err := w.Step(core.NewWorldCoord(0, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Loaded, "loads stay within the frame budget")
	assert.Equal(t, 2, stats.Resident)

	// Keep stepping until the 3x3 window is fully resident.
	for i := 0; i < 10; i++ {
		if _, err := w.Step(core.NewWorldCoord(0, 0), nil); err != nil {
			t.Fatal(err)
		}
	}
	assert.Equal(t, 9, w.Manager().LoadedCount())
}

func TestStepReportsUnloads(t *testing.T) {
	w, err := NewWorld(testConfig(t), nil, nil)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 10; i++ {
		stats, err := w.Step(core.NewWorldCoord(0, 0), nil)
		require.NoError(t, err)
		assert.Zero(t, stats.Unloaded, "nothing leaves a stationary window")
	}
	require.Equal(t, 9, w.Manager().LoadedCount())

	// Jump far enough that every resident chunk passes the unload
	// radius; the whole old window evicts in one frame.
	stats, err := w.Step(core.NewWorldCoord(16*100, 16*100), nil)
	require.NoError(t, err)
	assert.Equal(t, 9, stats.Unloaded)
	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, 2, stats.Resident)
}

func TestStepOrdersUploadDispatchClear(t *testing.T) {
	w, err := NewWorld(testConfig(t), nil, nil)
	require.NoError(t, err)
	defer w.Close()

	require.True(t, w.Enqueue(intent.NewIgnite(5, 5)))
	require.Equal(t, 2, w.EnqueueAll([]intent.Intent{
		intent.NewDestroy(1, 1),
		intent.NewSetMaterial(2, 2, cell.MaterialSand, cell.FlagSolid),
	}))

	sawDuringDispatch := -1
	stats, err := w.Step(core.NewWorldCoord(0, 0), func(b *intent.Buffer) error {
		sawDuringDispatch = b.Len()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.IntentsUploaded)
	assert.Equal(t, 3, sawDuringDispatch, "dispatch runs before the queue clears")
	assert.True(t, w.Intents().IsEmpty(), "queue clears after dispatch")
}

func TestDispatchErrorKeepsQueue(t *testing.T) {
	w, err := NewWorld(testConfig(t), nil, nil)
	require.NoError(t, err)
	defer w.Close()

	w.Enqueue(intent.NewIgnite(5, 5))
	_, err = w.Step(core.NewWorldCoord(0, 0), func(*intent.Buffer) error {
		return assert.AnError
	})
	require.Error(t, err)
	// A failed dispatch has not consumed the intents; they retry next
	// frame rather than vanishing.
	assert.Equal(t, 1, w.Intents().Len())
}

func TestWorldMetaPersistsAcrossReopen(t *testing.T) {
	cfg := testConfig(t)
	cfg.SaveDir = t.TempDir()
	cfg.Seed = 7

	w, err := NewWorld(cfg, nil, nil)
	require.NoError(t, err)
	id := w.Meta().ID
	require.NotEmpty(t, id)
	require.NoError(t, w.Close())

	reopened, err := NewWorld(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, id, reopened.Meta().ID, "reopen keeps the world identity")
	require.NoError(t, reopened.Close())

	cfg.Seed = 8
	_, err = NewWorld(cfg, nil, nil)
	assert.Error(t, err, "reopening with a different seed must fail")
}

func TestGeneratedTerrainPersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.SaveDir = t.TempDir()

	w, err := NewWorld(cfg, nil, nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := w.Step(core.NewWorldCoord(0, 0), nil)
		require.NoError(t, err)
	}
	origin := w.Manager().Get(core.NewChunkID(0, 0, 0))
	require.NotNil(t, origin)
	before := origin.Snapshot()
	require.NoError(t, w.Close())

	reopened, err := NewWorld(cfg, nil, nil)
	require.NoError(t, err)
	defer reopened.Close()
	c, err := reopened.Manager().Load(core.NewChunkID(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, before, c.Snapshot(), "persisted chunk matches the generated one")
}

func TestRegionStoreWorld(t *testing.T) {
	cfg := testConfig(t)
	cfg.SaveDir = t.TempDir()
	cfg.Store = StoreRegion

	w, err := NewWorld(cfg, nil, nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := w.Step(core.NewWorldCoord(0, 0), nil)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	matches, err := filepath.Glob(filepath.Join(cfg.SaveDir, "chunks", "*", "*.dfr"))
	require.NoError(t, err)
	assert.NotEmpty(t, matches, "region files written on close")
}

func TestWorldQueries(t *testing.T) {
	w, err := NewWorld(testConfig(t), nil, nil)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 10; i++ {
		_, err := w.Step(core.NewWorldCoord(0, 0), nil)
		require.NoError(t, err)
	}

	assert.Nil(t, w.QueryAt(core.NewChunkID(90, 90, 0)), "unloaded chunk has no query")
	q := w.QueryAt(core.NewChunkID(0, 0, 0))
	require.NotNil(t, q)

	// Plant a known solid and find it through the world view.
	w.Manager().Get(core.NewChunkID(0, 0, 0)).Set(3, 3, cell.New(cell.MaterialStone).WithFlag(cell.FlagSolid))
	assert.True(t, w.Query().IsSolid(core.NewWorldCoord(3, 3)))
}

func TestMaterialTableIncludesGeneratorMaterials(t *testing.T) {
	w, err := NewWorld(testConfig(t), nil, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, "stone", w.Materials().Name(cell.MaterialStone))
	assert.Equal(t, "dirt", w.Materials().Name(worldgen.MaterialDirt))
}
