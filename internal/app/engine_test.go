package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/skygrid/internal/catalog"
	"github.com/annel0/skygrid/internal/config"
	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/postgen"
	"github.com/annel0/skygrid/internal/vec"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Catalog.Dir = t.TempDir()
	cfg.Grid.Dist = 4
	cfg.Grid.Height = 32
	cfg.Grid.Seed = 7
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := New(Options{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngineSynthesizesCatalogsOnFirstRun(t *testing.T) {
	cfg := testConfig(t)
	e := newTestEngine(t, cfg)

	assert.Equal(t, []catalog.Realm{catalog.Overworld, catalog.Nether}, e.Realms())
	for _, r := range e.Realms() {
		_, err := os.Stat(filepath.Join(cfg.Catalog.Dir, "skygrid_"+r.Name+".json"))
		assert.NoError(t, err, "каталог %s должен быть сохранён", r)

		c, err := e.Catalog(r)
		require.NoError(t, err)
		assert.False(t, c.IsEmpty())
	}
}

func TestEngineColumnAndUnknownRealm(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	col, err := e.Column(catalog.Overworld, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCeiling, col.Height())
	assert.NotEqual(t, host.AirBlockID, col.Block(0, 32, 0))
	assert.True(t, col.LevelPopulated(0))
	assert.False(t, col.LevelPopulated(2))

	_, err = e.Column(catalog.End, 0, 0)
	assert.ErrorIs(t, err, catalog.ErrUnknownRealm)

	n, err := testutil.GatherAndCount(e.Registry(), "skygrid_lattice_columns_generated_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEngineReplaceAndReloadCatalog(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	dropped, err := e.ReplaceCatalog(catalog.Overworld, []catalog.Entry{
		catalog.NewEntry("minecraft:stone"),
		catalog.NewEntry("minecraft:unobtainium"),
		{Block: "minecraft:grass", Overlays: []host.BlockID{"minecraft:sapling", "minecraft:nope"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)

	col, err := e.Column(catalog.Overworld, 1, 1)
	require.NoError(t, err)
	for id := range col.Histogram() {
		assert.Contains(t, []host.BlockID{"minecraft:stone", "minecraft:grass", "minecraft:sapling"}, id)
	}

	c, err := e.ReloadCatalog(catalog.Overworld)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, host.BlockID("minecraft:stone"), c.Entries[0].Block)
	assert.Equal(t, []host.BlockID{"minecraft:sapling"}, c.Entries[1].Overlays)
}

func TestEngineTileEntitiesReachQueue(t *testing.T) {
	e := newTestEngine(t, testConfig(t))

	_, err := e.ReplaceCatalog(catalog.Nether, []catalog.Entry{catalog.NewEntry("minecraft:chest")})
	require.NoError(t, err)
	_, err = e.Column(catalog.Nether, 3, 3)
	require.NoError(t, err)

	// 8 уровней по 16 позиций решётки
	assert.Equal(t, 128, e.Pending()["nether"])

	var got []postgen.Request
	n, err := e.Drain(context.Background(), catalog.Nether, 10, func(ctx context.Context, r postgen.Request) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, catalog.Nether.ID, got[0].Realm)
	assert.Equal(t, 118, e.Pending()["nether"])

	w, err := e.NewFinalizer(func(ctx context.Context, r postgen.Request) error { return nil }, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 118, w.RunOnce(context.Background()))
}

func TestEngineWithBadgerQueue(t *testing.T) {
	cfg := testConfig(t)
	cfg.Queue.Backend = "badger"
	cfg.Queue.BadgerPath = filepath.Join(t.TempDir(), "queue")
	e := newTestEngine(t, cfg)

	_, err := e.ReplaceCatalog(catalog.Overworld, []catalog.Entry{catalog.NewEntry("minecraft:furnace")})
	require.NoError(t, err)
	_, err = e.Column(catalog.Overworld, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 128, e.Pending()["overworld"])
}

func TestEngineSpawnAndUnsupportedDrain(t *testing.T) {
	cfg := testConfig(t)
	e, err := New(Options{Config: cfg, Queue: noopQueue{}})
	require.NoError(t, err)

	spawns, err := e.SpawnableCreatures(catalog.Nether, host.CreatureMonster, 0, 64, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, spawns)

	_, err = e.Drain(context.Background(), catalog.Overworld, 0, nil)
	assert.ErrorIs(t, err, ErrDrainUnsupported)
	_, err = e.NewFinalizer(nil, 0, 0)
	assert.ErrorIs(t, err, ErrDrainUnsupported)
	assert.Empty(t, e.Pending())
}

func TestEngineRejectsUnknownRealmInConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Realms = []string{"overworld", "aether"}
	_, err := New(Options{Config: cfg})
	assert.ErrorIs(t, err, catalog.ErrUnknownRealm)
}

type noopQueue struct{}

func (noopQueue) Enqueue(realm, chunkX, chunkZ int, pos vec.Vec3) {}
