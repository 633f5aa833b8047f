package lattice

import (
	"context"
	"sort"
	"testing"

	"github.com/annel0/skygrid/internal/catalog"
	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/postgen"
	"github.com/annel0/skygrid/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, s Settings, entries []catalog.Entry, world *fakeWorld, queue postgen.Queue) *Generator {
	t.Helper()
	return NewGenerator(catalog.Overworld, s, Deps{
		World:   world,
		Blocks:  testBlocks,
		Catalog: catalog.NewRealmCatalog(catalog.Overworld, entries),
		Queue:   queue,
	})
}

func plainEntries() []catalog.Entry {
	return []catalog.Entry{catalog.NewEntry("minecraft:stone"), catalog.NewEntry("minecraft:dirt")}
}

func TestColumnHasFixedDimensions(t *testing.T) {
	g := newTestGenerator(t, Settings{Dist: 3, RandomSpacing: true, Height: 100, Seed: 5}, plainEntries(), newFakeWorld(), nil)

	for _, c := range []vec.Vec2{{X: 0, Z: 0}, {X: -7, Z: 3}, {X: 12, Z: -40}} {
		col, err := g.GenerateColumn(c.X, c.Z)
		require.NoError(t, err)
		assert.Equal(t, DefaultCeiling, col.Height())
		assert.Equal(t, c, col.ChunkCoords())
		assert.Equal(t, host.AirBlockID, col.Block(16, 0, 0))
		assert.Equal(t, host.AirBlockID, col.Block(0, DefaultCeiling, 0))
	}
}

func TestFixedSpacingLatticePattern(t *testing.T) {
	// dist=4, height=64: уровни 0,4,…,60; блоки только там, где x и z кратны 4
	g := newTestGenerator(t, Settings{Dist: 4, Height: 64}, plainEntries(), newFakeWorld(), nil)

	for _, c := range []vec.Vec2{{X: 1, Z: -2}, {X: -3, Z: 5}} {
		col, err := g.GenerateColumn(c.X, c.Z)
		require.NoError(t, err)

		origin := c.BlockOrigin()
		for y := 0; y < 64; y++ {
			for x := 0; x < 16; x++ {
				for z := 0; z < 16; z++ {
					want := y%4 == 0 && (origin.X+x)%4 == 0 && (origin.Z+z)%4 == 0
					got := col.Block(x, y, z) != host.AirBlockID
					require.Equal(t, want, got, "chunk %s pos %d,%d,%d", c, x, y, z)
				}
			}
		}
		for y := 64; y < col.Height(); y++ {
			assert.False(t, col.LevelPopulated(y), "уровень %d выше высоты генерации", y)
		}
	}
}

func TestSkippedLevelsAreNeverWritten(t *testing.T) {
	g := newTestGenerator(t, Settings{Dist: 4, Height: 64}, plainEntries(), newFakeWorld(), nil)
	world := newFakeWorld()
	biomes, err := world.Biomes(0, 0, 16, 16)
	require.NoError(t, err)

	vol := newRecordingVolume()
	g.fill(vol, vec.Vec2{X: 2, Z: 2}, biomes, g.rng)

	var levels []int
	for y, n := range vol.writes {
		levels = append(levels, y)
		assert.Equal(t, 256, n, "каждая позиция посещённого уровня записывается ровно один раз")
	}
	sort.Ints(levels)

	var want []int
	for y := 0; y < 64; y += 4 {
		want = append(want, y)
	}
	assert.Equal(t, want, levels)
}

func TestOverlaysOnlyAboveLatticeBlocksWithOverlays(t *testing.T) {
	entries := []catalog.Entry{
		{Block: "minecraft:grass", Overlays: []host.BlockID{"minecraft:sapling", "minecraft:red_flower"}},
		catalog.NewEntry("minecraft:stone"),
	}
	g := newTestGenerator(t, Settings{Dist: 4, Height: 64, Seed: 11}, entries, newFakeWorld(), nil)

	col, err := g.GenerateColumn(3, 3)
	require.NoError(t, err)

	isOverlay := func(id host.BlockID) bool {
		return id == "minecraft:sapling" || id == "minecraft:red_flower"
	}

	grass, stone := 0, 0
	for y := 0; y < col.Height(); y++ {
		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				id := col.Block(x, y, z)
				switch {
				case isOverlay(id):
					require.Greater(t, y, 0)
					assert.Equal(t, host.BlockID("minecraft:grass"), col.Block(x, y-1, z))
				case id == "minecraft:grass":
					grass++
					assert.True(t, isOverlay(col.Block(x, y+1, z)), "над травой должно быть растение")
				case id == "minecraft:stone":
					stone++
					assert.Equal(t, host.AirBlockID, col.Block(x, y+1, z))
				}
			}
		}
	}
	assert.Greater(t, grass, 0)
	assert.Greater(t, stone, 0)
}

func TestOriginChunkAnchor(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		for _, s := range []Settings{
			{Dist: 1, Height: 20, Seed: seed},
			{Dist: 7, RandomSpacing: true, Height: 64, Seed: seed},
			{Dist: 16, Height: 255, Seed: seed},
		} {
			g := newTestGenerator(t, s, plainEntries(), newFakeWorld(), nil)
			col, err := g.GenerateColumn(0, 0)
			require.NoError(t, err)
			assert.Equal(t, host.BlockID("minecraft:bedrock"), col.Block(0, g.Settings().Height, 0))
		}
	}

	g := newTestGenerator(t, Settings{Dist: 4, Height: 64}, plainEntries(), newFakeWorld(), nil)
	col, err := g.GenerateColumn(1, 0)
	require.NoError(t, err)
	assert.Equal(t, host.AirBlockID, col.Block(0, 64, 0))
}

func TestEmptyCatalogResolvesToFloor(t *testing.T) {
	g := newTestGenerator(t, Settings{Dist: 2, Height: 32}, nil, newFakeWorld(), nil)
	col, err := g.GenerateColumn(-1, 4)
	require.NoError(t, err)

	origin := col.ChunkCoords().BlockOrigin()
	for y := 0; y < 32; y += 2 {
		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				if (origin.X+x)%2 == 0 && (origin.Z+z)%2 == 0 {
					require.Equal(t, host.BlockID("minecraft:bedrock"), col.Block(x, y, z))
				}
			}
		}
	}
}

func TestNoEligibleEntryResolvesToFloor(t *testing.T) {
	world := newFakeWorld()
	world.biomeFn = func(x, z int) host.Biome {
		if x < 8 {
			return desert
		}
		return plains
	}
	entries := []catalog.Entry{{Block: "minecraft:stone", Biomes: []string{"desert"}}}
	g := newTestGenerator(t, Settings{Dist: 1, Height: 4}, entries, world, nil)

	col, err := g.GenerateColumn(0, 1)
	require.NoError(t, err)
	assert.Equal(t, host.BlockID("minecraft:stone"), col.Block(3, 2, 5))
	assert.Equal(t, host.BlockID("minecraft:bedrock"), col.Block(12, 2, 5))
	assert.Equal(t, desert.ID, col.Biome(3, 5))
	assert.Equal(t, plains.ID, col.Biome(12, 5))
}

func TestTileEntityBlocksAreQueued(t *testing.T) {
	queue := postgen.NewMemoryQueue(nil)
	entries := []catalog.Entry{catalog.NewEntry("minecraft:chest")}
	g := newTestGenerator(t, Settings{Dist: 8, Height: 16}, entries, newFakeWorld(), queue)

	_, err := g.GenerateColumn(2, -3)
	require.NoError(t, err)

	// Уровни 0 и 8, по 2×2 позиции решётки на каждом
	reqs := queue.Snapshot(catalog.Overworld.ID)
	require.Len(t, reqs, 8)
	for _, r := range reqs {
		assert.Equal(t, 2, r.ChunkX)
		assert.Equal(t, -3, r.ChunkZ)
		assert.Equal(t, 0, r.Pos.X%8)
		assert.Equal(t, 0, r.Pos.Z%8)
		assert.Equal(t, vec.Vec2{X: 2, Z: -3}, r.Pos.ChunkCoords())
		assert.Contains(t, []int{0, 8}, r.Pos.Y)
	}

	var drained int
	n, err := queue.Drain(context.Background(), catalog.Overworld.ID, 0, func(ctx context.Context, req postgen.Request) error {
		drained++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 8, drained)
}

func TestNonTileEntityBlocksAreNotQueued(t *testing.T) {
	queue := postgen.NewMemoryQueue(nil)
	g := newTestGenerator(t, Settings{Dist: 2, Height: 16}, plainEntries(), newFakeWorld(), queue)
	_, err := g.GenerateColumn(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Pending(catalog.Overworld.ID))
}

func TestMissingBiomesAbortGeneration(t *testing.T) {
	world := newFakeWorld()
	world.err = errHostDown
	g := newTestGenerator(t, Settings{Dist: 4, Height: 64}, plainEntries(), world, nil)

	col, err := g.GenerateColumn(1, 1)
	assert.Nil(t, col)
	assert.ErrorIs(t, err, host.ErrBiomesUnavailable)
	assert.Contains(t, err.Error(), errHostDown.Error())

	world.err = nil
	world.short = true
	col, err = g.GenerateColumn(1, 1)
	assert.Nil(t, col)
	assert.ErrorIs(t, err, host.ErrBiomesUnavailable)
	assert.Equal(t, 0, world.lit)

	g = NewGenerator(catalog.Nether, Settings{Dist: 4}, Deps{})
	_, err = g.GenerateColumn(0, 0)
	assert.ErrorIs(t, err, host.ErrBiomesUnavailable)
}

func TestRandomSpacingUsesThreeDrawsClampedToOne(t *testing.T) {
	g := newTestGenerator(t, Settings{Dist: 5, RandomSpacing: true, Height: 64}, nil, newFakeWorld(), nil)

	sx, sy, sz := g.spacing(&scriptedRand{values: []int{0, 3, 5}})
	assert.Equal(t, []int{1, 3, 5}, []int{sx, sy, sz})

	g = newTestGenerator(t, Settings{Dist: 5, Height: 64}, nil, newFakeWorld(), nil)
	sx, sy, sz = g.spacing(&scriptedRand{})
	assert.Equal(t, []int{5, 5, 5}, []int{sx, sy, sz})
}

func TestSharedStreamIsReproducibleInSameOrder(t *testing.T) {
	s := Settings{Dist: 6, RandomSpacing: true, Height: 80, Seed: 42}
	a := newTestGenerator(t, s, plainEntries(), newFakeWorld(), nil)
	b := newTestGenerator(t, s, plainEntries(), newFakeWorld(), nil)

	for _, c := range []vec.Vec2{{X: 0, Z: 0}, {X: 1, Z: 0}, {X: -4, Z: 9}} {
		ca, err := a.GenerateColumn(c.X, c.Z)
		require.NoError(t, err)
		cb, err := b.GenerateColumn(c.X, c.Z)
		require.NoError(t, err)
		assertSameColumn(t, ca, cb)
	}
}

func TestPerChunkSeedIsOrderIndependent(t *testing.T) {
	s := Settings{Dist: 6, RandomSpacing: true, Height: 80, Seed: 42, PerChunkSeed: true}
	a := newTestGenerator(t, s, plainEntries(), newFakeWorld(), nil)
	b := newTestGenerator(t, s, plainEntries(), newFakeWorld(), nil)

	for i := 0; i < 5; i++ {
		_, err := b.GenerateColumn(i, -i)
		require.NoError(t, err)
	}

	ca, err := a.GenerateColumn(7, 7)
	require.NoError(t, err)
	cb, err := b.GenerateColumn(7, 7)
	require.NoError(t, err)
	assertSameColumn(t, ca, cb)
}

func assertSameColumn(t *testing.T, a, b *Column) {
	t.Helper()
	require.Equal(t, a.Height(), b.Height())
	for y := 0; y < a.Height(); y++ {
		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				if a.Block(x, y, z) != b.Block(x, y, z) {
					t.Fatalf("колонки различаются в %d,%d,%d: %q vs %q", x, y, z, a.Block(x, y, z), b.Block(x, y, z))
				}
			}
		}
	}
}

func TestColumnFinalizeAssignsBiomesAndLighting(t *testing.T) {
	world := newFakeWorld()
	world.biomeFn = func(x, z int) host.Biome {
		if z%2 == 0 {
			return desert
		}
		return plains
	}
	g := newTestGenerator(t, Settings{Dist: 4, Height: 16}, plainEntries(), world, nil)

	col, err := g.GenerateColumn(5, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, world.lit)

	biomes := col.Biomes()
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			want := plains.ID
			if (80+z)%2 == 0 {
				want = desert.ID
			}
			assert.Equal(t, want, biomes[z*16+x])
		}
	}
}

func TestPopulateRespectsFlag(t *testing.T) {
	world := newFakeWorld()
	g := newTestGenerator(t, Settings{Dist: 4, Height: 16}, nil, world, nil)
	require.NoError(t, g.Populate(2, 3))
	assert.Empty(t, world.decorated)

	g = newTestGenerator(t, Settings{Dist: 4, Height: 16, Populate: true}, nil, world, nil)
	require.NoError(t, g.Populate(2, 3))
	require.Len(t, world.decorated, 1)
	assert.Equal(t, vec.Vec3{X: 32, Y: 0, Z: 48}, world.decorated[0].origin)
	assert.Equal(t, plains, world.decorated[0].biome)

	world.err = errHostDown
	assert.Error(t, g.Populate(0, 0))
}

func TestHostDelegatingEntrypoints(t *testing.T) {
	world := newFakeWorld()
	world.biomeFn = func(x, z int) host.Biome { return desert }
	g := newTestGenerator(t, Settings{Dist: 4, Height: 16}, nil, world, nil)

	spawns, err := g.SpawnableCreatures(host.CreatureMonster, vec.Vec3{X: 5, Y: 64, Z: 5})
	require.NoError(t, err)
	require.Len(t, spawns, 1)
	assert.Equal(t, "zombie@desert", spawns[0].Entity)

	spawns, err = g.SpawnableCreatures(host.CreatureAmbient, vec.Vec3{})
	require.NoError(t, err)
	assert.Empty(t, spawns)

	assert.False(t, g.GenerateStructures(0, 0))
	_, found := g.StrongholdLocation("Stronghold", vec.Vec3{X: 100})
	assert.False(t, found)
	assert.NotPanics(t, func() { g.RecreateStructures(1, 1) })
}

func TestSetCatalogSwapsEntries(t *testing.T) {
	g := newTestGenerator(t, Settings{Dist: 16, Height: 1}, nil, newFakeWorld(), nil)
	col, err := g.GenerateColumn(1, 1)
	require.NoError(t, err)
	assert.Equal(t, host.BlockID("minecraft:bedrock"), col.Block(0, 0, 0))

	g.SetCatalog(catalog.NewRealmCatalog(catalog.Overworld, []catalog.Entry{catalog.NewEntry("minecraft:dirt")}))
	col, err = g.GenerateColumn(1, 1)
	require.NoError(t, err)
	assert.Equal(t, host.BlockID("minecraft:dirt"), col.Block(0, 0, 0))

	g.SetCatalog(nil)
	assert.NotNil(t, g.Catalog())
}

func TestGeneratorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	world := newFakeWorld()
	g := NewGenerator(catalog.Overworld, Settings{Dist: 8, Height: 16}, Deps{
		World:   world,
		Blocks:  testBlocks,
		Catalog: catalog.NewRealmCatalog(catalog.Overworld, nil),
		Metrics: m,
	})

	_, err := g.GenerateColumn(1, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.columns.WithLabelValues("overworld")))
	assert.Equal(t, float64(8), testutil.ToFloat64(m.placed.WithLabelValues("overworld")))
	assert.Equal(t, float64(8), testutil.ToFloat64(m.fallbacks.WithLabelValues("overworld")))

	world.err = errHostDown
	_, err = g.GenerateColumn(1, 1)
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues("overworld")))
}

func TestChunkSeedDiffersByCoordinate(t *testing.T) {
	seen := map[int64]vec.Vec2{}
	for x := -64; x <= 64; x++ {
		for z := -64; z <= 64; z++ {
			s := chunkSeed(1234, x, z)
			if prev, dup := seen[s]; dup {
				t.Fatalf("совпадение сидов %s и %d,%d", prev, x, z)
			}
			seen[s] = vec.Vec2{X: x, Z: z}
		}
	}
}

func TestPerChunkSeedMirroredChunksDiffer(t *testing.T) {
	s := Settings{Dist: 1, Height: 64, Seed: 0, PerChunkSeed: true}
	g := newTestGenerator(t, s, plainEntries(), newFakeWorld(), nil)

	a, err := g.GenerateColumn(-1, 19)
	require.NoError(t, err)
	b, err := g.GenerateColumn(1, -19)
	require.NoError(t, err)

	same := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				if a.Block(x, y, z) == b.Block(x, y, z) {
					same++
				}
			}
		}
	}
	assert.Less(t, same, 64*16*16, "зеркальные чанки не должны совпадать")
}
