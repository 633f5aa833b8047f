package lattice

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/annel0/skygrid/internal/catalog"
	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/logging"
	"github.com/annel0/skygrid/internal/postgen"
	"github.com/annel0/skygrid/internal/vec"
)

// Deps — внешние зависимости генератора
type Deps struct {
	World   host.WorldAccessor
	Blocks  host.BlockCatalog
	Catalog *catalog.RealmCatalog
	Queue   postgen.Queue
	Metrics *Metrics
	Logger  *logging.Logger
}

// Generator заполняет колонки чанков решёткой блоков из каталога мира.
//
// Генератор не потокобезопасен: хост вызывает его последовательно. В режиме
// по умолчанию все чанки мира тянут числа из одного потока, поэтому результат
// зависит от порядка запросов; PerChunkSeed делает каждый чанк независимым.
type Generator struct {
	realm    catalog.Realm
	settings Settings
	world    host.WorldAccessor
	blocks   host.BlockCatalog
	catalog  *catalog.RealmCatalog
	queue    postgen.Queue
	floor    host.BlockID
	rng      *rand.Rand
	metrics  *Metrics
	log      *logging.Logger
}

// fillStats — счётчики одного прохода заполнения
type fillStats struct {
	placed    int
	overlays  int
	fallbacks int
	deferred  int
	spacing   [3]int
}

// NewGenerator создаёт генератор мира
func NewGenerator(realm catalog.Realm, settings Settings, deps Deps) *Generator {
	settings = settings.normalized()

	cat := deps.Catalog
	if cat == nil {
		cat = catalog.NewRealmCatalog(realm, nil)
	}
	queue := deps.Queue
	if queue == nil {
		queue = postgen.NewMemoryQueue(nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.GetLatticeLogger()
	}

	return &Generator{
		realm:    realm,
		settings: settings,
		world:    deps.World,
		blocks:   deps.Blocks,
		catalog:  cat,
		queue:    queue,
		floor:    host.FloorBlock(deps.Blocks),
		rng:      rand.New(rand.NewSource(settings.Seed)),
		metrics:  deps.Metrics,
		log:      logger,
	}
}

// Realm возвращает мир генератора
func (g *Generator) Realm() catalog.Realm { return g.realm }

// Settings возвращает нормализованные параметры
func (g *Generator) Settings() Settings { return g.settings }

// Catalog возвращает текущий каталог
func (g *Generator) Catalog() *catalog.RealmCatalog { return g.catalog }

// SetCatalog подменяет каталог (после перезагрузки или редактирования)
func (g *Generator) SetCatalog(c *catalog.RealmCatalog) {
	if c == nil {
		c = catalog.NewRealmCatalog(g.realm, nil)
	}
	g.catalog = c
}

// FloorBlock возвращает блок-заглушку
func (g *Generator) FloorBlock() host.BlockID { return g.floor }

// stream возвращает поток случайных чисел для запроса
func (g *Generator) stream(chunkX, chunkZ int) *rand.Rand {
	if g.settings.PerChunkSeed {
		return rand.New(rand.NewSource(chunkSeed(g.settings.Seed, chunkX, chunkZ)))
	}
	return g.rng
}

// GenerateColumn строит колонку чанка (chunkX, chunkZ). Без биомов хоста
// генерация невозможна: возвращается ошибка, оборачивающая host.ErrBiomesUnavailable.
func (g *Generator) GenerateColumn(chunkX, chunkZ int) (*Column, error) {
	start := time.Now()
	coords := vec.Vec2{X: chunkX, Z: chunkZ}

	biomes, err := g.sampleBiomes(coords)
	if err != nil {
		g.metrics.failure(g.realm.Name)
		g.log.Error("Колонка %s(%s): %v", g.realm, coords, err)
		return nil, err
	}

	col := NewColumn(coords, g.settings.Ceiling)
	st := g.fill(col, coords, biomes, g.stream(chunkX, chunkZ))

	// Стартовый чанк всегда получает опорный блок на максимальной высоте
	if coords.IsOrigin() {
		col.SetBlock(0, g.settings.Height, 0, g.floor)
	}

	col.setBiomes(biomes)
	if g.world != nil {
		g.world.FinalizeLighting(col)
	}

	took := time.Since(start)
	g.metrics.observe(g.realm.Name, st, took)
	logging.LogColumnGenerated(g.log, g.realm.Name, chunkX, chunkZ, st.placed, took)
	return col, nil
}

func (g *Generator) sampleBiomes(coords vec.Vec2) ([]host.Biome, error) {
	if g.world == nil {
		return nil, fmt.Errorf("chunk %s: %w: no world accessor", coords, host.ErrBiomesUnavailable)
	}
	origin := coords.BlockOrigin()
	biomes, err := g.world.Biomes(origin.X, origin.Z, ColumnWidth, ColumnDepth)
	if err != nil {
		if errors.Is(err, host.ErrBiomesUnavailable) {
			return nil, fmt.Errorf("chunk %s: %w", coords, err)
		}
		return nil, fmt.Errorf("chunk %s: %w: %v", coords, host.ErrBiomesUnavailable, err)
	}
	if len(biomes) < biomeCount {
		return nil, fmt.Errorf("chunk %s: %w: got %d biomes", coords, host.ErrBiomesUnavailable, len(biomes))
	}
	return biomes, nil
}

// spacing возвращает шаг решётки по осям x, y, z
func (g *Generator) spacing(rnd catalog.RandomSource) (int, int, int) {
	d := g.settings.Dist
	if !g.settings.RandomSpacing {
		return d, d, d
	}
	sx := atLeastOne(rnd.Intn(d + 1))
	sy := atLeastOne(rnd.Intn(d + 1))
	sz := atLeastOne(rnd.Intn(d + 1))
	return sx, sy, sz
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// fill проходит уровни высоты с шагом spaceY. На посещённом уровне каждая
// позиция либо получает блок решётки, либо очищается; промежуточные уровни
// не трогаются вовсе.
func (g *Generator) fill(vol host.ChunkVolumeBuilder, coords vec.Vec2, biomes []host.Biome, rnd catalog.RandomSource) fillStats {
	var st fillStats
	spaceX, spaceY, spaceZ := g.spacing(rnd)
	st.spacing = [3]int{spaceX, spaceY, spaceZ}

	origin := coords.BlockOrigin()
	ceiling := g.settings.Ceiling
	pools := make(map[host.Biome]catalog.Pool)

	for y := 0; y < ceiling && y < g.settings.Height; y += spaceY {
		for x := 0; x < ColumnWidth; x++ {
			for z := 0; z < ColumnDepth; z++ {
				globalX, globalZ := origin.X+x, origin.Z+z
				if globalX%spaceX != 0 || globalZ%spaceZ != 0 {
					vol.SetBlock(x, y, z, host.AirBlockID)
					continue
				}

				biome := biomes[z*ColumnWidth+x]
				pool, ok := pools[biome]
				if !ok {
					pool = g.catalog.PoolFor(biome)
					pools[biome] = pool
				}

				id := g.floor
				var overlays []host.BlockID
				if entry, picked := pool.Pick(rnd); picked {
					id = entry.Block
					overlays = entry.Overlays
				} else {
					st.fallbacks++
				}

				vol.SetBlock(x, y, z, id)
				st.placed++

				if len(overlays) > 0 && y+1 < ceiling {
					vol.SetBlock(x, y+1, z, overlays[rnd.Intn(len(overlays))])
					st.overlays++
				}

				if host.IsTileEntity(g.blocks, id) {
					g.queue.Enqueue(g.realm.ID, coords.X, coords.Z, vec.Vec3{X: globalX, Y: y, Z: globalZ})
					st.deferred++
				}
			}
		}
	}
	return st
}

// Populate запускает декорации биома хоста, если они включены
func (g *Generator) Populate(chunkX, chunkZ int) error {
	if !g.settings.Populate || g.world == nil {
		return nil
	}

	origin := vec.Vec2{X: chunkX, Z: chunkZ}.BlockOrigin()
	biome, err := g.world.BiomeAt(vec.Vec3{X: origin.X + 16, Y: 0, Z: origin.Z + 16})
	if err != nil {
		return fmt.Errorf("populate %d,%d: %w", chunkX, chunkZ, err)
	}

	rnd := g.rng
	if g.settings.PerChunkSeed {
		rnd = rand.New(rand.NewSource(chunkSeed(^g.settings.Seed, chunkX, chunkZ)))
	}
	g.world.Decorate(biome, rnd, vec.Vec3{X: origin.X, Y: 0, Z: origin.Z})
	return nil
}

// SpawnableCreatures возвращает таблицу спавна биома в позиции
func (g *Generator) SpawnableCreatures(creature host.CreatureType, pos vec.Vec3) ([]host.SpawnEntry, error) {
	if g.world == nil {
		return nil, host.ErrBiomesUnavailable
	}
	biome, err := g.world.BiomeAt(pos)
	if err != nil {
		return nil, fmt.Errorf("spawn list at %s: %w", pos, err)
	}
	return g.world.SpawnList(biome, creature), nil
}

// GenerateStructures — структур в мире решётки нет
func (g *Generator) GenerateStructures(chunkX, chunkZ int) bool {
	return false
}

// RecreateStructures — структур в мире решётки нет
func (g *Generator) RecreateStructures(chunkX, chunkZ int) {}

// StrongholdLocation — крепостей нет
func (g *Generator) StrongholdLocation(name string, pos vec.Vec3) (vec.Vec3, bool) {
	return vec.Vec3{}, false
}
