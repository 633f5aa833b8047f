package vanilla

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/vec"
)

// DefaultBiomeScale — масштаб шума биомов
const DefaultBiomeScale = 0.01

// MaxDecorations — сколько последних вызовов декорирования хранит журнал
const MaxDecorations = 1024

// Decoration — зафиксированный вызов декорирования
type Decoration struct {
	Biome  host.Biome
	Origin vec.Vec3
	Roll   int64 // Первое число из потока, переданного хостом
}

// World реализует host.WorldAccessor для одного измерения
type World struct {
	dimension int
	noise     *biomeNoise
	lit       atomic.Int64
	decorated atomic.Int64

	mu          sync.Mutex
	decorations []Decoration // последние MaxDecorations вызовов
}

// NewWorld создаёт мир-хост измерения dimension
func NewWorld(seed int64, dimension int) *World {
	return &World{
		dimension: dimension,
		noise:     newBiomeNoise(seed, DefaultBiomeScale),
	}
}

// Dimension возвращает ID измерения
func (w *World) Dimension() int { return w.dimension }

func (w *World) biomeAt(x, z int) host.Biome {
	switch w.dimension {
	case DimensionNether:
		return Hell
	case DimensionEnd:
		return Sky
	}
	return w.noise.at(x, z)
}

// Biomes возвращает width*depth биомов, индекс z*width+x
func (w *World) Biomes(x, z, width, depth int) ([]host.Biome, error) {
	if width <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: bad area %dx%d", host.ErrBiomesUnavailable, width, depth)
	}
	out := make([]host.Biome, width*depth)
	for dz := 0; dz < depth; dz++ {
		for dx := 0; dx < width; dx++ {
			out[dz*width+dx] = w.biomeAt(x+dx, z+dz)
		}
	}
	return out, nil
}

// BiomeAt возвращает биом в абсолютной позиции
func (w *World) BiomeAt(pos vec.Vec3) (host.Biome, error) {
	return w.biomeAt(pos.X, pos.Z), nil
}

// FinalizeLighting — освещения у автономного хоста нет, считаем колонки
func (w *World) FinalizeLighting(col host.ChunkVolume) {
	w.lit.Add(1)
}

// LitColumns возвращает число колонок, прошедших финализацию
func (w *World) LitColumns() int64 {
	return w.lit.Load()
}

// Decorate записывает вызов декорирования
func (w *World) Decorate(biome host.Biome, rng *rand.Rand, origin vec.Vec3) {
	d := Decoration{Biome: biome, Origin: origin}
	if rng != nil {
		d.Roll = rng.Int63()
	}
	w.decorated.Add(1)
	w.mu.Lock()
	if len(w.decorations) >= MaxDecorations {
		n := copy(w.decorations, w.decorations[len(w.decorations)-MaxDecorations+1:])
		w.decorations = w.decorations[:n]
	}
	w.decorations = append(w.decorations, d)
	w.mu.Unlock()
}

// Decorated возвращает общее число вызовов декорирования
func (w *World) Decorated() int64 {
	return w.decorated.Load()
}

// Decorations возвращает копию журнала последних декораций
func (w *World) Decorations() []Decoration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Decoration(nil), w.decorations...)
}

// SpawnList возвращает таблицу спавна биома
func (w *World) SpawnList(biome host.Biome, creature host.CreatureType) []host.SpawnEntry {
	return spawnList(biome, creature)
}
