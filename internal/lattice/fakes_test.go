package lattice

import (
	"errors"
	"math/rand"

	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/vec"
)

var (
	plains = host.Biome{ID: 1, Name: "plains"}
	desert = host.Biome{ID: 2, Name: "desert"}
)

type staticBlocks []host.BlockInfo

func (s staticBlocks) Blocks() []host.BlockInfo { return s }

func (s staticBlocks) Lookup(id host.BlockID) (host.BlockInfo, bool) {
	for _, b := range s {
		if b.ID == id {
			return b, true
		}
	}
	return host.BlockInfo{}, false
}

var testBlocks = staticBlocks{
	{ID: "minecraft:stone", FullCube: true},
	{ID: "minecraft:dirt", FullCube: true},
	{ID: "minecraft:grass", FullCube: true, Role: host.RoleGrass},
	{ID: "minecraft:sapling", Plant: host.PlantPlantable},
	{ID: "minecraft:red_flower", Plant: host.PlantPlantable},
	{ID: "minecraft:chest", TileEntity: true, Role: host.RoleChest},
	{ID: "minecraft:bedrock", FullCube: true, Role: host.RoleFloor},
}

type decorateCall struct {
	biome  host.Biome
	origin vec.Vec3
}

// fakeWorld отдаёт биомы по функции от глобальных координат
type fakeWorld struct {
	biomeFn   func(x, z int) host.Biome
	err       error
	short     bool
	lit       int
	decorated []decorateCall
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{biomeFn: func(x, z int) host.Biome { return plains }}
}

func (w *fakeWorld) Biomes(x, z, width, depth int) ([]host.Biome, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.short {
		return make([]host.Biome, 10), nil
	}
	out := make([]host.Biome, width*depth)
	for dz := 0; dz < depth; dz++ {
		for dx := 0; dx < width; dx++ {
			out[dz*width+dx] = w.biomeFn(x+dx, z+dz)
		}
	}
	return out, nil
}

func (w *fakeWorld) BiomeAt(pos vec.Vec3) (host.Biome, error) {
	if w.err != nil {
		return host.Biome{}, w.err
	}
	return w.biomeFn(pos.X, pos.Z), nil
}

func (w *fakeWorld) FinalizeLighting(col host.ChunkVolume) { w.lit++ }

func (w *fakeWorld) Decorate(biome host.Biome, rng *rand.Rand, origin vec.Vec3) {
	w.decorated = append(w.decorated, decorateCall{biome: biome, origin: origin})
}

func (w *fakeWorld) SpawnList(biome host.Biome, creature host.CreatureType) []host.SpawnEntry {
	if creature != host.CreatureMonster {
		return nil
	}
	return []host.SpawnEntry{{Entity: "zombie@" + biome.Name, Weight: 100, MinGroup: 4, MaxGroup: 4}}
}

var errHostDown = errors.New("biome provider offline")

// recordingVolume запоминает, какие уровни высоты были записаны
type recordingVolume struct {
	writes map[int]int
}

func newRecordingVolume() *recordingVolume {
	return &recordingVolume{writes: map[int]int{}}
}

func (r *recordingVolume) SetBlock(x, y, z int, id host.BlockID) {
	r.writes[y]++
}

// scriptedRand возвращает заранее заданные значения
type scriptedRand struct {
	values []int
}

func (s *scriptedRand) Intn(n int) int {
	v := s.values[0]
	s.values = s.values[1:]
	return v
}
