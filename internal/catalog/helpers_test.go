package catalog

import (
	"math/rand"

	"github.com/annel0/skygrid/internal/host"
)

// staticBlocks — реестр блоков хоста для тестов
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

func testRegistry() staticBlocks {
	return staticBlocks{
		{ID: "minecraft:air"},
		{ID: "minecraft:stone", FullCube: true},
		{ID: "minecraft:grass", FullCube: true, Role: host.RoleGrass},
		{ID: "minecraft:flowing_water", DynamicFluid: true},
		{ID: "minecraft:water"},
		{ID: "minecraft:sand", FullCube: true, Role: host.RoleSand},
		{ID: "minecraft:bedrock", FullCube: true, Role: host.RoleFloor},
		{ID: "minecraft:sapling", Plant: host.PlantPlantable},
		{ID: "minecraft:chest", TileEntity: true, Role: host.RoleChest},
		{ID: "minecraft:torch"},
		{ID: "minecraft:wheat", Plant: host.PlantCrop},
		{ID: "minecraft:farmland", Role: host.RoleFarmland},
		{ID: "minecraft:cactus", Plant: host.PlantCactus},
		{ID: "minecraft:reeds", Plant: host.PlantReed},
		{ID: "minecraft:pumpkin_stem", Plant: host.PlantStem},
		{ID: "minecraft:soul_sand", FullCube: true, Role: host.RoleSoulSand},
		{ID: "minecraft:nether_wart", Plant: host.PlantNetherWart},
		{ID: "minecraft:mob_spawner", FullCube: true, TileEntity: true},
		{ID: "minecraft:red_flower", Plant: host.PlantPlantable},
	}
}

// countingRand считает обращения к потоку
type countingRand struct {
	r     *rand.Rand
	calls int
}

func newCountingRand(seed int64) *countingRand {
	return &countingRand{r: rand.New(rand.NewSource(seed))}
}

func (c *countingRand) Intn(n int) int {
	c.calls++
	return c.r.Intn(n)
}

// scriptedRand возвращает заранее заданные значения
type scriptedRand struct {
	values []int
	bounds []int
}

func (s *scriptedRand) Intn(n int) int {
	s.bounds = append(s.bounds, n)
	v := s.values[0]
	s.values = s.values[1:]
	return v
}
