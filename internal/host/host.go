// Package host описывает возможности игрового хоста, которыми пользуется
// генератор решётки: реестр блоков, биомы, освещение и декорации.
package host

import (
	"errors"
	"math/rand"

	"github.com/annel0/skygrid/internal/vec"
)

// BlockID — идентификатор типа блока в пространстве хоста ("minecraft:stone")
type BlockID string

// AirBlockID — пустой воксель
const AirBlockID BlockID = ""

// FallbackFloorID используется, если хост не объявил блок с ролью RoleFloor
const FallbackFloorID BlockID = "minecraft:bedrock"

// PlantKind классифицирует растения для привязки к блокам-носителям
type PlantKind string

const (
	PlantNone       PlantKind = ""
	PlantCrop       PlantKind = "crop"
	PlantStem       PlantKind = "stem"
	PlantNetherWart PlantKind = "nether_wart"
	PlantCactus     PlantKind = "cactus"
	PlantReed       PlantKind = "reed"
	PlantPlantable  PlantKind = "plantable"
)

// Role отмечает блоки, которые генератор знает «в лицо»
type Role string

const (
	RoleNone     Role = ""
	RoleFarmland Role = "farmland"
	RoleSoulSand Role = "soul_sand"
	RoleSand     Role = "sand"
	RoleGrass    Role = "grass"
	RoleChest    Role = "chest"
	RoleFloor    Role = "floor"
)

// BlockInfo — классификация одного типа блока хоста
type BlockInfo struct {
	ID           BlockID   `yaml:"id" json:"id"`
	FullCube     bool      `yaml:"full_cube" json:"full_cube"`
	DynamicFluid bool      `yaml:"dynamic_fluid" json:"dynamic_fluid"`
	TileEntity   bool      `yaml:"tile_entity" json:"tile_entity"`
	Plant        PlantKind `yaml:"plant" json:"plant,omitempty"`
	Role         Role      `yaml:"role" json:"role,omitempty"`
}

// BlockCatalog — реестр блоков хоста. Порядок Blocks() должен быть стабильным.
type BlockCatalog interface {
	Blocks() []BlockInfo
	Lookup(id BlockID) (BlockInfo, bool)
}

// FloorBlock возвращает блок-заглушку «пол» (аналог бедрока)
func FloorBlock(blocks BlockCatalog) BlockID {
	if blocks != nil {
		for _, b := range blocks.Blocks() {
			if b.Role == RoleFloor {
				return b.ID
			}
		}
	}
	return FallbackFloorID
}

// IsTileEntity сообщает, требует ли блок отложенной финализации
func IsTileEntity(blocks BlockCatalog, id BlockID) bool {
	if blocks == nil || id == AirBlockID {
		return false
	}
	info, ok := blocks.Lookup(id)
	return ok && info.TileEntity
}

// Biome — биом хоста
type Biome struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CreatureType — категория существ для таблиц спавна
type CreatureType string

const (
	CreatureMonster  CreatureType = "monster"
	CreatureCreature CreatureType = "creature"
	CreatureAmbient  CreatureType = "ambient"
	CreatureWater    CreatureType = "water_creature"
)

// SpawnEntry — элемент таблицы спавна биома
type SpawnEntry struct {
	Entity   string `json:"entity"`
	Weight   int    `json:"weight"`
	MinGroup int    `json:"min_group"`
	MaxGroup int    `json:"max_group"`
}

// ErrBiomesUnavailable возвращается, когда хост не может отдать биомы
var ErrBiomesUnavailable = errors.New("biome data unavailable")

// ChunkVolumeBuilder — запись вокселей по локальным координатам колонки
type ChunkVolumeBuilder interface {
	SetBlock(x, y, z int, id BlockID)
}

// ChunkVolume — готовая колонка, которую хост получает для освещения
type ChunkVolume interface {
	ChunkCoords() vec.Vec2
	Height() int
	Block(x, y, z int) BlockID
}

// WorldAccessor — доступ к данным мира хоста
type WorldAccessor interface {
	// Biomes возвращает width*depth биомов начиная с (x, z), индекс z*width+x
	Biomes(x, z, width, depth int) ([]Biome, error)
	// BiomeAt возвращает биом в абсолютной позиции
	BiomeAt(pos vec.Vec3) (Biome, error)
	// FinalizeLighting вычисляет освещение готовой колонки
	FinalizeLighting(col ChunkVolume)
	// Decorate запускает декорации биома (деревья, руды и т.п.)
	Decorate(biome Biome, rng *rand.Rand, origin vec.Vec3)
	// SpawnList возвращает таблицу спавна биома
	SpawnList(biome Biome, creature CreatureType) []SpawnEntry
}
