package lattice

import (
	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/vec"
)

// Размеры колонки по X и Z
const (
	ColumnWidth = 16
	ColumnDepth = 16
	biomeCount  = ColumnWidth * ColumnDepth
)

// Column — воксельный объём 16×16×H одного чанка и массив биомов.
// Блоки хранятся индексами в палитре; индекс 0 — воздух.
type Column struct {
	coords  vec.Vec2
	height  int
	palette []host.BlockID
	lookup  map[host.BlockID]uint16
	voxels  []uint16 // индекс (y*16+z)*16+x
	biomes  [biomeCount]int
}

// NewColumn создаёт пустую (заполненную воздухом) колонку
func NewColumn(coords vec.Vec2, height int) *Column {
	return &Column{
		coords:  coords,
		height:  height,
		palette: []host.BlockID{host.AirBlockID},
		lookup:  map[host.BlockID]uint16{host.AirBlockID: 0},
		voxels:  make([]uint16, ColumnWidth*ColumnDepth*height),
	}
}

func (c *Column) ChunkCoords() vec.Vec2 { return c.coords }

// Height возвращает высоту колонки (потолок воксельного пространства)
func (c *Column) Height() int { return c.height }

func (c *Column) inBounds(x, y, z int) bool {
	return x >= 0 && x < ColumnWidth && z >= 0 && z < ColumnDepth && y >= 0 && y < c.height
}

func voxelIndex(x, y, z int) int {
	return (y*ColumnDepth+z)*ColumnWidth + x
}

// SetBlock записывает блок по локальным координатам; вне объёма — игнорируется
func (c *Column) SetBlock(x, y, z int, id host.BlockID) {
	if !c.inBounds(x, y, z) {
		return
	}
	idx, ok := c.lookup[id]
	if !ok {
		idx = uint16(len(c.palette))
		c.palette = append(c.palette, id)
		c.lookup[id] = idx
	}
	c.voxels[voxelIndex(x, y, z)] = idx
}

// Block возвращает блок по локальным координатам (воздух вне объёма)
func (c *Column) Block(x, y, z int) host.BlockID {
	if !c.inBounds(x, y, z) {
		return host.AirBlockID
	}
	return c.palette[c.voxels[voxelIndex(x, y, z)]]
}

// PaletteIndex возвращает индекс блока в палитре
func (c *Column) PaletteIndex(x, y, z int) uint16 {
	if !c.inBounds(x, y, z) {
		return 0
	}
	return c.voxels[voxelIndex(x, y, z)]
}

// Palette возвращает копию палитры
func (c *Column) Palette() []host.BlockID {
	return append([]host.BlockID(nil), c.palette...)
}

// Biome возвращает ID биома столбца (x, z)
func (c *Column) Biome(x, z int) int {
	return c.biomes[z*ColumnWidth+x]
}

// Biomes возвращает копию массива биомов (индекс z*16+x)
func (c *Column) Biomes() [biomeCount]int {
	return c.biomes
}

// SetBiome задаёт ID биома столбца (x, z)
func (c *Column) SetBiome(x, z, id int) {
	if x < 0 || x >= ColumnWidth || z < 0 || z >= ColumnDepth {
		return
	}
	c.biomes[z*ColumnWidth+x] = id
}

func (c *Column) setBiomes(biomes []host.Biome) {
	for i := 0; i < biomeCount && i < len(biomes); i++ {
		c.biomes[i] = biomes[i].ID
	}
}

// Histogram считает непустые блоки по типам
func (c *Column) Histogram() map[host.BlockID]int {
	counts := make([]int, len(c.palette))
	for _, idx := range c.voxels {
		counts[idx]++
	}
	out := make(map[host.BlockID]int)
	for i, n := range counts {
		if i == 0 || n == 0 {
			continue
		}
		out[c.palette[i]] = n
	}
	return out
}

// LevelPopulated сообщает, есть ли на высоте y хоть один непустой блок
func (c *Column) LevelPopulated(y int) bool {
	if y < 0 || y >= c.height {
		return false
	}
	start := voxelIndex(0, y, 0)
	for _, idx := range c.voxels[start : start+ColumnWidth*ColumnDepth] {
		if idx != 0 {
			return true
		}
	}
	return false
}
