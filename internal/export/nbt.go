// Package export сохраняет колонки в NBT (gzip), понятный инструментам
// для работы с мирами.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Tnze/go-mc/nbt"
	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/lattice"
	"github.com/annel0/skygrid/internal/vec"
	"github.com/klauspost/compress/gzip"
)

// columnTag — NBT-представление колонки
type columnTag struct {
	XPos    int32    `nbt:"xPos"`
	ZPos    int32    `nbt:"zPos"`
	Height  int32    `nbt:"Height"`
	Palette []string `nbt:"Palette"`
	Blocks  []int32  `nbt:"Blocks"` // индекс (y*16+z)*16+x
	Biomes  []int32  `nbt:"Biomes"`
}

const rootTag = "Column"

func encodeTag(col *lattice.Column) columnTag {
	coords := col.ChunkCoords()
	tag := columnTag{
		XPos:   int32(coords.X),
		ZPos:   int32(coords.Z),
		Height: int32(col.Height()),
		Blocks: make([]int32, lattice.ColumnWidth*lattice.ColumnDepth*col.Height()),
		Biomes: make([]int32, lattice.ColumnWidth*lattice.ColumnDepth),
	}

	for _, id := range col.Palette() {
		tag.Palette = append(tag.Palette, string(id))
	}

	for y := 0; y < col.Height(); y++ {
		for z := 0; z < lattice.ColumnDepth; z++ {
			for x := 0; x < lattice.ColumnWidth; x++ {
				tag.Blocks[(y*lattice.ColumnDepth+z)*lattice.ColumnWidth+x] = int32(col.PaletteIndex(x, y, z))
			}
		}
	}

	biomes := col.Biomes()
	for i, id := range biomes {
		tag.Biomes[i] = int32(id)
	}
	return tag
}

// WriteColumn записывает колонку как сжатый gzip NBT-компаунд
func WriteColumn(w io.Writer, col *lattice.Column) error {
	zw := gzip.NewWriter(w)
	if err := nbt.NewEncoder(zw).Encode(encodeTag(col), rootTag); err != nil {
		zw.Close()
		return fmt.Errorf("encode column %s: %w", col.ChunkCoords(), err)
	}
	return zw.Close()
}

// ReadColumn читает колонку, записанную WriteColumn
func ReadColumn(r io.Reader) (*lattice.Column, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open column: %w", err)
	}
	defer zr.Close()

	var tag columnTag
	if _, err := nbt.NewDecoder(zr).Decode(&tag); err != nil {
		return nil, fmt.Errorf("decode column: %w", err)
	}

	height := int(tag.Height)
	volume := lattice.ColumnWidth * lattice.ColumnDepth * height
	if height <= 0 || len(tag.Blocks) != volume {
		return nil, fmt.Errorf("decode column: %d blocks for height %d", len(tag.Blocks), height)
	}
	if len(tag.Palette) == 0 || tag.Palette[0] != string(host.AirBlockID) {
		return nil, fmt.Errorf("decode column: palette must start with air")
	}

	col := lattice.NewColumn(vec.Vec2{X: int(tag.XPos), Z: int(tag.ZPos)}, height)
	for y := 0; y < height; y++ {
		for z := 0; z < lattice.ColumnDepth; z++ {
			for x := 0; x < lattice.ColumnWidth; x++ {
				idx := tag.Blocks[(y*lattice.ColumnDepth+z)*lattice.ColumnWidth+x]
				if idx == 0 {
					continue
				}
				if idx < 0 || int(idx) >= len(tag.Palette) {
					return nil, fmt.Errorf("decode column: palette index %d out of range", idx)
				}
				col.SetBlock(x, y, z, host.BlockID(tag.Palette[idx]))
			}
		}
	}

	for i, id := range tag.Biomes {
		if i >= lattice.ColumnWidth*lattice.ColumnDepth {
			break
		}
		col.SetBiome(i%lattice.ColumnWidth, i/lattice.ColumnWidth, int(id))
	}
	return col, nil
}

// FileName возвращает имя файла колонки: c.<x>.<z>.nbt
func FileName(coords vec.Vec2) string {
	return fmt.Sprintf("c.%d.%d.nbt", coords.X, coords.Z)
}

// SaveColumn пишет колонку в каталог dir и возвращает путь к файлу
func SaveColumn(dir string, col *lattice.Column) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(col.ChunkCoords()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteColumn(f, col); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// LoadColumn читает колонку из файла
func LoadColumn(path string) (*lattice.Column, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadColumn(f)
}
