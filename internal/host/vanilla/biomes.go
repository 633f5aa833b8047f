package vanilla

import (
	"github.com/annel0/skygrid/internal/host"
	"github.com/aquilax/go-perlin"
)

// Биомы автономного хоста (ID совпадают с классической нумерацией)
var (
	Ocean        = host.Biome{ID: 0, Name: "ocean"}
	Plains       = host.Biome{ID: 1, Name: "plains"}
	Desert       = host.Biome{ID: 2, Name: "desert"}
	ExtremeHills = host.Biome{ID: 3, Name: "extreme_hills"}
	Forest       = host.Biome{ID: 4, Name: "forest"}
	Taiga        = host.Biome{ID: 5, Name: "taiga"}
	Swampland    = host.Biome{ID: 6, Name: "swampland"}
	Hell         = host.Biome{ID: 8, Name: "hell"}
	Sky          = host.Biome{ID: 9, Name: "sky"}
	IcePlains    = host.Biome{ID: 12, Name: "ice_plains"}
	Jungle       = host.Biome{ID: 21, Name: "jungle"}
	Savanna      = host.Biome{ID: 35, Name: "savanna"}
)

// AllBiomes перечисляет биомы в порядке ID
var AllBiomes = []host.Biome{
	Ocean, Plains, Desert, ExtremeHills, Forest, Taiga, Swampland,
	Hell, Sky, IcePlains, Jungle, Savanna,
}

// Измерения хоста
const (
	DimensionOverworld = 0
	DimensionNether    = -1
	DimensionEnd       = 1
)

// Пороговые значения шума
const (
	OceanMax = 0.30 // Ниже — океан
	ColdMax  = 0.35 // Ниже — холодные биомы
	WarmMin  = 0.65 // Выше — жаркие биомы
)

// biomeNoise — три независимых поля шума: континенты, температура, влажность
type biomeNoise struct {
	scale       float64
	continent   *perlin.Perlin
	temperature *perlin.Perlin
	humidity    *perlin.Perlin
}

func newBiomeNoise(seed int64, scale float64) *biomeNoise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &biomeNoise{
		scale:       scale,
		continent:   perlin.NewPerlin(alpha, beta, n, seed),
		temperature: perlin.NewPerlin(alpha, beta, n, seed+42),
		humidity:    perlin.NewPerlin(alpha, beta, n, seed+1337),
	}
}

// sample возвращает значение шума в диапазоне [0, 1]
func sample(p *perlin.Perlin, x, z float64) float64 {
	v := (p.Noise2D(x, z) + 1.0) / 2.0
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func (bn *biomeNoise) at(x, z int) host.Biome {
	nx, nz := float64(x)*bn.scale, float64(z)*bn.scale

	if sample(bn.continent, nx*0.5, nz*0.5) < OceanMax {
		return Ocean
	}
	return classify(sample(bn.temperature, nx, nz), sample(bn.humidity, nx, nz))
}

// classify выбирает биом суши по температуре и влажности
func classify(temperature, humidity float64) host.Biome {
	switch {
	case temperature < ColdMax:
		if humidity < 0.5 {
			return IcePlains
		}
		return Taiga
	case temperature > WarmMin:
		switch {
		case humidity < 0.4:
			return Desert
		case humidity < 0.7:
			return Savanna
		default:
			return Jungle
		}
	default:
		switch {
		case humidity < 0.3:
			return ExtremeHills
		case humidity < 0.55:
			return Plains
		case humidity < 0.8:
			return Forest
		default:
			return Swampland
		}
	}
}
