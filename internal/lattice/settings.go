package lattice

import "github.com/annel0/skygrid/internal/config"

// DefaultCeiling — высота колонки по умолчанию
const DefaultCeiling = config.DefaultCeiling

// Settings — параметры генерации одного мира
type Settings struct {
	Seed          int64
	Dist          int  // Шаг решётки
	RandomSpacing bool // Случайный шаг в [0, Dist] (не меньше 1) на каждый чанк
	Height        int  // Верхняя граница сканирования и высота якорного блока
	Ceiling       int  // Высота колонки
	Populate      bool
	PerChunkSeed  bool
}

// SettingsFromConfig переносит секцию grid конфигурации
func SettingsFromConfig(g config.GridConfig) Settings {
	return Settings{
		Seed:          g.Seed,
		Dist:          g.Dist,
		RandomSpacing: g.RNGSpacing,
		Height:        g.Height,
		Ceiling:       g.Ceiling,
		Populate:      g.Populate,
		PerChunkSeed:  g.PerChunkSeed,
	}
}

func (s Settings) normalized() Settings {
	if s.Dist < 1 {
		s.Dist = 1
	}
	if s.Ceiling <= 1 {
		s.Ceiling = DefaultCeiling
	}
	if s.Height < 1 {
		s.Height = 1
	}
	if s.Height > s.Ceiling-1 {
		s.Height = s.Ceiling - 1
	}
	return s
}
