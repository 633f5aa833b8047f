package catalog

import (
	"strconv"
	"strings"

	"github.com/annel0/skygrid/internal/host"
)

// Entry — описание одного блока решётки.
//
// Биомы: пустой Biomes означает «везде», иначе блок допускается только в
// перечисленных биомах. ExcludeBiomes проверяется после Biomes и всегда
// запрещает. Биом сравнивается по имени (без учёта регистра) или по числовому ID.
type Entry struct {
	Block         host.BlockID   `json:"block"`
	Overlays      []host.BlockID `json:"overlays"`
	Biomes        []string       `json:"biomes,omitempty"`
	ExcludeBiomes []string       `json:"exclude_biomes,omitempty"`
	Weight        int            `json:"weight,omitempty"`
}

// MaxWeight — верхняя граница веса записи; сумма весов пула не переполняет int
const MaxWeight = 1 << 16

// NewEntry создаёт запись без растений и фильтров
func NewEntry(id host.BlockID) Entry {
	return Entry{Block: id, Overlays: []host.BlockID{}}
}

// AddOverlay добавляет блок-надстройку, если его ещё нет в списке
func (e *Entry) AddOverlay(id host.BlockID) {
	for _, o := range e.Overlays {
		if o == id {
			return
		}
	}
	e.Overlays = append(e.Overlays, id)
}

// HasOverlays сообщает, объявлены ли надстройки
func (e *Entry) HasOverlays() bool {
	return len(e.Overlays) > 0
}

// EffectiveWeight возвращает вес для выбора в пределах [1, MaxWeight]
func (e *Entry) EffectiveWeight() int {
	switch {
	case e.Weight < 1:
		return 1
	case e.Weight > MaxWeight:
		return MaxWeight
	}
	return e.Weight
}

// Eligible проверяет, допускается ли запись в биоме
func (e *Entry) Eligible(biome host.Biome) bool {
	if matchesBiome(e.ExcludeBiomes, biome) {
		return false
	}
	if len(e.Biomes) == 0 {
		return true
	}
	return matchesBiome(e.Biomes, biome)
}

func matchesBiome(list []string, biome host.Biome) bool {
	for _, name := range list {
		name = strings.TrimSpace(name)
		if strings.EqualFold(name, biome.Name) || name == strconv.Itoa(biome.ID) {
			return true
		}
	}
	return false
}

// normalize приводит запись после декодирования к каноничному виду
// и сообщает, пришлось ли ограничить вес
func (e *Entry) normalize() (clamped bool) {
	if e.Overlays == nil {
		e.Overlays = []host.BlockID{}
	}
	if e.Weight > MaxWeight {
		e.Weight = MaxWeight
		clamped = true
	}
	if e.Weight < 0 {
		e.Weight = 0
	}
	return clamped
}

func (e Entry) clone() Entry {
	c := e
	c.Overlays = append([]host.BlockID{}, e.Overlays...)
	if e.Biomes != nil {
		c.Biomes = append([]string{}, e.Biomes...)
	}
	if e.ExcludeBiomes != nil {
		c.ExcludeBiomes = append([]string{}, e.ExcludeBiomes...)
	}
	return c
}
