package catalog

import (
	"sort"

	"github.com/annel0/skygrid/internal/host"
)

// RandomSource — поток случайных чисел; *rand.Rand подходит как есть
type RandomSource interface {
	Intn(n int) int
}

// RealmCatalog — упорядоченный каталог блоков одного мира
type RealmCatalog struct {
	Realm   Realm
	Entries []Entry
}

// NewRealmCatalog создаёт каталог с копией записей
func NewRealmCatalog(realm Realm, entries []Entry) *RealmCatalog {
	c := &RealmCatalog{Realm: realm, Entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		e = e.clone()
		e.normalize()
		c.Entries = append(c.Entries, e)
	}
	return c
}

// Len возвращает количество записей
func (c *RealmCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// IsEmpty сообщает, что выбирать не из чего
func (c *RealmCatalog) IsEmpty() bool {
	return c.Len() == 0
}

// Clone возвращает независимую копию каталога
func (c *RealmCatalog) Clone() *RealmCatalog {
	if c == nil {
		return nil
	}
	return NewRealmCatalog(c.Realm, c.Entries)
}

// Pool — записи, допустимые в одном биоме, с накопленными весами
type Pool struct {
	entries    []*Entry
	cumulative []int
}

// PoolFor отбирает записи, допустимые в биоме, сохраняя порядок каталога
func (c *RealmCatalog) PoolFor(biome host.Biome) Pool {
	var p Pool
	if c == nil {
		return p
	}
	total := 0
	for i := range c.Entries {
		e := &c.Entries[i]
		if !e.Eligible(biome) {
			continue
		}
		total += e.EffectiveWeight()
		p.entries = append(p.entries, e)
		p.cumulative = append(p.cumulative, total)
	}
	return p
}

// Size возвращает число допустимых записей
func (p Pool) Size() int {
	return len(p.entries)
}

// Pick выбирает запись ровно одним вызовом rnd.Intn; для пустого пула
// поток не трогается и возвращается (nil, false).
func (p Pool) Pick(rnd RandomSource) (*Entry, bool) {
	if len(p.entries) == 0 {
		return nil, false
	}
	total := p.cumulative[len(p.cumulative)-1]
	r := rnd.Intn(total)
	i := sort.Search(len(p.cumulative), func(i int) bool { return p.cumulative[i] > r })
	return p.entries[i], true
}

// Select выбирает запись для биома. Если каталог пуст или ни одна запись
// не подходит, возвращается заглушка с блоком fallback и ok == false.
func (c *RealmCatalog) Select(rnd RandomSource, biome host.Biome, fallback host.BlockID) (Entry, bool) {
	if e, ok := c.PoolFor(biome).Pick(rnd); ok {
		return *e, true
	}
	return Entry{Block: fallback, Overlays: []host.BlockID{}}, false
}

// Sanitize удаляет записи и надстройки, которых нет в реестре хоста.
// Возвращает количество удалённых записей и надстроек.
func (c *RealmCatalog) Sanitize(blocks host.BlockCatalog) (droppedEntries, droppedOverlays int) {
	if c == nil || blocks == nil {
		return 0, 0
	}
	kept := c.Entries[:0]
	for _, e := range c.Entries {
		if _, ok := blocks.Lookup(e.Block); !ok {
			droppedEntries++
			continue
		}
		overlays := make([]host.BlockID, 0, len(e.Overlays))
		for _, o := range e.Overlays {
			if _, ok := blocks.Lookup(o); !ok {
				droppedOverlays++
				continue
			}
			overlays = append(overlays, o)
		}
		e.Overlays = overlays
		kept = append(kept, e)
	}
	c.Entries = kept
	return droppedEntries, droppedOverlays
}
