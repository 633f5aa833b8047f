// Package app собирает генераторы миров, хранилище каталогов и очередь
// отложенной финализации в единый движок.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/annel0/skygrid/internal/catalog"
	"github.com/annel0/skygrid/internal/config"
	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/host/vanilla"
	"github.com/annel0/skygrid/internal/lattice"
	"github.com/annel0/skygrid/internal/logging"
	"github.com/annel0/skygrid/internal/postgen"
	"github.com/annel0/skygrid/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ErrDrainUnsupported — бэкенд очереди только публикует запросы
var ErrDrainUnsupported = errors.New("queue backend does not support draining")

// Options — зависимости движка. Пустые поля заполняются автономным хостом.
type Options struct {
	Config *config.Config
	Blocks host.BlockCatalog
	// Worlds возвращает хост мира; по умолчанию vanilla.NewWorld
	Worlds   func(realm catalog.Realm, seed int64) host.WorldAccessor
	Backend  catalog.Backend
	Queue    postgen.Queue // Подменяет бэкенд из конфигурации
	Registry *prometheus.Registry
}

type realmState struct {
	realm catalog.Realm
	world host.WorldAccessor
	gen   *lattice.Generator
}

// Engine — потокобезопасная обёртка над генераторами миров. Генераторы сами
// по себе не синхронизированы, поэтому все обращения идут под мьютексом.
type Engine struct {
	mu sync.Mutex

	cfg      *config.Config
	blocks   host.BlockCatalog
	store    *catalog.Store
	realms   map[int]*realmState
	order    []catalog.Realm
	queue    postgen.Queue
	source   postgen.Source
	closer   io.Closer
	registry *prometheus.Registry
	qMetrics *postgen.Metrics
	log      *logging.Logger
}

// New строит движок по конфигурации
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		blocks:   opts.Blocks,
		realms:   make(map[int]*realmState),
		registry: opts.Registry,
		log:      logging.GetComponentLogger("engine"),
	}
	if e.blocks == nil {
		e.blocks = vanilla.DefaultRegistry()
	}
	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
		e.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	backend := opts.Backend
	if backend == nil {
		backend = catalog.NewFileBackend(cfg.Catalog.Dir)
	}
	e.store = catalog.NewStore(backend, e.blocks)

	e.qMetrics = postgen.NewMetrics(e.registry)
	if opts.Queue != nil {
		e.queue = opts.Queue
		e.source, _ = opts.Queue.(postgen.Source)
	} else if err := e.openQueue(cfg.Queue); err != nil {
		return nil, err
	}

	worlds := opts.Worlds
	if worlds == nil {
		worlds = func(realm catalog.Realm, seed int64) host.WorldAccessor {
			return vanilla.NewWorld(seed, realm.ID)
		}
	}

	lMetrics := lattice.NewMetrics(e.registry)
	settings := lattice.SettingsFromConfig(cfg.Grid)

	for _, name := range cfg.Catalog.Realms {
		realm, err := catalog.ParseRealm(name)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("catalog.realms: %w", err)
		}
		if _, dup := e.realms[realm.ID]; dup {
			continue
		}

		world := worlds(realm, cfg.Grid.Seed)
		gen := lattice.NewGenerator(realm, settings, lattice.Deps{
			World:   world,
			Blocks:  e.blocks,
			Catalog: e.loadCatalog(realm),
			Queue:   e.queue,
			Metrics: lMetrics,
		})
		e.realms[realm.ID] = &realmState{realm: realm, world: world, gen: gen}
		e.order = append(e.order, realm)
	}

	e.log.Info("Движок готов: миры=%v очередь=%s dist=%d height=%d", e.order, cfg.Queue.Backend, settings.Dist, settings.Height)
	return e, nil
}

func (e *Engine) openQueue(qc config.QueueConfig) error {
	switch qc.Backend {
	case "", "memory":
		q := postgen.NewMemoryQueue(e.qMetrics)
		e.queue, e.source = q, q
	case "badger":
		q, err := postgen.NewBadgerQueue(qc.BadgerPath, e.qMetrics)
		if err != nil {
			return err
		}
		e.queue, e.source, e.closer = q, q, q
	case "redis":
		q, err := postgen.NewRedisQueue(postgen.RedisConfig{
			Addr:       qc.RedisAddr,
			DB:         qc.RedisDB,
			BufferSize: qc.BufferSize,
		}, e.qMetrics)
		if err != nil {
			return err
		}
		e.queue, e.source, e.closer = q, q, q
	case "nats":
		q, err := postgen.NewNATSQueue(qc.NATSURL, qc.Subject, e.qMetrics)
		if err != nil {
			return err
		}
		e.queue, e.closer = q, q
	default:
		return fmt.Errorf("queue.backend: неизвестный бэкенд %q", qc.Backend)
	}
	return nil
}

// loadCatalog загружает каталог и убирает блоки, которых нет у хоста
func (e *Engine) loadCatalog(realm catalog.Realm) *catalog.RealmCatalog {
	c := e.store.Load(realm)
	e.sanitize(c)
	return c
}

func (e *Engine) sanitize(c *catalog.RealmCatalog) int {
	entries, overlays := c.Sanitize(e.blocks)
	if entries > 0 || overlays > 0 {
		e.log.Warn("Каталог %s: удалено %d неизвестных блоков и %d надстроек", c.Realm, entries, overlays)
	}
	return entries + overlays
}

func (e *Engine) state(realm catalog.Realm) (*realmState, error) {
	st, ok := e.realms[realm.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", catalog.ErrUnknownRealm, realm)
	}
	return st, nil
}

// Realms возвращает настроенные миры в порядке конфигурации
func (e *Engine) Realms() []catalog.Realm {
	return append([]catalog.Realm(nil), e.order...)
}

// Config возвращает действующую конфигурацию
func (e *Engine) Config() *config.Config { return e.cfg }

// Blocks возвращает реестр блоков хоста
func (e *Engine) Blocks() host.BlockCatalog { return e.blocks }

// Registry возвращает реестр метрик движка
func (e *Engine) Registry() *prometheus.Registry { return e.registry }

// Column генерирует колонку мира
func (e *Engine) Column(realm catalog.Realm, chunkX, chunkZ int) (*lattice.Column, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.state(realm)
	if err != nil {
		return nil, err
	}
	col, err := st.gen.GenerateColumn(chunkX, chunkZ)
	if err != nil {
		return nil, err
	}
	if err := st.gen.Populate(chunkX, chunkZ); err != nil {
		e.log.Warn("Декорации %s (%d,%d): %v", realm, chunkX, chunkZ, err)
	}
	return col, nil
}

// Catalog возвращает копию текущего каталога мира
func (e *Engine) Catalog(realm catalog.Realm) (*catalog.RealmCatalog, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.state(realm)
	if err != nil {
		return nil, err
	}
	return st.gen.Catalog().Clone(), nil
}

// ReplaceCatalog сохраняет новый каталог и подключает его к генератору.
// Возвращает число отброшенных неизвестных блоков и надстроек.
func (e *Engine) ReplaceCatalog(realm catalog.Realm, entries []catalog.Entry) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.state(realm)
	if err != nil {
		return 0, err
	}

	c := catalog.NewRealmCatalog(st.realm, entries)
	dropped := e.sanitize(c)
	if err := e.store.Save(st.realm, c); err != nil {
		return dropped, err
	}
	st.gen.SetCatalog(c)
	return dropped, nil
}

// ReloadCatalog перечитывает каталог мира из хранилища
func (e *Engine) ReloadCatalog(realm catalog.Realm) (*catalog.RealmCatalog, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.state(realm)
	if err != nil {
		return nil, err
	}
	c := e.loadCatalog(st.realm)
	st.gen.SetCatalog(c)
	return c.Clone(), nil
}

// SpawnableCreatures возвращает таблицу спавна в позиции мира
func (e *Engine) SpawnableCreatures(realm catalog.Realm, creature host.CreatureType, x, y, z int) ([]host.SpawnEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.state(realm)
	if err != nil {
		return nil, err
	}
	return st.gen.SpawnableCreatures(creature, vec.Vec3{X: x, Y: y, Z: z})
}

// Pending возвращает число ожидающих запросов финализации по мирам
func (e *Engine) Pending() map[string]int {
	out := make(map[string]int, len(e.order))
	if e.source == nil {
		return out
	}
	for _, r := range e.order {
		out[r.Name] = e.source.Pending(r.ID)
	}
	return out
}

// Drain передаёт ожидающие запросы мира обработчику
func (e *Engine) Drain(ctx context.Context, realm catalog.Realm, limit int, handle postgen.Handler) (int, error) {
	if e.source == nil {
		return 0, ErrDrainUnsupported
	}
	if _, err := e.state(realm); err != nil {
		return 0, err
	}
	return e.source.Drain(ctx, realm.ID, limit, handle)
}

// NewFinalizer создаёт воркер, который периодически передаёт запросы в handle.
// Для бэкендов без Drain возвращает ErrDrainUnsupported.
func (e *Engine) NewFinalizer(handle postgen.Handler, interval time.Duration, batch int) (*postgen.Worker, error) {
	if e.source == nil {
		return nil, ErrDrainUnsupported
	}
	ids := make([]int, 0, len(e.order))
	for _, r := range e.order {
		ids = append(ids, r.ID)
	}
	sort.Ints(ids)
	return postgen.NewWorker(e.source, handle, ids, interval, batch, e.qMetrics), nil
}

// Close освобождает бэкенд очереди
func (e *Engine) Close() error {
	if e.closer == nil {
		return nil
	}
	err := e.closer.Close()
	e.closer = nil
	return err
}
