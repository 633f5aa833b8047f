package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/logging"
)

// ErrNotFound сообщает, что сохранённого каталога для мира нет
var ErrNotFound = errors.New("catalog not found")

// Backend — место хранения сериализованных каталогов
type Backend interface {
	Read(realm Realm) ([]byte, error)
	Write(realm Realm, data []byte) error
}

// Store загружает и сохраняет каталоги миров
type Store struct {
	backend Backend
	blocks  host.BlockCatalog
	log     *logging.Logger
}

// NewStore создаёт хранилище каталогов; blocks используется для синтеза
// каталога по умолчанию, когда сохранённого состояния нет.
func NewStore(backend Backend, blocks host.BlockCatalog) *Store {
	return &Store{
		backend: backend,
		blocks:  blocks,
		log:     logging.GetCatalogLogger(),
	}
}

// WithLogger подменяет логгер (для тестов)
func (s *Store) WithLogger(l *logging.Logger) *Store {
	s.log = l
	return s
}

// Load возвращает каталог мира. Никогда не возвращает nil: при отсутствии
// файла синтезирует и сохраняет каталог по умолчанию, при ошибке чтения или
// разбора возвращает пустой каталог.
func (s *Store) Load(realm Realm) *RealmCatalog {
	data, err := s.backend.Read(realm)
	if errors.Is(err, ErrNotFound) {
		c := NewRealmCatalog(realm, Synthesize(s.blocks))
		s.log.Info("Каталог %s не найден, сгенерировано %d блоков по умолчанию", realm, c.Len())
		_ = s.Save(realm, c)
		return c
	}
	if err != nil {
		s.log.Error("Ошибка чтения каталога %s: %v", realm, err)
		return NewRealmCatalog(realm, nil)
	}

	entries, skipped, clamped, err := decodeEntries(data)
	if err != nil {
		s.log.Error("Ошибка разбора каталога %s: %v", realm, err)
		return NewRealmCatalog(realm, nil)
	}
	if skipped > 0 {
		s.log.Warn("Каталог %s: пропущено %d некорректных элементов", realm, skipped)
	}
	if clamped > 0 {
		s.log.Warn("Каталог %s: вес %d записей ограничен до %d", realm, clamped, MaxWeight)
	}

	c := NewRealmCatalog(realm, entries)
	s.log.Info("Загружено %d блоков для мира %s", c.Len(), realm)
	return c
}

// Save сериализует каталог и пишет его в бэкенд. Ошибка логируется и
// возвращается; при загрузке она игнорируется.
func (s *Store) Save(realm Realm, c *RealmCatalog) error {
	entries := []Entry{}
	if c != nil {
		for _, e := range c.Entries {
			e = e.clone()
			e.normalize()
			entries = append(entries, e)
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		s.log.Error("Ошибка сериализации каталога %s: %v", realm, err)
		return fmt.Errorf("marshal catalog %s: %w", realm, err)
	}

	if err := s.backend.Write(realm, data); err != nil {
		s.log.Error("Ошибка сохранения каталога %s: %v", realm, err)
		return fmt.Errorf("write catalog %s: %w", realm, err)
	}
	return nil
}

// decodeEntries разбирает JSON-массив, пропуская элементы, которые не
// являются объектами или не содержат блока. Веса больше MaxWeight
// ограничиваются, их количество возвращается в clamped.
func decodeEntries(data []byte) (entries []Entry, skipped, clamped int, err error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, 0, err
	}

	entries = make([]Entry, 0, len(raw))
	for _, r := range raw {
		trimmed := bytes.TrimSpace(r)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			skipped++
			continue
		}
		var e Entry
		if err := json.Unmarshal(trimmed, &e); err != nil || e.Block == host.AirBlockID {
			skipped++
			continue
		}
		if e.normalize() {
			clamped++
		}
		entries = append(entries, e)
	}
	return entries, skipped, clamped, nil
}

// FileBackend хранит каталоги в JSON-файлах skygrid_<realm>.json
type FileBackend struct {
	Dir string
}

// NewFileBackend создаёт файловый бэкенд в каталоге dir
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{Dir: dir}
}

// Path возвращает путь к файлу каталога мира
func (fb *FileBackend) Path(realm Realm) string {
	return filepath.Join(fb.Dir, fmt.Sprintf("skygrid_%s.json", realm.Name))
}

func (fb *FileBackend) Read(realm Realm) ([]byte, error) {
	data, err := os.ReadFile(fb.Path(realm))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла каталога: %w", err)
	}
	return data, nil
}

// Write пишет файл атомарно: сначала во временный файл, затем rename
func (fb *FileBackend) Write(realm Realm, data []byte) error {
	if err := os.MkdirAll(fb.Dir, 0755); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", fb.Dir, err)
	}

	path := fb.Path(realm)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла каталога: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ошибка переименования файла каталога: %w", err)
	}
	return nil
}
