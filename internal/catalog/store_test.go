package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/skygrid/internal/host"
	"github.com/annel0/skygrid/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *FileBackend, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	backend := NewFileBackend(t.TempDir())
	store := NewStore(backend, testRegistry()).WithLogger(logging.NewWriterLogger("catalog", &buf))
	return store, backend, &buf
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)

	original := NewRealmCatalog(Overworld, []Entry{
		{Block: "minecraft:grass", Overlays: []host.BlockID{"minecraft:sapling", "minecraft:red_flower"}},
		NewEntry("minecraft:stone"),
		{Block: "minecraft:sand", Overlays: []host.BlockID{"minecraft:cactus"}, Biomes: []string{"desert"}, Weight: 3},
		{Block: "minecraft:ice", ExcludeBiomes: []string{"desert", "hell"}},
	})
	require.NoError(t, store.Save(Overworld, original))

	loaded := store.Load(Overworld)
	require.Equal(t, original.Len(), loaded.Len())
	assert.Equal(t, original.Entries, loaded.Entries)
	assert.Equal(t, Overworld, loaded.Realm)
}

func TestStoreLoadSynthesizesAndPersists(t *testing.T) {
	store, backend, buf := newTestStore(t)

	c := store.Load(Nether)
	assert.Equal(t, Synthesize(testRegistry()), c.Entries)
	assert.Contains(t, buf.String(), "по умолчанию")

	_, err := os.Stat(backend.Path(Nether))
	require.NoError(t, err, "каталог по умолчанию должен быть сохранён")

	// Второй запуск читает файл, а не синтезирует заново
	again := store.Load(Nether)
	assert.Equal(t, c.Entries, again.Entries)
}

func TestStoreFileIsPrettyPrinted(t *testing.T) {
	store, backend, _ := newTestStore(t)
	require.NoError(t, store.Save(Overworld, NewRealmCatalog(Overworld, []Entry{NewEntry("minecraft:stone")})))

	data, err := os.ReadFile(backend.Path(Overworld))
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"block\": \"minecraft:stone\",\n    \"overlays\": []\n  }\n]", string(data))
}

func TestStoreLoadMalformedFileDegradesToEmpty(t *testing.T) {
	store, backend, buf := newTestStore(t)
	require.NoError(t, os.WriteFile(backend.Path(Overworld), []byte("{not json"), 0644))

	c := store.Load(Overworld)
	require.NotNil(t, c)
	assert.True(t, c.IsEmpty())
	assert.Contains(t, buf.String(), "[ERROR]")
}

func TestStoreLoadUnreadableDegradesToEmpty(t *testing.T) {
	store, backend, _ := newTestStore(t)
	// Директория на месте файла: чтение завершится ошибкой, отличной от NotExist
	require.NoError(t, os.MkdirAll(backend.Path(Overworld), 0755))

	c := store.Load(Overworld)
	require.NotNil(t, c)
	assert.True(t, c.IsEmpty())
}

func TestStoreLoadSkipsInvalidElements(t *testing.T) {
	store, backend, buf := newTestStore(t)
	data := `[
  {"block": "minecraft:stone", "overlays": []},
  42,
  null,
  {"overlays": ["minecraft:sapling"]},
  {"block": "minecraft:dirt"}
]`
	require.NoError(t, os.WriteFile(backend.Path(Overworld), []byte(data), 0644))

	c := store.Load(Overworld)
	assert.Equal(t, []host.BlockID{"minecraft:stone", "minecraft:dirt"}, blockIDs(c.Entries))
	assert.NotNil(t, c.Entries[1].Overlays)
	assert.Contains(t, buf.String(), "пропущено 3")
}

func TestStoreSaveFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	var buf bytes.Buffer
	store := NewStore(NewFileBackend(filepath.Join(blocker, "sub")), testRegistry()).
		WithLogger(logging.NewWriterLogger("catalog", &buf))

	err := store.Save(Overworld, NewRealmCatalog(Overworld, nil))
	assert.Error(t, err)

	// Путь недоступен и для чтения: Load деградирует до пустого каталога
	c := store.Load(Overworld)
	require.NotNil(t, c)
	assert.True(t, c.IsEmpty())
}

func TestParseRealm(t *testing.T) {
	r, err := ParseRealm("Nether")
	require.NoError(t, err)
	assert.Equal(t, Nether, r)

	r, err = ParseRealm("0")
	require.NoError(t, err)
	assert.Equal(t, Overworld, r)

	_, err = ParseRealm("aether")
	assert.ErrorIs(t, err, ErrUnknownRealm)
}

func TestStoreLoadClampsHugeWeights(t *testing.T) {
	store, backend, buf := newTestStore(t)
	data := `[
  {"block": "minecraft:stone", "overlays": [], "weight": 4611686018427387904},
  {"block": "minecraft:dirt", "overlays": [], "weight": 4611686018427387904},
  {"block": "minecraft:grass", "overlays": [], "weight": -3}
]`
	require.NoError(t, os.WriteFile(backend.Path(Overworld), []byte(data), 0644))

	c := store.Load(Overworld)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, MaxWeight, c.Entries[0].Weight)
	assert.Equal(t, 0, c.Entries[2].Weight)
	assert.Contains(t, buf.String(), "вес 2 записей ограничен")

	rnd := newCountingRand(1)
	assert.NotPanics(t, func() {
		for i := 0; i < 100; i++ {
			c.Select(rnd, plains, host.FallbackFloorID)
		}
	})
}
