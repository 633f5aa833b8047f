package postgen

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/annel0/skygrid/internal/logging"
	"github.com/annel0/skygrid/internal/vec"
	"github.com/dgraph-io/badger/v3"
)

// BadgerQueue хранит ожидающие запросы в BadgerDB, поэтому они переживают
// перезапуск процесса. Ключ: postgen:<realm>:<seq>, значение — JSON Request.
type BadgerQueue struct {
	db      *badger.DB
	seq     *badger.Sequence
	mutex   sync.RWMutex
	isReady bool
	metrics *Metrics
	log     *logging.Logger
}

// NewBadgerQueue открывает очередь в каталоге path. Пустой path — режим
// in-memory (для тестов и одноразовых прогонов).
func NewBadgerQueue(path string, metrics *Metrics) (*BadgerQueue, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	seq, err := db.GetSequence([]byte("postgen:seq"), 256)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось получить последовательность: %w", err)
	}

	return &BadgerQueue{
		db:      db,
		seq:     seq,
		isReady: true,
		metrics: metrics,
		log:     logging.GetPostgenLogger(),
	}, nil
}

func realmPrefix(realm int) []byte {
	return []byte(fmt.Sprintf("postgen:%d:", realm))
}

// Close освобождает последовательность и закрывает базу
func (bq *BadgerQueue) Close() error {
	bq.mutex.Lock()
	defer bq.mutex.Unlock()

	if !bq.isReady {
		return nil
	}
	bq.isReady = false

	if err := bq.seq.Release(); err != nil {
		bq.log.Warn("Ошибка освобождения последовательности: %v", err)
	}
	return bq.db.Close()
}

func (bq *BadgerQueue) Enqueue(realm, chunkX, chunkZ int, pos vec.Vec3) {
	bq.mutex.RLock()
	defer bq.mutex.RUnlock()

	if !bq.isReady {
		bq.metrics.incDropped("badger")
		return
	}

	req := NewRequest(realm, chunkX, chunkZ, pos)
	data, err := json.Marshal(req)
	if err != nil {
		bq.log.Error("Ошибка сериализации запроса %s: %v", req, err)
		bq.metrics.incDropped("badger")
		return
	}

	n, err := bq.seq.Next()
	if err != nil {
		bq.log.Error("Ошибка получения номера для %s: %v", req, err)
		bq.metrics.incDropped("badger")
		return
	}

	key := append(realmPrefix(realm), []byte(fmt.Sprintf("%020d", n))...)
	err = bq.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		bq.log.Error("Ошибка сохранения запроса %s в BadgerDB: %v", req, err)
		bq.metrics.incDropped("badger")
		return
	}

	bq.metrics.incEnqueued("badger", realm)
}

func (bq *BadgerQueue) Drain(ctx context.Context, realm int, limit int, handle Handler) (int, error) {
	bq.mutex.RLock()
	defer bq.mutex.RUnlock()

	if !bq.isReady {
		return 0, fmt.Errorf("очередь закрыта")
	}

	var batch []Request
	prefix := realmPrefix(realm)

	// Извлекаем и удаляем пачку в одной транзакции
	err := bq.db.Update(func(txn *badger.Txn) error {
		var keys [][]byte

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(keys) >= limit {
				break
			}
			item := it.Item()
			var req Request
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &req)
			})
			if err != nil {
				bq.log.Warn("Повреждённая запись %s удалена: %v", item.Key(), err)
			} else {
				batch = append(batch, req)
			}
			keys = append(keys, item.KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	return runHandlers(ctx, batch, handle)
}

func (bq *BadgerQueue) Pending(realm int) int {
	bq.mutex.RLock()
	defer bq.mutex.RUnlock()

	if !bq.isReady {
		return 0
	}

	count := 0
	prefix := realmPrefix(realm)
	_ = bq.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count
}
