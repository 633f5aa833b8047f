package postgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/skygrid/internal/logging"
	"github.com/annel0/skygrid/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisConfig — параметры Redis-очереди
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	KeyPrefix     string        // По умолчанию "skygrid:postgen"
	BufferSize    int           // Размер буфера write-behind
	FlushInterval time.Duration // Период сброса пачки
	BatchSize     int
}

// RedisQueue складывает запросы в списки Redis (RPUSH <prefix>:<realm>).
// Enqueue только кладёт запрос в буфер; запись в Redis выполняет фоновый
// write-behind воркер пачками через pipeline.
type RedisQueue struct {
	client  *redis.Client
	config  RedisConfig
	metrics *Metrics
	log     *logging.Logger

	queue chan Request
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewRedisQueue подключается к Redis и запускает воркер
func NewRedisQueue(config RedisConfig, metrics *Metrics) (*RedisQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisQueueWithClient(rdb, config, metrics), nil
}

// NewRedisQueueWithClient использует уже созданный клиент
func NewRedisQueueWithClient(client *redis.Client, config RedisConfig, metrics *Metrics) *RedisQueue {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "skygrid:postgen"
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1024
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 200 * time.Millisecond
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	q := &RedisQueue{
		client:  client,
		config:  config,
		metrics: metrics,
		log:     logging.GetPostgenLogger(),
		queue:   make(chan Request, config.BufferSize),
		stop:    make(chan struct{}),
	}

	q.wg.Add(1)
	go q.writeBehindLoop()

	q.log.Info("Redis postgen queue initialized: %s (prefix %s)", config.Addr, config.KeyPrefix)
	return q
}

func (q *RedisQueue) key(realm int) string {
	return fmt.Sprintf("%s:%d", q.config.KeyPrefix, realm)
}

func (q *RedisQueue) Enqueue(realm, chunkX, chunkZ int, pos vec.Vec3) {
	req := NewRequest(realm, chunkX, chunkZ, pos)
	select {
	case q.queue <- req:
	default:
		// Буфер заполнен — запрос теряется, генерация не ждёт
		q.log.Warn("Буфер Redis-очереди переполнен, запрос %s потерян", req)
		q.metrics.incDropped("redis")
	}
}

// Close сбрасывает буфер и закрывает клиент; повторный вызов ничего не делает
func (q *RedisQueue) Close() error {
	var err error
	q.once.Do(func() {
		close(q.stop)
		q.wg.Wait()
		err = q.client.Close()
	})
	return err
}

func (q *RedisQueue) writeBehindLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]Request, 0, q.config.BatchSize)
	for {
		select {
		case req := <-q.queue:
			batch = append(batch, req)
			if len(batch) >= q.config.BatchSize {
				q.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				q.flush(batch)
				batch = batch[:0]
			}
		case <-q.stop:
			// Дочитываем то, что уже в буфере
			for {
				select {
				case req := <-q.queue:
					batch = append(batch, req)
				default:
					if len(batch) > 0 {
						q.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (q *RedisQueue) flush(batch []Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pipe := q.client.Pipeline()
	for _, req := range batch {
		data, err := json.Marshal(req)
		if err != nil {
			q.log.Error("Ошибка сериализации запроса %s: %v", req, err)
			q.metrics.incDropped("redis")
			continue
		}
		pipe.RPush(ctx, q.key(req.Realm), data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		q.log.Error("Ошибка записи пачки из %d запросов в Redis: %v", len(batch), err)
		for range batch {
			q.metrics.incDropped("redis")
		}
		return
	}
	for _, req := range batch {
		q.metrics.incEnqueued("redis", req.Realm)
	}
}

func (q *RedisQueue) Drain(ctx context.Context, realm int, limit int, handle Handler) (int, error) {
	key := q.key(realm)
	return drainPopped(ctx, limit, func(ctx context.Context) ([]byte, error) {
		return q.client.LPop(ctx, key).Bytes()
	}, handle, q.log)
}

// drainPopped снимает элементы через pop до redis.Nil или limit. Снятые до
// ошибки запросы уже удалены из списка, поэтому они обрабатываются, а ошибка
// pop возвращается вместе с ошибками обработчиков.
func drainPopped(ctx context.Context, limit int, pop func(context.Context) ([]byte, error), handle Handler, log *logging.Logger) (int, error) {
	var batch []Request
	var popErr error
	for limit <= 0 || len(batch) < limit {
		data, err := pop(ctx)
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			popErr = fmt.Errorf("redis lpop: %w", err)
			break
		}
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			log.Warn("Повреждённый запрос пропущен: %v", err)
			continue
		}
		batch = append(batch, req)
	}
	n, err := runHandlers(ctx, batch, handle)
	return n, errors.Join(popErr, err)
}

func (q *RedisQueue) Pending(realm int) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := q.client.LLen(ctx, q.key(realm)).Result()
	if err != nil {
		q.log.Warn("Ошибка LLEN %s: %v", q.key(realm), err)
		return 0
	}
	return int(n)
}
