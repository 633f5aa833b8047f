// Package postgen принимает запросы на отложенную финализацию блоков с
// тайл-сущностями (сундуки, спаунеры), поставленных генератором решётки.
package postgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/skygrid/internal/vec"
	"github.com/google/uuid"
)

// Request — одна позиция, ожидающая финализации
type Request struct {
	ID         string    `json:"id"`
	Realm      int       `json:"realm"`
	ChunkX     int       `json:"chunk_x"`
	ChunkZ     int       `json:"chunk_z"`
	Pos        vec.Vec3  `json:"pos"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewRequest заполняет запрос уникальным ID и временем постановки
func NewRequest(realm, chunkX, chunkZ int, pos vec.Vec3) Request {
	return Request{
		ID:         uuid.NewString(),
		Realm:      realm,
		ChunkX:     chunkX,
		ChunkZ:     chunkZ,
		Pos:        pos,
		EnqueuedAt: time.Now().UTC(),
	}
}

func (r Request) String() string {
	return fmt.Sprintf("realm=%d chunk=(%d,%d) pos=%s", r.Realm, r.ChunkX, r.ChunkZ, r.Pos)
}

// Queue — контракт, которым пользуется генератор. Enqueue не блокируется и
// ничего не возвращает: дедупликация и повторы — забота потребителя.
type Queue interface {
	Enqueue(realm, chunkX, chunkZ int, pos vec.Vec3)
}

// Handler обрабатывает извлечённый запрос
type Handler func(ctx context.Context, req Request) error

// Source — очередь, из которой можно забирать запросы пачками
type Source interface {
	// Drain извлекает до limit запросов мира (limit <= 0 — все) и передаёт их
	// в handle. Извлечённые запросы не возвращаются в очередь даже при ошибке.
	Drain(ctx context.Context, realm int, limit int, handle Handler) (int, error)
	Pending(realm int) int
}

// MemoryQueue — очередь в памяти процесса
type MemoryQueue struct {
	mu      sync.Mutex
	pending map[int][]Request
	metrics *Metrics
}

// NewMemoryQueue создаёт пустую очередь
func NewMemoryQueue(metrics *Metrics) *MemoryQueue {
	return &MemoryQueue{
		pending: make(map[int][]Request),
		metrics: metrics,
	}
}

func (q *MemoryQueue) Enqueue(realm, chunkX, chunkZ int, pos vec.Vec3) {
	req := NewRequest(realm, chunkX, chunkZ, pos)

	q.mu.Lock()
	q.pending[realm] = append(q.pending[realm], req)
	q.mu.Unlock()

	q.metrics.incEnqueued("memory", realm)
}

func (q *MemoryQueue) Drain(ctx context.Context, realm int, limit int, handle Handler) (int, error) {
	q.mu.Lock()
	list := q.pending[realm]
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}
	batch := append([]Request(nil), list[:n]...)
	q.pending[realm] = list[n:]
	q.mu.Unlock()

	return runHandlers(ctx, batch, handle)
}

func (q *MemoryQueue) Pending(realm int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending[realm])
}

// Snapshot возвращает копию ожидающих запросов мира, не извлекая их
func (q *MemoryQueue) Snapshot(realm int) []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Request(nil), q.pending[realm]...)
}

func runHandlers(ctx context.Context, batch []Request, handle Handler) (int, error) {
	var errs []error
	for _, req := range batch {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := handle(ctx, req); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", req, err))
		}
	}
	return len(batch), errors.Join(errs...)
}
