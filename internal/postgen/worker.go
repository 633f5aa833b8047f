package postgen

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/skygrid/internal/logging"
)

// Worker периодически забирает запросы из Source и передаёт их хосту.
// Ошибки обработчика логируются; повторов нет.
type Worker struct {
	source   Source
	handle   Handler
	realms   []int
	interval time.Duration
	batch    int
	metrics  *Metrics
	log      *logging.Logger

	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

// NewWorker создаёт воркер для перечисленных миров
func NewWorker(source Source, handle Handler, realms []int, interval time.Duration, batch int, metrics *Metrics) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{
		source:   source,
		handle:   handle,
		realms:   append([]int(nil), realms...),
		interval: interval,
		batch:    batch,
		metrics:  metrics,
		log:      logging.GetPostgenLogger(),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// RunOnce выполняет один проход по всем мирам и возвращает число запросов
func (w *Worker) RunOnce(ctx context.Context) int {
	total := 0
	for _, realm := range w.realms {
		n, err := w.source.Drain(ctx, realm, w.batch, func(ctx context.Context, req Request) error {
			err := w.handle(ctx, req)
			w.metrics.observeResult(err)
			return err
		})
		if err != nil {
			w.log.Warn("Финализация мира %d: %v", realm, err)
		}
		if n > 0 {
			w.log.Debug("Финализировано %d позиций в мире %d", n, realm)
		}
		total += n
	}
	return total
}

// Start запускает цикл в отдельной горутине; повторный вызов игнорируется
func (w *Worker) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.loop(ctx)
}

// Stop останавливает цикл и ждёт его завершения. Без Start просто
// закрывает воркер, последующий Start уже ничего не запустит.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.quit) })
	if w.started.CompareAndSwap(false, true) {
		return
	}
	<-w.done
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.done)

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		}
	}
}
