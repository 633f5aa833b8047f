package postgen

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/skygrid/internal/logging"
	"github.com/annel0/skygrid/internal/vec"
	nats "github.com/nats-io/nats.go"
)

// NATSQueue публикует запросы в subject <subject>.<realm>. Core NATS
// буферизует публикации на стороне клиента, поэтому Enqueue не ждёт сервер.
type NATSQueue struct {
	nc      *nats.Conn
	subject string
	metrics *Metrics
	log     *logging.Logger

	closed    chan struct{}
	closeOnce sync.Once
}

// Сколько Close ждёт завершения Drain
const natsDrainTimeout = 10 * time.Second

// NewNATSQueue подключается к NATS. url: nats://127.0.0.1:4222
func NewNATSQueue(url, subject string, metrics *Metrics) (*NATSQueue, error) {
	if subject == "" {
		subject = "skygrid.postgen"
	}

	log := logging.GetPostgenLogger()
	closed := make(chan struct{})
	nc, err := nats.Connect(url,
		nats.Name("skygrid-postgen"),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
			close(closed)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &NATSQueue{
		nc:      nc,
		subject: subject,
		metrics: metrics,
		log:     log,
		closed:  closed,
	}, nil
}

// Subject возвращает subject для мира
func (q *NATSQueue) Subject(realm int) string {
	return fmt.Sprintf("%s.%d", q.subject, realm)
}

func (q *NATSQueue) Enqueue(realm, chunkX, chunkZ int, pos vec.Vec3) {
	req := NewRequest(realm, chunkX, chunkZ, pos)
	data, err := json.Marshal(req)
	if err != nil {
		q.log.Error("Ошибка сериализации запроса %s: %v", req, err)
		q.metrics.incDropped("nats")
		return
	}

	if err := q.nc.Publish(q.Subject(realm), data); err != nil {
		q.log.Error("Ошибка публикации запроса %s: %v", req, err)
		q.metrics.incDropped("nats")
		return
	}
	q.metrics.incEnqueued("nats", realm)
}

// Subscribe подписывает обработчик на запросы мира (сторона потребителя)
func (q *NATSQueue) Subscribe(realm int, handle func(Request)) (*nats.Subscription, error) {
	return q.nc.Subscribe(q.Subject(realm), func(msg *nats.Msg) {
		var req Request
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			q.log.Warn("Некорректное сообщение в %s: %v", msg.Subject, err)
			return
		}
		handle(req)
	})
}

// Flush дожидается отправки буфера публикаций на сервер
func (q *NATSQueue) Flush() error {
	return q.nc.Flush()
}

// Close отправляет буфер публикаций и ждёт, пока Drain закроет соединение
func (q *NATSQueue) Close() error {
	var err error
	q.closeOnce.Do(func() {
		if ferr := q.nc.Flush(); ferr != nil {
			q.log.Warn("NATS flush перед закрытием: %v", ferr)
		}
		if err = q.nc.Drain(); err != nil {
			q.nc.Close()
			return
		}
		select {
		case <-q.closed:
		case <-time.After(natsDrainTimeout):
			err = fmt.Errorf("nats drain: соединение не закрылось за %s", natsDrainTimeout)
			q.nc.Close()
		}
	})
	return err
}
