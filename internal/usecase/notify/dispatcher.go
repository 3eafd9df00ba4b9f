package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/metrics"
)

type route struct {
	name string
	sink domain.NotificationSink
}

// Dispatcher маршрутизирует уведомления в синки, подписанные на их тип.
// Доставка асинхронная, ошибки синков только логируются.
type Dispatcher struct {
	mu      sync.RWMutex
	routes  map[domain.NotificationKind][]route
	timeout time.Duration
	wg      sync.WaitGroup
	log     zerolog.Logger
}

var _ domain.Notifier = (*Dispatcher)(nil)

// NewDispatcher создаёт диспетчер с таймаутом на одну доставку.
func NewDispatcher(timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		routes:  make(map[domain.NotificationKind][]route),
		timeout: timeout,
		log:     logger.With().Str("component", "notify").Logger(),
	}
}

// Register подписывает синк на перечисленные типы уведомлений.
func (d *Dispatcher) Register(name string, sink domain.NotificationSink, kinds ...domain.NotificationKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, kind := range kinds {
		d.routes[kind] = append(d.routes[kind], route{name: name, sink: sink})
	}
}

// Notify отправляет уведомление всем подписанным синкам и сразу возвращает управление.
func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) {
	d.mu.RLock()
	routes := append([]route(nil), d.routes[n.Kind]...)
	d.mu.RUnlock()

	if len(routes) == 0 {
		d.log.Debug().Str("kind", string(n.Kind)).Msg("notify: нет синков для уведомления")
		return
	}

	base := context.WithoutCancel(ctx)
	for _, r := range routes {
		d.wg.Add(1)
		go func(r route) {
			defer d.wg.Done()
			deliverCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			err := r.sink.Deliver(deliverCtx, n)
			metrics.ObserveNotification(string(n.Kind), r.name, err)
			if err != nil {
				d.log.Warn().Err(err).
					Str("kind", string(n.Kind)).
					Str("sink", r.name).
					Str("guild_id", n.GuildID).
					Str("user_id", n.UserID).
					Msg("notify: доставка не удалась")
			}
		}(r)
	}
}

// Wait дожидается завершения начатых доставок.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
