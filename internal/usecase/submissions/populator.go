package submissions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"qotw-bot/internal/domain"
)

// PopulateFunc обрабатывает одну задачу наполнения.
type PopulateFunc func(ctx context.Context, task domain.PopulateTask) error

// Populator - пул воркеров, разбирающих очередь наполнения тредов.
type Populator struct {
	queue   domain.PopulateQueue
	handle  PopulateFunc
	workers int
	backoff time.Duration
	log     zerolog.Logger
}

// NewPopulator создаёт пул воркеров.
func NewPopulator(queue domain.PopulateQueue, handle PopulateFunc, workers int, logger zerolog.Logger) *Populator {
	if workers <= 0 {
		workers = 1
	}
	return &Populator{
		queue:   queue,
		handle:  handle,
		workers: workers,
		backoff: time.Second,
		log:     logger.With().Str("component", "populator").Logger(),
	}
}

// Run запускает воркеры и блокируется до отмены контекста.
func (p *Populator) Run(ctx context.Context) error {
	p.log.Info().Int("workers", p.workers).Msg("populator: воркеры запущены")
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()
	p.log.Info().Msg("populator: воркеры остановлены")
	return nil
}

func (p *Populator) loop(ctx context.Context, id int) {
	logger := p.log.With().Int("worker", id).Logger()
	for {
		task, err := p.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error().Err(err).Msg("populator: не удалось получить задачу")
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff):
			}
			continue
		}
		if err := p.handle(ctx, task); err != nil {
			logger.Error().Err(err).
				Str("task_id", task.ID).
				Str("session_id", task.SessionID).
				Msg("populator: задача завершилась ошибкой")
			continue
		}
		logger.Debug().Str("task_id", task.ID).Str("session_id", task.SessionID).Msg("populator: задача выполнена")
	}
}
