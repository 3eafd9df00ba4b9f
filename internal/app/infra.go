package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"qotw-bot/internal/adapters/memory"
	"qotw-bot/internal/adapters/repo"
	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/cache"
	"qotw-bot/internal/infra/config"
	"qotw-bot/internal/infra/db"
	"qotw-bot/internal/infra/queue"
)

// Infra собирает хранилища, guard и очередь по конфигу. Без PG_DSN и REDIS_ADDR
// всё живёт в памяти процесса, что подходит только для локального запуска.
type Infra struct {
	Questions domain.QuestionRepo
	Accounts  domain.AccountRepo
	Guard     domain.OnceGuard
	Queue     domain.PopulateQueue
	Guilds    *config.GuildSet

	closers []func()
}

// Open подключает инфраструктуру.
func Open(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*Infra, error) {
	infra := &Infra{}

	guilds, err := config.LoadGuilds(cfg.GuildsFile)
	if err != nil {
		return nil, fmt.Errorf("настройки сообществ: %w", err)
	}
	infra.Guilds = guilds

	if cfg.PGDSN != "" {
		pool, err := db.Connect(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, fmt.Errorf("подключение к БД: %w", err)
		}
		infra.closers = append(infra.closers, pool.Close)
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			infra.Close()
			return nil, fmt.Errorf("схема БД: %w", err)
		}
		infra.Questions, infra.Accounts = pg, pg
	} else {
		logger.Warn().Msg("app: PG_DSN не задан, очередь вопросов и баллы хранятся в памяти")
		store := memory.NewStore()
		infra.Questions, infra.Accounts = store, store
	}

	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("подключение к Redis: %w", err)
		}
		infra.closers = append(infra.closers, func() { _ = client.Close() })
		infra.Guard = cache.NewRedis(client, cfg.RedisPrefix)
		infra.Queue = queue.NewRedisPopulateQueue(client, cfg.QOTW.PopulateQueue)
	} else {
		logger.Warn().Msg("app: REDIS_ADDR не задан, guard и очередь наполнения в памяти")
		infra.Guard = cache.NewMemory()
		infra.Queue = queue.NewMemoryPopulateQueue(256)
	}
	return infra, nil
}

// Close освобождает подключения в обратном порядке.
func (i *Infra) Close() {
	for idx := len(i.closers) - 1; idx >= 0; idx-- {
		i.closers[idx]()
	}
	i.closers = nil
}
