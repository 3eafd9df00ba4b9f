package points

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/lock"
	"qotw-bot/internal/infra/metrics"
)

// Ledger ведёт учёт баллов за принятые ответы.
type Ledger struct {
	repo  domain.AccountRepo
	locks *lock.Keyed
	log   zerolog.Logger
}

var _ domain.PointsLedger = (*Ledger)(nil)

// NewLedger создаёт учёт баллов.
func NewLedger(repo domain.AccountRepo, logger zerolog.Logger) *Ledger {
	return &Ledger{
		repo:  repo,
		locks: lock.NewKeyed(),
		log:   logger.With().Str("component", "points").Logger(),
	}
}

// GetOrCreate возвращает счёт пользователя, создавая его с нулём баллов.
func (l *Ledger) GetOrCreate(ctx context.Context, userID string) (domain.Account, error) {
	if userID == "" {
		return domain.Account{}, &domain.ValidationError{Field: "user_id", Reason: "must not be blank"}
	}
	acc, err := l.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return domain.Account{}, &domain.StorageError{Op: "get account", Err: err}
	}
	return acc, nil
}

// Increment начисляет баллы. Начисления одному пользователю выполняются по очереди,
// разным пользователям - параллельно.
func (l *Ledger) Increment(ctx context.Context, userID string, amount int64) (domain.Account, error) {
	if userID == "" {
		return domain.Account{}, &domain.ValidationError{Field: "user_id", Reason: "must not be blank"}
	}
	if amount <= 0 {
		return domain.Account{}, &domain.ValidationError{Field: "amount", Reason: fmt.Sprintf("must be positive, got %d", amount)}
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	acc, err := l.repo.IncrementAccount(ctx, userID, amount)
	if err != nil {
		l.log.Error().Err(err).Str("user_id", userID).Int64("amount", amount).Msg("points: не удалось начислить баллы")
		return domain.Account{}, &domain.StorageError{Op: "increment account", Err: err}
	}
	metrics.PointsAwarded.Add(float64(amount))
	l.log.Info().Str("user_id", userID).Int64("points", acc.Points).Msg("points: баллы начислены")
	return acc, nil
}

// Leaderboard возвращает лидеров по баллам.
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]domain.Account, error) {
	switch {
	case limit <= 0:
		limit = 10
	case limit > 100:
		limit = 100
	}
	top, err := l.repo.TopAccounts(ctx, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "top accounts", Err: err}
	}
	return top, nil
}
