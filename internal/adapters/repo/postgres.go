package repo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/metrics"
)

//go:embed schema.sql
var schemaSQL string

const queryTimeout = 5 * time.Second

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.QuestionRepo = (*Postgres)(nil)
	_ domain.AccountRepo  = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), queryTimeout)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

// EnsureSchema создаёт таблицы, если их ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, schemaSQL)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "qotw", start, err)
	return err
}

const questionColumns = `id, guild_id, text, priority, created_by, COALESCE(question_number, 0), created_at, activated_at`

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	err := row.Scan(&q.ID, &q.GuildID, &q.Text, &q.Priority, &q.CreatedBy, &q.QuestionNumber, &q.CreatedAt, &q.ActivatedAt)
	return q, err
}

// SaveQuestion реализует domain.QuestionRepo.
func (p *Postgres) SaveQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	start := time.Now()
	saved, err := scanQuestion(p.pool.QueryRow(ctx, `
INSERT INTO qotw_questions (guild_id, text, priority, created_by, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+questionColumns, q.GuildID, q.Text, q.Priority, q.CreatedBy, q.CreatedAt))
	metrics.ObserveNetworkRequest("postgres", "questions_insert", "qotw_questions", start, err)
	if err != nil {
		return domain.Question{}, err
	}
	return saved, nil
}

// ActivateNextQuestion извлекает следующий вопрос в одной транзакции.
// Строка счётчика сообщества блокируется первой, поэтому параллельные активации
// одного сообщества выполняются по очереди и номера не повторяются.
func (p *Postgres) ActivateNextQuestion(ctx context.Context, guildID string, now time.Time) (domain.Question, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "qotw_questions", start, err)
	if err != nil {
		return domain.Question{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO qotw_counters (guild_id) VALUES ($1) ON CONFLICT (guild_id) DO NOTHING`, guildID); err != nil {
		return domain.Question{}, fmt.Errorf("счётчик сообщества: %w", err)
	}
	var last int
	if err := tx.QueryRow(ctx, `SELECT last_number FROM qotw_counters WHERE guild_id = $1 FOR UPDATE`, guildID).Scan(&last); err != nil {
		return domain.Question{}, fmt.Errorf("блокировка счётчика: %w", err)
	}

	start = time.Now()
	q, err := scanQuestion(tx.QueryRow(ctx, `
SELECT `+questionColumns+`
FROM qotw_questions
WHERE guild_id = $1 AND question_number IS NULL
ORDER BY priority DESC, created_at ASC, id ASC
LIMIT 1
FOR UPDATE SKIP LOCKED`, guildID))
	metrics.ObserveNetworkRequest("postgres", "questions_next", "qotw_questions", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, domain.ErrEmptyQueue
		}
		return domain.Question{}, err
	}

	next := last + 1
	if _, err := tx.Exec(ctx, `UPDATE qotw_questions SET question_number = $2, activated_at = $3 WHERE id = $1`, q.ID, next, now); err != nil {
		return domain.Question{}, fmt.Errorf("присвоение номера: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE qotw_counters SET last_number = $2 WHERE guild_id = $1`, guildID, next); err != nil {
		return domain.Question{}, fmt.Errorf("обновление счётчика: %w", err)
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "qotw_questions", start, err)
	if err != nil {
		return domain.Question{}, err
	}
	q.QuestionNumber = next
	activatedAt := now
	q.ActivatedAt = &activatedAt
	return q, nil
}

// FindActiveQuestion реализует domain.QuestionRepo.
func (p *Postgres) FindActiveQuestion(ctx context.Context, guildID string, questionNumber int) (domain.Question, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	q, err := scanQuestion(p.pool.QueryRow(ctx, `
SELECT `+questionColumns+`
FROM qotw_questions
WHERE guild_id = $1 AND question_number = $2`, guildID, questionNumber))
	metrics.ObserveNetworkRequest("postgres", "questions_find", "qotw_questions", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, false, nil
		}
		return domain.Question{}, false, err
	}
	return q, true, nil
}

// LatestActiveQuestion реализует domain.QuestionRepo.
func (p *Postgres) LatestActiveQuestion(ctx context.Context, guildID string) (domain.Question, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	q, err := scanQuestion(p.pool.QueryRow(ctx, `
SELECT `+questionColumns+`
FROM qotw_questions
WHERE guild_id = $1 AND question_number IS NOT NULL
ORDER BY question_number DESC
LIMIT 1`, guildID))
	metrics.ObserveNetworkRequest("postgres", "questions_latest", "qotw_questions", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, false, nil
		}
		return domain.Question{}, false, err
	}
	return q, true, nil
}

// ListPendingQuestions реализует domain.QuestionRepo.
func (p *Postgres) ListPendingQuestions(ctx context.Context, guildID string, limit int) ([]domain.Question, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	if limit <= 0 {
		limit = 25
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+questionColumns+`
FROM qotw_questions
WHERE guild_id = $1 AND question_number IS NULL
ORDER BY priority DESC, created_at ASC, id ASC
LIMIT $2`, guildID, limit)
	metrics.ObserveNetworkRequest("postgres", "questions_pending", "qotw_questions", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// GetOrCreateAccount реализует domain.AccountRepo.
func (p *Postgres) GetOrCreateAccount(ctx context.Context, userID string) (domain.Account, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	var acc domain.Account
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO qotw_accounts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING user_id, points, updated_at
`, userID).Scan(&acc.UserID, &acc.Points, &acc.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "accounts_ensure", "qotw_accounts", start, err)
	if err != nil {
		return domain.Account{}, err
	}
	return acc, nil
}

// IncrementAccount атомарно увеличивает баллы одной командой.
func (p *Postgres) IncrementAccount(ctx context.Context, userID string, amount int64) (domain.Account, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	var acc domain.Account
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO qotw_accounts (user_id, points)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET points = qotw_accounts.points + EXCLUDED.points, updated_at = now()
RETURNING user_id, points, updated_at
`, userID, amount).Scan(&acc.UserID, &acc.Points, &acc.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "accounts_increment", "qotw_accounts", start, err)
	if err != nil {
		return domain.Account{}, err
	}
	return acc, nil
}

// TopAccounts реализует domain.AccountRepo.
func (p *Postgres) TopAccounts(ctx context.Context, limit int) ([]domain.Account, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	if limit <= 0 {
		limit = 10
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT user_id, points, updated_at
FROM qotw_accounts
WHERE points > 0
ORDER BY points DESC, user_id ASC
LIMIT $1`, limit)
	metrics.ObserveNetworkRequest("postgres", "accounts_top", "qotw_accounts", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Account
	for rows.Next() {
		var acc domain.Account
		if err := rows.Scan(&acc.UserID, &acc.Points, &acc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}
