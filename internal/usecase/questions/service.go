package questions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/lock"
	"qotw-bot/internal/infra/metrics"
)

// EnqueueRequest - сырой ввод из модального окна "добавить вопрос".
type EnqueueRequest struct {
	GuildID   string `validate:"required"`
	Text      string `validate:"required,max=1024"`
	Priority  string
	CreatedBy string `validate:"required"`
}

// Service управляет очередью вопросов сообществ.
type Service struct {
	repo     domain.QuestionRepo
	validate *validator.Validate
	locks    *lock.Keyed
	now      func() time.Time
	log      zerolog.Logger
}

var _ domain.QuestionFinder = (*Service)(nil)

// NewService создаёт сервис очереди.
func NewService(repo domain.QuestionRepo, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		locks:    lock.NewKeyed(),
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.With().Str("component", "questions").Logger(),
	}
}

// ParsePriority разбирает приоритет из пользовательского ввода.
// Пустая строка означает 0, всё кроме цифр и значения вне INTEGER - ErrInvalidPriority.
func ParsePriority(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, domain.ErrInvalidPriority
		}
	}
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, domain.ErrInvalidPriority
	}
	return int(value), nil
}

// Enqueue проверяет ввод и добавляет вопрос в очередь сообщества.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (domain.Question, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := s.validate.Struct(req); err != nil {
		return domain.Question{}, toValidationError(err)
	}
	priority, err := ParsePriority(req.Priority)
	if err != nil {
		return domain.Question{}, err
	}

	saved, err := s.repo.SaveQuestion(ctx, domain.Question{
		GuildID:   req.GuildID,
		Text:      req.Text,
		Priority:  priority,
		CreatedBy: req.CreatedBy,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Question{}, &domain.StorageError{Op: "save question", Err: err}
	}
	metrics.QuestionsEnqueued.Inc()
	s.log.Info().
		Str("guild_id", saved.GuildID).
		Int64("question_id", saved.ID).
		Int("priority", saved.Priority).
		Msg("questions: вопрос добавлен в очередь")
	return saved, nil
}

// ActivateNext извлекает следующий вопрос и присваивает ему номер.
// Активации одного сообщества выполняются строго по очереди.
func (s *Service) ActivateNext(ctx context.Context, guildID string) (domain.Question, error) {
	unlock := s.locks.Lock(guildID)
	defer unlock()

	q, err := s.repo.ActivateNextQuestion(ctx, guildID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQueue) {
			metrics.QuestionsActivated.WithLabelValues("empty").Inc()
			return domain.Question{}, domain.ErrEmptyQueue
		}
		metrics.QuestionsActivated.WithLabelValues("error").Inc()
		return domain.Question{}, &domain.StorageError{Op: "activate question", Err: err}
	}
	metrics.QuestionsActivated.WithLabelValues("ok").Inc()
	s.log.Info().
		Str("guild_id", guildID).
		Int("question_number", q.QuestionNumber).
		Int64("question_id", q.ID).
		Msg("questions: вопрос активирован")
	return q, nil
}

// FindByNumber реализует domain.QuestionFinder. Отсутствие вопроса не является ошибкой.
func (s *Service) FindByNumber(ctx context.Context, guildID string, questionNumber int) (domain.Question, bool, error) {
	q, ok, err := s.repo.FindActiveQuestion(ctx, guildID, questionNumber)
	if err != nil {
		return domain.Question{}, false, &domain.StorageError{Op: "find question", Err: err}
	}
	return q, ok, nil
}

// List возвращает ожидающие вопросы в порядке извлечения.
func (s *Service) List(ctx context.Context, guildID string, limit int) ([]domain.Question, error) {
	list, err := s.repo.ListPendingQuestions(ctx, guildID, limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "list questions", Err: err}
	}
	domain.SortPending(list)
	return list, nil
}

// Current возвращает последний активированный вопрос.
func (s *Service) Current(ctx context.Context, guildID string) (domain.Question, error) {
	q, ok, err := s.repo.LatestActiveQuestion(ctx, guildID)
	if err != nil {
		return domain.Question{}, &domain.StorageError{Op: "current question", Err: err}
	}
	if !ok {
		return domain.Question{}, fmt.Errorf("активный вопрос: %w", domain.ErrNotFound)
	}
	return q, nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	fe := fieldErrs[0]
	reason := fe.Tag()
	switch fe.Tag() {
	case "required":
		reason = "must not be blank"
	case "max":
		reason = "must be at most " + fe.Param() + " characters"
	}
	return &domain.ValidationError{Field: strings.ToLower(fe.Field()), Reason: reason}
}
