package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"qotw-bot/internal/domain"
)

// Store хранит очередь вопросов и баллы в памяти. Используется локально и в тестах.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	questions map[string][]domain.Question
	counters  map[string]int
	accounts  map[string]domain.Account
	now       func() time.Time
}

var (
	_ domain.QuestionRepo = (*Store)(nil)
	_ domain.AccountRepo  = (*Store)(nil)
)

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		questions: make(map[string][]domain.Question),
		counters:  make(map[string]int),
		accounts:  make(map[string]domain.Account),
		now:       time.Now,
	}
}

// SaveQuestion реализует domain.QuestionRepo.
func (s *Store) SaveQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	q.ID = s.nextID
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now().UTC()
	}
	s.questions[q.GuildID] = append(s.questions[q.GuildID], q)
	return q, nil
}

// ActivateNextQuestion реализует domain.QuestionRepo.
func (s *Store) ActivateNextQuestion(_ context.Context, guildID string, now time.Time) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.questions[guildID]
	best := -1
	for i, q := range list {
		if q.Activated() {
			continue
		}
		if best == -1 || domain.QuestionBefore(q, list[best]) {
			best = i
		}
	}
	if best == -1 {
		return domain.Question{}, domain.ErrEmptyQueue
	}
	s.counters[guildID]++
	activatedAt := now
	list[best].QuestionNumber = s.counters[guildID]
	list[best].ActivatedAt = &activatedAt
	return list[best], nil
}

// FindActiveQuestion реализует domain.QuestionRepo.
func (s *Store) FindActiveQuestion(_ context.Context, guildID string, questionNumber int) (domain.Question, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.questions[guildID] {
		if q.Activated() && q.QuestionNumber == questionNumber {
			return q, true, nil
		}
	}
	return domain.Question{}, false, nil
}

// LatestActiveQuestion реализует domain.QuestionRepo.
func (s *Store) LatestActiveQuestion(_ context.Context, guildID string) (domain.Question, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest domain.Question
	for _, q := range s.questions[guildID] {
		if q.QuestionNumber > latest.QuestionNumber {
			latest = q
		}
	}
	return latest, latest.Activated(), nil
}

// ListPendingQuestions реализует domain.QuestionRepo.
func (s *Store) ListPendingQuestions(_ context.Context, guildID string, limit int) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []domain.Question
	for _, q := range s.questions[guildID] {
		if !q.Activated() {
			pending = append(pending, q)
		}
	}
	domain.SortPending(pending)
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// GetOrCreateAccount реализует domain.AccountRepo.
func (s *Store) GetOrCreateAccount(_ context.Context, userID string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		acc = domain.Account{UserID: userID, UpdatedAt: s.now().UTC()}
		s.accounts[userID] = acc
	}
	return acc, nil
}

// IncrementAccount реализует domain.AccountRepo.
func (s *Store) IncrementAccount(_ context.Context, userID string, amount int64) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[userID]
	acc.UserID = userID
	acc.Points += amount
	acc.UpdatedAt = s.now().UTC()
	s.accounts[userID] = acc
	return acc, nil
}

// TopAccounts реализует domain.AccountRepo.
func (s *Store) TopAccounts(_ context.Context, limit int) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		if acc.Points > 0 {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
