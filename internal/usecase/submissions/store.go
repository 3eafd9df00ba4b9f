package submissions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"qotw-bot/internal/domain"
)

// Session - сессия вместе с тредом, из которого она прочитана.
type Session struct {
	domain.Submission
	Thread domain.Thread
}

// Open сообщает, что сессия ещё ждёт ревью. Закрытый тред не считается открытым.
func (s Session) Open() bool {
	return s.Status == domain.SubmissionOpen && !s.Thread.Locked
}

// recentWindow - сколько держать в индексе сессию, которую листинг ещё не вернул.
const recentWindow = time.Minute

// Store читает сессии из списка тредов платформы и держит индекс
// только что открытых сессий, которые листинг мог ещё не вернуть.
type Store struct {
	gateway domain.ChatGateway
	guilds  domain.GuildDirectory

	mu     sync.Mutex
	recent map[string]tracked
	now    func() time.Time
}

type tracked struct {
	sub  domain.Submission
	seen time.Time
}

var _ domain.SessionLister = (*Store)(nil)

// NewStore создаёт хранилище сессий поверх шлюза платформы.
func NewStore(gateway domain.ChatGateway, guilds domain.GuildDirectory) *Store {
	return &Store{
		gateway: gateway,
		guilds:  guilds,
		recent:  make(map[string]tracked),
		now:     time.Now,
	}
}

// ListOpenSessions перечитывает активные треды площадки сообщества.
func (s *Store) ListOpenSessions(ctx context.Context, guildID string) ([]domain.Submission, error) {
	cfg, ok := s.guilds.Guild(guildID)
	if !ok || cfg.SubmissionChannelID == "" {
		return nil, domain.ErrNotConfigured
	}
	threads, err := s.gateway.ListActiveThreads(ctx, guildID, cfg.SubmissionChannelID)
	if err != nil {
		return nil, &domain.DeliveryError{Op: "list threads", Err: err}
	}

	listed := make(map[string]bool, len(threads))
	var open []domain.Submission
	for _, t := range threads {
		if t.ParentID != "" && t.ParentID != cfg.SubmissionChannelID {
			continue
		}
		sub, ok := domain.ParseSubmissionThread(t)
		if !ok {
			continue
		}
		if sub.GuildID == "" {
			sub.GuildID = guildID
		}
		listed[t.ID] = true
		if (Session{Submission: sub, Thread: t}).Open() {
			open = append(open, sub)
		}
	}

	// Листинг авторитетен для всего, что он вернул.
	s.mu.Lock()
	for id, tr := range s.recent {
		if tr.sub.GuildID != guildID {
			continue
		}
		if listed[id] || s.now().Sub(tr.seen) > recentWindow {
			delete(s.recent, id)
			continue
		}
		open = append(open, tr.sub)
	}
	s.mu.Unlock()

	sort.Slice(open, func(i, j int) bool {
		if !open[i].CreatedAt.Equal(open[j].CreatedAt) {
			return open[i].CreatedAt.Before(open[j].CreatedAt)
		}
		return open[i].SessionID < open[j].SessionID
	})
	return open, nil
}

// OpenSessionOf ищет открытую сессию автора в сообществе.
func (s *Store) OpenSessionOf(ctx context.Context, guildID, authorID string) (domain.Submission, bool, error) {
	open, err := s.ListOpenSessions(ctx, guildID)
	if err != nil {
		return domain.Submission{}, false, err
	}
	for _, sub := range open {
		if sub.AuthorID == authorID {
			return sub, true, nil
		}
	}
	return domain.Submission{}, false, nil
}

// Lookup читает сессию по идентификатору треда.
func (s *Store) Lookup(ctx context.Context, sessionID string) (Session, error) {
	thread, err := s.gateway.Thread(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.Forget(sessionID)
			return Session{}, domain.ErrNotFound
		}
		return Session{}, &domain.DeliveryError{Op: "get thread", Err: err}
	}
	// Сессией считается только тред площадки ответов своего сообщества.
	cfg, ok := s.guilds.Guild(thread.GuildID)
	if !ok || cfg.SubmissionChannelID == "" || thread.ParentID != cfg.SubmissionChannelID {
		return Session{}, domain.ErrNotFound
	}
	sub, ok := domain.ParseSubmissionThread(thread)
	if !ok {
		return Session{}, domain.ErrNotFound
	}
	return Session{Submission: sub, Thread: thread}, nil
}

// Track запоминает только что открытую сессию.
func (s *Store) Track(sub domain.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent[sub.SessionID] = tracked{sub: sub, seen: s.now()}
}

// Forget убирает сессию из индекса.
func (s *Store) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recent, sessionID)
}
