package domain

import (
	"context"
	"time"
)

// QuestionRepo хранит очередь вопросов.
type QuestionRepo interface {
	SaveQuestion(ctx context.Context, q Question) (Question, error)
	// ActivateNextQuestion атомарно извлекает следующий вопрос и присваивает ему номер.
	// Возвращает ErrEmptyQueue, если ожидающих вопросов нет.
	ActivateNextQuestion(ctx context.Context, guildID string, now time.Time) (Question, error)
	FindActiveQuestion(ctx context.Context, guildID string, questionNumber int) (Question, bool, error)
	LatestActiveQuestion(ctx context.Context, guildID string) (Question, bool, error)
	ListPendingQuestions(ctx context.Context, guildID string, limit int) ([]Question, error)
}

// AccountRepo хранит баллы пользователей.
type AccountRepo interface {
	GetOrCreateAccount(ctx context.Context, userID string) (Account, error)
	// IncrementAccount атомарно увеличивает баллы и возвращает новое значение.
	IncrementAccount(ctx context.Context, userID string, amount int64) (Account, error)
	TopAccounts(ctx context.Context, limit int) ([]Account, error)
}

// QuestionFinder ищет активированный вопрос по номеру.
type QuestionFinder interface {
	FindByNumber(ctx context.Context, guildID string, questionNumber int) (Question, bool, error)
}

// PointsLedger начисляет баллы.
type PointsLedger interface {
	Increment(ctx context.Context, userID string, amount int64) (Account, error)
}

// ChatGateway - операции платформы, на которые опирается движок.
type ChatGateway interface {
	CreatePrivateThread(ctx context.Context, parentID, name string) (Thread, error)
	AddThreadMember(ctx context.Context, threadID, userID string) error
	ListActiveThreads(ctx context.Context, guildID, parentID string) ([]Thread, error)
	// Thread возвращает ErrNotFound, если тред удалён.
	Thread(ctx context.Context, threadID string) (Thread, error)
	RenameThread(ctx context.Context, threadID, name string) error
	LockAndArchiveThread(ctx context.Context, threadID string) error
	DeleteThread(ctx context.Context, threadID string) error
	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) error
	// ThreadMessages возвращает историю треда от старых к новым.
	ThreadMessages(ctx context.Context, threadID string) ([]Message, error)
}

// SessionLister отдаёт открытые сессии сообщества, перечитывая платформу.
type SessionLister interface {
	ListOpenSessions(ctx context.Context, guildID string) ([]Submission, error)
}

// MirroredMessage - сообщение автора для публикации в витрине.
type MirroredMessage struct {
	Content string
}

// MirrorRequest описывает копирование принятого ответа в витрину.
type MirrorRequest struct {
	GuildID         string
	ForumID         string
	Submission      Submission
	AuthorName      string
	AuthorAvatarURL string
	BestAnswer      bool
	Messages        []MirroredMessage
}

// Mirror копирует принятый ответ в витрину.
type Mirror interface {
	Copy(ctx context.Context, req MirrorRequest) error
}

// OnceGuard выполняет функцию не более одного раза на ключ.
// Возвращает false без вызова fn, если ключ уже занят. При ошибке fn ключ освобождается.
type OnceGuard interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) (bool, error)
}

// GuildDirectory отдаёт настройки сообществ.
type GuildDirectory interface {
	Guild(guildID string) (GuildConfig, bool)
	Guilds() []GuildConfig
}
