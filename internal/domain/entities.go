package domain

import "time"

// SubmissionStatus описывает состояние сессии ответа.
type SubmissionStatus string

const (
	// SubmissionOpen - сессия ожидает ревью.
	SubmissionOpen SubmissionStatus = "OPEN"
	// SubmissionAccepted - ответ принят, очко начислено.
	SubmissionAccepted SubmissionStatus = "ACCEPTED"
	// SubmissionDeclined - ответ отклонён.
	SubmissionDeclined SubmissionStatus = "DECLINED"
)

// Terminal сообщает, что из статуса больше нет переходов.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionAccepted || s == SubmissionDeclined
}

// Question описывает вопрос недели из очереди сообщества.
type Question struct {
	ID             int64
	GuildID        string
	Text           string
	Priority       int
	CreatedBy      string
	QuestionNumber int
	CreatedAt      time.Time
	ActivatedAt    *time.Time
}

// Activated сообщает, что вопрос уже получил номер.
func (q Question) Activated() bool {
	return q.QuestionNumber > 0
}

// Submission описывает сессию ответа пользователя, живущую в приватном треде.
// SessionID совпадает с идентификатором треда.
type Submission struct {
	SessionID      string
	GuildID        string
	QuestionNumber int
	AuthorID       string
	Status         SubmissionStatus
	CreatedAt      time.Time
}

// Account хранит баллы пользователя.
type Account struct {
	UserID    string
	Points    int64
	UpdatedAt time.Time
}

// Member описывает участника сообщества в момент события.
type Member struct {
	ID        string
	Username  string
	AvatarURL string
	IsBot     bool
	IsSystem  bool
	TimedOut  bool
	Pending   bool
}

// Thread описывает тред платформы, в котором живёт сессия.
type Thread struct {
	ID        string
	GuildID   string
	ParentID  string
	Name      string
	Locked    bool
	Archived  bool
	CreatedAt time.Time
}

// Message описывает сообщение из истории треда.
type Message struct {
	ID              string
	AuthorID        string
	AuthorName      string
	AuthorAvatarURL string
	AuthorBot       bool
	// Default ложно для системных сообщений (закрепы, добавление участника и т.п.).
	Default   bool
	Content   string
	CreatedAt time.Time
}

// Button описывает кнопку под исходящим сообщением.
type Button struct {
	ID     string
	Label  string
	Danger bool
}

// OutgoingMessage - платформонезависимое исходящее сообщение.
type OutgoingMessage struct {
	Content      string
	Title        string
	Description  string
	Footer       string
	Buttons      []Button
	MentionUsers []string
	MentionRoles []string
}

// GuildConfig хранит настройки QOTW для одного сообщества.
type GuildConfig struct {
	GuildID             string `yaml:"guild_id"`
	QuestionChannelID   string `yaml:"question_channel_id"`
	SubmissionChannelID string `yaml:"submission_channel_id"`
	ShowcaseForumID     string `yaml:"showcase_forum_id"`
	ReviewRoleID        string `yaml:"review_role_id"`
	ReviewLogChannelID  string `yaml:"review_log_channel_id"`
}
