package domain

import (
	"context"
	"time"
)

// PopulateTask - задача наполнения треда текстом вопроса после его создания.
type PopulateTask struct {
	ID             string    `json:"task_id"`
	GuildID        string    `json:"guild_id"`
	SessionID      string    `json:"session_id"`
	QuestionNumber int       `json:"question_number"`
	AuthorID       string    `json:"author_id"`
	RequestedAt    time.Time `json:"requested_at"`
}

// PopulateQueue описывает очередь задач наполнения сессий.
type PopulateQueue interface {
	Enqueue(ctx context.Context, task PopulateTask) error
	Pop(ctx context.Context) (PopulateTask, error)
}

// PendingSubmission - результат открытия сессии: тред создан, наполнение в очереди.
type PendingSubmission struct {
	Submission Submission
	TaskID     string
}
