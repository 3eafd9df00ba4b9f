package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	acceptedMark = "✅"
	declinedMark = "❌"
	nameSep      = " — "
)

// SubmissionThreadName строит имя треда сессии: номер вопроса и ID автора.
func SubmissionThreadName(questionNumber int, authorID string) string {
	return fmt.Sprintf("%d%s%s", questionNumber, nameSep, authorID)
}

// MarkThreadName помечает имя треда итоговым статусом, заменяя прежнюю отметку.
func MarkThreadName(name string, status SubmissionStatus) string {
	base, _ := splitMark(name)
	switch status {
	case SubmissionAccepted:
		return acceptedMark + " " + base
	case SubmissionDeclined:
		return declinedMark + " " + base
	default:
		return base
	}
}

// ParseSubmissionThread восстанавливает сессию по треду. Возвращает false,
// если тред не является тредом сессии.
func ParseSubmissionThread(t Thread) (Submission, bool) {
	base, status := splitMark(t.Name)
	numberRaw, authorID, ok := strings.Cut(base, nameSep)
	if !ok {
		return Submission{}, false
	}
	number, err := strconv.Atoi(strings.TrimSpace(numberRaw))
	if err != nil || number <= 0 {
		return Submission{}, false
	}
	authorID = strings.TrimSpace(authorID)
	if authorID == "" {
		return Submission{}, false
	}
	return Submission{
		SessionID:      t.ID,
		GuildID:        t.GuildID,
		QuestionNumber: number,
		AuthorID:       authorID,
		Status:         status,
		CreatedAt:      t.CreatedAt,
	}, true
}

func splitMark(name string) (string, SubmissionStatus) {
	trimmed := strings.TrimSpace(name)
	switch {
	case strings.HasPrefix(trimmed, acceptedMark):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, acceptedMark)), SubmissionAccepted
	case strings.HasPrefix(trimmed, declinedMark):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, declinedMark)), SubmissionDeclined
	default:
		return trimmed, SubmissionOpen
	}
}
