package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/metrics"
)

// Sender - часть tgbotapi.BotAPI, которой достаточно для отправки сообщений.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier дублирует события ревью в служебный чат Telegram.
type Notifier struct {
	bot    Sender
	chatID int64
}

var _ domain.NotificationSink = (*Notifier)(nil)

// NewNotifier создаёт синк служебного чата.
func NewNotifier(bot Sender, chatID int64) *Notifier {
	return &Notifier{bot: bot, chatID: chatID}
}

// Deliver реализует domain.NotificationSink.
func (n *Notifier) Deliver(ctx context.Context, note domain.Notification) error {
	text, ok := FormatNotification(note)
	if !ok {
		return nil
	}
	for _, part := range domain.SplitMessage(text, domain.TelegramMessageLimit) {
		if err := ctx.Err(); err != nil {
			return &domain.DeliveryError{Op: "telegram send", Err: err}
		}
		msg := tgbotapi.NewMessage(n.chatID, part)
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := n.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(n.chatID, 10), start, err)
		if err != nil {
			return &domain.DeliveryError{Op: "telegram send", Err: err}
		}
	}
	return nil
}

// FormatNotification готовит текст для служебного чата. Уведомления о баллах сюда не попадают.
func FormatNotification(note domain.Notification) (string, bool) {
	switch note.Kind {
	case domain.NotificationSubmissionAccepted:
		best := ""
		if note.BestAnswer {
			best = " ⭐"
		}
		return fmt.Sprintf("✅ QOTW #%d: ответ %s принят%s (сервер %s, ревьюер %s)",
			note.Submission.QuestionNumber, note.UserID, best, note.GuildID, orDash(note.ReviewerID)), true
	case domain.NotificationSubmissionDeclined:
		return fmt.Sprintf("❌ QOTW #%d: ответ %s отклонён (сервер %s, ревьюер %s)",
			note.Submission.QuestionNumber, note.UserID, note.GuildID, orDash(note.ReviewerID)), true
	case domain.NotificationReviewReminder:
		return fmt.Sprintf("⏰ Напоминание: на сервере %s ждут ревью %d ответ(ов) QOTW", note.GuildID, note.OpenSessions), true
	default:
		return "", false
	}
}

func orDash(v string) string {
	if v == "" {
		return "—"
	}
	return v
}
