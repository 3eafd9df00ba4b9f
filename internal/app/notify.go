package app

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"qotw-bot/internal/adapters/discord"
	"qotw-bot/internal/adapters/telegram"
	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/config"
	"qotw-bot/internal/usecase/notify"
)

// NewDispatcher регистрирует синки уведомлений: Discord для всех типов,
// служебный чат Telegram для событий ревью, если он настроен.
func NewDispatcher(cfg config.AppConfig, gateway *discord.Gateway, logger zerolog.Logger) *notify.Dispatcher {
	d := notify.NewDispatcher(cfg.QOTW.NotifyTimeout, logger)
	d.Register("discord", discord.NewNotifier(gateway),
		domain.NotificationAccountIncremented,
		domain.NotificationSubmissionAccepted,
		domain.NotificationSubmissionDeclined,
		domain.NotificationReviewReminder,
	)

	if cfg.Telegram.Token == "" || cfg.Telegram.StaffChatID == 0 {
		return d
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Error().Err(err).Msg("app: не удалось создать Telegram-бота, служебный чат отключён")
		return d
	}
	d.Register("telegram", telegram.NewNotifier(botAPI, cfg.Telegram.StaffChatID),
		domain.NotificationSubmissionAccepted,
		domain.NotificationSubmissionDeclined,
		domain.NotificationReviewReminder,
	)
	return d
}
