package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/metrics"
)

// Report - итог одного прогона джобы.
type Report struct {
	RunID    string
	Notified []string
	Idle     []string
	Skipped  []string
	Repeated []string
	Failed   map[string]error
}

// Job напоминает ревьюерам о непроверенных ответах. Данные только читает.
type Job struct {
	guilds   domain.GuildDirectory
	sessions domain.SessionLister
	notifier domain.Notifier
	guard    domain.OnceGuard
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewJob создаёт джобу напоминаний.
func NewJob(guilds domain.GuildDirectory, sessions domain.SessionLister, notifier domain.Notifier, guard domain.OnceGuard, logger zerolog.Logger) *Job {
	return &Job{
		guilds:   guilds,
		sessions: sessions,
		notifier: notifier,
		guard:    guard,
		ttl:      8 * 24 * time.Hour,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.With().Str("component", "reminder").Logger(),
	}
}

// Execute проверяет все сообщества. Ошибка одного сообщества не прерывает прогон.
func (j *Job) Execute(ctx context.Context) Report {
	report := Report{RunID: uuid.NewString(), Failed: make(map[string]error)}
	logger := j.log.With().Str("run_id", report.RunID).Logger()
	year, week := j.now().ISOWeek()

	for _, cfg := range j.guilds.Guilds() {
		if ctx.Err() != nil {
			report.Failed[cfg.GuildID] = ctx.Err()
			continue
		}
		result, err := j.remind(ctx, cfg, year, week)
		metrics.ReminderRuns.WithLabelValues(result).Inc()
		switch result {
		case "notified":
			report.Notified = append(report.Notified, cfg.GuildID)
		case "idle":
			report.Idle = append(report.Idle, cfg.GuildID)
		case "skipped":
			report.Skipped = append(report.Skipped, cfg.GuildID)
			logger.Debug().Str("guild_id", cfg.GuildID).Msg("reminder: каналы ревью не настроены")
		case "repeated":
			report.Repeated = append(report.Repeated, cfg.GuildID)
		default:
			report.Failed[cfg.GuildID] = err
			logger.Error().Err(err).Str("guild_id", cfg.GuildID).Msg("reminder: проверка сообщества не удалась")
		}
	}

	logger.Info().
		Int("notified", len(report.Notified)).
		Int("idle", len(report.Idle)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Msg("reminder: прогон завершён")
	return report
}

func (j *Job) remind(ctx context.Context, cfg domain.GuildConfig, year, week int) (string, error) {
	if cfg.ReviewLogChannelID == "" || cfg.SubmissionChannelID == "" {
		return "skipped", nil
	}
	open, err := j.sessions.ListOpenSessions(ctx, cfg.GuildID)
	if err != nil {
		return "error", fmt.Errorf("список сессий: %w", err)
	}
	if len(open) == 0 {
		return "idle", nil
	}

	key := fmt.Sprintf("reminder:%s:%d-W%02d", cfg.GuildID, year, week)
	ran, err := j.guard.Once(ctx, key, j.ttl, func() error {
		j.notifier.Notify(ctx, domain.Notification{
			GuildID:      cfg.GuildID,
			Kind:         domain.NotificationReviewReminder,
			OpenSessions: len(open),
			Guild:        cfg,
		})
		return nil
	})
	if err != nil {
		return "error", err
	}
	if !ran {
		return "repeated", nil
	}
	return "notified", nil
}
