package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/cache"
	"qotw-bot/internal/infra/config"
)

type stubSessions struct {
	open map[string]int
	fail map[string]error
}

func (s stubSessions) ListOpenSessions(_ context.Context, guildID string) ([]domain.Submission, error) {
	if err := s.fail[guildID]; err != nil {
		return nil, err
	}
	out := make([]domain.Submission, s.open[guildID])
	for i := range out {
		out[i] = domain.Submission{GuildID: guildID, Status: domain.SubmissionOpen}
	}
	return out, nil
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []domain.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, note)
}

func guild(id string) domain.GuildConfig {
	return domain.GuildConfig{GuildID: id, SubmissionChannelID: id + "-subs", ReviewLogChannelID: id + "-log", ReviewRoleID: id + "-role"}
}

func newJob(sessions domain.SessionLister, notifier domain.Notifier, guilds ...domain.GuildConfig) *Job {
	job := NewJob(config.NewGuildSet(guilds...), sessions, notifier, cache.NewMemory(), zerolog.Nop())
	job.now = func() time.Time { return time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC) }
	return job
}

func TestReminderZeroSessionsEmitsNothing(t *testing.T) {
	notifier := &recordingNotifier{}
	job := newJob(stubSessions{}, notifier, guild("g1"))

	report := job.Execute(context.Background())
	assert.Empty(t, notifier.got)
	assert.Equal(t, []string{"g1"}, report.Idle)
}

func TestReminderNotifiesReviewers(t *testing.T) {
	notifier := &recordingNotifier{}
	job := newJob(stubSessions{open: map[string]int{"g1": 3}}, notifier, guild("g1"))

	report := job.Execute(context.Background())
	require.Len(t, notifier.got, 1)
	assert.Equal(t, domain.NotificationReviewReminder, notifier.got[0].Kind)
	assert.Equal(t, 3, notifier.got[0].OpenSessions)
	assert.Equal(t, "g1-role", notifier.got[0].Guild.ReviewRoleID)
	assert.Equal(t, []string{"g1"}, report.Notified)
	assert.NotEmpty(t, report.RunID)
}

func TestReminderIsolatesGuildFailures(t *testing.T) {
	notifier := &recordingNotifier{}
	incomplete := domain.GuildConfig{GuildID: "g0", SubmissionChannelID: "subs"}
	job := newJob(stubSessions{
		open: map[string]int{"g1": 1, "g3": 2},
		fail: map[string]error{"g2": errors.New("discord 500")},
	}, notifier, incomplete, guild("g1"), guild("g2"), guild("g3"))

	report := job.Execute(context.Background())
	assert.Equal(t, []string{"g0"}, report.Skipped)
	assert.Equal(t, []string{"g1", "g3"}, report.Notified)
	require.Contains(t, report.Failed, "g2")
	assert.Len(t, notifier.got, 2)
}

func TestReminderRunsOncePerWeek(t *testing.T) {
	notifier := &recordingNotifier{}
	job := newJob(stubSessions{open: map[string]int{"g1": 1}}, notifier, guild("g1"))

	job.Execute(context.Background())
	report := job.Execute(context.Background())
	assert.Len(t, notifier.got, 1)
	assert.Equal(t, []string{"g1"}, report.Repeated)

	job.now = func() time.Time { return time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC) }
	job.Execute(context.Background())
	assert.Len(t, notifier.got, 2)
}
