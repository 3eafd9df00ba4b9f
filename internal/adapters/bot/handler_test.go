package bot

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"qotw-bot/internal/domain"
)

func TestOpenButtonRoundTrip(t *testing.T) {
	n, ok := ParseOpenButton(OpenButtonID(42))
	if !ok || n != 42 {
		t.Fatalf("expected 42, got %d (%v)", n, ok)
	}
	for _, bad := range []string{"qotw-submission:delete", "qotw-submission:open:", "qotw-submission:open:x", "qotw-submission:open:0"} {
		if _, ok := ParseOpenButton(bad); ok {
			t.Fatalf("ожидали отказ для %q", bad)
		}
	}
}

func TestReplyFor(t *testing.T) {
	tests := []struct {
		err      error
		contains string
		internal bool
	}{
		{err: domain.ErrInvalidPriority, contains: "whole number"},
		{err: &domain.ValidationError{Field: "text", Reason: "must not be blank"}, contains: "Invalid text"},
		{err: domain.ErrEmptyQueue, contains: "queue is empty"},
		{err: &domain.EligibilityError{Reason: "bots cannot submit"}, contains: "not eligible"},
		{err: domain.ErrInvalidState, contains: "already been reviewed"},
		{err: domain.ErrNotAuthor, contains: "Only the author"},
		{err: fmt.Errorf("open: %w", domain.ErrNotConfigured), contains: "not configured"},
		{err: domain.ErrNotFound, contains: "not a submission thread"},
		{err: &domain.StorageError{Op: "increment", Err: errors.New("boom")}, contains: "Administrator", internal: true},
		{err: errors.New("unexpected"), contains: "Administrator", internal: true},
	}
	for _, tt := range tests {
		msg, internal := ReplyFor(tt.err)
		if !strings.Contains(msg, tt.contains) || internal != tt.internal {
			t.Fatalf("ReplyFor(%v) = %q, %v", tt.err, msg, internal)
		}
	}
}

func TestToMember(t *testing.T) {
	now := time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)
	m := toMember(&discordgo.Member{
		User:                       &discordgo.User{ID: "1", Username: "alice"},
		Pending:                    true,
		CommunicationDisabledUntil: &until,
	}, nil, now)
	if m.ID != "1" || !m.Pending || !m.TimedOut {
		t.Fatalf("unexpected member %+v", m)
	}

	past := now.Add(-time.Hour)
	m = toMember(&discordgo.Member{User: &discordgo.User{ID: "2", Bot: true}, CommunicationDisabledUntil: &past}, nil, now)
	if m.TimedOut || !m.IsBot {
		t.Fatalf("unexpected member %+v", m)
	}

	if m := toMember(nil, nil, now); m.ID != "" {
		t.Fatalf("expected empty member, got %+v", m)
	}
}

func TestModalValues(t *testing.T) {
	rows := []discordgo.MessageComponent{
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{&discordgo.TextInput{CustomID: modalTextField, Value: "What is a goroutine?"}}},
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{&discordgo.TextInput{CustomID: modalPriority, Value: "3"}}},
	}
	got := modalValues(rows)
	if got[modalTextField] != "What is a goroutine?" || got[modalPriority] != "3" {
		t.Fatalf("unexpected values %v", got)
	}
}

func TestFormatQueueAndLeaderboard(t *testing.T) {
	if FormatQueue(nil) != "The question queue is empty." {
		t.Fatal("empty queue text")
	}
	out := FormatQueue([]domain.Question{{Text: "Explain TCP handshake", Priority: 5}, {Text: strings.Repeat("x", 200)}})
	if !strings.Contains(out, "1. [priority 5] Explain TCP handshake") || !strings.Contains(out, "…") {
		t.Fatalf("unexpected queue %q", out)
	}
	board := FormatLeaderboard([]domain.Account{{UserID: "1", Points: 4}})
	if !strings.Contains(board, "1. <@1> — 4") {
		t.Fatalf("unexpected leaderboard %q", board)
	}
}

func TestApplicationCommandsTree(t *testing.T) {
	cmds := ApplicationCommands()
	if len(cmds) != 1 || cmds[0].Name != "qotw" {
		t.Fatalf("unexpected commands %+v", cmds)
	}
	names := map[string]bool{}
	for _, opt := range cmds[0].Options {
		names[opt.Name] = true
	}
	for _, want := range []string{"question-queue", "activate", "submissions", "leaderboard"} {
		if !names[want] {
			t.Fatalf("missing subcommand %s", want)
		}
	}
}
