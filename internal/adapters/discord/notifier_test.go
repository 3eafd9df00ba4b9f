package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"qotw-bot/internal/domain"
)

type sentMessage struct {
	target string
	direct bool
	msg    domain.OutgoingMessage
}

type fakeMessenger struct {
	sent    []sentMessage
	failDM  error
	failLog error
}

func (f *fakeMessenger) SendMessage(_ context.Context, channelID string, msg domain.OutgoingMessage) error {
	if f.failLog != nil {
		return f.failLog
	}
	f.sent = append(f.sent, sentMessage{target: channelID, msg: msg})
	return nil
}

func (f *fakeMessenger) SendDirect(_ context.Context, userID string, msg domain.OutgoingMessage) error {
	if f.failDM != nil {
		return f.failDM
	}
	f.sent = append(f.sent, sentMessage{target: userID, direct: true, msg: msg})
	return nil
}

var testGuild = domain.GuildConfig{GuildID: "g1", ReviewLogChannelID: "log", ReviewRoleID: "reviewers"}

func TestNotifierRoutesKinds(t *testing.T) {
	sub := domain.Submission{SessionID: "t1", QuestionNumber: 7, AuthorID: "alice"}
	tests := []struct {
		name    string
		note    domain.Notification
		targets []string
		want    string
	}{
		{
			name:    "points go to the author",
			note:    domain.Notification{Kind: domain.NotificationAccountIncremented, UserID: "alice", Points: 3, Submission: sub, Guild: testGuild},
			targets: []string{"dm:alice"},
			want:    "**3** QOTW point",
		},
		{
			name:    "accept goes to review log",
			note:    domain.Notification{Kind: domain.NotificationSubmissionAccepted, UserID: "alice", ReviewerID: "rev", BestAnswer: true, Submission: sub, Guild: testGuild},
			targets: []string{"log"},
			want:    "⭐ best answers by <@rev>",
		},
		{
			name:    "decline goes to both",
			note:    domain.Notification{Kind: domain.NotificationSubmissionDeclined, UserID: "alice", Submission: sub, Guild: testGuild},
			targets: []string{"dm:alice", "log"},
			want:    "declined",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &fakeMessenger{}
			if err := NewNotifier(out).Deliver(context.Background(), tt.note); err != nil {
				t.Fatalf("Deliver: %v", err)
			}
			if len(out.sent) != len(tt.targets) {
				t.Fatalf("ожидали %d сообщений, получили %d", len(tt.targets), len(out.sent))
			}
			for i, target := range tt.targets {
				got := out.sent[i].target
				if out.sent[i].direct {
					got = "dm:" + got
				}
				if got != target {
					t.Fatalf("сообщение %d ушло в %s, ожидали %s", i, got, target)
				}
			}
			if !strings.Contains(out.sent[len(out.sent)-1].msg.Description, tt.want) && !strings.Contains(out.sent[0].msg.Description, tt.want) {
				t.Fatalf("текст не содержит %q: %+v", tt.want, out.sent)
			}
		})
	}
}

func TestNotifierReminderMentionsRoleOnly(t *testing.T) {
	out := &fakeMessenger{}
	err := NewNotifier(out).Deliver(context.Background(), domain.Notification{Kind: domain.NotificationReviewReminder, OpenSessions: 2, Guild: testGuild})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(out.sent) != 1 || out.sent[0].target != "log" {
		t.Fatalf("unexpected delivery: %+v", out.sent)
	}
	msg := out.sent[0].msg
	if !strings.HasPrefix(msg.Content, "<@&reviewers>") || len(msg.MentionRoles) != 1 || len(msg.MentionUsers) != 0 {
		t.Fatalf("unexpected reminder: %+v", msg)
	}
}

func TestNotifierErrors(t *testing.T) {
	out := &fakeMessenger{}
	err := NewNotifier(out).Deliver(context.Background(), domain.Notification{Kind: domain.NotificationReviewReminder})
	if !errors.Is(err, domain.ErrNotConfigured) || !errors.Is(err, domain.ErrDelivery) {
		t.Fatalf("ожидали ошибку конфигурации, получили %v", err)
	}

	out = &fakeMessenger{failDM: errors.New("dms closed")}
	err = NewNotifier(out).Deliver(context.Background(), domain.Notification{Kind: domain.NotificationSubmissionDeclined, UserID: "alice", Guild: testGuild})
	if !errors.Is(err, domain.ErrDelivery) {
		t.Fatalf("ожидали DeliveryError, получили %v", err)
	}
	if len(out.sent) != 1 || out.sent[0].target != "log" {
		t.Fatal("review log must still be written when the DM fails")
	}
}

func TestNotifierDeclineReportsBothFailures(t *testing.T) {
	dmErr := errors.New("dms closed")
	logErr := errors.New("missing access")
	out := &fakeMessenger{failDM: dmErr, failLog: logErr}
	err := NewNotifier(out).Deliver(context.Background(), domain.Notification{Kind: domain.NotificationSubmissionDeclined, UserID: "alice", Guild: testGuild})
	if !errors.Is(err, dmErr) || !errors.Is(err, logErr) {
		t.Fatalf("ожидали обе ошибки доставки, получили %v", err)
	}
}
