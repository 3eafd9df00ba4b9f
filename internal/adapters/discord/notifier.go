package discord

import (
	"context"
	"errors"
	"fmt"

	"qotw-bot/internal/domain"
)

// messenger - часть шлюза, нужная синку уведомлений.
type messenger interface {
	SendMessage(ctx context.Context, channelID string, msg domain.OutgoingMessage) error
	SendDirect(ctx context.Context, userID string, msg domain.OutgoingMessage) error
}

// Notifier доставляет уведомления QOTW в личку автору и в канал ревью сообщества.
type Notifier struct {
	out messenger
}

var _ domain.NotificationSink = (*Notifier)(nil)

// NewNotifier создаёт синк.
func NewNotifier(out messenger) *Notifier {
	return &Notifier{out: out}
}

// Deliver реализует domain.NotificationSink.
func (n *Notifier) Deliver(ctx context.Context, note domain.Notification) error {
	switch note.Kind {
	case domain.NotificationAccountIncremented:
		return n.direct(ctx, note, domain.OutgoingMessage{
			Title: "QOTW Point Awarded",
			Description: fmt.Sprintf("Your submission for Question of the Week #%d has been accepted.\nYou now have **%d** QOTW point(s).",
				note.Submission.QuestionNumber, note.Points),
		})
	case domain.NotificationSubmissionAccepted:
		verdict := "accepted"
		if note.BestAnswer {
			verdict = "accepted as one of the ⭐ best answers"
		}
		return n.reviewLog(ctx, note, domain.OutgoingMessage{
			Title:       "Submission Accepted",
			Description: fmt.Sprintf("%s by <@%s> was %s%s.", submissionRef(note.Submission), note.UserID, verdict, reviewerSuffix(note.ReviewerID)),
		})
	case domain.NotificationSubmissionDeclined:
		dmErr := n.direct(ctx, note, domain.OutgoingMessage{
			Title: "QOTW Submission Declined",
			Description: fmt.Sprintf("Your submission for Question of the Week #%d has been reviewed and declined.\nThanks for taking part, try again next week!",
				note.Submission.QuestionNumber),
		})
		logErr := n.reviewLog(ctx, note, domain.OutgoingMessage{
			Title:       "Submission Declined",
			Description: fmt.Sprintf("%s by <@%s> was declined%s.", submissionRef(note.Submission), note.UserID, reviewerSuffix(note.ReviewerID)),
		})
		return errors.Join(dmErr, logErr)
	case domain.NotificationReviewReminder:
		msg := domain.OutgoingMessage{
			Content: fmt.Sprintf("**Reminder**\nThe QOTW has not been reviewed yet. %d submission(s) are still open.", note.OpenSessions),
		}
		if role := note.Guild.ReviewRoleID; role != "" {
			msg.Content = "<@&" + role + ">\n" + msg.Content
			msg.MentionRoles = []string{role}
		}
		return n.reviewLog(ctx, note, msg)
	default:
		return fmt.Errorf("неизвестный тип уведомления %q", note.Kind)
	}
}

func (n *Notifier) direct(ctx context.Context, note domain.Notification, msg domain.OutgoingMessage) error {
	if note.UserID == "" {
		return &domain.DeliveryError{Op: "dm", Err: domain.ErrNotFound}
	}
	if err := n.out.SendDirect(ctx, note.UserID, msg); err != nil {
		return &domain.DeliveryError{Op: "dm", Err: err}
	}
	return nil
}

func (n *Notifier) reviewLog(ctx context.Context, note domain.Notification, msg domain.OutgoingMessage) error {
	channelID := note.Guild.ReviewLogChannelID
	if channelID == "" {
		return &domain.DeliveryError{Op: "review log", Err: domain.ErrNotConfigured}
	}
	if err := n.out.SendMessage(ctx, channelID, msg); err != nil {
		return &domain.DeliveryError{Op: "review log", Err: err}
	}
	return nil
}

func submissionRef(sub domain.Submission) string {
	if sub.SessionID == "" {
		return fmt.Sprintf("Submission for QOTW #%d", sub.QuestionNumber)
	}
	return fmt.Sprintf("Submission <#%s> for QOTW #%d", sub.SessionID, sub.QuestionNumber)
}

func reviewerSuffix(reviewerID string) string {
	if reviewerID == "" {
		return ""
	}
	return " by <@" + reviewerID + ">"
}
