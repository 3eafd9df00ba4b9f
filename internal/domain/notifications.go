package domain

import "context"

// NotificationKind определяет тип уведомления QOTW.
type NotificationKind string

const (
	NotificationAccountIncremented NotificationKind = "ACCOUNT_INCREMENTED"
	NotificationSubmissionAccepted NotificationKind = "SUBMISSION_ACCEPTED"
	NotificationSubmissionDeclined NotificationKind = "SUBMISSION_DECLINED"
	NotificationReviewReminder     NotificationKind = "REVIEW_REMINDER"
)

// Notification содержит данные события для синков.
type Notification struct {
	GuildID    string
	Kind       NotificationKind
	UserID     string
	ReviewerID string
	Submission Submission
	BestAnswer bool
	Points     int64
	// OpenSessions заполняется только для напоминаний.
	OpenSessions int
	Guild        GuildConfig
}

// Notifier принимает уведомления по принципу fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotificationSink доставляет уведомление в конкретный канал.
type NotificationSink interface {
	Deliver(ctx context.Context, n Notification) error
}
