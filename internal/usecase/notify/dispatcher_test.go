package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"qotw-bot/internal/domain"
)

type recordingSink struct {
	mu    sync.Mutex
	got   []domain.Notification
	err   error
	block chan struct{}
}

func (s *recordingSink) Deliver(ctx context.Context, n domain.Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *recordingSink) kinds() []domain.NotificationKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(s.got))
	for _, n := range s.got {
		out = append(out, n.Kind)
	}
	return out
}

func TestDispatcherRoutesByKind(t *testing.T) {
	d := NewDispatcher(time.Second, zerolog.Nop())
	dm := &recordingSink{}
	staff := &recordingSink{}
	d.Register("dm", dm, domain.NotificationAccountIncremented, domain.NotificationSubmissionDeclined)
	d.Register("staff", staff, domain.NotificationReviewReminder)

	ctx := context.Background()
	d.Notify(ctx, domain.Notification{Kind: domain.NotificationAccountIncremented, UserID: "u1"})
	d.Notify(ctx, domain.Notification{Kind: domain.NotificationReviewReminder, GuildID: "g1"})
	d.Notify(ctx, domain.Notification{Kind: domain.NotificationSubmissionAccepted})
	d.Wait()

	if got := dm.kinds(); len(got) != 1 || got[0] != domain.NotificationAccountIncremented {
		t.Fatalf("dm получил %v", got)
	}
	if got := staff.kinds(); len(got) != 1 || got[0] != domain.NotificationReviewReminder {
		t.Fatalf("staff получил %v", got)
	}
}

func TestDispatcherDoesNotBlockCaller(t *testing.T) {
	d := NewDispatcher(time.Second, zerolog.Nop())
	slow := &recordingSink{block: make(chan struct{})}
	d.Register("slow", slow, domain.NotificationSubmissionAccepted)

	done := make(chan struct{})
	go func() {
		d.Notify(context.Background(), domain.Notification{Kind: domain.NotificationSubmissionAccepted})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify заблокировал вызывающего")
	}
	close(slow.block)
	d.Wait()
	if len(slow.kinds()) != 1 {
		t.Fatal("уведомление не доставлено")
	}
}

func TestDispatcherSwallowsSinkErrors(t *testing.T) {
	d := NewDispatcher(time.Second, zerolog.Nop())
	broken := &recordingSink{err: errors.New("discord is down")}
	healthy := &recordingSink{}
	d.Register("broken", broken, domain.NotificationSubmissionDeclined)
	d.Register("healthy", healthy, domain.NotificationSubmissionDeclined)

	d.Notify(context.Background(), domain.Notification{Kind: domain.NotificationSubmissionDeclined})
	d.Wait()
	if len(healthy.kinds()) != 1 {
		t.Fatal("ошибка одного синка не должна мешать другому")
	}
}
