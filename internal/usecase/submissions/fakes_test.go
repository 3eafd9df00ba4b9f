package submissions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"qotw-bot/internal/domain"
)

// fakeGateway хранит треды в памяти и повторяет поведение платформы,
// нужное движку: приватные треды, листинг активных, переименование и архивация.
type fakeGateway struct {
	mu       sync.Mutex
	guildID  string
	nextID   int
	threads  map[string]*domain.Thread
	members  map[string][]string
	history  map[string][]domain.Message
	sent     map[string][]domain.OutgoingMessage
	renames  int
	failList error
	failSend error
}

func newFakeGateway(guildID string) *fakeGateway {
	return &fakeGateway{
		guildID: guildID,
		threads: make(map[string]*domain.Thread),
		members: make(map[string][]string),
		history: make(map[string][]domain.Message),
		sent:    make(map[string][]domain.OutgoingMessage),
	}
}

func (g *fakeGateway) CreatePrivateThread(_ context.Context, parentID, name string) (domain.Thread, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	t := &domain.Thread{
		ID:        fmt.Sprintf("thread-%d", g.nextID),
		GuildID:   g.guildID,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: time.Date(2024, 3, 4, 7, 0, g.nextID, 0, time.UTC),
	}
	g.threads[t.ID] = t
	return *t, nil
}

func (g *fakeGateway) AddThreadMember(_ context.Context, threadID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[threadID] = append(g.members[threadID], userID)
	return nil
}

func (g *fakeGateway) ListActiveThreads(_ context.Context, guildID, parentID string) ([]domain.Thread, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failList != nil {
		return nil, g.failList
	}
	var out []domain.Thread
	for _, t := range g.threads {
		if t.GuildID == guildID && t.ParentID == parentID && !t.Archived {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (g *fakeGateway) Thread(_ context.Context, threadID string) (domain.Thread, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.threads[threadID]
	if !ok {
		return domain.Thread{}, domain.ErrNotFound
	}
	return *t, nil
}

func (g *fakeGateway) RenameThread(_ context.Context, threadID, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.threads[threadID]
	if !ok {
		return domain.ErrNotFound
	}
	t.Name = name
	g.renames++
	return nil
}

func (g *fakeGateway) LockAndArchiveThread(_ context.Context, threadID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.threads[threadID]
	if !ok {
		return domain.ErrNotFound
	}
	t.Locked = true
	t.Archived = true
	return nil
}

func (g *fakeGateway) DeleteThread(_ context.Context, threadID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.threads, threadID)
	return nil
}

func (g *fakeGateway) SendMessage(_ context.Context, channelID string, msg domain.OutgoingMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSend != nil {
		return g.failSend
	}
	g.sent[channelID] = append(g.sent[channelID], msg)
	return nil
}

func (g *fakeGateway) ThreadMessages(_ context.Context, threadID string) ([]domain.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Message(nil), g.history[threadID]...), nil
}

func (g *fakeGateway) thread(id string) domain.Thread {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.threads[id]; ok {
		return *t
	}
	return domain.Thread{}
}

func (g *fakeGateway) messages(channelID string) []domain.OutgoingMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.OutgoingMessage(nil), g.sent[channelID]...)
}

type fakeNotifier struct {
	mu  sync.Mutex
	got []domain.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, note)
}

func (n *fakeNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(n.got))
	for _, note := range n.got {
		out = append(out, note.Kind)
	}
	return out
}

type fakeMirror struct {
	mu   sync.Mutex
	reqs []domain.MirrorRequest
	err  error
}

func (m *fakeMirror) Copy(_ context.Context, req domain.MirrorRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	return m.err
}

type fakeQuestions struct {
	questions map[int]domain.Question
}

func (f fakeQuestions) FindByNumber(_ context.Context, _ string, n int) (domain.Question, bool, error) {
	q, ok := f.questions[n]
	return q, ok, nil
}

// countingLedger считает начисления и может имитировать сбой хранилища.
type countingLedger struct {
	mu     sync.Mutex
	points map[string]int64
	calls  int
	err    error
}

func (l *countingLedger) Increment(_ context.Context, userID string, amount int64) (domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return domain.Account{}, l.err
	}
	if l.points == nil {
		l.points = make(map[string]int64)
	}
	l.points[userID] += amount
	return domain.Account{UserID: userID, Points: l.points[userID]}, nil
}

func (l *countingLedger) total(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.points[userID]
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, domain.PopulateTask) error {
	return fmt.Errorf("redis: connection refused")
}

func (failingQueue) Pop(ctx context.Context) (domain.PopulateTask, error) {
	<-ctx.Done()
	return domain.PopulateTask{}, ctx.Err()
}
