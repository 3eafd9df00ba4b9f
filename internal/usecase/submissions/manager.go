package submissions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/metrics"
)

// DeleteButtonID - кнопка удаления сессии под приветственным сообщением.
const DeleteButtonID = "qotw-submission:delete"

// MissingQuestionNotice публикуется, если вопрос по номеру не найден.
const MissingQuestionNotice = "Could not retrieve current QOTW Question. Please contact an Administrator if you think that this is a mistake."

const submissionNote = `To maximize your chances of getting this week's QOTW Point make sure to:
- Provide a **Code example** (if possible)
- Try to answer the question as detailed as possible.

Staff usually won't reply in here.`

// OpenCommand открывает сессию ответа на вопрос.
type OpenCommand struct {
	GuildID        string
	QuestionNumber int
	Author         domain.Member
}

// AcceptCommand принимает ответ. Автор берётся из треда.
type AcceptCommand struct {
	SessionID  string
	ReviewerID string
	BestAnswer bool
}

// DeclineCommand отклоняет ответ.
type DeclineCommand struct {
	SessionID  string
	ReviewerID string
}

// DeleteCommand удаляет тред сессии по просьбе автора.
type DeleteCommand struct {
	SessionID   string
	RequesterID string
}

// Deps - зависимости менеджера.
type Deps struct {
	Store     *Store
	Gateway   domain.ChatGateway
	Questions domain.QuestionFinder
	Ledger    domain.PointsLedger
	Notifier  domain.Notifier
	// Mirror может быть nil, тогда принятые ответы не копируются.
	Mirror   domain.Mirror
	Guard    domain.OnceGuard
	Queue    domain.PopulateQueue
	Guilds   domain.GuildDirectory
	GuardTTL time.Duration
}

// Manager реализует жизненный цикл сессий OPEN → ACCEPTED | DECLINED.
type Manager struct {
	store     *Store
	gateway   domain.ChatGateway
	questions domain.QuestionFinder
	ledger    domain.PointsLedger
	notifier  domain.Notifier
	mirror    domain.Mirror
	guard     domain.OnceGuard
	queue     domain.PopulateQueue
	guilds    domain.GuildDirectory
	guardTTL  time.Duration

	now   func() time.Time
	newID func() string
	async sync.WaitGroup
	log   zerolog.Logger
}

// NewManager создаёт менеджер сессий.
func NewManager(deps Deps, logger zerolog.Logger) *Manager {
	ttl := deps.GuardTTL
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &Manager{
		store:     deps.Store,
		gateway:   deps.Gateway,
		questions: deps.Questions,
		ledger:    deps.Ledger,
		notifier:  deps.Notifier,
		mirror:    deps.Mirror,
		guard:     deps.Guard,
		queue:     deps.Queue,
		guilds:    deps.Guilds,
		guardTTL:  ttl,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		log:       logger.With().Str("component", "submissions").Logger(),
	}
}

// Open проверяет право пользователя и создаёт приватный тред сессии.
// Наполнение треда ставится в очередь, вызывающий получает ответ сразу.
func (m *Manager) Open(ctx context.Context, cmd OpenCommand) (domain.PendingSubmission, error) {
	cfg, ok := m.guilds.Guild(cmd.GuildID)
	if !ok || cfg.SubmissionChannelID == "" {
		metrics.ObserveRejection("not_configured")
		return domain.PendingSubmission{}, domain.ErrNotConfigured
	}
	if cmd.QuestionNumber <= 0 {
		metrics.ObserveRejection("validation")
		return domain.PendingSubmission{}, &domain.ValidationError{Field: "question_number", Reason: "must be positive"}
	}
	if err := m.checkEligible(ctx, cmd.GuildID, cmd.Author); err != nil {
		if errors.Is(err, domain.ErrNotEligible) {
			metrics.ObserveRejection("not_eligible")
		}
		return domain.PendingSubmission{}, err
	}

	name := domain.SubmissionThreadName(cmd.QuestionNumber, cmd.Author.ID)
	thread, err := m.gateway.CreatePrivateThread(ctx, cfg.SubmissionChannelID, name)
	if err != nil {
		return domain.PendingSubmission{}, &domain.DeliveryError{Op: "create thread", Err: err}
	}
	if err := m.gateway.AddThreadMember(ctx, thread.ID, cmd.Author.ID); err != nil {
		if delErr := m.gateway.DeleteThread(ctx, thread.ID); delErr != nil {
			m.log.Warn().Err(delErr).Str("thread_id", thread.ID).Msg("submissions: не удалось удалить тред без автора")
		}
		return domain.PendingSubmission{}, &domain.DeliveryError{Op: "add thread member", Err: err}
	}

	created := thread.CreatedAt
	if created.IsZero() {
		created = m.now()
	}
	sub := domain.Submission{
		SessionID:      thread.ID,
		GuildID:        cmd.GuildID,
		QuestionNumber: cmd.QuestionNumber,
		AuthorID:       cmd.Author.ID,
		Status:         domain.SubmissionOpen,
		CreatedAt:      created,
	}
	m.store.Track(sub)
	metrics.ObserveTransition("opened")

	task := domain.PopulateTask{
		ID:             m.newID(),
		GuildID:        sub.GuildID,
		SessionID:      sub.SessionID,
		QuestionNumber: sub.QuestionNumber,
		AuthorID:       sub.AuthorID,
		RequestedAt:    m.now(),
	}
	if err := m.queue.Enqueue(ctx, task); err != nil {
		m.log.Warn().Err(err).Str("task_id", task.ID).Msg("submissions: очередь недоступна, наполняем тред напрямую")
		m.async.Add(1)
		go func() {
			defer m.async.Done()
			if err := m.Populate(context.WithoutCancel(ctx), task); err != nil {
				m.log.Error().Err(err).Str("task_id", task.ID).Msg("submissions: наполнение треда не удалось")
			}
		}()
	}

	m.log.Info().
		Str("guild_id", sub.GuildID).
		Str("session_id", sub.SessionID).
		Str("author_id", sub.AuthorID).
		Int("question_number", sub.QuestionNumber).
		Msg("submissions: сессия открыта")
	return domain.PendingSubmission{Submission: sub, TaskID: task.ID}, nil
}

func (m *Manager) checkEligible(ctx context.Context, guildID string, author domain.Member) error {
	switch {
	case author.ID == "":
		return &domain.EligibilityError{Reason: "unknown member"}
	case author.IsBot || author.IsSystem:
		return &domain.EligibilityError{Reason: "bots cannot submit"}
	case author.TimedOut:
		return &domain.EligibilityError{Reason: "member is timed out"}
	case author.Pending:
		return &domain.EligibilityError{Reason: "member has not passed verification"}
	}
	existing, ok, err := m.store.OpenSessionOf(ctx, guildID, author.ID)
	if err != nil {
		return fmt.Errorf("проверка открытых сессий: %w", err)
	}
	if ok {
		return &domain.EligibilityError{Reason: fmt.Sprintf("session %s is still open", existing.SessionID)}
	}
	return nil
}

// Populate публикует вопрос в треде сессии. Повторная доставка задачи ничего не делает,
// как и задача для уже удалённого треда.
func (m *Manager) Populate(ctx context.Context, task domain.PopulateTask) error {
	if !task.RequestedAt.IsZero() {
		metrics.PopulateLag.Observe(m.now().Sub(task.RequestedAt).Seconds())
	}
	result := "duplicate"
	ran, err := m.guard.Once(ctx, "populate:"+task.SessionID, m.guardTTL, func() error {
		r, err := m.populate(ctx, task)
		result = r
		return err
	})
	if err != nil {
		metrics.PopulateTasks.WithLabelValues("error").Inc()
		return err
	}
	if !ran {
		result = "duplicate"
	}
	metrics.PopulateTasks.WithLabelValues(result).Inc()
	return nil
}

func (m *Manager) populate(ctx context.Context, task domain.PopulateTask) (string, error) {
	session, err := m.store.Lookup(ctx, task.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.log.Debug().Str("session_id", task.SessionID).Msg("submissions: тред уже удалён, наполнение пропущено")
			return "gone", nil
		}
		return "", err
	}
	if !session.Open() {
		return "gone", nil
	}

	q, ok, err := m.questions.FindByNumber(ctx, task.GuildID, task.QuestionNumber)
	if err != nil {
		m.log.Error().Err(err).Int("question_number", task.QuestionNumber).Msg("submissions: не удалось прочитать вопрос")
		ok = false
	}
	if !ok {
		if err := m.gateway.SendMessage(ctx, task.SessionID, domain.OutgoingMessage{Content: MissingQuestionNotice}); err != nil {
			return "", &domain.DeliveryError{Op: "send notice", Err: err}
		}
		return "placeholder", nil
	}

	cfg, _ := m.guilds.Guild(task.GuildID)
	if err := m.gateway.SendMessage(ctx, task.SessionID, promptMessage(q, task.AuthorID, cfg)); err != nil {
		return "", &domain.DeliveryError{Op: "send prompt", Err: err}
	}
	return "posted", nil
}

func promptMessage(q domain.Question, authorID string, cfg domain.GuildConfig) domain.OutgoingMessage {
	reviewers := "staff"
	if cfg.ReviewRoleID != "" {
		reviewers = "<@&" + cfg.ReviewRoleID + ">"
	}
	return domain.OutgoingMessage{
		Content: "<@" + authorID + ">",
		Title:   fmt.Sprintf("Question of the Week #%d", q.QuestionNumber),
		Description: fmt.Sprintf("%s\n\nHey, <@%s>! Please submit your answer into this private thread.\nThe %s will review your submission once a new question appears.",
			q.Text, authorID, reviewers),
		Footer:       submissionNote,
		Buttons:      []domain.Button{{ID: DeleteButtonID, Label: "Delete Submission", Danger: true}},
		MentionUsers: []string{authorID},
	}
}

// Accept принимает ответ: фиксирует статус в имени треда, начисляет балл,
// рассылает уведомления, копирует ответ в витрину и закрывает тред.
// Ошибка начисления возвращается после остальных шагов, ничего не откатывается.
func (m *Manager) Accept(ctx context.Context, cmd AcceptCommand) (domain.Submission, error) {
	session, cfg, err := m.resolve(ctx, cmd.SessionID, domain.SubmissionAccepted)
	if err != nil {
		return domain.Submission{}, err
	}
	sub := session.Submission

	acc, ledgerErr := m.ledger.Increment(ctx, sub.AuthorID, 1)
	if ledgerErr != nil {
		m.log.Error().Err(ledgerErr).
			Str("session_id", sub.SessionID).
			Str("author_id", sub.AuthorID).
			Msg("submissions: ответ принят, но балл не начислен")
	} else {
		m.notifier.Notify(ctx, domain.Notification{
			GuildID:    sub.GuildID,
			Kind:       domain.NotificationAccountIncremented,
			UserID:     sub.AuthorID,
			Submission: sub,
			Points:     acc.Points,
			Guild:      cfg,
		})
	}
	m.notifier.Notify(ctx, domain.Notification{
		GuildID:    sub.GuildID,
		Kind:       domain.NotificationSubmissionAccepted,
		UserID:     sub.AuthorID,
		ReviewerID: cmd.ReviewerID,
		Submission: sub,
		BestAnswer: cmd.BestAnswer,
		Guild:      cfg,
	})

	if err := m.mirrorAccepted(ctx, sub, cfg, cmd.BestAnswer); err != nil {
		metrics.MirrorFailures.Inc()
		m.log.Warn().Err(err).Str("session_id", sub.SessionID).Msg("submissions: не удалось скопировать ответ в витрину")
	}
	m.closeThread(ctx, sub.SessionID)

	m.log.Info().
		Str("session_id", sub.SessionID).
		Str("author_id", sub.AuthorID).
		Str("reviewer_id", cmd.ReviewerID).
		Bool("best_answer", cmd.BestAnswer).
		Msg("submissions: ответ принят")

	if ledgerErr != nil {
		if !errors.Is(ledgerErr, domain.ErrStorage) {
			ledgerErr = &domain.StorageError{Op: "increment account", Err: ledgerErr}
		}
		return sub, ledgerErr
	}
	return sub, nil
}

// Decline отклоняет ответ. Баллы не затрагиваются.
func (m *Manager) Decline(ctx context.Context, cmd DeclineCommand) (domain.Submission, error) {
	session, cfg, err := m.resolve(ctx, cmd.SessionID, domain.SubmissionDeclined)
	if err != nil {
		return domain.Submission{}, err
	}
	sub := session.Submission
	m.notifier.Notify(ctx, domain.Notification{
		GuildID:    sub.GuildID,
		Kind:       domain.NotificationSubmissionDeclined,
		UserID:     sub.AuthorID,
		ReviewerID: cmd.ReviewerID,
		Submission: sub,
		Guild:      cfg,
	})
	m.closeThread(ctx, sub.SessionID)
	m.log.Info().
		Str("session_id", sub.SessionID).
		Str("author_id", sub.AuthorID).
		Str("reviewer_id", cmd.ReviewerID).
		Msg("submissions: ответ отклонён")
	return sub, nil
}

// resolve переводит OPEN-сессию в итоговый статус. Переименование треда выполняется
// не более одного раза на сессию, поэтому повторный accept или decline получает ErrInvalidState.
func (m *Manager) resolve(ctx context.Context, sessionID string, status domain.SubmissionStatus) (Session, domain.GuildConfig, error) {
	session, err := m.store.Lookup(ctx, sessionID)
	if err != nil {
		return Session{}, domain.GuildConfig{}, err
	}
	if !session.Open() {
		metrics.ObserveRejection("invalid_state")
		return Session{}, domain.GuildConfig{}, domain.ErrInvalidState
	}
	cfg, _ := m.guilds.Guild(session.GuildID)

	ran, err := m.guard.Once(ctx, "resolve:"+sessionID, m.guardTTL, func() error {
		return m.gateway.RenameThread(ctx, sessionID, domain.MarkThreadName(session.Thread.Name, status))
	})
	if err != nil {
		return Session{}, domain.GuildConfig{}, &domain.DeliveryError{Op: "mark thread", Err: err}
	}
	if !ran {
		metrics.ObserveRejection("invalid_state")
		return Session{}, domain.GuildConfig{}, domain.ErrInvalidState
	}

	m.store.Forget(sessionID)
	session.Status = status
	session.Thread.Name = domain.MarkThreadName(session.Thread.Name, status)
	switch status {
	case domain.SubmissionAccepted:
		metrics.ObserveTransition("accepted")
	case domain.SubmissionDeclined:
		metrics.ObserveTransition("declined")
	}
	return session, cfg, nil
}

func (m *Manager) closeThread(ctx context.Context, sessionID string) {
	if err := m.gateway.LockAndArchiveThread(ctx, sessionID); err != nil {
		m.log.Warn().Err(err).Str("session_id", sessionID).Msg("submissions: не удалось закрыть тред")
	}
}

// mirrorAccepted копирует сообщения автора в самый свежий пост витрины.
func (m *Manager) mirrorAccepted(ctx context.Context, sub domain.Submission, cfg domain.GuildConfig, bestAnswer bool) error {
	if m.mirror == nil || cfg.ShowcaseForumID == "" {
		m.log.Debug().Str("guild_id", sub.GuildID).Msg("submissions: витрина не настроена")
		return nil
	}
	history, err := m.gateway.ThreadMessages(ctx, sub.SessionID)
	if err != nil {
		return &domain.DeliveryError{Op: "thread history", Err: err}
	}

	req := domain.MirrorRequest{
		GuildID:    sub.GuildID,
		ForumID:    cfg.ShowcaseForumID,
		Submission: sub,
		AuthorName: sub.AuthorID,
		BestAnswer: bestAnswer,
	}
	for _, msg := range history {
		if msg.AuthorID != sub.AuthorID || msg.AuthorBot || !msg.Default {
			continue
		}
		if msg.AuthorName != "" {
			req.AuthorName = msg.AuthorName
		}
		if msg.AuthorAvatarURL != "" {
			req.AuthorAvatarURL = msg.AuthorAvatarURL
		}
		for _, chunk := range domain.SplitMessage(msg.Content, domain.DiscordMessageLimit) {
			req.Messages = append(req.Messages, domain.MirroredMessage{Content: chunk})
		}
	}
	return m.mirror.Copy(ctx, req)
}

// Delete удаляет тред сессии независимо от статуса. Доступно только автору.
func (m *Manager) Delete(ctx context.Context, cmd DeleteCommand) error {
	session, err := m.store.Lookup(ctx, cmd.SessionID)
	if err != nil {
		return err
	}
	if session.AuthorID != cmd.RequesterID {
		metrics.ObserveRejection("not_author")
		return domain.ErrNotAuthor
	}
	if err := m.gateway.DeleteThread(ctx, cmd.SessionID); err != nil {
		return &domain.DeliveryError{Op: "delete thread", Err: err}
	}
	m.store.Forget(cmd.SessionID)
	metrics.ObserveTransition("deleted")
	m.log.Info().Str("session_id", cmd.SessionID).Str("author_id", session.AuthorID).Msg("submissions: сессия удалена автором")
	return nil
}

// ActiveSubmissions возвращает открытые сессии сообщества.
func (m *Manager) ActiveSubmissions(ctx context.Context, guildID string) ([]domain.Submission, error) {
	return m.store.ListOpenSessions(ctx, guildID)
}

// Wait дожидается наполнений, запущенных в обход очереди.
func (m *Manager) Wait() {
	m.async.Wait()
}
