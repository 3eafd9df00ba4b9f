package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/metrics"
	"qotw-bot/internal/usecase/points"
	"qotw-bot/internal/usecase/questions"
	"qotw-bot/internal/usecase/submissions"
)

const (
	openButtonPrefix = "qotw-submission:open:"
	addQuestionModal = "qotw-add-question"
	modalTextField   = "text"
	modalPriority    = "priority"
	handleTimeout    = 30 * time.Second
)

// Handler обслуживает взаимодействия Discord: слэш-команды, кнопки и модалки.
type Handler struct {
	s           *discordgo.Session
	log         zerolog.Logger
	questions   *questions.Service
	submissions *submissions.Manager
	ledger      *points.Ledger
	gateway     domain.ChatGateway
	guilds      domain.GuildDirectory
}

// NewHandler создаёт обработчик.
func NewHandler(s *discordgo.Session, log zerolog.Logger, questionUC *questions.Service, submissionUC *submissions.Manager, ledger *points.Ledger, gateway domain.ChatGateway, guilds domain.GuildDirectory) *Handler {
	return &Handler{
		s:           s,
		log:         log.With().Str("component", "bot").Logger(),
		questions:   questionUC,
		submissions: submissionUC,
		ledger:      ledger,
		gateway:     gateway,
		guilds:      guilds,
	}
}

// OpenButtonID строит идентификатор кнопки "Submit your Answer" для вопроса.
func OpenButtonID(questionNumber int) string {
	return openButtonPrefix + strconv.Itoa(questionNumber)
}

// ParseOpenButton извлекает номер вопроса из идентификатора кнопки.
func ParseOpenButton(customID string) (int, bool) {
	raw, ok := strings.CutPrefix(customID, openButtonPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// HandleInteraction обрабатывает входящее взаимодействие.
func (h *Handler) HandleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		h.handleComponent(ctx, i)
	case discordgo.InteractionModalSubmit:
		h.handleModal(ctx, i)
	}
}

func (h *Handler) handleCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != "qotw" || len(data.Options) == 0 {
		h.respond(i, "Unknown command.")
		return
	}
	sub := data.Options[0]
	switch sub.Name {
	case "question-queue":
		if len(sub.Options) == 0 {
			h.respond(i, "Unknown command.")
			return
		}
		switch sub.Options[0].Name {
		case "add":
			h.showAddQuestionModal(i)
		case "list":
			h.deferred(ctx, i, h.listQueue)
		}
	case "activate":
		h.deferred(ctx, i, h.activate)
	case "submissions":
		if len(sub.Options) == 0 {
			h.respond(i, "Unknown command.")
			return
		}
		action := sub.Options[0]
		switch action.Name {
		case "accept":
			best := false
			for _, opt := range action.Options {
				if opt.Name == "best-answer" {
					best = opt.BoolValue()
				}
			}
			h.deferred(ctx, i, func(ctx context.Context, i *discordgo.InteractionCreate) string {
				return h.accept(ctx, i, best)
			})
		case "decline":
			h.deferred(ctx, i, h.decline)
		}
	case "leaderboard":
		h.deferred(ctx, i, h.leaderboard)
	default:
		h.respond(i, "Unknown command.")
	}
}

func (h *Handler) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	if customID == submissions.DeleteButtonID {
		h.deferred(ctx, i, h.deleteSubmission)
		return
	}
	if n, ok := ParseOpenButton(customID); ok {
		h.deferred(ctx, i, func(ctx context.Context, i *discordgo.InteractionCreate) string {
			return h.openSubmission(ctx, i, n)
		})
		return
	}
	h.log.Debug().Str("custom_id", customID).Msg("bot: неизвестная кнопка")
}

func (h *Handler) handleModal(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	if data.CustomID != addQuestionModal {
		return
	}
	fields := modalValues(data.Components)
	h.deferred(ctx, i, func(ctx context.Context, i *discordgo.InteractionCreate) string {
		q, err := h.questions.Enqueue(ctx, questions.EnqueueRequest{
			GuildID:   i.GuildID,
			Text:      fields[modalTextField],
			Priority:  fields[modalPriority],
			CreatedBy: memberOf(i).ID,
		})
		if err != nil {
			return h.replyFor("add question", err)
		}
		return fmt.Sprintf("Question added to the queue with priority %d.", q.Priority)
	})
}

func (h *Handler) openSubmission(ctx context.Context, i *discordgo.InteractionCreate, questionNumber int) string {
	_, err := h.submissions.Open(ctx, submissions.OpenCommand{
		GuildID:        i.GuildID,
		QuestionNumber: questionNumber,
		Author:         memberOf(i),
	})
	if err != nil {
		return h.replyFor("open submission", err)
	}
	return "Successfully created a new private Thread for your submission."
}

func (h *Handler) deleteSubmission(ctx context.Context, i *discordgo.InteractionCreate) string {
	err := h.submissions.Delete(ctx, submissions.DeleteCommand{SessionID: i.ChannelID, RequesterID: memberOf(i).ID})
	if err != nil {
		return h.replyFor("delete submission", err)
	}
	return "Submission deleted."
}

func (h *Handler) accept(ctx context.Context, i *discordgo.InteractionCreate, best bool) string {
	sub, err := h.submissions.Accept(ctx, submissions.AcceptCommand{SessionID: i.ChannelID, ReviewerID: memberOf(i).ID, BestAnswer: best})
	if err != nil {
		return h.replyFor("accept submission", err)
	}
	return fmt.Sprintf("Successfully accepted submission by <@%s>.", sub.AuthorID)
}

func (h *Handler) decline(ctx context.Context, i *discordgo.InteractionCreate) string {
	sub, err := h.submissions.Decline(ctx, submissions.DeclineCommand{SessionID: i.ChannelID, ReviewerID: memberOf(i).ID})
	if err != nil {
		return h.replyFor("decline submission", err)
	}
	return fmt.Sprintf("Successfully declined submission by <@%s>.", sub.AuthorID)
}

func (h *Handler) activate(ctx context.Context, i *discordgo.InteractionCreate) string {
	cfg, ok := h.guilds.Guild(i.GuildID)
	if !ok || cfg.QuestionChannelID == "" {
		return h.replyFor("activate", domain.ErrNotConfigured)
	}
	q, err := h.questions.ActivateNext(ctx, i.GuildID)
	if err != nil {
		return h.replyFor("activate", err)
	}
	err = h.gateway.SendMessage(ctx, cfg.QuestionChannelID, domain.OutgoingMessage{
		Title:       fmt.Sprintf("Question of the Week #%d", q.QuestionNumber),
		Description: q.Text,
		Buttons:     []domain.Button{{ID: OpenButtonID(q.QuestionNumber), Label: "Submit your Answer"}},
	})
	if err != nil {
		h.log.Error().Err(err).Int("question_number", q.QuestionNumber).Msg("bot: не удалось опубликовать вопрос")
		return fmt.Sprintf("Question #%d activated, but posting it failed. Please post it manually.", q.QuestionNumber)
	}
	return fmt.Sprintf("Question #%d is now live.", q.QuestionNumber)
}

func (h *Handler) listQueue(ctx context.Context, i *discordgo.InteractionCreate) string {
	list, err := h.questions.List(ctx, i.GuildID, 25)
	if err != nil {
		return h.replyFor("list queue", err)
	}
	return FormatQueue(list)
}

func (h *Handler) leaderboard(ctx context.Context, _ *discordgo.InteractionCreate) string {
	top, err := h.ledger.Leaderboard(ctx, 10)
	if err != nil {
		return h.replyFor("leaderboard", err)
	}
	return FormatLeaderboard(top)
}

// FormatQueue печатает очередь вопросов в порядке извлечения.
func FormatQueue(list []domain.Question) string {
	if len(list) == 0 {
		return "The question queue is empty."
	}
	var b strings.Builder
	b.WriteString("**Pending questions**\n")
	for idx, q := range list {
		text := q.Text
		if r := []rune(text); len(r) > 80 {
			text = string(r[:79]) + "…"
		}
		fmt.Fprintf(&b, "%d. [priority %d] %s\n", idx+1, q.Priority, text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatLeaderboard печатает лидеров по баллам.
func FormatLeaderboard(top []domain.Account) string {
	if len(top) == 0 {
		return "Nobody has earned a QOTW point yet."
	}
	var b strings.Builder
	b.WriteString("**QOTW Leaderboard**\n")
	for idx, acc := range top {
		fmt.Fprintf(&b, "%d. <@%s> — %d\n", idx+1, acc.UserID, acc.Points)
	}
	return strings.TrimRight(b.String(), "\n")
}

// replyFor переводит ошибку движка в ответ пользователю. Сбои хранилища и платформы логируются.
func (h *Handler) replyFor(op string, err error) string {
	msg, internal := ReplyFor(err)
	if internal {
		h.log.Error().Err(err).Str("op", op).Msg("bot: команда завершилась ошибкой")
	} else {
		h.log.Debug().Err(err).Str("op", op).Msg("bot: команда отклонена")
	}
	return msg
}

// ReplyFor возвращает текст ответа и признак внутренней ошибки.
func ReplyFor(err error) (string, bool) {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, domain.ErrInvalidPriority):
		return "Priority must be a whole number, for example 0 or 5.", false
	case errors.As(err, &verr):
		return fmt.Sprintf("Invalid %s: %s.", verr.Field, verr.Reason), false
	case errors.Is(err, domain.ErrValidation):
		return "Invalid input.", false
	case errors.Is(err, domain.ErrEmptyQueue):
		return "The question queue is empty. Add a question first.", false
	case errors.Is(err, domain.ErrNotEligible):
		return "You're not eligible to create a new submission thread.", false
	case errors.Is(err, domain.ErrInvalidState):
		return "This submission has already been reviewed.", false
	case errors.Is(err, domain.ErrNotAuthor):
		return "Only the author of this submission can do that.", false
	case errors.Is(err, domain.ErrNotConfigured):
		return "QOTW is not configured for this server.", false
	case errors.Is(err, domain.ErrNotFound):
		return "This is not a submission thread.", false
	default:
		return "Something went wrong. Please contact an Administrator if this keeps happening.", true
	}
}

func (h *Handler) showAddQuestionModal(i *discordgo.InteractionCreate) {
	start := time.Now()
	err := h.s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: addQuestionModal,
			Title:    "Create QOTW Question",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  modalTextField,
						Label:     "Question Text",
						Style:     discordgo.TextInputParagraph,
						Required:  true,
						MaxLength: domain.QuestionTextLimit,
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  modalPriority,
						Label:     "Priority (Greater than 0)",
						Style:     discordgo.TextInputShort,
						Required:  false,
						Value:     "0",
						MaxLength: 4,
					},
				}},
			},
		},
	})
	metrics.ObserveNetworkRequest("discord", "interaction_modal", i.GuildID, start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось открыть модалку")
	}
}

// deferred подтверждает взаимодействие сразу и дописывает ответ после выполнения fn.
func (h *Handler) deferred(ctx context.Context, i *discordgo.InteractionCreate, fn func(context.Context, *discordgo.InteractionCreate) string) {
	start := time.Now()
	err := h.s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	metrics.ObserveNetworkRequest("discord", "interaction_defer", i.GuildID, start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось подтвердить взаимодействие")
		return
	}

	text := fn(ctx, i)
	start = time.Now()
	_, err = h.s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &text})
	metrics.ObserveNetworkRequest("discord", "interaction_edit", i.GuildID, start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось отправить ответ")
	}
}

func (h *Handler) respond(i *discordgo.InteractionCreate, text string) {
	start := time.Now()
	err := h.s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text, Flags: discordgo.MessageFlagsEphemeral},
	})
	metrics.ObserveNetworkRequest("discord", "interaction_respond", i.GuildID, start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("bot: не удалось ответить")
	}
}

func memberOf(i *discordgo.InteractionCreate) domain.Member {
	return toMember(i.Member, i.User, time.Now())
}

func toMember(m *discordgo.Member, u *discordgo.User, now time.Time) domain.Member {
	if m != nil && m.User != nil {
		u = m.User
	}
	if u == nil {
		return domain.Member{}
	}
	member := domain.Member{
		ID:        u.ID,
		Username:  u.String(),
		AvatarURL: u.AvatarURL(""),
		IsBot:     u.Bot,
		IsSystem:  u.System,
	}
	if m != nil {
		member.Pending = m.Pending
		member.TimedOut = m.CommunicationDisabledUntil != nil && m.CommunicationDisabledUntil.After(now)
	}
	return member
}

func modalValues(rows []discordgo.MessageComponent) map[string]string {
	out := make(map[string]string)
	for _, c := range rows {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				out[input.CustomID] = input.Value
			}
		}
	}
	return out
}
