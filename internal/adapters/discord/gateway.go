package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/metrics"
)

// Цвета эмбедов.
const (
	colorDefault = 0x2F3136
	colorWarn    = 0xF0B232
)

// oneWeekMinutes - авто-архивация тредов сессий.
const oneWeekMinutes = 10080

// Gateway реализует domain.ChatGateway поверх REST API Discord.
type Gateway struct {
	s *discordgo.Session
}

var _ domain.ChatGateway = (*Gateway)(nil)

// NewGateway создаёт шлюз.
func NewGateway(s *discordgo.Session) *Gateway {
	return &Gateway{s: s}
}

// Session отдаёт исходную сессию discordgo.
func (g *Gateway) Session() *discordgo.Session {
	return g.s
}

// CreatePrivateThread создаёт приватный тред, который нельзя переслать другим.
func (g *Gateway) CreatePrivateThread(ctx context.Context, parentID, name string) (domain.Thread, error) {
	start := time.Now()
	ch, err := g.s.ThreadStartComplex(parentID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: oneWeekMinutes,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		Invitable:           false,
	}, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "thread_create", parentID, start, err)
	if err != nil {
		return domain.Thread{}, mapError(err)
	}
	// Сбой настройки не мешает сессии, он виден только в метриках.
	invitable := false
	start = time.Now()
	_, err = g.s.ChannelEdit(ch.ID, &discordgo.ChannelEdit{Invitable: &invitable}, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "thread_setup", ch.ID, start, err)
	return toThread(ch), nil
}

// AddThreadMember добавляет участника в тред.
func (g *Gateway) AddThreadMember(ctx context.Context, threadID, userID string) error {
	start := time.Now()
	err := g.s.ThreadMemberAdd(threadID, userID, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "thread_member_add", threadID, start, err)
	return mapError(err)
}

// ListActiveThreads возвращает неархивированные треды канала.
func (g *Gateway) ListActiveThreads(ctx context.Context, guildID, parentID string) ([]domain.Thread, error) {
	start := time.Now()
	list, err := g.s.GuildThreadsActive(guildID, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "threads_active", guildID, start, err)
	if err != nil {
		return nil, mapError(err)
	}
	var out []domain.Thread
	for _, ch := range list.Threads {
		if ch == nil || (parentID != "" && ch.ParentID != parentID) {
			continue
		}
		out = append(out, toThread(ch))
	}
	return out, nil
}

// Thread читает тред по идентификатору.
func (g *Gateway) Thread(ctx context.Context, threadID string) (domain.Thread, error) {
	start := time.Now()
	ch, err := g.s.Channel(threadID, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "channel_get", threadID, start, err)
	if err != nil {
		return domain.Thread{}, mapError(err)
	}
	if !ch.IsThread() {
		return domain.Thread{}, fmt.Errorf("канал %s не является тредом: %w", threadID, domain.ErrNotFound)
	}
	return toThread(ch), nil
}

// RenameThread меняет имя треда.
func (g *Gateway) RenameThread(ctx context.Context, threadID, name string) error {
	start := time.Now()
	_, err := g.s.ChannelEdit(threadID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "thread_rename", threadID, start, err)
	return mapError(err)
}

// LockAndArchiveThread закрывает тред.
func (g *Gateway) LockAndArchiveThread(ctx context.Context, threadID string) error {
	locked, archived := true, true
	start := time.Now()
	_, err := g.s.ChannelEdit(threadID, &discordgo.ChannelEdit{Locked: &locked, Archived: &archived}, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "thread_archive", threadID, start, err)
	return mapError(err)
}

// DeleteThread удаляет тред.
func (g *Gateway) DeleteThread(ctx context.Context, threadID string) error {
	start := time.Now()
	_, err := g.s.ChannelDelete(threadID, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "thread_delete", threadID, start, err)
	return mapError(err)
}

// SendMessage отправляет сообщение в канал или тред.
func (g *Gateway) SendMessage(ctx context.Context, channelID string, msg domain.OutgoingMessage) error {
	start := time.Now()
	_, err := g.s.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "message_send", channelID, start, err)
	return mapError(err)
}

// ThreadMessages читает историю треда от старых сообщений к новым.
func (g *Gateway) ThreadMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	var (
		all    []*discordgo.Message
		before string
	)
	for {
		start := time.Now()
		page, err := g.s.ChannelMessages(threadID, 100, before, "", "", discordgo.WithContext(ctx))
		metrics.ObserveNetworkRequest("discord", "messages_history", threadID, start, err)
		if err != nil {
			return nil, mapError(err)
		}
		all = append(all, page...)
		if len(page) < 100 {
			break
		}
		before = page[len(page)-1].ID
	}

	out := make([]domain.Message, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, toMessage(all[i]))
	}
	return out, nil
}

// SendDirect отправляет личное сообщение пользователю.
func (g *Gateway) SendDirect(ctx context.Context, userID string, msg domain.OutgoingMessage) error {
	start := time.Now()
	ch, err := g.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "dm_channel", userID, start, err)
	if err != nil {
		return mapError(err)
	}
	return g.SendMessage(ctx, ch.ID, msg)
}

// NewestForumPost возвращает самый свежий активный пост форума.
func (g *Gateway) NewestForumPost(ctx context.Context, guildID, forumID string) (domain.Thread, error) {
	threads, err := g.ListActiveThreads(ctx, guildID, forumID)
	if err != nil {
		return domain.Thread{}, err
	}
	if len(threads) == 0 {
		return domain.Thread{}, fmt.Errorf("в форуме %s нет постов: %w", forumID, domain.ErrNotFound)
	}
	sort.Slice(threads, func(i, j int) bool { return threads[i].CreatedAt.After(threads[j].CreatedAt) })
	return threads[0], nil
}

func toThread(ch *discordgo.Channel) domain.Thread {
	t := domain.Thread{
		ID:       ch.ID,
		GuildID:  ch.GuildID,
		ParentID: ch.ParentID,
		Name:     ch.Name,
	}
	if ch.ThreadMetadata != nil {
		t.Locked = ch.ThreadMetadata.Locked
		t.Archived = ch.ThreadMetadata.Archived
	}
	if created, err := discordgo.SnowflakeTimestamp(ch.ID); err == nil {
		t.CreatedAt = created.UTC()
	}
	return t
}

func toMessage(m *discordgo.Message) domain.Message {
	msg := domain.Message{
		ID:        m.ID,
		Content:   m.Content,
		Default:   m.Type == discordgo.MessageTypeDefault || m.Type == discordgo.MessageTypeReply,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.String()
		msg.AuthorAvatarURL = m.Author.AvatarURL("")
		msg.AuthorBot = m.Author.Bot
	}
	return msg
}

func toMessageSend(msg domain.OutgoingMessage) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content: msg.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: msg.MentionUsers,
			Roles: msg.MentionRoles,
		},
	}
	if msg.Title != "" || msg.Description != "" {
		embed := &discordgo.MessageEmbed{
			Title:       msg.Title,
			Description: msg.Description,
			Color:       colorDefault,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}
		if msg.Footer != "" {
			embed.Fields = []*discordgo.MessageEmbedField{{Name: "Note", Value: msg.Footer}}
		}
		send.Embeds = []*discordgo.MessageEmbed{embed}
	}
	if len(msg.Buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, b := range msg.Buttons {
			style := discordgo.PrimaryButton
			if b.Danger {
				style = discordgo.DangerButton
			}
			row.Components = append(row.Components, discordgo.Button{Label: b.Label, Style: style, CustomID: b.ID})
		}
		send.Components = []discordgo.MessageComponent{row}
	}
	return send
}

// mapError переводит 404 Discord в domain.ErrNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}
