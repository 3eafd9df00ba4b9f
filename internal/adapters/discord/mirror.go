package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/metrics"
)

// Mirror публикует принятые ответы в свежий пост форума-витрины через вебхук,
// сохраняя имя и аватар автора.
type Mirror struct {
	gw          *Gateway
	webhookName string

	mu    sync.Mutex
	hooks map[string]*discordgo.Webhook
}

var _ domain.Mirror = (*Mirror)(nil)

// NewMirror создаёт зеркалирование.
func NewMirror(gw *Gateway, webhookName string) *Mirror {
	if webhookName == "" {
		webhookName = "QOTW Mirror"
	}
	return &Mirror{gw: gw, webhookName: webhookName, hooks: make(map[string]*discordgo.Webhook)}
}

// Copy реализует domain.Mirror.
func (m *Mirror) Copy(ctx context.Context, req domain.MirrorRequest) error {
	post, err := m.gw.NewestForumPost(ctx, req.GuildID, req.ForumID)
	if err != nil {
		return fmt.Errorf("пост витрины: %w", err)
	}
	hook, err := m.ensureWebhook(ctx, req.ForumID)
	if err != nil {
		return fmt.Errorf("вебхук витрины: %w", err)
	}

	s := m.gw.Session()
	var errs []error
	for _, msg := range req.Messages {
		start := time.Now()
		_, err := s.WebhookThreadExecute(hook.ID, hook.Token, true, post.ID, &discordgo.WebhookParams{
			Content:         msg.Content,
			Username:        req.AuthorName,
			AvatarURL:       req.AuthorAvatarURL,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		}, discordgo.WithContext(ctx))
		metrics.ObserveNetworkRequest("discord", "webhook_execute", post.ID, start, err)
		if err != nil {
			err = mapError(err)
			errs = append(errs, err)
			if m.dropWebhook(req.ForumID, err) {
				break
			}
		}
	}

	start := time.Now()
	_, err = s.ChannelMessageSendEmbed(post.ID, authorCard(req), discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "message_send", post.ID, start, err)
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func authorCard(req domain.MirrorRequest) *discordgo.MessageEmbed {
	name := "Submission from " + req.AuthorName
	color := colorDefault
	if req.BestAnswer {
		name = "⭐ " + name
		color = colorWarn
	}
	return &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: name, IconURL: req.AuthorAvatarURL},
		Color:  color,
	}
}

func (m *Mirror) ensureWebhook(ctx context.Context, channelID string) (*discordgo.Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hook, ok := m.hooks[channelID]; ok {
		return hook, nil
	}

	s := m.gw.Session()
	start := time.Now()
	hooks, err := s.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "webhooks_list", channelID, start, err)
	if err != nil {
		return nil, mapError(err)
	}
	for _, hook := range hooks {
		if hook.Name == m.webhookName && hook.Token != "" {
			m.hooks[channelID] = hook
			return hook, nil
		}
	}

	start = time.Now()
	hook, err := s.WebhookCreate(channelID, m.webhookName, "", discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "webhook_create", channelID, start, err)
	if err != nil {
		return nil, mapError(err)
	}
	m.hooks[channelID] = hook
	return hook, nil
}

// dropWebhook забывает вебхук, удалённый на платформе, чтобы следующий Copy создал новый.
func (m *Mirror) dropWebhook(channelID string, err error) bool {
	if !errors.Is(err, domain.ErrNotFound) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hooks, channelID)
	return true
}
