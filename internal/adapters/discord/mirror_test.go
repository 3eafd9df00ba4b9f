package discord

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"

	"qotw-bot/internal/domain"
)

func TestMirrorDropsDeletedWebhook(t *testing.T) {
	m := NewMirror(nil, "")
	m.hooks["showcase"] = &discordgo.Webhook{ID: "w1", Token: "t"}
	m.hooks["other"] = &discordgo.Webhook{ID: "w2", Token: "t"}

	if m.dropWebhook("showcase", errors.New("rate limited")) {
		t.Fatal("вебхук не должен сбрасываться при временной ошибке")
	}
	if _, ok := m.hooks["showcase"]; !ok {
		t.Fatal("вебхук пропал из кэша")
	}

	if !m.dropWebhook("showcase", fmt.Errorf("%w: Unknown Webhook", domain.ErrNotFound)) {
		t.Fatal("ожидали сброс вебхука после 404")
	}
	if _, ok := m.hooks["showcase"]; ok {
		t.Fatal("удалённый вебхук остался в кэше")
	}
	if _, ok := m.hooks["other"]; !ok {
		t.Fatal("вебхук другого форума не должен сбрасываться")
	}
}

func TestMapErrorNotFound(t *testing.T) {
	restErr := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if !errors.Is(mapError(restErr), domain.ErrNotFound) {
		t.Fatal("404 должен превращаться в domain.ErrNotFound")
	}
	other := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	if errors.Is(mapError(other), domain.ErrNotFound) {
		t.Fatal("403 не является ErrNotFound")
	}
	if mapError(nil) != nil {
		t.Fatal("nil должен остаться nil")
	}
}
