package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"qotw-bot/internal/domain"
)

// GuildSet - неизменяемый набор настроек сообществ.
type GuildSet struct {
	byID map[string]domain.GuildConfig
}

var _ domain.GuildDirectory = (*GuildSet)(nil)

type guildsFile struct {
	Guilds []domain.GuildConfig `yaml:"guilds"`
}

// NewGuildSet собирает набор из списка настроек. Пустые и повторные ID отбрасываются.
func NewGuildSet(guilds ...domain.GuildConfig) *GuildSet {
	set := &GuildSet{byID: make(map[string]domain.GuildConfig, len(guilds))}
	for _, g := range guilds {
		g.GuildID = strings.TrimSpace(g.GuildID)
		if g.GuildID == "" {
			continue
		}
		if _, ok := set.byID[g.GuildID]; ok {
			continue
		}
		set.byID[g.GuildID] = g
	}
	return set
}

// LoadGuilds читает настройки сообществ из YAML.
func LoadGuilds(path string) (*GuildSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", path, err)
	}
	return ParseGuilds(raw)
}

// ParseGuilds разбирает YAML с настройками сообществ.
func ParseGuilds(raw []byte) (*GuildSet, error) {
	var file guildsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("разбор настроек сообществ: %w", err)
	}
	return NewGuildSet(file.Guilds...), nil
}

// Guild возвращает настройки сообщества.
func (s *GuildSet) Guild(guildID string) (domain.GuildConfig, bool) {
	g, ok := s.byID[guildID]
	return g, ok
}

// Guilds возвращает все сообщества в стабильном порядке.
func (s *GuildSet) Guilds() []domain.GuildConfig {
	out := make([]domain.GuildConfig, 0, len(s.byID))
	for _, g := range s.byID {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out
}
