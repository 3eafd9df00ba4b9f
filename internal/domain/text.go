package domain

import "strings"

const (
	// DiscordMessageLimit - лимит длины сообщения Discord.
	DiscordMessageLimit = 2000
	// TelegramMessageLimit - лимит длины сообщения Telegram.
	TelegramMessageLimit = 4096
	// QuestionTextLimit - лимит текста вопроса (поле модалки и эмбеда).
	QuestionTextLimit = 1024
)

// SplitMessage breaks the text into chunks that respect the platform's message size limit.
// It prefers to split on newline boundaries so formatted blocks stay intact.
func SplitMessage(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if limit <= 0 {
		return []string{trimmed}
	}

	runes := []rune(trimmed)
	if len(runes) <= limit {
		return []string{trimmed}
	}

	var parts []string
	for start := 0; start < len(runes); {
		end := start + limit
		if end >= len(runes) {
			chunk := strings.Trim(string(runes[start:]), "\n")
			if chunk != "" {
				parts = append(parts, chunk)
			}
			break
		}

		split := -1
		for i := end; i > start; i-- {
			if runes[i-1] == '\n' {
				split = i
				break
			}
		}
		if split == -1 {
			split = end
		}

		chunk := strings.Trim(string(runes[start:split]), "\n")
		if chunk != "" {
			parts = append(parts, chunk)
		}

		start = split
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}

	if len(parts) == 0 {
		return []string{trimmed}
	}

	return parts
}
