package domain

import "sort"

// QuestionBefore задаёт порядок извлечения: выше приоритет, затем раньше создан.
func QuestionBefore(a, b Question) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortPending сортирует неактивированные вопросы в порядке извлечения.
func SortPending(questions []Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return QuestionBefore(questions[i], questions[j])
	})
}
