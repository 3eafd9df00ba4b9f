package cache

import (
	"context"
	"sync"
	"time"

	"qotw-bot/internal/domain"
)

// Memory - OnceGuard в памяти процесса для локального запуска без Redis.
type Memory struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

var _ domain.OnceGuard = (*Memory)(nil)

// NewMemory создаёт guard в памяти.
func NewMemory() *Memory {
	return &Memory{keys: make(map[string]time.Time), now: time.Now}
}

// Once выполняет функцию, если ключ ещё не занят или истёк.
func (m *Memory) Once(_ context.Context, key string, ttl time.Duration, fn func() error) (bool, error) {
	m.mu.Lock()
	now := m.now()
	if exp, ok := m.keys[key]; ok && (exp.IsZero() || now.Before(exp)) {
		m.mu.Unlock()
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	m.keys[key] = exp
	m.mu.Unlock()

	if err := fn(); err != nil {
		m.mu.Lock()
		delete(m.keys, key)
		m.mu.Unlock()
		return true, err
	}
	return true, nil
}
