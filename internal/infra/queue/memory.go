package queue

import (
	"context"
	"errors"

	"qotw-bot/internal/domain"
)

// ErrQueueFull возвращается, когда буфер очереди в памяти заполнен.
var ErrQueueFull = errors.New("memory queue: buffer is full")

// MemoryPopulateQueue - очередь задач в памяти процесса. Задачи теряются при остановке.
type MemoryPopulateQueue struct {
	tasks chan domain.PopulateTask
}

var _ domain.PopulateQueue = (*MemoryPopulateQueue)(nil)

// NewMemoryPopulateQueue создаёт очередь с заданным буфером.
func NewMemoryPopulateQueue(size int) *MemoryPopulateQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryPopulateQueue{tasks: make(chan domain.PopulateTask, size)}
}

// Enqueue кладёт задачу в буфер без блокировки.
func (q *MemoryPopulateQueue) Enqueue(ctx context.Context, task domain.PopulateTask) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pop ждёт следующую задачу.
func (q *MemoryPopulateQueue) Pop(ctx context.Context) (domain.PopulateTask, error) {
	select {
	case <-ctx.Done():
		return domain.PopulateTask{}, ctx.Err()
	case task := <-q.tasks:
		return task, nil
	}
}

// Len возвращает число задач в буфере.
func (q *MemoryPopulateQueue) Len() int {
	return len(q.tasks)
}
