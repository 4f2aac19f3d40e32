package background

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"objgate/logger"
)

// Task - фоновая задача. Получает контекст, не связанный с запросом.
type Task func(ctx context.Context) error

// Group запускает фоновые задачи, которые могут пережить ответ клиенту.
// Процесс должен вызвать Wait перед завершением, чтобы дать задачам доработать.
type Group struct {
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	pending atomic.Int64

	mu     sync.Mutex
	closed bool
}

// NewGroup создает новую группу фоновых задач
func NewGroup() *Group {
	ctx, cancel := context.WithCancel(context.Background())
	return &Group{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go запускает задачу. После Wait новые задачи не принимаются.
// Возвращает false, если задача отклонена.
func (g *Group) Go(name string, task Task) bool {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		logger.Warn("Background task %s rejected: group is draining", name)
		return false
	}
	g.wg.Add(1)
	g.pending.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		defer g.pending.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Background task %s panicked: %v", name, r)
			}
		}()

		if err := task(g.ctx); err != nil {
			logger.Warn("Background task %s failed: %v", name, err)
			return
		}
		logger.Debug("Background task %s completed", name)
	}()
	return true
}

// Pending возвращает количество незавершенных задач
func (g *Group) Pending() int64 {
	return g.pending.Load()
}

// Wait перестает принимать задачи и ждет завершения запущенных.
// Если ctx истекает раньше, контекст задач отменяется и возвращается ошибка.
func (g *Group) Wait(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.cancel()
		return nil
	case <-ctx.Done():
		g.cancel()
		return fmt.Errorf("background tasks not drained (%d pending): %w", g.Pending(), ctx.Err())
	}
}
