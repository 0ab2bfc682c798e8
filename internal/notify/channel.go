// Package notify реализует канал уведомлений подписчиков (observer),
// через который store публикует снапшоты состояния для presentation слоя.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// Channel управляет подписчиками на значения типа T.
// Доставка синхронная и без буферизации: подписчик, добавленный посреди операции,
// видит только переходы с этого момента.
type Channel[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]func(T)
	order       []string
}

// New создает новый канал без подписчиков
func New[T any]() *Channel[T] {
	return &Channel[T]{
		subscribers: make(map[string]func(T)),
	}
}

// Subscription подписка на канал
type Subscription struct {
	id     string
	once   sync.Once
	cancel func(id string)
}

// ID возвращает идентификатор подписки
func (s *Subscription) ID() string {
	return s.id
}

// Unsubscribe прекращает доставку. Повторные вызовы безопасны.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancel(s.id)
	})
}

// Subscribe добавляет подписчика и возвращает подписку для отмены
func (c *Channel[T]) Subscribe(fn func(T)) *Subscription {
	id := uuid.New().String()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[id] = fn
	c.order = append(c.order, id)

	return &Subscription{id: id, cancel: c.remove}
}

// remove удаляет подписчика по идентификатору
func (c *Channel[T]) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subscribers[id]; !ok {
		return
	}
	delete(c.subscribers, id)
	for i, sid := range c.order {
		if sid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Publish отправляет значение всем подписчикам в порядке подписки.
// Колбэки вызываются вне блокировки, поэтому подписчик может отписаться из колбэка.
func (c *Channel[T]) Publish(v T) {
	c.mu.RLock()
	fns := make([]func(T), 0, len(c.order))
	for _, id := range c.order {
		fns = append(fns, c.subscribers[id])
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len возвращает количество активных подписчиков
func (c *Channel[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers)
}
