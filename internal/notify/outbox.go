package notify

import "sync"

// Outbox упорядочивает публикацию снапшотов: значения доставляются строго
// в порядке Enqueue, даже если Flush вызывают несколько горутин.
// Enqueue вызывается под блокировкой владельца (store), Flush - без нее.
// Enqueue + Flush из колбэка подписчика не блокируются: значение будет
// доставлено текущим циклом публикации после возврата колбэка.
type Outbox[T any] struct {
	ch       *Channel[T]
	mu       sync.Mutex
	pending  []T
	draining bool
}

// NewOutbox создает очередь публикации поверх канала ch
func NewOutbox[T any](ch *Channel[T]) *Outbox[T] {
	return &Outbox[T]{ch: ch}
}

// Enqueue ставит значение в очередь публикации
func (o *Outbox[T]) Enqueue(v T) {
	o.mu.Lock()
	o.pending = append(o.pending, v)
	o.mu.Unlock()
}

// Flush публикует все накопленные значения. Если публикация уже идет
// в другой горутине или выше по стеку, возвращается сразу.
func (o *Outbox[T]) Flush() {
	o.mu.Lock()
	if o.draining {
		o.mu.Unlock()
		return
	}
	o.draining = true

	for len(o.pending) > 0 {
		v := o.pending[0]
		var zero T
		o.pending[0] = zero
		o.pending = o.pending[1:]

		o.mu.Unlock()
		o.ch.Publish(v)
		o.mu.Lock()
	}

	o.draining = false
	o.mu.Unlock()
}
