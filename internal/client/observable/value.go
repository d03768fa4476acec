// Package observable holds the reactive state the UI layer watches.
package observable

import "sync"

// Value is a concurrency-safe cell that notifies subscribers of its latest
// content. Slow subscribers skip intermediate values and only see the newest.
type Value[T any] struct {
	mu   sync.RWMutex
	v    T
	subs map[int]chan T
	next int
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[int]chan T)}
}

func (o *Value[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.v
}

func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.v = v
	o.publish()
}

// Update applies fn to the current value under the lock and stores the result.
func (o *Value[T]) Update(fn func(T) T) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.v = fn(o.v)
	o.publish()
	return o.v
}

// Subscribe returns a channel that immediately carries the current value and
// then every later one. The cancel func closes the channel.
func (o *Value[T]) Subscribe() (<-chan T, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan T, 1)
	ch <- o.v
	id := o.next
	o.next++
	o.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
			close(ch)
		})
	}
}

// publish must be called with mu held.
func (o *Value[T]) publish() {
	for _, ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		ch <- o.v
	}
}
