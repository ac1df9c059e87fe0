package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// Cell is an independently readable, writable and subscribable value.
// Writes are stored as given and every write notifies every subscriber,
// even when the new value equals the old one.
type Cell[T any] struct {
	name string

	mu     sync.RWMutex
	value  T
	nextID int
	subs   []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// NewCell returns a cell holding initial.
func NewCell[T any](name string, initial T) *Cell[T] {
	return &Cell[T]{name: name, value: initial}
}

// Name is the cell's wire name, e.g. "edit_url".
func (c *Cell[T]) Name() string {
	return c.name
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the value and then calls subscribers in subscription order
// on the caller's goroutine. The lock is not held while they run, so a
// subscriber may read or write cells itself.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	subs := make([]subscription[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Update applies fn to the current value and writes the result.
func (c *Cell[T]) Update(fn func(T) T) {
	c.Set(fn(c.Get()))
}

// Subscribe registers fn for change notification. The returned function
// removes the subscription; calling it more than once is harmless.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription[T]{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (c *Cell[T]) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// anyCell is the type-erased view AppState uses to address cells by name.
type anyCell interface {
	Name() string
	getAny() any
	setJSON(raw json.RawMessage) error
	subscribeAny(fn func(any)) func()
}

func (c *Cell[T]) getAny() any {
	return c.Get()
}

func (c *Cell[T]) subscribeAny(fn func(any)) func() {
	return c.Subscribe(func(v T) { fn(v) })
}

func (c *Cell[T]) setJSON(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: %s needs a value", ErrInvalidValue, c.name)
	}
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, c.name, err)
	}
	c.Set(v)
	return nil
}
