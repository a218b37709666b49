// Package store provides a generic, thread-safe keyed collection of
// identifiable items. Stores can be exposed to MCP clients through the
// read_<name>_database tool.
package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNilItem is returned when adding a nil item.
	ErrNilItem = errors.New("store: item is nil")
	// ErrClosed is returned by mutations on a closed store.
	ErrClosed = errors.New("store: closed")
	// ErrNoLoader is returned by Reload when no loader was configured.
	ErrNoLoader = errors.New("store: no loader configured")
)

// Item is anything that can live in a store: it accepts the identifier the
// store assigns and can render itself as JSON text.
type Item interface {
	ObjectID() string
	SetObjectID(id string)
	ToJSON() (string, error)
}

// Loader produces the full contents of a store, e.g. by scanning a host
// environment.
type Loader[T Item] func(ctx context.Context) ([]T, error)

type entry[T Item] struct {
	id   string
	item T
}

// Store is an id -> item map that also remembers insertion order. Readers
// share the lock; writers hold it exclusively.
type Store[T Item] struct {
	mu     sync.RWMutex
	items  []entry[T]
	byID   map[string]T
	loader Loader[T]
	closed bool

	newID func() string
}

// New returns an empty store.
func New[T Item]() *Store[T] {
	return &Store[T]{
		byID:  make(map[string]T),
		newID: uuid.NewString,
	}
}

// Add inserts item under existingID, or under a freshly generated id when
// existingID is empty. An item already stored under the same id is replaced.
func (s *Store[T]) Add(item T, existingID string) error {
	if isNil(item) {
		return ErrNilItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.addLocked(item, existingID)
	return nil
}

func (s *Store[T]) addLocked(item T, existingID string) {
	id := existingID
	if id == "" {
		id = s.newID()
	}

	if _, ok := s.byID[id]; ok {
		s.evictLocked(id)
	}

	item.SetObjectID(id)
	s.items = append(s.items, entry[T]{id: id, item: item})
	s.byID[id] = item
}

func (s *Store[T]) evictLocked(id string) {
	for i, e := range s.items {
		if e.id == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	delete(s.byID, id)
}

// Get returns the item stored under id. A missing id is not an error.
func (s *Store[T]) Get(id string) (T, bool) {
	var zero T
	if id == "" {
		return zero, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.byID[id]
	if !ok {
		return zero, false
	}
	return item, true
}

// All returns a snapshot of every item in insertion order. Later mutations of
// the store are not visible through the returned slice.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.items))
	for i, e := range s.items {
		out[i] = e.item
	}
	return out
}

// ContainsID reports whether an item is stored under id.
func (s *Store[T]) ContainsID(id string) bool {
	if id == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byID[id]
	return ok
}

// Count returns the number of stored items.
func (s *Store[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Remove deletes the item stored under id, if any.
func (s *Store[T]) Remove(id string) {
	if id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.evictLocked(id)
}

// Clear drops every item.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store[T]) clearLocked() {
	s.items = nil
	s.byID = make(map[string]T)
}

// Close empties the store and rejects further mutations. Reads on a closed
// store see an empty collection.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	s.closed = true
}

// SetLoader configures the function used by Reload.
func (s *Store[T]) SetLoader(fn Loader[T]) {
	s.mu.Lock()
	s.loader = fn
	s.mu.Unlock()
}

// Reload replaces the store contents with the loader's output. Loaded items
// keep the id they carry; items without one get a generated id. The loader
// runs without the lock held.
func (s *Store[T]) Reload(ctx context.Context) error {
	s.mu.RLock()
	fn, closed := s.loader, s.closed
	s.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if fn == nil {
		return ErrNoLoader
	}

	items, err := fn(ctx)
	if err != nil {
		return fmt.Errorf("store: load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.clearLocked()
	for _, item := range items {
		if isNil(item) {
			continue
		}
		s.addLocked(item, item.ObjectID())
	}
	return nil
}

// Text renders the store as a JSON array built from each item's ToJSON output.
func (s *Store[T]) Text() (string, error) {
	items := s.All()
	if len(items) == 0 {
		return "[]", nil
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		js, err := item.ToJSON()
		if err != nil {
			return "", fmt.Errorf("store: encode item %s: %w", item.ObjectID(), err)
		}
		parts = append(parts, js)
	}
	return "[\n" + strings.Join(parts, ",\n") + "\n]", nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
