package store

import (
	"context"
	"fmt"
)

// Database is the type-erased view of a named store that the host registers
// and the read tool consumes.
type Database interface {
	Name() string
	Count() int
	Clear()
	Text() (string, error)
	ItemText(id string) (string, bool, error)
	Reload(ctx context.Context) error
}

// Named attaches a database name to a store.
type Named[T Item] struct {
	*Store[T]
	name string
}

// NewNamed creates an empty named store.
func NewNamed[T Item](name string) *Named[T] {
	return &Named[T]{Store: New[T](), name: name}
}

// Name returns the database name.
func (n *Named[T]) Name() string {
	return n.name
}

// ItemText returns the JSON of the item stored under id.
func (n *Named[T]) ItemText(id string) (string, bool, error) {
	item, ok := n.Get(id)
	if !ok {
		return "", false, nil
	}
	js, err := item.ToJSON()
	if err != nil {
		return "", true, fmt.Errorf("store: encode item %s: %w", id, err)
	}
	return js, true, nil
}
