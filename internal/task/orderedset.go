package task

import (
	"iter"
	"slices"
)

// Validator checks a value before it is inserted into an OrderedSet.
// Implementations are zero-size types so that the zero OrderedSet is
// ready to use.
type Validator[T any] interface {
	Validate(v T) error
}

// OrderedSet is an insertion-ordered set that silently ignores duplicates
// and runs V's validation on every insert.
type OrderedSet[T comparable, V Validator[T]] struct {
	items []T
}

// Add validates v and appends it unless already present.
func (s *OrderedSet[T, V]) Add(v T) error {
	var validator V
	if err := validator.Validate(v); err != nil {
		return err
	}
	if !slices.Contains(s.items, v) {
		s.items = append(s.items, v)
	}
	return nil
}

// Remove deletes v, reporting whether it was present.
func (s *OrderedSet[T, V]) Remove(v T) bool {
	i := slices.Index(s.items, v)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Contains reports exact membership.
func (s *OrderedSet[T, V]) Contains(v T) bool {
	return slices.Contains(s.items, v)
}

func (s *OrderedSet[T, V]) Len() int {
	return len(s.items)
}

// Items returns a copy of the elements in insertion order.
func (s *OrderedSet[T, V]) Items() []T {
	return slices.Clone(s.items)
}

// All iterates the elements in insertion order.
func (s *OrderedSet[T, V]) All() iter.Seq[T] {
	return slices.Values(s.items)
}

// Clear removes every element.
func (s *OrderedSet[T, V]) Clear() {
	s.items = nil
}

func (s *OrderedSet[T, V]) clone() OrderedSet[T, V] {
	return OrderedSet[T, V]{items: slices.Clone(s.items)}
}
