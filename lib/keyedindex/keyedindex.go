package keyedindex

import "fmt"

// ErrDuplicateKey is returned by Insert when a value maps to a key
// that is already present.
type ErrDuplicateKey[K comparable] struct {
	Key K
}

func (e ErrDuplicateKey[K]) Error() string {
	return fmt.Sprintf("duplicate key: %v", e.Key)
}

// Index is an insertion-ordered collection whose key is derived from
// the stored value itself, so the key can never drift out of sync with
// the value it is attached to. Inserting a value whose key is already
// present fails and leaves the index unchanged.
type Index[K comparable, V any] struct {
	keyOf  func(V) K
	byKey  map[K]int
	values []V
}

func New[K comparable, V any](keyOf func(V) K) *Index[K, V] {
	return &Index[K, V]{
		keyOf: keyOf,
		byKey: map[K]int{},
	}
}

func (i *Index[K, V]) Insert(v V) error {
	k := i.keyOf(v)
	if _, exists := i.byKey[k]; exists {
		return ErrDuplicateKey[K]{Key: k}
	}
	i.byKey[k] = len(i.values)
	i.values = append(i.values, v)
	return nil
}

func (i *Index[K, V]) Get(k K) (V, bool) {
	idx, ok := i.byKey[k]
	if !ok {
		var zero V
		return zero, false
	}
	return i.values[idx], true
}

func (i *Index[K, V]) Contains(k K) bool {
	_, ok := i.byKey[k]
	return ok
}

// Remove deletes the value stored under k and returns it.
// Insertion order of the remaining values is preserved.
func (i *Index[K, V]) Remove(k K) (V, bool) {
	idx, ok := i.byKey[k]
	if !ok {
		var zero V
		return zero, false
	}
	removed := i.values[idx]
	i.values = append(i.values[:idx], i.values[idx+1:]...)
	delete(i.byKey, k)
	for key, pos := range i.byKey {
		if pos > idx {
			i.byKey[key] = pos - 1
		}
	}
	return removed, true
}

func (i *Index[K, V]) Len() int {
	return len(i.values)
}

// Values returns the stored values in insertion order. The returned
// slice is a copy; mutating it does not affect the index.
func (i *Index[K, V]) Values() []V {
	out := make([]V, len(i.values))
	copy(out, i.values)
	return out
}
