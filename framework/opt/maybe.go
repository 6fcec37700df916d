// Package opt provides an optional-value type. The harness uses it for values that may not
// exist yet, such as the completion of a test that is still running or the Status of a test
// that has only been registered.
package opt

import "fmt"

// Maybe holds either a value or nothing. The zero value holds nothing.
type Maybe[V any] struct {
	defined bool
	value   V
}

// Some returns a Maybe holding value.
func Some[V any](value V) Maybe[V] {
	return Maybe[V]{defined: true, value: value}
}

// None returns an empty Maybe.
func None[V any]() Maybe[V] { return Maybe[V]{} }

// IsDefined returns true if the Maybe holds a value.
func (m Maybe[V]) IsDefined() bool { return m.defined }

// Value returns the held value, or the zero value of V.
func (m Maybe[V]) Value() V { return m.value }

// Get returns the held value and whether there was one, in the style of a map lookup.
func (m Maybe[V]) Get() (V, bool) { return m.value, m.defined }

// OrElse returns the held value, or fallback if there is none.
func (m Maybe[V]) OrElse(fallback V) V {
	if v, ok := m.Get(); ok {
		return v
	}
	return fallback
}

func (m Maybe[V]) String() string {
	v, ok := m.Get()
	if !ok {
		return "[none]"
	}
	return fmt.Sprint(v)
}
