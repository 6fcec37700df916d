// Package catalog holds the fixed, ordered list of tests a program declares.
//
// A catalog is built once, before anything is launched, and never changes afterward. Its
// order is the order in which tests are registered on the telemetry stream.
package catalog

import "github.com/testrt/threadharness/framework/helpers"

// Stack size units, in bytes.
const (
	KB = 1024
	MB = 1024 * KB
)

// DefaultStackSize is the stack size requested by Builder.Add.
const DefaultStackSize = 1 * MB

// Descriptor is a test's identity, entry point and requested stack size. The entry point
// type is left to the package that runs the tests. StackSize is an upper bound for the
// test's stack rather than an allocation; see runtest.MinStackSize for how it is applied.
type Descriptor[F any] struct {
	Name      string
	Entry     F
	StackSize int
}

// Catalog is an immutable, ordered list of descriptors.
type Catalog[F any] struct {
	descriptors []Descriptor[F]
}

// Builder accumulates descriptors in declaration order. The zero value is ready to use.
type Builder[F any] struct {
	descriptors      []Descriptor[F]
	defaultStackSize int
}

// NewBuilder creates a Builder whose Add method uses the given default stack size. A
// non-positive value means DefaultStackSize.
func NewBuilder[F any](defaultStackSize int) *Builder[F] {
	return &Builder[F]{defaultStackSize: defaultStackSize}
}

// Add declares a test with the builder's default stack size.
func (b *Builder[F]) Add(name string, entry F) *Builder[F] {
	stackSize := b.defaultStackSize
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	return b.AddWithStack(name, stackSize, entry)
}

// AddWithStack declares a test with an explicit stack size in bytes.
func (b *Builder[F]) AddWithStack(name string, stackSize int, entry F) *Builder[F] {
	b.descriptors = append(b.descriptors, Descriptor[F]{Name: name, Entry: entry, StackSize: stackSize})
	return b
}

// Build returns the catalog. The builder may keep being used; later additions do not
// affect catalogs that were already built.
func (b *Builder[F]) Build() Catalog[F] {
	return Catalog[F]{descriptors: helpers.CopyOf(b.descriptors)}
}

// Of builds a catalog directly from a list of descriptors.
func Of[F any](descriptors ...Descriptor[F]) Catalog[F] {
	return Catalog[F]{descriptors: helpers.CopyOf(descriptors)}
}

// Enumerate returns the descriptors in declaration order. The returned slice is a copy.
func (c Catalog[F]) Enumerate() []Descriptor[F] {
	return helpers.CopyOf(c.descriptors)
}

// Len returns the number of descriptors.
func (c Catalog[F]) Len() int {
	return len(c.descriptors)
}

// Names returns the test names in declaration order.
func (c Catalog[F]) Names() []string {
	ret := make([]string, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		ret = append(ret, d.Name)
	}
	return ret
}

// Filter returns a catalog containing only the descriptors whose names satisfy keep, in
// the same order.
func (c Catalog[F]) Filter(keep func(name string) bool) Catalog[F] {
	var ret []Descriptor[F]
	for _, d := range c.descriptors {
		if keep(d.Name) {
			ret = append(ret, d)
		}
	}
	return Catalog[F]{descriptors: ret}
}
