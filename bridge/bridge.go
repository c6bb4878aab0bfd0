// Package bridge binds a capability interface to one swappable implementation.
package bridge

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
)

var (
	ErrImplementationMissing  = errors.New("bridge: missing implementation")
	ErrImplementationMismatch = errors.New("bridge: implementation does not satisfy capability")
)

// ImplementationError names the capability a bridge operation failed for.
type ImplementationError struct {
	Capability string
	Err        error
}

func (e *ImplementationError) Error() string {
	if errors.Is(e.Err, ErrImplementationMissing) {
		return fmt.Sprintf("missing bridge implementation for capability %q", e.Capability)
	}
	return fmt.Sprintf("bridge implementation does not satisfy capability %q", e.Capability)
}

func (e *ImplementationError) Unwrap() error { return e.Err }

type holder[T any] struct{ impl T }

// Bridge holds at most one active implementation of T. Swaps are atomic and
// a caller that already fetched the old implementation keeps using it.
type Bridge[T any] struct {
	capability string
	current    atomic.Pointer[holder[T]]
}

// New creates an empty bridge for capability T. The name is used in errors.
func New[T any](capability string) *Bridge[T] {
	return &Bridge[T]{capability: capability}
}

// Capability returns the capability name the bridge was created with.
func (b *Bridge[T]) Capability() string { return b.capability }

// SetImplementation installs impl after checking it implements T. On failure
// the previous implementation stays active.
func (b *Bridge[T]) SetImplementation(impl any) error {
	if isNil(impl) {
		return &ImplementationError{Capability: b.capability, Err: ErrImplementationMismatch}
	}
	typed, ok := impl.(T)
	if !ok {
		return &ImplementationError{Capability: b.capability, Err: ErrImplementationMismatch}
	}
	b.current.Store(&holder[T]{impl: typed})
	return nil
}

// Implementation returns the active implementation.
func (b *Bridge[T]) Implementation() (T, error) {
	h := b.current.Load()
	if h == nil {
		var zero T
		return zero, &ImplementationError{Capability: b.capability, Err: ErrImplementationMissing}
	}
	return h.impl, nil
}

// MustImplementation is Implementation for call sites where a missing
// implementation is a wiring bug.
func (b *Bridge[T]) MustImplementation() T {
	impl, err := b.Implementation()
	if err != nil {
		panic(err)
	}
	return impl
}

// HasImplementation reports whether an implementation was set.
func (b *Bridge[T]) HasImplementation() bool { return b.current.Load() != nil }

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
