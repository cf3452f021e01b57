// Package invariant provides contract assertions for nodeio.
//
// Assertions are a force multiplier for discovering bugs. Use
// Precondition/Postcondition to express function contracts, and Invariant for
// internal consistency checks.
//
// All functions panic with a *Violation - these are programming errors in the
// caller (reading a missing field, reading with the wrong kind), not input
// errors. Input errors are reported as ordinary error values by the lexer and
// parser.
package invariant

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
)

// Violation is the panic value raised by every failed assertion.
type Violation struct {
	Kind    string // PRECONDITION, POSTCONDITION or INVARIANT
	Message string
	File    string
	Line    int
}

func (v *Violation) Error() string {
	msg := fmt.Sprintf("%s VIOLATION: %s", v.Kind, v.Message)
	if v.File != "" {
		msg += fmt.Sprintf("\n  at %s:%d", v.File, v.Line)
	}
	return msg
}

// Precondition checks an input contract at function entry.
// Panics with PRECONDITION VIOLATION if condition is false.
//
// Example:
//
//	func (h *Hash) Remove(id int) *Hash {
//	    invariant.Precondition(h.Exists(id), "remove of missing id %d", id)
//	    // ... work ...
//	}
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
// Panics with POSTCONDITION VIOLATION if condition is false.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks an internal invariant during function execution.
// Panics with INVARIANT VIOLATION if condition is false.
//
// Example:
//
//	invariant.Invariant(h.count < len(h.slots), "hash table full")
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*Hash)(nil).
func NotNil(value interface{}, name string) {
	if value == nil || isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

// isNilValue checks if a value is a typed nil using reflection
func isNilValue(value interface{}) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// InRange panics if value is outside [min, max].
//
// Example:
//
//	func (l *List) Int(i int) int64 {
//	    invariant.InRange(i, 0, l.Len()-1, "index")
//	    ...
//	}
func InRange(value, minVal, maxVal int, name string) {
	if value < minVal || value > maxVal {
		fail("PRECONDITION", "%s must be in range [%d, %d], got %d",
			name, minVal, maxVal, value)
	}
}

// ContextNotBackground panics if context is nil or context.Background().
// Long-running loops such as the file watcher must be handed a cancellable
// parent context.
func ContextNotBackground(ctx context.Context, location string) {
	if ctx == nil {
		fail("PRECONDITION", "%s: context must not be nil", location)
	}
	if ctx == context.Background() {
		fail("PRECONDITION", "%s: context must not be Background() - parent context required for cancellation", location)
	}
}

// fail panics with a *Violation pointing at the asserting caller.
func fail(kind, format string, args ...interface{}) {
	v := &Violation{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}

	// Skip runtime.Callers, fail and the exported wrapper.
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])
	if frame, ok := frames.Next(); ok {
		v.File = frame.File
		v.Line = frame.Line
	}

	panic(v)
}
