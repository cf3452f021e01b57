package node

import (
	"iter"

	"github.com/opal-lang/nodeio/core/invariant"
)

const initialListSlots = 4

// List is a contiguous, index-addressed sequence of Values that grows at
// either end.
//
// Len is the highest set index plus one. Setting past the end grows the
// allocation by doubling, and the indices in between read as Undef. Unshift
// and Shift move the whole live range by one position, so they are O(n).
//
// The zero List is empty and ready to use.
type List struct {
	items []Value // len(items) is the allocation; items[:n] are live
	n     int
}

// NewList returns an empty list.
func NewList() *List {
	return &List{items: make([]Value, initialListSlots)}
}

// grow makes index i addressable.
func (l *List) grow(i int) {
	if i < len(l.items) {
		return
	}
	size := len(l.items) * 2
	if size == 0 {
		size = initialListSlots
	}
	for size <= i {
		size *= 2
	}
	items := make([]Value, size)
	copy(items, l.items[:l.n])
	l.items = items
}

func (l *List) store(i int, v Value) *List {
	invariant.Precondition(i >= 0, "list index must be non-negative, got %d", i)
	l.grow(i)
	for j := l.n; j < i; j++ {
		l.items[j] = Undef{}
	}
	l.items[i] = v
	if i >= l.n {
		l.n = i + 1
	}
	return l
}

func (l *List) at(i int) Value {
	invariant.InRange(i, 0, l.n-1, "list index")
	return l.items[i]
}

// Len returns the number of elements.
func (l *List) Len() int { return l.n }

// Cap returns the allocated element count.
func (l *List) Cap() int { return len(l.items) }

// Exists reports whether i < Len().
func (l *List) Exists(i int) bool { return i >= 0 && i < l.n }

// Defined reports whether i exists and is not Undef.
func (l *List) Defined(i int) bool {
	return l.Exists(i) && l.items[i].Kind() != KindUndef
}

// KindOf returns the kind at i, or KindUndef past the end.
func (l *List) KindOf(i int) Kind {
	if !l.Exists(i) {
		return KindUndef
	}
	return l.items[i].Kind()
}

// Get returns the value at i without asserting its kind.
func (l *List) Get(i int) Value { return l.at(i) }

// Setters

// Set stores any Value at i; nil is stored as Undef.
func (l *List) Set(i int, v Value) *List { return l.store(i, normalize(v)) }

func (l *List) Undef(i int) *List {
	return l.store(i, Undef{})
}

func (l *List) SetInt(i int, v int64) *List {
	return l.store(i, Int(v))
}

func (l *List) SetFloat(i int, v float64) *List {
	return l.store(i, Float(v))
}

func (l *List) SetStr(i int, v string) *List {
	return l.store(i, Str(v))
}

func (l *List) SetHash(i int, v *Hash) *List {
	return l.store(i, normalize(v))
}

func (l *List) SetList(i int, v *List) *List {
	return l.store(i, normalize(v))
}

// Getters

func (l *List) Int(i int) int64 {
	return int64(expect[Int](l.at(i), "list index", i))
}

// Float returns the Float at i, widening an Int.
func (l *List) Float(i int) float64 {
	return expectFloat(l.at(i), "list index", i)
}

func (l *List) Str(i int) string {
	return string(expect[Str](l.at(i), "list index", i))
}

func (l *List) Hash(i int) *Hash {
	return expect[*Hash](l.at(i), "list index", i)
}

func (l *List) List(i int) *List {
	return expect[*List](l.at(i), "list index", i)
}

// Back end

// Push appends v.
func (l *List) Push(v Value) *List { return l.Set(l.n, v) }

func (l *List) PushInt(v int64) *List     { return l.SetInt(l.n, v) }
func (l *List) PushFloat(v float64) *List { return l.SetFloat(l.n, v) }
func (l *List) PushStr(v string) *List    { return l.SetStr(l.n, v) }
func (l *List) PushHash(v *Hash) *List    { return l.SetHash(l.n, v) }
func (l *List) PushList(v *List) *List    { return l.SetList(l.n, v) }

// Pop removes and returns the last element. The list must not be empty.
func (l *List) Pop() Value {
	invariant.Precondition(l.n > 0, "pop from empty list")
	l.n--
	v := l.items[l.n]
	l.items[l.n] = nil
	return v
}

func (l *List) PopInt() int64 {
	return int64(expect[Int](l.Pop(), "popped index", l.n))
}

func (l *List) PopFloat() float64 {
	return expectFloat(l.Pop(), "popped index", l.n)
}

func (l *List) PopStr() string {
	return string(expect[Str](l.Pop(), "popped index", l.n))
}

func (l *List) PopHash() *Hash {
	return expect[*Hash](l.Pop(), "popped index", l.n)
}

func (l *List) PopList() *List {
	return expect[*List](l.Pop(), "popped index", l.n)
}

// Front end

// Unshift inserts v at index 0, moving every element back by one.
func (l *List) Unshift(v Value) *List {
	v = normalize(v)
	l.grow(l.n)
	copy(l.items[1:l.n+1], l.items[:l.n])
	l.n++
	l.items[0] = v
	return l
}

func (l *List) UnshiftInt(v int64) *List     { return l.Unshift(Int(v)) }
func (l *List) UnshiftFloat(v float64) *List { return l.Unshift(Float(v)) }
func (l *List) UnshiftStr(v string) *List    { return l.Unshift(Str(v)) }
func (l *List) UnshiftHash(v *Hash) *List    { return l.Unshift(v) }
func (l *List) UnshiftList(v *List) *List    { return l.Unshift(v) }

// Shift removes and returns element 0, moving the rest forward by one.
// The list must not be empty.
func (l *List) Shift() Value {
	invariant.Precondition(l.n > 0, "shift from empty list")
	v := l.items[0]
	copy(l.items[:l.n-1], l.items[1:l.n])
	l.n--
	l.items[l.n] = nil
	return v
}

func (l *List) ShiftInt() int64 {
	return int64(expect[Int](l.Shift(), "shifted index", 0))
}

func (l *List) ShiftFloat() float64 {
	return expectFloat(l.Shift(), "shifted index", 0)
}

func (l *List) ShiftStr() string {
	return string(expect[Str](l.Shift(), "shifted index", 0))
}

func (l *List) ShiftHash() *Hash {
	return expect[*Hash](l.Shift(), "shifted index", 0)
}

func (l *List) ShiftList() *List {
	return expect[*List](l.Shift(), "shifted index", 0)
}

// All iterates elements in index order.
func (l *List) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for i := 0; i < l.n; i++ {
			if !yield(i, l.items[i]) {
				return
			}
		}
	}
}
