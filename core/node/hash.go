package node

import (
	"iter"

	"github.com/opal-lang/nodeio/core/invariant"
)

const (
	freeID           = -1
	initialHashSlots = 4
)

type slot struct {
	id  int // freeID when unused
	val Value
}

// Hash is an open-addressing table from non-negative integer ids (usually
// interned field names) to Values.
//
// The slot count is always a power of two. An id probes from id&mask and
// walks forward, wrapping around, until it finds itself or a free slot. The
// table doubles and rehashes before a new id would bring the live count to
// half the slot count, so probes always terminate.
//
// The zero Hash is an empty table ready to use. Setters return the receiver
// so calls can be chained.
type Hash struct {
	slots []slot
	mask  int
	count int
}

// NewHash returns an empty hash.
func NewHash() *Hash {
	h := &Hash{}
	h.reset(initialHashSlots)
	return h
}

func (h *Hash) reset(n int) {
	h.slots = make([]slot, n)
	for i := range h.slots {
		h.slots[i].id = freeID
	}
	h.mask = n - 1
	h.count = 0
}

func (h *Hash) ensure() {
	if h.slots == nil {
		h.reset(initialHashSlots)
	}
}

// find returns the slot index holding id, or -1.
func (h *Hash) find(id int) int {
	if id < 0 || h.slots == nil {
		return -1
	}
	i := id & h.mask
	for n := 0; n <= h.mask; n++ {
		switch h.slots[i].id {
		case id:
			return i
		case freeID:
			return -1
		}
		i = (i + 1) & h.mask
	}
	return -1
}

// place puts id in the first free slot of its probe sequence.
// The caller guarantees id is absent and the table has room.
func (h *Hash) place(id int, v Value) {
	i := id & h.mask
	for n := 0; n <= h.mask; n++ {
		if h.slots[i].id == freeID {
			h.slots[i] = slot{id: id, val: v}
			h.count++
			return
		}
		i = (i + 1) & h.mask
	}
	invariant.Invariant(false, "no free slot for id %d in %d slots", id, len(h.slots))
}

// grow doubles the slot count and re-probes every live entry, since
// placement depends on the mask.
func (h *Hash) grow() {
	old := h.slots
	oldCount := h.count
	h.reset(len(old) * 2)
	for _, s := range old {
		if s.id != freeID {
			h.place(s.id, s.val)
		}
	}
	invariant.Postcondition(h.count == oldCount, "rehash kept %d of %d entries", h.count, oldCount)
}

// upsert stores v under id, inserting a new entry if needed.
func (h *Hash) upsert(id int, v Value) *Hash {
	invariant.Precondition(id >= 0, "hash id must be non-negative, got %d", id)
	h.ensure()

	if i := h.find(id); i >= 0 {
		h.slots[i].val = v
		return h
	}
	if h.count+1 >= len(h.slots)/2 {
		h.grow()
	}
	h.place(id, v)
	return h
}

func (h *Hash) get(id int) Value {
	i := h.find(id)
	invariant.Precondition(i >= 0, "hash id %d does not exist", id)
	return h.slots[i].val
}

// Len returns the number of live entries.
func (h *Hash) Len() int { return h.count }

// Cap returns the number of slots.
func (h *Hash) Cap() int {
	h.ensure()
	return len(h.slots)
}

// Exists reports whether id has an entry, defined or not.
func (h *Hash) Exists(id int) bool { return h.find(id) >= 0 }

// Defined reports whether id has an entry whose kind is not KindUndef.
func (h *Hash) Defined(id int) bool {
	i := h.find(id)
	return i >= 0 && h.slots[i].val.Kind() != KindUndef
}

// KindOf returns the kind of the entry at id, or KindUndef when absent.
func (h *Hash) KindOf(id int) Kind {
	i := h.find(id)
	if i < 0 {
		return KindUndef
	}
	return h.slots[i].val.Kind()
}

// Get returns the value at id without asserting its kind.
func (h *Hash) Get(id int) (Value, bool) {
	i := h.find(id)
	if i < 0 {
		return nil, false
	}
	return h.slots[i].val, true
}

// Remove deletes the entry at id. The id must exist.
//
// Entries later in the same probe cluster are shifted back into the freed
// slot when their probe start allows it, so lookups for other ids are never
// cut short by the removal.
func (h *Hash) Remove(id int) *Hash {
	i := h.find(id)
	invariant.Precondition(i >= 0, "remove of missing hash id %d", id)

	h.slots[i] = slot{id: freeID}
	h.count--

	for j := (i + 1) & h.mask; h.slots[j].id != freeID; j = (j + 1) & h.mask {
		home := h.slots[j].id & h.mask
		if cyclicBetween(i, home, j) {
			continue
		}
		h.slots[i] = h.slots[j]
		h.slots[j] = slot{id: freeID}
		i = j
	}
	return h
}

// cyclicBetween reports whether k lies in the wrap-around interval (i, j].
func cyclicBetween(i, k, j int) bool {
	if i <= j {
		return i < k && k <= j
	}
	return k > i || k <= j
}

// Setters

// Set stores any Value at id; nil is stored as Undef.
func (h *Hash) Set(id int, v Value) *Hash { return h.upsert(id, normalize(v)) }

// Undef stores an existing-but-undefined entry at id.
func (h *Hash) Undef(id int) *Hash {
	return h.upsert(id, Undef{})
}

func (h *Hash) SetInt(id int, v int64) *Hash {
	return h.upsert(id, Int(v))
}

func (h *Hash) SetFloat(id int, v float64) *Hash {
	return h.upsert(id, Float(v))
}

func (h *Hash) SetStr(id int, v string) *Hash {
	return h.upsert(id, Str(v))
}

func (h *Hash) SetHash(id int, v *Hash) *Hash {
	return h.upsert(id, normalize(v))
}

func (h *Hash) SetList(id int, v *List) *Hash {
	return h.upsert(id, normalize(v))
}

// Getters

func (h *Hash) Int(id int) int64 {
	return int64(expect[Int](h.get(id), "hash id", id))
}

// Float returns the Float at id, widening an Int.
func (h *Hash) Float(id int) float64 {
	return expectFloat(h.get(id), "hash id", id)
}

func (h *Hash) Str(id int) string {
	return string(expect[Str](h.get(id), "hash id", id))
}

func (h *Hash) Hash(id int) *Hash {
	return expect[*Hash](h.get(id), "hash id", id)
}

func (h *Hash) List(id int) *List {
	return expect[*List](h.get(id), "hash id", id)
}

// Cursor is an iteration handle: the next slot index to examine.
type Cursor int

// First returns the cursor for the start of an iteration.
func (h *Hash) First() Cursor { return 0 }

// Next returns the id in the first live slot at or after c, and the cursor
// that follows it. ok is false when no live slot remains. Ids come out in
// slot order, not insertion order.
func (h *Hash) Next(c Cursor) (id int, next Cursor, ok bool) {
	for i := int(c); i >= 0 && i < len(h.slots); i++ {
		if h.slots[i].id != freeID {
			return h.slots[i].id, Cursor(i + 1), true
		}
	}
	return freeID, c, false
}

// All iterates live entries in slot order. The hash must not be modified
// during iteration.
func (h *Hash) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for _, s := range h.slots {
			if s.id == freeID {
				continue
			}
			if !yield(s.id, s.val) {
				return
			}
		}
	}
}

// IDs returns the live ids in slot order.
func (h *Hash) IDs() []int {
	ids := make([]int, 0, h.count)
	for id := range h.All() {
		ids = append(ids, id)
	}
	return ids
}
