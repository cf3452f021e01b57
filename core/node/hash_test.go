package node_test

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/nodeio/core/invariant"
	"github.com/opal-lang/nodeio/core/node"
)

// requireViolation asserts fn panics with an *invariant.Violation.
func requireViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected contract violation")
		_, ok := r.(*invariant.Violation)
		require.True(t, ok, "expected *invariant.Violation, got %T: %v", r, r)
	}()
	fn()
}

func TestHashRoundTripPerKind(t *testing.T) {
	child := node.NewHash().SetInt(0, 1)
	list := node.NewList().PushStr("a")

	h := node.NewHash().
		SetInt(1, -42).
		SetFloat(2, 3.25).
		SetStr(3, "ok").
		SetHash(4, child).
		SetList(5, list).
		Undef(6)

	assert.Equal(t, int64(-42), h.Int(1))
	assert.Equal(t, 3.25, h.Float(2))
	assert.Equal(t, "ok", h.Str(3))
	assert.Same(t, child, h.Hash(4))
	assert.Same(t, list, h.List(5))

	kinds := map[int]node.Kind{
		1: node.KindInt, 2: node.KindFloat, 3: node.KindStr,
		4: node.KindHash, 5: node.KindList, 6: node.KindUndef,
	}
	for id, want := range kinds {
		assert.Equal(t, want, h.KindOf(id), "id %d", id)
		assert.True(t, h.Exists(id), "id %d", id)
	}
	assert.Equal(t, 6, h.Len())
}

func TestHashExistsDefinedKind(t *testing.T) {
	h := node.NewHash().Undef(7).SetInt(8, 1)

	assert.True(t, h.Exists(7))
	assert.False(t, h.Defined(7))
	assert.True(t, h.Defined(8))

	assert.False(t, h.Exists(9))
	assert.False(t, h.Defined(9))
	assert.Equal(t, node.KindUndef, h.KindOf(9))
	assert.False(t, h.Exists(-1))
}

func TestHashSetterReplacesKind(t *testing.T) {
	h := node.NewHash().SetStr(1, "text")
	h.SetInt(1, 5)

	assert.Equal(t, node.KindInt, h.KindOf(1))
	assert.Equal(t, int64(5), h.Int(1))
	assert.Equal(t, 1, h.Len(), "overwrite must not add an entry")
}

func TestHashFloatWidensInt(t *testing.T) {
	h := node.NewHash().SetInt(1, 7)
	assert.Equal(t, 7.0, h.Float(1))

	// The reverse is not allowed.
	h.SetFloat(2, 1.5)
	requireViolation(t, func() { h.Int(2) })
}

func TestHashGetterContract(t *testing.T) {
	h := node.NewHash().SetStr(1, "x")

	tests := []struct {
		name string
		fn   func()
	}{
		{"missing_int", func() { h.Int(2) }},
		{"missing_str", func() { h.Str(2) }},
		{"str_as_int", func() { h.Int(1) }},
		{"str_as_float", func() { h.Float(1) }},
		{"str_as_hash", func() { h.Hash(1) }},
		{"str_as_list", func() { h.List(1) }},
		{"remove_missing", func() { h.Remove(2) }},
		{"negative_id", func() { h.SetInt(-1, 0) }},
		{"nil_hash", func() { h.SetHash(3, nil) }},
		{"nil_list", func() { h.SetList(3, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireViolation(t, tt.fn)
		})
	}
}

func TestHashRemove(t *testing.T) {
	h := node.NewHash().SetInt(1, 10).SetInt(2, 20)

	h.Remove(1)
	assert.False(t, h.Exists(1))
	assert.False(t, h.Defined(1))
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, int64(20), h.Int(2))

	// Re-setting is a fresh insert.
	h.SetStr(1, "back")
	assert.Equal(t, "back", h.Str(1))
	assert.Equal(t, 2, h.Len())
}

// Ids that share a probe start form one cluster; removing the head must not
// hide the ids that probed past it.
func TestHashRemoveKeepsProbeChain(t *testing.T) {
	h := node.NewHash()
	for h.Cap() < 16 {
		h.SetInt(1000+h.Len(), 0)
	}
	capacity := h.Cap()
	for _, id := range h.IDs() {
		h.Remove(id)
	}
	require.Equal(t, capacity, h.Cap())

	// 3, 3+cap and 3+2*cap all start probing at slot 3.
	a, b, c := 3, 3+capacity, 3+2*capacity
	h.SetInt(a, 1).SetInt(b, 2).SetInt(c, 3)
	require.Equal(t, capacity, h.Cap())

	h.Remove(a)
	assert.True(t, h.Exists(b))
	assert.True(t, h.Exists(c))
	assert.Equal(t, int64(2), h.Int(b))
	assert.Equal(t, int64(3), h.Int(c))

	h.Remove(b)
	assert.Equal(t, int64(3), h.Int(c))
	assert.Equal(t, 1, h.Len())
}

func TestHashRemoveWrapAround(t *testing.T) {
	h := node.NewHash()
	for h.Cap() < 8 {
		h.SetInt(100+h.Len(), 0)
	}
	for _, id := range h.IDs() {
		h.Remove(id)
	}
	capacity := h.Cap()
	last := capacity - 1

	// Both start at the last slot; the second wraps to slot 0.
	x, y := last, last+capacity
	h.SetInt(x, 1).SetInt(y, 2)
	h.Remove(x)

	assert.Equal(t, int64(2), h.Int(y))
	assert.Equal(t, []int{y}, h.IDs())
}

func TestHashResizePreservesEntries(t *testing.T) {
	h := node.NewHash()
	require.Equal(t, 4, h.Cap())

	const n = 100
	for id := 0; id < n; id++ {
		switch id % 3 {
		case 0:
			h.SetInt(id, int64(id*10))
		case 1:
			h.SetFloat(id, float64(id)+0.5)
		default:
			h.SetStr(id, "v")
		}
	}

	assert.Equal(t, n, h.Len())
	assert.GreaterOrEqual(t, h.Cap(), 256, "at least two doublings past the initial size")
	assert.Less(t, h.Len(), h.Cap()/2, "load factor stays under one half")

	for id := 0; id < n; id++ {
		switch id % 3 {
		case 0:
			assert.Equal(t, int64(id*10), h.Int(id))
		case 1:
			assert.Equal(t, float64(id)+0.5, h.Float(id))
		default:
			assert.Equal(t, "v", h.Str(id))
		}
	}
}

func TestHashLoadFactor(t *testing.T) {
	h := node.NewHash()
	for id := 0; id < 1000; id += 7 {
		h.SetInt(id, 1)
		require.Less(t, h.Len(), h.Cap()/2)
	}
}

func TestHashIterationVisitsLiveSetInSlotOrder(t *testing.T) {
	h := node.NewHash()
	ids := []int{5, 17, 3, 40, 9, 12}
	for _, id := range ids {
		h.SetInt(id, int64(id))
	}
	h.Remove(40)

	var visited []int
	for id, c, ok := h.Next(h.First()); ok; id, c, ok = h.Next(c) {
		visited = append(visited, id)
	}

	want := []int{3, 5, 9, 12, 17}
	got := append([]int(nil), visited...)
	sort.Ints(got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("live id set mismatch (-want +got):\n%s", diff)
	}

	// Slot order with 16 slots: 17&15 == 1 sorts ahead of 3.
	require.Equal(t, 16, h.Cap())
	assert.Equal(t, []int{17, 3, 5, 9, 12}, visited)

	assert.Equal(t, visited, h.IDs())
}

func TestHashIterationEmpty(t *testing.T) {
	var h node.Hash
	_, _, ok := h.Next(h.First())
	assert.False(t, ok)
	assert.Empty(t, h.IDs())
}

func TestZeroHashIsUsable(t *testing.T) {
	var h node.Hash
	assert.False(t, h.Exists(0))
	h.SetStr(0, "zero")
	assert.Equal(t, "zero", h.Str(0))
	assert.Equal(t, 4, h.Cap())
}

func TestHashGet(t *testing.T) {
	h := node.NewHash().SetFloat(3, 2.5)

	v, ok := h.Get(3)
	require.True(t, ok)
	assert.Equal(t, node.Float(2.5), v)

	_, ok = h.Get(4)
	assert.False(t, ok)

	h.Set(4, nil)
	v, ok = h.Get(4)
	require.True(t, ok)
	assert.Equal(t, node.Undef{}, v)
}

func TestHashNesting(t *testing.T) {
	inner := node.NewList().PushHash(node.NewHash().SetInt(0, 1))
	outer := node.NewHash().SetList(0, inner)
	inner.Hash(0).SetHash(1, outer) // cycles are legal; ownership is the caller's

	assert.Same(t, outer, outer.List(0).Hash(0).Hash(1))
}
