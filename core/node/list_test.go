package node_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/nodeio/core/node"
)

// values collects the list's elements for comparison.
func values(l *node.List) []node.Value {
	out := make([]node.Value, 0, l.Len())
	for _, v := range l.All() {
		out = append(out, v)
	}
	return out
}

func TestListPushPopIsLIFO(t *testing.T) {
	l := node.NewList()
	l.PushInt(1).PushInt(2).PushInt(3)

	assert.Equal(t, int64(3), l.PopInt())
	assert.Equal(t, int64(2), l.PopInt())
	assert.Equal(t, int64(1), l.PopInt())
	assert.Equal(t, 0, l.Len())
}

func TestListUnshiftShiftRestores(t *testing.T) {
	l := node.NewList().PushStr("a").PushStr("b").PushFloat(1.5)
	before := values(l)

	l.UnshiftInt(99)
	assert.Equal(t, 4, l.Len())
	assert.Equal(t, int64(99), l.Int(0))
	assert.Equal(t, "a", l.Str(1))

	assert.Equal(t, int64(99), l.ShiftInt())
	if diff := cmp.Diff(before, values(l)); diff != "" {
		t.Errorf("content changed after unshift/shift (-want +got):\n%s", diff)
	}
}

func TestListUnshiftGrowsAllocation(t *testing.T) {
	l := node.NewList()
	for i := 0; i < 4; i++ {
		l.PushInt(int64(i))
	}
	require.Equal(t, 4, l.Cap())

	l.UnshiftInt(-1)
	assert.Equal(t, 8, l.Cap())
	want := []node.Value{node.Int(-1), node.Int(0), node.Int(1), node.Int(2), node.Int(3)}
	if diff := cmp.Diff(want, values(l)); diff != "" {
		t.Errorf("unexpected content (-want +got):\n%s", diff)
	}
}

func TestListSparseGrowth(t *testing.T) {
	l := node.NewList()
	l.SetStr(9, "Weird with a beard")

	assert.Equal(t, 10, l.Len())
	assert.Equal(t, 16, l.Cap())
	assert.False(t, l.Defined(4))
	assert.True(t, l.Exists(4))
	assert.Equal(t, node.KindUndef, l.KindOf(4))
	assert.True(t, l.Defined(9))
	assert.False(t, l.Exists(10))
}

// Builds, grows and drains one list with every value kind.
func TestListMixedSequence(t *testing.T) {
	l := node.NewList()
	l.SetInt(0, 123).SetFloat(1, 456.223).SetStr(2, "Hello, world")
	require.Equal(t, 3, l.Len())

	l.SetStr(9, "Weird with a beard")
	require.Equal(t, 10, l.Len())

	l.PushInt(1010)
	require.Equal(t, 11, l.Len())

	assert.Equal(t, int64(123), l.ShiftInt())
	assert.Equal(t, int64(1010), l.PopInt())
	assert.Equal(t, 9, l.Len())

	l.UnshiftFloat(223.476)
	assert.Equal(t, 223.476, l.Float(0))
	assert.Equal(t, 456.223, l.Float(1))
	assert.Equal(t, "Weird with a beard", l.Str(9))
}

func TestListPopClearsSlot(t *testing.T) {
	l := node.NewList().PushInt(1).PushInt(2)
	l.PopInt()
	l.SetInt(3, 4)

	// Index 1 was vacated by the pop and must read as Undef, not 2.
	assert.Equal(t, node.KindUndef, l.KindOf(1))
	assert.Equal(t, node.KindUndef, l.KindOf(2))
}

func TestListFloatWidening(t *testing.T) {
	l := node.NewList().PushInt(2).PushInt(3)
	assert.Equal(t, 2.0, l.Float(0))
	assert.Equal(t, 3.0, l.PopFloat())
	assert.Equal(t, 2.0, l.ShiftFloat())
}

func TestListContract(t *testing.T) {
	l := node.NewList().PushStr("only")

	tests := []struct {
		name string
		fn   func()
	}{
		{"index_past_end", func() { l.Str(1) }},
		{"negative_index", func() { l.Get(-1) }},
		{"negative_set", func() { l.SetInt(-1, 0) }},
		{"wrong_kind", func() { l.Int(0) }},
		{"pop_wrong_kind", func() { node.NewList().PushStr("x").PopHash() }},
		{"shift_wrong_kind", func() { node.NewList().PushInt(1).ShiftList() }},
		{"pop_empty", func() { node.NewList().Pop() }},
		{"shift_empty", func() { node.NewList().ShiftInt() }},
		{"nil_hash", func() { l.PushHash(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireViolation(t, tt.fn)
		})
	}
}

func TestListContainersRoundTrip(t *testing.T) {
	h := node.NewHash().SetInt(0, 1)
	inner := node.NewList().PushInt(2)

	l := node.NewList().PushHash(h).PushList(inner)
	l.UnshiftList(node.NewList())
	l.UnshiftHash(node.NewHash())

	assert.Equal(t, 4, l.Len())
	assert.Same(t, h, l.Hash(2))
	assert.Same(t, inner, l.List(3))
	assert.Same(t, inner, l.PopList())
	assert.Same(t, h, l.PopHash())
	assert.Equal(t, node.KindHash, l.ShiftHash().Kind())
	assert.Equal(t, 0, l.ShiftList().Len())
}

func TestZeroListIsUsable(t *testing.T) {
	var l node.List
	l.UnshiftStr("first")
	l.PushStr("last")

	assert.Equal(t, "first", l.ShiftStr())
	assert.Equal(t, "last", l.PopStr())
	assert.Equal(t, 0, l.Len())
}

func TestListSetUndefAndGeneric(t *testing.T) {
	l := node.NewList()
	l.Push(node.Str("s")).Push(nil).Undef(3)

	assert.Equal(t, 4, l.Len())
	assert.Equal(t, node.Str("s"), l.Get(0))
	assert.Equal(t, node.Undef{}, l.Get(1))
	assert.Equal(t, node.Undef{}, l.Get(3))
	assert.Equal(t, node.Str("s"), l.Shift())
	assert.Equal(t, node.Undef{}, l.Pop())
}
