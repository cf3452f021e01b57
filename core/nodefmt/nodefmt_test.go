package nodefmt_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/opal-lang/nodeio/core/intern"
	"github.com/opal-lang/nodeio/core/node"
	"github.com/opal-lang/nodeio/core/nodefmt"
	"github.com/opal-lang/nodeio/runtime/parser"
)

func parse(t *testing.T, names *intern.Table, src string) node.Value {
	t.Helper()
	v, err := parser.ParseString(src, parser.WithInterner(names))
	require.NoError(t, err)
	return v
}

func TestWriteTextCompact(t *testing.T) {
	names := intern.New()
	v := parse(t, names, `{kind: geom, line: "say \"hi\" \\ bye", at: [1, -2, 2.5, 3.], empty: [], none: {}}`)

	got, err := nodefmt.FormatText(v, nodefmt.WithNames(names))
	require.NoError(t, err)

	// Hash slot order follows the interned ids 0..4 on a fresh table.
	want := `{kind: "geom", line: "say \"hi\" \\ bye", at: [1, -2, 2.5, 3.0], empty: [], none: {}}` + "\n"
	assert.Equal(t, want, got)
}

func TestWriteTextIndented(t *testing.T) {
	names := intern.New()
	v := parse(t, names, `{a: 1, b: [x, {c: 2}]}`)

	got, err := nodefmt.FormatText(v, nodefmt.WithNames(names), nodefmt.WithIndent("  "))
	require.NoError(t, err)

	want := `{
  a: 1,
  b: [
    "x",
    {
      c: 2
    }
  ]
}
`
	assert.Equal(t, want, got)
}

func TestWriteTextRoundTrip(t *testing.T) {
	names := intern.New()
	src := `[{kind: geom, shape: {kind: box, x: 0.5, y: -1, color: "red"}, line: "l1"}, {kind: hide, index: 0, line: "l2"}]`
	first := parse(t, names, src)

	for _, indent := range []string{"", "\t"} {
		text, err := nodefmt.FormatText(first, nodefmt.WithNames(names), nodefmt.WithIndent(indent))
		require.NoError(t, err)
		second := parse(t, names, text)

		a, err := nodefmt.ToNative(first, nodefmt.WithNames(names))
		require.NoError(t, err)
		b, err := nodefmt.ToNative(second, nodefmt.WithNames(names))
		require.NoError(t, err)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("round trip with indent %q changed the tree (-first +second):\n%s", indent, diff)
		}
	}
}

func TestWriteTextRejects(t *testing.T) {
	names := intern.New()
	bad := names.Intern("not an identifier")

	tests := []struct {
		name string
		v    node.Value
	}{
		{"undef", node.NewList().Undef(0)},
		{"nan", node.NewList().PushFloat(math.NaN())},
		{"inf", node.NewList().PushFloat(math.Inf(-1))},
		{"newline in string", node.NewList().PushStr("a\nb")},
		{"unnamed id", node.NewHash().SetInt(9999, 1)},
		{"non identifier name", node.NewHash().SetInt(bad, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := nodefmt.FormatText(tt.v, nodefmt.WithNames(names))
			require.Error(t, err)
		})
	}
}

func TestCycleDetected(t *testing.T) {
	names := intern.New()
	h := node.NewHash()
	h.SetList(names.Intern("self"), node.NewList().PushHash(h))

	_, err := nodefmt.ToNative(h, nodefmt.WithNames(names))
	assert.ErrorIs(t, err, nodefmt.ErrCycle)

	_, err = nodefmt.FormatText(h, nodefmt.WithNames(names))
	assert.ErrorIs(t, err, nodefmt.ErrCycle)
}

func TestSharedChildIsNotACycle(t *testing.T) {
	names := intern.New()
	shared := node.NewHash().SetInt(names.Intern("n"), 1)
	l := node.NewList().PushHash(shared).PushHash(shared)

	native, err := nodefmt.ToNative(l, nodefmt.WithNames(names))
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"n": int64(1)}, map[string]any{"n": int64(1)}}, native)
}

func TestDump(t *testing.T) {
	names := intern.New()
	h := node.NewHash().
		SetInt(names.Intern("count"), 5).
		SetFloat(names.Intern("ratio"), 0.5).
		SetStr(names.Intern("label"), "hi").
		SetList(names.Intern("items"), node.NewList()).
		Undef(names.Intern("gap")).
		SetHash(40, node.NewHash())

	var buf bytes.Buffer
	require.NoError(t, nodefmt.Dump(&buf, "record", h, nodefmt.WithNames(names)))

	want := "record\n" +
		"    count => 5\n" +
		"    ratio => 0.500000\n" +
		"    label => hi\n" +
		"    items => list\n" +
		"    gap => undef\n" +
		"    40 => hash\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, nodefmt.Dump(&buf, "seq", node.NewList().PushInt(7).PushHash(node.NewHash())))
	assert.Equal(t, "seq\n    0 => 7\n    1 => hash\n", buf.String())
}

func TestNativeRoundTripThroughJSONAndYAML(t *testing.T) {
	names := intern.New()
	v := parse(t, names, `{name: "ok", count: 5, ratio: 0.25, tags: [a, b], sub: {x: 1}}`)
	native, err := nodefmt.ToNative(v, nodefmt.WithNames(names))
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(native)
		require.NoError(t, err)

		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var back any
		require.NoError(t, dec.Decode(&back))
		back = numbersToNative(t, back)

		h, err := nodefmt.FromNative(back, nodefmt.WithNames(names))
		require.NoError(t, err)
		assert.Equal(t, int64(5), h.(*node.Hash).Int(names.Intern("count")))
		assert.Equal(t, 0.25, h.(*node.Hash).Float(names.Intern("ratio")))
	})

	t.Run("yaml", func(t *testing.T) {
		data, err := yaml.Marshal(native)
		require.NoError(t, err)

		var back any
		require.NoError(t, yaml.Unmarshal(data, &back))
		h, err := nodefmt.FromNative(back, nodefmt.WithNames(names))
		require.NoError(t, err)

		again, err := nodefmt.ToNative(h, nodefmt.WithNames(names))
		require.NoError(t, err)
		if diff := cmp.Diff(native, again); diff != "" {
			t.Errorf("yaml round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

// numbersToNative converts json.Number leaves to int64 or float64.
func numbersToNative(t *testing.T, x any) any {
	switch x := x.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, err := x.Float64()
		require.NoError(t, err)
		return f
	case []any:
		for i := range x {
			x[i] = numbersToNative(t, x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = numbersToNative(t, x[k])
		}
	}
	return x
}

func TestFromNativeRejects(t *testing.T) {
	names := intern.New()
	for _, x := range []any{
		true,
		uint64(math.MaxUint64),
		map[any]any{1: "numeric key"},
		struct{}{},
	} {
		_, err := nodefmt.FromNative(x, nodefmt.WithNames(names))
		assert.ErrorIs(t, err, nodefmt.ErrUnsupported, "%T", x)
	}
}

func TestSnapshotRoundTripAcrossTables(t *testing.T) {
	writer := intern.New()
	writer.Intern("padding") // shift ids so the reader's ids differ
	v := parse(t, writer, `[{kind: geom, w: 2.0, n: -3, s: "x", l: [1, 2.5], h: {}}]`)

	data, err := nodefmt.MarshalSnapshot(v, nodefmt.WithNames(writer))
	require.NoError(t, err)

	reader := intern.New()
	back, err := nodefmt.UnmarshalSnapshot(data, nodefmt.WithNames(reader))
	require.NoError(t, err)

	rec := back.(*node.List).Hash(0)
	assert.Equal(t, "geom", rec.Str(reader.Intern("kind")))
	assert.Equal(t, node.KindFloat, rec.KindOf(reader.Intern("w")))
	assert.Equal(t, int64(-3), rec.Int(reader.Intern("n")))
	assert.Equal(t, 2.5, rec.List(reader.Intern("l")).Float(1))
	assert.Equal(t, node.KindInt, rec.List(reader.Intern("l")).KindOf(0))

	want, err := nodefmt.Digest(v, nodefmt.WithNames(writer))
	require.NoError(t, err)
	got, err := nodefmt.Digest(back, nodefmt.WithNames(reader))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSnapshotVersionCheck(t *testing.T) {
	encode := func(version string) []byte {
		data, err := cbor.Marshal(map[string]any{"version": version, "root": []any{int64(1)}})
		require.NoError(t, err)
		return data
	}

	_, err := nodefmt.UnmarshalSnapshot(encode("v1.4.2"), nodefmt.WithNames(intern.New()))
	assert.NoError(t, err, "same major is compatible")

	_, err = nodefmt.UnmarshalSnapshot(encode("v2.0.0"), nodefmt.WithNames(intern.New()))
	assert.ErrorIs(t, err, nodefmt.ErrSnapshotVersion)

	_, err = nodefmt.UnmarshalSnapshot(encode("latest"), nodefmt.WithNames(intern.New()))
	assert.ErrorIs(t, err, nodefmt.ErrSnapshotVersion)

	_, err = nodefmt.UnmarshalSnapshot([]byte{0xff}, nodefmt.WithNames(intern.New()))
	assert.Error(t, err)
}

func TestDigestIgnoresInsertionOrder(t *testing.T) {
	names := intern.New()
	a := parse(t, names, `{x: 1, y: [1, 2], z: "s"}`)
	b := parse(t, names, `{z: "s", y: [1, 2], x: 1}`)
	c := parse(t, names, `{z: "s", y: [2, 1], x: 1}`)

	da, err := nodefmt.Digest(a, nodefmt.WithNames(names))
	require.NoError(t, err)
	db, err := nodefmt.Digest(b, nodefmt.WithNames(names))
	require.NoError(t, err)
	dc, err := nodefmt.Digest(c, nodefmt.WithNames(names))
	require.NoError(t, err)

	assert.Equal(t, da, db)
	assert.NotEqual(t, da, dc, "list order is significant")

	s := nodefmt.FormatDigest(da)
	assert.True(t, strings.HasPrefix(s, "blake2b:"))
	assert.Len(t, s, len("blake2b:")+64)
}

func TestDigestDistinguishesIntFromFloat(t *testing.T) {
	names := intern.New()
	i, err := nodefmt.Digest(node.NewList().PushInt(1), nodefmt.WithNames(names))
	require.NoError(t, err)
	f, err := nodefmt.Digest(node.NewList().PushFloat(1), nodefmt.WithNames(names))
	require.NoError(t, err)
	assert.NotEqual(t, i, f)
}
