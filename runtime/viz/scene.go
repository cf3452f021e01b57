// Package viz replays a scene log: a list of records that create boxes and
// later hide or unhide them. A Scene keeps a cursor into the log and the
// visibility of every box as of that cursor, so a viewer can step through
// the log in either direction.
//
// A scene log looks like
//
//	[
//	  {kind: geom, line: "step 1", shape: {kind: box, x: 0, y: 0, z: 0, w: 1, h: 1, d: 1, color: red}},
//	  {kind: hide, line: "step 2", index: 0},
//	]
//
// where index refers back to the position of a geom record.
package viz

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/opal-lang/nodeio/core/intern"
	"github.com/opal-lang/nodeio/core/invariant"
	"github.com/opal-lang/nodeio/core/node"
	"github.com/opal-lang/nodeio/core/nodefmt"
	"github.com/opal-lang/nodeio/runtime/parser"
)

// ErrInvalidScene is matched by every record validation failure.
var ErrInvalidScene = errors.New("invalid scene log")

// RecordError locates a validation failure in the log.
type RecordError struct {
	Index int // position of the record in the log
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Is makes every RecordError match ErrInvalidScene.
func (e *RecordError) Is(target error) bool { return target == ErrInvalidScene }

// RecordKind is the kind field of a record.
type RecordKind int

const (
	Geom RecordKind = iota
	Hide
	Unhide
)

var recordKinds = []string{"geom", "hide", "unhide"}

func (k RecordKind) String() string {
	if int(k) < len(recordKinds) {
		return recordKinds[k]
	}
	return fmt.Sprintf("RecordKind(%d)", int(k))
}

var shapeKinds = []string{"box"}

// Box is the only shape kind.
type Box struct {
	X, Y, Z float64
	W, H, D float64
	Color   string
}

// Entity is a box created by a geom record.
type Entity struct {
	Record  int // position of the creating record
	Shape   Box
	Visible bool
}

type record struct {
	kind   RecordKind
	line   string
	target int // index of the geom record a hide/unhide refers to
}

// fieldIDs are the interned ids of every field the loader reads.
type fieldIDs struct {
	line, kind, shape, color, index int
	x, y, z, w, h, d                int
}

func internFields(t *intern.Table) fieldIDs {
	return fieldIDs{
		line:  t.Intern("line"),
		kind:  t.Intern("kind"),
		shape: t.Intern("shape"),
		color: t.Intern("color"),
		index: t.Intern("index"),
		x:     t.Intern("x"),
		y:     t.Intern("y"),
		z:     t.Intern("z"),
		w:     t.Intern("w"),
		h:     t.Intern("h"),
		d:     t.Intern("d"),
	}
}

// Option configures Load.
type Option func(*config)

type config struct {
	last   int
	names  *intern.Table
	logger *slog.Logger
}

// WithLast sets the initial cursor. Out-of-range values are clamped.
func WithLast(n int) Option {
	return func(c *config) {
		c.last = n
	}
}

// WithNames resolves field names through t instead of intern.Default(). It
// must be the table the log was parsed with.
func WithNames(t *intern.Table) Option {
	return func(c *config) {
		c.names = t
	}
}

// WithLogger traces loading at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Scene is a loaded scene log with a cursor.
type Scene struct {
	records  []record
	entities []*Entity // by record position; nil for hide and unhide
	last     int
}

// Load validates every record of list and builds the scene with the cursor
// at WithLast (default 0). A box is visible when its geom record is at or
// before the cursor and no later hide up to the cursor hid it.
func Load(list *node.List, opts ...Option) (*Scene, error) {
	invariant.NotNil(list, "list")

	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.names == nil {
		c.names = intern.Default()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	n := list.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: no records", ErrInvalidScene)
	}

	ids := internFields(c.names)
	s := &Scene{
		records:  make([]record, n),
		entities: make([]*Entity, n),
		last:     min(max(c.last, 0), n-1),
	}

	for i := 0; i < n; i++ {
		rec, err := s.load(list, i, ids, c.names)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		s.records[i] = rec
		c.logger.Debug("record", "index", i, "kind", rec.kind, "line", rec.line)

		visible := i <= s.last
		switch rec.kind {
		case Geom:
			s.entities[i].Visible = visible
		case Hide, Unhide:
			if visible {
				s.entities[rec.target].Visible = rec.kind == Unhide
			}
		}
	}

	invariant.Postcondition(len(s.records) == n, "every record loaded")
	return s, nil
}

// LoadFile parses the scene log at path (plain or gzip) and loads it.
func LoadFile(path string, opts ...Option) (*Scene, error) {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	var popts []parser.ParserOpt
	if c.names != nil {
		popts = append(popts, parser.WithInterner(c.names))
	}
	if c.logger != nil {
		popts = append(popts, parser.WithLogger(c.logger))
	}

	p, err := parser.Open(path, popts...)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	list, err := p.ParseList()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectEOF(); err != nil {
		return nil, err
	}
	return Load(list, opts...)
}

// load validates record i and, for geom records, creates its entity.
func (s *Scene) load(list *node.List, i int, ids fieldIDs, names *intern.Table) (record, error) {
	if k := list.KindOf(i); k != node.KindHash {
		return record{}, fmt.Errorf("expected a hash, got %s", k)
	}
	h := list.Hash(i)

	// Name the closest valid kind before the generic schema message.
	if h.KindOf(ids.kind) == node.KindStr {
		if kind := h.Str(ids.kind); indexOf(recordKinds, kind) < 0 {
			return record{}, fmt.Errorf("unknown kind %q%s", kind, didYouMean(kind, recordKinds))
		}
	}
	if h.KindOf(ids.shape) == node.KindHash {
		shape := h.Hash(ids.shape)
		if shape.KindOf(ids.kind) == node.KindStr {
			if kind := shape.Str(ids.kind); indexOf(shapeKinds, kind) < 0 {
				return record{}, fmt.Errorf("unknown shape kind %q%s", kind, didYouMean(kind, shapeKinds))
			}
		}
	}

	native, err := nodefmt.ToNative(h, nodefmt.WithNames(names))
	if err != nil {
		return record{}, err
	}
	if err := validateRecord(native); err != nil {
		return record{}, err
	}

	rec := record{
		kind: RecordKind(indexOf(recordKinds, h.Str(ids.kind))),
		line: h.Str(ids.line),
	}

	if rec.kind == Geom {
		shape := h.Hash(ids.shape)
		s.entities[i] = &Entity{
			Record: i,
			Shape: Box{
				X:     shape.Float(ids.x),
				Y:     shape.Float(ids.y),
				Z:     shape.Float(ids.z),
				W:     shape.Float(ids.w),
				H:     shape.Float(ids.h),
				D:     shape.Float(ids.d),
				Color: shape.Str(ids.color),
			},
		}
		return rec, nil
	}

	if k := h.KindOf(ids.index); k != node.KindInt {
		return record{}, fmt.Errorf("index must be an integer, got %s", k)
	}
	target := h.Int(ids.index)
	if target >= int64(i) || s.entities[target] == nil {
		return record{}, fmt.Errorf("%s index %d does not refer to an earlier geom record", rec.kind, target)
	}
	rec.target = int(target)
	return rec, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// Len returns the number of records.
func (s *Scene) Len() int { return len(s.records) }

// Last returns the cursor: the position of the most recently applied record.
func (s *Scene) Last() int { return s.last }

// Current returns the line of the record under the cursor.
func (s *Scene) Current() string { return s.records[s.last].line }

// Line returns the line of record i.
func (s *Scene) Line(i int) string {
	invariant.InRange(i, 0, len(s.records)-1, "record index")
	return s.records[i].line
}

// Kind returns the kind of record i.
func (s *Scene) Kind(i int) RecordKind {
	invariant.InRange(i, 0, len(s.records)-1, "record index")
	return s.records[i].kind
}

// Forward applies up to n records after the cursor and returns their lines.
// A geom record shows its box; hide and unhide set their target's visibility.
func (s *Scene) Forward(n int) []string {
	var lines []string
	for i := 0; i < n && s.last != len(s.records)-1; i++ {
		s.last++
		rec := s.records[s.last]
		if e := s.entities[s.last]; e != nil {
			e.Visible = true
		} else {
			s.entities[rec.target].Visible = rec.kind != Hide
		}
		lines = append(lines, rec.line)
	}
	return lines
}

// Back reverts up to n records ending at the cursor and returns their lines.
// Reverting an unhide hides its target and reverting a hide shows it.
func (s *Scene) Back(n int) []string {
	var lines []string
	for i := 0; i < n && s.last != 0; i++ {
		rec := s.records[s.last]
		if e := s.entities[s.last]; e != nil {
			e.Visible = false
		} else {
			s.entities[rec.target].Visible = rec.kind == Hide
		}
		s.last--
		lines = append(lines, rec.line)
	}
	return lines
}

// End moves the cursor to the final record.
func (s *Scene) End() []string { return s.Forward(len(s.records)) }

// Start moves the cursor to the first record.
func (s *Scene) Start() []string { return s.Back(len(s.records)) }

// Entities returns every box in log order.
func (s *Scene) Entities() []*Entity {
	var out []*Entity
	for _, e := range s.entities {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Visible returns the record positions of the boxes currently shown.
func (s *Scene) Visible() []int {
	var out []int
	for i, e := range s.entities {
		if e != nil && e.Visible {
			out = append(out, i)
		}
	}
	return out
}
