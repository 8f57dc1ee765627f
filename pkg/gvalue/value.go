// Package gvalue defines the closed Value union, Row bindings, and the
// Vertex/Edge/Path entity records that flow through the parser,
// executor, and graph algorithms.
//
// The Value union is closed by design (spec design note: "Dynamic
// dispatch on Values... prefer a tagged variant over open-ended
// inheritance"): one Kind enum, one struct, never an interface that user
// code could extend.
package gvalue

import (
	"fmt"

	"github.com/dong-qiu/graphdb/pkg/graphid"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
	KindVertex
	KindEdge
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	case KindPath:
		return "path"
	default:
		return "unknown"
	}
}

// Value is a tagged union over null, boolean, 64-bit integer, 64-bit
// float, text, list, mapping, Vertex, Edge, and Path.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	List   []Value
	Map    map[string]Value
	Vertex *Vertex
	Edge   *Edge
	Path   *Path
}

// Null is the zero Value.
var Null = Value{Kind: KindNull}

func Bool(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Str(s string) Value    { return Value{Kind: KindString, Str: s} }
func List(vs []Value) Value { return Value{Kind: KindList, List: vs} }
func Map(m map[string]Value) Value {
	return Value{Kind: KindMap, Map: m}
}
func FromVertex(v *Vertex) Value { return Value{Kind: KindVertex, Vertex: v} }
func FromEdge(e *Edge) Value     { return Value{Kind: KindEdge, Edge: e} }
func FromPath(p *Path) Value     { return Value{Kind: KindPath, Path: p} }

// IsNull reports whether v holds the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Truthy implements the coercion rule used by AND/OR/NOT: null is
// false, a boolean is itself, a number is true iff nonzero, a string is
// true iff nonempty. Every other kind (list, map, vertex, edge, path)
// is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindString:
		return v.Str != ""
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	case KindVertex:
		return v.Vertex.String()
	case KindEdge:
		return v.Edge.String()
	case KindPath:
		return fmt.Sprintf("path(%d vertices)", len(v.Path.Vertices))
	default:
		return fmt.Sprintf("%v", v.asAny())
	}
}

func (v Value) asAny() any {
	switch v.Kind {
	case KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = e.asAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for k, e := range v.Map {
			out[k] = e.asAny()
		}
		return out
	default:
		return nil
	}
}

// Row is a mapping from variable name to Value, the unit of data flow
// inside the executor.
type Row map[string]Value

// Clone returns a shallow copy of r so that later projection stages can
// rebind names without mutating an upstream row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Vertex is {id, label, properties}.
type Vertex struct {
	ID         graphid.ID
	Label      string
	Properties map[string]any
}

func (v *Vertex) String() string {
	return fmt.Sprintf("(%s:%s)", v.ID, v.Label)
}

// Edge is {id, start, end, label, properties}. Directed; self-loops
// (Start == End) are permitted.
type Edge struct {
	ID         graphid.ID
	Start      graphid.ID
	End        graphid.ID
	Label      string
	Properties map[string]any
}

func (e *Edge) String() string {
	return fmt.Sprintf("[%s:%s]", e.ID, e.Label)
}

// Path is an ordered sequence of vertices and the edges connecting them,
// with |Vertices| = |Edges| + 1 and, for every i, Edges[i].Start =
// Vertices[i].ID and Edges[i].End = Vertices[i+1].ID.
type Path struct {
	Vertices []*Vertex
	Edges    []*Edge
}

// ErrMalformedPath is returned by NewPath when the vertex/edge
// continuity invariant does not hold.
type ErrMalformedPath struct {
	Index  int
	Reason string
}

func (e *ErrMalformedPath) Error() string {
	return fmt.Sprintf("gvalue: malformed path at edge %d: %s", e.Index, e.Reason)
}

// NewPath validates and constructs a Path. It fails if |vertices| !=
// |edges| + 1, or if any edge does not connect its flanking vertices in
// order.
func NewPath(vertices []*Vertex, edges []*Edge) (*Path, error) {
	if len(vertices) != len(edges)+1 {
		return nil, &ErrMalformedPath{Index: -1, Reason: "len(vertices) != len(edges)+1"}
	}
	for i, e := range edges {
		if e.Start != vertices[i].ID {
			return nil, &ErrMalformedPath{Index: i, Reason: "edge start does not match preceding vertex"}
		}
		if e.End != vertices[i+1].ID {
			return nil, &ErrMalformedPath{Index: i, Reason: "edge end does not match following vertex"}
		}
	}
	return &Path{Vertices: vertices, Edges: edges}, nil
}

// Reverse returns a new Path traversing the same vertices and edges in
// the opposite direction. The reversed path is not itself a valid
// directed Path over the same Edge records (their Start/End are fixed);
// Reverse is intended for display and for algorithms that only care
// about the vertex sequence, not for re-insertion as a forward path.
func (p *Path) Reverse() *Path {
	n := len(p.Vertices)
	rv := make([]*Vertex, n)
	for i, v := range p.Vertices {
		rv[n-1-i] = v
	}
	m := len(p.Edges)
	re := make([]*Edge, m)
	for i, e := range p.Edges {
		re[m-1-i] = e
	}
	return &Path{Vertices: rv, Edges: re}
}

// Length is the number of edges (hops) in the path.
func (p *Path) Length() int {
	return len(p.Edges)
}
