package gvalue

import (
	"testing"

	"github.com/dong-qiu/graphdb/pkg/graphid"
)

func mkID(lab uint16, loc uint64) graphid.ID {
	id, _ := graphid.New(lab, loc)
	return id
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{Bool(false), false},
		{Bool(true), true},
		{Int(0), false},
		{Int(1), true},
		{Float(0), false},
		{Str(""), false},
		{Str("x"), true},
		{List(nil), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestNewPathValid(t *testing.T) {
	v0 := &Vertex{ID: mkID(1, 0), Label: "P"}
	v1 := &Vertex{ID: mkID(1, 1), Label: "P"}
	v2 := &Vertex{ID: mkID(1, 2), Label: "P"}
	e0 := &Edge{ID: mkID(2, 0), Start: v0.ID, End: v1.ID, Label: "K"}
	e1 := &Edge{ID: mkID(2, 1), Start: v1.ID, End: v2.ID, Label: "K"}

	p, err := NewPath([]*Vertex{v0, v1, v2}, []*Edge{e0, e1})
	if err != nil {
		t.Fatalf("NewPath: %v", err)
	}
	if p.Length() != 2 {
		t.Errorf("Length() = %d, want 2", p.Length())
	}

	rp := p.Reverse()
	if rp.Vertices[0] != v2 || rp.Vertices[2] != v0 {
		t.Errorf("Reverse did not flip vertex order")
	}
}

func TestNewPathRejectsDiscontinuity(t *testing.T) {
	v0 := &Vertex{ID: mkID(1, 0)}
	v1 := &Vertex{ID: mkID(1, 1)}
	v2 := &Vertex{ID: mkID(1, 2)}
	e0 := &Edge{ID: mkID(2, 0), Start: v0.ID, End: v1.ID}
	e1 := &Edge{ID: mkID(2, 1), Start: mkID(1, 99), End: v2.ID}

	if _, err := NewPath([]*Vertex{v0, v1, v2}, []*Edge{e0, e1}); err == nil {
		t.Errorf("expected error for discontinuous path")
	}
}

func TestNewPathRejectsLengthMismatch(t *testing.T) {
	v0 := &Vertex{ID: mkID(1, 0)}
	if _, err := NewPath([]*Vertex{v0}, []*Edge{{}}); err == nil {
		t.Errorf("expected error for mismatched vertex/edge counts")
	}
}
