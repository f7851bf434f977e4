package domain

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWaypointDistance(t *testing.T) {
	a := Waypoint{Name: "a", X: 0, Y: 0}
	b := Waypoint{Name: "b", X: 3, Y: 4}

	if got := a.DistanceTo(b); !almostEqual(got, 5) {
		t.Fatalf("distance = %v, want 5", got)
	}
	if got := a.DistanceTo(a); got != 0 {
		t.Fatalf("distance to self = %v, want 0", got)
	}
}

func TestPathLengthIncludesClosingEdge(t *testing.T) {
	p := NewPath([]Waypoint{
		{Name: "a", X: 0, Y: 0},
		{Name: "b", X: 3, Y: 0},
		{Name: "c", X: 3, Y: 4},
	})

	if got := p.Length(); !almostEqual(got, 12) {
		t.Fatalf("cyclic length = %v, want 12", got)
	}
	if got := p.OpenLength(); !almostEqual(got, 7) {
		t.Fatalf("open length = %v, want 7", got)
	}
}

func TestPathLengthDegenerateSizes(t *testing.T) {
	if got := NewPath(nil).Length(); got != 0 {
		t.Fatalf("empty path length = %v, want 0", got)
	}
	if got := NewPath([]Waypoint{{Name: "solo"}}).Length(); got != 0 {
		t.Fatalf("single stop length = %v, want 0", got)
	}

	two := NewPath([]Waypoint{{Name: "a"}, {Name: "b", X: 2}})
	if got := two.Length(); !almostEqual(got, 4) {
		t.Fatalf("two stop cyclic length = %v, want 4", got)
	}
	if got := two.OpenLength(); !almostEqual(got, 2) {
		t.Fatalf("two stop open length = %v, want 2", got)
	}
}

// Every mutating operation must leave the cached length equal to a fresh
// computation over the resulting sequence.
func TestPathMutationsRecomputeLength(t *testing.T) {
	base := []Waypoint{
		{Name: "a", X: 0, Y: 0},
		{Name: "b", X: 10, Y: 0},
		{Name: "c", X: 10, Y: 10},
		{Name: "d", X: 0, Y: 10},
		{Name: "e", X: 5, Y: 5},
	}

	cases := []struct {
		name   string
		mutate func(p *Path)
	}{
		{"swap", func(p *Path) { p.SwapStops(1, 3) }},
		{"reverse", func(p *Path) { p.ReverseSegment(1, 4) }},
		{"reverse inverted indexes", func(p *Path) { p.ReverseSegment(4, 1) }},
		{"move forward", func(p *Path) { p.MoveStop(0, 3) }},
		{"move backward", func(p *Path) { p.MoveStop(4, 0) }},
		{"move to end", func(p *Path) { p.MoveStop(1, 4) }},
	}

	for _, tc := range cases {
		p := NewPath(base)
		tc.mutate(p)

		want := NewPath(p.Stops()).Length()
		if !almostEqual(p.Length(), want) {
			t.Fatalf("%s: cached length = %v, want %v", tc.name, p.Length(), want)
		}
		if p.Len() != len(base) {
			t.Fatalf("%s: len = %d, want %d", tc.name, p.Len(), len(base))
		}
	}
}

func TestPathMoveStopOrdering(t *testing.T) {
	p := NewPath([]Waypoint{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}})
	p.MoveStop(0, 2)

	want := []string{"b", "c", "a", "d"}
	for i, name := range want {
		if p.At(i).Name != name {
			t.Fatalf("stop %d = %q, want %q", i, p.At(i).Name, name)
		}
	}
}

func TestPathOwnsItsStops(t *testing.T) {
	stops := []Waypoint{{Name: "a"}, {Name: "b", X: 1}}
	p := NewPath(stops)

	stops[0].Name = "mutated input"
	if p.At(0).Name != "a" {
		t.Fatalf("path affected by caller mutation of input slice")
	}

	view := p.Stops()
	view[1].Name = "mutated view"
	if p.At(1).Name != "b" {
		t.Fatalf("path affected by caller mutation of returned slice")
	}
}
