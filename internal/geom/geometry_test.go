package geom

import (
	"math"
	"testing"
)

func TestNormalizeZeroVector(t *testing.T) {
	if got := (Vec2{}).Normalize(); !got.IsZero() {
		t.Fatalf("expected zero vector, got %+v", got)
	}
	got := Vec2{X: 3, Y: 4}.Normalize()
	if math.Abs(got.X-0.6) > 1e-9 || math.Abs(got.Y-0.8) > 1e-9 {
		t.Fatalf("expected (0.6, 0.8), got %+v", got)
	}
}

func TestNormalizeRejectsNonFinite(t *testing.T) {
	for _, v := range []Vec2{{X: math.NaN(), Y: 1}, {X: 1, Y: math.Inf(1)}, {X: math.Inf(-1), Y: math.Inf(-1)}} {
		if v.IsFinite() {
			t.Fatalf("expected %+v to be reported as not finite", v)
		}
		if got := v.Normalize(); !got.IsZero() {
			t.Fatalf("expected zero vector for %+v, got %+v", v, got)
		}
	}
	if !(Vec2{X: -3, Y: 4}).IsFinite() {
		t.Fatalf("expected ordinary vector to be finite")
	}
}

func TestPushOutCircleSeparatesAlongClosestPoint(t *testing.T) {
	wall := Rect{X: 100, Y: 100, Width: 50, Height: 50}
	got := PushOutCircle(Vec2{X: 90, Y: 120}, 15, []Rect{wall})
	if math.Abs(got.X-85) > 1e-9 || got.Y != 120 {
		t.Fatalf("expected centre pushed to (85, 120), got %+v", got)
	}
}

func TestPushOutCircleLeavesDistantCircle(t *testing.T) {
	wall := Rect{X: 100, Y: 100, Width: 50, Height: 50}
	start := Vec2{X: 60, Y: 120}
	if got := PushOutCircle(start, 15, []Rect{wall}); got != start {
		t.Fatalf("expected no movement, got %+v", got)
	}
}

func TestPushOutCircleInsideUsesNearestEdge(t *testing.T) {
	wall := Rect{X: 100, Y: 100, Width: 50, Height: 50}
	got := PushOutCircle(Vec2{X: 104, Y: 125}, 15, []Rect{wall})
	if got.X != 85 || got.Y != 125 {
		t.Fatalf("expected exit through left edge at (85, 125), got %+v", got)
	}
}

func TestPushOutCircleResolvesInListOrder(t *testing.T) {
	left := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	right := Rect{X: 120, Y: 0, Width: 100, Height: 100}
	got := PushOutCircle(Vec2{X: 110, Y: 50}, 15, []Rect{left, right})
	// left pushes to x=115, right then pushes back to x=105.
	if math.Abs(got.X-105) > 1e-9 {
		t.Fatalf("expected sequential resolution to end at x=105, got %+v", got)
	}
}

func TestHasLineOfSight(t *testing.T) {
	wall := Rect{X: 100, Y: 0, Width: 10, Height: 200}
	if HasLineOfSight(Vec2{X: 50, Y: 50}, Vec2{X: 200, Y: 50}, []Rect{wall}) {
		t.Fatalf("expected wall to block sight")
	}
	if !HasLineOfSight(Vec2{X: 50, Y: 250}, Vec2{X: 200, Y: 250}, []Rect{wall}) {
		t.Fatalf("expected clear sight below the wall")
	}
	if !HasLineOfSight(Vec2{X: 0, Y: 0}, Vec2{X: 900, Y: 900}, nil) {
		t.Fatalf("expected clear sight without obstacles")
	}
}

func TestSegmentsIntersectCollinearOverlap(t *testing.T) {
	if !SegmentsIntersect(Vec2{X: 0, Y: 0}, Vec2{X: 10, Y: 0}, Vec2{X: 5, Y: 0}, Vec2{X: 15, Y: 0}) {
		t.Fatalf("expected collinear overlapping segments to intersect")
	}
	if SegmentsIntersect(Vec2{X: 0, Y: 0}, Vec2{X: 10, Y: 0}, Vec2{X: 11, Y: 0}, Vec2{X: 15, Y: 0}) {
		t.Fatalf("expected disjoint collinear segments not to intersect")
	}
}
