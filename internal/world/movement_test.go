package world

import (
	"math"
	"testing"

	"heist/server/internal/geom"
)

func TestIntegrateMovementSpeeds(t *testing.T) {
	rules := DefaultRules()
	bounds := geom.Rect{Width: 1000, Height: 1000}

	cases := []struct {
		name   string
		player Player
		phase  Phase
		wantDX float64
	}{
		{name: "base speed", player: Player{Team: TeamThief}, phase: PhasePlaying, wantDX: 15},
		{name: "stealing", player: Player{Team: TeamThief, Channel: Channel{Skill: SkillSteal}}, phase: PhasePlaying, wantDX: 6},
		{name: "breaking jail", player: Player{Team: TeamThief, Channel: Channel{Skill: SkillBreakJail}}, phase: PhasePlaying, wantDX: 0},
		{name: "stunned", player: Player{Team: TeamCop, Stunned: true}, phase: PhasePlaying, wantDX: 0},
		{name: "jailed", player: Player{Team: TeamThief, Jailed: true}, phase: PhasePlaying, wantDX: 0},
		{name: "cop during head start", player: Player{Team: TeamCop}, phase: PhaseHeadStart, wantDX: 0},
		{name: "thief during head start", player: Player{Team: TeamThief}, phase: PhaseHeadStart, wantDX: 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.player
			p.Position = geom.Vec2{X: 500, Y: 500}
			p.Velocity = geom.Vec2{X: 1, Y: 0}
			IntegrateMovement(&p, 0.1, tc.phase, rules, bounds)
			if dx := p.Position.X - 500; math.Abs(dx-tc.wantDX) > 1e-9 {
				t.Fatalf("expected dx %v, got %v", tc.wantDX, dx)
			}
		})
	}
}

func TestIntegrateMovementClampsToBounds(t *testing.T) {
	rules := DefaultRules()
	p := Player{Team: TeamThief, Position: geom.Vec2{X: 990, Y: 20}, Velocity: geom.Vec2{X: 1, Y: -1}}
	IntegrateMovement(&p, 1, PhasePlaying, rules, geom.Rect{Width: 1000, Height: 1000})
	if p.Position.X != 985 || p.Position.Y != 15 {
		t.Fatalf("expected clamp to (985, 15), got %+v", p.Position)
	}
}

func TestResolveObstacleCollisionPushesOut(t *testing.T) {
	p := Player{Position: geom.Vec2{X: 290, Y: 295}}
	obstacles := []Obstacle{{ID: "wall", Rect: geom.Rect{X: 300, Y: 280, Width: 120, Height: 30}}}
	ResolveObstacleCollision(&p, 15, obstacles)
	if math.Abs(p.Position.X-285) > 1e-9 || p.Position.Y != 295 {
		t.Fatalf("expected push to (285, 295), got %+v", p.Position)
	}
}

func TestMovePlayersRespectsPhase(t *testing.T) {
	w := newTestWorld(t, standardRoster())
	copStart := w.Player("cop-1").Position
	thiefStart := w.Player("thief-1").Position

	w.SetPlayerDirection("cop-1", geom.Vec2{X: 0, Y: -1})
	w.SetPlayerDirection("thief-1", geom.Vec2{X: 1, Y: 0})
	w.MovePlayers(0.05)

	if w.Player("cop-1").Position != copStart {
		t.Fatalf("expected cop frozen during head start, got %+v", w.Player("cop-1").Position)
	}
	if got := w.Player("thief-1").Position.X - thiefStart.X; math.Abs(got-7.5) > 1e-9 {
		t.Fatalf("expected thief to move 7.5 units, got %v", got)
	}
}
