package skills

import (
	"math"
	"time"

	"heist/server/internal/geom"
	"heist/server/internal/world"
)

func disguise(w *world.World, playerID string, now time.Time) []Event {
	p, ok := actor(w, playerID, world.TeamThief)
	if !ok || p.Disguised || !ready(p.DisguiseCooldownUntil, now) {
		return nil
	}
	rules := w.Rules()
	p.Disguised = true
	p.DisguiseUntil = now.Add(rules.DisguiseDuration)
	p.DisguiseCooldownUntil = now.Add(rules.DisguiseCooldown)
	return []Event{{Type: EventPlayerDisguised, PlayerID: p.ID}}
}

func buildWall(w *world.World, playerID string, now time.Time) []Event {
	p, ok := actor(w, playerID, world.TeamThief)
	if !ok || !ready(p.WallCooldownUntil, now) {
		return nil
	}
	rules := w.Rules()
	if w.StolenCoins() < rules.WallUnlockCoins {
		return nil
	}

	rect := WallRect(p.Position, p.Facing, rules, w.Bounds())
	wall := world.Obstacle{
		ID:        w.NextWallID(p.ID),
		Rect:      rect,
		Owner:     p.ID,
		ExpiresAt: now.Add(rules.WallLifetime),
	}
	w.AddDynamicObstacle(wall)
	p.WallCooldownUntil = now.Add(rules.WallCooldown)
	return []Event{{Type: EventWallPlaced, PlayerID: p.ID, WallID: wall.ID, Rect: &rect}}
}

// WallRect centres a wall WallOffset units ahead of pos along facing. The long
// side runs across the facing direction and the result is kept inside bounds.
func WallRect(pos, facing geom.Vec2, rules world.Rules, bounds geom.Rect) geom.Rect {
	dir := facing.Normalize()
	if dir.IsZero() {
		dir = geom.Vec2{X: 0, Y: -1}
	}
	center := pos.Add(dir.Scale(rules.WallOffset))

	width, height := rules.WallLength, rules.WallThickness
	if math.Abs(dir.X) > math.Abs(dir.Y) {
		width, height = rules.WallThickness, rules.WallLength
	}
	width = math.Min(width, bounds.Width)
	height = math.Min(height, bounds.Height)

	return geom.Rect{
		X:      geom.Clamp(center.X-width/2, bounds.X, bounds.X+bounds.Width-width),
		Y:      geom.Clamp(center.Y-height/2, bounds.Y, bounds.Y+bounds.Height-height),
		Width:  width,
		Height: height,
	}
}
