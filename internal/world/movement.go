package world

import "heist/server/internal/geom"

// MovementSpeed returns the speed a player may move at in the given phase.
func MovementSpeed(p *Player, phase Phase, rules Rules) float64 {
	if p == nil || p.Jailed || p.Stunned {
		return 0
	}
	if phase == PhaseEnded {
		return 0
	}
	if phase == PhaseHeadStart && p.Team == TeamCop {
		return 0
	}
	switch p.Channel.Skill {
	case SkillBreakJail:
		return 0
	case SkillSteal:
		return rules.PlayerSpeed * rules.StealSpeedMultiplier
	}
	return rules.PlayerSpeed
}

// IntegrateMovement advances a player along its normalized input for dt
// seconds and clamps the result inside bounds shrunk by the player radius.
func IntegrateMovement(p *Player, dt float64, phase Phase, rules Rules, bounds geom.Rect) {
	if p == nil || dt <= 0 {
		return
	}
	speed := MovementSpeed(p, phase, rules)
	if speed == 0 {
		return
	}
	dir := p.Velocity.Normalize()
	if dir.IsZero() {
		return
	}
	next := p.Position.Add(dir.Scale(speed * dt))
	r := rules.PlayerRadius
	next.X = geom.Clamp(next.X, bounds.X+r, bounds.X+bounds.Width-r)
	next.Y = geom.Clamp(next.Y, bounds.Y+r, bounds.Y+bounds.Height-r)
	p.Position = next
}

// ResolveObstacleCollision pushes a player out of every obstacle it overlaps,
// one obstacle at a time in list order.
func ResolveObstacleCollision(p *Player, radius float64, obstacles []Obstacle) {
	if p == nil || len(obstacles) == 0 {
		return
	}
	p.Position = geom.PushOutCircle(p.Position, radius, obstacleRects(obstacles))
}

// MovePlayers integrates movement and resolves collisions for every player in
// slot order.
func (w *World) MovePlayers(dt float64) {
	obstacles := w.AllObstacles()
	bounds := w.Bounds()
	for _, p := range w.players {
		if p.Jailed {
			continue
		}
		IntegrateMovement(p, dt, w.phase, w.rules, bounds)
		ResolveObstacleCollision(p, w.rules.PlayerRadius, obstacles)
	}
}
