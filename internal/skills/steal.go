package skills

import (
	"time"

	"heist/server/internal/geom"
	"heist/server/internal/world"
)

func inStealRange(p *world.Player, s *world.Storage, rules world.Rules) bool {
	return geom.Distance(p.Position, s.Position) <= rules.StealRange+s.Radius
}

func startSteal(w *world.World, playerID, storageID string, now time.Time) []Event {
	p, ok := actor(w, playerID, world.TeamThief)
	if !ok {
		return nil
	}
	s := w.Storage(storageID)
	if s == nil || s.Empty() {
		return nil
	}
	if !inStealRange(p, s, w.Rules()) {
		return nil
	}
	p.Channel = world.Channel{Skill: world.SkillSteal, StartedAt: now, Target: s.ID}
	return []Event{started(p.ID, world.SkillSteal.String(), s.ID)}
}

// advanceSteal drains the channel target for one tick.
func advanceSteal(w *world.World, p *world.Player, dt float64) []Event {
	rules := w.Rules()
	s := w.Storage(p.Channel.Target)
	if s == nil || s.Empty() {
		p.ClearChannel()
		return []Event{interrupted(p.ID, world.SkillSteal.String(), ReasonDepleted)}
	}
	if !inStealRange(p, s, rules) {
		p.ClearChannel()
		return []Event{interrupted(p.ID, world.SkillSteal.String(), ReasonOutOfRange)}
	}

	w.DrainStorage(s, rules.StealRate*dt)
	if !s.Empty() {
		return nil
	}
	p.ClearChannel()
	return []Event{{Type: EventStorageEmptied, PlayerID: p.ID, StorageID: s.ID}}
}
