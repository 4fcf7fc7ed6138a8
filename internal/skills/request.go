package skills

import (
	"time"

	"heist/server/internal/world"
)

// Request is a skill invocation. The concrete types form a closed set.
type Request interface {
	Skill() world.Skill
}

// Steal starts draining a storage.
type Steal struct{ StorageID string }

// BreakJail starts the jailbreak channel.
type BreakJail struct{}

// Arrest attempts a cooperative capture of a thief.
type Arrest struct{ TargetID string }

// Disguise masks a thief from cops.
type Disguise struct{}

// BuildWall places a temporary wall in front of the caster.
type BuildWall struct{}

func (Steal) Skill() world.Skill     { return world.SkillSteal }
func (BreakJail) Skill() world.Skill { return world.SkillBreakJail }
func (Arrest) Skill() world.Skill    { return world.SkillArrest }
func (Disguise) Skill() world.Skill  { return world.SkillDisguise }
func (BuildWall) Skill() world.Skill { return world.SkillBuildWall }

// ParseRequest builds a request from a wire skill name and optional target.
// Unknown names and missing targets report false.
func ParseRequest(name, target string) (Request, bool) {
	skill, ok := world.ParseSkill(name)
	if !ok {
		return nil, false
	}
	switch skill {
	case world.SkillSteal:
		if target == "" {
			return nil, false
		}
		return Steal{StorageID: target}, true
	case world.SkillBreakJail:
		return BreakJail{}, true
	case world.SkillArrest:
		if target == "" {
			return nil, false
		}
		return Arrest{TargetID: target}, true
	case world.SkillDisguise:
		return Disguise{}, true
	case world.SkillBuildWall:
		return BuildWall{}, true
	}
	return nil, false
}

// Apply is the single entry point for human and bot skill requests. Requests
// that fail their preconditions, reference unknown entities or arrive after
// the match ended produce no events and change nothing.
func Apply(w *world.World, playerID string, req Request, now time.Time) []Event {
	if w == nil || req == nil || w.Phase() == world.PhaseEnded {
		return nil
	}
	switch r := req.(type) {
	case Steal:
		return startSteal(w, playerID, r.StorageID, now)
	case BreakJail:
		return startBreakJail(w, playerID, now)
	case Arrest:
		return arrest(w, playerID, r.TargetID, now)
	case Disguise:
		return disguise(w, playerID, now)
	case BuildWall:
		return buildWall(w, playerID, now)
	}
	return nil
}

// Cancel clears the player's active channel.
func Cancel(w *world.World, playerID string) []Event {
	if w == nil {
		return nil
	}
	p := w.Player(playerID)
	if p == nil || !p.Channeling() {
		return nil
	}
	prev := p.ClearChannel()
	return []Event{interrupted(p.ID, prev.String(), ReasonCancelled)}
}

// actor returns the player when it exists, is on the given team and may act:
// not jailed, not stunned and not channeling.
func actor(w *world.World, playerID string, team world.Team) (*world.Player, bool) {
	p := w.Player(playerID)
	if p == nil || p.Team != team {
		return nil, false
	}
	if !p.Free() || p.Channeling() {
		return nil, false
	}
	return p, true
}

// ready reports whether a cooldown stamped until the given time has elapsed.
func ready(until, now time.Time) bool {
	return until.IsZero() || !now.Before(until)
}
