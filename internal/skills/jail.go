package skills

import (
	"time"

	"heist/server/internal/geom"
	"heist/server/internal/world"
)

const jailTarget = "jail"

func inJailRange(p *world.Player, jail *world.Jail, rules world.Rules) bool {
	return geom.Distance(p.Position, jail.Position) <= rules.BreakJailRange+jail.Radius
}

func startBreakJail(w *world.World, playerID string, now time.Time) []Event {
	p, ok := actor(w, playerID, world.TeamThief)
	if !ok {
		return nil
	}
	jail := w.Jail()
	if len(jail.Inmates) == 0 || !inJailRange(p, jail, w.Rules()) {
		return nil
	}
	p.Velocity = geom.Vec2{}
	p.Channel = world.Channel{Skill: world.SkillBreakJail, StartedAt: now, Target: jailTarget}
	return []Event{started(p.ID, world.SkillBreakJail.String(), jailTarget)}
}

// advanceBreakJail checks the stand-still and range conditions and releases
// every inmate once the channel has run its full duration.
func advanceBreakJail(w *world.World, p *world.Player, now time.Time) []Event {
	rules := w.Rules()
	jail := w.Jail()
	name := world.SkillBreakJail.String()

	if !p.Velocity.IsZero() {
		p.ClearChannel()
		return []Event{interrupted(p.ID, name, ReasonMoved)}
	}
	if !inJailRange(p, jail, rules) {
		p.ClearChannel()
		return []Event{interrupted(p.ID, name, ReasonOutOfRange)}
	}
	if len(jail.Inmates) == 0 {
		p.ClearChannel()
		return []Event{interrupted(p.ID, name, ReasonJailEmpty)}
	}
	if now.Sub(p.Channel.StartedAt) < rules.BreakJailChannel {
		return nil
	}

	p.ClearChannel()
	released := w.ReleaseInmates()
	events := make([]Event, 0, len(released))
	for _, id := range released {
		events = append(events, Event{Type: EventPlayerFreed, PlayerID: id, TargetID: p.ID})
	}
	return events
}

// arrest is instantaneous. It succeeds only when enough free cops stand within
// arrest range of the target; every one of them is stunned afterwards.
func arrest(w *world.World, copID, targetID string, now time.Time) []Event {
	cop, ok := actor(w, copID, world.TeamCop)
	if !ok {
		return nil
	}
	thief := w.Player(targetID)
	if thief == nil || thief.Team != world.TeamThief || thief.Jailed {
		return nil
	}
	rules := w.Rules()
	if geom.Distance(cop.Position, thief.Position) > rules.ArrestRange {
		return nil
	}

	var participants []*world.Player
	for _, c := range w.Cops() {
		if !c.Free() {
			continue
		}
		if geom.Distance(c.Position, thief.Position) <= rules.ArrestRange {
			participants = append(participants, c)
		}
	}
	if len(participants) < rules.ArrestCopCount {
		return nil
	}

	var events []Event
	if thief.Channeling() {
		events = append(events, interrupted(thief.ID, thief.Channel.Skill.String(), ReasonArrested))
	}
	w.JailPlayer(thief)
	events = append(events, Event{Type: EventPlayerJailed, PlayerID: thief.ID, TargetID: cop.ID})

	stunUntil := now.Add(rules.ArrestStun)
	copIDs := make([]string, 0, len(participants))
	for _, c := range participants {
		c.Stun(stunUntil)
		copIDs = append(copIDs, c.ID)
	}
	events = append(events, Event{Type: EventCopsStunned, CopIDs: copIDs})
	return events
}
