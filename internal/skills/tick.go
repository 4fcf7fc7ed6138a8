package skills

import (
	"time"

	"heist/server/internal/world"
)

// AdvanceChannels progresses every active channel by dt seconds, in slot
// order, against the single tick timestamp now.
func AdvanceChannels(w *world.World, dt float64, now time.Time) []Event {
	if w == nil {
		return nil
	}
	var events []Event
	for _, p := range w.Players() {
		if !p.Channeling() {
			continue
		}
		if !p.Free() {
			p.ClearChannel()
			continue
		}
		switch p.Channel.Skill {
		case world.SkillSteal:
			events = append(events, advanceSteal(w, p, dt)...)
		case world.SkillBreakJail:
			events = append(events, advanceBreakJail(w, p, now)...)
		default:
			p.ClearChannel()
		}
	}
	return events
}

// ExpireStuns lifts stuns whose deadline has passed.
func ExpireStuns(w *world.World, now time.Time) {
	if w == nil {
		return
	}
	for _, p := range w.Players() {
		if p.Stunned && !now.Before(p.StunUntil) {
			p.Stunned = false
			p.StunUntil = time.Time{}
		}
	}
}

// ExpireDisguises reveals thieves whose disguise has run out.
func ExpireDisguises(w *world.World, now time.Time) []Event {
	if w == nil {
		return nil
	}
	var events []Event
	for _, p := range w.Players() {
		if p.Disguised && !now.Before(p.DisguiseUntil) {
			p.Disguised = false
			p.DisguiseUntil = time.Time{}
			events = append(events, Event{Type: EventDisguiseRevealed, PlayerID: p.ID, Reason: ReasonExpired})
		}
	}
	return events
}

// ExpireWalls removes player-built walls past their expiry, one event each.
func ExpireWalls(w *world.World, now time.Time) []Event {
	if w == nil {
		return nil
	}
	removed := w.RemoveExpiredObstacles(now)
	if len(removed) == 0 {
		return nil
	}
	events := make([]Event, 0, len(removed))
	for _, o := range removed {
		rect := o.Rect
		events = append(events, Event{Type: EventWallRemoved, PlayerID: o.Owner, WallID: o.ID, Rect: &rect})
	}
	return events
}
