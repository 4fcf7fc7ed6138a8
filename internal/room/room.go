package room

import (
	"errors"
	"sync"

	"heist/server/internal/geom"
	"heist/server/internal/match"
	"heist/server/internal/net/proto"
	"heist/server/internal/net/ws"
	"heist/server/internal/skills"
	"heist/server/internal/world"
)

var (
	// ErrUnknownMatch is returned when attaching to a match that does not exist
	// or has already been removed.
	ErrUnknownMatch = errors.New("room: unknown match")
	// ErrUnknownPlayer is returned when the player has no seat in the match.
	ErrUnknownPlayer = errors.New("room: player not seated in match")
	// ErrSeatReleased is returned when a player reconnects after a bot took
	// over the seat.
	ErrSeatReleased = errors.New("room: seat taken over by bot")
	// ErrMatchEnded is returned when attaching after the result was sent.
	ErrMatchEnded = errors.New("room: match ended")
)

type seat struct {
	team     world.Team
	out      ws.Outbox
	greeted  bool
	released bool
}

// Room routes one match's outputs to the sessions of its human players.
// Hooks run on the match goroutine; attach and detach run on session
// goroutines.
type Room struct {
	id    string
	match *match.Match

	mu    sync.Mutex
	seats map[string]*seat
	ended bool
}

func newRoom(id string, roster []world.Entry) *Room {
	r := &Room{id: id, seats: make(map[string]*seat)}
	for _, entry := range roster {
		if !entry.Bot {
			r.seats[entry.ID] = &seat{team: entry.Team}
		}
	}
	return r
}

func (r *Room) ID() string { return r.id }

func (r *Room) hooks() match.Hooks {
	return match.Hooks{Frame: r.frame, Result: r.result}
}

func (r *Room) frame(tick uint64, events []skills.Event, view match.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.seats {
		if s.out == nil {
			continue
		}
		snapshot := view(id)
		if !s.greeted {
			s.greeted = s.out.Send(proto.GameStarted(r.id, id, s.team, snapshot))
		} else {
			s.out.Send(proto.StateSnapshot(snapshot))
		}
		for _, ev := range events {
			if !visibleTo(ev, s.team) {
				continue
			}
			s.out.Send(proto.SkillEvent(tick, ev))
		}
	}
}

// visibleTo hides the disguise announcement from cops.
func visibleTo(ev skills.Event, team world.Team) bool {
	return ev.Type != skills.EventPlayerDisguised || team == world.TeamThief
}

func (r *Room) result(res match.Result, events []skills.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = true
	for _, s := range r.seats {
		if s.out == nil {
			continue
		}
		for _, ev := range events {
			if visibleTo(ev, s.team) {
				s.out.Send(proto.SkillEvent(res.Tick, ev))
			}
		}
		s.out.Send(proto.GameEnded(res))
		s.out.Close("match ended")
		s.out = nil
	}
}

// abort closes every session that is still attached when the match stops
// without a result.
func (r *Room) abort(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	r.ended = true
	for _, s := range r.seats {
		if s.out == nil {
			continue
		}
		s.out.Send(proto.GameAborted(r.id, reason))
		s.out.Close(reason)
		s.out = nil
	}
}

func (r *Room) attach(playerID string, out ws.Outbox) (ws.Controls, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[playerID]
	switch {
	case !ok:
		return nil, ErrUnknownPlayer
	case r.ended:
		return nil, ErrMatchEnded
	case s.released:
		return nil, ErrSeatReleased
	}
	if s.out != nil {
		s.out.Close("replaced by a new session")
	}
	s.out = out
	s.greeted = false
	return &controls{room: r, playerID: playerID, out: out}, nil
}

func (r *Room) detach(playerID string, out ws.Outbox) {
	r.mu.Lock()
	s, ok := r.seats[playerID]
	if !ok || s.out != out {
		r.mu.Unlock()
		return
	}
	s.out = nil
	convert := !r.ended && !s.released
	s.released = true
	r.mu.Unlock()
	if convert {
		r.match.ConvertToBot(playerID)
	}
}

func (r *Room) seated(playerID string, out ws.Outbox) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[playerID]
	return ok && s.out == out && !s.released
}

type controls struct {
	room     *Room
	playerID string
	out      ws.Outbox
}

func (c *controls) SetDirection(dir geom.Vec2) bool {
	if !c.room.seated(c.playerID, c.out) {
		return false
	}
	return c.room.match.SetDirection(c.playerID, dir)
}

func (c *controls) RequestSkill(req skills.Request) bool {
	if !c.room.seated(c.playerID, c.out) {
		return false
	}
	return c.room.match.RequestSkill(c.playerID, req)
}

func (c *controls) CancelSkill() bool {
	if !c.room.seated(c.playerID, c.out) {
		return false
	}
	return c.room.match.CancelSkill(c.playerID)
}

func (c *controls) Detach() {
	c.room.detach(c.playerID, c.out)
}

func (r *Room) teamOf(playerID string) world.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.seats[playerID]; ok {
		return s.team
	}
	return ""
}
