package proto

import (
	"errors"
	"fmt"

	"heist/server/internal/geom"
	"heist/server/internal/match"
	"heist/server/internal/skills"
	"heist/server/internal/world"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message types.
const (
	TypeMove   = "input_move"
	TypeSkill  = "request_skill"
	TypeCancel = "cancel_skill"
	TypePing   = "ping"
)

// Server message types. Skill events reuse the event name as their type.
const (
	TypeGameStarted   = "game_started"
	TypeStateSnapshot = "state_snapshot"
	TypeGameEnded     = "game_ended"
	TypeGameAborted   = "game_aborted"
	TypeError         = "error"
	TypePong          = "pong"
)

// ErrUnsupportedVersion is returned for messages from a newer or older client.
var ErrUnsupportedVersion = errors.New("unsupported protocol version")

// ErrInvalidDirection is returned for an input_move carrying NaN or infinite
// components.
var ErrInvalidDirection = errors.New("invalid move direction")

// ClientMessage is an inbound message. Only the fields of its type are set.
type ClientMessage struct {
	Ver    int     `json:"ver,omitempty"`
	Type   string  `json:"type" jsonschema:"enum=input_move,enum=request_skill,enum=cancel_skill,enum=ping"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Skill  string  `json:"skill,omitempty" jsonschema:"enum=steal,enum=break_jail,enum=arrest,enum=disguise,enum=build_wall"`
	Target string  `json:"target,omitempty"`
	SentAt int64   `json:"sentAt,omitempty"`
}

// Direction returns the movement vector of an input_move message.
func (m ClientMessage) Direction() geom.Vec2 {
	return geom.Vec2{X: m.DX, Y: m.DY}
}

// Request maps a request_skill message onto a skill request. Unknown skills
// and missing targets report false.
func (m ClientMessage) Request() (skills.Request, bool) {
	if m.Type != TypeSkill {
		return nil, false
	}
	return skills.ParseRequest(m.Skill, m.Target)
}

func (m ClientMessage) validate() error {
	if m.Ver != Version {
		return fmt.Errorf("%w %d", ErrUnsupportedVersion, m.Ver)
	}
	if !m.Direction().IsFinite() {
		return fmt.Errorf("%w (%v, %v)", ErrInvalidDirection, m.DX, m.DY)
	}
	return nil
}

// ErrorPayload explains a rejected message or session.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerMessage is an outbound message. Only the fields of its type are set.
type ServerMessage struct {
	Ver      int             `json:"ver"`
	Type     string          `json:"type"`
	Tick     uint64          `json:"tick,omitempty"`
	MatchID  string          `json:"matchId,omitempty"`
	PlayerID string          `json:"playerId,omitempty"`
	Team     world.Team      `json:"team,omitempty"`
	Snapshot *world.Snapshot `json:"snapshot,omitempty"`
	Event    *skills.Event   `json:"event,omitempty"`
	Result   *match.Result   `json:"result,omitempty"`
	Error    *ErrorPayload   `json:"error,omitempty"`
	SentAt   int64           `json:"sentAt,omitempty"`
}

// GameStarted greets a newly attached player.
func GameStarted(matchID, playerID string, team world.Team, snapshot world.Snapshot) ServerMessage {
	return ServerMessage{Ver: Version, Type: TypeGameStarted, Tick: snapshot.Tick, MatchID: matchID, PlayerID: playerID, Team: team, Snapshot: &snapshot}
}

func StateSnapshot(snapshot world.Snapshot) ServerMessage {
	return ServerMessage{Ver: Version, Type: TypeStateSnapshot, Tick: snapshot.Tick, Snapshot: &snapshot}
}

// SkillEvent wraps one engine event; the message type is the event name.
func SkillEvent(tick uint64, event skills.Event) ServerMessage {
	return ServerMessage{Ver: Version, Type: string(event.Type), Tick: tick, Event: &event}
}

func GameEnded(result match.Result) ServerMessage {
	return ServerMessage{Ver: Version, Type: TypeGameEnded, Tick: result.Tick, MatchID: result.MatchID, Result: &result}
}

// GameAborted tells clients the match was torn down without a result.
func GameAborted(matchID, reason string) ServerMessage {
	return ServerMessage{Ver: Version, Type: TypeGameAborted, MatchID: matchID, Error: &ErrorPayload{Code: "aborted", Message: reason}}
}

func Error(code, message string) ServerMessage {
	return ServerMessage{Ver: Version, Type: TypeError, Error: &ErrorPayload{Code: code, Message: message}}
}

// Pong echoes the client's timestamp so it can measure round trips.
func Pong(sentAt int64) ServerMessage {
	return ServerMessage{Ver: Version, Type: TypePong, SentAt: sentAt}
}
