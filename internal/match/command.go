package match

import (
	"heist/server/internal/geom"
	"heist/server/internal/skills"
)

// CommandType identifies the kind of input staged for the next tick.
type CommandType string

const (
	CommandMove         CommandType = "move"
	CommandSkill        CommandType = "skill"
	CommandCancel       CommandType = "cancel"
	CommandConvertToBot CommandType = "convert_to_bot"
)

// Command is one input from a client or the room layer. Only the field that
// matches Type is set.
type Command struct {
	Type      CommandType
	PlayerID  string
	Direction geom.Vec2
	Request   skills.Request
}
