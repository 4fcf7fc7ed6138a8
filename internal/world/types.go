package world

import (
	"time"

	"heist/server/internal/geom"
)

// Team is the side a player fights for.
type Team string

const (
	TeamCop   Team = "cop"
	TeamThief Team = "thief"
)

// Valid reports whether t names a playable team.
func (t Team) Valid() bool {
	return t == TeamCop || t == TeamThief
}

// Phase is the match stage. Phases only move forward.
type Phase string

const (
	PhaseHeadStart Phase = "head_start"
	PhasePlaying   Phase = "playing"
	PhaseEnded     Phase = "ended"
)

// BotWallet is the identity marker carried by synthesized bot entries.
const BotWallet = "bot"

// Entry is one roster line used to seat a player at match start.
type Entry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Wallet string `json:"wallet"`
	Team   Team   `json:"team"`
	Bot    bool   `json:"bot"`
}

// Channel is the active multi-tick skill of a player.
type Channel struct {
	Skill     Skill
	StartedAt time.Time
	Target    string
}

// Player is the authoritative record of one participant.
type Player struct {
	ID        string
	Name      string
	Wallet    string
	Team      Team
	Bot       bool
	Connected bool

	Position     geom.Vec2
	Velocity     geom.Vec2
	Facing       geom.Vec2
	VisionRadius float64

	Jailed    bool
	Stunned   bool
	StunUntil time.Time

	Disguised             bool
	DisguiseUntil         time.Time
	DisguiseCooldownUntil time.Time
	WallCooldownUntil     time.Time

	Channel Channel
}

// Channeling reports whether the player holds an active channel.
func (p *Player) Channeling() bool {
	return p.Channel.Skill != SkillNone
}

// Free reports whether the player may move and act.
func (p *Player) Free() bool {
	return !p.Jailed && !p.Stunned
}

// ClearChannel returns the player to idle and reports the skill that was
// active.
func (p *Player) ClearChannel() Skill {
	prev := p.Channel.Skill
	p.Channel = Channel{}
	return prev
}

// Imprison marks the player jailed at pos and drops any channel.
func (p *Player) Imprison(pos geom.Vec2) {
	p.Jailed = true
	p.Position = pos
	p.Velocity = geom.Vec2{}
	p.ClearChannel()
}

// Stun immobilises the player until the given time and drops any channel.
func (p *Player) Stun(until time.Time) {
	p.Stunned = true
	p.StunUntil = until
	p.Velocity = geom.Vec2{}
	p.ClearChannel()
}

// Storage is a coin vault thieves drain.
type Storage struct {
	ID        string
	Position  geom.Vec2
	Radius    float64
	Capacity  float64
	Remaining float64
}

// Empty reports whether the storage has no coins left.
func (s *Storage) Empty() bool {
	return s.Remaining <= 0
}

// Jail holds captured thieves in capture order.
type Jail struct {
	Position geom.Vec2
	Radius   float64
	Inmates  []string
}

// Obstacle is an axis-aligned wall. Dynamic walls carry an owner and expiry.
type Obstacle struct {
	ID        string
	Rect      geom.Rect
	Dynamic   bool
	Owner     string
	ExpiresAt time.Time
}
