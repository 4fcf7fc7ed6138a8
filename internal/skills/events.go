package skills

import "heist/server/internal/geom"

// EventType names a skill notification.
type EventType string

const (
	EventSkillStarted     EventType = "skill_started"
	EventSkillInterrupted EventType = "skill_interrupted"
	EventPlayerJailed     EventType = "player_jailed"
	EventPlayerFreed      EventType = "player_freed"
	EventStorageEmptied   EventType = "storage_emptied"
	EventCopsStunned      EventType = "cops_stunned"
	EventPlayerDisguised  EventType = "player_disguised"
	EventDisguiseRevealed EventType = "disguise_revealed"
	EventWallPlaced       EventType = "wall_placed"
	EventWallRemoved      EventType = "wall_removed"
)

// Interruption and reveal reasons.
const (
	ReasonMoved      = "moved"
	ReasonOutOfRange = "out_of_range"
	ReasonDepleted   = "depleted"
	ReasonCancelled  = "cancelled"
	ReasonArrested   = "arrested"
	ReasonJailEmpty  = "jail_empty"
	ReasonExpired    = "expired"
)

// Event is an immutable notification produced while applying a tick. Only the
// fields relevant to Type are set.
type Event struct {
	Type      EventType  `json:"type"`
	PlayerID  string     `json:"playerId,omitempty"`
	Skill     string     `json:"skill,omitempty"`
	TargetID  string     `json:"targetId,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	StorageID string     `json:"storageId,omitempty"`
	CopIDs    []string   `json:"copIds,omitempty"`
	WallID    string     `json:"wallId,omitempty"`
	Rect      *geom.Rect `json:"rect,omitempty"`
}

func started(playerID, skill, target string) Event {
	return Event{Type: EventSkillStarted, PlayerID: playerID, Skill: skill, TargetID: target}
}

func interrupted(playerID, skill, reason string) Event {
	return Event{Type: EventSkillInterrupted, PlayerID: playerID, Skill: skill, Reason: reason}
}
