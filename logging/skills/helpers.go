package skills

import (
	"context"

	"heist/server/logging"
)

const (
	EventSkillStarted     logging.EventType = "skills.skill_started"
	EventSkillInterrupted logging.EventType = "skills.skill_interrupted"
	EventPlayerJailed     logging.EventType = "skills.player_jailed"
	EventPlayerFreed      logging.EventType = "skills.player_freed"
	EventStorageEmptied   logging.EventType = "skills.storage_emptied"
	EventCopsStunned      logging.EventType = "skills.cops_stunned"
	EventPlayerDisguised  logging.EventType = "skills.player_disguised"
	EventDisguiseRevealed logging.EventType = "skills.disguise_revealed"
	EventWallPlaced       logging.EventType = "skills.wall_placed"
	EventWallRemoved      logging.EventType = "skills.wall_removed"
)

// Payload carries the skill-specific details of an event. Only the fields
// relevant to the event type are set.
type Payload struct {
	Skill     string   `json:"skill,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	StorageID string   `json:"storageId,omitempty"`
	WallID    string   `json:"wallId,omitempty"`
	CopIDs    []string `json:"copIds,omitempty"`
}

// TypeFor maps a skill event name ("player_jailed") onto its log event type.
func TypeFor(name string) (logging.EventType, bool) {
	switch logging.EventType("skills." + name) {
	case EventSkillStarted, EventSkillInterrupted, EventPlayerJailed, EventPlayerFreed,
		EventStorageEmptied, EventCopsStunned, EventPlayerDisguised, EventDisguiseRevealed,
		EventWallPlaced, EventWallRemoved:
		return logging.EventType("skills." + name), true
	}
	return "", false
}

func severityFor(eventType logging.EventType) logging.Severity {
	switch eventType {
	case EventSkillStarted, EventSkillInterrupted, EventWallRemoved, EventDisguiseRevealed:
		return logging.SeverityDebug
	default:
		return logging.SeverityInfo
	}
}

// Publish emits a skill event. Channel starts, interruptions and expiries are
// debug level; state changes that matter to the match outcome are info.
func Publish(ctx context.Context, pub logging.Publisher, tick uint64, eventType logging.EventType, actor logging.EntityRef, targets []logging.EntityRef, payload Payload, extra map[string]any) {
	if pub == nil || eventType == "" {
		return
	}
	event := logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: severityFor(eventType),
		Category: logging.CategorySkills,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
