package world

// Skill identifies an action a player can request. SkillNone marks an idle
// channel slot.
type Skill uint8

const (
	SkillNone Skill = iota
	SkillSteal
	SkillBreakJail
	SkillArrest
	SkillDisguise
	SkillBuildWall
)

var skillNames = [...]string{
	SkillNone:      "",
	SkillSteal:     "steal",
	SkillBreakJail: "break_jail",
	SkillArrest:    "arrest",
	SkillDisguise:  "disguise",
	SkillBuildWall: "build_wall",
}

// String returns the wire name of the skill.
func (s Skill) String() string {
	if int(s) < len(skillNames) {
		return skillNames[s]
	}
	return ""
}

// Channeled reports whether the skill occupies the action slot across ticks.
func (s Skill) Channeled() bool {
	return s == SkillSteal || s == SkillBreakJail
}

// ParseSkill maps a wire name to a skill. Unknown names report false.
func ParseSkill(name string) (Skill, bool) {
	for i, candidate := range skillNames {
		if i == int(SkillNone) {
			continue
		}
		if candidate == name {
			return Skill(i), true
		}
	}
	return SkillNone, false
}
