package world

import "time"

// Rules holds the gameplay tuning applied to one match.
type Rules struct {
	PlayerRadius         float64 `json:"playerRadius"`
	PlayerSpeed          float64 `json:"playerSpeed"`
	StealSpeedMultiplier float64 `json:"stealSpeedMultiplier"`
	CopVisionRadius      float64 `json:"copVisionRadius"`
	ThiefVisionRadius    float64 `json:"thiefVisionRadius"`

	StealRange float64 `json:"stealRange"`
	StealRate  float64 `json:"stealRate"`

	BreakJailRange   float64       `json:"breakJailRange"`
	BreakJailChannel time.Duration `json:"breakJailChannel"`

	ArrestRange    float64       `json:"arrestRange"`
	ArrestCopCount int           `json:"arrestCopCount"`
	ArrestStun     time.Duration `json:"arrestStun"`

	DisguiseDuration time.Duration `json:"disguiseDuration"`
	DisguiseCooldown time.Duration `json:"disguiseCooldown"`

	WallLifetime    time.Duration `json:"wallLifetime"`
	WallCooldown    time.Duration `json:"wallCooldown"`
	WallLength      float64       `json:"wallLength"`
	WallThickness   float64       `json:"wallThickness"`
	WallOffset      float64       `json:"wallOffset"`
	WallUnlockCoins float64       `json:"wallUnlockCoins"`

	HeadStart     time.Duration `json:"headStart"`
	MatchDuration time.Duration `json:"matchDuration"`
}

// DefaultRules returns the standard tuning for a 2v4 match.
func DefaultRules() Rules {
	return Rules{
		PlayerRadius:         15,
		PlayerSpeed:          150,
		StealSpeedMultiplier: 0.4,
		CopVisionRadius:      220,
		ThiefVisionRadius:    260,

		StealRange: 50,
		StealRate:  5,

		BreakJailRange:   60,
		BreakJailChannel: 10 * time.Second,

		ArrestRange:    40,
		ArrestCopCount: 2,
		ArrestStun:     5 * time.Second,

		DisguiseDuration: 8 * time.Second,
		DisguiseCooldown: 20 * time.Second,

		WallLifetime:    10 * time.Second,
		WallCooldown:    15 * time.Second,
		WallLength:      80,
		WallThickness:   14,
		WallOffset:      40,
		WallUnlockCoins: 10,

		HeadStart:     5 * time.Second,
		MatchDuration: 10 * time.Minute,
	}
}

func (r Rules) normalized() Rules {
	def := DefaultRules()
	n := r
	if n.PlayerRadius <= 0 {
		n.PlayerRadius = def.PlayerRadius
	}
	if n.PlayerSpeed <= 0 {
		n.PlayerSpeed = def.PlayerSpeed
	}
	if n.StealSpeedMultiplier < 0 || n.StealSpeedMultiplier > 1 {
		n.StealSpeedMultiplier = def.StealSpeedMultiplier
	}
	if n.CopVisionRadius <= 0 {
		n.CopVisionRadius = def.CopVisionRadius
	}
	if n.ThiefVisionRadius <= 0 {
		n.ThiefVisionRadius = def.ThiefVisionRadius
	}
	if n.StealRange <= 0 {
		n.StealRange = def.StealRange
	}
	if n.StealRate <= 0 {
		n.StealRate = def.StealRate
	}
	if n.BreakJailRange <= 0 {
		n.BreakJailRange = def.BreakJailRange
	}
	if n.BreakJailChannel <= 0 {
		n.BreakJailChannel = def.BreakJailChannel
	}
	if n.ArrestRange <= 0 {
		n.ArrestRange = def.ArrestRange
	}
	if n.ArrestCopCount < 1 {
		n.ArrestCopCount = 1
	}
	if n.ArrestStun <= 0 {
		n.ArrestStun = def.ArrestStun
	}
	if n.DisguiseDuration <= 0 {
		n.DisguiseDuration = def.DisguiseDuration
	}
	if n.DisguiseCooldown < 0 {
		n.DisguiseCooldown = def.DisguiseCooldown
	}
	if n.WallLifetime <= 0 {
		n.WallLifetime = def.WallLifetime
	}
	if n.WallCooldown < 0 {
		n.WallCooldown = def.WallCooldown
	}
	if n.WallLength <= 0 {
		n.WallLength = def.WallLength
	}
	if n.WallThickness <= 0 {
		n.WallThickness = def.WallThickness
	}
	if n.WallOffset <= 0 {
		n.WallOffset = def.WallOffset
	}
	if n.WallUnlockCoins < 0 {
		n.WallUnlockCoins = 0
	}
	if n.HeadStart < 0 {
		n.HeadStart = 0
	}
	if n.MatchDuration <= 0 {
		n.MatchDuration = def.MatchDuration
	}
	return n
}

// Normalized fills invalid fields from DefaultRules. Zero cooldowns, a zero
// head start and a zero wall unlock threshold are kept as given.
func (r Rules) Normalized() Rules {
	return r.normalized()
}
