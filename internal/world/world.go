package world

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"heist/server/internal/geom"
)

// DefaultSeed roots the RNG hierarchy when no seed is configured.
const DefaultSeed = "heist"

var defaultFacing = geom.Vec2{X: 0, Y: -1}

// ErrInvalidRoster is returned when a roster cannot be seated.
var ErrInvalidRoster = errors.New("invalid roster")

// RNGFactory produces deterministic RNG instances for world subsystems.
type RNGFactory func(rootSeed, label string) *rand.Rand

// Deps bundles optional runtime dependencies for a World.
type Deps struct {
	Seed string
	RNG  RNGFactory
}

// World is the single source of truth for one match. It is not safe for
// concurrent use; the owning match goroutine is the only caller.
type World struct {
	layout Layout
	rules  Rules
	seed   string

	rngFactory RNGFactory

	tick      uint64
	phase     Phase
	startedAt time.Time
	now       time.Time

	headStartRemaining time.Duration
	matchRemaining     time.Duration

	players []*Player
	index   map[string]int

	storages []*Storage
	jail     Jail

	static  []Obstacle
	dynamic []Obstacle
	wallSeq uint64

	stolen float64
	total  float64
}

// New seats the roster at the layout's spawn points. Cops and thieves take
// spawns in roster order, wrapping when a team outnumbers its spawn list.
func New(layout Layout, rules Rules, roster []Entry, start time.Time, deps Deps) (*World, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	normalized := rules.normalized()

	seed := strings.TrimSpace(deps.Seed)
	if seed == "" {
		seed = DefaultSeed
	}
	factory := deps.RNG
	if factory == nil {
		factory = NewDeterministicRNG
	}

	w := &World{
		layout:             layout,
		rules:              normalized,
		seed:               seed,
		rngFactory:         factory,
		phase:              PhaseHeadStart,
		startedAt:          start,
		now:                start,
		headStartRemaining: normalized.HeadStart,
		matchRemaining:     normalized.MatchDuration,
		players:            make([]*Player, 0, len(roster)),
		index:              make(map[string]int, len(roster)),
		jail: Jail{
			Position: layout.Jail.Position,
			Radius:   layout.Jail.Radius,
		},
	}
	if normalized.HeadStart == 0 {
		w.phase = PhasePlaying
	}

	for _, spec := range layout.Storages {
		w.storages = append(w.storages, &Storage{
			ID:        spec.ID,
			Position:  spec.Position,
			Radius:    spec.Radius,
			Capacity:  spec.Coins,
			Remaining: spec.Coins,
		})
		w.total += spec.Coins
	}
	for _, spec := range layout.Obstacles {
		w.static = append(w.static, Obstacle{ID: spec.ID, Rect: spec.Rect})
	}

	copIndex, thiefIndex := 0, 0
	for _, entry := range roster {
		if entry.ID == "" {
			return nil, fmt.Errorf("%w: entry without id", ErrInvalidRoster)
		}
		if _, dup := w.index[entry.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate player id %q", ErrInvalidRoster, entry.ID)
		}
		var spawn geom.Vec2
		var vision float64
		switch entry.Team {
		case TeamCop:
			spawn = layout.CopSpawns[copIndex%len(layout.CopSpawns)]
			vision = normalized.CopVisionRadius
			copIndex++
		case TeamThief:
			spawn = layout.ThiefSpawns[thiefIndex%len(layout.ThiefSpawns)]
			vision = normalized.ThiefVisionRadius
			thiefIndex++
		default:
			return nil, fmt.Errorf("%w: player %q has unknown team %q", ErrInvalidRoster, entry.ID, entry.Team)
		}
		w.index[entry.ID] = len(w.players)
		w.players = append(w.players, &Player{
			ID:           entry.ID,
			Name:         entry.Name,
			Wallet:       entry.Wallet,
			Team:         entry.Team,
			Bot:          entry.Bot,
			Connected:    !entry.Bot,
			Position:     spawn,
			Facing:       defaultFacing,
			VisionRadius: vision,
		})
	}

	return w, nil
}

// Rules returns the normalized tuning captured at construction.
func (w *World) Rules() Rules { return w.rules }

// Layout returns the arena layout.
func (w *World) Layout() Layout { return w.layout }

// Bounds returns the playable rectangle.
func (w *World) Bounds() geom.Rect {
	return geom.Rect{Width: w.layout.Width, Height: w.layout.Height}
}

// Seed reports the root seed of the RNG hierarchy.
func (w *World) Seed() string { return w.seed }

// SubsystemRNG returns a deterministic RNG derived from the world seed.
func (w *World) SubsystemRNG(label string) *rand.Rand {
	return w.rngFactory(w.seed, label)
}

// Tick returns the number of completed ticks.
func (w *World) Tick() uint64 { return w.tick }

// Phase returns the current match phase.
func (w *World) Phase() Phase { return w.phase }

// Now returns the timestamp of the last completed tick, or the start time
// before the first tick.
func (w *World) Now() time.Time { return w.now }

// MatchRemaining returns the time left on the match clock.
func (w *World) MatchRemaining() time.Duration { return w.matchRemaining }

// HeadStartRemaining returns the time left before cops are released.
func (w *World) HeadStartRemaining() time.Duration { return w.headStartRemaining }

// UpdatePhase moves head_start to playing once the head start has elapsed and
// reports whether the phase changed.
func (w *World) UpdatePhase(now time.Time) bool {
	if w.phase != PhaseHeadStart {
		return false
	}
	if now.Sub(w.startedAt) < w.rules.HeadStart {
		return false
	}
	w.phase = PhasePlaying
	return true
}

// End marks the match as finished. Ending is permanent.
func (w *World) End() {
	w.phase = PhaseEnded
}

// Advance increments the tick counter and recomputes both countdowns against
// the elapsed time since the match started.
func (w *World) Advance(now time.Time) {
	w.tick++
	w.now = now
	elapsed := now.Sub(w.startedAt)
	w.matchRemaining = remaining(w.rules.MatchDuration, elapsed)
	w.headStartRemaining = remaining(w.rules.HeadStart, elapsed)
}

func remaining(total, elapsed time.Duration) time.Duration {
	if elapsed >= total {
		return 0
	}
	return total - elapsed
}

// Players returns the player arena in slot order. Slots are stable for the
// lifetime of the match.
func (w *World) Players() []*Player { return w.players }

// Player returns the player with the given id or nil.
func (w *World) Player(id string) *Player {
	idx, ok := w.index[id]
	if !ok {
		return nil
	}
	return w.players[idx]
}

// Thieves returns the thieves in slot order.
func (w *World) Thieves() []*Player { return w.team(TeamThief) }

// Cops returns the cops in slot order.
func (w *World) Cops() []*Player { return w.team(TeamCop) }

func (w *World) team(t Team) []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		if p.Team == t {
			out = append(out, p)
		}
	}
	return out
}

// SetPlayerDirection stores a normalized movement input. Non-zero inputs also
// update the facing direction. Unknown ids are ignored.
func (w *World) SetPlayerDirection(id string, dir geom.Vec2) {
	p := w.Player(id)
	if p == nil {
		return
	}
	if !dir.IsFinite() {
		dir = geom.Vec2{}
	}
	n := dir.Normalize()
	if !n.IsZero() {
		p.Facing = n
	}
	p.Velocity = n
}

// SetBot hands control of a player to the bot controller. Unknown ids are
// ignored.
func (w *World) SetBot(id string) {
	p := w.Player(id)
	if p == nil {
		return
	}
	p.Bot = true
	p.Connected = false
	p.Velocity = geom.Vec2{}
}

// Storages returns every storage, depleted ones included.
func (w *World) Storages() []*Storage { return w.storages }

// Storage returns the storage with the given id or nil.
func (w *World) Storage(id string) *Storage {
	for _, s := range w.storages {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// DrainStorage moves up to amount coins from s into the stolen total and
// returns the amount moved. Balances never go below zero.
func (w *World) DrainStorage(s *Storage, amount float64) float64 {
	if s == nil || amount <= 0 || s.Remaining <= 0 {
		return 0
	}
	if amount > s.Remaining {
		amount = s.Remaining
	}
	s.Remaining -= amount
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	w.stolen += amount
	return amount
}

// AllStoragesEmpty reports whether every storage is depleted.
func (w *World) AllStoragesEmpty() bool {
	for _, s := range w.storages {
		if !s.Empty() {
			return false
		}
	}
	return true
}

// StolenCoins returns the running stolen total.
func (w *World) StolenCoins() float64 { return w.stolen }

// TotalCoins returns the summed capacity of all storages.
func (w *World) TotalCoins() float64 { return w.total }

// Jail returns the match jail.
func (w *World) Jail() *Jail { return &w.jail }

// JailPlayer imprisons p and appends it to the inmate list.
func (w *World) JailPlayer(p *Player) {
	if p == nil || p.Jailed {
		return
	}
	p.Imprison(w.jail.Position)
	w.jail.Inmates = append(w.jail.Inmates, p.ID)
}

// ReleaseInmates frees every inmate, respawning each at the thief spawn picked
// by its index among the current thieves. It returns the released ids in
// capture order.
func (w *World) ReleaseInmates() []string {
	if len(w.jail.Inmates) == 0 {
		return nil
	}
	thieves := w.Thieves()
	spawns := w.layout.ThiefSpawns
	released := make([]string, 0, len(w.jail.Inmates))
	for _, id := range w.jail.Inmates {
		p := w.Player(id)
		if p == nil {
			continue
		}
		slot := 0
		for i, t := range thieves {
			if t.ID == id {
				slot = i
				break
			}
		}
		p.Jailed = false
		p.Velocity = geom.Vec2{}
		p.Position = spawns[slot%len(spawns)]
		released = append(released, id)
	}
	w.jail.Inmates = nil
	return released
}

// NextWallID returns a fresh id for a player-built wall.
func (w *World) NextWallID(owner string) string {
	w.wallSeq++
	return fmt.Sprintf("wall_%s_%d", owner, w.wallSeq)
}

// AddDynamicObstacle registers a player-built wall.
func (w *World) AddDynamicObstacle(o Obstacle) {
	o.Dynamic = true
	w.dynamic = append(w.dynamic, o)
}

// RemoveExpiredObstacles drops dynamic walls whose expiry has passed and
// returns them in placement order.
func (w *World) RemoveExpiredObstacles(now time.Time) []Obstacle {
	if len(w.dynamic) == 0 {
		return nil
	}
	var removed []Obstacle
	kept := w.dynamic[:0]
	for _, o := range w.dynamic {
		if !now.Before(o.ExpiresAt) {
			removed = append(removed, o)
			continue
		}
		kept = append(kept, o)
	}
	w.dynamic = kept
	return removed
}

// AllObstacles returns static walls followed by dynamic walls. The slice is
// freshly allocated.
func (w *World) AllObstacles() []Obstacle {
	out := make([]Obstacle, 0, len(w.static)+len(w.dynamic))
	out = append(out, w.static...)
	out = append(out, w.dynamic...)
	return out
}

// DynamicObstacles returns the player-built walls currently standing.
func (w *World) DynamicObstacles() []Obstacle {
	return append([]Obstacle(nil), w.dynamic...)
}

func obstacleRects(obstacles []Obstacle) []geom.Rect {
	rects := make([]geom.Rect, len(obstacles))
	for i, o := range obstacles {
		rects[i] = o.Rect
	}
	return rects
}
