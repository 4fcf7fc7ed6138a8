package ai

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"heist/server/internal/geom"
	"heist/server/internal/skills"
	"heist/server/internal/world"
)

const (
	defaultThiefActionCooldown = 500 * time.Millisecond
	defaultCopActionCooldown   = time.Second
	defaultWanderMin           = 2 * time.Second
	defaultWanderMax           = 5 * time.Second
	defaultArriveEpsilon       = 5.0
	wanderMarginRatio          = 0.2
)

// Actuator is the input surface bots share with human clients.
type Actuator interface {
	SetDirection(playerID string, dir geom.Vec2)
	RequestSkill(playerID string, req skills.Request)
}

// Config tunes bot pacing.
type Config struct {
	ThiefActionCooldown time.Duration
	CopActionCooldown   time.Duration
	WanderMin           time.Duration
	WanderMax           time.Duration
	ArriveEpsilon       float64
}

func (cfg Config) normalized() Config {
	n := cfg
	if n.ThiefActionCooldown <= 0 {
		n.ThiefActionCooldown = defaultThiefActionCooldown
	}
	if n.CopActionCooldown <= 0 {
		n.CopActionCooldown = defaultCopActionCooldown
	}
	if n.WanderMin <= 0 {
		n.WanderMin = defaultWanderMin
	}
	if n.WanderMax <= 0 {
		n.WanderMax = defaultWanderMax
	}
	if n.WanderMax < n.WanderMin {
		n.WanderMax = n.WanderMin
	}
	if n.ArriveEpsilon <= 0 {
		n.ArriveEpsilon = defaultArriveEpsilon
	}
	return n
}

// botState is the private memory of one bot, kept apart from the shared
// player record.
type botState struct {
	id             string
	actionCooldown time.Duration
	wanderTimer    time.Duration
	wanderTarget   geom.Vec2
	hasTarget      bool
}

// Controller runs the greedy policy for every registered bot. It does no path
// finding: bots head straight for their goal and rely on collision push-out
// to slide along walls.
type Controller struct {
	cfg   Config
	rng   *rand.Rand
	bots  map[string]*botState
	order []string
}

// NewController builds a controller drawing wander targets from rng.
func NewController(rng *rand.Rand, cfg Config) *Controller {
	if rng == nil {
		rng = world.NewDeterministicRNG(world.DefaultSeed, "bots")
	}
	return &Controller{
		cfg:  cfg.normalized(),
		rng:  rng,
		bots: make(map[string]*botState),
	}
}

// Register starts driving the given player. Registering twice is a no-op.
func (c *Controller) Register(id string) {
	if id == "" {
		return
	}
	if _, ok := c.bots[id]; ok {
		return
	}
	c.bots[id] = &botState{id: id}
	c.order = append(c.order, id)
	sort.Strings(c.order)
}

// Unregister stops driving the given player.
func (c *Controller) Unregister(id string) {
	if _, ok := c.bots[id]; !ok {
		return
	}
	delete(c.bots, id)
	for i, candidate := range c.order {
		if candidate == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// IsBot reports whether id is driven by the controller.
func (c *Controller) IsBot(id string) bool {
	_, ok := c.bots[id]
	return ok
}

// Count returns the number of registered bots.
func (c *Controller) Count() int { return len(c.bots) }

// Update runs one decision pass in id order. dt is the tick period used to
// count down private timers.
func (c *Controller) Update(w *world.World, dt time.Duration, act Actuator) {
	if w == nil || act == nil {
		return
	}
	for _, id := range c.order {
		bot := c.bots[id]
		p := w.Player(id)
		if p == nil {
			continue
		}
		if !p.Free() || p.Channeling() {
			act.SetDirection(id, geom.Vec2{})
			continue
		}

		bot.actionCooldown -= dt
		if bot.actionCooldown < 0 {
			bot.actionCooldown = 0
		}

		switch p.Team {
		case world.TeamThief:
			c.updateThief(w, p, bot, dt, act)
		case world.TeamCop:
			c.updateCop(w, p, bot, dt, act)
		}
	}
}

func (c *Controller) updateThief(w *world.World, p *world.Player, bot *botState, dt time.Duration, act Actuator) {
	rules := w.Rules()
	jail := w.Jail()

	if len(jail.Inmates) > 0 && geom.Distance(p.Position, jail.Position) <= rules.BreakJailRange+jail.Radius {
		if bot.actionCooldown <= 0 {
			act.RequestSkill(p.ID, skills.BreakJail{})
			bot.actionCooldown = c.cfg.ThiefActionCooldown
		}
		act.SetDirection(p.ID, geom.Vec2{})
		return
	}

	if storage := nearestStorage(w, p.Position); storage != nil {
		if geom.Distance(p.Position, storage.Position) <= rules.StealRange+storage.Radius {
			if bot.actionCooldown <= 0 {
				act.RequestSkill(p.ID, skills.Steal{StorageID: storage.ID})
				bot.actionCooldown = c.cfg.ThiefActionCooldown
			}
			act.SetDirection(p.ID, geom.Vec2{})
			return
		}
		c.moveToward(act, p, storage.Position)
		return
	}

	if len(jail.Inmates) > 0 {
		c.moveToward(act, p, jail.Position)
		return
	}

	c.wander(w, act, p, bot, dt)
}

func (c *Controller) updateCop(w *world.World, p *world.Player, bot *botState, dt time.Duration, act Actuator) {
	target, dist := nearestFreeThief(w, p.Position)
	if target == nil {
		c.wander(w, act, p, bot, dt)
		return
	}
	if dist <= w.Rules().ArrestRange && bot.actionCooldown <= 0 {
		act.RequestSkill(p.ID, skills.Arrest{TargetID: target.ID})
		bot.actionCooldown = c.cfg.CopActionCooldown
	}
	c.moveToward(act, p, target.Position)
}

// moveToward steers straight at the goal and stops within ArriveEpsilon.
func (c *Controller) moveToward(act Actuator, p *world.Player, goal geom.Vec2) {
	delta := goal.Sub(p.Position)
	if delta.Len() < c.cfg.ArriveEpsilon {
		act.SetDirection(p.ID, geom.Vec2{})
		return
	}
	act.SetDirection(p.ID, delta.Normalize())
}

func (c *Controller) wander(w *world.World, act Actuator, p *world.Player, bot *botState, dt time.Duration) {
	bot.wanderTimer -= dt
	if bot.wanderTimer <= 0 || !bot.hasTarget {
		region := WanderRegion(w.Bounds())
		bot.wanderTarget = geom.Vec2{
			X: world.RandomRange(c.rng, region.X, region.X+region.Width),
			Y: world.RandomRange(c.rng, region.Y, region.Y+region.Height),
		}
		bot.hasTarget = true
		span := float64(c.cfg.WanderMax - c.cfg.WanderMin)
		bot.wanderTimer = c.cfg.WanderMin + time.Duration(world.RandomRange(c.rng, 0, span))
	}
	c.moveToward(act, p, bot.wanderTarget)
}

// WanderRegion is the central part of the arena bots roam when idle.
func WanderRegion(bounds geom.Rect) geom.Rect {
	mx := bounds.Width * wanderMarginRatio
	my := bounds.Height * wanderMarginRatio
	return geom.Rect{
		X:      bounds.X + mx,
		Y:      bounds.Y + my,
		Width:  bounds.Width - 2*mx,
		Height: bounds.Height - 2*my,
	}
}

func nearestStorage(w *world.World, from geom.Vec2) *world.Storage {
	var best *world.Storage
	bestDist := math.Inf(1)
	for _, s := range w.Storages() {
		if s.Empty() {
			continue
		}
		if d := geom.Distance(from, s.Position); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

func nearestFreeThief(w *world.World, from geom.Vec2) (*world.Player, float64) {
	var best *world.Player
	bestDist := math.Inf(1)
	for _, t := range w.Thieves() {
		if t.Jailed {
			continue
		}
		if d := geom.Distance(from, t.Position); d < bestDist {
			best, bestDist = t, d
		}
	}
	return best, bestDist
}
