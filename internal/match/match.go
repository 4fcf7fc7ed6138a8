package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"heist/server/internal/ai"
	"heist/server/internal/geom"
	"heist/server/internal/skills"
	"heist/server/internal/telemetry"
	"heist/server/internal/world"
	"heist/server/logging"
	"heist/server/logging/lifecycle"
	"heist/server/logging/simulation"
	skilllog "heist/server/logging/skills"
)

const (
	defaultTickPeriod      = 50 * time.Millisecond
	defaultCommandCapacity = 1024
	defaultPerPlayerLimit  = 32

	metricTicksTotal    = "match_ticks_total"
	metricEventsTotal   = "match_skill_events_total"
	metricCommandsDrop  = "match_commands_dropped_total"
	metricTickOverruns  = "match_tick_overruns_total"
	metricMatchesEnded  = "matches_ended_total"
	metricTickLastMicro = "match_tick_last_micros"
)

// ErrAlreadyRunning is returned when Run is called twice on one match.
var ErrAlreadyRunning = errors.New("match: already running")

// Config tunes one match.
type Config struct {
	ID              string
	TickPeriod      time.Duration
	EntryFee        uint64
	CommandCapacity int
	PerPlayerLimit  int
	Seed            string
	Bots            ai.Config
}

func (c Config) normalized() Config {
	n := c
	if n.TickPeriod <= 0 {
		n.TickPeriod = defaultTickPeriod
	}
	if n.CommandCapacity <= 0 {
		n.CommandCapacity = defaultCommandCapacity
	}
	if n.PerPlayerLimit <= 0 {
		n.PerPlayerLimit = defaultPerPlayerLimit
	}
	return n
}

// Deps bundles the match's collaborators. Every field is optional.
type Deps struct {
	Clock     logging.Clock
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Tracer    trace.Tracer
}

// View projects the world for one viewer. It is only valid during the hook
// call that received it.
type View func(viewerID string) world.Snapshot

// Hooks receive the match outputs on the loop goroutine. They must not block
// and must not call Stop.
type Hooks struct {
	// Frame runs after every tick that did not end the match.
	Frame func(tick uint64, events []skills.Event, view View)
	// Result runs once, for the tick that ended the match, in place of Frame.
	Result func(result Result, events []skills.Event)
}

// StepResult reports what one tick did.
type StepResult struct {
	Tick     uint64
	Phase    world.Phase
	Events   []skills.Event
	Commands int
	Result   *Result
}

// Summary is a copy of the match headline state, safe to read from any
// goroutine.
type Summary struct {
	ID               string      `json:"id"`
	Tick             uint64      `json:"tick"`
	Phase            world.Phase `json:"phase"`
	Players          int         `json:"players"`
	Bots             int         `json:"bots"`
	StolenCoins      float64     `json:"stolenCoins"`
	TotalCoins       float64     `json:"totalCoins"`
	MatchRemainingMs int64       `json:"matchRemainingMs"`
}

// Match owns one World and drives it at a fixed period. Inputs may be
// enqueued from any goroutine; the World itself is only touched by Step.
type Match struct {
	cfg     Config
	world   *world.World
	bots    *ai.Controller
	buffer  *CommandBuffer
	hooks   Hooks
	clock   logging.Clock
	logger  telemetry.Logger
	metrics telemetry.Metrics
	pub     logging.Publisher
	tracer  trace.Tracer

	queueMu   sync.Mutex
	perPlayer map[string]int

	summaryMu sync.RWMutex
	summary   Summary

	running  atomic.Bool
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	overrunStreak uint64
	result        atomic.Pointer[Result]
}

// New seats the roster in a fresh world. Roster entries flagged as bots are
// handed to the bot controller immediately.
func New(cfg Config, layout world.Layout, rules world.Rules, roster []world.Entry, hooks Hooks, deps Deps) (*Match, error) {
	cfg = cfg.normalized()
	clock := deps.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	w, err := world.New(layout, rules, roster, clock.Now(), world.Deps{Seed: cfg.Seed})
	if err != nil {
		return nil, fmt.Errorf("create world: %w", err)
	}

	m := &Match{
		cfg:       cfg,
		world:     w,
		bots:      ai.NewController(w.SubsystemRNG("bots"), cfg.Bots),
		hooks:     hooks,
		clock:     clock,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		pub:       deps.Publisher,
		tracer:    deps.Tracer,
		perPlayer: make(map[string]int),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if m.logger == nil {
		m.logger = telemetry.WrapLogger(nil)
	}
	if m.metrics == nil {
		m.metrics = telemetry.NopMetrics()
	}
	if m.pub == nil {
		m.pub = logging.NopPublisher()
	}
	m.pub = logging.ForMatch(m.pub, cfg.ID)
	if m.tracer == nil {
		m.tracer = telemetry.Tracer()
	}
	m.buffer = NewCommandBuffer(cfg.CommandCapacity, m.metrics)

	bots := 0
	for _, entry := range roster {
		if entry.Bot {
			m.bots.Register(entry.ID)
			bots++
		}
	}
	m.refreshSummary()

	lifecycle.MatchCreated(context.Background(), m.pub, logging.MatchRef(cfg.ID), lifecycle.MatchCreatedPayload{
		Layout:  layout.Name,
		Players: len(roster),
		Bots:    bots,
	}, nil)
	return m, nil
}

func (m *Match) ID() string { return m.cfg.ID }

// TickPeriod is the interval between ticks.
func (m *Match) TickPeriod() time.Duration { return m.cfg.TickPeriod }

// SetDirection stages a movement input. Later inputs in the same tick win.
func (m *Match) SetDirection(playerID string, dir geom.Vec2) bool {
	return m.enqueue(Command{Type: CommandMove, PlayerID: playerID, Direction: dir})
}

// RequestSkill stages a skill request.
func (m *Match) RequestSkill(playerID string, req skills.Request) bool {
	if req == nil {
		return false
	}
	return m.enqueue(Command{Type: CommandSkill, PlayerID: playerID, Request: req})
}

// CancelSkill stages a voluntary channel cancel.
func (m *Match) CancelSkill(playerID string) bool {
	return m.enqueue(Command{Type: CommandCancel, PlayerID: playerID})
}

// ConvertToBot hands a departed player to the bot controller at the next tick.
// It bypasses the per-player limit so a flood cannot strand the player.
func (m *Match) ConvertToBot(playerID string) bool {
	return m.push(Command{Type: CommandConvertToBot, PlayerID: playerID})
}

func (m *Match) enqueue(cmd Command) bool {
	m.queueMu.Lock()
	count := m.perPlayer[cmd.PlayerID]
	if count >= m.cfg.PerPlayerLimit {
		m.queueMu.Unlock()
		m.reportDrop(cmd, "player_limit")
		return false
	}
	m.perPlayer[cmd.PlayerID] = count + 1
	m.queueMu.Unlock()
	return m.push(cmd)
}

func (m *Match) push(cmd Command) bool {
	if m.buffer.Push(cmd) {
		return true
	}
	m.reportDrop(cmd, "buffer_full")
	return false
}

func (m *Match) reportDrop(cmd Command, reason string) {
	m.metrics.Add(metricCommandsDrop, 1)
	simulation.CommandDropped(context.Background(), m.pub, m.Summary().Tick, logging.PlayerRef(cmd.PlayerID, false),
		simulation.CommandDroppedPayload{Command: string(cmd.Type), Pending: m.buffer.Len()},
		map[string]any{"reason": reason})
}

func (m *Match) drain() []Command {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if len(m.perPlayer) > 0 {
		clear(m.perPlayer)
	}
	return m.buffer.Drain()
}

// Step runs one tick at now. It must only be called from the goroutine that
// owns the match; Run does so on every tick.
func (m *Match) Step(ctx context.Context, now time.Time) StepResult {
	w := m.world
	if w.Phase() == world.PhaseEnded {
		return StepResult{Tick: w.Tick(), Phase: world.PhaseEnded}
	}
	dt := m.cfg.TickPeriod.Seconds()

	commands := m.drain()
	var events []skills.Event
	for _, cmd := range commands {
		events = append(events, m.apply(ctx, cmd, now)...)
	}

	if w.UpdatePhase(now) {
		lifecycle.PhaseChanged(ctx, m.pub, w.Tick(), logging.MatchRef(m.cfg.ID), lifecycle.PhaseChangedPayload{
			From: string(world.PhaseHeadStart),
			To:   string(world.PhasePlaying),
		}, nil)
	}
	skills.ExpireStuns(w, now)
	events = append(events, skills.ExpireDisguises(w, now)...)
	events = append(events, skills.ExpireWalls(w, now)...)
	w.MovePlayers(dt)

	act := &actuator{world: w, now: now}
	m.bots.Update(w, m.cfg.TickPeriod, act)
	events = append(events, act.events...)

	events = append(events, skills.AdvanceChannels(w, dt, now)...)
	w.Advance(now)

	result := StepResult{Tick: w.Tick(), Commands: len(commands), Events: events}
	if team, reason, ok := Evaluate(w); ok {
		res := BuildResult(w, m.cfg.ID, team, reason, m.cfg.EntryFee)
		w.End()
		m.result.Store(&res)
		result.Result = &res
	}
	result.Phase = w.Phase()

	m.metrics.Add(metricTicksTotal, 1)
	m.metrics.Add(metricEventsTotal, uint64(len(events)))
	m.publishEvents(ctx, events)
	if result.Result != nil {
		m.metrics.Add(metricMatchesEnded, 1)
		winners := make([]logging.EntityRef, 0, len(result.Result.Winners))
		for _, winner := range result.Result.Winners {
			winners = append(winners, logging.PlayerRef(winner.ID, winner.Bot))
		}
		lifecycle.MatchEnded(ctx, m.pub, w.Tick(), logging.MatchRef(m.cfg.ID), winners, lifecycle.MatchEndedPayload{
			WinningTeam:     string(result.Result.WinningTeam),
			Reason:          string(result.Result.Reason),
			StolenCoins:     result.Result.StolenCoins,
			PayoutPerWinner: result.Result.PayoutPerWinner,
			Winners:         len(result.Result.Winners),
		}, nil)
	}
	m.refreshSummary()
	return result
}

func (m *Match) apply(ctx context.Context, cmd Command, now time.Time) []skills.Event {
	w := m.world
	switch cmd.Type {
	case CommandMove:
		w.SetPlayerDirection(cmd.PlayerID, cmd.Direction)
	case CommandSkill:
		return skills.Apply(w, cmd.PlayerID, cmd.Request, now)
	case CommandCancel:
		return skills.Cancel(w, cmd.PlayerID)
	case CommandConvertToBot:
		p := w.Player(cmd.PlayerID)
		if p == nil || m.bots.IsBot(p.ID) {
			return nil
		}
		w.SetBot(p.ID)
		m.bots.Register(p.ID)
		lifecycle.BotTakeover(ctx, m.pub, w.Tick(), logging.PlayerRef(p.ID, false), lifecycle.BotTakeoverPayload{Reason: "disconnected"}, nil)
		m.logger.Printf("[match %s] %s disconnected, bot took over", m.cfg.ID, p.ID)
	}
	return nil
}

// actuator feeds bot decisions straight into the world for the current tick.
type actuator struct {
	world  *world.World
	now    time.Time
	events []skills.Event
}

func (a *actuator) SetDirection(playerID string, dir geom.Vec2) {
	a.world.SetPlayerDirection(playerID, dir)
}

func (a *actuator) RequestSkill(playerID string, req skills.Request) {
	a.events = append(a.events, skills.Apply(a.world, playerID, req, a.now)...)
}

func (m *Match) publishEvents(ctx context.Context, events []skills.Event) {
	tick := m.world.Tick()
	for _, ev := range events {
		eventType, ok := skilllog.TypeFor(string(ev.Type))
		if !ok {
			continue
		}
		var targets []logging.EntityRef
		if ev.TargetID != "" {
			targets = append(targets, m.ref(ev.TargetID))
		}
		for _, id := range ev.CopIDs {
			targets = append(targets, m.ref(id))
		}
		skilllog.Publish(ctx, m.pub, tick, eventType, m.ref(ev.PlayerID), targets, skilllog.Payload{
			Skill:     ev.Skill,
			Reason:    ev.Reason,
			StorageID: ev.StorageID,
			WallID:    ev.WallID,
			CopIDs:    ev.CopIDs,
		}, nil)
	}
}

func (m *Match) ref(id string) logging.EntityRef {
	if p := m.world.Player(id); p != nil {
		return logging.PlayerRef(id, p.Bot)
	}
	if m.world.Storage(id) != nil {
		return logging.EntityRef{ID: id, Kind: logging.EntityKindStorage}
	}
	return logging.EntityRef{ID: id, Kind: logging.EntityKindUnknown}
}

func (m *Match) refreshSummary() {
	w := m.world
	bots := 0
	for _, p := range w.Players() {
		if p.Bot {
			bots++
		}
	}
	m.summaryMu.Lock()
	m.summary = Summary{
		ID:               m.cfg.ID,
		Tick:             w.Tick(),
		Phase:            w.Phase(),
		Players:          len(w.Players()),
		Bots:             bots,
		StolenCoins:      w.StolenCoins(),
		TotalCoins:       w.TotalCoins(),
		MatchRemainingMs: w.MatchRemaining().Milliseconds(),
	}
	m.summaryMu.Unlock()
}

// Summary returns the state as of the last completed tick.
func (m *Match) Summary() Summary {
	m.summaryMu.RLock()
	defer m.summaryMu.RUnlock()
	return m.summary
}

// Run drives the tick loop until ctx is cancelled, Stop is called or a win
// condition fires. It returns nil when the match ended or was stopped.
func (m *Match) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(m.done)

	select {
	case <-m.quit:
		return nil
	default:
	}

	lifecycle.MatchStarted(ctx, m.pub, m.world.Tick(), logging.MatchRef(m.cfg.ID), lifecycle.MatchStartedPayload{
		TickMillis: m.cfg.TickPeriod.Milliseconds(),
	}, nil)

	ticker := time.NewTicker(m.cfg.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.quit:
			return nil
		case <-ticker.C:
		}
		// A tick racing with Stop loses.
		select {
		case <-m.quit:
			return nil
		default:
		}
		if ended := m.tick(ctx); ended {
			return nil
		}
	}
}

func (m *Match) tick(ctx context.Context) bool {
	start := m.clock.Now()
	spanCtx, span := m.tracer.Start(ctx, "match.tick", trace.WithAttributes(
		attribute.String("match.id", m.cfg.ID),
		attribute.Int64("match.tick", int64(m.world.Tick()+1)),
	))
	res := m.Step(spanCtx, start)
	span.SetAttributes(
		attribute.Int("match.events", len(res.Events)),
		attribute.Int("match.commands", res.Commands),
	)

	if res.Result != nil {
		if m.hooks.Result != nil {
			m.hooks.Result(*res.Result, res.Events)
		}
		span.End()
		m.logger.Printf("[match %s] ended at tick %d: %s wins (%s)", m.cfg.ID, res.Tick, res.Result.WinningTeam, res.Result.Reason)
		return true
	}
	if m.hooks.Frame != nil {
		m.hooks.Frame(res.Tick, res.Events, m.world.FilteredSnapshot)
	}
	span.End()

	m.checkBudget(spanCtx, res.Tick, m.clock.Now().Sub(start))
	return false
}

func (m *Match) checkBudget(ctx context.Context, tick uint64, elapsed time.Duration) {
	m.metrics.Store(metricTickLastMicro, uint64(elapsed.Microseconds()))
	budget := m.cfg.TickPeriod
	if elapsed <= budget {
		m.overrunStreak = 0
		return
	}
	m.overrunStreak++
	m.metrics.Add(metricTickOverruns, 1)
	simulation.TickBudgetOverrun(ctx, m.pub, tick, logging.MatchRef(m.cfg.ID), simulation.TickBudgetOverrunPayload{
		DurationMillis: elapsed.Milliseconds(),
		BudgetMillis:   budget.Milliseconds(),
		Ratio:          float64(elapsed) / float64(budget),
		Streak:         m.overrunStreak,
	}, nil)
}

// Stop ends the loop. It is idempotent and, once it returns, no further tick
// runs. It must not be called from a hook.
func (m *Match) Stop() {
	m.stopOnce.Do(func() { close(m.quit) })
	if m.running.Load() {
		<-m.done
	}
}

// Result returns the terminal result once the match has ended.
func (m *Match) Result() (Result, bool) {
	res := m.result.Load()
	if res == nil {
		return Result{}, false
	}
	return *res, true
}
