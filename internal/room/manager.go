package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"heist/server/internal/match"
	"heist/server/internal/net/grant"
	"heist/server/internal/net/ws"
	"heist/server/internal/telemetry"
	"heist/server/internal/world"
	"heist/server/logging"
	"heist/server/logging/lifecycle"
)

const (
	metricRoomsActive  = "rooms_active"
	metricRoomsCreated = "rooms_created_total"
)

// Config is the template every match is created from.
type Config struct {
	Match  match.Config
	Layout world.Layout
	Rules  world.Rules
	Teams  Teams
	Issuer *grant.Issuer
	Deps   match.Deps
	// NewID generates match ids. Defaults to random UUIDs.
	NewID func() string
}

// Ticket lets one player join a created match.
type Ticket struct {
	PlayerID string     `json:"playerId"`
	Team     world.Team `json:"team"`
	Grant    string     `json:"grant"`
}

// Created describes a freshly started match.
type Created struct {
	MatchID string   `json:"matchId"`
	Tickets []Ticket `json:"tickets"`
	Bots    []string `json:"bots"`
}

// Manager owns every running room. Each room's match runs on its own
// goroutine and the room is removed once that goroutine returns.
type Manager struct {
	cfg     Config
	logger  telemetry.Logger
	metrics telemetry.Metrics
	pub     logging.Publisher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	rooms       map[string]*Room
	abortReason string
}

func NewManager(cfg Config) *Manager {
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Teams.Cops <= 0 && cfg.Teams.Thieves <= 0 {
		cfg.Teams = Teams{Cops: 2, Thieves: 4}
	}
	m := &Manager{
		cfg:     cfg,
		logger:  cfg.Deps.Logger,
		metrics: cfg.Deps.Metrics,
		pub:     cfg.Deps.Publisher,
		rooms:   make(map[string]*Room),
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
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Create seats the players, fills the rest with bots, starts the match and
// issues one join grant per human player.
func (m *Manager) Create(seats []Seat) (Created, error) {
	roster, err := BuildRoster(seats, m.cfg.Teams)
	if err != nil {
		return Created{}, err
	}

	id := m.cfg.NewID()
	r := newRoom(id, roster)
	matchCfg := m.cfg.Match
	matchCfg.ID = id
	mt, err := match.New(matchCfg, m.cfg.Layout, m.cfg.Rules, roster, r.hooks(), m.cfg.Deps)
	if err != nil {
		return Created{}, fmt.Errorf("create match %s: %w", id, err)
	}
	r.match = mt

	created := Created{MatchID: id}
	for _, entry := range roster {
		if entry.Bot {
			created.Bots = append(created.Bots, entry.ID)
			continue
		}
		ticket := Ticket{PlayerID: entry.ID, Team: entry.Team}
		if m.cfg.Issuer != nil {
			token, err := m.cfg.Issuer.Issue(id, entry.ID)
			if err != nil {
				return Created{}, fmt.Errorf("issue grant for %s: %w", entry.ID, err)
			}
			ticket.Grant = token
		}
		created.Tickets = append(created.Tickets, ticket)
	}

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return Created{}, context.Canceled
	}
	m.rooms[id] = r
	m.metrics.Store(metricRoomsActive, uint64(len(m.rooms)))
	m.wg.Add(1)
	m.mu.Unlock()
	m.metrics.Add(metricRoomsCreated, 1)

	go m.run(r)
	m.logger.Printf("[room %s] started with %d players and %d bots", id, len(created.Tickets), len(created.Bots))
	return created, nil
}

func (m *Manager) run(r *Room) {
	defer m.wg.Done()
	err := r.match.Run(m.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Printf("[room %s] match stopped: %v", r.id, err)
	}
	if _, ok := r.match.Result(); !ok {
		r.abort(m.reason())
	}
	m.remove(r.id)
}

func (m *Manager) reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.abortReason == "" {
		return "server shutting down"
	}
	return m.abortReason
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.rooms, id)
	m.metrics.Store(metricRoomsActive, uint64(len(m.rooms)))
	m.mu.Unlock()
	m.logger.Printf("[room %s] removed", id)
}

// Attach implements ws.Attacher.
func (m *Manager) Attach(matchID, playerID string, out ws.Outbox) (ws.Controls, error) {
	m.mu.Lock()
	r, ok := m.rooms[matchID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrUnknownMatch
	}
	controls, err := r.attach(playerID, out)
	if err != nil {
		return nil, err
	}
	lifecycle.PlayerAttached(context.Background(), logging.ForMatch(m.pub, matchID), r.match.Summary().Tick,
		logging.PlayerRef(playerID, false), lifecycle.PlayerAttachedPayload{Team: string(r.teamOf(playerID))}, nil)
	return controls, nil
}

// Summaries lists the running matches ordered by id.
func (m *Manager) Summaries() []match.Summary {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	out := make([]match.Summary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.match.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of running rooms.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// Shutdown aborts every running match and waits for the rooms to close or
// ctx to expire.
func (m *Manager) Shutdown(ctx context.Context, reason string) error {
	m.mu.Lock()
	if m.abortReason == "" {
		m.abortReason = reason
	}
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
