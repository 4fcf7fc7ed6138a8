package world

import (
	"time"

	"heist/server/internal/geom"
)

// PlayerView is the projection of a player sent to viewers.
type PlayerView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Team         Team      `json:"team"`
	Bot          bool      `json:"bot"`
	Connected    bool      `json:"connected"`
	Position     geom.Vec2 `json:"position"`
	Velocity     geom.Vec2 `json:"velocity"`
	Facing       geom.Vec2 `json:"facing"`
	VisionRadius float64   `json:"visionRadius"`
	Jailed       bool      `json:"jailed"`
	Stunned      bool      `json:"stunned"`
	Disguised    bool      `json:"disguised"`

	Channel        string `json:"channel,omitempty"`
	ChannelTarget  string `json:"channelTarget,omitempty"`
	ChannelElapsed int64  `json:"channelElapsedMs,omitempty"`

	StunRemainingMs     int64 `json:"stunRemainingMs,omitempty"`
	DisguiseRemainingMs int64 `json:"disguiseRemainingMs,omitempty"`
	DisguiseCooldownMs  int64 `json:"disguiseCooldownMs,omitempty"`
	WallCooldownMs      int64 `json:"wallCooldownMs,omitempty"`
}

// StorageView is the projection of a storage.
type StorageView struct {
	ID        string    `json:"id"`
	Position  geom.Vec2 `json:"position"`
	Radius    float64   `json:"radius"`
	Capacity  float64   `json:"capacity"`
	Remaining float64   `json:"remaining"`
}

// JailView is the projection of the jail.
type JailView struct {
	Position geom.Vec2 `json:"position"`
	Radius   float64   `json:"radius"`
	Inmates  []string  `json:"inmates"`
}

// ObstacleView is the projection of a wall.
type ObstacleView struct {
	ID          string    `json:"id"`
	Rect        geom.Rect `json:"rect"`
	Dynamic     bool      `json:"dynamic,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	RemainingMs int64     `json:"remainingMs,omitempty"`
}

// Snapshot is a read-only copy of the match state. Nothing in it aliases the
// live world.
type Snapshot struct {
	Tick             uint64         `json:"tick"`
	Phase            Phase          `json:"phase"`
	MatchTimerMs     int64          `json:"matchTimerMs"`
	HeadStartTimerMs int64          `json:"headStartTimerMs"`
	Players          []PlayerView   `json:"players"`
	Storages         []StorageView  `json:"storages"`
	Jail             JailView       `json:"jail"`
	Obstacles        []ObstacleView `json:"obstacles"`
	StolenCoins      float64        `json:"stolenCoins"`
	TotalCoins       float64        `json:"totalCoins"`
}

// Snapshot projects the full, unfiltered state.
func (w *World) Snapshot() Snapshot {
	snap := w.mapSnapshot()
	snap.Players = make([]PlayerView, 0, len(w.players))
	for _, p := range w.players {
		snap.Players = append(snap.Players, w.viewOf(p))
	}
	return snap
}

// FilteredSnapshot projects the state as seen by viewerID. The viewer, its
// teammates and enemies within vision radius and clear line of sight are
// included. Disguised thieves are reported to cops as cops. An unknown viewer
// receives the full snapshot.
func (w *World) FilteredSnapshot(viewerID string) Snapshot {
	viewer := w.Player(viewerID)
	if viewer == nil {
		return w.Snapshot()
	}

	rects := obstacleRects(w.AllObstacles())
	snap := w.mapSnapshot()
	snap.Players = make([]PlayerView, 0, len(w.players))
	for _, p := range w.players {
		if !Visible(viewer, p, rects) {
			continue
		}
		view := w.viewOf(p)
		if p.Disguised && viewer.Team == TeamCop && p.ID != viewer.ID {
			view = w.posingAsCop(view)
		}
		snap.Players = append(snap.Players, view)
	}
	return snap
}

// posingAsCop strips every field of a thief view that a cop never carries.
func (w *World) posingAsCop(view PlayerView) PlayerView {
	view.Team = TeamCop
	view.VisionRadius = w.rules.CopVisionRadius
	view.Disguised = false
	view.DisguiseRemainingMs = 0
	view.DisguiseCooldownMs = 0
	view.WallCooldownMs = 0
	view.Channel = ""
	view.ChannelTarget = ""
	view.ChannelElapsed = 0
	return view
}

// Visible reports whether target shows up in viewer's projection.
func Visible(viewer, target *Player, obstacles []geom.Rect) bool {
	if viewer == nil || target == nil {
		return false
	}
	if target.ID == viewer.ID || target.Team == viewer.Team {
		return true
	}
	if geom.Distance(viewer.Position, target.Position) > viewer.VisionRadius {
		return false
	}
	return geom.HasLineOfSight(viewer.Position, target.Position, obstacles)
}

func (w *World) mapSnapshot() Snapshot {
	snap := Snapshot{
		Tick:             w.tick,
		Phase:            w.phase,
		MatchTimerMs:     w.matchRemaining.Milliseconds(),
		HeadStartTimerMs: w.headStartRemaining.Milliseconds(),
		StolenCoins:      w.stolen,
		TotalCoins:       w.total,
		Jail: JailView{
			Position: w.jail.Position,
			Radius:   w.jail.Radius,
			Inmates:  append([]string{}, w.jail.Inmates...),
		},
	}
	snap.Storages = make([]StorageView, 0, len(w.storages))
	for _, s := range w.storages {
		snap.Storages = append(snap.Storages, StorageView{
			ID:        s.ID,
			Position:  s.Position,
			Radius:    s.Radius,
			Capacity:  s.Capacity,
			Remaining: s.Remaining,
		})
	}
	obstacles := w.AllObstacles()
	snap.Obstacles = make([]ObstacleView, 0, len(obstacles))
	for _, o := range obstacles {
		view := ObstacleView{ID: o.ID, Rect: o.Rect, Dynamic: o.Dynamic, Owner: o.Owner}
		if o.Dynamic {
			view.RemainingMs = untilMs(w.now, o.ExpiresAt)
		}
		snap.Obstacles = append(snap.Obstacles, view)
	}
	return snap
}

func (w *World) viewOf(p *Player) PlayerView {
	view := PlayerView{
		ID:           p.ID,
		Name:         p.Name,
		Team:         p.Team,
		Bot:          p.Bot,
		Connected:    p.Connected,
		Position:     p.Position,
		Velocity:     p.Velocity,
		Facing:       p.Facing,
		VisionRadius: p.VisionRadius,
		Jailed:       p.Jailed,
		Stunned:      p.Stunned,
		Disguised:    p.Disguised,
	}
	if p.Channeling() {
		view.Channel = p.Channel.Skill.String()
		view.ChannelTarget = p.Channel.Target
		view.ChannelElapsed = w.now.Sub(p.Channel.StartedAt).Milliseconds()
	}
	if p.Stunned {
		view.StunRemainingMs = untilMs(w.now, p.StunUntil)
	}
	if p.Disguised {
		view.DisguiseRemainingMs = untilMs(w.now, p.DisguiseUntil)
	}
	view.DisguiseCooldownMs = untilMs(w.now, p.DisguiseCooldownUntil)
	view.WallCooldownMs = untilMs(w.now, p.WallCooldownUntil)
	return view
}

func untilMs(now, deadline time.Time) int64 {
	if deadline.IsZero() || !now.Before(deadline) {
		return 0
	}
	return deadline.Sub(now).Milliseconds()
}
