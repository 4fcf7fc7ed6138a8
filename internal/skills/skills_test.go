package skills

import (
	"testing"
	"time"

	"heist/server/internal/geom"
	"heist/server/internal/world"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

const tickDt = 0.05

func newWorld(t *testing.T, mutate func(*world.Rules)) *world.World {
	t.Helper()
	rules := world.DefaultRules()
	rules.HeadStart = 0
	if mutate != nil {
		mutate(&rules)
	}
	roster := []world.Entry{
		{ID: "cop-1", Team: world.TeamCop},
		{ID: "cop-2", Team: world.TeamCop},
		{ID: "thief-1", Team: world.TeamThief},
		{ID: "thief-2", Team: world.TeamThief},
		{ID: "thief-3", Team: world.TeamThief},
		{ID: "thief-4", Team: world.TeamThief},
	}
	w, err := world.New(world.DefaultLayout(), rules, roster, t0, world.Deps{})
	if err != nil {
		t.Fatalf("world.New returned error: %v", err)
	}
	return w
}

func place(w *world.World, id string, x, y float64) *world.Player {
	p := w.Player(id)
	p.Position = geom.Vec2{X: x, Y: y}
	return p
}

func hasEvent(events []Event, typ EventType) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func countEvents(events []Event, typ EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func checkConservation(t *testing.T, w *world.World) {
	t.Helper()
	sum := 0.0
	for _, s := range w.Storages() {
		if s.Remaining < 0 {
			t.Fatalf("storage %s went negative: %v", s.ID, s.Remaining)
		}
		sum += s.Remaining
	}
	if diff := w.TotalCoins() - sum - w.StolenCoins(); diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected stolen %v to equal total minus remaining %v", w.StolenCoins(), w.TotalCoins()-sum)
	}
}

func TestParseRequest(t *testing.T) {
	if req, ok := ParseRequest("steal", "storage_1"); !ok || req != (Steal{StorageID: "storage_1"}) {
		t.Fatalf("expected steal request, got %#v %v", req, ok)
	}
	if _, ok := ParseRequest("steal", ""); ok {
		t.Fatalf("expected steal without target to be rejected")
	}
	if _, ok := ParseRequest("teleport", ""); ok {
		t.Fatalf("expected unknown skill to be rejected")
	}
	if req, ok := ParseRequest("break_jail", "ignored"); !ok || req.Skill() != world.SkillBreakJail {
		t.Fatalf("expected break_jail request, got %#v %v", req, ok)
	}
}

func TestStealPreconditions(t *testing.T) {
	w := newWorld(t, nil)
	place(w, "thief-1", 200, 220)
	place(w, "cop-1", 200, 220)
	place(w, "thief-2", 200, 400)

	if events := Apply(w, "cop-1", Steal{StorageID: "storage_0"}, t0); len(events) != 0 {
		t.Fatalf("expected cop steal to be rejected, got %v", events)
	}
	if events := Apply(w, "thief-2", Steal{StorageID: "storage_0"}, t0); len(events) != 0 {
		t.Fatalf("expected out of range steal to be rejected, got %v", events)
	}
	if events := Apply(w, "thief-1", Steal{StorageID: "missing"}, t0); len(events) != 0 {
		t.Fatalf("expected unknown storage to be rejected, got %v", events)
	}
	if events := Apply(w, "ghost", Steal{StorageID: "storage_0"}, t0); len(events) != 0 {
		t.Fatalf("expected unknown player to be ignored, got %v", events)
	}

	events := Apply(w, "thief-1", Steal{StorageID: "storage_0"}, t0)
	if len(events) != 1 || events[0].Type != EventSkillStarted || events[0].TargetID != "storage_0" {
		t.Fatalf("expected skill_started on storage_0, got %v", events)
	}
	if events := Apply(w, "thief-1", Steal{StorageID: "storage_0"}, t0); len(events) != 0 {
		t.Fatalf("expected second channel to be rejected, got %v", events)
	}
}

func TestStealDrainsAtRateAndConserves(t *testing.T) {
	w := newWorld(t, nil)
	place(w, "thief-1", 200, 200)
	Apply(w, "thief-1", Steal{StorageID: "storage_0"}, t0)

	storage := w.Storage("storage_0")
	prev := storage.Remaining
	for i := 1; i <= 20; i++ {
		AdvanceChannels(w, tickDt, t0.Add(time.Duration(i)*50*time.Millisecond))
		if storage.Remaining > prev {
			t.Fatalf("expected remaining coins to be non-increasing, got %v after %v", storage.Remaining, prev)
		}
		prev = storage.Remaining
		checkConservation(t, w)
	}
	if got := w.StolenCoins(); got < 4.999 || got > 5.001 {
		t.Fatalf("expected 5 coins after one second, got %v", got)
	}
}

func TestStealCompletesOnExactDrain(t *testing.T) {
	w := newWorld(t, nil)
	storage := w.Storage("storage_0")
	w.DrainStorage(storage, storage.Remaining-0.25)
	place(w, "thief-1", 200, 200)
	Apply(w, "thief-1", Steal{StorageID: "storage_0"}, t0)

	events := AdvanceChannels(w, tickDt, t0.Add(50*time.Millisecond))
	if countEvents(events, EventStorageEmptied) != 1 {
		t.Fatalf("expected exactly one storage_emptied, got %v", events)
	}
	if storage.Remaining != 0 {
		t.Fatalf("expected storage drained to zero, got %v", storage.Remaining)
	}
	if w.Player("thief-1").Channeling() {
		t.Fatalf("expected channel cleared after emptying the storage")
	}
	checkConservation(t, w)

	if events := AdvanceChannels(w, tickDt, t0.Add(100*time.Millisecond)); len(events) != 0 {
		t.Fatalf("expected no further events, got %v", events)
	}
}

func TestStealInterruptedOutOfRange(t *testing.T) {
	w := newWorld(t, nil)
	p := place(w, "thief-1", 200, 200)
	Apply(w, "thief-1", Steal{StorageID: "storage_0"}, t0)
	p.Position = geom.Vec2{X: 200, Y: 400}

	events := AdvanceChannels(w, tickDt, t0.Add(50*time.Millisecond))
	if len(events) != 1 || events[0].Type != EventSkillInterrupted || events[0].Reason != ReasonOutOfRange {
		t.Fatalf("expected out_of_range interruption, got %v", events)
	}
	if p.Channeling() {
		t.Fatalf("expected channel cleared")
	}
}

func TestStealInterruptedWhenAnotherThiefEmptiesStorage(t *testing.T) {
	w := newWorld(t, nil)
	storage := w.Storage("storage_0")
	w.DrainStorage(storage, storage.Remaining-0.25)
	place(w, "thief-1", 200, 200)
	place(w, "thief-2", 210, 200)
	Apply(w, "thief-1", Steal{StorageID: "storage_0"}, t0)
	Apply(w, "thief-2", Steal{StorageID: "storage_0"}, t0)

	events := AdvanceChannels(w, tickDt, t0.Add(50*time.Millisecond))
	if countEvents(events, EventStorageEmptied) != 1 {
		t.Fatalf("expected one storage_emptied, got %v", events)
	}
	last := events[len(events)-1]
	if last.Type != EventSkillInterrupted || last.PlayerID != "thief-2" || last.Reason != ReasonDepleted {
		t.Fatalf("expected thief-2 interrupted as depleted, got %v", events)
	}
	checkConservation(t, w)
}

func jailThief(t *testing.T, w *world.World, id string) {
	t.Helper()
	w.JailPlayer(w.Player(id))
}

func TestBreakJailInterruptedByMovement(t *testing.T) {
	w := newWorld(t, nil)
	jailThief(t, w, "thief-2")
	place(w, "thief-1", 500, 600)

	if events := Apply(w, "thief-1", BreakJail{}, t0); !hasEvent(events, EventSkillStarted) {
		t.Fatalf("expected break_jail to start, got %v", events)
	}
	w.SetPlayerDirection("thief-1", geom.Vec2{X: 1, Y: 0})

	events := AdvanceChannels(w, tickDt, t0.Add(50*time.Millisecond))
	if len(events) != 1 || events[0].Reason != ReasonMoved {
		t.Fatalf("expected moved interruption, got %v", events)
	}
	if !w.Player("thief-2").Jailed || len(w.Jail().Inmates) != 1 {
		t.Fatalf("expected inmate to stay jailed")
	}
}

func TestBreakJailReleasesAllInmatesAfterChannel(t *testing.T) {
	w := newWorld(t, nil)
	jailThief(t, w, "thief-3")
	jailThief(t, w, "thief-2")
	rescuer := place(w, "thief-1", 500, 600)
	rescuer.Velocity = geom.Vec2{X: 0, Y: 1}

	Apply(w, "thief-1", BreakJail{}, t0)
	if !rescuer.Velocity.IsZero() {
		t.Fatalf("expected break_jail to zero velocity")
	}

	if events := AdvanceChannels(w, tickDt, t0.Add(9*time.Second)); len(events) != 0 {
		t.Fatalf("expected channel to continue before 10s, got %v", events)
	}
	events := AdvanceChannels(w, tickDt, t0.Add(10*time.Second))
	if countEvents(events, EventPlayerFreed) != 2 {
		t.Fatalf("expected two player_freed events, got %v", events)
	}
	if events[0].PlayerID != "thief-3" || events[1].PlayerID != "thief-2" {
		t.Fatalf("expected release in capture order, got %v", events)
	}
	layout := world.DefaultLayout()
	if got := w.Player("thief-3").Position; got != layout.ThiefSpawns[2] {
		t.Fatalf("expected thief-3 at spawn %+v, got %+v", layout.ThiefSpawns[2], got)
	}
	if len(w.Jail().Inmates) != 0 || rescuer.Channeling() {
		t.Fatalf("expected empty jail and idle rescuer")
	}
}

func TestBreakJailInterruptedWhenJailEmptiesMidChannel(t *testing.T) {
	w := newWorld(t, nil)
	jailThief(t, w, "thief-2")
	place(w, "thief-1", 500, 600)
	late := place(w, "thief-3", 510, 600)

	Apply(w, "thief-1", BreakJail{}, t0)
	if events := Apply(w, "thief-3", BreakJail{}, t0.Add(time.Second)); !hasEvent(events, EventSkillStarted) {
		t.Fatalf("expected second break_jail to start, got %v", events)
	}

	events := AdvanceChannels(w, tickDt, t0.Add(10*time.Second))
	events = append(events, AdvanceChannels(w, tickDt, t0.Add(10*time.Second+50*time.Millisecond))...)
	if countEvents(events, EventPlayerFreed) != 1 {
		t.Fatalf("expected one release, got %v", events)
	}
	var reason string
	for _, e := range events {
		if e.Type == EventSkillInterrupted && e.PlayerID == "thief-3" {
			reason = e.Reason
		}
	}
	if reason != ReasonJailEmpty {
		t.Fatalf("expected %q interruption for the second rescuer, got %q in %v", ReasonJailEmpty, reason, events)
	}
	if late.Channeling() {
		t.Fatalf("expected second rescuer to be idle")
	}
}

func TestBreakJailRequiresInmatesAndRange(t *testing.T) {
	w := newWorld(t, nil)
	place(w, "thief-1", 500, 600)
	if events := Apply(w, "thief-1", BreakJail{}, t0); len(events) != 0 {
		t.Fatalf("expected empty jail to reject break_jail, got %v", events)
	}
	jailThief(t, w, "thief-2")
	place(w, "thief-1", 500, 700)
	if events := Apply(w, "thief-1", BreakJail{}, t0); len(events) != 0 {
		t.Fatalf("expected distant thief to be rejected, got %v", events)
	}
}

func TestArrestNeedsCooperatingCops(t *testing.T) {
	w := newWorld(t, nil)
	place(w, "thief-1", 300, 600)
	place(w, "cop-1", 320, 600)
	place(w, "cop-2", 800, 800)

	if events := Apply(w, "cop-1", Arrest{TargetID: "thief-1"}, t0); len(events) != 0 {
		t.Fatalf("expected lone cop arrest to be a no-op, got %v", events)
	}
	if w.Player("thief-1").Jailed || w.Player("cop-1").Stunned {
		t.Fatalf("expected no state change after failed arrest")
	}
}

func TestArrestJailsThiefAndStunsParticipants(t *testing.T) {
	w := newWorld(t, nil)
	thief := place(w, "thief-1", 300, 600)
	place(w, "cop-1", 320, 600)
	place(w, "cop-2", 300, 630)
	place(w, "thief-2", 340, 600)
	thief.Channel = world.Channel{Skill: world.SkillSteal, Target: "storage_5", StartedAt: t0}

	events := Apply(w, "cop-1", Arrest{TargetID: "thief-1"}, t0)
	if !hasEvent(events, EventPlayerJailed) || !hasEvent(events, EventCopsStunned) {
		t.Fatalf("expected jailed and stunned events, got %v", events)
	}
	if events[0].Type != EventSkillInterrupted || events[0].Reason != ReasonArrested {
		t.Fatalf("expected the thief's channel interruption first, got %v", events)
	}
	if !thief.Jailed || thief.Channeling() || thief.Position != w.Jail().Position {
		t.Fatalf("expected thief jailed at the jail with no channel, got %+v", thief)
	}
	stunned := events[len(events)-1].CopIDs
	if len(stunned) != 2 {
		t.Fatalf("expected both cops stunned, got %v", stunned)
	}
	for _, id := range []string{"cop-1", "cop-2"} {
		c := w.Player(id)
		if !c.Stunned || !c.StunUntil.Equal(t0.Add(5*time.Second)) || !c.Velocity.IsZero() {
			t.Fatalf("expected %s stunned for 5s, got %+v", id, c)
		}
	}

	if events := Apply(w, "thief-1", Steal{StorageID: "storage_5"}, t0); len(events) != 0 {
		t.Fatalf("expected jailed thief to be unable to act, got %v", events)
	}
	if events := Apply(w, "cop-1", Arrest{TargetID: "thief-2"}, t0); len(events) != 0 {
		t.Fatalf("expected stunned cop to be unable to act, got %v", events)
	}
}

func TestArrestRespectsThreshold(t *testing.T) {
	w := newWorld(t, func(r *world.Rules) { r.ArrestCopCount = 1 })
	place(w, "thief-1", 300, 600)
	place(w, "cop-1", 320, 600)
	place(w, "cop-2", 800, 800)

	events := Apply(w, "cop-1", Arrest{TargetID: "thief-1"}, t0)
	if !hasEvent(events, EventPlayerJailed) {
		t.Fatalf("expected single-cop arrest with threshold 1, got %v", events)
	}
	if w.Player("cop-2").Stunned {
		t.Fatalf("expected distant cop to stay unstunned")
	}
}

func TestDisguiseCooldownAndExpiry(t *testing.T) {
	w := newWorld(t, nil)
	p := w.Player("thief-1")

	events := Apply(w, "thief-1", Disguise{}, t0)
	if len(events) != 1 || events[0].Type != EventPlayerDisguised {
		t.Fatalf("expected player_disguised, got %v", events)
	}
	if events := Apply(w, "thief-1", Disguise{}, t0.Add(time.Second)); len(events) != 0 {
		t.Fatalf("expected repeat disguise to be rejected, got %v", events)
	}
	if events := Apply(w, "cop-1", Disguise{}, t0); len(events) != 0 {
		t.Fatalf("expected cops unable to disguise, got %v", events)
	}

	if events := ExpireDisguises(w, t0.Add(7*time.Second)); len(events) != 0 {
		t.Fatalf("expected disguise to hold before expiry, got %v", events)
	}
	events = ExpireDisguises(w, t0.Add(8*time.Second))
	if len(events) != 1 || events[0].Type != EventDisguiseRevealed || p.Disguised {
		t.Fatalf("expected disguise_revealed at expiry, got %v", events)
	}
	if events := Apply(w, "thief-1", Disguise{}, t0.Add(10*time.Second)); len(events) != 0 {
		t.Fatalf("expected cooldown to block re-disguise, got %v", events)
	}
	if events := Apply(w, "thief-1", Disguise{}, t0.Add(20*time.Second)); len(events) != 1 {
		t.Fatalf("expected disguise after cooldown, got %v", events)
	}
}

func TestBuildWallGatedOnStolenCoins(t *testing.T) {
	w := newWorld(t, nil)
	p := place(w, "thief-1", 600, 800)

	if events := Apply(w, "thief-1", BuildWall{}, t0); len(events) != 0 {
		t.Fatalf("expected locked wall to be rejected, got %v", events)
	}

	w.DrainStorage(w.Storage("storage_0"), 10)
	w.SetPlayerDirection("thief-1", geom.Vec2{X: 1, Y: 0})
	events := Apply(w, "thief-1", BuildWall{}, t0)
	if len(events) != 1 || events[0].Type != EventWallPlaced {
		t.Fatalf("expected wall_placed, got %v", events)
	}
	walls := w.DynamicObstacles()
	if len(walls) != 1 || walls[0].Owner != "thief-1" {
		t.Fatalf("expected one wall owned by thief-1, got %v", walls)
	}
	want := geom.Rect{X: 633, Y: 760, Width: 14, Height: 80}
	if walls[0].Rect != want {
		t.Fatalf("expected wall %+v, got %+v", want, walls[0].Rect)
	}
	if !p.WallCooldownUntil.Equal(t0.Add(15 * time.Second)) {
		t.Fatalf("expected 15s wall cooldown, got %v", p.WallCooldownUntil)
	}
	if events := Apply(w, "thief-1", BuildWall{}, t0.Add(5*time.Second)); len(events) != 0 {
		t.Fatalf("expected cooldown to block a second wall, got %v", events)
	}

	if events := ExpireWalls(w, t0.Add(9*time.Second)); len(events) != 0 {
		t.Fatalf("expected wall to stand before expiry, got %v", events)
	}
	events = ExpireWalls(w, t0.Add(10*time.Second))
	if len(events) != 1 || events[0].Type != EventWallRemoved || events[0].WallID != walls[0].ID {
		t.Fatalf("expected wall_removed for %s, got %v", walls[0].ID, events)
	}
}

func TestWallRectStaysInBounds(t *testing.T) {
	rules := world.DefaultRules()
	bounds := geom.Rect{Width: 1000, Height: 1000}
	rect := WallRect(geom.Vec2{X: 20, Y: 20}, geom.Vec2{X: 0, Y: -1}, rules, bounds)
	if rect.X < 0 || rect.Y < 0 {
		t.Fatalf("expected wall clamped inside bounds, got %+v", rect)
	}
	if rect.Width != rules.WallLength || rect.Height != rules.WallThickness {
		t.Fatalf("expected horizontal wall for vertical facing, got %+v", rect)
	}
}

func TestCancelClearsChannel(t *testing.T) {
	w := newWorld(t, nil)
	place(w, "thief-1", 200, 200)
	Apply(w, "thief-1", Steal{StorageID: "storage_0"}, t0)

	events := Cancel(w, "thief-1")
	if len(events) != 1 || events[0].Reason != ReasonCancelled || events[0].Skill != "steal" {
		t.Fatalf("expected cancelled interruption, got %v", events)
	}
	if events := Cancel(w, "thief-1"); len(events) != 0 {
		t.Fatalf("expected cancel on idle player to be a no-op, got %v", events)
	}
	if events := Cancel(w, "ghost"); len(events) != 0 {
		t.Fatalf("expected cancel on unknown player to be a no-op, got %v", events)
	}
}

func TestExpireStuns(t *testing.T) {
	w := newWorld(t, nil)
	c := w.Player("cop-1")
	c.Stun(t0.Add(5 * time.Second))

	ExpireStuns(w, t0.Add(4*time.Second))
	if !c.Stunned {
		t.Fatalf("expected stun to hold before deadline")
	}
	ExpireStuns(w, t0.Add(5*time.Second))
	if c.Stunned {
		t.Fatalf("expected stun cleared at deadline")
	}
}

func TestApplyIgnoredAfterMatchEnds(t *testing.T) {
	w := newWorld(t, nil)
	place(w, "thief-1", 200, 200)
	w.End()
	if events := Apply(w, "thief-1", Steal{StorageID: "storage_0"}, t0); len(events) != 0 {
		t.Fatalf("expected requests after the match to be ignored, got %v", events)
	}
}

func TestNoPlayerIsJailedWhileChanneling(t *testing.T) {
	w := newWorld(t, nil)
	place(w, "thief-1", 200, 200)
	place(w, "cop-1", 220, 200)
	place(w, "cop-2", 200, 220)
	Apply(w, "thief-1", Steal{StorageID: "storage_0"}, t0)

	Apply(w, "cop-1", Arrest{TargetID: "thief-1"}, t0)
	AdvanceChannels(w, tickDt, t0.Add(50*time.Millisecond))
	for _, p := range w.Players() {
		if p.Jailed && p.Channeling() {
			t.Fatalf("expected %s to hold no channel while jailed", p.ID)
		}
	}
}
