package match

import "heist/server/internal/world"

// Reason explains why a match ended.
type Reason string

const (
	ReasonAllCoinsStolen   Reason = "all_coins_stolen"
	ReasonAllThievesJailed Reason = "all_thieves_jailed"
	ReasonTimeExpired      Reason = "time_expired"
)

// Winner is a member of the winning team, bots included.
type Winner struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Wallet string `json:"wallet"`
	Bot    bool   `json:"bot"`
}

// Result is the terminal outcome of a match. Payout execution belongs to the
// caller; PayoutPerWinner is the amount each winner is owed.
type Result struct {
	MatchID         string     `json:"matchId"`
	Tick            uint64     `json:"tick"`
	WinningTeam     world.Team `json:"winningTeam"`
	Reason          Reason     `json:"reason"`
	StolenCoins     float64    `json:"stolenCoins"`
	TotalCoins      float64    `json:"totalCoins"`
	PayoutPerWinner uint64     `json:"payoutPerWinner"`
	Winners         []Winner   `json:"winners"`
}

// Evaluate checks the win conditions in priority order: every storage empty,
// then every thief jailed, then the match clock.
func Evaluate(w *world.World) (world.Team, Reason, bool) {
	if w.AllStoragesEmpty() {
		return world.TeamThief, ReasonAllCoinsStolen, true
	}
	thieves := w.Thieves()
	if len(thieves) > 0 {
		allJailed := true
		for _, t := range thieves {
			if !t.Jailed {
				allJailed = false
				break
			}
		}
		if allJailed {
			return world.TeamCop, ReasonAllThievesJailed, true
		}
	}
	if w.MatchRemaining() <= 0 {
		return world.TeamCop, ReasonTimeExpired, true
	}
	return "", "", false
}

// BuildResult splits the entry pool (fee times roster size) evenly across the
// winning team, rounding down.
func BuildResult(w *world.World, matchID string, team world.Team, reason Reason, entryFee uint64) Result {
	players := w.Players()
	var winners []Winner
	for _, p := range players {
		if p.Team != team {
			continue
		}
		winners = append(winners, Winner{ID: p.ID, Name: p.Name, Wallet: p.Wallet, Bot: p.Bot})
	}
	pool := entryFee * uint64(len(players))
	return Result{
		MatchID:         matchID,
		Tick:            w.Tick(),
		WinningTeam:     team,
		Reason:          reason,
		StolenCoins:     w.StolenCoins(),
		TotalCoins:      w.TotalCoins(),
		PayoutPerWinner: pool / uint64(max(len(winners), 1)),
		Winners:         winners,
	}
}
