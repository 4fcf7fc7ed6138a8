package room

import (
	"errors"
	"fmt"

	"heist/server/internal/world"
)

var (
	// ErrEmptyRoster is returned when a match is requested without players.
	ErrEmptyRoster = errors.New("room: no players")
	// ErrRosterFull is returned when more players ask to join than seats exist.
	ErrRosterFull = errors.New("room: more players than seats")
	// ErrDuplicatePlayer is returned when an id or wallet appears twice.
	ErrDuplicatePlayer = errors.New("room: duplicate player")
)

var (
	copBotNames   = []string{"Officer Bot", "Deputy Bot"}
	thiefBotNames = []string{"Bandit Bot", "Rogue Bot", "Shadow Bot", "Phantom Bot"}
)

// Seat is one human player asking to join. Team is a preference; an empty
// preference means thief.
type Seat struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Wallet string     `json:"wallet"`
	Team   world.Team `json:"team,omitempty"`
}

// Teams caps the size of each side.
type Teams struct {
	Cops    int
	Thieves int
}

// BuildRoster assigns teams in seat order, honouring preferences while the
// preferred side has room, then fills the empty seats with bots.
func BuildRoster(seats []Seat, teams Teams) ([]world.Entry, error) {
	if len(seats) == 0 {
		return nil, ErrEmptyRoster
	}
	if len(seats) > teams.Cops+teams.Thieves {
		return nil, fmt.Errorf("%w: %d players for %d seats", ErrRosterFull, len(seats), teams.Cops+teams.Thieves)
	}

	ids := make(map[string]struct{}, len(seats))
	wallets := make(map[string]struct{}, len(seats))
	roster := make([]world.Entry, 0, teams.Cops+teams.Thieves)
	cops, thieves := 0, 0
	for _, seat := range seats {
		if seat.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrDuplicatePlayer)
		}
		if _, dup := ids[seat.ID]; dup {
			return nil, fmt.Errorf("%w: id %s", ErrDuplicatePlayer, seat.ID)
		}
		ids[seat.ID] = struct{}{}
		if seat.Wallet != "" {
			if _, dup := wallets[seat.Wallet]; dup {
				return nil, fmt.Errorf("%w: wallet %s", ErrDuplicatePlayer, seat.Wallet)
			}
			wallets[seat.Wallet] = struct{}{}
		}

		var team world.Team
		switch {
		case seat.Team == world.TeamCop && cops < teams.Cops:
			team = world.TeamCop
		case seat.Team != world.TeamCop && thieves < teams.Thieves:
			team = world.TeamThief
		case cops < teams.Cops:
			team = world.TeamCop
		default:
			team = world.TeamThief
		}
		if team == world.TeamCop {
			cops++
		} else {
			thieves++
		}
		name := seat.Name
		if name == "" {
			name = seat.ID
		}
		roster = append(roster, world.Entry{ID: seat.ID, Name: name, Wallet: seat.Wallet, Team: team})
	}

	for i := 0; cops < teams.Cops; i++ {
		roster = append(roster, botEntry(world.TeamCop, i))
		cops++
	}
	for i := 0; thieves < teams.Thieves; i++ {
		roster = append(roster, botEntry(world.TeamThief, i))
		thieves++
	}
	return roster, nil
}

func botEntry(team world.Team, index int) world.Entry {
	names := thiefBotNames
	if team == world.TeamCop {
		names = copBotNames
	}
	return world.Entry{
		ID:     fmt.Sprintf("bot_%s_%d", team, index),
		Name:   names[index%len(names)],
		Wallet: world.BotWallet,
		Team:   team,
		Bot:    true,
	}
}
