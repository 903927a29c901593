// Package chaos deals the hidden secondary roles for chaos-mode games: one
// oracle per team, one dodo and one double agent, with the dodo and the
// double agent always on opposite teams.
package chaos

import (
	"fmt"
	"math/rand"

	katmannames "github.com/katmannames/katmannames"
)

// OracleCardCount is how many of its own team's cards each oracle is shown.
const OracleCardCount = 3

// Assign runs once at the lobby-to-playing transition. It fails with
// ErrChaosAssignment when some team has no eligible candidate for a slot; the
// room is expected to fall back to a non-chaos game, never to skip silently.
func Assign(players []*katmannames.Player, cards []katmannames.Card, r *rand.Rand) (*katmannames.ChaosAssignment, error) {
	teams := []katmannames.Team{katmannames.DarkTeam, katmannames.LightTeam}
	// The dodo's team is picked first, uniformly; the double agent always
	// lands on the other one.
	dodoTeam := teams[r.Intn(2)]

	dodo, err := pick(r, players, func(p *katmannames.Player) bool {
		return p.Team == dodoTeam && p.Role != katmannames.SpymasterRole
	})
	if err != nil {
		return nil, fmt.Errorf("%w: no dodo candidate on %s team", katmannames.ErrChaosAssignment, dodoTeam)
	}

	doubleAgent, err := pick(r, players, func(p *katmannames.Player) bool {
		return p.Team == dodoTeam.Opponent() && p.Role != katmannames.SpymasterRole
	})
	if err != nil {
		return nil, fmt.Errorf("%w: no double agent candidate on %s team",
			katmannames.ErrChaosAssignment, dodoTeam.Opponent())
	}

	ca := &katmannames.ChaosAssignment{
		Dodo:        dodo.ID,
		DoubleAgent: doubleAgent.ID,
		Oracles:     make(map[katmannames.Team]katmannames.PlayerID),
		OracleCards: make(map[katmannames.Team][]int),
	}

	for _, team := range teams {
		team := team
		// Oracles may be spymasters; the only exclusion is the hidden-role
		// slot already taken on that team.
		oracle, err := pick(r, players, func(p *katmannames.Player) bool {
			return p.Team == team && p.ID != dodo.ID && p.ID != doubleAgent.ID
		})
		if err != nil {
			return nil, fmt.Errorf("%w: no oracle candidate on %s team", katmannames.ErrChaosAssignment, team)
		}
		ca.Oracles[team] = oracle.ID
		ca.OracleCards[team] = oracleCards(team, cards, r)
	}

	return ca, nil
}

// pick chooses uniformly among players matching the filter.
func pick(r *rand.Rand, players []*katmannames.Player, ok func(*katmannames.Player) bool) (*katmannames.Player, error) {
	var pool []*katmannames.Player
	for _, p := range players {
		if ok(p) {
			pool = append(pool, p)
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("no candidates")
	}
	return pool[r.Intn(len(pool))], nil
}

// oracleCards picks the card IDs revealed to a team's oracle: its own team's
// unrevealed, non-assassin cards, chosen at random.
func oracleCards(team katmannames.Team, cards []katmannames.Card, r *rand.Rand) []int {
	var own []int
	for _, c := range cards {
		if c.Type == team.CardType() && !c.Revealed {
			own = append(own, c.ID)
		}
	}

	n := OracleCardCount
	if n > len(own) {
		n = len(own)
	}
	picked := make([]int, 0, n)
	for _, idx := range r.Perm(len(own)) {
		picked = append(picked, own[idx])
		if len(picked) == n {
			break
		}
	}
	return picked
}
