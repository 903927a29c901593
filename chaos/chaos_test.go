package chaos

import (
	"errors"
	"math/rand"
	"testing"

	katmannames "github.com/katmannames/katmannames"
	"github.com/katmannames/katmannames/boardgen"
)

func roster(layout map[katmannames.Team][]katmannames.Role) []*katmannames.Player {
	var out []*katmannames.Player
	i := 0
	for team, roles := range layout {
		for _, role := range roles {
			out = append(out, &katmannames.Player{
				ID:   katmannames.PlayerID(string(rune('a' + i))),
				Team: team,
				Role: role,
			})
			i++
		}
	}
	return out
}

func teamOf(t *testing.T, players []*katmannames.Player, id katmannames.PlayerID) katmannames.Team {
	t.Helper()
	for _, p := range players {
		if p.ID == id {
			return p.Team
		}
	}
	t.Fatalf("player %q not in roster", id)
	return katmannames.NoTeam
}

func TestAssign_Invariants(t *testing.T) {
	players := roster(map[katmannames.Team][]katmannames.Role{
		katmannames.DarkTeam:  {katmannames.SpymasterRole, katmannames.GuesserRole, katmannames.GuesserRole},
		katmannames.LightTeam: {katmannames.SpymasterRole, katmannames.GuesserRole, katmannames.GuesserRole},
	})

	for seed := int64(0); seed < 100; seed++ {
		r := rand.New(rand.NewSource(seed))
		cards, _, err := boardgen.New(katmannames.Words, r)
		if err != nil {
			t.Fatalf("boardgen.New: %v", err)
		}

		ca, err := Assign(players, cards, r)
		if err != nil {
			t.Fatalf("seed %d: Assign: %v", seed, err)
		}

		dodoTeam := teamOf(t, players, ca.Dodo)
		agentTeam := teamOf(t, players, ca.DoubleAgent)
		if dodoTeam == agentTeam {
			t.Fatalf("seed %d: dodo and double agent share team %q", seed, dodoTeam)
		}

		for _, team := range []katmannames.Team{katmannames.DarkTeam, katmannames.LightTeam} {
			oracle, ok := ca.Oracles[team]
			if !ok {
				t.Fatalf("seed %d: no oracle for %s team", seed, team)
			}
			if oracle == ca.Dodo || oracle == ca.DoubleAgent {
				t.Errorf("seed %d: oracle %q doubles as dodo/double agent", seed, oracle)
			}
			if got := teamOf(t, players, oracle); got != team {
				t.Errorf("seed %d: %s oracle is on team %q", seed, team, got)
			}

			granted := ca.OracleCards[team]
			if len(granted) != OracleCardCount {
				t.Fatalf("seed %d: %s oracle granted %d cards, want %d", seed, team, len(granted), OracleCardCount)
			}
			seen := make(map[int]bool)
			for _, id := range granted {
				if seen[id] {
					t.Errorf("seed %d: duplicate granted card %d", seed, id)
				}
				seen[id] = true
				c := cards[id]
				if c.Type != team.CardType() {
					t.Errorf("seed %d: %s oracle granted %q card %d", seed, team, c.Type, id)
				}
			}
		}
	}
}

func TestAssign_SecretRoleOf(t *testing.T) {
	players := roster(map[katmannames.Team][]katmannames.Role{
		katmannames.DarkTeam:  {katmannames.SpymasterRole, katmannames.GuesserRole},
		katmannames.LightTeam: {katmannames.SpymasterRole, katmannames.GuesserRole},
	})

	r := rand.New(rand.NewSource(1))
	cards, _, err := boardgen.New(katmannames.Words, r)
	if err != nil {
		t.Fatalf("boardgen.New: %v", err)
	}
	ca, err := Assign(players, cards, r)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	if got := ca.SecretRoleOf(ca.Dodo); got != katmannames.DodoRole {
		t.Errorf("dodo reports role %q", got)
	}
	if got := ca.SecretRoleOf(ca.DoubleAgent); got != katmannames.DoubleAgentRole {
		t.Errorf("double agent reports role %q", got)
	}
	for _, oracle := range ca.Oracles {
		if got := ca.SecretRoleOf(oracle); got != katmannames.OracleRole {
			t.Errorf("oracle reports role %q", got)
		}
	}
	if got := ca.SecretRoleOf(katmannames.PlayerID("nobody")); got != katmannames.NoSecretRole {
		t.Errorf("stranger reports role %q", got)
	}
}

func TestAssign_NoCandidates(t *testing.T) {
	// A team whose only member is the required spymaster has no dodo or
	// double agent candidate.
	players := roster(map[katmannames.Team][]katmannames.Role{
		katmannames.DarkTeam:  {katmannames.SpymasterRole},
		katmannames.LightTeam: {katmannames.SpymasterRole, katmannames.GuesserRole},
	})

	r := rand.New(rand.NewSource(0))
	cards, _, err := boardgen.New(katmannames.Words, r)
	if err != nil {
		t.Fatalf("boardgen.New: %v", err)
	}

	for seed := int64(0); seed < 20; seed++ {
		if _, err := Assign(players, cards, rand.New(rand.NewSource(seed))); !errors.Is(err, katmannames.ErrChaosAssignment) {
			t.Fatalf("seed %d: got err %v, want ErrChaosAssignment", seed, err)
		}
	}
}
