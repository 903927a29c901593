package bot

import (
	"math/rand"
	"testing"

	katmannames "github.com/katmannames/katmannames"
	"github.com/katmannames/katmannames/boardgen"
	"github.com/katmannames/katmannames/game"
)

func TestRandomMovesAreAlwaysLegal(t *testing.T) {
	// Drive a whole game with the random policy on both sides and assert the
	// machine never rejects a move. Several seeds to shake out edge cases.
	for seed := int64(0); seed < 20; seed++ {
		r := rand.New(rand.NewSource(seed))
		cards, starter, err := boardgen.New(katmannames.Words, r)
		if err != nil {
			t.Fatalf("boardgen.New: %v", err)
		}
		g, err := game.New(cards, starter)
		if err != nil {
			t.Fatalf("game.New: %v", err)
		}

		b := NewRandom(rand.New(rand.NewSource(seed + 1000)))

		for moves := 0; moves < 500; moves++ {
			if over, _, _ := g.Over(); over {
				break
			}
			team := g.ActiveTeam()
			if g.AwaitingClue() {
				clue, err := b.GiveClue(g.Cards(), team)
				if err != nil {
					t.Fatalf("seed %d: GiveClue: %v", seed, err)
				}
				if err := g.GiveClue(team, clue); err != nil {
					t.Fatalf("seed %d: machine rejected bot clue %+v: %v", seed, clue, err)
				}
				continue
			}

			views := make([]katmannames.CardView, 0, len(g.Cards()))
			for _, c := range g.Cards() {
				cv := katmannames.CardView{ID: c.ID, Word: c.Word, Revealed: c.Revealed}
				if c.Revealed {
					cv.Type = c.Type
				}
				views = append(views, cv)
			}
			id, err := b.ChooseCard(views, *g.CurrentClue(), team)
			if err != nil {
				t.Fatalf("seed %d: ChooseCard: %v", seed, err)
			}
			if id == katmannames.PassCard {
				if err := g.Pass(team); err != nil {
					t.Fatalf("seed %d: machine rejected bot pass: %v", seed, err)
				}
				continue
			}
			if err := g.Reveal(team, id); err != nil {
				t.Fatalf("seed %d: machine rejected bot reveal of %d: %v", seed, id, err)
			}
		}

		if over, winner, reason := g.Over(); !over {
			t.Fatalf("seed %d: game never finished", seed)
		} else if winner == katmannames.NoTeam || reason == "" {
			t.Fatalf("seed %d: finished without a winner/reason", seed)
		}
	}
}
