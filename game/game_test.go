package game

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	katmannames "github.com/katmannames/katmannames"
	"github.com/katmannames/katmannames/boardgen"
)

// testBoard builds a board with a fixed layout: cards 0-8 dark, 9-16 light,
// 17-23 neutral, 24 the assassin. Dark goes first.
func testBoard(t *testing.T) *Game {
	t.Helper()

	words := []string{
		"apple", "bear", "cliff", "dwarf", "eagle", "fence", "ghost", "horse", "iron",
		"jet", "kiwi", "lion", "moon", "night", "olive", "pirate", "queen",
		"robot", "shark", "tower", "unicorn", "vacuum", "whale", "yard",
		"zebra",
	}
	cards := make([]katmannames.Card, katmannames.Size)
	for i, w := range words {
		ct := katmannames.DarkCard
		switch {
		case i >= 24:
			ct = katmannames.AssassinCard
		case i >= 17:
			ct = katmannames.NeutralCard
		case i >= 9:
			ct = katmannames.LightCard
		}
		cards[i] = katmannames.Card{ID: i, Word: w, Type: ct}
	}

	g, err := New(cards, katmannames.DarkTeam)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func mustClue(t *testing.T, g *Game, team katmannames.Team, word string, count int) {
	t.Helper()
	if err := g.GiveClue(team, katmannames.Clue{Word: word, Count: count}); err != nil {
		t.Fatalf("GiveClue(%q, %q %d): %v", team, word, count, err)
	}
}

func mustReveal(t *testing.T, g *Game, team katmannames.Team, id int) {
	t.Helper()
	if err := g.Reveal(team, id); err != nil {
		t.Fatalf("Reveal(%q, %d): %v", team, id, err)
	}
}

func TestGiveClue_Validation(t *testing.T) {
	g := testBoard(t)

	tests := []struct {
		desc string
		team katmannames.Team
		clue katmannames.Clue
		want error
	}{
		{"wrong team", katmannames.LightTeam, katmannames.Clue{Word: "animal", Count: 2}, katmannames.ErrNotYourTurn},
		{"empty word", katmannames.DarkTeam, katmannames.Clue{Word: "  ", Count: 2}, katmannames.ErrInvalidClue},
		{"two words", katmannames.DarkTeam, katmannames.Clue{Word: "big animal", Count: 2}, katmannames.ErrInvalidClue},
		{"count too big", katmannames.DarkTeam, katmannames.Clue{Word: "animal", Count: 10}, katmannames.ErrInvalidClue},
		{"negative count", katmannames.DarkTeam, katmannames.Clue{Word: "animal", Count: -1}, katmannames.ErrInvalidClue},
		{"board word", katmannames.DarkTeam, katmannames.Clue{Word: "Unicorn", Count: 1}, katmannames.ErrInvalidClue},
	}
	for _, tc := range tests {
		if err := g.GiveClue(tc.team, tc.clue); !errors.Is(err, tc.want) {
			t.Errorf("%s: got err %v, want %v", tc.desc, err, tc.want)
		}
	}

	// None of the rejections should have moved the machine.
	if !g.AwaitingClue() || g.ActiveTeam() != katmannames.DarkTeam {
		t.Fatal("rejected clues changed state")
	}

	mustClue(t, g, katmannames.DarkTeam, "animal", 2)
	if err := g.GiveClue(katmannames.DarkTeam, katmannames.Clue{Word: "again", Count: 1}); !errors.Is(err, katmannames.ErrNotYourTurn) {
		t.Errorf("second clue in one turn: got err %v, want ErrNotYourTurn", err)
	}
}

func TestReveal_ExtraGuessRule(t *testing.T) {
	// Clue "animal" 2 allows three reveals; two own cards then a neutral uses
	// all three and hands the turn over.
	g := testBoard(t)
	mustClue(t, g, katmannames.DarkTeam, "animal", 2)

	mustReveal(t, g, katmannames.DarkTeam, 0)
	mustReveal(t, g, katmannames.DarkTeam, 1)
	if g.ActiveTeam() != katmannames.DarkTeam || g.CurrentClue() == nil {
		t.Fatal("turn ended early with a guess to spare")
	}

	mustReveal(t, g, katmannames.DarkTeam, 17) // neutral
	if g.ActiveTeam() != katmannames.LightTeam || !g.AwaitingClue() {
		t.Fatalf("after third reveal want awaiting_clue(light), got team %q awaiting %t",
			g.ActiveTeam(), g.AwaitingClue())
	}
}

func TestReveal_CountExhausted(t *testing.T) {
	// Three own cards on a count of 2 spends count+1 and ends the turn.
	g := testBoard(t)
	mustClue(t, g, katmannames.DarkTeam, "animal", 2)

	mustReveal(t, g, katmannames.DarkTeam, 0)
	mustReveal(t, g, katmannames.DarkTeam, 1)
	mustReveal(t, g, katmannames.DarkTeam, 2)
	if g.ActiveTeam() != katmannames.LightTeam || !g.AwaitingClue() {
		t.Fatalf("want awaiting_clue(light) after count+1 own reveals, got team %q", g.ActiveTeam())
	}
}

func TestReveal_ZeroCountIsUnlimited(t *testing.T) {
	g := testBoard(t)
	mustClue(t, g, katmannames.DarkTeam, "everything", 0)

	// Seven own cards in a row, far past any count, turn still alive.
	for id := 0; id < 7; id++ {
		mustReveal(t, g, katmannames.DarkTeam, id)
	}
	if g.ActiveTeam() != katmannames.DarkTeam || g.CurrentClue() == nil {
		t.Fatal("unlimited clue ended the turn early")
	}

	mustReveal(t, g, katmannames.DarkTeam, 17) // neutral miss ends it
	if g.ActiveTeam() != katmannames.LightTeam {
		t.Fatal("miss on an unlimited clue should end the turn")
	}
}

func TestReveal_OpposingCardEndsTurn(t *testing.T) {
	g := testBoard(t)
	mustClue(t, g, katmannames.DarkTeam, "animal", 3)

	mustReveal(t, g, katmannames.DarkTeam, 9) // light card
	if g.ActiveTeam() != katmannames.LightTeam || !g.AwaitingClue() {
		t.Fatal("opposing-color reveal should end the turn immediately")
	}
}

func TestReveal_Assassin(t *testing.T) {
	g := testBoard(t)
	mustClue(t, g, katmannames.DarkTeam, "animal", 2)

	mustReveal(t, g, katmannames.DarkTeam, 24)
	over, winner, reason := g.Over()
	if !over || winner != katmannames.LightTeam || reason != katmannames.ReasonAssassin {
		t.Fatalf("got over=%t winner=%q reason=%q, want light wins by assassin", over, winner, reason)
	}

	if err := g.Reveal(katmannames.LightTeam, 9); !errors.Is(err, katmannames.ErrGameNotActive) {
		t.Errorf("reveal after end: got err %v, want ErrGameNotActive", err)
	}
}

func TestReveal_AllCardsFound(t *testing.T) {
	g := testBoard(t)
	mustClue(t, g, katmannames.DarkTeam, "everything", 0)

	for id := 0; id < 9; id++ {
		mustReveal(t, g, katmannames.DarkTeam, id)
	}
	over, winner, reason := g.Over()
	if !over || winner != katmannames.DarkTeam || reason != katmannames.ReasonAllCardsFound {
		t.Fatalf("got over=%t winner=%q reason=%q, want dark wins by all_cards_found", over, winner, reason)
	}
}

func TestReveal_OtherTeamFlipsLastCard(t *testing.T) {
	// Light reveals dark's final card by accident; dark wins mid-turn.
	g := testBoard(t)
	mustClue(t, g, katmannames.DarkTeam, "everything", 0)
	for id := 0; id < 8; id++ {
		mustReveal(t, g, katmannames.DarkTeam, id)
	}
	mustReveal(t, g, katmannames.DarkTeam, 17) // miss, turn to light

	mustClue(t, g, katmannames.LightTeam, "accident", 1)
	mustReveal(t, g, katmannames.LightTeam, 8) // dark's last card
	over, winner, reason := g.Over()
	if !over || winner != katmannames.DarkTeam || reason != katmannames.ReasonAllCardsFound {
		t.Fatalf("got over=%t winner=%q reason=%q, want dark wins", over, winner, reason)
	}
}

func TestReveal_InvalidCards(t *testing.T) {
	g := testBoard(t)
	mustClue(t, g, katmannames.DarkTeam, "animal", 2)
	mustReveal(t, g, katmannames.DarkTeam, 0)

	for _, id := range []int{-1, 25, 0} {
		if err := g.Reveal(katmannames.DarkTeam, id); !errors.Is(err, katmannames.ErrInvalidCard) {
			t.Errorf("Reveal(%d): got err %v, want ErrInvalidCard", id, err)
		}
	}
	if g.Remaining(katmannames.DarkTeam) != 8 {
		t.Fatal("rejected reveals changed the board")
	}
}

func TestPass(t *testing.T) {
	g := testBoard(t)

	if err := g.Pass(katmannames.DarkTeam); !errors.Is(err, katmannames.ErrNotYourTurn) {
		t.Errorf("pass before clue: got err %v, want ErrNotYourTurn", err)
	}

	mustClue(t, g, katmannames.DarkTeam, "animal", 2)
	if err := g.Pass(katmannames.LightTeam); !errors.Is(err, katmannames.ErrNotYourTurn) {
		t.Errorf("pass by other team: got err %v, want ErrNotYourTurn", err)
	}
	if err := g.Pass(katmannames.DarkTeam); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if g.ActiveTeam() != katmannames.LightTeam || !g.AwaitingClue() {
		t.Fatal("pass should hand over the turn")
	}
}

func TestRevealedNeverReverses(t *testing.T) {
	g := testBoard(t)
	mustClue(t, g, katmannames.DarkTeam, "everything", 0)
	mustReveal(t, g, katmannames.DarkTeam, 3)

	for _, c := range g.Cards() {
		if c.ID == 3 && !c.Revealed {
			t.Fatal("card 3 lost its revealed flag")
		}
	}
}

func TestReplayHistoryIsDeterministic(t *testing.T) {
	// Playing the same reveal sequence against the same board reproduces the
	// same remaining counts and end state.
	cards, starter, err := boardgen.New(katmannames.Words, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("boardgen.New: %v", err)
	}

	play := func() *Game {
		g, err := New(cards, starter)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		team := starter
		for id := 0; id < 10; id++ {
			if g.AwaitingClue() {
				team = g.ActiveTeam()
				mustClue(t, g, team, "replay", 0)
			}
			if over, _, _ := g.Over(); over {
				break
			}
			mustReveal(t, g, g.ActiveTeam(), id)
		}
		return g
	}

	a, b := play(), play()
	if diff := cmp.Diff(a.History(), b.History()); diff != "" {
		t.Errorf("histories differ (-a +b)\n%s", diff)
	}
	if a.Remaining(katmannames.DarkTeam) != b.Remaining(katmannames.DarkTeam) ||
		a.Remaining(katmannames.LightTeam) != b.Remaining(katmannames.LightTeam) {
		t.Error("remaining counts differ between replays")
	}
	aOver, aWin, _ := a.Over()
	bOver, bWin, _ := b.Over()
	if aOver != bOver || aWin != bWin {
		t.Error("end states differ between replays")
	}
}
