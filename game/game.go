// Package game implements the turn state machine for a single board: clue
// sequencing, reveal resolution and win detection. It knows nothing about
// players, only teams; the room decides who is allowed to speak for a team.
package game

import (
	"fmt"
	"strings"

	katmannames "github.com/katmannames/katmannames"
)

// Game is one board being played out. It is purely message-driven: nothing in
// here moves on a timer, and every method either applies a transition or
// rejects it leaving state unchanged.
type Game struct {
	cards        []katmannames.Card
	startingTeam katmannames.Team

	activeTeam katmannames.Team
	// clue is nil while the active team's spymaster owes a clue.
	clue        *katmannames.Clue
	guessesMade int

	history []katmannames.RevealEntry

	over      bool
	winner    katmannames.Team
	endReason katmannames.EndReason
}

// New validates the board and starts the machine in awaiting-clue for the
// starting team.
func New(cards []katmannames.Card, startingTeam katmannames.Team) (*Game, error) {
	if err := validateBoard(cards, startingTeam); err != nil {
		return nil, fmt.Errorf("invalid board: %w", err)
	}

	g := &Game{
		cards:        make([]katmannames.Card, len(cards)),
		startingTeam: startingTeam,
		activeTeam:   startingTeam,
	}
	copy(g.cards, cards)
	return g, nil
}

func validateBoard(cards []katmannames.Card, starter katmannames.Team) error {
	if starter != katmannames.DarkTeam && starter != katmannames.LightTeam {
		return fmt.Errorf("bad starting team %q", starter)
	}
	if len(cards) != katmannames.Size {
		return fmt.Errorf("board must contain %d cards, found %d", katmannames.Size, len(cards))
	}

	got := make(map[katmannames.CardType]int)
	for i, c := range cards {
		if c.ID != i {
			return fmt.Errorf("card %d has ID %d, IDs must be board positions", i, c.ID)
		}
		got[c.Type]++
	}

	want := map[katmannames.CardType]int{
		starter.CardType():            katmannames.StartingTeamCards,
		starter.Opponent().CardType(): katmannames.SecondTeamCards,
		katmannames.NeutralCard:       katmannames.NeutralCards,
		katmannames.AssassinCard:      katmannames.AssassinCards,
	}
	for ct, wc := range want {
		if gc := got[ct]; gc != wc {
			return fmt.Errorf("got %d cards of type %q, want %d", gc, ct, wc)
		}
	}
	return nil
}

// GiveClue accepts a clue from the given team. Legal only while that team's
// spymaster owes a clue.
func (g *Game) GiveClue(team katmannames.Team, clue katmannames.Clue) error {
	if g.over {
		return katmannames.ErrGameNotActive
	}
	if team != g.activeTeam || g.clue != nil {
		return katmannames.ErrNotYourTurn
	}

	word := strings.TrimSpace(clue.Word)
	if word == "" || strings.ContainsAny(word, " \t") {
		return fmt.Errorf("%w: clue must be a single word", katmannames.ErrInvalidClue)
	}
	if clue.Count < 0 || clue.Count > 9 {
		return fmt.Errorf("%w: count %d out of range 0-9", katmannames.ErrInvalidClue, clue.Count)
	}
	for _, c := range g.cards {
		if !c.Revealed && strings.EqualFold(c.Word, word) {
			return fmt.Errorf("%w: %q is on the board", katmannames.ErrInvalidClue, word)
		}
	}

	clue.Word = word
	g.clue = &clue
	g.guessesMade = 0
	return nil
}

// Reveal flips a card for the given team. Legal only while that team is
// guessing an active clue.
func (g *Game) Reveal(team katmannames.Team, cardID int) error {
	if g.over {
		return katmannames.ErrGameNotActive
	}
	if team != g.activeTeam || g.clue == nil {
		return katmannames.ErrNotYourTurn
	}
	if cardID < 0 || cardID >= len(g.cards) {
		return fmt.Errorf("%w: no card %d", katmannames.ErrInvalidCard, cardID)
	}
	if g.cards[cardID].Revealed {
		return fmt.Errorf("%w: card %d is already revealed", katmannames.ErrInvalidCard, cardID)
	}

	c := &g.cards[cardID]
	c.Revealed = true
	c.RevealedBy = team
	g.guessesMade++
	g.history = append(g.history, katmannames.RevealEntry{
		Word: c.Word,
		Type: c.Type,
		Team: team,
	})

	if c.Type == katmannames.AssassinCard {
		g.finish(team.Opponent(), katmannames.ReasonAssassin)
		return nil
	}

	// A fully revealed team wins immediately, even if the other team flipped
	// the last card for them.
	for _, t := range []katmannames.Team{katmannames.DarkTeam, katmannames.LightTeam} {
		if g.Remaining(t) == 0 {
			g.finish(t, katmannames.ReasonAllCardsFound)
			return nil
		}
	}

	if !g.canKeepGuessing(c.Type) {
		g.endTurn()
	}
	return nil
}

// canKeepGuessing reports whether the turn continues after flipping a card of
// the given type. Hitting your own card keeps the turn alive until the clue's
// count-plus-one guesses are spent; a count of zero allows unlimited guesses.
func (g *Game) canKeepGuessing(ct katmannames.CardType) bool {
	if ct != g.activeTeam.CardType() {
		return false
	}
	if g.clue.Count == 0 {
		return true
	}
	return g.guessesMade < g.clue.Count+1
}

// Pass ends the guessing team's turn voluntarily.
func (g *Game) Pass(team katmannames.Team) error {
	if g.over {
		return katmannames.ErrGameNotActive
	}
	if team != g.activeTeam || g.clue == nil {
		return katmannames.ErrNotYourTurn
	}
	g.endTurn()
	return nil
}

func (g *Game) endTurn() {
	g.activeTeam = g.activeTeam.Opponent()
	g.clue = nil
	g.guessesMade = 0
}

func (g *Game) finish(winner katmannames.Team, reason katmannames.EndReason) {
	g.over = true
	g.winner = winner
	g.endReason = reason
	g.clue = nil
}

// Over reports whether the game has ended, and if so who won and why.
func (g *Game) Over() (bool, katmannames.Team, katmannames.EndReason) {
	return g.over, g.winner, g.endReason
}

// ActiveTeam is the team whose turn it is. Meaningless once the game is over.
func (g *Game) ActiveTeam() katmannames.Team {
	return g.activeTeam
}

// CurrentClue returns the active clue, or nil while a spymaster owes one.
func (g *Game) CurrentClue() *katmannames.Clue {
	if g.clue == nil {
		return nil
	}
	clue := *g.clue
	return &clue
}

// AwaitingClue reports whether the machine is waiting on the active team's
// spymaster.
func (g *Game) AwaitingClue() bool {
	return !g.over && g.clue == nil
}

// Remaining counts the given team's unrevealed cards.
func (g *Game) Remaining(team katmannames.Team) int {
	var n int
	for _, c := range g.cards {
		if c.Type == team.CardType() && !c.Revealed {
			n++
		}
	}
	return n
}

// Cards returns a copy of the board.
func (g *Game) Cards() []katmannames.Card {
	out := make([]katmannames.Card, len(g.cards))
	copy(out, g.cards)
	return out
}

// History returns a copy of the reveal history, in order of occurrence.
func (g *Game) History() []katmannames.RevealEntry {
	out := make([]katmannames.RevealEntry, len(g.history))
	copy(out, g.history)
	return out
}

// StartingTeam is the team that went first.
func (g *Game) StartingTeam() katmannames.Team {
	return g.startingTeam
}
