// Package bot implements the decision policies for synthetic players. A bot
// is an ordinary Player in the room; the room invokes these policies at the
// two points a human would act and feeds the result through the same intent
// surface, so the turn machine can't tell bots and humans apart.
package bot

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	katmannames "github.com/katmannames/katmannames"
)

// clueWords is the pool the random spymaster draws clues from. The clues
// carry no signal; the random policy is a stand-in, not an opponent.
var clueWords = []string{
	"animal", "object", "place", "idea", "thing", "person", "sound", "color",
	"metal", "nature", "history", "motion", "music", "danger", "journey",
	"weather", "feeling", "machine", "legend", "ocean",
}

// Random plays uniformly at random. Safe for concurrent use; the room drives
// it from short-lived goroutines.
type Random struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom returns a Random policy drawing from r.
func NewRandom(r *rand.Rand) *Random {
	return &Random{r: r}
}

var _ katmannames.SpymasterAI = (*Random)(nil)
var _ katmannames.OperativeAI = (*Random)(nil)

// GiveClue picks a clue word at random and a count no bigger than the team's
// remaining cards, capped at 3 to keep turns short.
func (b *Random) GiveClue(cards []katmannames.Card, team katmannames.Team) (katmannames.Clue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var remaining int
	for _, c := range cards {
		if c.Type == team.CardType() && !c.Revealed {
			remaining++
		}
	}
	if remaining == 0 {
		return katmannames.Clue{}, fmt.Errorf("no cards left to clue for %q", team)
	}

	count := b.r.Intn(min(remaining, 3)) + 1
	word := b.pickClueWord(cards)
	return katmannames.Clue{Word: word, Count: count}, nil
}

// pickClueWord avoids clue words that happen to be on the board, which the
// turn machine would reject.
func (b *Random) pickClueWord(cards []katmannames.Card) string {
	onBoard := func(word string) bool {
		for _, c := range cards {
			if !c.Revealed && strings.EqualFold(c.Word, word) {
				return true
			}
		}
		return false
	}

	for _, idx := range b.r.Perm(len(clueWords)) {
		if !onBoard(clueWords[idx]) {
			return clueWords[idx]
		}
	}
	// Every candidate is on the board. Unlikely with a 25-card board, but
	// gluing two words keeps the clue legal.
	return clueWords[b.r.Intn(len(clueWords))] + "ish"
}

// ChooseCard reveals a random unrevealed card, passing one time in ten so
// unlimited clues can't stall a game that only bots are playing.
func (b *Random) ChooseCard(cards []katmannames.CardView, clue katmannames.Clue, team katmannames.Team) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var unrevealed []int
	for _, c := range cards {
		if !c.Revealed {
			unrevealed = append(unrevealed, c.ID)
		}
	}
	if len(unrevealed) == 0 {
		return katmannames.PassCard, nil
	}
	if b.r.Intn(10) == 0 {
		return katmannames.PassCard, nil
	}
	return unrevealed[b.r.Intn(len(unrevealed))], nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
