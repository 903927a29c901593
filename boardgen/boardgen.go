// Package boardgen deals the 25-card board for a new game.
package boardgen

import (
	"fmt"
	"math/rand"
	"strings"

	katmannames "github.com/katmannames/katmannames"
)

// New picks 25 distinct words from the pool and assigns them card types: nine
// for the starting team, eight for the other, seven neutral and one assassin.
// The starting team is chosen uniformly from the same source, so a fixed seed
// produces a fixed board.
func New(words []string, r *rand.Rand) ([]katmannames.Card, katmannames.Team, error) {
	pool := usable(words)
	if len(pool) < katmannames.Size {
		return nil, katmannames.NoTeam, fmt.Errorf("%w: have %d words, need %d",
			katmannames.ErrInsufficientWords, len(pool), katmannames.Size)
	}

	starter := katmannames.DarkTeam
	if r.Intn(2) == 1 {
		starter = katmannames.LightTeam
	}

	types := baseTypes(starter)

	// Pick the board's words by shuffling pool indices rather than drawing
	// from a map, which would not be deterministic under a fixed seed.
	selected := make([]string, 0, katmannames.Size)
	for _, idx := range r.Perm(len(pool)) {
		selected = append(selected, pool[idx])
		if len(selected) == katmannames.Size {
			break
		}
	}

	cards := make([]katmannames.Card, katmannames.Size)
	for i, idx := range r.Perm(len(types)) {
		cards[i] = katmannames.Card{
			ID:   i,
			Word: selected[i],
			Type: types[idx],
		}
	}

	return cards, starter, nil
}

// usable trims and de-duplicates the pool, case-insensitively.
func usable(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return out
}

func baseTypes(starter katmannames.Team) []katmannames.CardType {
	var types []katmannames.CardType
	for i := 0; i < katmannames.StartingTeamCards; i++ {
		types = append(types, starter.CardType())
	}
	for i := 0; i < katmannames.SecondTeamCards; i++ {
		types = append(types, starter.Opponent().CardType())
	}
	for i := 0; i < katmannames.NeutralCards; i++ {
		types = append(types, katmannames.NeutralCard)
	}
	return append(types, katmannames.AssassinCard)
}
