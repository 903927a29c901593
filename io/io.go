// Package io implements terminal-driven players and board rendering, used by
// the local binary to play without a browser.
package io

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	katmannames "github.com/katmannames/katmannames"
)

func teamStr(t katmannames.Team) string {
	switch t {
	case katmannames.DarkTeam:
		return "Koyu"
	case katmannames.LightTeam:
		return "Açık"
	default:
		return "?"
	}
}

// Spymaster asks the user on the terminal for a clue, showing them the full
// board first.
type Spymaster struct {
	// In is where the user's clue is read from.
	In io.Reader
	// Out is where the board and prompts are written.
	Out io.Writer
}

func (s *Spymaster) GiveClue(cards []katmannames.Card, team katmannames.Team) (katmannames.Clue, error) {
	PrintBoard(s.Out, cards)
	fmt.Fprintf(s.Out, "%s takımı anlatıcısı, ipucu girin [örn. 'hayvan 3']: ", teamStr(team))
	sc := bufio.NewScanner(s.In)
	if !sc.Scan() {
		return katmannames.Clue{}, fmt.Errorf("scanner error: %v", sc.Err())
	}
	return katmannames.ParseClue(sc.Text())
}

// Operative asks the user on the terminal which card to flip, or "pas" to
// pass.
type Operative struct {
	In  io.Reader
	Out io.Writer
}

func (o *Operative) ChooseCard(cards []katmannames.CardView, clue katmannames.Clue, team katmannames.Team) (int, error) {
	printGuesserBoard(o.Out, cards)
	sc := bufio.NewScanner(o.In)
	for {
		fmt.Fprintf(o.Out, "%s takımı, '%s' için tahmininiz ('pas' geçebilirsiniz): ", teamStr(team), clue)
		if !sc.Scan() {
			return 0, fmt.Errorf("scanner error: %v", sc.Err())
		}
		guess := strings.TrimSpace(sc.Text())
		if strings.EqualFold(guess, "pas") {
			return katmannames.PassCard, nil
		}
		for _, c := range cards {
			if !c.Revealed && strings.EqualFold(c.Word, guess) {
				return c.ID, nil
			}
		}
		fmt.Fprintf(o.Out, "%q tahtada yok ya da çoktan açıldı.\n", guess)
	}
}

// PrintBoard renders the full board, colored by affiliation. Revealed cards
// are underlined.
func PrintBoard(w io.Writer, cards []katmannames.Card) {
	table := tablewriter.NewWriter(w)

	for i := 0; i < katmannames.Rows; i++ {
		var row []string
		var colors []tablewriter.Colors
		for j := 0; j < katmannames.Columns; j++ {
			card := cards[i*katmannames.Columns+j]
			colors = append(colors, cardColors(card.Type, card.Revealed))
			row = append(row, card.Word)
		}
		table.Rich(row, colors)
	}

	table.Render()
}

// printGuesserBoard renders what a guesser knows: words, plus affiliations of
// revealed cards only.
func printGuesserBoard(w io.Writer, cards []katmannames.CardView) {
	table := tablewriter.NewWriter(w)

	for i := 0; i < katmannames.Rows; i++ {
		var row []string
		var colors []tablewriter.Colors
		for j := 0; j < katmannames.Columns; j++ {
			card := cards[i*katmannames.Columns+j]
			colors = append(colors, cardColors(card.Type, card.Revealed))
			row = append(row, card.Word)
		}
		table.Rich(row, colors)
	}

	table.Render()
}

func cardColors(ct katmannames.CardType, revealed bool) tablewriter.Colors {
	var c tablewriter.Colors
	switch ct {
	case katmannames.DarkCard:
		c = append(c, tablewriter.FgBlueColor)
	case katmannames.LightCard:
		c = append(c, tablewriter.FgHiRedColor)
	case katmannames.AssassinCard:
		c = append(c, tablewriter.BgHiRedColor)
	}
	if revealed {
		c = append(c, tablewriter.UnderlineSingle)
	}
	return c
}
