// katmannames-local plays a full game in the terminal: one human seat, every
// other seat filled by bots. Good for trying rule changes without a browser.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	katmannames "github.com/katmannames/katmannames"
	"github.com/katmannames/katmannames/boardgen"
	"github.com/katmannames/katmannames/bot"
	"github.com/katmannames/katmannames/cryptorand"
	"github.com/katmannames/katmannames/dict"
	"github.com/katmannames/katmannames/game"
	gameio "github.com/katmannames/katmannames/io"
)

func main() {
	var (
		dictFile = flag.String("dict_file", "words.txt", "A newline-separated word pool")
		teamFlag = flag.String("team", "dark", "Team to play on: dark or light")
		roleFlag = flag.String("role", "guesser", "Seat to play: spymaster, guesser or watch")
		seed     = flag.Int64("seed", 0, "Board seed; 0 deals a random board")
	)
	flag.Parse()

	myTeam := katmannames.Team(*teamFlag)
	if myTeam != katmannames.DarkTeam && myTeam != katmannames.LightTeam {
		log.Fatalf("unknown team %q", *teamFlag)
	}
	if *roleFlag != "spymaster" && *roleFlag != "guesser" && *roleFlag != "watch" {
		log.Fatalf("unknown role %q", *roleFlag)
	}

	words, err := dict.Load(*dictFile)
	if err != nil {
		log.Fatalf("failed to load words: %v", err)
	}

	var src rand.Source = cryptorand.NewSource()
	if *seed != 0 {
		src = rand.NewSource(*seed)
	}
	r := rand.New(src)

	cards, starter, err := boardgen.New(words, r)
	if err != nil {
		log.Fatalf("failed to deal a board: %v", err)
	}
	g, err := game.New(cards, starter)
	if err != nil {
		log.Fatalf("failed to start the game: %v", err)
	}

	lg := &localGame{
		g:      g,
		myTeam: myTeam,
		myRole: *roleFlag,
		botR:   bot.NewRandom(rand.New(rand.NewSource(r.Int63()))),
		spy:    &gameio.Spymaster{In: os.Stdin, Out: os.Stdout},
		op:     &gameio.Operative{In: os.Stdin, Out: os.Stdout},
	}
	lg.play()
}

type localGame struct {
	g      *game.Game
	myTeam katmannames.Team
	myRole string

	botR *bot.Random
	spy  *gameio.Spymaster
	op   *gameio.Operative
}

func (lg *localGame) play() {
	for {
		if over, winner, reason := lg.g.Over(); over {
			lg.finish(winner, reason)
			return
		}
		if lg.g.AwaitingClue() {
			lg.clueTurn()
		} else {
			lg.guessTurn()
		}
	}
}

func (lg *localGame) clueTurn() {
	team := lg.g.ActiveTeam()
	var (
		clue katmannames.Clue
		err  error
	)
	if team == lg.myTeam && lg.myRole == "spymaster" {
		clue, err = lg.spy.GiveClue(lg.g.Cards(), team)
	} else {
		clue, err = lg.botR.GiveClue(lg.g.Cards(), team)
	}
	if err != nil {
		fmt.Printf("ipucu alınamadı: %v\n", err)
		return
	}
	if err := lg.g.GiveClue(team, clue); err != nil {
		fmt.Printf("ipucu reddedildi: %v\n", err)
		return
	}
	fmt.Printf("\n[%s] ipucu: %s\n", side(team), clue)
}

func (lg *localGame) guessTurn() {
	team := lg.g.ActiveTeam()
	clue := lg.g.CurrentClue()

	views := guesserViews(lg.g.Cards())
	var (
		cardID int
		err    error
	)
	if team == lg.myTeam && lg.myRole == "guesser" {
		cardID, err = lg.op.ChooseCard(views, *clue, team)
	} else {
		cardID, err = lg.botR.ChooseCard(views, *clue, team)
	}
	if err != nil {
		fmt.Printf("tahmin alınamadı: %v\n", err)
		return
	}

	if cardID == katmannames.PassCard {
		if err := lg.g.Pass(team); err != nil {
			fmt.Printf("pas reddedildi: %v\n", err)
		}
		fmt.Printf("[%s] pas geçti\n", side(team))
		return
	}

	word := lg.g.Cards()[cardID].Word
	if err := lg.g.Reveal(team, cardID); err != nil {
		fmt.Printf("tahmin reddedildi: %v\n", err)
		return
	}
	revealed := lg.g.Cards()[cardID]
	fmt.Printf("[%s] %q kartını açtı (%s)\n", side(team), word, revealed.Type)
}

func (lg *localGame) finish(winner katmannames.Team, reason katmannames.EndReason) {
	fmt.Println("\nOyun bitti! Son tahta:")
	gameio.PrintBoard(os.Stdout, lg.g.Cards())
	switch reason {
	case katmannames.ReasonAssassin:
		fmt.Printf("%s takımı kazandı: rakip suikastçıya bastı.\n", side(winner))
	default:
		fmt.Printf("%s takımı kazandı: bütün kartlarını buldu.\n", side(winner))
	}
}

func side(t katmannames.Team) string {
	if t == katmannames.DarkTeam {
		return "Koyu"
	}
	return "Açık"
}

// guesserViews hides the affiliations of unrevealed cards, the way a guesser
// sees the board.
func guesserViews(cards []katmannames.Card) []katmannames.CardView {
	views := make([]katmannames.CardView, len(cards))
	for i, c := range cards {
		views[i] = katmannames.CardView{
			ID:       c.ID,
			Word:     c.Word,
			Revealed: c.Revealed,
		}
		if c.Revealed {
			views[i].Type = c.Type
		}
	}
	return views
}
