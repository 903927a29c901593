package web

import (
	"math/rand"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	katmannames "github.com/katmannames/katmannames"
	"github.com/katmannames/katmannames/client"
	"github.com/katmannames/katmannames/sqldb"
)

// This drives the whole stack end-to-end through real sockets: HTTP API,
// websocket protocol, rooms, game play and the results archive.

type testEnv struct {
	ts      *httptest.Server
	addr    string
	results *sqldb.DB
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	results, err := sqldb.New(filepath.Join(dir, "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { results.Close() })

	srv, err := New(Config{
		Source:      rand.NewSource(0),
		Words:       katmannames.Words,
		Results:     results,
		KeyDir:      dir,
		GracePeriod: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:      ts,
		addr:    strings.TrimPrefix(ts.URL, "http://"),
		results: results,
	}
}

// player is one connected test client with its pushed messages funneled into
// channels.
type player struct {
	t  *testing.T
	c  *client.Client
	ws *client.WSClient

	id       katmannames.PlayerID
	roomCode katmannames.RoomCode

	joined   chan katmannames.PlayerID
	states   chan *katmannames.GameView
	errs     chan string
	warnings chan string
}

func (env *testEnv) dial(t *testing.T) *player {
	t.Helper()
	c, err := client.New("http", env.addr)
	require.NoError(t, err)

	p := &player{
		t:        t,
		c:        c,
		joined:   make(chan katmannames.PlayerID, 10),
		states:   make(chan *katmannames.GameView, 100),
		errs:     make(chan string, 10),
		warnings: make(chan string, 10),
	}
	ws, err := c.DialWS(client.WSHooks{
		OnJoined: func(code katmannames.RoomCode, id katmannames.PlayerID) {
			p.roomCode = code
			p.joined <- id
		},
		OnState:   func(view *katmannames.GameView) { p.states <- view },
		OnError:   func(msg string) { p.errs <- msg },
		OnWarning: func(msg string) { p.warnings <- msg },
	})
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	p.ws = ws
	return p
}

func (p *player) waitJoined() {
	p.t.Helper()
	select {
	case id := <-p.joined:
		p.id = id
	case <-time.After(5 * time.Second):
		p.t.Fatal("timed out waiting to be seated")
	}
}

// state drains pushed views until one satisfies pred.
func (p *player) state(pred func(*katmannames.GameView) bool) *katmannames.GameView {
	p.t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case view := <-p.states:
			if pred(view) {
				return view
			}
		case <-deadline:
			p.t.Fatal("timed out waiting for a matching view")
			return nil
		}
	}
}

func (p *player) wantError() string {
	p.t.Helper()
	select {
	case msg := <-p.errs:
		return msg
	case <-time.After(5 * time.Second):
		p.t.Fatal("timed out waiting for an error")
		return ""
	}
}

func (p *player) send(kind string, payload interface{}) {
	p.t.Helper()
	require.NoError(p.t, p.ws.Send(kind, payload))
}

type seat struct {
	team katmannames.Team
	role katmannames.Role
}

func TestBasicallyEverything(t *testing.T) {
	// One sprawling test that walks the whole flow, from room creation to the
	// archived result, because the pieces only mean anything together.
	env := setup(t)

	owner := env.dial(t)
	require.NoError(t, owner.ws.CreateRoom("Bora"))
	owner.waitJoined()
	require.NotEmpty(t, owner.id)
	require.Len(t, string(owner.roomCode), katmannames.RoomCodeLength)

	owner.state(func(v *katmannames.GameView) bool {
		return v.Phase == katmannames.PhaseLobby && len(v.Players) == 1
	})

	// Three more players join by code.
	var guests []*player
	for _, name := range []string{"Deniz", "Ece", "Can"} {
		g := env.dial(t)
		require.NoError(t, g.ws.JoinRoom(string(owner.roomCode), name, ""))
		g.waitJoined()
		guests = append(guests, g)
	}
	owner.state(func(v *katmannames.GameView) bool { return len(v.Players) == 4 })

	// The lobby shows up on the public list.
	rooms, err := owner.c.Rooms()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, owner.roomCode, rooms[0].Code)
	require.Equal(t, 4, rooms[0].PlayerCount)

	// A second create/join while already seated is refused.
	owner.send("join_room", map[string]string{"roomCode": string(owner.roomCode), "username": "X"})
	require.Contains(t, owner.wantError(), "already in a room")

	// Seat everyone.
	all := []*player{owner, guests[0], guests[1], guests[2]}
	for i, st := range []seat{
		{katmannames.DarkTeam, katmannames.SpymasterRole},
		{katmannames.DarkTeam, katmannames.GuesserRole},
		{katmannames.LightTeam, katmannames.SpymasterRole},
		{katmannames.LightTeam, katmannames.GuesserRole},
	} {
		all[i].send("select_team", map[string]string{"team": string(st.team)})
		all[i].send("select_role", map[string]string{"role": string(st.role)})
	}
	owner.send("update_team_name", map[string]string{"team": "dark", "name": "Kurtlar"})

	// Only the owner can start.
	guests[0].send("start_game", struct{}{})
	require.NotEmpty(t, guests[0].wantError())

	owner.send("start_game", struct{}{})
	spymasterView := owner.state(func(v *katmannames.GameView) bool {
		return v.Phase == katmannames.PhasePlaying
	})
	require.Equal(t, "Kurtlar", spymasterView.DarkTeamName)
	require.Len(t, spymasterView.Cards, katmannames.Size)
	for _, c := range spymasterView.Cards {
		require.NotEmpty(t, c.Type, "spymasters see every card")
	}

	// Guessers see a blank board.
	guesserView := guests[0].state(func(v *katmannames.GameView) bool {
		return v.Phase == katmannames.PhasePlaying
	})
	for _, c := range guesserView.Cards {
		require.Empty(t, c.Type)
	}

	// Identify the acting pair, regardless of which team was dealt first.
	team := spymasterView.CurrentTeam
	spy, guesser := owner, guests[0]
	fullView := spymasterView
	if team == katmannames.LightTeam {
		spy, guesser = guests[1], guests[2]
		fullView = spy.state(func(v *katmannames.GameView) bool {
			return v.Phase == katmannames.PhasePlaying
		})
	}

	// Give a clue and reveal one own-team card, picked from the spymaster's
	// view so it can't end the turn.
	spy.send("give_clue", map[string]interface{}{"word": "tahmin", "count": 0})
	guesser.state(func(v *katmannames.GameView) bool {
		return v.CurrentClue != nil && v.CurrentClue.Word == "tahmin"
	})

	var ownCard, assassin int
	for _, c := range fullView.Cards {
		switch c.Type {
		case team.CardType():
			ownCard = c.ID
		case katmannames.AssassinCard:
			assassin = c.ID
		}
	}
	guesser.send("reveal_card", map[string]int{"cardId": ownCard})
	guesser.state(func(v *katmannames.GameView) bool {
		return len(v.RevealHistory) == 1 && v.Cards[ownCard].Revealed
	})

	// Revealing out of turn is rejected without disturbing the game.
	other := guests[2]
	if team == katmannames.LightTeam {
		other = guests[0]
	}
	other.send("reveal_card", map[string]int{"cardId": assassin})
	require.NotEmpty(t, other.wantError())

	// Step on the assassin to end it.
	guesser.send("reveal_card", map[string]int{"cardId": assassin})
	endView := guesser.state(func(v *katmannames.GameView) bool {
		return v.Phase == katmannames.PhaseEnded
	})
	require.Equal(t, team.Opponent(), endView.Winner)
	require.Equal(t, katmannames.ReasonAssassin, endView.EndReason)
	for _, c := range endView.Cards {
		require.NotEmpty(t, c.Type, "the ended board is fully revealed")
	}

	// The finished game lands in the archive.
	require.Eventually(t, func() bool {
		results, err := owner.c.Results(10)
		return err == nil && len(results) == 1
	}, 5*time.Second, 20*time.Millisecond)
	results, err := owner.c.Results(10)
	require.NoError(t, err)
	require.Equal(t, owner.roomCode, results[0].RoomCode)
	require.Equal(t, katmannames.ReasonAssassin, results[0].Reason)
}

func TestReconnectWithIdentityCookie(t *testing.T) {
	env := setup(t)

	owner := env.dial(t)
	require.NoError(t, owner.ws.CreateRoom("Bora"))
	owner.waitJoined()

	guest := env.dial(t)
	require.NoError(t, guest.ws.JoinRoom(string(owner.roomCode), "Deniz", ""))
	guest.waitJoined()
	firstID := guest.id

	// Persist the seat, drop the socket, come back with only the cookie.
	require.NoError(t, guest.c.SaveIdentity(guest.roomCode, guest.id))
	require.NoError(t, guest.ws.Close())

	ws, err := guest.c.DialWS(client.WSHooks{
		OnJoined: func(_ katmannames.RoomCode, id katmannames.PlayerID) { guest.joined <- id },
		OnState:  func(view *katmannames.GameView) { guest.states <- view },
	})
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	require.NoError(t, ws.JoinRoom(string(owner.roomCode), "Deniz", ""))
	guest.waitJoined()

	require.Equal(t, firstID, guest.id, "the cookie should reclaim the same seat")
	view := guest.state(func(v *katmannames.GameView) bool { return true })
	require.Len(t, view.Players, 2, "no duplicate seat after reconnecting")
}

func TestJoinUnknownRoom(t *testing.T) {
	env := setup(t)

	p := env.dial(t)
	require.NoError(t, p.ws.JoinRoom("NOPE99", "Deniz", ""))
	require.Contains(t, p.wantError(), "room not found")
}
