package room

import (
	katmannames "github.com/katmannames/katmannames"
)

// viewForLocked is the pure projection from full room state plus viewer
// identity to the client-visible view. Spymasters see every card's type;
// oracles see their granted cards; everyone sees revealed cards; once the
// game ends the whole board and all secret roles are on the table.
func (rm *Room) viewForLocked(viewer *katmannames.Player) *katmannames.GameView {
	v := &katmannames.GameView{
		Phase:         rm.phase,
		DarkTeamName:  rm.darkName,
		LightTeamName: rm.lightName,
		TimedMode:     rm.timedMode,
		SpymasterTime: rm.spymasterTime,
		GuesserTime:   rm.guesserTime,
		ChaosMode:     rm.chaosMode,
		RevealHistory: []katmannames.RevealEntry{},
		Cards:         []katmannames.CardView{},
	}

	for _, p := range rm.players {
		v.Players = append(v.Players, rm.playerViewLocked(p, viewer))
	}

	if rm.game == nil {
		return v
	}

	ended := rm.phase == katmannames.PhaseEnded
	for _, c := range rm.game.Cards() {
		cv := katmannames.CardView{ID: c.ID, Word: c.Word, Revealed: c.Revealed}
		if ended {
			cv.Type = c.Type
			cv.Revealed = true
		} else if c.Revealed || rm.cardKnownLocked(viewer, c.ID) {
			cv.Type = c.Type
		}
		v.Cards = append(v.Cards, cv)
	}

	v.CurrentTeam = rm.game.ActiveTeam()
	v.CurrentClue = rm.game.CurrentClue()
	v.DarkCardsRemaining = rm.game.Remaining(katmannames.DarkTeam)
	v.LightCardsRemaining = rm.game.Remaining(katmannames.LightTeam)
	v.RevealHistory = rm.game.History()

	if !rm.turnStartedAt.IsZero() {
		ts := rm.turnStartedAt
		v.TurnStartedAt = &ts
	}

	if ended {
		v.CurrentTeam = katmannames.NoTeam
		_, v.Winner, v.EndReason = rm.game.Over()
	}
	return v
}

func (rm *Room) playerViewLocked(p, viewer *katmannames.Player) katmannames.PlayerView {
	pv := katmannames.PlayerView{
		ID:          p.ID,
		Username:    p.Username,
		Role:        p.Role,
		IsBot:       p.IsBot,
		IsRoomOwner: p.IsRoomOwner,
	}
	if p.Team != katmannames.NoTeam {
		team := p.Team
		pv.Team = &team
	}
	// Hidden roles stay hidden from everyone else until the game is over.
	if p.ID == viewer.ID || rm.phase == katmannames.PhaseEnded {
		pv.SecretRole = p.SecretRole
	}
	return pv
}

// cardKnownLocked reports whether the viewer knows an unrevealed card's type:
// spymasters know the whole board, oracles know their granted cards.
func (rm *Room) cardKnownLocked(viewer *katmannames.Player, cardID int) bool {
	if viewer.Role == katmannames.SpymasterRole && viewer.Team != katmannames.NoTeam {
		return true
	}
	if rm.chaos == nil || viewer.SecretRole != katmannames.OracleRole {
		return false
	}
	for _, id := range rm.chaos.OracleCards[viewer.Team] {
		if id == cardID {
			return true
		}
	}
	return false
}

// ViewFor projects the room for one seated player. Used to serve the initial
// state on (re)connect.
func (rm *Room) ViewFor(id katmannames.PlayerID) (*katmannames.GameView, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	p, err := rm.playerLocked(id)
	if err != nil {
		return nil, err
	}
	return rm.viewForLocked(p), nil
}
