package room

import (
	"errors"
	"time"

	"go.uber.org/zap"

	katmannames "github.com/katmannames/katmannames"
)

// driveBots schedules one bot action if the acting seat belongs to a bot.
// Each successful intent re-arms the scheduler, so a game between bots plays
// itself out. The decision is made when the timer fires, not when it is
// armed, so stale schedules just find nothing to do.
func (rm *Room) driveBots() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.phase != katmannames.PhasePlaying || rm.botPending {
		return
	}
	if rm.actingBotLocked() == nil {
		return
	}

	rm.botPending = true
	delay := rm.botDelay
	time.AfterFunc(delay, rm.stepBot)
}

// actingBotLocked returns the bot that should act now, if any: the acting
// team's bot spymaster while a clue is owed, otherwise an eligible bot
// guesser on the acting team.
func (rm *Room) actingBotLocked() *katmannames.Player {
	if rm.game == nil {
		return nil
	}
	team := rm.game.ActiveTeam()
	for _, p := range rm.players {
		if !p.IsBot || p.Team != team {
			continue
		}
		if rm.game.AwaitingClue() {
			if p.Role == katmannames.SpymasterRole {
				return p
			}
			continue
		}
		if _, err := rm.revealerLocked(p.ID); err == nil {
			return p
		}
	}
	return nil
}

func (rm *Room) stepBot() {
	rm.mu.Lock()
	rm.botPending = false
	if rm.phase != katmannames.PhasePlaying {
		rm.mu.Unlock()
		return
	}
	p := rm.actingBotLocked()
	if p == nil {
		rm.mu.Unlock()
		return
	}

	id, team := p.ID, p.Team
	awaiting := rm.game.AwaitingClue()
	cards := rm.game.Cards()
	var clue katmannames.Clue
	if cur := rm.game.CurrentClue(); cur != nil {
		clue = *cur
	}
	rm.mu.Unlock()

	var err error
	if awaiting {
		err = rm.botGiveClue(id, team, cards)
	} else {
		err = rm.botGuess(id, team, cards, clue)
	}
	// A human may have acted while the bot was thinking; losing that race is
	// fine, the next broadcast re-arms us.
	if err != nil && !errors.Is(err, katmannames.ErrNotYourTurn) {
		zap.L().Debug("bot move rejected",
			zap.String("room", string(rm.code)),
			zap.String("player", string(id)),
			zap.Error(err))
	}
}

func (rm *Room) botGiveClue(id katmannames.PlayerID, team katmannames.Team, cards []katmannames.Card) error {
	clue, err := rm.spymasterAI.GiveClue(cards, team)
	if err != nil {
		return err
	}
	return rm.GiveClue(id, clue.Word, clue.Count)
}

func (rm *Room) botGuess(id katmannames.PlayerID, team katmannames.Team, cards []katmannames.Card, clue katmannames.Clue) error {
	// Bots get the same filtered board a human guesser would see.
	views := make([]katmannames.CardView, 0, len(cards))
	for _, c := range cards {
		cv := katmannames.CardView{ID: c.ID, Word: c.Word, Revealed: c.Revealed}
		if c.Revealed {
			cv.Type = c.Type
		}
		views = append(views, cv)
	}

	cardID, err := rm.operativeAI.ChooseCard(views, clue, team)
	if err != nil {
		return err
	}
	if cardID == katmannames.PassCard {
		return rm.PassTurn(id)
	}
	return rm.RevealCard(id, cardID)
}
