// Package room implements the per-room session authority: the roster, the
// board, the turn machine, chaos roles, and the registry that routes intents
// to rooms by code. All mutation of one room is serialized behind its mutex;
// views for broadcast are computed after the mutation commits.
package room

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	katmannames "github.com/katmannames/katmannames"
	"github.com/katmannames/katmannames/boardgen"
	"github.com/katmannames/katmannames/chaos"
	"github.com/katmannames/katmannames/game"
)

const (
	// DefaultMaxPlayers caps the roster, spectators included.
	DefaultMaxPlayers = 16
	// DefaultBotDelay is how long a bot "thinks" before acting.
	DefaultBotDelay = 1500 * time.Millisecond

	defaultDarkName  = "Katman Koyu"
	defaultLightName = "Katman Açık"
)

// Notifier delivers outbound messages to connected players. Implementations
// must not block; the hub buffers per connection and drops slow ones.
type Notifier interface {
	// GameState pushes a freshly projected view to one player.
	GameState(code katmannames.RoomCode, id katmannames.PlayerID, view *katmannames.GameView)
	// Warning pushes an advisory message to everyone in the room.
	Warning(code katmannames.RoomCode, message string)
}

// Config wires a Room's collaborators.
type Config struct {
	Code     katmannames.RoomCode
	Rand     *rand.Rand
	Words    []string
	Notifier Notifier
	// Store archives finished games. Optional.
	Store katmannames.GameStore

	Spymaster katmannames.SpymasterAI
	Operative katmannames.OperativeAI

	BotDelay   time.Duration
	MaxPlayers int
}

// Room is one isolated game session.
type Room struct {
	code katmannames.RoomCode

	mu      sync.Mutex
	phase   katmannames.Phase
	players []*katmannames.Player

	// deliverMu keeps view deliveries in commit order. It is taken while mu
	// is still held and released after the notifier calls, so two racing
	// intents can't hand their projections to the hub out of order.
	deliverMu sync.Mutex

	darkName, lightName string
	timedMode           bool
	spymasterTime       int
	guesserTime         int
	chaosMode           bool

	game          *game.Game
	chaos         *katmannames.ChaosAssignment
	turnStartedAt time.Time
	startedAt     time.Time

	emptySince time.Time
	// pendingWarning is broadcast room-wide with the next delivery.
	pendingWarning string
	botPending     bool

	r        *rand.Rand
	words    []string
	notifier Notifier
	store    katmannames.GameStore

	spymasterAI katmannames.SpymasterAI
	operativeAI katmannames.OperativeAI
	botDelay    time.Duration
	maxPlayers  int
}

// New creates a room with its owner already seated.
func New(cfg Config, ownerUsername string) (*Room, *katmannames.Player) {
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = DefaultMaxPlayers
	}

	owner := &katmannames.Player{
		ID:          katmannames.NewPlayerID(),
		Username:    ownerUsername,
		Role:        katmannames.GuesserRole,
		IsRoomOwner: true,
	}

	rm := &Room{
		code:          cfg.Code,
		phase:         katmannames.PhaseLobby,
		players:       []*katmannames.Player{owner},
		darkName:      defaultDarkName,
		lightName:     defaultLightName,
		spymasterTime: 120,
		guesserTime:   180,
		r:             cfg.Rand,
		words:         cfg.Words,
		notifier:      cfg.Notifier,
		store:         cfg.Store,
		spymasterAI:   cfg.Spymaster,
		operativeAI:   cfg.Operative,
		botDelay:      cfg.BotDelay,
		maxPlayers:    cfg.MaxPlayers,
	}
	return rm, owner
}

// Code returns the room's code.
func (rm *Room) Code() katmannames.RoomCode {
	return rm.code
}

type note struct {
	id   katmannames.PlayerID
	view *katmannames.GameView
}

// update serializes one intent: mutate under the lock, project views after
// the mutation commits, deliver outside the lock in commit order.
func (rm *Room) update(fn func() error) error {
	rm.mu.Lock()
	err := fn()
	if err != nil {
		rm.mu.Unlock()
		return err
	}
	notes, warning := rm.notesLocked()
	rm.deliverMu.Lock()
	rm.mu.Unlock()

	rm.deliver(notes, warning)
	rm.deliverMu.Unlock()
	rm.driveBots()
	return nil
}

// notesLocked projects a per-recipient view for every connected player, plus
// any pending room-wide warning.
func (rm *Room) notesLocked() ([]note, string) {
	warning := rm.pendingWarning
	rm.pendingWarning = ""

	var notes []note
	for _, p := range rm.players {
		if p.IsBot {
			continue
		}
		notes = append(notes, note{id: p.ID, view: rm.viewForLocked(p)})
	}
	return notes, warning
}

func (rm *Room) deliver(notes []note, warning string) {
	if rm.notifier == nil {
		return
	}
	if warning != "" {
		rm.notifier.Warning(rm.code, warning)
	}
	for _, n := range notes {
		rm.notifier.GameState(rm.code, n.id, n.view)
	}
}

func (rm *Room) playerLocked(id katmannames.PlayerID) (*katmannames.Player, error) {
	for _, p := range rm.players {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, katmannames.ErrPlayerNotFound
}

func (rm *Room) ownerLocked(id katmannames.PlayerID) (*katmannames.Player, error) {
	p, err := rm.playerLocked(id)
	if err != nil {
		return nil, err
	}
	if !p.IsRoomOwner {
		return nil, fmt.Errorf("%w: only the room owner can do that", katmannames.ErrNotYourRole)
	}
	return p, nil
}

// Join seats a player. A player rejoining with their existing ID is
// reattached instead of duplicated, so reconnects keep their seat. While a
// game is running, new players may only join as spectators.
func (rm *Room) Join(username string, existing katmannames.PlayerID) (*katmannames.Player, error) {
	var joined *katmannames.Player
	err := rm.update(func() error {
		if existing != "" {
			if p, err := rm.playerLocked(existing); err == nil {
				joined = p
				return nil
			}
		}

		if len(rm.players) >= rm.maxPlayers {
			return katmannames.ErrRoomFull
		}

		p := &katmannames.Player{
			ID:       katmannames.NewPlayerID(),
			Username: username,
			Role:     katmannames.GuesserRole,
		}
		rm.players = append(rm.players, p)
		rm.emptySince = time.Time{}
		joined = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// Leave removes a player. If the owner leaves, ownership moves to the
// earliest-joined remaining human, falling back to a bot so the room is never
// ownerless while occupied.
func (rm *Room) Leave(id katmannames.PlayerID) error {
	return rm.update(func() error {
		p, err := rm.playerLocked(id)
		if err != nil {
			return err
		}

		wasOwner := p.IsRoomOwner
		rm.removeLocked(id)

		if wasOwner {
			rm.transferOwnershipLocked()
		}
		if rm.occupiedLocked() == 0 {
			rm.emptySince = time.Now()
		}
		return nil
	})
}

func (rm *Room) removeLocked(id katmannames.PlayerID) {
	for i, p := range rm.players {
		if p.ID == id {
			rm.players = append(rm.players[:i], rm.players[i+1:]...)
			return
		}
	}
}

func (rm *Room) transferOwnershipLocked() {
	var firstBot *katmannames.Player
	for _, p := range rm.players {
		if !p.IsBot {
			p.IsRoomOwner = true
			return
		}
		if firstBot == nil {
			firstBot = p
		}
	}
	if firstBot != nil {
		firstBot.IsRoomOwner = true
	}
}

// occupiedLocked counts seated humans. A room populated only by bots is as
// good as empty for lifecycle purposes.
func (rm *Room) occupiedLocked() int {
	var n int
	for _, p := range rm.players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// EmptySince reports when the last human left, or the zero time while the
// room is occupied. The registry's janitor uses it.
func (rm *Room) EmptySince() time.Time {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.occupiedLocked() > 0 {
		return time.Time{}
	}
	return rm.emptySince
}

// SelectTeam moves a player to a team. Lobby only.
func (rm *Room) SelectTeam(id katmannames.PlayerID, team katmannames.Team) error {
	return rm.update(func() error {
		if rm.phase != katmannames.PhaseLobby {
			return katmannames.ErrInvalidPhase
		}
		if team != katmannames.DarkTeam && team != katmannames.LightTeam {
			return fmt.Errorf("unknown team %q", team)
		}
		p, err := rm.playerLocked(id)
		if err != nil {
			return err
		}
		p.Team = team
		return nil
	})
}

// SelectRole flips a player between spymaster and guesser. Lobby only.
func (rm *Room) SelectRole(id katmannames.PlayerID, role katmannames.Role) error {
	return rm.update(func() error {
		if rm.phase != katmannames.PhaseLobby {
			return katmannames.ErrInvalidPhase
		}
		if role != katmannames.SpymasterRole && role != katmannames.GuesserRole {
			return fmt.Errorf("unknown role %q", role)
		}
		p, err := rm.playerLocked(id)
		if err != nil {
			return err
		}
		p.Role = role
		return nil
	})
}

// UpdateTeamName renames a team. Lobby only.
func (rm *Room) UpdateTeamName(id katmannames.PlayerID, team katmannames.Team, name string) error {
	return rm.update(func() error {
		if rm.phase != katmannames.PhaseLobby {
			return katmannames.ErrInvalidPhase
		}
		if _, err := rm.playerLocked(id); err != nil {
			return err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("team name can't be empty")
		}
		switch team {
		case katmannames.DarkTeam:
			rm.darkName = name
		case katmannames.LightTeam:
			rm.lightName = name
		default:
			return fmt.Errorf("unknown team %q", team)
		}
		return nil
	})
}

// UpdateTimerSettings stores the advisory timer settings. Owner-only, lobby
// only. Times are seconds, 30 through 600 in steps of 30.
func (rm *Room) UpdateTimerSettings(id katmannames.PlayerID, timed bool, spymasterTime, guesserTime int) error {
	return rm.update(func() error {
		if rm.phase != katmannames.PhaseLobby {
			return katmannames.ErrInvalidPhase
		}
		if _, err := rm.ownerLocked(id); err != nil {
			return err
		}
		for _, v := range []int{spymasterTime, guesserTime} {
			if v < 30 || v > 600 || v%30 != 0 {
				return fmt.Errorf("timer value %d out of range", v)
			}
		}
		rm.timedMode = timed
		rm.spymasterTime = spymasterTime
		rm.guesserTime = guesserTime
		return nil
	})
}

// UpdateChaosMode toggles chaos mode. Owner-only, lobby only.
func (rm *Room) UpdateChaosMode(id katmannames.PlayerID, enabled bool) error {
	return rm.update(func() error {
		if rm.phase != katmannames.PhaseLobby {
			return katmannames.ErrInvalidPhase
		}
		if _, err := rm.ownerLocked(id); err != nil {
			return err
		}
		rm.chaosMode = enabled
		return nil
	})
}

var botNames = []string{
	"Kemal", "Zeynep", "Deniz", "Elif", "Baran", "Asli", "Mert", "Selin",
	"Emre", "Derya", "Onur", "Ipek",
}

// AddBot seats a synthetic player on the given team. Owner-only, lobby only.
func (rm *Room) AddBot(id katmannames.PlayerID, team katmannames.Team, role katmannames.Role) (*katmannames.Player, error) {
	var added *katmannames.Player
	err := rm.update(func() error {
		if rm.phase != katmannames.PhaseLobby {
			return katmannames.ErrInvalidPhase
		}
		if _, err := rm.ownerLocked(id); err != nil {
			return err
		}
		if team != katmannames.DarkTeam && team != katmannames.LightTeam {
			return fmt.Errorf("unknown team %q", team)
		}
		if role != katmannames.SpymasterRole && role != katmannames.GuesserRole {
			return fmt.Errorf("unknown role %q", role)
		}
		if len(rm.players) >= rm.maxPlayers {
			return katmannames.ErrRoomFull
		}

		added = &katmannames.Player{
			ID:       katmannames.NewPlayerID(),
			Username: "Bot " + botNames[rm.r.Intn(len(botNames))],
			Team:     team,
			Role:     role,
			IsBot:    true,
		}
		rm.players = append(rm.players, added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// RemoveBot unseats a bot. Owner-only, lobby only.
func (rm *Room) RemoveBot(id katmannames.PlayerID, botID katmannames.PlayerID) error {
	return rm.update(func() error {
		if rm.phase != katmannames.PhaseLobby {
			return katmannames.ErrInvalidPhase
		}
		if _, err := rm.ownerLocked(id); err != nil {
			return err
		}
		bot, err := rm.playerLocked(botID)
		if err != nil {
			return err
		}
		if !bot.IsBot {
			return fmt.Errorf("%w: %q is not a bot", katmannames.ErrPlayerNotFound, botID)
		}
		rm.removeLocked(botID)
		return nil
	})
}

// StartGame deals a board and moves the room to the playing phase.
// Owner-only. Both teams need at least two members including a spymaster. If
// chaos roles can't be dealt the game still starts, without chaos and with a
// room-wide warning.
func (rm *Room) StartGame(id katmannames.PlayerID) error {
	return rm.update(func() error {
		if rm.phase == katmannames.PhasePlaying {
			return katmannames.ErrGameInProgress
		}
		if rm.phase != katmannames.PhaseLobby {
			return katmannames.ErrInvalidPhase
		}
		if _, err := rm.ownerLocked(id); err != nil {
			return err
		}
		if err := rm.checkStartRequirementsLocked(); err != nil {
			return err
		}

		cards, starter, err := boardgen.New(rm.words, rm.r)
		if err != nil {
			return err
		}
		g, err := game.New(cards, starter)
		if err != nil {
			return fmt.Errorf("failed to set up board: %w", err)
		}

		if rm.chaosMode {
			ca, err := chaos.Assign(rm.players, cards, rm.r)
			if err != nil {
				// Degrade to a normal game rather than refusing to start,
				// but tell the room about it.
				zap.L().Warn("chaos assignment failed, starting without chaos",
					zap.String("room", string(rm.code)), zap.Error(err))
				rm.chaosMode = false
				rm.pendingWarning = "Kaos rolleri dağıtılamadı, oyun normal modda başladı."
			} else {
				rm.chaos = ca
			}
		}
		for _, p := range rm.players {
			p.SecretRole = rm.chaos.SecretRoleOf(p.ID)
		}

		rm.game = g
		rm.phase = katmannames.PhasePlaying
		rm.startedAt = time.Now()
		rm.turnStartedAt = rm.startedAt

		zap.L().Info("game started",
			zap.String("room", string(rm.code)),
			zap.String("startingTeam", string(starter)),
			zap.Bool("chaos", rm.chaos != nil))
		return nil
	})
}

func (rm *Room) checkStartRequirementsLocked() error {
	counts := make(map[katmannames.Team]int)
	spymasters := make(map[katmannames.Team]int)
	for _, p := range rm.players {
		counts[p.Team]++
		if p.Role == katmannames.SpymasterRole {
			spymasters[p.Team]++
		}
	}
	for _, team := range []katmannames.Team{katmannames.DarkTeam, katmannames.LightTeam} {
		if counts[team] < 1 {
			return fmt.Errorf("%w: %s team is empty", katmannames.ErrStartRequirementsNotMet, team)
		}
		if spymasters[team] < 1 {
			return fmt.Errorf("%w: %s team needs a spymaster", katmannames.ErrStartRequirementsNotMet, team)
		}
	}
	return nil
}

// RestartGame returns the room to the lobby, keeping the human roster, teams
// and settings. Bots are unseated. Owner-only.
func (rm *Room) RestartGame(id katmannames.PlayerID) error {
	return rm.update(func() error {
		if rm.phase == katmannames.PhaseLobby {
			return katmannames.ErrInvalidPhase
		}
		if _, err := rm.ownerLocked(id); err != nil {
			return err
		}

		var kept []*katmannames.Player
		for _, p := range rm.players {
			if p.IsBot {
				continue
			}
			p.SecretRole = katmannames.NoSecretRole
			kept = append(kept, p)
		}
		rm.players = kept
		rm.game = nil
		rm.chaos = nil
		rm.phase = katmannames.PhaseLobby
		rm.turnStartedAt = time.Time{}
		return nil
	})
}

// GiveClue submits a clue on behalf of the player, who must be their team's
// spymaster.
func (rm *Room) GiveClue(id katmannames.PlayerID, word string, count int) error {
	return rm.update(func() error {
		if rm.phase != katmannames.PhasePlaying {
			return katmannames.ErrGameNotActive
		}
		p, err := rm.playerLocked(id)
		if err != nil {
			return err
		}
		if p.Role != katmannames.SpymasterRole || p.Team == katmannames.NoTeam {
			return katmannames.ErrNotYourRole
		}
		if err := rm.game.GiveClue(p.Team, katmannames.Clue{Word: word, Count: count, GivenBy: id}); err != nil {
			return err
		}
		rm.turnStartedAt = time.Now()
		return nil
	})
}

// RevealCard flips a card on behalf of the player, who must be a guesser on
// the acting team. Chaos dodos and double agents may not reveal.
func (rm *Room) RevealCard(id katmannames.PlayerID, cardID int) error {
	return rm.update(func() error {
		if rm.phase != katmannames.PhasePlaying {
			return katmannames.ErrGameNotActive
		}
		p, err := rm.revealerLocked(id)
		if err != nil {
			return err
		}
		if err := rm.game.Reveal(p.Team, cardID); err != nil {
			return err
		}
		rm.afterTurnActionLocked()
		return nil
	})
}

// PassTurn gives up the rest of the acting team's guesses. Any guesser on the
// acting team may pass, chaos-restricted ones included.
func (rm *Room) PassTurn(id katmannames.PlayerID) error {
	return rm.update(func() error {
		if rm.phase != katmannames.PhasePlaying {
			return katmannames.ErrGameNotActive
		}
		p, err := rm.guesserLocked(id)
		if err != nil {
			return err
		}
		if err := rm.game.Pass(p.Team); err != nil {
			return err
		}
		rm.afterTurnActionLocked()
		return nil
	})
}

// guesserLocked checks that the player is a seated guesser.
func (rm *Room) guesserLocked(id katmannames.PlayerID) (*katmannames.Player, error) {
	p, err := rm.playerLocked(id)
	if err != nil {
		return nil, err
	}
	if p.Team == katmannames.NoTeam || p.Role != katmannames.GuesserRole {
		return nil, katmannames.ErrNotYourRole
	}
	return p, nil
}

// revealerLocked additionally rejects chaos dodos and double agents, who
// advise their team but may not flip cards themselves.
func (rm *Room) revealerLocked(id katmannames.PlayerID) (*katmannames.Player, error) {
	p, err := rm.guesserLocked(id)
	if err != nil {
		return nil, err
	}
	switch p.SecretRole {
	case katmannames.DodoRole, katmannames.DoubleAgentRole:
		return nil, fmt.Errorf("%w: your hidden role can't reveal cards", katmannames.ErrNotYourRole)
	}
	return p, nil
}

func (rm *Room) afterTurnActionLocked() {
	rm.turnStartedAt = time.Now()
	over, winner, reason := rm.game.Over()
	if !over {
		return
	}

	rm.phase = katmannames.PhaseEnded
	zap.L().Info("game ended",
		zap.String("room", string(rm.code)),
		zap.String("winner", string(winner)),
		zap.String("reason", string(reason)))

	if rm.store == nil {
		return
	}
	result := &katmannames.GameResult{
		RoomCode:  rm.code,
		Winner:    winner,
		Reason:    reason,
		Reveals:   len(rm.game.History()),
		ChaosMode: rm.chaos != nil,
		StartedAt: rm.startedAt,
		EndedAt:   time.Now(),
	}
	go func() {
		if err := rm.store.RecordResult(result); err != nil {
			zap.L().Error("failed to archive game result",
				zap.String("room", string(result.RoomCode)), zap.Error(err))
		}
	}()
}

// Phase returns the room's current phase.
func (rm *Room) Phase() katmannames.Phase {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.phase
}

// Players returns a copy of the roster in join order.
func (rm *Room) Players() []katmannames.Player {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	out := make([]katmannames.Player, len(rm.players))
	for i, p := range rm.players {
		out[i] = *p
	}
	return out
}

// Summary returns the room's row for the public lobby list, or false if the
// room isn't joinable from the list.
func (rm *Room) Summary() (katmannames.LobbySummary, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.phase != katmannames.PhaseLobby {
		return katmannames.LobbySummary{}, false
	}
	return katmannames.LobbySummary{
		Code:        rm.code,
		PlayerCount: len(rm.players),
		TimedMode:   rm.timedMode,
		ChaosMode:   rm.chaosMode,
	}, true
}
