// Package katmannames holds the shared types for a game of Katmannames, a
// team-based word-guessing game played in rooms over a persistent connection.
package katmannames

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Rows is the number of rows of cards on a board.
	Rows = 5
	// Columns is the number of columns of cards on a board.
	Columns = 5
	// Size is the total number of cards on a board.
	Size = Rows * Columns

	// StartingTeamCards is how many cards belong to the team that goes first.
	StartingTeamCards = 9
	// SecondTeamCards is how many cards belong to the team that goes second.
	SecondTeamCards = 8
	// NeutralCards is how many cards belong to neither team.
	NeutralCards = 7
	// AssassinCards is always one, but having it named keeps the layout math
	// readable.
	AssassinCards = 1

	// RoomCodeLength is the length of the code players share to meet in a room.
	RoomCodeLength = 6
)

// Team is one of the two sides of the board: dark and light rather than the
// usual red and blue.
type Team string

const (
	// NoTeam is a player that hasn't picked a side yet, or a spectator.
	NoTeam = Team("")
	// DarkTeam is the blue-tinted team.
	DarkTeam = Team("dark")
	// LightTeam is the red-tinted team.
	LightTeam = Team("light")
)

// Opponent returns the other team, or NoTeam for NoTeam.
func (t Team) Opponent() Team {
	switch t {
	case DarkTeam:
		return LightTeam
	case LightTeam:
		return DarkTeam
	}
	return NoTeam
}

// CardType returns the card type owned by this team.
func (t Team) CardType() CardType {
	switch t {
	case DarkTeam:
		return DarkCard
	case LightTeam:
		return LightCard
	}
	return CardType("")
}

// Role is a player's public role on their team.
type Role string

const (
	// NoRole is an error case.
	NoRole = Role("")
	// SpymasterRole sees every card and gives clues.
	SpymasterRole = Role("spymaster")
	// GuesserRole reveals cards based on clues.
	GuesserRole = Role("guesser")
)

// SecretRole is a hidden chaos-mode role layered on top of a player's public
// role. Players only ever see their own.
type SecretRole string

const (
	NoSecretRole    = SecretRole("")
	OracleRole      = SecretRole("oracle")
	DodoRole        = SecretRole("dodo")
	DoubleAgentRole = SecretRole("double_agent")
)

// Phase is the lifecycle stage of a room.
type Phase string

const (
	PhaseLobby   = Phase("lobby")
	PhasePlaying = Phase("playing")
	PhaseEnded   = Phase("ended")
)

// CardType is the affiliation of a card.
type CardType string

const (
	DarkCard     = CardType("dark")
	LightCard    = CardType("light")
	NeutralCard  = CardType("neutral")
	AssassinCard = CardType("assassin")
)

// Team returns the team that owns cards of this type, or NoTeam for neutral
// and assassin cards.
func (ct CardType) Team() Team {
	switch ct {
	case DarkCard:
		return DarkTeam
	case LightCard:
		return LightTeam
	}
	return NoTeam
}

// EndReason explains why a game ended.
type EndReason string

const (
	ReasonAssassin      = EndReason("assassin")
	ReasonAllCardsFound = EndReason("all_cards_found")
)

// RoomCode identifies a room. Codes are stored uppercase, input is
// case-insensitive.
type RoomCode string

// PlayerID identifies a player. It is stable across reconnects.
type PlayerID string

// Card is a single card on the board. Its ID is its board position and never
// changes for the duration of a game.
type Card struct {
	ID       int      `json:"id"`
	Word     string   `json:"word"`
	Type     CardType `json:"type"`
	Revealed bool     `json:"revealed"`
	// RevealedBy is the team that flipped the card, not the team that owns it.
	RevealedBy Team `json:"-"`
}

// Clue is a word and count from a spymaster. At most one clue is active in a
// room at a time.
type Clue struct {
	Word    string   `json:"word"`
	Count   int      `json:"count"`
	GivenBy PlayerID `json:"givenBy,omitempty"`
}

func (c Clue) String() string {
	return fmt.Sprintf("%s %d", c.Word, c.Count)
}

// ParseClue parses a "word count" pair, e.g. "hayvan 3".
func ParseClue(s string) (Clue, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Clue{}, fmt.Errorf("%w: clue should look like 'hayvan 3'", ErrInvalidClue)
	}
	count, err := strconv.Atoi(fields[1])
	if err != nil {
		return Clue{}, fmt.Errorf("%w: bad count %q", ErrInvalidClue, fields[1])
	}
	return Clue{Word: fields[0], Count: count}, nil
}

// RevealEntry is one line of a room's append-only reveal history.
type RevealEntry struct {
	Word string   `json:"word"`
	Type CardType `json:"type"`
	Team Team     `json:"team"`
}

// Player is a human or bot seated in a room.
type Player struct {
	ID          PlayerID
	Username    string
	Team        Team
	Role        Role
	SecretRole  SecretRole
	IsBot       bool
	IsRoomOwner bool
}

// ChaosAssignment is the outcome of dealing the hidden chaos roles at game
// start. It exists at most once per playing phase.
type ChaosAssignment struct {
	Dodo        PlayerID
	DoubleAgent PlayerID
	// Oracles maps each team to its oracle.
	Oracles map[Team]PlayerID
	// OracleCards maps each team to the card IDs its oracle was shown.
	OracleCards map[Team][]int
}

// SecretRoleOf returns the hidden role dealt to the given player, if any.
func (ca *ChaosAssignment) SecretRoleOf(id PlayerID) SecretRole {
	if ca == nil {
		return NoSecretRole
	}
	if ca.Dodo == id {
		return DodoRole
	}
	if ca.DoubleAgent == id {
		return DoubleAgentRole
	}
	for _, oid := range ca.Oracles {
		if oid == id {
			return OracleRole
		}
	}
	return NoSecretRole
}

// GameResult is the archived record of a finished game.
type GameResult struct {
	RoomCode  RoomCode  `json:"roomCode"`
	Winner    Team      `json:"winner"`
	Reason    EndReason `json:"reason"`
	Reveals   int       `json:"reveals"`
	ChaosMode bool      `json:"chaosMode"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// GameStore archives finished games.
type GameStore interface {
	RecordResult(*GameResult) error
}

// SpymasterAI decides clues for a bot spymaster. It sees the full board, the
// same as a human spymaster would.
type SpymasterAI interface {
	GiveClue(cards []Card, team Team) (Clue, error)
}

// OperativeAI decides reveals for a bot guesser. It sees the guesser-filtered
// board. Returning a card ID of PassCard passes the turn instead.
type OperativeAI interface {
	ChooseCard(cards []CardView, clue Clue, team Team) (int, error)
}

// PassCard is the OperativeAI return value that means "pass the turn".
const PassCard = -1

var codeLetters = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

// RandomRoomCode generates a room code from the given source. Uniqueness is
// the registry's problem.
func RandomRoomCode(r *rand.Rand) RoomCode {
	b := make([]byte, RoomCodeLength)
	for i := range b {
		b[i] = codeLetters[r.Intn(len(codeLetters))]
	}
	return RoomCode(b)
}

// NormalizeRoomCode uppercases a client-supplied code.
func NormalizeRoomCode(code string) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(code)))
}

// NewPlayerID returns a fresh player ID.
func NewPlayerID() PlayerID {
	return PlayerID(uuid.NewString())
}
