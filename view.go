package katmannames

import "time"

// GameView is the client-visible projection of a room, already filtered for a
// specific viewer. It mirrors the gameState shape the browser renders.
type GameView struct {
	Phase         Phase         `json:"phase"`
	Players       []PlayerView  `json:"players"`
	DarkTeamName  string        `json:"darkTeamName"`
	LightTeamName string        `json:"lightTeamName"`
	Cards         []CardView    `json:"cards"`
	CurrentTeam   Team          `json:"currentTeam,omitempty"`
	CurrentClue   *Clue         `json:"currentClue,omitempty"`

	DarkCardsRemaining  int `json:"darkCardsRemaining"`
	LightCardsRemaining int `json:"lightCardsRemaining"`

	RevealHistory []RevealEntry `json:"revealHistory"`

	TimedMode     bool `json:"timedMode"`
	SpymasterTime int  `json:"spymasterTime"`
	GuesserTime   int  `json:"guesserTime"`
	ChaosMode     bool `json:"chaosMode"`

	// TurnStartedAt lets clients render an advisory countdown. The server
	// never acts on it.
	TurnStartedAt *time.Time `json:"turnStartedAt,omitempty"`

	Winner    Team      `json:"winner,omitempty"`
	EndReason EndReason `json:"endReason,omitempty"`
}

// PlayerView is a roster entry as seen by one viewer. SecretRole is only
// populated for the viewer themselves, or for everyone once the game ends.
type PlayerView struct {
	ID          PlayerID   `json:"id"`
	Username    string     `json:"username"`
	Team        *Team      `json:"team"`
	Role        Role       `json:"role"`
	SecretRole  SecretRole `json:"secretRole,omitempty"`
	IsBot       bool       `json:"isBot"`
	IsRoomOwner bool       `json:"isRoomOwner"`
}

// CardView is a card as seen by one viewer. Type is empty unless the viewer
// is allowed to know it.
type CardView struct {
	ID       int      `json:"id"`
	Word     string   `json:"word"`
	Type     CardType `json:"type,omitempty"`
	Revealed bool     `json:"revealed"`
}

// LobbySummary is one row of the public room list.
type LobbySummary struct {
	Code        RoomCode `json:"roomCode"`
	PlayerCount int      `json:"playerCount"`
	TimedMode   bool     `json:"timedMode"`
	ChaosMode   bool     `json:"chaosMode"`
}
