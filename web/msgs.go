package web

import (
	katmannames "github.com/katmannames/katmannames"
)

// Inbound intent payloads. Field names follow the client's camelCase.

type createRoomMsg struct {
	Username string `json:"username"`
}

type joinRoomMsg struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
	// PlayerID, when present, reclaims an existing seat after a reconnect.
	PlayerID string `json:"playerId"`
}

type selectTeamMsg struct {
	Team katmannames.Team `json:"team"`
}

type selectRoleMsg struct {
	Role katmannames.Role `json:"role"`
}

type updateTeamNameMsg struct {
	Team katmannames.Team `json:"team"`
	Name string           `json:"name"`
}

type updateTimerSettingsMsg struct {
	TimedMode     bool `json:"timedMode"`
	SpymasterTime int  `json:"spymasterTime"`
	GuesserTime   int  `json:"guesserTime"`
}

type updateChaosModeMsg struct {
	ChaosMode bool `json:"chaosMode"`
}

type addBotMsg struct {
	Team katmannames.Team `json:"team"`
	Role katmannames.Role `json:"role"`
}

type removeBotMsg struct {
	BotID string `json:"botId"`
}

type giveClueMsg struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type revealCardMsg struct {
	CardID int `json:"cardId"`
}

// joinedMsg acknowledges a successful create_room or join_room, carrying the
// identity the client should persist for reconnects.
type joinedMsg struct {
	RoomCode katmannames.RoomCode `json:"roomCode"`
	PlayerID katmannames.PlayerID `json:"playerId"`
}

// identity is what the reconnect cookie stores.
type identity struct {
	RoomCode katmannames.RoomCode `json:"roomCode"`
	PlayerID katmannames.PlayerID `json:"playerId"`
}
