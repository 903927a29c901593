package katmannames

import "errors"

// The full error taxonomy for rejected intents. All of these are recoverable:
// they reject a single intent, leave room state untouched, and are surfaced
// only to the connection that sent the intent.
var (
	// ErrInvalidPhase means the action isn't allowed in the room's current
	// phase, e.g. picking a team mid-game.
	ErrInvalidPhase = errors.New("katmannames: action not allowed in this phase")
	// ErrGameNotActive means a turn action arrived while no game was running.
	ErrGameNotActive = errors.New("katmannames: game is not active")
	// ErrNotYourTurn means the acting player's team or seat isn't up.
	ErrNotYourTurn = errors.New("katmannames: not your turn")
	// ErrNotYourRole means the acting player's role can't perform the action.
	ErrNotYourRole = errors.New("katmannames: your role can't do that")
	// ErrInvalidClue is a malformed or out-of-range clue.
	ErrInvalidClue = errors.New("katmannames: invalid clue")
	// ErrInvalidCard is a reveal of a nonexistent or already-revealed card.
	ErrInvalidCard = errors.New("katmannames: invalid card")

	ErrRoomNotFound   = errors.New("katmannames: room not found")
	ErrRoomFull       = errors.New("katmannames: room is full")
	ErrGameInProgress = errors.New("katmannames: game already in progress")
	ErrPlayerNotFound = errors.New("katmannames: player not found")

	// ErrStartRequirementsNotMet means the teams aren't filled out enough for
	// the game to begin.
	ErrStartRequirementsNotMet = errors.New("katmannames: start requirements not met")
	// ErrInsufficientWords means the word pool can't fill a board.
	ErrInsufficientWords = errors.New("katmannames: not enough words for a board")
	// ErrChaosAssignment means the roster can't host the chaos roles. The room
	// degrades to a non-chaos game rather than refusing to start.
	ErrChaosAssignment = errors.New("katmannames: chaos roles can't be assigned")
)
