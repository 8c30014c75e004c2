package matatu

import (
	"errors"
	"fmt"
)

// ErrNotYourTurn is returned when it's not the player's turn
var ErrNotYourTurn = errors.New("not player's turn")

// ErrIllegalMove happens when the played card matches neither the suit nor the rank of the discard top
var ErrIllegalMove = errors.New("card does not match the discard pile")

// ErrInvalidCardIndex happens when the card index is outside the player's hand
var ErrInvalidCardIndex = errors.New("no card at that index")

// ErrDeclaredSuitRequired happens when a wild is played without declaring a suit
var ErrDeclaredSuitRequired = errors.New("playing a wild requires a declared suit")

// ErrDeclaredSuitForbidden happens when a suit is declared on a non-wild card
var ErrDeclaredSuitForbidden = errors.New("only a wild may declare a suit")

// ErrGameNotActive is returned when a game action is attempted outside the active state
var ErrGameNotActive = errors.New("game is not active")

// ErrGameOver is returned when an action is attempted on a completed game
var ErrGameOver = errors.New("game is over")

// ErrSeatingClosed happens when a player is added after the game started
var ErrSeatingClosed = errors.New("seating is closed")

// ErrDuplicatePlayer happens when the same player is seated twice
var ErrDuplicatePlayer = errors.New("player is already in the game")

// ErrPlayerNotInGame happens when an action references an unseated player
var ErrPlayerNotInGame = errors.New("player is not in the game")

// ErrNothingToDeclare happens when a player declares last-card with more than one card
var ErrNothingToDeclare = errors.New("you can only declare on your last card")

// PlayerCountError is an error on the number of players in the game
type PlayerCountError int

func (p PlayerCountError) Error() string {
	return fmt.Sprintf("expected 2–%d players, got %d", playersLimit, int(p))
}
