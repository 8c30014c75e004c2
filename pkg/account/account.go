package account

import (
	"context"
	"errors"
)

// ErrInsufficientBalance happens when a debit would take a balance negative
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrPlayerNotFound happens when the player does not exist
var ErrPlayerNotFound = errors.New("player not found")

// Player is the slice of identity the game core needs
type Player struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	SkillTier string `json:"skillTier"`
	Balance   int    `json:"balance"`
}

// Service supplies player identity and moves stake points. The identity
// system itself lives elsewhere; the core only consumes this surface.
type Service interface {
	// Player returns the identity and balance for an ID
	Player(ctx context.Context, id int64) (*Player, error)

	// Debit atomically removes points. Returns ErrInsufficientBalance
	// without changing anything when the balance cannot cover it.
	Debit(ctx context.Context, id int64, amount int) error

	// Credit adds points
	Credit(ctx context.Context, id int64, amount int) error
}
