package history

import (
	"context"
	"time"

	"matatu-server/pkg/matatu"
)

// GameResult is the immutable record of one completed game. It is produced
// exactly once per session and never amended in memory.
type GameResult struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	WinnerID  int64  `json:"winnerId,omitempty"`
	Reason    string `json:"reason"`
	// StakeDeltas is the signed points change per player
	StakeDeltas map[int64]int `json:"stakeDeltas"`
	// CardsRemaining is how many cards each player still held
	CardsRemaining map[int64]int `json:"cardsRemaining"`
	// HandValues is the point value each player still held
	HandValues map[int64]int `json:"handValues"`
	// Stats is each player's in-game activity
	Stats    map[int64]matatu.Stats `json:"stats,omitempty"`
	Duration time.Duration          `json:"durationMs"`
	// Flagged marks a result whose settlement needs manual reconciliation
	Flagged bool      `json:"flagged,omitempty"`
	Created time.Time `json:"created"`
}

// Store is append-only persistence for game results. Writes are
// best-effort: a storage failure never reverses a decided game.
type Store interface {
	SaveResult(ctx context.Context, result *GameResult) error
}
