package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Outcome is a single player's result, handed to the achievement and
// notification systems after settlement
type Outcome struct {
	PlayerID   int64
	SessionID  string
	Won        bool
	StakeDelta int
	DurationMS int64
}

// Notifier receives per-player game outcomes. Calls are fire-and-forget:
// a failure for one player must not affect the others or the session.
type Notifier interface {
	GameCompleted(ctx context.Context, outcome Outcome)
}

// Log is a Notifier that only logs. The real achievement and push
// services plug in behind the same interface.
type Log struct{}

var _ Notifier = Log{}

// GameCompleted logs the outcome
func (l Log) GameCompleted(_ context.Context, outcome Outcome) {
	logrus.WithFields(logrus.Fields{
		"playerId":   outcome.PlayerID,
		"sessionId":  outcome.SessionID,
		"won":        outcome.Won,
		"stakeDelta": outcome.StakeDelta,
	}).Info("game outcome")
}
