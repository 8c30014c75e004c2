package history

import (
	"context"
	"encoding/json"
	"time"

	"matatu-server/pkg/db"
)

// Postgres is the database-backed result store
type Postgres struct{}

var _ Store = Postgres{}

// SaveResult appends the result to the game_results table
func (p Postgres) SaveResult(ctx context.Context, result *GameResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	const query = `
INSERT INTO game_results (id, session_id, winner_id, reason, data, duration_ms, flagged)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = db.Instance().ExecContext(ctx, query,
		result.ID,
		result.SessionID,
		result.WinnerID,
		result.Reason,
		payload,
		result.Duration/time.Millisecond,
		result.Flagged,
	)

	return err
}
