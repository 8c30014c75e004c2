package account

import (
	"context"
	"database/sql"

	"matatu-server/pkg/db"
)

// Postgres is the database-backed account service
type Postgres struct{}

var _ Service = Postgres{}

const playerColumns = `id, username, skill_tier, balance`

// Player returns the identity and balance for an ID
func (p Postgres) Player(ctx context.Context, id int64) (*Player, error) {
	const query = `
SELECT ` + playerColumns + `
FROM players
WHERE id = $1`

	row := db.Instance().QueryRowContext(ctx, query, id)
	return playerByRow(row)
}

// Debit atomically removes points using a conditional update, so two
// concurrent escrows can never take a balance negative
func (p Postgres) Debit(ctx context.Context, id int64, amount int) error {
	const query = `
UPDATE players
SET balance = balance - $1
WHERE id = $2
  AND balance >= $1`

	res, err := db.Instance().ExecContext(ctx, query, amount, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrInsufficientBalance
	}

	return nil
}

// Credit adds points
func (p Postgres) Credit(ctx context.Context, id int64, amount int) error {
	const query = `
UPDATE players
SET balance = balance + $1
WHERE id = $2`

	res, err := db.Instance().ExecContext(ctx, query, amount, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrPlayerNotFound
	}

	return nil
}

func playerByRow(row db.Scanner) (*Player, error) {
	var p Player
	if err := row.Scan(&p.ID, &p.Username, &p.SkillTier, &p.Balance); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPlayerNotFound
		}

		return nil, err
	}

	return &p, nil
}
