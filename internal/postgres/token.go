package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bharatbasket/checkout/internal/domain/auth"
)

const getTokenByHashSQL = `SELECT id, token_hash, user_id, name
	FROM api_tokens WHERE token_hash = $1`

var _ auth.Repository = (*TokenRepository)(nil)

// TokenRepository provides API token lookups backed by PostgreSQL.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a TokenRepository that uses the given pool.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// FindByHash looks up an API token by its peppered HMAC-SHA256 hash.
// Returns an error wrapping pgx.ErrNoRows when no matching token exists.
func (r *TokenRepository) FindByHash(ctx context.Context, hash string) (*auth.TokenInfo, error) {
	rows, err := r.pool.Query(ctx, getTokenByHashSQL, hash)
	if err != nil {
		return nil, fmt.Errorf("finding api token by hash: %w", err)
	}

	info, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (auth.TokenInfo, error) {
		var t auth.TokenInfo
		err := row.Scan(&t.ID, &t.TokenHash, &t.UserID, &t.Name)
		return t, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("api token not found: %w", err)
		}
		return nil, fmt.Errorf("finding api token by hash: %w", err)
	}
	return &info, nil
}
