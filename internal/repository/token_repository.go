package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	insertRefreshSQL = "INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES (?, ?, ?)"
	liveRefreshSQL   = "SELECT user_id FROM refresh_tokens WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?"
	revokeRefreshSQL = "UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE revoked_at IS NULL AND "
)

// TokenRepo keeps the hashes of issued staff refresh tokens.  The raw token
// never reaches the database.
type TokenRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx, insertRefreshSQL, tokenHash, userID, exp.UTC())
	return err
}

// ValidateRefresh resolves a token hash to its staff member.  The row must
// be unrevoked and unexpired; anything else is ErrNotFound.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx, liveRefreshSQL, tokenHash, r.now()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return userID, err
}

func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.revoke(ctx, "token_hash = ?", tokenHash)
}

// RevokeAllForUser is logout-everywhere.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return r.revoke(ctx, "user_id = ?", userID)
}

func (r *TokenRepo) revoke(ctx context.Context, cond string, arg any) error {
	_, err := r.DB.ExecContext(ctx, revokeRefreshSQL+cond, arg)
	return err
}
