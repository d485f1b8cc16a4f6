package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"
)

// TokenRepo persists Google OAuth tokens keyed by browser session. Tokens
// are stored as JSON so refresh tokens and expiry travel together.
type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

// Save upserts the token for a session. Called after the OAuth callback and
// again whenever a refresh produces a new access token.
func (r *TokenRepo) Save(ctx context.Context, sessionID uuid.UUID, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO oauth_tokens (session_id, token_json, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_id)
		DO UPDATE SET token_json = EXCLUDED.token_json, updated_at = NOW()
	`, sessionID, data)
	return err
}

// Get returns the stored token, or (nil, nil) when the session has never
// authorized. An unauthorized session is an expected state, not an error.
func (r *TokenRepo) Get(ctx context.Context, sessionID uuid.UUID) (*oauth2.Token, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		"SELECT token_json FROM oauth_tokens WHERE session_id = $1", sessionID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored token: %w", err)
	}
	return token, nil
}

func (r *TokenRepo) Delete(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM oauth_tokens WHERE session_id = $1", sessionID)
	return err
}

// DeleteStale removes tokens for sessions that have not touched the API in
// the given window. Used by the background janitor.
func (r *TokenRepo) DeleteStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM oauth_tokens WHERE updated_at < NOW() - $1::interval",
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
