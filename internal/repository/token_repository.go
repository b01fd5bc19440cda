package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-service/internal/domain"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// TokenRepository persists issued token pairs. Every call appends a new row;
// records are never updated or replaced.
type TokenRepository interface {
	Create(ctx context.Context, record *domain.TokenRecord) error
}

type tokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a Postgres-backed implementation.
func NewTokenRepository(pool *pgxpool.Pool) TokenRepository {
	return &tokenRepository{pool: pool}
}

// Create stamps the record with the current time and inserts it. Any storage
// failure surfaces as a persistence error so the orchestrator can discard the
// minted pair.
func (r *tokenRepository) Create(ctx context.Context, record *domain.TokenRecord) error {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	const query = `
        INSERT INTO tokens (user_id, access_token, refresh_token, expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`

	if err := r.pool.QueryRow(ctx, query,
		record.UserID,
		record.AccessToken,
		record.RefreshToken,
		record.ExpiresAt,
		record.CreatedAt,
		record.UpdatedAt,
	).Scan(&record.ID); err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return nil
}
