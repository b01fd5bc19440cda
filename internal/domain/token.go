package domain

import "time"

// TokenPair bundles a signed access token with its opaque refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenRecord is one persisted token pair. A user accumulates one record per
// successful login; records are never updated after creation.
type TokenRecord struct {
	ID           int64
	UserID       int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
