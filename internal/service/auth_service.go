package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// AuthService coordinates login and registration: credential verification,
// token issuance and token persistence.
type AuthService struct {
	users      repository.UserRepository
	tokens     repository.TokenRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	TokenRepo  repository.TokenRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service. All collaborators are passed in
// explicitly; nothing is resolved from a global container.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.TokenRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL()),
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Login authenticates a user by email and password, mints a token pair and
// persists it. The pair is only returned once its record is durable; a failed
// persist discards the minted tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.verifyCredentials(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueAndPersist(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventUserLoggedIn,
		UserID:    user.ID,
		Timestamp: time.Now().UTC(),
		Payload:   events.UserLoggedInPayload{Email: user.Email, TokenExpiresAt: pair.ExpiresAt},
	})

	return user, pair, nil
}

// Register creates a new user account and issues its first token pair.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, *domain.TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, apperrors.NewPersistenceError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, apperrors.NewPersistenceError(err)
	}

	pair, err := s.issueAndPersist(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventUserRegistered,
		UserID:    user.ID,
		Timestamp: time.Now().UTC(),
		Payload:   events.UserRegisteredPayload{Name: user.Name, Email: user.Email},
	})

	return user, pair, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// verifyCredentials looks the user up by email and checks the password.
// Unknown emails and wrong passwords collapse into the same error so the
// response cannot be used to probe which accounts exist.
func (s *AuthService) verifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("login for unknown email", zap.String("email", email))
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.NewPersistenceError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Debug("login with wrong password", zap.Int64("user_id", user.ID))
		return nil, apperrors.NewInvalidCredentials()
	}
	return user, nil
}

// issueAndPersist mints a token pair and writes its record. The record write
// is a single-row insert, atomic at the storage layer.
func (s *AuthService) issueAndPersist(ctx context.Context, userID int64) (*domain.TokenPair, error) {
	pair, err := s.tokenMgr.Issue(userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	record := &domain.TokenRecord{
		UserID:       userID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		s.logger.Error("token persist failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
