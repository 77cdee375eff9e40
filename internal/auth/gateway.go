package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgtasks/backend/internal/models"
)

// CredentialStore resolves users. Both lookups return ErrUserNotFound when no user matches.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Session is the result of a successful login.
type Session struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             models.UserPublic
}

// Gateway verifies credentials and turns them into tokens.
type Gateway struct {
	users       CredentialStore
	tokens      *TokenService
	revocations RevocationStore
	logger      *zap.Logger
	now         func() time.Time

	checkPassword func(plain, hashed string) bool
}

// NewGateway creates an authentication gateway. revocations may be nil, in
// which case logout only clears the client cookie.
func NewGateway(users CredentialStore, tokens *TokenService, revocations RevocationStore, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		users:         users,
		tokens:        tokens,
		revocations:   revocations,
		logger:        logger,
		now:           tokens.now,
		checkPassword: CheckPassword,
	}
}

// Tokens returns the token service used by the gateway.
func (g *Gateway) Tokens() *TokenService {
	return g.tokens
}

// Login checks email and password and issues an access and a refresh token.
func (g *Gateway) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	user, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			g.checkPassword(password, dummyHash())
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	hash := user.PasswordHash
	if hash == "" {
		g.checkPassword(password, dummyHash())
		g.logger.Info("login rejected", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}
	if !g.checkPassword(password, hash) {
		g.logger.Info("login rejected", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	access, err := g.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := g.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: g.now().Add(g.tokens.RefreshTTL()),
		User:             user.ToPublic(),
	}, nil
}

// Refresh exchanges a refresh token for a new access token built from the
// user's current record, so role or organization changes take effect.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (string, *models.User, error) {
	claims, err := g.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", nil, err
	}
	if g.revocations != nil {
		revoked, err := g.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return "", nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			g.logger.Debug("revoked refresh token presented", zap.String("user_id", claims.UserID.String()))
			return "", nil, ErrInvalidToken
		}
	}

	user, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrUserNotFound
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	access, err := g.tokens.IssueAccessToken(user)
	if err != nil {
		return "", nil, err
	}
	return access, user, nil
}

// Logout revokes the refresh token for the rest of its lifetime.
func (g *Gateway) Logout(ctx context.Context, refreshToken string) error {
	claims, err := g.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	if g.revocations == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(g.now())
	if err := g.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
