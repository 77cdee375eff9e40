package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgtasks/backend/internal/models"
)

const (
	// ClaimsVersion is the only claims schema version issued and accepted.
	ClaimsVersion = 1

	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour

	bearerPrefix = "bearer "
)

// TokenType separates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// AccessClaims is the identity carried by an access token.
type AccessClaims struct {
	UserID         uuid.UUID   `json:"user_id"`
	Email          string      `json:"email"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Role           models.Role `json:"role"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	Type           TokenType   `json:"typ"`
	Version        int         `json:"ver"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. It only identifies the user.
type RefreshClaims struct {
	UserID  uuid.UUID `json:"user_id"`
	Type    TokenType `json:"typ"`
	Version int       `json:"ver"`
	jwt.RegisteredClaims
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used to record why a token was rejected.
func WithLogger(logger *zap.Logger) TokenOption {
	return func(s *TokenService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// TokenService issues and verifies HS256 access and refresh tokens.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
	parser     *jwt.Parser
}

// NewTokenService creates a token service. A blank secret is rejected.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	s := &TokenService{
		secret:     []byte(secret),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// AccessTTL returns the access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs the user's current identity.
func (s *TokenService) IssueAccessToken(user *models.User) (string, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", errors.New("user is required")
	}
	now := s.now()
	claims := AccessClaims{
		UserID:           user.ID,
		Email:            user.Email,
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		Role:             user.Role,
		OrganizationID:   user.OrganizationID,
		Type:             TokenTypeAccess,
		Version:          ClaimsVersion,
		RegisteredClaims: s.registered(user.ID, now, s.accessTTL),
	}
	return s.sign(claims)
}

// IssueRefreshToken signs a refresh token for userID.
func (s *TokenService) IssueRefreshToken(userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	now := s.now()
	claims := RefreshClaims{
		UserID:           userID,
		Type:             TokenTypeRefresh,
		Version:          ClaimsVersion,
		RegisteredClaims: s.registered(userID, now, s.refreshTTL),
	}
	return s.sign(claims)
}

// VerifyAccessToken checks signature, expiry, type and schema version.
// Every failure is reported as ErrInvalidToken.
func (s *TokenService) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(token, claims); err != nil {
		s.reject(TokenTypeAccess, err)
		return nil, ErrInvalidToken
	}
	if err := checkSchema(claims.Type, TokenTypeAccess, claims.Version, claims.UserID); err != nil {
		s.reject(TokenTypeAccess, err)
		return nil, ErrInvalidToken
	}
	if !claims.Role.Valid() {
		s.reject(TokenTypeAccess, fmt.Errorf("unknown role %q", claims.Role))
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken checks a refresh token. Access tokens are rejected.
func (s *TokenService) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(token, claims); err != nil {
		s.reject(TokenTypeRefresh, err)
		return nil, ErrInvalidToken
	}
	if err := checkSchema(claims.Type, TokenTypeRefresh, claims.Version, claims.UserID); err != nil {
		s.reject(TokenTypeRefresh, err)
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// value. A missing or malformed header is not an error, just no token.
func ExtractBearer(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func (s *TokenService) registered(userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) parse(token string, claims jwt.Claims) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("token not valid")
	}
	return nil
}

func (s *TokenService) reject(kind TokenType, err error) {
	s.logger.Debug("token rejected", zap.String("kind", string(kind)), zap.Error(err))
}

func checkSchema(got, want TokenType, version int, userID uuid.UUID) error {
	if got != want {
		return fmt.Errorf("token type %q, want %q", got, want)
	}
	if version != ClaimsVersion {
		return fmt.Errorf("claims version %d, want %d", version, ClaimsVersion)
	}
	if userID == uuid.Nil {
		return errors.New("user id missing")
	}
	return nil
}
