package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orgtasks/backend/internal/models"
)

const testPassword = "correct-horse-battery"

var (
	hashOnce   sync.Once
	cachedHash string
)

// testHash returns one bcrypt hash of testPassword for the whole package;
// cost 12 is too slow to hash per test.
func testHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
		cachedHash = h
	})
	return cachedHash
}

type memUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.User
	fail  error
	calls int
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{byID: map[uuid.UUID]*models.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail != nil {
		return nil, m.fail
	}
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail != nil {
		return nil, m.fail
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) update(id uuid.UUID, fn func(*models.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.byID[id])
}

func (m *memUsers) delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMemRevocations() *memRevocations {
	return &memRevocations{revoked: map[string]time.Duration{}}
}

func (m *memRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = ttl
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

type gatewayFixture struct {
	gateway *Gateway
	tokens  *TokenService
	users   *memUsers
	revoked *memRevocations
	clock   *fakeClock
	user    *models.User
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	tokens, clk := newTestTokens(t)
	user := testUser()
	user.PasswordHash = testHash(t)
	users := newMemUsers(user)
	revoked := newMemRevocations()
	return &gatewayFixture{
		gateway: NewGateway(users, tokens, revoked, nil),
		tokens:  tokens,
		users:   users,
		revoked: revoked,
		clock:   clk,
		user:    user,
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newGatewayFixture(t)

	session, err := f.gateway.Login(context.Background(), "  Alice@Example.COM ", testPassword)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, session.User.ID)
	require.Equal(t, f.user.OrganizationID, session.User.OrganizationID)
	require.Equal(t, f.clock.now.Add(DefaultRefreshTTL), session.RefreshExpiresAt)

	claims, err := f.tokens.VerifyAccessToken(session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, claims.UserID)
	require.Equal(t, f.user.OrganizationID, claims.OrganizationID)
	require.Equal(t, models.RoleOwner, claims.Role)

	refresh, err := f.tokens.VerifyRefreshToken(session.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, refresh.UserID)
}

func TestLoginFailures(t *testing.T) {
	f := newGatewayFixture(t)

	_, err := f.gateway.Login(context.Background(), f.user.Email, "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.gateway.Login(context.Background(), f.user.Email, "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.gateway.Login(context.Background(), "nobody@example.com", testPassword)
	require.ErrorIs(t, err, ErrUserNotFound)
}

type countingChecker struct {
	hashes []string
}

func (c *countingChecker) check(plain, hashed string) bool {
	c.hashes = append(c.hashes, hashed)
	return CheckPassword(plain, hashed)
}

func TestLoginUnknownEmailStillComparesHash(t *testing.T) {
	f := newGatewayFixture(t)
	checker := &countingChecker{}
	f.gateway.checkPassword = checker.check

	_, err := f.gateway.Login(context.Background(), "nobody@example.com", testPassword)
	require.ErrorIs(t, err, ErrUserNotFound)
	require.Len(t, checker.hashes, 1)
	require.NotEmpty(t, checker.hashes[0])
	require.NotEqual(t, f.user.PasswordHash, checker.hashes[0])

	_, err = f.gateway.Login(context.Background(), f.user.Email, "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, checker.hashes, 2)
	require.Equal(t, f.user.PasswordHash, checker.hashes[1])
}

func TestDummyHashIsStableAndNeverMatchesCallerPasswords(t *testing.T) {
	require.Equal(t, dummyHash(), dummyHash())
	require.False(t, CheckPassword(testPassword, dummyHash()))
	require.False(t, CheckPassword("", dummyHash()))
}

func TestLoginStoreFailureIsWrapped(t *testing.T) {
	f := newGatewayFixture(t)
	boom := errors.New("connection refused")
	f.users.fail = boom

	_, err := f.gateway.Login(context.Background(), f.user.Email, testPassword)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrUserNotFound)
}

func TestLoginRejectsUserWithoutHash(t *testing.T) {
	f := newGatewayFixture(t)
	f.users.update(f.user.ID, func(u *models.User) { u.PasswordHash = "" })
	checker := &countingChecker{}
	f.gateway.checkPassword = checker.check

	_, err := f.gateway.Login(context.Background(), f.user.Email, testPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, []string{dummyHash()}, checker.hashes)
}

func TestRefreshUsesCurrentUserRecord(t *testing.T) {
	f := newGatewayFixture(t)
	session, err := f.gateway.Login(context.Background(), f.user.Email, testPassword)
	require.NoError(t, err)

	newOrg := uuid.New()
	f.users.update(f.user.ID, func(u *models.User) {
		u.Role = models.RoleViewer
		u.OrganizationID = newOrg
	})
	f.clock.Advance(time.Hour)

	accessToken, user, err := f.gateway.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, newOrg, user.OrganizationID)

	claims, err := f.tokens.VerifyAccessToken(accessToken)
	require.NoError(t, err)
	require.Equal(t, models.RoleViewer, claims.Role)
	require.Equal(t, newOrg, claims.OrganizationID)
}

func TestRefreshRejections(t *testing.T) {
	t.Run("access token presented", func(t *testing.T) {
		f := newGatewayFixture(t)
		session, err := f.gateway.Login(context.Background(), f.user.Email, testPassword)
		require.NoError(t, err)

		_, _, err = f.gateway.Refresh(context.Background(), session.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		f := newGatewayFixture(t)
		session, err := f.gateway.Login(context.Background(), f.user.Email, testPassword)
		require.NoError(t, err)

		f.clock.Advance(DefaultRefreshTTL + time.Second)
		_, _, err = f.gateway.Refresh(context.Background(), session.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("user deleted", func(t *testing.T) {
		f := newGatewayFixture(t)
		session, err := f.gateway.Login(context.Background(), f.user.Email, testPassword)
		require.NoError(t, err)

		f.users.delete(f.user.ID)
		_, _, err = f.gateway.Refresh(context.Background(), session.RefreshToken)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("after logout", func(t *testing.T) {
		f := newGatewayFixture(t)
		session, err := f.gateway.Login(context.Background(), f.user.Email, testPassword)
		require.NoError(t, err)

		f.clock.Advance(time.Hour)
		require.NoError(t, f.gateway.Logout(context.Background(), session.RefreshToken))
		require.Len(t, f.revoked.revoked, 1)
		for _, ttl := range f.revoked.revoked {
			require.Equal(t, DefaultRefreshTTL-time.Hour, ttl)
		}

		_, _, err = f.gateway.Refresh(context.Background(), session.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestLogoutWithoutRevocationStore(t *testing.T) {
	tokens, _ := newTestTokens(t)
	user := testUser()
	user.PasswordHash = testHash(t)
	g := NewGateway(newMemUsers(user), tokens, nil, nil)

	session, err := g.Login(context.Background(), user.Email, testPassword)
	require.NoError(t, err)
	require.NoError(t, g.Logout(context.Background(), session.RefreshToken))

	_, _, err = g.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)

	require.ErrorIs(t, g.Logout(context.Background(), "garbage"), ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash := testHash(t)
	require.NotEqual(t, testPassword, hash)
	require.True(t, CheckPassword(testPassword, hash))
	require.False(t, CheckPassword("Correct-horse-battery", hash))
	require.False(t, CheckPassword(testPassword, ""))
	require.False(t, CheckPassword(testPassword, "not-a-bcrypt-hash"))

	_, err := HashPassword("")
	require.Error(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "bob@example.com", NormalizeEmail("  Bob@Example.com\n"))
	require.Equal(t, "", NormalizeEmail("   "))
}
