package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/store"
)

func TestIssuer_RoundTrip(t *testing.T) {
	iss, err := NewIssuer("secret", 0)
	require.NoError(t, err)

	token, err := iss.Issue("acc-1")
	require.NoError(t, err)

	claims, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.ID)
	assert.Nil(t, claims.ExpiresAt)
}

func TestIssuer_Rejects(t *testing.T) {
	iss, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer("other", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Issue("acc-1")
	require.NoError(t, err)

	expiredIss, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)
	expiredIss.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredIss.Issue("acc-1")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: "acc-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"foreign":      foreign,
		"expired":      expired,
		"alg none":     none,
		"missing id":   noID,
		"empty string": "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer("", 0)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	ok, err := CheckPassword(hash, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "x")
	assert.Error(t, err)
}

func newTestService(t *testing.T, repo store.AccountRepository) *Service {
	t.Helper()
	iss, err := NewIssuer("secret", 0)
	require.NoError(t, err)
	return NewService(repo, iss)
}

func TestLogin_CreatesThenFinds(t *testing.T) {
	repo := store.NewMemory()
	s := newTestService(t, repo)

	first, err := s.Login(context.Background(), LoginInput{Name: "Asha", Email: "Asha@Example.com", Password: "pw", Picture: "p.png"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "asha@example.com", first.Account.Email)
	assert.NotEmpty(t, first.Account.PasswordHash)
	assert.NotEqual(t, "pw", first.Account.PasswordHash)

	claims, err := s.issuer.Parse(first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.Account.ID, claims.ID)

	second, err := s.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Account.ID, second.Account.ID)

}

func TestLogin_ThirdPartyAccountWithoutPassword(t *testing.T) {
	s := newTestService(t, store.NewMemory())

	first, err := s.Login(context.Background(), LoginInput{Email: "g@b.c", Name: "G"})
	require.NoError(t, err)
	assert.Empty(t, first.Account.PasswordHash)

	again, err := s.Login(context.Background(), LoginInput{Email: "g@b.c"})
	require.NoError(t, err)
	assert.Equal(t, first.Account.ID, again.Account.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestService(t, store.NewMemory())

	_, err := s.Login(context.Background(), LoginInput{Email: "a@b.c", Password: "right"})
	require.NoError(t, err)

	for name, pw := range map[string]string{"wrong": "wrong", "missing": ""} {
		t.Run(name, func(t *testing.T) {
			res, err := s.Login(context.Background(), LoginInput{Email: "a@b.c", Password: pw})
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Nil(t, res)
		})
	}
}

// racingRepo reports a missing account, then a conflict on insert.
type racingRepo struct {
	*store.Memory
	existing *domain.Account
	finds    int
}

func (r *racingRepo) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.finds++
	if r.finds == 1 {
		return nil, store.ErrNotFound
	}
	return r.existing, nil
}

func (r *racingRepo) InsertAccount(ctx context.Context, a *domain.Account) error {
	return store.ErrAlreadyExists
}

func TestLogin_ConcurrentFirstLogin(t *testing.T) {
	repo := &racingRepo{Memory: store.NewMemory(), existing: &domain.Account{ID: "winner", Email: "a@b.c"}}
	s := newTestService(t, repo)

	res, err := s.Login(context.Background(), LoginInput{Email: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "winner", res.Account.ID)
	assert.False(t, res.Created)
}

func TestLogin_ConcurrentFirstLoginChecksWinnerPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	repo := &racingRepo{Memory: store.NewMemory(), existing: &domain.Account{ID: "winner", Email: "a@b.c", PasswordHash: hash}}
	s := newTestService(t, repo)

	_, err = s.Login(context.Background(), LoginInput{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

type failingRepo struct{ *store.Memory }

func (failingRepo) FindAccountByEmail(context.Context, string) (*domain.Account, error) {
	return nil, errors.New("db down")
}

func TestLogin_StoreFailure(t *testing.T) {
	s := newTestService(t, failingRepo{store.NewMemory()})
	_, err := s.Login(context.Background(), LoginInput{Email: "a@b.c"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
