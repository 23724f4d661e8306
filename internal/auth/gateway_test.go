package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/retinal-ledger/internal/store"
)

func setupGateway(t *testing.T) (*Gateway, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), store.DriverModernc, filepath.Join(t.TempDir(), "auth.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewGateway(s, NewHasher(bcrypt.MinCost), nil), s
}

func TestGateway_Signup(t *testing.T) {
	gw, s := setupGateway(t)
	ctx := context.Background()

	res := gw.Signup(ctx, "Ann", "Ann@X.com", "secret1")
	require.True(t, res.Success, "signup failed: %v", res.Err)
	require.NoError(t, res.Err)
	assert.Equal(t, "ann@x.com", res.Account.Email)
	assert.Equal(t, "Ann", res.Account.DisplayName)

	_, hash, err := s.GetAccountByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret1")))
}

func TestGateway_Signup_Validation(t *testing.T) {
	gw, s := setupGateway(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		fullName  string
		email     string
		password  string
		wantField string
	}{
		{"empty name", "", "ann@x.com", "secret1", "name"},
		{"whitespace name", "   ", "ann@x.com", "secret1", "name"},
		{"email without at", "Ann", "ann.x.com", "secret1", "email"},
		{"empty email", "Ann", "", "secret1", "email"},
		{"short password", "Ann", "ann@x.com", "12345", "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := gw.Signup(ctx, tt.fullName, tt.email, tt.password)
			assert.False(t, res.Success)
			assert.Nil(t, res.Account)
			require.ErrorIs(t, res.Err, ErrValidation)

			var ve *ValidationError
			require.True(t, errors.As(res.Err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestGateway_Signup_PasswordLengthBoundary(t *testing.T) {
	gw, _ := setupGateway(t)

	res := gw.Signup(context.Background(), "Ann", "ann@x.com", "123456")
	assert.True(t, res.Success, "six characters must be accepted: %v", res.Err)
}

func TestGateway_Signup_Duplicate(t *testing.T) {
	gw, _ := setupGateway(t)
	ctx := context.Background()

	require.True(t, gw.Signup(ctx, "Ann", "ann@x.com", "secret1").Success)

	res := gw.Signup(ctx, "Ann Again", " ANN@x.com ", "secret2")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, store.ErrDuplicateAccount)
}

func TestGateway_Login(t *testing.T) {
	gw, _ := setupGateway(t)
	ctx := context.Background()

	signup := gw.Signup(ctx, "Ann", "ann@x.com", "secret1")
	require.True(t, signup.Success)

	res := gw.Login(ctx, "ann@X.COM", "secret1")
	require.True(t, res.Success, "login failed: %v", res.Err)
	assert.Equal(t, signup.Account.ID, res.Account.ID)
}

func TestGateway_Login_FailuresAreIndistinguishable(t *testing.T) {
	gw, _ := setupGateway(t)
	ctx := context.Background()

	require.True(t, gw.Signup(ctx, "Ann", "ann@x.com", "secret1").Success)

	wrongPassword := gw.Login(ctx, "ann@x.com", "wrong")
	unknownEmail := gw.Login(ctx, "nobody@x.com", "secret1")

	for _, res := range []Result{wrongPassword, unknownEmail} {
		assert.False(t, res.Success)
		assert.Nil(t, res.Account)
		assert.ErrorIs(t, res.Err, ErrInvalidCredentials)
	}
	assert.Equal(t, wrongPassword.Err.Error(), unknownEmail.Err.Error())
}

func TestHasher_OutOfRangeCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewHasher(99).cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).cost)
}

func TestHasher_TooLongPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	_, err := h.Hash(string(long))
	assert.ErrorIs(t, err, ErrValidation)
}
