package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/identity"
)

func newService(t *testing.T) (*Service, *identity.Tokens) {
	t.Helper()
	tokens := identity.NewTokens("test-secret", time.Hour)
	return NewService(NewMemRepo(), tokens), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	s, tokens := newService(t)
	ctx := context.Background()

	u, err := s.Register(ctx, RegisterRequest{Name: "Ana", Email: " Ana@Example.com", Password: "pw123456", ConfirmPassword: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEqual(t, "pw123456", u.PasswordHash)

	tok, got, err := s.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	id, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.False(t, id.IsAdmin)
}

func TestRegister_Validation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	ok := RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "pw", ConfirmPassword: "pw"}
	_, err := s.Register(ctx, ok)
	require.NoError(t, err)

	cases := []struct {
		name string
		in   RegisterRequest
		msg  string
	}{
		{"missing", RegisterRequest{Email: "x@y.z"}, "All fields are required"},
		{"mismatch", RegisterRequest{Name: "B", Email: "b@y.z", Password: "a", ConfirmPassword: "b"}, "Passwords do not match"},
		{"duplicate", RegisterRequest{Name: "Ana", Email: "ANA@example.com", Password: "pw", ConfirmPassword: "pw"}, "User already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register(ctx, tc.in)
			require.Error(t, err)
			assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
			assert.Equal(t, tc.msg, apperr.MessageOf(err))
		})
	}
}

func TestLogin_Failures(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "pw", ConfirmPassword: "pw"})
	require.NoError(t, err)

	_, _, err = s.Login(ctx, LoginRequest{Email: "ana@example.com"})
	assert.Equal(t, "Email and password are required", apperr.MessageOf(err))

	_, _, err = s.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "pw"})
	assert.Equal(t, "Invalid credentials", apperr.MessageOf(err))

	_, _, err = s.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "wrong"})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
	assert.Equal(t, "Invalid credentials", apperr.MessageOf(err))
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "s3cret"))
	assert.False(t, CheckPassword(h, "other"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret"))
}
