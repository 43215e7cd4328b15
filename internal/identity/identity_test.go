package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
)

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	tok, err := tokens.Issue(Identity{UserID: "u1", IsAdmin: true})
	require.NoError(t, err)

	got, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", IsAdmin: true}, got)
}

func TestVerifyRejects(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokens("secret", time.Hour).WithClock(func() time.Time { return now })
	tok, err := issuer.Issue(Identity{UserID: "u1"})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := NewTokens("secret", time.Hour).WithClock(func() time.Time { return now.Add(2 * time.Hour) })
		_, err := later.Verify(tok)
		assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens("other", time.Hour).WithClock(func() time.Time { return now })
		_, err := other.Verify(tok)
		assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not-a-token")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := NewContext(context.Background(), Identity{UserID: "u9"})
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u9", id.UserID)
}
