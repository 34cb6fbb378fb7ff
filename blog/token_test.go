package blog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour, nil)
	ident := Identity{ID: "u-1", Email: "a@x.com", DisplayName: "Alice"}

	token, err := codec.Issue(ident)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got := codec.Verify(token)
	require.NotNil(t, got)
	assert.Equal(t, ident, *got)
}

func TestTokenExpiry(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour, nil)
	t0 := time.Now()
	codec.now = func() time.Time { return t0 }

	token, err := codec.Issue(Identity{ID: "u-1", Email: "a@x.com", DisplayName: "Alice"})
	require.NoError(t, err)

	codec.now = func() time.Time { return t0.Add(30 * time.Minute) }
	assert.NotNil(t, codec.Verify(token), "token should still verify before expiry")

	codec.now = func() time.Time { return t0.Add(2 * time.Hour) }
	assert.Nil(t, codec.Verify(token), "expired token should verify to anonymous")
}

func TestVerifyDegradesToAnonymous(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour, nil)
	token, err := codec.Issue(Identity{ID: "u-1", Email: "a@x.com", DisplayName: "Alice"})
	require.NoError(t, err)

	assert.Nil(t, codec.Verify(""))
	assert.Nil(t, codec.Verify("not-a-token"))
	assert.Nil(t, codec.Verify(token+"x"), "tampered token")

	other := NewTokenCodec("different-secret", time.Hour, nil)
	assert.Nil(t, other.Verify(token), "token signed with another secret")
}
