package identity

import (
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	alice := domain.Identity{ID: "u1", Name: "Alice", Role: domain.RoleHost}
	tok, err := iss.Issue(alice)
	require.NoError(t, err)

	got, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestVerifyRejects(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)
	alice := domain.Identity{ID: "u1", Name: "Alice", Role: domain.RoleGuest}

	t.Run("empty", func(t *testing.T) {
		_, err := iss.Verify("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := iss.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewIssuer("other", time.Hour)
		require.NoError(t, err)
		tok, err := other.Issue(alice)
		require.NoError(t, err)
		_, err = iss.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old, err := NewIssuer("s3cret", time.Hour)
		require.NoError(t, err)
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		tok, err := old.Issue(alice)
		require.NoError(t, err)
		_, err = iss.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		tok, err := iss.Issue(alice)
		require.NoError(t, err)
		parts := strings.Split(tok, ".")
		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Name: "Mallory", Role: domain.RoleHost, RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
		fs, err := forged.SigningString()
		require.NoError(t, err)
		_, err = iss.Verify(fs + "." + parts[2])
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Name: "Alice", Role: domain.RoleHost, RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = iss.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Name: "Alice", Role: domain.RoleGuest}).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = iss.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewIssuer(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)

	iss, err := NewIssuer("x", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, iss.ttl)

	_, err = iss.Issue(domain.Identity{ID: "u1", Role: domain.RoleGuest})
	assert.ErrorIs(t, err, domain.ErrNameEmpty)
}
