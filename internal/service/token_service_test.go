package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"videotube/internal/model"
)

func TestNewTokenServiceRequiresSecrets(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService("", time.Minute, "refresh", time.Hour)
	require.Error(t, err)

	_, err = NewTokenService("access", time.Minute, "  ", time.Hour)
	require.Error(t, err)

	_, err = NewTokenService("access", 0, "refresh", time.Hour)
	require.Error(t, err)
}

func TestTokenServiceRoundTrip(t *testing.T) {
	t.Parallel()

	tokens := newTestTokens(t)
	user := model.User{ID: "u1", Username: "alice", Fullname: "Alice"}

	access, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)
	claims, err := tokens.VerifyAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "Alice", claims.Fullname)
	require.Equal(t, "access", claims.Type)
	require.NotEmpty(t, claims.TokenID)
	require.Equal(t, 15*time.Minute, tokens.AccessTTL())
	require.Equal(t, tokens.AccessTTL(), claims.ExpiresAt.Sub(claims.IssuedAt.Time))

	refresh, err := tokens.IssueRefreshToken(user)
	require.NoError(t, err)
	claims, err = tokens.VerifyRefreshToken(refresh)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Empty(t, claims.Username)
	require.Equal(t, 240*time.Hour, tokens.RefreshTTL())
	require.Equal(t, tokens.RefreshTTL(), claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestTokenServiceTokensIssuedTogetherDiffer(t *testing.T) {
	t.Parallel()

	tokens := newTestTokens(t)
	user := model.User{ID: "u1"}

	first, err := tokens.IssuePair(user)
	require.NoError(t, err)
	second, err := tokens.IssuePair(user)
	require.NoError(t, err)

	require.NotEqual(t, first.AccessToken, second.AccessToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestTokenServiceVerifyFailures(t *testing.T) {
	t.Parallel()

	tokens := newTestTokens(t)
	user := model.User{ID: "u1", Username: "alice"}

	access, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)
	refresh, err := tokens.IssueRefreshToken(user)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		expired := newTestTokens(t)
		expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
		stale, err := expired.IssueAccessToken(user)
		require.NoError(t, err)

		_, err = tokens.VerifyAccessToken(stale)
		require.ErrorIs(t, err, model.ErrTokenExpired)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := tokens.VerifyAccessToken("not.a.jwt")
		require.ErrorIs(t, err, model.ErrTokenMalformed)

		_, err = tokens.VerifyRefreshToken("")
		require.ErrorIs(t, err, model.ErrTokenMalformed)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenService("other-access", time.Minute, "other-refresh", time.Hour)
		require.NoError(t, err)

		_, err = other.VerifyAccessToken(access)
		require.ErrorIs(t, err, model.ErrTokenSignatureMismatch)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := tokens.VerifyAccessToken(refresh)
		require.ErrorIs(t, err, model.ErrTokenSignatureMismatch)

		_, err = tokens.VerifyRefreshToken(access)
		require.ErrorIs(t, err, model.ErrTokenSignatureMismatch)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
			"sub": "u1",
			"typ": "access",
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("access-secret"))
		require.NoError(t, err)

		_, err = tokens.VerifyAccessToken(forged)
		require.ErrorIs(t, err, model.ErrTokenSignatureMismatch)
	})

	t.Run("missing subject", func(t *testing.T) {
		anonymous, err := tokens.IssueAccessToken(model.User{})
		require.NoError(t, err)

		_, err = tokens.VerifyAccessToken(anonymous)
		require.ErrorIs(t, err, model.ErrTokenMalformed)
	})
}
