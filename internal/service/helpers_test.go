package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"videotube/internal/asset"
	"videotube/internal/metrics"
	"videotube/internal/model"
	"videotube/internal/repository"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestTokens(t *testing.T) *TokenService {
	t.Helper()

	tokens, err := NewTokenService("access-secret", 15*time.Minute, "refresh-secret", 240*time.Hour)
	require.NoError(t, err)
	return tokens
}

type authFixture struct {
	auth    *AuthService
	store   *repository.MemoryStore
	assets  *asset.MockStore
	metrics *metrics.Recorder
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()

	store := repository.NewMemoryStore()
	assets := newAssetMock()
	recorder := metrics.New()
	auth := NewAuthService(store.Users(), newTestTokens(t), assets, bcrypt.MinCost, recorder, discardLogger)
	return authFixture{auth: auth, store: store, assets: assets, metrics: recorder}
}

// newAssetMock accepts every upload and answers with a URL derived from the
// upload kind.
func newAssetMock() *asset.MockStore {
	assets := new(asset.MockStore)
	for _, kind := range []asset.Kind{asset.KindAvatar, asset.KindCover, asset.KindVideo, asset.KindThumbnail} {
		assets.On("Put", mock.Anything, mock.MatchedBy(func(u asset.Upload) bool { return u.Kind == kind })).
			Return(asset.Asset{URL: "http://cdn.test/" + string(kind) + "/new"}, nil).Maybe()
	}
	assets.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()
	return assets
}

func upload(kind asset.Kind, filename string, contentType string) *asset.Upload {
	return &asset.Upload{
		Kind:        kind,
		Filename:    filename,
		ContentType: contentType,
		Size:        4,
		Body:        bytes.NewReader([]byte("data")),
	}
}

func registerAlice(t *testing.T, auth *AuthService) model.User {
	t.Helper()

	user, err := auth.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@x.com",
		Fullname: "Alice",
		Password: "password123",
		Avatar:   upload(asset.KindAvatar, "a.png", "image/png"),
	})
	require.NoError(t, err)
	return user
}
