package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube/internal/model"
)

func seedUser(t *testing.T, store *MemoryStore, id string, username string, email string) model.User {
	t.Helper()

	now := time.Now().UTC()
	u := model.User{
		ID:           id,
		Username:     username,
		Email:        email,
		Fullname:     username,
		Avatar:       "http://assets.test/" + username + ".jpg",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func TestMemoryUserRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	users := store.Users()
	seedUser(t, store, "u1", "alice", "alice@x.com")

	t.Run("duplicate username or email is rejected", func(t *testing.T) {
		err := users.Create(ctx, model.User{ID: "u2", Username: "alice", Email: "other@x.com"})
		require.ErrorIs(t, err, model.ErrUserAlreadyExists)

		err = users.Create(ctx, model.User{ID: "u3", Username: "other", Email: "alice@x.com"})
		require.ErrorIs(t, err, model.ErrUserAlreadyExists)
	})

	t.Run("find by login matches either identifier", func(t *testing.T) {
		byName, err := users.FindByLogin(ctx, "alice", "")
		require.NoError(t, err)
		require.Equal(t, "u1", byName.ID)

		byEmail, err := users.FindByLogin(ctx, "", "alice@x.com")
		require.NoError(t, err)
		require.Equal(t, "u1", byEmail.ID)

		_, err = users.FindByLogin(ctx, "", "")
		require.ErrorIs(t, err, model.ErrUserNotFound)
	})

	t.Run("refresh token set clear and swap", func(t *testing.T) {
		require.NoError(t, users.SetRefreshToken(ctx, "u1", "first"))

		swapped, err := users.SwapRefreshToken(ctx, "u1", "stale", "second")
		require.NoError(t, err)
		require.False(t, swapped)

		swapped, err = users.SwapRefreshToken(ctx, "u1", "first", "second")
		require.NoError(t, err)
		require.True(t, swapped)

		u, err := users.FindByID(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, u.RefreshToken)
		require.Equal(t, "second", *u.RefreshToken)

		require.NoError(t, users.ClearRefreshToken(ctx, "u1"))
		u, err = users.FindByID(ctx, "u1")
		require.NoError(t, err)
		require.Nil(t, u.RefreshToken)

		swapped, err = users.SwapRefreshToken(ctx, "u1", "second", "third")
		require.NoError(t, err)
		require.False(t, swapped)
	})

	t.Run("update details keeps blanks and rejects taken email", func(t *testing.T) {
		seedUser(t, store, "u4", "bob", "bob@x.com")

		updated, err := users.UpdateDetails(ctx, "u1", "", "Alice A")
		require.NoError(t, err)
		require.Equal(t, "alice@x.com", updated.Email)
		require.Equal(t, "Alice A", updated.Fullname)

		_, err = users.UpdateDetails(ctx, "u1", "bob@x.com", "")
		require.ErrorIs(t, err, model.ErrUserAlreadyExists)
	})

	t.Run("unknown user", func(t *testing.T) {
		require.ErrorIs(t, users.ClearRefreshToken(ctx, "missing"), model.ErrUserNotFound)
		_, err := users.FindByID(ctx, "missing")
		require.ErrorIs(t, err, model.ErrUserNotFound)
	})
}

func TestMemorySwapRefreshTokenSingleWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	seedUser(t, store, "u1", "alice", "alice@x.com")
	require.NoError(t, store.Users().SetRefreshToken(ctx, "u1", "current"))

	const n = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			swapped, err := store.Users().SwapRefreshToken(ctx, "u1", "current", "next")
			assert.NoError(t, err)
			if swapped {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

func TestMemoryVideoRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	videos := store.Videos()
	seedUser(t, store, "owner", "carol", "carol@x.com")
	seedUser(t, store, "viewer", "dave", "dave@x.com")

	now := time.Now().UTC()
	require.NoError(t, videos.Create(ctx, model.Video{ID: "v1", Title: "one", OwnerID: "owner", IsPublished: true, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, videos.Create(ctx, model.Video{ID: "v2", Title: "two", OwnerID: "owner", IsPublished: true, CreatedAt: now, UpdatedAt: now}))

	err := videos.Create(ctx, model.Video{ID: "v3", OwnerID: "ghost"})
	require.ErrorIs(t, err, model.ErrUserNotFound)

	v, err := videos.FindByID(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, v.Owner)
	require.Equal(t, "carol", v.Owner.Username)

	views, err := videos.IncrementViews(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, int64(1), views)

	require.NoError(t, videos.RecordWatch(ctx, "viewer", "v1"))
	require.NoError(t, videos.RecordWatch(ctx, "viewer", "v2"))
	require.NoError(t, videos.RecordWatch(ctx, "viewer", "v1"))

	history, err := videos.ListWatchHistory(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, history, 2)

	require.NoError(t, videos.Delete(ctx, "v1"))
	history, err = videos.ListWatchHistory(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "v2", history[0].ID)

	require.ErrorIs(t, videos.Delete(ctx, "v1"), model.ErrVideoNotFound)
	_, err = videos.IncrementViews(ctx, "v1")
	require.ErrorIs(t, err, model.ErrVideoNotFound)
}

func TestMemoryVideoRepositoryList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	videos := store.Videos()
	seedUser(t, store, "owner", "carol", "carol@x.com")
	seedUser(t, store, "viewer", "dave", "dave@x.com")

	base := time.Now().UTC()
	seed := []model.Video{
		{ID: "old", Title: "Cooking pasta", Description: "dinner", OwnerID: "owner", IsPublished: true, CreatedAt: base},
		{ID: "new", Title: "Hiking", Description: "Mountain PASTA picnic", OwnerID: "owner", IsPublished: true, CreatedAt: base.Add(time.Minute)},
		{ID: "draft", Title: "Draft pasta", Description: "wip", OwnerID: "owner", IsPublished: false, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "mine", Title: "Dave's vlog", Description: "day one", OwnerID: "viewer", IsPublished: false, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, v := range seed {
		require.NoError(t, videos.Create(ctx, v))
	}

	ids := func(list []model.Video) []string {
		out := make([]string, 0, len(list))
		for _, v := range list {
			out = append(out, v.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter model.VideoFilter
		want   []string
	}{
		{name: "viewer sees published and own drafts", filter: model.VideoFilter{ViewerID: "viewer"}, want: []string{"mine", "new", "old"}},
		{name: "owner sees own drafts", filter: model.VideoFilter{ViewerID: "owner"}, want: []string{"draft", "new", "old"}},
		{name: "query matches title or description case-insensitively", filter: model.VideoFilter{ViewerID: "viewer", Query: "pasta"}, want: []string{"new", "old"}},
		{name: "owner filter", filter: model.VideoFilter{ViewerID: "viewer", OwnerID: "viewer"}, want: []string{"mine"}},
		{name: "no match", filter: model.VideoFilter{ViewerID: "viewer", Query: "sailing"}, want: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list, err := videos.List(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(list))
			for _, v := range list {
				require.NotNil(t, v.Owner)
			}
		})
	}
}

func TestMemoryVideoRepositoryUpdateKeepsPublishState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	videos := store.Videos()
	seedUser(t, store, "owner", "carol", "carol@x.com")

	now := time.Now().UTC()
	require.NoError(t, videos.Create(ctx, model.Video{ID: "v1", Title: "one", OwnerID: "owner", IsPublished: true, CreatedAt: now, UpdatedAt: now}))

	stale, err := videos.FindByID(ctx, "v1")
	require.NoError(t, err)

	published, err := videos.TogglePublish(ctx, "v1", now.Add(time.Second))
	require.NoError(t, err)
	require.False(t, published)

	stale.Title = "renamed"
	require.NoError(t, videos.Update(ctx, stale))

	got, err := videos.FindByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.False(t, got.IsPublished)

	published, err = videos.TogglePublish(ctx, "v1", now.Add(2*time.Second))
	require.NoError(t, err)
	assert.True(t, published)

	_, err = videos.TogglePublish(ctx, "missing", now)
	require.ErrorIs(t, err, model.ErrVideoNotFound)
}
