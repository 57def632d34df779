package asset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	key := objectKey(KindAvatar, "Me.PNG", now)
	require.True(t, strings.HasPrefix(key, "avatar/"))
	require.True(t, strings.HasSuffix(key, ".png"))
	require.Len(t, key, len("avatar/")+26+len(".png"))

	require.NotEqual(t, key, objectKey(KindAvatar, "Me.PNG", now))

	noExt := objectKey(KindVideo, "clip", now)
	require.Len(t, noExt, len("video/")+26)

	weird := objectKey(KindVideo, "clip.a b", now)
	require.Len(t, weird, len("video/")+26)
}

func TestKeyFromURL(t *testing.T) {
	t.Parallel()

	key, ok := keyFromURL("http://cdn.test/static/", "http://cdn.test/static/avatar/abc.jpg")
	require.True(t, ok)
	require.Equal(t, "avatar/abc.jpg", key)

	_, ok = keyFromURL("http://cdn.test/static", "http://elsewhere.test/avatar/abc.jpg")
	require.False(t, ok)

	_, ok = keyFromURL("http://cdn.test/static", "http://cdn.test/static/")
	require.False(t, ok)
}

func TestKindIsImage(t *testing.T) {
	t.Parallel()

	require.True(t, KindAvatar.IsImage())
	require.True(t, KindCover.IsImage())
	require.True(t, KindThumbnail.IsImage())
	require.False(t, KindVideo.IsImage())
}
