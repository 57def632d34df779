package handler

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"videotube/internal/asset"
	"videotube/pkg/apierror"
)

func newMultipartRequest(t *testing.T, field string, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("title", "  clip  "))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadFormFileIsSeekableFromStart(t *testing.T) {
	t.Parallel()

	content := bytes.Repeat([]byte("0123456789"), 100)
	req := newMultipartRequest(t, "videoFile", "clip.mp4", content)

	form, err := parseUploadForm(httptest.NewRecorder(), req, 1<<20)
	require.NoError(t, err)
	defer form.Close()
	require.Equal(t, "clip", form.value("title"))

	upload, err := form.file("videoFile", asset.KindVideo)
	require.NoError(t, err)
	require.NotNil(t, upload)
	require.Equal(t, int64(len(content)), upload.Size)

	seeker, ok := upload.Body.(io.ReadSeeker)
	require.True(t, ok)

	got, err := io.ReadAll(seeker)
	require.NoError(t, err)
	require.Equal(t, content, got)

	_, err = seeker.Seek(0, io.SeekStart)
	require.NoError(t, err)
	again, err := io.ReadAll(seeker)
	require.NoError(t, err)
	require.Equal(t, content, again)
}

func TestUploadFormRejectsNonImageForImageKinds(t *testing.T) {
	t.Parallel()

	req := newMultipartRequest(t, "avatar", "me.txt", []byte("plain text, not a picture"))
	form, err := parseUploadForm(httptest.NewRecorder(), req, 1<<20)
	require.NoError(t, err)
	defer form.Close()

	_, err = form.file("avatar", asset.KindAvatar)
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	require.Equal(t, "avatar must be an image", apiErr.Message)
}

func TestUploadFormMissingFile(t *testing.T) {
	t.Parallel()

	req := newMultipartRequest(t, "avatar", "a.png", []byte("x"))
	form, err := parseUploadForm(httptest.NewRecorder(), req, 1<<20)
	require.NoError(t, err)
	defer form.Close()

	upload, err := form.file("coverImage", asset.KindCover)
	require.NoError(t, err)
	require.Nil(t, upload)
}
