package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"videotube/internal/middleware"
	"videotube/internal/model"
	"videotube/pkg/apierror"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()

	var resp model.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", apierror.Forbidden("only the owner can modify this video"), http.StatusForbidden, apierror.CodeForbidden},
		{"wrapped user not found", fmt.Errorf("load: %w", model.ErrUserNotFound), http.StatusNotFound, apierror.CodeNotFound},
		{"video not found", model.ErrVideoNotFound, http.StatusNotFound, apierror.CodeNotFound},
		{"duplicate user", model.ErrUserAlreadyExists, http.StatusConflict, apierror.CodeConflict},
		{"expired token", model.ErrTokenExpired, http.StatusUnauthorized, apierror.CodeTokenExpired},
		{"malformed token", model.ErrTokenMalformed, http.StatusUnauthorized, apierror.CodeTokenInvalid},
		{"dependency", apierror.Dependency("failed to load user", errors.New("conn reset")), http.StatusInternalServerError, apierror.CodeDependencyFailure},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

			require.Equal(t, tc.status, rec.Code)
			resp := decodeResponse(t, rec)
			require.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			require.Equal(t, tc.code, resp.Error.Code)
			require.Equal(t, resp.Error.Message, resp.Message)
		})
	}
}

func TestWriteErrorHidesCause(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		apierror.Dependency("failed to store refresh token", errors.New("password=hunter2")))

	require.NotContains(t, rec.Body.String(), "hunter2")
}

// Not parallel: swaps the default logger.
func TestWriteErrorLogsRequestID(t *testing.T) {
	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	handler := middleware.Logging(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, apierror.Dependency("failed to load video", errors.New("conn reset")))
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/x", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, logs.String(), `"request_id":"req-42"`)
	require.Contains(t, logs.String(), "conn reset")
}

func TestWriteSuccess(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeSuccess(rec, http.StatusCreated, "video published successfully", map[string]string{"id": "v1"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	require.Equal(t, "video published successfully", resp.Message)
	require.Nil(t, resp.Error)
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var payload model.RefreshRequest

	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	require.NoError(t, decodeJSON(req, &payload, true))

	req = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	require.Error(t, decodeJSON(req, &payload, false))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"refreshToken":"abc"}`))
	require.NoError(t, decodeJSON(req, &payload, false))
	require.Equal(t, "abc", payload.RefreshToken)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	err := decodeJSON(req, &payload, true)
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
}
